package engine

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"gooze.dev/pkg/testsynth/pkg/coverage"
)

// Status is the outcome of one statement.
type Status int

const (
	// Success means the statement completed and bound its value.
	Success Status = iota
	// Threw means the statement panicked or returned an error.
	Threw
	// Timeout means the statement exceeded its budget and stopped when
	// interrupted.
	Timeout
	// HardTimeout means the statement ignored the interruption and its
	// worker was abandoned.
	HardTimeout
	// Skipped means the statement did not run.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Threw:
		return "threw"
	case Timeout:
		return "timeout"
	case HardTimeout:
		return "hard-timeout"
	case Skipped:
		return "skipped"
	}

	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome describes the execution of the statement at Position.
type Outcome struct {
	Position         int
	Status           Status
	Err              error
	Duration         time.Duration
	FailedAssertions int
}

// Result is what one execution of a test case produced.
type Result struct {
	RunID    string
	LoaderID string
	Outcomes []Outcome
	// Trace is the coverage recorded by the loader during the run.
	Trace coverage.Trace
	// Exceptions are the exception goals observed during the run.
	Exceptions []coverage.Goal
	// Output is everything the code under test printed.
	Output   string
	Duration time.Duration
}

// Statuses returns the outcome status of every statement in order.
func (r *Result) Statuses() []Status {
	statuses := make([]Status, len(r.Outcomes))
	for i, o := range r.Outcomes {
		statuses[i] = o.Status
	}

	return statuses
}

// Count returns how many statements ended with status.
func (r *Result) Count(status Status) int {
	n := 0

	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}

	return n
}

// HardTimeout reports whether a worker had to be abandoned.
func (r *Result) HardTimeout() bool {
	return r.Count(HardTimeout) > 0
}

// CoveredGoals returns the covered goals of the trace and the observed
// exception goals, sorted.
func (r *Result) CoveredGoals() []coverage.GoalID {
	goals := map[coverage.GoalID]struct{}{}
	maps.Copy(goals, r.Trace.Covered)

	for _, g := range r.Exceptions {
		goals[g.ID] = struct{}{}
	}

	return slices.Sorted(maps.Keys(goals))
}
