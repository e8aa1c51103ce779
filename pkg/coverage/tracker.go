package coverage

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// Tracker owns the goals registered by one instrumenting loader and the
// execution trace accumulated since the last Reset. It is safe for
// concurrent use: probes of an abandoned statement may still fire while the
// engine snapshots the trace.
type Tracker struct {
	mu       sync.Mutex
	goals    map[GoalID]Goal
	order    []GoalID
	branched map[string]bool
	trace    Trace
	retired  bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		goals:    map[GoalID]Goal{},
		branched: map[string]bool{},
		trace:    newTrace(),
	}
}

// Probes returns the probe set for one class.
func (t *Tracker) Probes(class string) *Probes {
	return &Probes{tracker: t, class: class}
}

// Reset clears the execution trace but keeps registered goals.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.trace = newTrace()
}

// Retire stops t from recording and returns a tracker with the same goals
// and an empty trace. Probes still bound to t, such as those of a statement
// that ignored interruption, no longer reach any trace.
func (t *Tracker) Retire() *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.retired = true

	return &Tracker{
		goals:    maps.Clone(t.goals),
		order:    slices.Clone(t.order),
		branched: maps.Clone(t.branched),
		trace:    newTrace(),
	}
}

// Retired reports whether Retire was called.
func (t *Tracker) Retired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.retired
}

// Snapshot returns a copy of the current execution trace.
func (t *Tracker) Snapshot() Trace {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.trace.clone()
}

// Goals returns the registered goals of a criterion in registration order.
// Branch goals include the entry goals of methods without branches.
func (t *Tracker) Goals(criterion Criterion) []Goal {
	t.mu.Lock()
	defer t.mu.Unlock()

	goals := make([]Goal, 0, len(t.order))

	for _, id := range t.order {
		goal := t.goals[id]

		switch {
		case goal.Criterion == criterion:
			goals = append(goals, goal)
		case criterion == Branch && goal.Criterion == Method && !t.branched[methodKey(goal.Class, goal.Member)]:
			goals = append(goals, goal)
		}
	}

	return goals
}

func (t *Tracker) register(goal Goal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.goals[goal.ID]; ok {
		return
	}

	t.goals[goal.ID] = goal
	t.order = append(t.order, goal.ID)
	slog.Debug("registered coverage goal", "goal", goal.ID)
}

func (t *Tracker) markBranched(class, member string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.branched[methodKey(class, member)] = true
}

func (t *Tracker) record(id GoalID, distance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.retired {
		return
	}

	if distance <= 0 {
		t.trace.Covered[id] = struct{}{}
		delete(t.trace.Distances, id)

		return
	}

	if _, covered := t.trace.Covered[id]; covered {
		return
	}

	if current, ok := t.trace.Distances[id]; !ok || distance < current {
		t.trace.Distances[id] = distance
	}
}

func methodKey(class, member string) string {
	return class + "." + member
}

// Trace is the coverage observed during one or more executions.
type Trace struct {
	Covered   map[GoalID]struct{}
	Distances map[GoalID]float64
}

func newTrace() Trace {
	return Trace{
		Covered:   map[GoalID]struct{}{},
		Distances: map[GoalID]float64{},
	}
}

func (tr Trace) clone() Trace {
	return Trace{
		Covered:   maps.Clone(tr.Covered),
		Distances: maps.Clone(tr.Distances),
	}
}

// IsCovered reports whether the goal was covered.
func (tr Trace) IsCovered(id GoalID) bool {
	_, ok := tr.Covered[id]
	return ok
}

// Distance returns the smallest distance observed for an uncovered goal.
// Covered goals have distance 0; unreached goals report ok == false.
func (tr Trace) Distance(id GoalID) (float64, bool) {
	if tr.IsCovered(id) {
		return 0, true
	}

	d, ok := tr.Distances[id]

	return d, ok
}

// CoveredIDs returns the covered goal IDs in sorted order.
func (tr Trace) CoveredIDs() []GoalID {
	return slices.Sorted(maps.Keys(tr.Covered))
}

// Merge returns the union of two traces, keeping the smaller distance of
// goals neither trace covered.
func (tr Trace) Merge(other Trace) Trace {
	merged := tr.clone()
	if merged.Covered == nil {
		merged = newTrace()
	}

	for id := range other.Covered {
		merged.Covered[id] = struct{}{}
		delete(merged.Distances, id)
	}

	for id, d := range other.Distances {
		if merged.IsCovered(id) {
			continue
		}

		if current, ok := merged.Distances[id]; !ok || d < current {
			merged.Distances[id] = d
		}
	}

	return merged
}
