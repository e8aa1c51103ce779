package model

import "time"

// Report summarizes one `run` over a suite file.
type Report struct {
	RunID    string        `json:"run_id"`
	Suite    Path          `json:"suite"`
	Criteria []string      `json:"criteria"`
	Fitness  float64       `json:"fitness"`
	Coverage float64       `json:"coverage"`
	Goals    []GoalReport  `json:"goals"`
	Tests    []TestReport  `json:"tests"`
	Duration time.Duration `json:"duration,format:nano"`
}

// GoalReport is the state of one coverage goal after the run.
type GoalReport struct {
	ID        string `json:"id"`
	Criterion string `json:"criterion"`
	Covered   bool   `json:"covered"`
}

// TestReport is the execution result of one test case.
type TestReport struct {
	Name     string          `json:"name"`
	LoaderID string          `json:"loader_id"`
	Outcomes []OutcomeReport `json:"outcomes"`
	Covered  []string        `json:"covered,omitempty"`
	Output   string          `json:"output,omitempty"`
	Duration time.Duration   `json:"duration,format:nano"`
}

// OutcomeReport is the execution result of one statement.
type OutcomeReport struct {
	Position         int           `json:"position"`
	Status           string        `json:"status"`
	Error            string        `json:"error,omitempty"`
	FailedAssertions int           `json:"failed_assertions,omitempty"`
	Duration         time.Duration `json:"duration,format:nano"`
}

// Count returns how many statements ended with status.
func (r TestReport) Count(status string) int {
	n := 0

	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}

	return n
}

// FailedAssertions sums the failed assertions over all statements.
func (r TestReport) FailedAssertions() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.FailedAssertions
	}

	return n
}
