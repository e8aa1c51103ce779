// Package coverage provides the probes that instrumented classes report into
// and the goal model consumed by fitness functions.
package coverage

import (
	"fmt"
	"slices"
	"strings"
)

// Criterion names a family of coverage goals.
type Criterion string

const (
	// Branch covers both sides of every conditional plus the entry of branchless methods.
	Branch Criterion = "branch"
	// Line covers every instrumented source line.
	Line Criterion = "line"
	// Method covers the entry of every instrumented method.
	Method Criterion = "method"
	// Exception covers every distinct exception kind raised by a member.
	Exception Criterion = "exception"
	// Mutation covers every weak mutant whose state infection was observed.
	Mutation Criterion = "mutation"
)

// AllCriteria lists every supported criterion in a stable order.
var AllCriteria = []Criterion{Branch, Line, Method, Exception, Mutation}

// ParseCriterion converts a configuration value into a Criterion.
func ParseCriterion(value string) (Criterion, error) {
	c := Criterion(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(AllCriteria, c) {
		return c, nil
	}

	return "", fmt.Errorf("unsupported coverage criterion: %q", value)
}

// GoalID is the opaque identifier of a coverage goal. IDs are stable across
// loaders so goals collected by different workers can be merged.
type GoalID string

// Goal describes a single structural element the suite can exercise.
type Goal struct {
	ID          GoalID
	Criterion   Criterion
	Class       string
	Member      string
	Description string
}

func (g Goal) String() string {
	return string(g.ID)
}

// MethodGoalID returns the ID of the entry goal of a method.
func MethodGoalID(class, member string) GoalID {
	return GoalID(fmt.Sprintf("method:%s.%s", class, member))
}

// BranchGoalID returns the ID of one side of a branch.
func BranchGoalID(class, member, label string, side bool) GoalID {
	return GoalID(fmt.Sprintf("branch:%s.%s:%s:%t", class, member, label, side))
}

// LineGoalID returns the ID of a line goal.
func LineGoalID(class string, line int) GoalID {
	return GoalID(fmt.Sprintf("line:%s:%d", class, line))
}

// MutantGoalID returns the ID of a weak mutation goal.
func MutantGoalID(class, member, mutant string) GoalID {
	return GoalID(fmt.Sprintf("mutation:%s.%s:%s", class, member, mutant))
}

// ExceptionGoal builds the dynamic goal for an exception of the given kind
// raised by class.member. Exception goals are not registered up front: they
// exist once observed.
func ExceptionGoal(class, member, kind string) Goal {
	return Goal{
		ID:          GoalID(fmt.Sprintf("exception:%s.%s:%s", class, member, kind)),
		Criterion:   Exception,
		Class:       class,
		Member:      member,
		Description: kind,
	}
}

// Normalize maps a non-negative distance into [0, 1).
func Normalize(distance float64) float64 {
	if distance <= 0 {
		return 0
	}

	return distance / (distance + 1)
}
