package fitness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gooze.dev/pkg/testsynth/internal/engine"
	"gooze.dev/pkg/testsynth/pkg/classpath"
	"gooze.dev/pkg/testsynth/pkg/coverage"
)

// Function scores a suite. Fitness executes the suite as needed and records
// the goals it covers on the suite.
type Function interface {
	// Name identifies the criteria the function scores.
	Name() string
	// Fitness returns a non-negative score; zero means fully covered.
	Fitness(ctx context.Context, suite *Suite) (float64, error)
	// Goals returns the goals known to the function after the last
	// evaluation.
	Goals() []coverage.Goal
}

// goalFunction scores the goals a loader registers for one criterion: each
// uncovered goal contributes its normalized distance, or 1 when it was never
// reached.
type goalFunction struct {
	criterion coverage.Criterion
	engine    engine.Engine
	loader    classpath.Loader
}

// NewBranchFunction scores branch coverage. Methods without branches count
// through their entry goal.
func NewBranchFunction(e engine.Engine, loader classpath.Loader) Function {
	return &goalFunction{criterion: coverage.Branch, engine: e, loader: loader}
}

// NewLineFunction scores line coverage.
func NewLineFunction(e engine.Engine, loader classpath.Loader) Function {
	return &goalFunction{criterion: coverage.Line, engine: e, loader: loader}
}

// NewMethodFunction scores method entry coverage.
func NewMethodFunction(e engine.Engine, loader classpath.Loader) Function {
	return &goalFunction{criterion: coverage.Method, engine: e, loader: loader}
}

// NewMutationFunction scores weak mutation: a mutant is covered once a
// mutated expression evaluates differently from the original.
func NewMutationFunction(e engine.Engine, loader classpath.Loader) Function {
	return &goalFunction{criterion: coverage.Mutation, engine: e, loader: loader}
}

func (f *goalFunction) Name() string {
	return string(f.criterion)
}

func (f *goalFunction) Goals() []coverage.Goal {
	return f.loader.Tracker().Goals(f.criterion)
}

func (f *goalFunction) Fitness(ctx context.Context, suite *Suite) (float64, error) {
	exec, err := suite.Execute(ctx, f.engine, f.loader)
	if err != nil {
		return 0, err
	}

	fitness := 0.0

	var covered []coverage.GoalID

	for _, goal := range f.Goals() {
		d, reached := exec.Trace.Distance(goal.ID)

		switch {
		case !reached:
			fitness++
		case d == 0:
			covered = append(covered, goal.ID)
		default:
			fitness += coverage.Normalize(d)
		}
	}

	slices.Sort(covered)
	suite.setCovered(f.Name(), covered)

	return fitness, nil
}

// exceptionFunction rewards suites raising more distinct exceptions. Its
// goals are the exceptions observed.
type exceptionFunction struct {
	engine engine.Engine
	loader classpath.Loader
	goals  []coverage.Goal
}

// NewExceptionFunction scores exception coverage as 1/(1+n) for n distinct
// exception goals observed.
func NewExceptionFunction(e engine.Engine, loader classpath.Loader) Function {
	return &exceptionFunction{engine: e, loader: loader}
}

func (f *exceptionFunction) Name() string {
	return string(coverage.Exception)
}

func (f *exceptionFunction) Goals() []coverage.Goal {
	return slices.Clone(f.goals)
}

func (f *exceptionFunction) Fitness(ctx context.Context, suite *Suite) (float64, error) {
	exec, err := suite.Execute(ctx, f.engine, f.loader)
	if err != nil {
		return 0, err
	}

	f.goals = exec.Exceptions

	ids := make([]coverage.GoalID, 0, len(f.goals))
	for _, g := range f.goals {
		ids = append(ids, g.ID)
	}

	slices.Sort(ids)
	suite.setCovered(f.Name(), ids)

	return 1 / float64(1+len(ids)), nil
}

// composite sums the fitness of several functions.
type composite struct {
	functions []Function
}

// ForCriteria returns a function scoring every criterion: the sum of the
// fitness of each, covering the union of their goals.
func ForCriteria(criteria []coverage.Criterion, e engine.Engine, loader classpath.Loader) (Function, error) {
	if len(criteria) == 0 {
		return nil, errors.New("at least one coverage criterion is required")
	}

	var functions []Function

	for _, c := range slices.Compact(slices.Sorted(slices.Values(criteria))) {
		switch c {
		case coverage.Branch:
			functions = append(functions, NewBranchFunction(e, loader))
		case coverage.Line:
			functions = append(functions, NewLineFunction(e, loader))
		case coverage.Method:
			functions = append(functions, NewMethodFunction(e, loader))
		case coverage.Exception:
			functions = append(functions, NewExceptionFunction(e, loader))
		case coverage.Mutation:
			functions = append(functions, NewMutationFunction(e, loader))
		default:
			return nil, fmt.Errorf("unsupported coverage criterion %q", c)
		}
	}

	if len(functions) == 1 {
		return functions[0], nil
	}

	return &composite{functions: functions}, nil
}

// Functions returns the functions f is made of, or f itself.
func Functions(f Function) []Function {
	if c, ok := f.(*composite); ok {
		return slices.Clone(c.functions)
	}

	return []Function{f}
}

func (c *composite) Name() string {
	names := make([]string, len(c.functions))
	for i, f := range c.functions {
		names[i] = f.Name()
	}

	return strings.Join(names, "+")
}

func (c *composite) Goals() []coverage.Goal {
	var goals []coverage.Goal

	seen := map[coverage.GoalID]bool{}

	for _, f := range c.functions {
		for _, g := range f.Goals() {
			if !seen[g.ID] {
				seen[g.ID] = true
				goals = append(goals, g)
			}
		}
	}

	return goals
}

func (c *composite) Fitness(ctx context.Context, suite *Suite) (float64, error) {
	total := 0.0

	for _, f := range c.functions {
		fitness, err := f.Fitness(ctx, suite)
		if err != nil {
			return 0, fmt.Errorf("%s fitness: %w", f.Name(), err)
		}

		total += fitness
	}

	return total, nil
}
