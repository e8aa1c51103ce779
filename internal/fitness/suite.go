// Package fitness scores test suites by the coverage goals their executions
// reach. Lower fitness is better; zero means every goal is covered.
package fitness

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"gooze.dev/pkg/testsynth/internal/engine"
	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
	"gooze.dev/pkg/testsynth/pkg/coverage"
)

type cacheKey struct {
	loader string
	hash   uint32
}

type cacheEntry struct {
	tc     *testcase.TestCase
	result *engine.Result
}

// Suite is a set of test cases. It caches the result of executing each test
// case with a given loader and remembers the goals covered by the last
// fitness evaluation.
type Suite struct {
	mu      sync.Mutex
	tests   []*testcase.TestCase
	cache   map[cacheKey][]cacheEntry
	covered map[string][]coverage.GoalID
}

// NewSuite returns a suite of tests.
func NewSuite(tests ...*testcase.TestCase) *Suite {
	return &Suite{
		tests:   slices.Clone(tests),
		cache:   map[cacheKey][]cacheEntry{},
		covered: map[string][]coverage.GoalID{},
	}
}

// Add appends a test case.
func (s *Suite) Add(tc *testcase.TestCase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tests = append(s.tests, tc)
}

// Tests returns the test cases in order.
func (s *Suite) Tests() []*testcase.TestCase {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.tests)
}

// Size returns the number of test cases.
func (s *Suite) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tests)
}

// CoveredGoals returns the goals covered according to the criteria of the
// fitness functions that evaluated the suite, sorted.
func (s *Suite) CoveredGoals() []coverage.GoalID {
	s.mu.Lock()
	defer s.mu.Unlock()

	goals := map[coverage.GoalID]struct{}{}

	for _, ids := range s.covered {
		for _, id := range ids {
			goals[id] = struct{}{}
		}
	}

	return slices.Sorted(maps.Keys(goals))
}

func (s *Suite) setCovered(criterion string, ids []coverage.GoalID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.covered[criterion] = ids
}

// Execution is the merged outcome of running every test of a suite.
type Execution struct {
	Trace      coverage.Trace
	Exceptions []coverage.Goal
	Results    []*engine.Result
}

// Execute runs every test case with e against loader, reusing cached
// results of structurally equal test cases run with the same loader.
func (s *Suite) Execute(ctx context.Context, e engine.Engine, loader classpath.Loader) (*Execution, error) {
	exec := &Execution{Trace: coverage.Trace{}}
	seen := map[coverage.GoalID]bool{}

	for i, tc := range s.Tests() {
		result, err := s.result(ctx, e, loader, tc)
		if err != nil {
			slog.Error("Failed to execute suite test", "index", i, "error", err)
			return nil, fmt.Errorf("execute test %d: %w", i, err)
		}

		exec.Results = append(exec.Results, result)
		exec.Trace = exec.Trace.Merge(result.Trace)

		for _, g := range result.Exceptions {
			if !seen[g.ID] {
				seen[g.ID] = true
				exec.Exceptions = append(exec.Exceptions, g)
			}
		}
	}

	return exec, nil
}

func (s *Suite) result(ctx context.Context, e engine.Engine, loader classpath.Loader, tc *testcase.TestCase) (*engine.Result, error) {
	key := cacheKey{loader: loader.ID(), hash: tc.Hash()}

	s.mu.Lock()
	if cached := s.cachedLocked(key.loader, tc); cached != nil {
		s.mu.Unlock()
		tc.SetCoveredGoals(cached.CoveredGoals())

		return cached, nil
	}
	s.mu.Unlock()

	result, err := e.Execute(ctx, tc, loader)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = append(s.cache[key], cacheEntry{tc: tc.Clone(), result: result})
	s.mu.Unlock()

	return result, nil
}

// Prefetch executes the uncached test cases concurrently on pool and caches
// their results as if they had run with loader. Goal IDs do not depend on the
// loader, so later evaluations against loader reuse them.
func (s *Suite) Prefetch(ctx context.Context, pool *engine.Pool, loader classpath.Loader) error {
	var pending []*testcase.TestCase

	s.mu.Lock()
	for _, tc := range s.tests {
		if s.cachedLocked(loader.ID(), tc) == nil {
			pending = append(pending, tc)
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	results, err := pool.ExecuteAll(ctx, pending)
	if err != nil {
		return fmt.Errorf("prefetch: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, tc := range pending {
		key := cacheKey{loader: loader.ID(), hash: tc.Hash()}
		s.cache[key] = append(s.cache[key], cacheEntry{tc: tc.Clone(), result: results[i]})
	}

	slog.Debug("prefetched suite results", "loader", loader.ID(), "tests", len(pending))

	return nil
}

func (s *Suite) cachedLocked(loader string, tc *testcase.TestCase) *engine.Result {
	for _, entry := range s.cache[cacheKey{loader: loader, hash: tc.Hash()}] {
		if entry.tc.Equals(tc) {
			return entry.result
		}
	}

	return nil
}

// Invalidate drops every cached result.
func (s *Suite) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.cache)
}
