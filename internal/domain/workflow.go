// Package domain implements the testsynth commands on top of the engine and
// fitness packages.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"gooze.dev/pkg/testsynth/internal/adapter"
	"gooze.dev/pkg/testsynth/internal/controller"
	"gooze.dev/pkg/testsynth/internal/engine"
	"gooze.dev/pkg/testsynth/internal/fitness"
	m "gooze.dev/pkg/testsynth/internal/model"
	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
	"gooze.dev/pkg/testsynth/pkg/coverage"
	"gooze.dev/pkg/testsynth/pkg/spill"
)

// ErrNoSuites is returned when the given paths contain no suite files.
var ErrNoSuites = errors.New("no suites found")

// RunArgs configures Workflow.Run.
type RunArgs struct {
	Paths    []m.Path
	Reports  m.Path
	Criteria []coverage.Criterion
	// TargetClass limits the reported goals to one class. Empty reports
	// the goals of every loaded class.
	TargetClass string
	// Workers runs the tests of a suite concurrently, each worker on its
	// own loader. One worker executes sequentially on the suite's loader.
	Workers int
	// ShardIndex and TotalShardCount split the discovered suites across
	// several invocations. Shard reports go to Reports/shard_<index>.
	ShardIndex      int
	TotalShardCount int
	Engine          engine.Options
}

// RenderArgs configures Workflow.Render.
type RenderArgs struct {
	Paths []m.Path
	// Output is the directory receiving rendered files. Empty renders next
	// to each suite.
	Output m.Path
	// Package overrides the package clause of every suite.
	Package            string
	ReplaceEnvironment bool
	// Check compares instead of writing and fails on differences.
	Check bool
	// Verify runs the rendered tests with `go test`.
	Verify bool
}

// ListArgs configures Workflow.List.
type ListArgs struct {
	Criteria    []coverage.Criterion
	TargetClass string
}

// ViewArgs configures Workflow.View.
type ViewArgs struct {
	Reports m.Path
	// ShardIndex and TotalShardCount select the reports of one shard of a
	// sharded run. A TotalShardCount of 0 or 1 views Reports itself.
	ShardIndex      int
	TotalShardCount int
}

// MergeArgs configures Workflow.Merge.
type MergeArgs struct {
	Reports m.Path
	// RemoveShards deletes the shard_* directories once merged.
	RemoveShards bool
}

// Workflow runs the testsynth commands.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) error
	Render(ctx context.Context, args RenderArgs) error
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
	Merge(ctx context.Context, args MergeArgs) error
}

type workflow struct {
	suites   adapter.SuiteStore
	reports  adapter.ReportStore
	runner   adapter.TestRunnerAdapter
	ui       controller.UI
	fs       afero.Fs
	registry *classpath.Registry
}

// NewWorkflow wires a workflow. fs backs the report spill; registry nil
// means the process-wide class registry.
func NewWorkflow(
	suites adapter.SuiteStore,
	reports adapter.ReportStore,
	runner adapter.TestRunnerAdapter,
	ui controller.UI,
	fs afero.Fs,
	registry *classpath.Registry,
) Workflow {
	if registry == nil {
		registry = classpath.DefaultRegistry()
	}

	return &workflow{
		suites:   suites,
		reports:  reports,
		runner:   runner,
		ui:       ui,
		fs:       fs,
		registry: registry,
	}
}

func (w *workflow) newLoader() *classpath.InstrumentingLoader {
	return classpath.NewInstrumentingLoader(w.registry)
}

// Run executes every discovered suite, scores it and saves one report per
// suite.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	paths, err := w.suites.Discover(args.Paths)
	if err != nil {
		slog.Error("Failed to discover suites", "paths", args.Paths, "error", err)
		return err
	}

	paths = shardPaths(paths, args.ShardIndex, args.TotalShardCount)

	if len(paths) == 0 {
		return ErrNoSuites
	}

	if err := w.ui.Start(ctx, controller.WithRunMode()); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	workers := max(args.Workers, 1)
	w.ui.DisplayRunInfo(ctx, len(paths), workers)

	reports, err := spill.New[m.Report](w.fs, "")
	if err != nil {
		return fmt.Errorf("failed to create report spill: %w", err)
	}

	defer func() {
		if err := reports.Close(); err != nil {
			slog.Warn("Failed to close report spill", "error", err)
		}
	}()

	runID := uuid.NewString()
	eng := engine.New(args.Engine)

	for _, path := range paths {
		report, err := w.runSuite(ctx, runID, path, eng, args)
		if err != nil {
			return err
		}

		if err := reports.Append(*report); err != nil {
			return err
		}
	}

	collected := make([]m.Report, 0, reports.Len())

	if err := reports.Range(func(_ uint64, report m.Report) error {
		collected = append(collected, report)
		return nil
	}); err != nil {
		return err
	}

	if err := w.reports.SaveReports(shardReportsDir(args.Reports, args.ShardIndex, args.TotalShardCount), collected); err != nil {
		return err
	}

	score, err := coverageScoreFromReports(reports)
	if err != nil {
		return err
	}

	slog.Info("Run completed", "run", runID, "suites", len(paths), "coverage", score)

	return nil
}

func (w *workflow) runSuite(ctx context.Context, runID string, path m.Path, eng engine.Engine, args RunArgs) (*m.Report, error) {
	start := time.Now()
	loader := w.newLoader()

	suite, err := w.suites.Load(path, loader)
	if err != nil {
		slog.Error("Failed to load suite", "path", path, "error", err)
		return nil, err
	}

	w.ui.DisplaySuiteStarted(ctx, path, len(suite.Tests))

	cases := make([]*testcase.TestCase, 0, len(suite.Tests))
	for _, test := range suite.Tests {
		cases = append(cases, test.Case)
	}

	scored := fitness.NewSuite(cases...)

	if args.Workers > 1 {
		pool := engine.NewPool(eng, args.Workers, func() classpath.Loader { return w.newLoader() })
		if err := scored.Prefetch(ctx, pool, loader); err != nil {
			slog.Error("Failed to execute suite", "path", path, "error", err)
			return nil, fmt.Errorf("suite %s: %w", path, err)
		}
	}

	fn, err := fitness.ForCriteria(args.Criteria, eng, loader)
	if err != nil {
		return nil, err
	}

	value, err := fn.Fitness(ctx, scored)
	if err != nil {
		slog.Error("Failed to evaluate suite", "path", path, "error", err)
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}

	exec, err := scored.Execute(ctx, eng, loader)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}

	report := &m.Report{
		RunID:    runID,
		Suite:    path,
		Criteria: criteriaNames(args.Criteria),
		Fitness:  value,
		Goals:    goalReports(targetGoals(fn.Goals(), args.TargetClass), scored.CoveredGoals()),
		Tests:    make([]m.TestReport, 0, len(cases)),
	}

	for i, named := range suite.Tests {
		test := testReport(named.Name, exec.Results[i])
		report.Tests = append(report.Tests, test)
		w.ui.DisplayTestResult(ctx, path, test)
	}

	covered := 0
	for _, goal := range report.Goals {
		if goal.Covered {
			covered++
		}
	}

	report.Coverage = ratio(covered, len(report.Goals))
	report.Duration = time.Since(start)

	w.ui.DisplayReport(ctx, *report)
	slog.Debug("Suite scored", "path", path, "fitness", value, "coverage", report.Coverage, "loader", loader.ID())

	return report, nil
}

func criteriaNames(criteria []coverage.Criterion) []string {
	names := make([]string, 0, len(criteria))
	for _, c := range criteria {
		names = append(names, string(c))
	}

	slices.Sort(names)

	return slices.Compact(names)
}

func targetGoals(goals []coverage.Goal, class string) []coverage.Goal {
	if class == "" {
		return goals
	}

	return slices.DeleteFunc(slices.Clone(goals), func(g coverage.Goal) bool {
		return g.Class != class
	})
}

func goalReports(goals []coverage.Goal, covered []coverage.GoalID) []m.GoalReport {
	reports := make([]m.GoalReport, 0, len(goals))

	for _, goal := range goals {
		_, hit := slices.BinarySearch(covered, goal.ID)
		reports = append(reports, m.GoalReport{
			ID:        string(goal.ID),
			Criterion: string(goal.Criterion),
			Covered:   hit,
		})
	}

	return reports
}

func testReport(name string, result *engine.Result) m.TestReport {
	report := m.TestReport{
		Name:     name,
		LoaderID: result.LoaderID,
		Outcomes: make([]m.OutcomeReport, 0, len(result.Outcomes)),
		Output:   result.Output,
		Duration: result.Duration,
	}

	for _, outcome := range result.Outcomes {
		o := m.OutcomeReport{
			Position:         outcome.Position,
			Status:           outcome.Status.String(),
			FailedAssertions: outcome.FailedAssertions,
			Duration:         outcome.Duration,
		}

		if outcome.Err != nil {
			o.Error = outcome.Err.Error()
		}

		report.Outcomes = append(report.Outcomes, o)
	}

	for _, id := range result.CoveredGoals() {
		report.Covered = append(report.Covered, string(id))
	}

	return report
}
