package domain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "gooze.dev/pkg/testsynth/examples/targets"
	"gooze.dev/pkg/testsynth/internal/adapter"
	"gooze.dev/pkg/testsynth/internal/controller"
	"gooze.dev/pkg/testsynth/internal/engine"
	m "gooze.dev/pkg/testsynth/internal/model"
	"gooze.dev/pkg/testsynth/pkg/coverage"
)

const accountSuite = `package: targets_test
tests:
  - name: TestDeposit
    statements:
      - {id: owner, value: ada}
      - {id: balance, value: 10}
      - {id: account, new: targets.Account.NewAccount, args: [owner, balance]}
      - {call: Deposit, on: account, args: [balance], equals: 20}
  - name: TestTransfer
    statements:
      - {id: amount, value: 5}
      - {id: owner, value: bob}
      - {id: account, new: targets.Account.NewAccount, args: [owner, amount]}
      - {call: targets.Account.Transfer, args: [account, account, amount]}
`

type fakeUI struct {
	mu       sync.Mutex
	started  []controller.StartMode
	closed   int
	suites   []m.Path
	tests    []m.TestReport
	reports  []m.Report
	rendered map[m.Path]string
	classes  []m.ClassInfo
}

func newFakeUI() *fakeUI {
	return &fakeUI{rendered: map[m.Path]string{}}
}

func (f *fakeUI) Start(_ context.Context, options ...controller.StartOption) error {
	cfg := &controller.StartConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.started = append(f.started, cfg.Mode())

	return nil
}

func (f *fakeUI) Close(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed++
}

func (f *fakeUI) DisplayRunInfo(context.Context, int, int) {}

func (f *fakeUI) DisplaySuiteStarted(_ context.Context, suite m.Path, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.suites = append(f.suites, suite)
}

func (f *fakeUI) DisplayTestResult(_ context.Context, _ m.Path, test m.TestReport) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tests = append(f.tests, test)
}

func (f *fakeUI) DisplayReport(_ context.Context, report m.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reports = append(f.reports, report)
}

func (f *fakeUI) DisplayRendered(_ context.Context, path m.Path, _ int, diff string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rendered[path] = diff
}

func (f *fakeUI) DisplayClasses(_ context.Context, classes []m.ClassInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.classes = classes
}

type fakeRunner struct {
	dir    string
	tests  []string
	output string
	err    error
}

func (f *fakeRunner) RunGoTest(_ context.Context, dir string, tests []string) (string, error) {
	f.dir = dir
	f.tests = tests

	return f.output, f.err
}

type fixture struct {
	fs       afero.Fs
	ui       *fakeUI
	runner   *fakeRunner
	reports  adapter.ReportStore
	workflow Workflow
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o600))
	}

	f := &fixture{
		fs:      fs,
		ui:      newFakeUI(),
		runner:  &fakeRunner{},
		reports: adapter.NewReportStore(fs),
	}
	f.workflow = NewWorkflow(adapter.NewSuiteStore(fs), f.reports, f.runner, f.ui, fs, nil)

	return f
}

func TestWorkflow_Run(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{name: "sequential", workers: 1},
		{name: "parallel", workers: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[string]string{"/suites/account.yaml": accountSuite})

			err := f.workflow.Run(context.Background(), RunArgs{
				Paths:    []m.Path{"/suites"},
				Reports:  "/reports",
				Criteria: []coverage.Criterion{coverage.Branch, coverage.Method},
				Workers:  tt.workers,
				Engine:   engine.Options{MockEnvironment: true},
			})
			require.NoError(t, err)

			assert.Equal(t, []controller.StartMode{controller.ModeRun}, f.ui.started)
			assert.Equal(t, 1, f.ui.closed)
			assert.Equal(t, []m.Path{"/suites/account.yaml"}, f.ui.suites)
			require.Len(t, f.ui.tests, 2)
			assert.Equal(t, "TestDeposit", f.ui.tests[0].Name)
			assert.Len(t, f.ui.tests[0].Outcomes, 4)
			assert.Zero(t, f.ui.tests[0].FailedAssertions())
			assert.Equal(t, 4, f.ui.tests[0].Count("success"))

			saved, err := f.reports.LoadReports("/reports")
			require.NoError(t, err)
			require.Len(t, saved, 1)

			report := saved[0]
			assert.NotEmpty(t, report.RunID)
			assert.Equal(t, m.Path("/suites/account.yaml"), report.Suite)
			assert.Equal(t, []string{"branch", "method"}, report.Criteria)
			assert.NotEmpty(t, report.Goals)
			assert.Greater(t, report.Coverage, 0.0)
			assert.Less(t, report.Coverage, 1.0)
			assert.Greater(t, report.Fitness, 0.0)

			covered := map[string]bool{}
			for _, goal := range report.Goals {
				covered[goal.ID] = goal.Covered
			}

			assert.True(t, covered[string(coverage.MethodGoalID("targets.Account", "Deposit"))])
			assert.False(t, covered[string(coverage.MethodGoalID("targets.Account", "Withdraw"))])
		})
	}
}

func TestWorkflow_Run_SameReportForAnyWorkerCount(t *testing.T) {
	run := func(workers int) m.Report {
		f := newFixture(t, map[string]string{"/suites/account.yaml": accountSuite})

		require.NoError(t, f.workflow.Run(context.Background(), RunArgs{
			Paths:    []m.Path{"/suites"},
			Reports:  "/reports",
			Criteria: []coverage.Criterion{coverage.Branch},
			Workers:  workers,
		}))

		require.Len(t, f.ui.reports, 1)

		return f.ui.reports[0]
	}

	sequential := run(1)
	parallel := run(4)

	assert.InDelta(t, sequential.Fitness, parallel.Fitness, 1e-9)
	assert.Equal(t, sequential.Goals, parallel.Goals)
}

func TestWorkflow_Run_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{name: "no suites", files: map[string]string{"/suites/readme.txt": "nothing"}, wantErr: ErrNoSuites},
		{
			name:    "bad suite",
			files:   map[string]string{"/suites/bad.yaml": "tests:\n  - statements:\n      - {call: Missing}\n"},
			wantErr: adapter.ErrSuiteSpec,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.files)

			err := f.workflow.Run(context.Background(), RunArgs{
				Paths:    []m.Path{"/suites"},
				Reports:  "/reports",
				Criteria: []coverage.Criterion{coverage.Branch},
			})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWorkflow_Render(t *testing.T) {
	f := newFixture(t, map[string]string{"/suites/account.yaml": accountSuite})
	ctx := context.Background()
	args := RenderArgs{Paths: []m.Path{"/suites"}, ReplaceEnvironment: true}

	require.NoError(t, f.workflow.Render(ctx, args))

	src, err := afero.ReadFile(f.fs, "/suites/account_synth_test.go")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(src), "// Code generated by testsynth. DO NOT EDIT."))
	assert.Contains(t, string(src), "package targets_test")
	assert.Contains(t, string(src), "func TestDeposit(t *testing.T)")
	assert.Contains(t, string(src), "func TestTransfer(t *testing.T)")

	// Rendering again reads both the YAML suite and the rendered Go file
	// back; both must be up to date.
	args.Check = true
	require.NoError(t, f.workflow.Render(ctx, args))

	require.NoError(t, afero.WriteFile(f.fs, "/suites/account_synth_test.go", append(src, []byte("// edited\n")...), 0o600))

	err = f.workflow.Render(ctx, RenderArgs{Paths: []m.Path{"/suites/account.yaml"}, ReplaceEnvironment: true, Check: true})
	require.ErrorIs(t, err, ErrOutOfDate)
	assert.Contains(t, f.ui.rendered["/suites/account_synth_test.go"], "// edited")
}

func TestWorkflow_Render_OutputAndPackage(t *testing.T) {
	f := newFixture(t, map[string]string{"/suites/account.yaml": accountSuite})

	require.NoError(t, f.workflow.Render(context.Background(), RenderArgs{
		Paths:   []m.Path{"/suites/account.yaml"},
		Output:  "/out",
		Package: "synth_test",
	}))

	src, err := afero.ReadFile(f.fs, "/out/account_synth_test.go")
	require.NoError(t, err)
	assert.Contains(t, string(src), "package synth_test")

	exists, err := afero.Exists(f.fs, "/suites/account_synth_test.go")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWorkflow_Render_Verify(t *testing.T) {
	f := newFixture(t, map[string]string{"/suites/account.yaml": accountSuite})
	args := RenderArgs{Paths: []m.Path{"/suites/account.yaml"}, Verify: true}

	require.NoError(t, f.workflow.Render(context.Background(), args))
	assert.Equal(t, "/suites", f.runner.dir)
	assert.Equal(t, []string{"TestDeposit", "TestTransfer"}, f.runner.tests)

	f.runner.err = errors.New("exit status 1")
	f.runner.output = "--- FAIL: TestDeposit"

	err := f.workflow.Render(context.Background(), args)
	require.ErrorIs(t, err, ErrVerifyFailed)
	assert.Contains(t, err.Error(), "--- FAIL: TestDeposit")
}

func TestRenderTarget(t *testing.T) {
	tests := []struct {
		name   string
		path   m.Path
		format m.SuiteFormat
		output m.Path
		want   m.Path
	}{
		{name: "yaml next to suite", path: "/s/account.yaml", format: m.FormatYAML, want: "/s/account_synth_test.go"},
		{name: "yml into output", path: "/s/account.yml", format: m.FormatYAML, output: "/out", want: "/out/account_synth_test.go"},
		{name: "go in place", path: "/s/account_synth_test.go", format: m.FormatGo, want: "/s/account_synth_test.go"},
		{name: "go into output", path: "/s/gen_test.go", format: m.FormatGo, output: "/out", want: "/out/gen_test.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderTarget(tt.path, tt.format, tt.output))
		})
	}
}

func TestWorkflow_List(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.workflow.List(context.Background(), ListArgs{
		Criteria: []coverage.Criterion{coverage.Branch, coverage.Method},
	}))

	assert.Equal(t, []controller.StartMode{controller.ModeList}, f.ui.started)

	var account *m.ClassInfo
	for i := range f.ui.classes {
		if f.ui.classes[i].Name == "targets.Account" {
			account = &f.ui.classes[i]
		}
	}

	require.NotNil(t, account)
	assert.Equal(t, []string{"NewAccount"}, account.Constructors)
	assert.Contains(t, account.Methods, "Deposit")
	assert.Contains(t, account.Methods, "static Transfer")
	assert.Contains(t, account.Fields, "static Overdraft")
	assert.Equal(t, 9, account.Goals["branch"])
	assert.Equal(t, 5, account.Goals["method"])
}

func TestWorkflow_Run_TargetClass(t *testing.T) {
	f := newFixture(t, map[string]string{"/suites/account.yaml": accountSuite})

	require.NoError(t, f.workflow.Run(context.Background(), RunArgs{
		Paths:       []m.Path{"/suites"},
		Reports:     "/reports",
		Criteria:    []coverage.Criterion{coverage.Method},
		TargetClass: "targets.Account",
	}))

	require.Len(t, f.ui.reports, 1)
	assert.Len(t, f.ui.reports[0].Goals, 5)
}

func TestWorkflow_ShardAndMerge(t *testing.T) {
	files := map[string]string{
		"/suites/a.yaml": accountSuite,
		"/suites/b.yaml": accountSuite,
		"/suites/c.yaml": accountSuite,
	}
	f := newFixture(t, files)
	ctx := context.Background()

	for index := range 2 {
		require.NoError(t, f.workflow.Run(ctx, RunArgs{
			Paths:           []m.Path{"/suites"},
			Reports:         "/reports",
			Criteria:        []coverage.Criterion{coverage.Branch},
			ShardIndex:      index,
			TotalShardCount: 2,
		}))
	}

	shard0, err := f.reports.LoadReports("/reports/shard_0")
	require.NoError(t, err)
	assert.Len(t, shard0, 2)

	shard1, err := f.reports.LoadReports("/reports/shard_1")
	require.NoError(t, err)
	assert.Len(t, shard1, 1)

	require.NoError(t, f.workflow.Merge(ctx, MergeArgs{Reports: "/reports"}))

	merged, err := f.reports.LoadReports("/reports")
	require.NoError(t, err)
	require.Len(t, merged, 3)

	require.NoError(t, f.workflow.View(ctx, ViewArgs{Reports: "/reports"}))
	assert.Contains(t, f.ui.started, controller.ModeView)
	assert.Len(t, f.ui.reports, 3+3)

	require.NoError(t, f.workflow.View(ctx, ViewArgs{Reports: "/reports", ShardIndex: 1, TotalShardCount: 2}))
	assert.Len(t, f.ui.reports, 3+3+1)

	exists, err := afero.DirExists(f.fs, "/reports/shard_0")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWorkflow_MergeRemovesShards(t *testing.T) {
	f := newFixture(t, map[string]string{
		"/suites/a.yaml": accountSuite,
		"/suites/b.yaml": accountSuite,
	})
	ctx := context.Background()

	for index := range 2 {
		require.NoError(t, f.workflow.Run(ctx, RunArgs{
			Paths:           []m.Path{"/suites"},
			Reports:         "/reports",
			Criteria:        []coverage.Criterion{coverage.Method},
			ShardIndex:      index,
			TotalShardCount: 2,
		}))
	}

	require.NoError(t, f.workflow.Merge(ctx, MergeArgs{Reports: "/reports", RemoveShards: true}))

	merged, err := f.reports.LoadReports("/reports")
	require.NoError(t, err)
	assert.Len(t, merged, 2)

	shards, err := afero.Glob(f.fs, "/reports/shard_*")
	require.NoError(t, err)
	assert.Empty(t, shards)

	require.Error(t, f.workflow.View(ctx, ViewArgs{Reports: "/reports", ShardIndex: 0, TotalShardCount: 2}))
}

func TestWorkflow_ViewAndMerge_Empty(t *testing.T) {
	f := newFixture(t, map[string]string{"/reports/readme.txt": "empty"})
	ctx := context.Background()

	require.ErrorIs(t, f.workflow.View(ctx, ViewArgs{Reports: "/reports"}), ErrNoReports)
	require.ErrorIs(t, f.workflow.Merge(ctx, MergeArgs{Reports: "/reports"}), ErrNoReports)
}

func TestShardPaths(t *testing.T) {
	paths := []m.Path{"a", "b", "c", "d", "e"}

	tests := []struct {
		name  string
		index int
		total int
		want  []m.Path
	}{
		{name: "unsharded", index: 0, total: 1, want: paths},
		{name: "first of two", index: 0, total: 2, want: []m.Path{"a", "c", "e"}},
		{name: "second of two", index: 1, total: 2, want: []m.Path{"b", "d"}},
		{name: "empty shard", index: 5, total: 6, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shardPaths(paths, tt.index, tt.total))
		})
	}
}
