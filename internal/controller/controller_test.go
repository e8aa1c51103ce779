package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/testsynth/internal/model"
)

func sampleReport() m.Report {
	return m.Report{
		Suite:    "suites/account.yaml",
		Criteria: []string{"branch", "line"},
		Fitness:  1.25,
		Goals: []m.GoalReport{
			{ID: "branch:targets.Account.Deposit:amount <= 0:true", Criterion: "branch", Covered: true},
			{ID: "branch:targets.Account.Deposit:amount <= 0:false", Criterion: "branch"},
			{ID: "line:targets.Account:69", Criterion: "line", Covered: true},
		},
		Tests: []m.TestReport{
			{
				Name: "TestDeposit",
				Outcomes: []m.OutcomeReport{
					{Position: 0, Status: "success"},
					{Position: 1, Status: "success"},
				},
				Duration: time.Millisecond,
			},
			{
				Name: "TestNegative",
				Outcomes: []m.OutcomeReport{
					{Position: 0, Status: "success"},
					{Position: 1, Status: "threw", Error: "negative opening balance -1"},
					{Position: 2, Status: "skipped"},
				},
			},
		},
	}
}

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	return cmd, out
}

func TestSimpleUI_Run(t *testing.T) {
	cmd, out := newTestCmd()
	ui := NewSimpleUI(cmd)
	ctx := context.Background()
	report := sampleReport()

	require.NoError(t, ui.Start(ctx, WithRunMode()))
	ui.DisplayRunInfo(ctx, 1, 2)
	ui.DisplaySuiteStarted(ctx, report.Suite, len(report.Tests))

	for _, test := range report.Tests {
		ui.DisplayTestResult(ctx, report.Suite, test)
	}

	ui.DisplayReport(ctx, report)
	ui.Close(ctx)

	got := out.String()
	assert.Contains(t, got, "Running 1 suite(s) with 2 worker(s)\n")
	assert.Contains(t, got, "Suite suites/account.yaml: 2 test(s)\n")
	assert.Contains(t, got, "  ✓ TestDeposit (2 statements, 1ms)\n")
	assert.Contains(t, got, "  ✗ TestNegative (3 statements, 0s)\n")
	assert.Contains(t, got, "FITNESS 1.250")
	assert.Contains(t, got, "50.0%")
	assert.Contains(t, got, "66.7%")
	assert.Contains(t, got, "Uncovered goals:\n  - branch:targets.Account.Deposit:amount <= 0:false\n")
}

func TestSimpleUI_CancelledContext(t *testing.T) {
	cmd, out := newTestCmd()
	ui := NewSimpleUI(cmd)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, ui.Start(ctx), context.Canceled)
	ui.DisplayRunInfo(ctx, 1, 1)
	ui.DisplayReport(ctx, sampleReport())
	ui.DisplayClasses(ctx, nil)

	assert.Empty(t, out.String())
}

func TestSimpleUI_Rendered(t *testing.T) {
	cmd, out := newTestCmd()
	ui := NewSimpleUI(cmd)
	ctx := context.Background()

	ui.DisplayRendered(ctx, "account_synth_test.go", 3, "")
	ui.DisplayRendered(ctx, "journal_synth_test.go", 1, "--- a\n+++ b\n")

	assert.Equal(t,
		"account_synth_test.go: 3 test(s)\njournal_synth_test.go is out of date:\n--- a\n+++ b\n",
		out.String())
}

func TestSimpleUI_Classes(t *testing.T) {
	cmd, out := newTestCmd()
	ui := NewSimpleUI(cmd)

	ui.DisplayClasses(context.Background(), []m.ClassInfo{{
		Name:         "targets.Account",
		Constructors: []string{"NewAccount"},
		Methods:      []string{"Deposit", "Withdraw"},
		Fields:       []string{"Balance", "Owner"},
		Goals:        map[string]int{"method": 5, "branch": 9},
	}})

	got := out.String()
	assert.Contains(t, got, "targets.Account")
	assert.Contains(t, got, "Deposit, Withdraw")
	assert.Contains(t, got, "branch=9 method=5")
	assert.Contains(t, got, "TOTAL CLASSES 1")
}

func TestBuildCriterionStats(t *testing.T) {
	stats := buildCriterionStats(sampleReport().Goals)

	assert.Equal(t, []criterionStat{
		{criterion: "branch", covered: 1, total: 2},
		{criterion: "line", covered: 1, total: 1},
	}, stats)
	assert.Equal(t, "-", formatPercent(0, 0))
}

func TestProgressModel(t *testing.T) {
	pm := newProgressModel(ModeRun)
	report := sampleReport()

	var model = pm

	for _, msg := range []any{
		runInfoMsg{suites: 1, workers: 4},
		suiteStartedMsg{suite: report.Suite, tests: 2},
		testResultMsg{suite: report.Suite, test: report.Tests[0]},
		testResultMsg{suite: report.Suite, test: report.Tests[1]},
	} {
		next, _ := model.Update(msg)
		model = next.(progressModel)
	}

	assert.Equal(t, 2, model.expected)
	assert.Equal(t, 2, model.finished)
	assert.Equal(t, 1, model.passed)
	assert.Len(t, model.recent, 2)

	view := model.View()
	assert.Contains(t, view, "1 suite(s), 4 worker(s)")
	assert.Contains(t, view, "TestDeposit")
	assert.Contains(t, view, "2/2 tests · 1 passed")

	next, cmd := model.Update(quitMsg{})
	assert.True(t, next.(progressModel).done)
	assert.NotNil(t, cmd)

	assert.Empty(t, newProgressModel(ModeList).View())
}

func TestProgressModel_RecentIsBounded(t *testing.T) {
	model := newProgressModel(ModeRun)

	for i := 0; i < maxRecentTests+5; i++ {
		next, _ := model.Update(testResultMsg{test: m.TestReport{Name: "TestX"}})
		model = next.(progressModel)
	}

	assert.Len(t, model.recent, maxRecentTests)
	assert.Equal(t, maxRecentTests+5, model.finished)
}

func TestTUI_PrintsTablesOnClose(t *testing.T) {
	out := &bytes.Buffer{}
	ui := NewTUI(out)
	ctx := context.Background()

	ui.DisplayReport(ctx, sampleReport())
	ui.DisplayRendered(ctx, "account_synth_test.go", 2, "")
	assert.Empty(t, out.String())

	ui.Close(ctx)

	got := out.String()
	assert.Contains(t, got, "FITNESS 1.250")
	assert.Contains(t, got, "account_synth_test.go: 2 test(s)")
	assert.Equal(t, 1, strings.Count(got, "FITNESS 1.250"))
}

func TestNewUI(t *testing.T) {
	cmd, _ := newTestCmd()

	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
	assert.IsType(t, &TUI{}, NewUI(cmd, true))
	assert.False(t, IsTTY(&bytes.Buffer{}))
}
