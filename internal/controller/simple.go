package controller

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	m "gooze.dev/pkg/testsynth/internal/model"
)

// SimpleUI implements UI by printing to the command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (s *SimpleUI) Close(context.Context) {}

// DisplayRunInfo shows how many suites run on how many workers.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, suites int, workers int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Running %d suite(s) with %d worker(s)\n", suites, workers)
}

// DisplaySuiteStarted announces a suite.
func (s *SimpleUI) DisplaySuiteStarted(ctx context.Context, suite m.Path, tests int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Suite %s: %d test(s)\n", suite, tests)
}

// DisplayTestResult prints a one-line summary of a test.
func (s *SimpleUI) DisplayTestResult(ctx context.Context, _ m.Path, test m.TestReport) {
	if ctx.Err() != nil {
		return
	}

	s.printf("  %s %s (%d statements, %s)\n", testMark(test), test.Name, len(test.Outcomes), test.Duration)
}

// DisplayReport prints the statement and coverage tables of a suite.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) {
	if ctx.Err() != nil {
		return
	}

	s.printf("\n%s\n", report.Suite)
	s.printf("%s\n", renderTestTable(report))
	s.printf("%s", renderCoverageTable(report))

	if uncovered := renderUncovered(report); uncovered != "" {
		s.printf("\n%s", uncovered)
	}
}

// DisplayRendered reports a written test file, or the diff of a check.
func (s *SimpleUI) DisplayRendered(ctx context.Context, path m.Path, tests int, diff string) {
	if ctx.Err() != nil {
		return
	}

	if diff != "" {
		s.printf("%s is out of date:\n%s", path, diff)
		return
	}

	s.printf("%s: %d test(s)\n", path, tests)
}

// DisplayClasses prints the registered classes.
func (s *SimpleUI) DisplayClasses(ctx context.Context, classes []m.ClassInfo) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s", renderClassTable(classes))
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

// testMark is ✓ when every statement succeeded and every assertion held.
func testMark(test m.TestReport) string {
	if test.Count("success") == len(test.Outcomes) && test.FailedAssertions() == 0 {
		return "✓"
	}

	return "✗"
}
