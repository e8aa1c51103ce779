package adapter

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DefaultTestRunTimeout bounds a `go test` run over a rendered package.
const DefaultTestRunTimeout = 2 * time.Minute

// TestRunnerAdapter runs rendered tests with the Go toolchain.
type TestRunnerAdapter interface {
	// RunGoTest runs the named tests of the package in dir and returns the
	// combined output.
	RunGoTest(ctx context.Context, dir string, tests []string) (output string, err error)
}

// LocalTestRunnerAdapter runs `go test` through os/exec.
type LocalTestRunnerAdapter struct {
	timeout time.Duration
}

// NewLocalTestRunnerAdapter returns a runner using DefaultTestRunTimeout.
func NewLocalTestRunnerAdapter() *LocalTestRunnerAdapter {
	return &LocalTestRunnerAdapter{timeout: DefaultTestRunTimeout}
}

// RunGoTest implements TestRunnerAdapter.
func (a *LocalTestRunnerAdapter) RunGoTest(ctx context.Context, dir string, tests []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", goTestArgs(tests)...)
	cmd.Dir = dir

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()

	return output.String(), err
}

func goTestArgs(tests []string) []string {
	args := []string{"test", "-count=1"}

	if len(tests) > 0 {
		quoted := make([]string, len(tests))
		for i, name := range tests {
			quoted[i] = regexp.QuoteMeta(name)
		}

		args = append(args, "-run", "^("+strings.Join(quoted, "|")+")$")
	}

	return append(args, ".")
}
