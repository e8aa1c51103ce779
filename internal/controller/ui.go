// Package controller renders progress and results of testsynth commands.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "gooze.dev/pkg/testsynth/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeRun StartMode = iota
	ModeRender
	ModeList
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// Mode returns the selected mode.
func (c *StartConfig) Mode() StartMode { return c.mode }

// WithRunMode sets the UI to suite execution mode.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithRenderMode sets the UI to rendering mode.
func WithRenderMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRender
	}
}

// WithListMode sets the UI to class listing mode.
func WithListMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeList
	}
}

// WithViewMode sets the UI to saved report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// UI displays the progress and results of a command.
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	DisplayRunInfo(ctx context.Context, suites int, workers int)
	DisplaySuiteStarted(ctx context.Context, suite m.Path, tests int)
	DisplayTestResult(ctx context.Context, suite m.Path, test m.TestReport)
	DisplayReport(ctx context.Context, report m.Report)
	DisplayRendered(ctx context.Context, path m.Path, tests int, diff string)
	DisplayClasses(ctx context.Context, classes []m.ClassInfo)
}

// NewUI returns the interactive UI on terminals and the plain one otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
