package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"gooze.dev/pkg/testsynth/internal/controller"
	m "gooze.dev/pkg/testsynth/internal/model"
	"gooze.dev/pkg/testsynth/internal/testcase"
)

const renderedSuffix = "_synth_test.go"

// ErrOutOfDate is returned by a render check when a rendered file differs.
var ErrOutOfDate = errors.New("rendered tests are out of date")

// ErrVerifyFailed is returned when rendered tests fail under `go test`.
var ErrVerifyFailed = errors.New("rendered tests failed")

// Render writes each discovered suite as a Go test file, or checks that the
// files on disk match.
func (w *workflow) Render(ctx context.Context, args RenderArgs) error {
	paths, err := w.suites.Discover(args.Paths)
	if err != nil {
		slog.Error("Failed to discover suites", "paths", args.Paths, "error", err)
		return err
	}

	if len(paths) == 0 {
		return ErrNoSuites
	}

	if err := w.ui.Start(ctx, controller.WithRenderMode()); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	stale := 0

	for _, path := range paths {
		upToDate, err := w.renderSuite(ctx, path, args)
		if err != nil {
			return err
		}

		if !upToDate {
			stale++
		}
	}

	if stale > 0 {
		return fmt.Errorf("%w: %d file(s)", ErrOutOfDate, stale)
	}

	return nil
}

func (w *workflow) renderSuite(ctx context.Context, path m.Path, args RenderArgs) (bool, error) {
	suite, err := w.suites.Load(path, w.newLoader())
	if err != nil {
		slog.Error("Failed to load suite", "path", path, "error", err)
		return false, err
	}

	pkg := args.Package
	if pkg == "" {
		pkg = suite.Package
	}

	if pkg == "" {
		return false, fmt.Errorf("suite %s: package name is required", path)
	}

	src, err := testcase.Render(suite.Tests, testcase.RenderOptions{
		Package:            pkg,
		ReplaceEnvironment: args.ReplaceEnvironment,
	})
	if err != nil {
		return false, fmt.Errorf("suite %s: %w", path, err)
	}

	target := renderTarget(path, suite.Format, args.Output)

	if args.Check {
		existing, err := w.suites.ReadFile(target)
		if err != nil {
			existing = nil
		}

		diff, err := testcase.Diff(string(target), string(existing), "rendered", string(src))
		if err != nil {
			return false, err
		}

		w.ui.DisplayRendered(ctx, target, len(suite.Tests), diff)

		return diff == "", nil
	}

	if err := w.suites.WriteFile(target, src); err != nil {
		return false, err
	}

	w.ui.DisplayRendered(ctx, target, len(suite.Tests), "")
	slog.Info("Rendered suite", "suite", path, "target", target, "tests", len(suite.Tests))

	if args.Verify {
		names := make([]string, 0, len(suite.Tests))
		for _, test := range suite.Tests {
			names = append(names, test.Name)
		}

		output, err := w.runner.RunGoTest(ctx, filepath.Dir(string(target)), names)
		if err != nil {
			slog.Error("Rendered tests failed", "target", target, "error", err, "output", output)
			return false, fmt.Errorf("%w: %s: %w\n%s", ErrVerifyFailed, target, err, output)
		}
	}

	return true, nil
}

// renderTarget names the file rendered from a suite: Go suites are rendered
// in place, YAML suites become <name>_synth_test.go.
func renderTarget(path m.Path, format m.SuiteFormat, output m.Path) m.Path {
	dir, base := filepath.Split(string(path))

	if format != m.FormatGo {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + renderedSuffix
	}

	if output != "" {
		dir = string(output)
	}

	return m.Path(filepath.Join(dir, base))
}
