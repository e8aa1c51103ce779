package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"gooze.dev/pkg/testsynth/internal/controller"
	m "gooze.dev/pkg/testsynth/internal/model"
)

const shardDirPrefix = "shard_"

// ErrNoReports is returned when a reports directory holds no reports.
var ErrNoReports = errors.New("no reports found")

// View displays previously saved reports.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	dir := shardReportsDir(args.Reports, args.ShardIndex, args.TotalShardCount)

	reports, err := w.reports.LoadReports(dir)
	if err != nil {
		slog.Error("Failed to load reports", "dir", dir, "error", err)
		return err
	}

	if len(reports) == 0 {
		return fmt.Errorf("%w in %s", ErrNoReports, dir)
	}

	if err := w.ui.Start(ctx, controller.WithViewMode()); err != nil {
		return err
	}
	defer w.ui.Close(ctx)

	for _, report := range reports {
		w.ui.DisplayReport(ctx, report)
	}

	return nil
}

// Merge collects the reports of every shard_* subdirectory into the
// reports directory.
func (w *workflow) Merge(_ context.Context, args MergeArgs) error {
	dirs, err := afero.Glob(w.fs, filepath.Join(string(args.Reports), shardDirPrefix+"*"))
	if err != nil {
		return fmt.Errorf("failed to list shards in %s: %w", args.Reports, err)
	}

	var (
		merged []m.Report
		shards []string
	)

	for _, dir := range dirs {
		if ok, err := afero.IsDir(w.fs, dir); err != nil || !ok {
			continue
		}

		shards = append(shards, dir)

		reports, err := w.reports.LoadReports(m.Path(dir))
		if err != nil {
			slog.Error("Failed to load shard reports", "dir", dir, "error", err)
			return err
		}

		merged = append(merged, reports...)
	}

	if len(merged) == 0 {
		return fmt.Errorf("%w in %s", ErrNoReports, filepath.Join(string(args.Reports), shardDirPrefix+"*"))
	}

	slog.Info("Merging shard reports", "shards", len(shards), "reports", len(merged))

	if err := w.reports.SaveReports(args.Reports, merged); err != nil {
		return err
	}

	if !args.RemoveShards {
		return nil
	}

	for _, dir := range shards {
		if err := w.fs.RemoveAll(dir); err != nil {
			slog.Error("Failed to remove shard reports", "dir", dir, "error", err)
			return fmt.Errorf("failed to remove shard %s: %w", dir, err)
		}
	}

	return nil
}

// shardPaths keeps the suites assigned to one shard. Paths are discovered
// sorted, so every shard sees the same assignment.
func shardPaths(paths []m.Path, index, total int) []m.Path {
	if total <= 1 {
		return paths
	}

	var out []m.Path

	for i, path := range paths {
		if i%total == index {
			out = append(out, path)
		}
	}

	return out
}

func shardReportsDir(reports m.Path, index, total int) m.Path {
	if total <= 1 {
		return reports
	}

	return m.Path(filepath.Join(string(reports), fmt.Sprintf("%s%d", shardDirPrefix, index)))
}
