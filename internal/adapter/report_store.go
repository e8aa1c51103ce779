package adapter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/afero"

	m "gooze.dev/pkg/testsynth/internal/model"
)

const reportFileSuffix = ".report.json"

// ReportStore persists run reports as JSON documents in a directory.
type ReportStore interface {
	SaveReports(dir m.Path, reports []m.Report) error
	LoadReports(dir m.Path) ([]m.Report, error)
}

// LocalReportStore stores one file per report, named after the suite.
type LocalReportStore struct {
	fs afero.Fs
}

// NewReportStore returns a report store over fs.
func NewReportStore(fs afero.Fs) *LocalReportStore {
	return &LocalReportStore{fs: fs}
}

// SaveReports implements ReportStore.
func (s *LocalReportStore) SaveReports(dir m.Path, reports []m.Report) error {
	if err := s.fs.MkdirAll(string(dir), 0o750); err != nil {
		slog.Error("failed to create reports directory", "path", dir, "error", err)
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	for _, report := range reports {
		data, err := json.Marshal(report, jsontext.WithIndent("  "))
		if err != nil {
			slog.Error("failed to encode report", "suite", report.Suite, "error", err)
			return fmt.Errorf("failed to encode report for %s: %w", report.Suite, err)
		}

		path := filepath.Join(string(dir), reportFileName(report.Suite))
		if err := afero.WriteFile(s.fs, path, data, 0o600); err != nil {
			slog.Error("failed to write report", "path", path, "error", err)
			return fmt.Errorf("failed to write report %s: %w", path, err)
		}

		slog.Debug("saved report", "path", path, "tests", len(report.Tests))
	}

	return nil
}

// LoadReports implements ReportStore. Reports are returned in file name order.
func (s *LocalReportStore) LoadReports(dir m.Path) ([]m.Report, error) {
	entries, err := afero.ReadDir(s.fs, string(dir))
	if err != nil {
		slog.Error("failed to read reports directory", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var reports []m.Report

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), reportFileSuffix) {
			continue
		}

		path := filepath.Join(string(dir), entry.Name())

		data, err := afero.ReadFile(s.fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read report %s: %w", path, err)
		}

		var report m.Report
		if err := json.Unmarshal(data, &report); err != nil {
			slog.Error("failed to decode report", "path", path, "error", err)
			return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
		}

		reports = append(reports, report)
	}

	return reports, nil
}

// reportFileName flattens a suite path into a single file name. Each parent
// directory segment becomes a single underscore.
func reportFileName(suite m.Path) string {
	name := filepath.ToSlash(filepath.Clean(string(suite)))
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	name = strings.NewReplacer("../", "_", "..", "_", "/", "__").Replace(name)

	return name + reportFileSuffix
}
