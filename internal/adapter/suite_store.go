// Package adapter contains the infrastructure adapters of the testsynth CLI:
// suite and report storage, and the Go test runner.
package adapter

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/token"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	m "gooze.dev/pkg/testsynth/internal/model"
	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
)

const generatedHeader = "// Code generated by testsynth."

// Suite is a suite file resolved against a loader.
type Suite struct {
	Path    m.Path
	Format  m.SuiteFormat
	Package string
	Tests   []testcase.NamedTest
}

// SuiteStore finds, loads and writes suite files.
type SuiteStore interface {
	// Discover expands paths into suite files. A path ending in "/..." is
	// walked recursively; a directory contributes its own suite files.
	Discover(paths []m.Path) ([]m.Path, error)
	// Load decodes the suite at path, resolving members through loader.
	Load(path m.Path, loader classpath.PackageLoader) (*Suite, error)
	ReadFile(path m.Path) ([]byte, error)
	WriteFile(path m.Path, data []byte) error
}

// LocalSuiteStore is a SuiteStore over an afero filesystem.
type LocalSuiteStore struct {
	fs afero.Fs
}

// NewSuiteStore returns a suite store over fs.
func NewSuiteStore(fs afero.Fs) *LocalSuiteStore {
	return &LocalSuiteStore{fs: fs}
}

// Discover implements SuiteStore.
func (s *LocalSuiteStore) Discover(paths []m.Path) ([]m.Path, error) {
	if len(paths) == 0 {
		paths = []m.Path{"."}
	}

	var found []m.Path

	for _, p := range paths {
		root, recursive := strings.CutSuffix(string(p), "/...")
		if root == "" || root == "..." {
			root, recursive = ".", true
		}

		info, err := s.fs.Stat(root)
		if err != nil {
			slog.Error("failed to stat suite path", "path", root, "error", err)
			return nil, fmt.Errorf("suite path %s: %w", root, err)
		}

		if !info.IsDir() {
			if _, ok := m.FormatOf(m.Path(root)); !ok {
				return nil, fmt.Errorf("suite path %s: unsupported file type", root)
			}

			found = append(found, m.Path(root))

			continue
		}

		err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if info.IsDir() {
				if path != root && (!recursive || strings.HasPrefix(info.Name(), ".")) {
					return filepath.SkipDir
				}

				return nil
			}

			if s.isSuiteFile(m.Path(path)) {
				found = append(found, m.Path(path))
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	slices.Sort(found)

	return slices.Compact(found), nil
}

// isSuiteFile accepts YAML files with a tests list and generated test files.
func (s *LocalSuiteStore) isSuiteFile(path m.Path) bool {
	format, ok := m.FormatOf(path)
	if !ok {
		return false
	}

	data, err := afero.ReadFile(s.fs, string(path))
	if err != nil {
		return false
	}

	if format == m.FormatGo {
		return strings.HasSuffix(string(path), "_test.go") && bytes.HasPrefix(data, []byte(generatedHeader))
	}

	var probe struct {
		Tests []yaml.Node `yaml:"tests"`
	}

	return yaml.Unmarshal(data, &probe) == nil && len(probe.Tests) > 0
}

// Load implements SuiteStore.
func (s *LocalSuiteStore) Load(path m.Path, loader classpath.PackageLoader) (*Suite, error) {
	format, ok := m.FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("suite %s: unsupported file type", path)
	}

	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}

	suite := &Suite{Path: path, Format: format}

	switch format {
	case m.FormatYAML:
		var spec m.SuiteSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			slog.Error("failed to decode suite", "path", path, "error", err)
			return nil, fmt.Errorf("failed to decode suite %s: %w", path, err)
		}

		tests, err := BuildSuite(spec, loader)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", path, err)
		}

		suite.Package = spec.Package
		suite.Tests = tests
	case m.FormatGo:
		pkg, err := packageName(data)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", path, err)
		}

		tests, err := testcase.Parse(data, loader)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", path, err)
		}

		suite.Package = pkg
		suite.Tests = tests
	}

	slog.Debug("loaded suite", "path", path, "format", format, "tests", len(suite.Tests))

	return suite, nil
}

// ReadFile implements SuiteStore.
func (s *LocalSuiteStore) ReadFile(path m.Path) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, string(path))
	if err != nil {
		slog.Error("failed to read file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// WriteFile implements SuiteStore, creating parent directories as needed.
func (s *LocalSuiteStore) WriteFile(path m.Path, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err := afero.WriteFile(s.fs, string(path), data, 0o600); err != nil {
		slog.Error("failed to write file", "path", path, "error", err)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

func packageName(src []byte) (string, error) {
	file, err := parser.ParseFile(token.NewFileSet(), "", src, parser.PackageClauseOnly)
	if err != nil {
		return "", fmt.Errorf("failed to read package clause: %w", err)
	}

	return file.Name.Name, nil
}
