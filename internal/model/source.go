// Package model defines the plain data exchanged between the CLI layers.
package model

import (
	"path/filepath"
	"strings"
)

// Path represents a file system path.
type Path string

// SuiteFormat is the on-disk encoding of a suite.
type SuiteFormat string

const (
	// FormatYAML is a declarative statement list.
	FormatYAML SuiteFormat = "yaml"
	// FormatGo is a test file previously rendered by testsynth.
	FormatGo SuiteFormat = "go"
)

// FormatOf infers the suite format from the file extension.
func FormatOf(path Path) (SuiteFormat, bool) {
	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".go":
		return FormatGo, true
	}

	return "", false
}
