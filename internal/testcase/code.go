package testcase

import (
	"fmt"
	"go/format"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// NamedTest is a test case with the name of its rendered test function.
type NamedTest struct {
	Name string
	Case *TestCase
}

// RenderOptions control the rendered test file.
type RenderOptions struct {
	// Package is the package clause of the file.
	Package string
	// ReplaceEnvironment makes every test install the mock environment.
	ReplaceEnvironment bool
}

// Render produces a gofmt-ed Go test file running each test case.
func Render(tests []NamedTest, opts RenderOptions) ([]byte, error) {
	if opts.Package == "" {
		return nil, fmt.Errorf("render: package name is required")
	}

	imports := map[string]string{"testing": "testing"}

	var body strings.Builder

	for _, test := range tests {
		names := NewNames()
		code := test.Case.CodeWith(names)

		if opts.ReplaceEnvironment {
			names.Import(mockImport, "mock")
			code = "mock.UseInTest(t)\n\n" + code
		}

		maps.Copy(imports, names.Imports())

		fmt.Fprintf(&body, "\nfunc %s(t *testing.T) {\n%s\n}\n", test.Name, code)
	}

	var src strings.Builder

	src.WriteString("// Code generated by testsynth. DO NOT EDIT.\n\n")
	fmt.Fprintf(&src, "package %s\n\nimport (\n", opts.Package)

	for _, importPath := range slices.Sorted(maps.Keys(imports)) {
		if name := imports[importPath]; name != path.Base(importPath) {
			fmt.Fprintf(&src, "\t%s %q\n", name, importPath)
		} else {
			fmt.Fprintf(&src, "\t%q\n", importPath)
		}
	}

	src.WriteString(")\n")
	src.WriteString(body.String())

	formatted, err := format.Source([]byte(src.String()))
	if err != nil {
		return nil, fmt.Errorf("format rendered tests: %w", err)
	}

	return formatted, nil
}

// Diff returns a unified diff between two renderings, or "" when they match.
func Diff(fromName, from, toName, to string) (string, error) {
	if from == to {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	})
}
