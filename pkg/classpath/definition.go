// Package classpath models loadable classes: Go types registered together
// with their constructors, methods and fields, and instantiated once per
// instrumenting loader with fresh coverage probes.
package classpath

import (
	"fmt"
	"path"
	"reflect"
	"slices"
	"sync"

	"gooze.dev/pkg/testsynth/pkg/coverage"
)

// Definition describes a class that code under test registers.
type Definition struct {
	// Package is the import path of the package declaring the type.
	Package string
	// Name is the type name.
	Name string
	// Instrument is called once per loader. It registers the probes of the
	// class and returns member functions bound to those probes.
	Instrument func(p *coverage.Probes) Members
}

// PackageName returns the package identifier used in rendered source.
func (d Definition) PackageName() string {
	return path.Base(d.Package)
}

// QualifiedName returns "pkgname.Type".
func (d Definition) QualifiedName() string {
	return d.PackageName() + "." + d.Name
}

// FullName returns "import/path.Type".
func (d Definition) FullName() string {
	return d.Package + "." + d.Name
}

// Members lists the members of one loaded class.
//
// Constructors and static methods are plain functions. Methods take the
// receiver as their first parameter (method expressions such as (*T).Do fit).
// Any function may take a context.Context right after the receiver; it then
// receives the statement context. A trailing error result is treated as a
// thrown exception. StaticFields holds pointers to package variables.
// Exported struct fields of Type are exposed as instance fields.
type Members struct {
	Type          reflect.Type
	Init          func()
	Constructors  map[string]any
	Methods       map[string]any
	StaticMethods map[string]any
	StaticFields  map[string]any
}

// Registry holds class definitions by full and qualified name.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	names []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by Register.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a definition to the process-wide registry. It panics on
// duplicates, like database/sql.Register.
func Register(def Definition) {
	if err := defaultRegistry.Register(def); err != nil {
		panic(err)
	}
}

// Register adds a definition.
func (r *Registry) Register(def Definition) error {
	if def.Package == "" || def.Name == "" {
		return fmt.Errorf("class definition needs a package and a name")
	}

	if def.Instrument == nil {
		return fmt.Errorf("class %s has no Instrument function", def.FullName())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.defs[def.FullName()]; dup {
		return fmt.Errorf("class %s registered twice", def.FullName())
	}

	r.defs[def.FullName()] = def
	if _, taken := r.defs[def.QualifiedName()]; !taken {
		r.defs[def.QualifiedName()] = def
	}

	r.names = append(r.names, def.FullName())
	slices.Sort(r.names)

	return nil
}

// Lookup finds a definition by full or qualified name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]

	return def, ok
}

// Names returns the full names of every registered class, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.names)
}

// Package returns the definitions declared in the package at importPath,
// sorted by name.
func (r *Registry) Package(importPath string) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []Definition

	for _, name := range r.names {
		if def := r.defs[name]; def.Package == importPath {
			defs = append(defs, def)
		}
	}

	return defs
}
