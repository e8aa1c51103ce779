package classpath

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"gooze.dev/pkg/testsynth/pkg/coverage"
)

// Loader resolves classes by name. Classes accumulate coverage into the
// loader's tracker.
type Loader interface {
	LoadClass(name string) (*Class, error)
	Tracker() *coverage.Tracker
	ID() string
	// Reload drops every loaded class and retires the tracker. Classes
	// loaded afterwards start from fresh static state; registered goals
	// carry over.
	Reload()
}

// PackageLoader is a Loader that also resolves every class of a package.
type PackageLoader interface {
	Loader
	LoadPackage(importPath string) ([]*Class, error)
}

// InstrumentingLoader instantiates registered definitions with probes bound
// to its own tracker. Each loader has independent class state (static
// initializers, static fields bound by Instrument) and coverage.
//
// Workers executing tests concurrently should each own a loader.
type InstrumentingLoader struct {
	id       string
	registry *Registry
	tracker  *coverage.Tracker

	mu      sync.Mutex
	classes map[string]*Class
}

// NewInstrumentingLoader returns a loader over registry, or over the
// process-wide registry when registry is nil.
func NewInstrumentingLoader(registry *Registry) *InstrumentingLoader {
	if registry == nil {
		registry = defaultRegistry
	}

	return &InstrumentingLoader{
		id:       uuid.NewString(),
		registry: registry,
		tracker:  coverage.NewTracker(),
		classes:  map[string]*Class{},
	}
}

// ID identifies the loader in logs.
func (l *InstrumentingLoader) ID() string {
	return l.id
}

// Tracker returns the coverage tracker fed by classes of this loader.
func (l *InstrumentingLoader) Tracker() *coverage.Tracker {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.tracker
}

// Reload discards the loaded classes. Code still running inside them keeps
// its class state but reports into the retired tracker.
func (l *InstrumentingLoader) Reload() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tracker = l.tracker.Retire()
	l.classes = map[string]*Class{}
	slog.Debug("reloaded classes", "loader", l.id)
}

// LoadClass resolves name ("import/path.Type" or "pkgname.Type"), defining
// the class on first use. The static initializer does not run here.
func (l *InstrumentingLoader) LoadClass(name string) (*Class, error) {
	def, ok := l.registry.Lookup(name)
	if !ok {
		slog.Debug("class not found", "loader", l.id, "class", name)
		return nil, &ClassLoadError{Class: name, Err: fmt.Errorf("not registered")}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if class, loaded := l.classes[def.FullName()]; loaded {
		return class, nil
	}

	members, err := instrument(def, l.tracker.Probes(def.QualifiedName()))
	if err != nil {
		slog.Error("Failed to instrument class", "loader", l.id, "class", def.FullName(), "error", err)
		return nil, &ClassLoadError{Class: name, Err: err}
	}

	class, err := defineClass(l, def, members)
	if err != nil {
		slog.Error("Failed to define class", "loader", l.id, "class", def.FullName(), "error", err)
		return nil, &ClassLoadError{Class: name, Err: err}
	}

	l.classes[def.FullName()] = class
	slog.Debug("loaded class", "loader", l.id, "class", def.FullName())

	return class, nil
}

func instrument(def Definition, probes *coverage.Probes) (members Members, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("instrumentation panicked: %v", r)
		}
	}()

	return def.Instrument(probes), nil
}

// LoadPackage loads every registered class of the package at importPath.
func (l *InstrumentingLoader) LoadPackage(importPath string) ([]*Class, error) {
	defs := l.registry.Package(importPath)
	if len(defs) == 0 {
		return nil, &ClassLoadError{Class: importPath, Err: fmt.Errorf("no classes registered in package")}
	}

	classes := make([]*Class, 0, len(defs))

	for _, def := range defs {
		class, err := l.LoadClass(def.FullName())
		if err != nil {
			return nil, err
		}

		classes = append(classes, class)
	}

	return classes, nil
}
