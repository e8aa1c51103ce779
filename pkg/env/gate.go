// Package env is the entry point code under test uses to reach its
// environment: dialogs, wall-clock time, sleeps, the file system, random
// numbers, environment variables and standard output. Each API is served by
// the substitute installed in the process-wide Gate, or by the real
// implementation when nothing is installed.
package env

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// API identifies one environment-touching API.
type API string

// Substitutable APIs and the interface their substitutes implement.
const (
	DialogAPI     API = "gui.dialog"    // Dialogs
	ClockAPI      API = "time.clock"    // Clock
	FileSystemAPI API = "io.filesystem" // FileSystem
	RandomAPI     API = "math.random"   // Random
	EnvironAPI    API = "os.environ"    // Environ
)

// Registry maps APIs to substitute implementations.
type Registry map[API]any

// ErrSubstitution is matched by every SubstitutionError.
var ErrSubstitution = errors.New("substitution failed")

// SubstitutionError reports that the gate could not install or restore a
// registry.
type SubstitutionError struct {
	Op  string
	Err error
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("substitution gate %s: %v", e.Op, e.Err)
}

func (e *SubstitutionError) Unwrap() error {
	return e.Err
}

// Is matches ErrSubstitution.
func (e *SubstitutionError) Is(target error) bool {
	return target == ErrSubstitution
}

// Gate holds the active substitute registry. Only one owner holds it at a
// time; installs by the same owner nest, installs by other owners wait.
type Gate struct {
	sem chan struct{}

	mu     sync.RWMutex
	owner  string
	depth  int
	active Registry
	stack  []Registry
}

// NewGate returns an idle gate.
func NewGate() *Gate {
	return &Gate{sem: make(chan struct{}, 1)}
}

var defaultGate = NewGate()

// Default returns the process-wide gate consulted by the env functions.
func Default() *Gate {
	return defaultGate
}

// Lease is the handle returned by Install. Each lease is restored exactly
// once, innermost first.
type Lease struct {
	gate     *Gate
	owner    string
	depth    int
	restored bool
}

// Install activates registry for owner. A nested install by the current
// owner pushes the registry; an install by another owner blocks until the
// gate is released or ctx ends.
func (g *Gate) Install(ctx context.Context, owner string, registry Registry) (*Lease, error) {
	if owner == "" {
		return nil, &SubstitutionError{Op: "install", Err: errors.New("owner is required")}
	}

	if err := validateRegistry(registry); err != nil {
		return nil, &SubstitutionError{Op: "install", Err: err}
	}

	g.mu.Lock()
	if g.depth > 0 && g.owner == owner {
		lease := g.push(owner, registry)
		g.mu.Unlock()

		return lease, nil
	}
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &SubstitutionError{Op: "install", Err: err}
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		slog.Warn("substitution gate install cancelled", "owner", owner, "error", ctx.Err())
		return nil, &SubstitutionError{Op: "install", Err: ctx.Err()}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.owner = owner

	return g.push(owner, registry), nil
}

func (g *Gate) push(owner string, registry Registry) *Lease {
	g.stack = append(g.stack, g.active)
	g.active = registry
	g.depth++
	slog.Debug("substitution gate installed", "owner", owner, "depth", g.depth)

	return &Lease{gate: g, owner: owner, depth: g.depth}
}

// Restore reinstates the registry that was active before the matching
// Install. Restoring twice or out of order is an error.
func (l *Lease) Restore() error {
	g := l.gate

	g.mu.Lock()
	defer g.mu.Unlock()

	if l.restored {
		return &SubstitutionError{Op: "restore", Err: errors.New("lease already restored")}
	}

	if g.owner != l.owner || g.depth != l.depth {
		return &SubstitutionError{
			Op:  "restore",
			Err: fmt.Errorf("lease at depth %d restored while gate is at depth %d", l.depth, g.depth),
		}
	}

	l.restored = true
	last := len(g.stack) - 1
	g.active = g.stack[last]
	g.stack = g.stack[:last]
	g.depth--
	slog.Debug("substitution gate restored", "owner", l.owner, "depth", g.depth)

	if g.depth == 0 {
		g.owner = ""
		<-g.sem
	}

	return nil
}

// Installed reports whether any registry is active.
func (g *Gate) Installed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.depth > 0
}

// Owner returns the current owner, or "" when idle.
func (g *Gate) Owner() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.owner
}

func lookup[T any](g *Gate, api API) (T, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var zero T

	if g.active == nil {
		return zero, false
	}

	substitute, ok := g.active[api].(T)
	if !ok {
		return zero, false
	}

	return substitute, true
}

func validateRegistry(registry Registry) error {
	for api, substitute := range registry {
		var ok bool

		switch api {
		case DialogAPI:
			_, ok = substitute.(Dialogs)
		case ClockAPI:
			_, ok = substitute.(Clock)
		case FileSystemAPI:
			_, ok = substitute.(FileSystem)
		case RandomAPI:
			_, ok = substitute.(Random)
		case EnvironAPI:
			_, ok = substitute.(Environ)
		default:
			return fmt.Errorf("unknown API %q", api)
		}

		if !ok {
			return fmt.Errorf("substitute %T does not implement %s", substitute, api)
		}
	}

	return nil
}
