// Package mock provides deterministic, observationally closed substitutes
// for every API of package env. A registry built by NewRegistry starts from
// the same state every time, so executions under it are reproducible.
package mock

import (
	"context"
	"testing"

	"gooze.dev/pkg/testsynth/pkg/env"
)

// Options tune the substitutes of a registry.
type Options struct {
	Seed          uint64
	ConfirmAnswer bool
	Environ       map[string]string
}

// Option mutates Options.
type Option func(*Options)

// WithSeed sets the seed of the random substitute.
func WithSeed(seed uint64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithConfirmAnswer sets the answer of confirm dialogs.
func WithConfirmAnswer(answer bool) Option {
	return func(o *Options) { o.ConfirmAnswer = answer }
}

// WithEnviron sets the variables visible through env.Getenv.
func WithEnviron(vars map[string]string) Option {
	return func(o *Options) { o.Environ = vars }
}

// DefaultSeed seeds the random substitute unless overridden.
const DefaultSeed uint64 = 42

// NewRegistry returns a fresh registry with a substitute for every API.
func NewRegistry(options ...Option) env.Registry {
	opts := Options{Seed: DefaultSeed}
	for _, option := range options {
		option(&opts)
	}

	return env.Registry{
		env.DialogAPI:     NewDialogs(opts.ConfirmAnswer),
		env.ClockAPI:      NewClock(),
		env.FileSystemAPI: NewFileSystem(),
		env.RandomAPI:     NewRandom(opts.Seed),
		env.EnvironAPI:    NewEnviron(opts.Environ),
	}
}

// UseInTest installs a fresh registry for the duration of a test. Rendered
// tests call it when environment replacement is enabled.
func UseInTest(tb testing.TB, options ...Option) {
	tb.Helper()

	lease, err := env.Default().Install(context.Background(), tb.Name(), NewRegistry(options...))
	if err != nil {
		tb.Fatalf("install environment substitutes: %v", err)
	}

	tb.Cleanup(func() {
		if err := lease.Restore(); err != nil {
			tb.Errorf("restore environment substitutes: %v", err)
		}
	})
}
