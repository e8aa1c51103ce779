package mock

import (
	"maps"
	"math/rand/v2"
	"sync"

	"github.com/spf13/afero"
)

// FileSystem is an in-memory file system.
type FileSystem struct {
	fs afero.Fs
}

// NewFileSystem returns an empty in-memory file system.
func NewFileSystem() *FileSystem {
	return &FileSystem{fs: afero.NewMemMapFs()}
}

// Fs returns the in-memory file system.
func (f *FileSystem) Fs() afero.Fs {
	return f.fs
}

// Random is a seeded random source.
type Random struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandom returns a source whose sequence depends only on seed.
func NewRandom(seed uint64) *Random {
	return &Random{rnd: rand.New(rand.NewPCG(seed, seed))}
}

// Intn returns a number in [0, n).
func (r *Random) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.IntN(n)
}

// Float64 returns a number in [0, 1).
func (r *Random) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.Float64()
}

// Environ is a fixed set of environment variables.
type Environ struct {
	vars map[string]string
}

// NewEnviron copies vars; nil yields an empty environment.
func NewEnviron(vars map[string]string) *Environ {
	return &Environ{vars: maps.Clone(vars)}
}

// Getenv returns the variable or "".
func (e *Environ) Getenv(key string) string {
	return e.vars[key]
}
