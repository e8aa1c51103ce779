// Package spill keeps append-only sequences of gob encoded items in a file so
// long runs do not hold every record in memory.
package spill

import (
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/afero"
)

var errStop = errors.New("stop")

// DefaultDir is where spills are created when no directory is given.
const DefaultDir = "/tmp/testsynth-spill"

// Spill is an append-only sequence of items of type T.
type Spill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Get(index uint64) (T, error)
	Range(f func(index uint64, item T) error) error
	Close() error
}

type fileSpill[T any] struct {
	fs      afero.Fs
	path    string
	file    afero.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// New creates a spill file under dir on fs. An empty dir means DefaultDir.
func New[T any](fs afero.Fs, dir string) (Spill[T], error) {
	if dir == "" {
		dir = DefaultDir
	}

	if err := fs.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create spill directory", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spill directory: %w", err)
	}

	file, err := afero.TempFile(fs, dir, "spill-*.gob")
	if err != nil {
		slog.Error("failed to create spill file", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spill file: %w", err)
	}

	slog.Debug("created spill", "path", file.Name())

	return &fileSpill[T]{
		fs:      fs,
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

func (f *fileSpill[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return fmt.Errorf("spill %s is closed", f.path)
	}

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	f.length++

	return nil
}

func (f *fileSpill[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := f.Append(item); err != nil {
			return err
		}
	}

	return nil
}

func (f *fileSpill[T]) Path() string {
	return f.path
}

func (f *fileSpill[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Get decodes items from the start of the file up to index.
func (f *fileSpill[T]) Get(index uint64) (T, error) {
	var found T

	if index >= f.Len() {
		return found, fmt.Errorf("index %d out of bounds (length %d)", index, f.Len())
	}

	err := f.Range(func(i uint64, item T) error {
		if i == index {
			found = item
			return errStop
		}

		return nil
	})
	if err != nil {
		return found, err
	}

	return found, nil
}

func (f *fileSpill[T]) Range(fn func(index uint64, item T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := f.fs.Open(f.path)
	if err != nil {
		slog.Error("failed to open spill for reading", "path", f.path, "error", err)
		return fmt.Errorf("failed to open spill: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close spill reader", "path", f.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := range f.length {
		var item T

		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode item", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}

			return err
		}
	}

	return nil
}

// Close closes the writer. The file stays readable through Range and Get.
func (f *fileSpill[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	err := f.file.Close()
	f.file = nil

	if err != nil {
		slog.Error("failed to close spill", "path", f.path, "error", err)
		return err
	}

	slog.Debug("closed spill", "path", f.path, "length", f.length)

	return nil
}

