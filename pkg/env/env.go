package env

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
)

// Dialogs shows modal dialogs.
type Dialogs interface {
	ShowMessageDialog(ctx context.Context, parent any, message any) error
	ShowInternalMessageDialog(ctx context.Context, parent any, message any) error
	ShowConfirmDialog(ctx context.Context, parent any, message any) (bool, error)
}

// Clock tells and waits for time.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// FileSystem exposes a file system.
type FileSystem interface {
	Fs() afero.Fs
}

// Random draws pseudo-random numbers.
type Random interface {
	Intn(n int) int
	Float64() float64
}

// Environ reads environment variables.
type Environ interface {
	Getenv(key string) string
}

// ShowMessageDialog shows an informational dialog and waits for it to close.
func ShowMessageDialog(ctx context.Context, parent any, message any) error {
	if d, ok := lookup[Dialogs](defaultGate, DialogAPI); ok {
		return d.ShowMessageDialog(ctx, parent, message)
	}

	return system.dialogs.ShowMessageDialog(ctx, parent, message)
}

// ShowInternalMessageDialog shows a dialog inside parent and waits for it to
// close.
func ShowInternalMessageDialog(ctx context.Context, parent any, message any) error {
	if d, ok := lookup[Dialogs](defaultGate, DialogAPI); ok {
		return d.ShowInternalMessageDialog(ctx, parent, message)
	}

	return system.dialogs.ShowInternalMessageDialog(ctx, parent, message)
}

// ShowConfirmDialog asks a yes/no question.
func ShowConfirmDialog(ctx context.Context, parent any, message any) (bool, error) {
	if d, ok := lookup[Dialogs](defaultGate, DialogAPI); ok {
		return d.ShowConfirmDialog(ctx, parent, message)
	}

	return system.dialogs.ShowConfirmDialog(ctx, parent, message)
}

// Now returns the current time.
func Now() time.Time {
	if c, ok := lookup[Clock](defaultGate, ClockAPI); ok {
		return c.Now()
	}

	return system.clock.Now()
}

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if c, ok := lookup[Clock](defaultGate, ClockAPI); ok {
		return c.Sleep(ctx, d)
	}

	return system.clock.Sleep(ctx, d)
}

// FS returns the file system.
func FS() afero.Fs {
	if f, ok := lookup[FileSystem](defaultGate, FileSystemAPI); ok {
		return f.Fs()
	}

	return system.fs.Fs()
}

// Intn returns a pseudo-random number in [0, n).
func Intn(n int) int {
	if r, ok := lookup[Random](defaultGate, RandomAPI); ok {
		return r.Intn(n)
	}

	return system.random.Intn(n)
}

// Float64 returns a pseudo-random number in [0, 1).
func Float64() float64 {
	if r, ok := lookup[Random](defaultGate, RandomAPI); ok {
		return r.Float64()
	}

	return system.random.Float64()
}

// Getenv reads an environment variable.
func Getenv(key string) string {
	if e, ok := lookup[Environ](defaultGate, EnvironAPI); ok {
		return e.Getenv(key)
	}

	return system.environ.Getenv(key)
}

type outputKey struct{}

// WithOutput routes Out(ctx) to w.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

// Out returns the writer standing for standard output in ctx.
func Out(ctx context.Context) io.Writer {
	if ctx != nil {
		if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
			return w
		}
	}

	return os.Stdout
}

// Printf formats to Out(ctx).
func Printf(ctx context.Context, format string, args ...any) {
	_, _ = fmt.Fprintf(Out(ctx), format, args...)
}
