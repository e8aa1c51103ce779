package classpath

import (
	"errors"
	"fmt"
)

var (
	// ErrClassLoad is matched by every ClassLoadError.
	ErrClassLoad = errors.New("class load failed")
	// ErrInitializerFailed is matched by every InitializerError.
	ErrInitializerFailed = errors.New("initializer failed")
	// ErrNilReceiver is the cause of invoking an instance member on nil.
	ErrNilReceiver = errors.New("nil receiver")
	// ErrNoSuchMember is returned when a class has no member of that name.
	ErrNoSuchMember = errors.New("no such member")
	// ErrInitializerRunning is the cause of using a class whose initializer
	// has not returned, either recursively or after it was abandoned.
	ErrInitializerRunning = errors.New("initializer still running")
)

// ClassLoadError reports that a loader could not resolve or define a class.
type ClassLoadError struct {
	Class string
	Err   error
}

func (e *ClassLoadError) Error() string {
	return fmt.Sprintf("load class %s: %v", e.Class, e.Err)
}

func (e *ClassLoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrClassLoad.
func (e *ClassLoadError) Is(target error) bool {
	return target == ErrClassLoad
}

// InitializerError reports a failed static initializer. The first failure
// carries the panic of the initializer; later uses of the class report the
// same cause with Repeated set.
type InitializerError struct {
	Class    string
	Cause    error
	Repeated bool
}

func (e *InitializerError) Error() string {
	if e.Repeated {
		return fmt.Sprintf("could not initialize class %s", e.Class)
	}

	return fmt.Sprintf("initializer of %s failed: %v", e.Class, e.Cause)
}

func (e *InitializerError) Unwrap() error {
	return e.Cause
}

// Is matches ErrInitializerFailed.
func (e *InitializerError) Is(target error) bool {
	return target == ErrInitializerFailed
}

// InvocationError wraps a failure raised by a reflectively invoked member:
// either a panic or a non-nil trailing error result.
type InvocationError struct {
	Member   string
	Cause    error
	Panicked bool
	Stack    []byte
}

func (e *InvocationError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("%s panicked: %v", e.Member, e.Cause)
	}

	return fmt.Sprintf("%s failed: %v", e.Member, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprint(e.Value)
}

// Unwrap exposes the panic value when it is an error, so runtime errors such
// as nil dereferences stay matchable.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}

	return nil
}

// ExceptionKind classifies a captured failure for exception coverage and
// for rendering: "initializer-failed", "panic:<type>" or "error:<type>".
func ExceptionKind(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrInitializerFailed) {
		return "initializer-failed"
	}

	var invocation *InvocationError
	if errors.As(err, &invocation) {
		if invocation.Panicked {
			var p *PanicError
			if errors.As(invocation.Cause, &p) {
				return fmt.Sprintf("panic:%T", p.Value)
			}

			return fmt.Sprintf("panic:%T", invocation.Cause)
		}

		return fmt.Sprintf("error:%T", invocation.Cause)
	}

	return fmt.Sprintf("error:%T", err)
}
