package testcase

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("invalid test case")
	// ErrUnresolvedDependency is matched by every UnresolvedDependencyError.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
)

// ValidationError reports a structural violation detected while building or
// editing a test case.
type ValidationError struct {
	Position int
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Position < 0 {
		return "invalid test case: " + e.Reason
	}

	return fmt.Sprintf("invalid statement at %d: %s", e.Position, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(position int, format string, args ...any) *ValidationError {
	return &ValidationError{Position: position, Reason: fmt.Sprintf(format, args...)}
}

// UnresolvedDependencyError reports a statement skipped because a value it
// reads was never produced.
type UnresolvedDependencyError struct {
	Position   int
	Dependency int
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("statement %d skipped: value at %d is unresolved", e.Position, e.Dependency)
}

// Is matches ErrUnresolvedDependency.
func (e *UnresolvedDependencyError) Is(target error) bool {
	return target == ErrUnresolvedDependency
}
