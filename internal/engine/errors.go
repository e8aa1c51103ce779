package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is matched by every TimeoutError.
	ErrTimeout = errors.New("statement timed out")
	// ErrHardTimeout is matched by TimeoutErrors of statements that ignored
	// the interruption and were abandoned.
	ErrHardTimeout = errors.New("statement ignored interruption")
	// ErrStopped marks statements skipped after an exception when execution
	// stops on the first exception.
	ErrStopped = errors.New("execution stopped after an exception")
)

// TimeoutError reports a statement that exceeded its time budget.
type TimeoutError struct {
	Position int
	Timeout  time.Duration
	Hard     bool
}

func (e *TimeoutError) Error() string {
	if e.Hard {
		return fmt.Sprintf("statement %d exceeded %s and ignored interruption", e.Position, e.Timeout)
	}

	return fmt.Sprintf("statement %d exceeded %s", e.Position, e.Timeout)
}

// Is matches ErrTimeout, and ErrHardTimeout for hard timeouts.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || (e.Hard && target == ErrHardTimeout)
}
