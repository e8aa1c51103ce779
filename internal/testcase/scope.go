package testcase

import (
	"fmt"
	"reflect"
	"sync"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// Scope holds the values produced during one execution, keyed by position.
// A sealed position ignores further writes; the engine seals the slot of a
// statement it abandoned.
type Scope struct {
	mu         sync.RWMutex
	values     map[int]reflect.Value
	exceptions map[int]error
	sealed     map[int]bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{
		values:     map[int]reflect.Value{},
		exceptions: map[int]error{},
		sealed:     map[int]bool{},
	}
}

// Get returns the value bound to ref.
func (s *Scope) Get(ref *VariableReference) (reflect.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[ref.position]
	if !ok {
		return reflect.Value{}, &UnresolvedDependencyError{Position: -1, Dependency: ref.position}
	}

	return value, nil
}

// Bound reports whether ref has a value.
func (s *Scope) Bound(ref *VariableReference) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.values[ref.position]

	return ok
}

// Set binds value to ref, converting it to the declared type. Writes to a
// sealed position are dropped.
func (s *Scope) Set(ref *VariableReference, value reflect.Value) error {
	if ref.IsVoid() {
		return nil
	}

	coerced, err := classpath.Coerce(value, ref.typ)
	if err != nil {
		return fmt.Errorf("bind %s: %w", ref, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed[ref.position] {
		return nil
	}

	s.values[ref.position] = coerced

	return nil
}

// SetException records the error raised by the statement at position.
func (s *Scope) SetException(position int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed[position] {
		return
	}

	s.exceptions[position] = err
}

// Exception returns the error recorded at position, if any.
func (s *Scope) Exception(position int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.exceptions[position]
}

// Seal discards whatever the statement at position produced, records cause
// as its exception and drops every later write to the position.
func (s *Scope) Seal(position int, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sealed[position] = true
	delete(s.values, position)
	s.exceptions[position] = cause
}

// Len returns the number of bound values.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}
