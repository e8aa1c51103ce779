// Package testcase is the editable model of a synthesized unit test: typed
// statements producing position-indexed values, the assertions observing
// them, and the rendering of a test case as Go test source.
package testcase

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/spaolacci/murmur3"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// Statement is one operation of a test case producing at most one value.
type Statement interface {
	// Execute runs the statement against scope. Output of the code under
	// test is routed to out.
	Execute(ctx context.Context, scope *Scope, out io.Writer) error
	ReturnValue() *VariableReference
	ReturnType() reflect.Type
	// Inputs returns the references the statement reads, in call order.
	Inputs() []*VariableReference
	// VariableReferences returns the return value followed by the inputs.
	VariableReferences() []*VariableReference
	References(v *VariableReference) bool
	// Replace swaps input old for replacement by identity.
	Replace(old, replacement *VariableReference)
	AdjustVariableReferences(position, delta int)
	// Clone copies the statement with a fresh return value; inputs still
	// point at the original producers.
	Clone() Statement
	Code(names *Names) string
	CodeWithException(names *Names, err error) string
	Validate() error
	Equals(other Statement) bool
	Hash() uint32

	AddAssertion(a Assertion)
	HasAssertions() bool
	RemoveAssertions()
	RemoveAssertion(a Assertion) bool
	Assertions() []Assertion
	AssertionCode(names *Names) string
	AdjustAssertions(position, delta int)
	CloneAssertions() []Assertion

	ExceptionThrown() error
	SetExceptionThrown(err error)

	structure() string
	rebind(loader classpath.Loader) error
	common() *statementBase
}

type thrownSlot struct {
	mu  sync.Mutex
	err error
}

// statementBase carries the return value, assertions and last exception
// shared by every statement kind.
type statementBase struct {
	retval     *VariableReference
	assertions []Assertion
	thrown     *thrownSlot
}

func newBase(typ reflect.Type) statementBase {
	return statementBase{retval: newReference(typ), thrown: &thrownSlot{}}
}

func (b *statementBase) common() *statementBase { return b }

// ReturnValue returns the reference to the produced value.
func (b *statementBase) ReturnValue() *VariableReference { return b.retval }

// ReturnType returns the produced type, or nil for void statements.
func (b *statementBase) ReturnType() reflect.Type { return b.retval.typ }

// AddAssertion attaches a. A nil assertion is ignored.
func (b *statementBase) AddAssertion(a Assertion) {
	if a == nil || isNilAssertion(a) {
		slog.Warn("ignoring nil assertion", "position", b.retval.position)
		return
	}

	b.assertions = append(b.assertions, a)
}

// HasAssertions reports whether any assertion is attached.
func (b *statementBase) HasAssertions() bool { return len(b.assertions) > 0 }

// RemoveAssertions detaches every assertion.
func (b *statementBase) RemoveAssertions() { b.assertions = nil }

// RemoveAssertion detaches a, compared structurally.
func (b *statementBase) RemoveAssertion(a Assertion) bool {
	for i, existing := range b.assertions {
		if existing.Equals(a) {
			b.assertions = slices.Delete(b.assertions, i, i+1)
			return true
		}
	}

	return false
}

// Assertions returns the attached assertions.
func (b *statementBase) Assertions() []Assertion { return slices.Clone(b.assertions) }

// AssertionCode renders every attached assertion on its own line.
func (b *statementBase) AssertionCode(names *Names) string {
	var lines []string

	for _, a := range b.assertions {
		if code := a.Code(names); code != "" {
			lines = append(lines, code)
		}
	}

	return strings.Join(lines, "\n")
}

// AdjustAssertions shifts the references held by assertions.
func (b *statementBase) AdjustAssertions(position, delta int) {
	adjustAll(b.assertionRefs(), position, delta)
}

// CloneAssertions returns independent copies of the attached assertions.
func (b *statementBase) CloneAssertions() []Assertion {
	clones := make([]Assertion, 0, len(b.assertions))
	for _, a := range b.assertions {
		clones = append(clones, a.Clone())
	}

	return clones
}

// ExceptionThrown returns the error raised by the last execution.
func (b *statementBase) ExceptionThrown() error {
	b.thrown.mu.Lock()
	defer b.thrown.mu.Unlock()

	return b.thrown.err
}

// SetExceptionThrown records the error raised by an execution.
func (b *statementBase) SetExceptionThrown(err error) {
	b.thrown.mu.Lock()
	defer b.thrown.mu.Unlock()

	b.thrown.err = err
}

func (b *statementBase) assertionRefs() []*VariableReference {
	var refs []*VariableReference
	for _, a := range b.assertions {
		refs = append(refs, a.References()...)
	}

	return refs
}

func (b *statementBase) replaceInAssertions(old, replacement *VariableReference) {
	for _, a := range b.assertions {
		a.Replace(old, replacement)
	}
}

// cloneBase copies the base with a fresh return value; assertions on the
// old return value follow it.
func (b *statementBase) cloneBase() statementBase {
	clone := statementBase{
		retval:     &VariableReference{typ: b.retval.typ, position: b.retval.position},
		assertions: b.CloneAssertions(),
		thrown:     &thrownSlot{},
	}

	for _, a := range clone.assertions {
		a.Replace(b.retval, clone.retval)
	}

	return clone
}

func (b *statementBase) assertionsEqual(other *statementBase) bool {
	if len(b.assertions) != len(other.assertions) {
		return false
	}

	used := make([]bool, len(other.assertions))

	for _, a := range b.assertions {
		found := false

		for i, candidate := range other.assertions {
			if !used[i] && a.Equals(candidate) {
				used[i] = true
				found = true

				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// statementEquals compares structure and attached assertions, ignoring
// assertion order.
func statementEquals(s, other Statement) bool {
	if other == nil || isNilStatement(other) {
		return false
	}

	return s.structure() == other.structure() && s.common().assertionsEqual(other.common())
}

func statementHash(s Statement) uint32 {
	return murmur3.Sum32([]byte(s.structure()))
}

func statementRefs(s Statement) []*VariableReference {
	return append([]*VariableReference{s.ReturnValue()}, s.Inputs()...)
}

func referencesAny(s Statement, v *VariableReference) bool {
	return slices.Contains(statementRefs(s), v)
}

func isNilStatement(s Statement) bool {
	v := reflect.ValueOf(s)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func isNilAssertion(a Assertion) bool {
	v := reflect.ValueOf(a)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func refKey(ref *VariableReference) string {
	if ref == nil {
		return "nil"
	}

	return ref.String()
}

func refKeys(refs []*VariableReference) string {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, refKey(ref))
	}

	return strings.Join(keys, ",")
}

// readInputs fetches the values of refs from scope.
func readInputs(scope *Scope, position int, refs []*VariableReference) ([]reflect.Value, error) {
	values := make([]reflect.Value, 0, len(refs))

	for _, ref := range refs {
		value, err := scope.Get(ref)
		if err != nil {
			return nil, &UnresolvedDependencyError{Position: position, Dependency: ref.position}
		}

		values = append(values, value)
	}

	return values, nil
}
