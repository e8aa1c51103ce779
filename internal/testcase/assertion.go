package testcase

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// Assertion is an observation of a value produced by a test case.
type Assertion interface {
	// Source returns the observed reference.
	Source() *VariableReference
	// References returns every reference the assertion reads.
	References() []*VariableReference
	Replace(old, replacement *VariableReference)
	// Evaluate reports whether the observation holds in scope.
	Evaluate(scope *Scope) bool
	// Code renders the assertion; exception assertions render as part of
	// the statement they observe and return "".
	Code(names *Names) string
	Clone() Assertion
	Equals(other Assertion) bool
}

// EqualsAssertion checks a value against a basic literal.
type EqualsAssertion struct {
	source   *VariableReference
	expected reflect.Value
}

// NewEqualsAssertion observes that source equals expected.
func NewEqualsAssertion(source *VariableReference, expected any) *EqualsAssertion {
	return &EqualsAssertion{source: source, expected: reflect.ValueOf(expected)}
}

// Expected returns the expected literal.
func (a *EqualsAssertion) Expected() any { return a.expected.Interface() }

func (a *EqualsAssertion) Source() *VariableReference { return a.source }

func (a *EqualsAssertion) References() []*VariableReference { return []*VariableReference{a.source} }

func (a *EqualsAssertion) Replace(old, replacement *VariableReference) {
	replaceRef(&a.source, old, replacement)
}

func (a *EqualsAssertion) Evaluate(scope *Scope) bool {
	value, err := scope.Get(a.source)
	if err != nil {
		return false
	}

	expected, err := classpath.Coerce(a.expected, value.Type())
	if err != nil {
		return false
	}

	return reflect.DeepEqual(value.Interface(), expected.Interface())
}

func (a *EqualsAssertion) Code(names *Names) string {
	name := names.Name(a.source)

	if a.expected.Kind() == reflect.Bool {
		if a.expected.Bool() {
			return names.assert() + ".True(t, " + name + ")"
		}

		return names.assert() + ".False(t, " + name + ")"
	}

	return names.assert() + ".Equal(t, " + names.literal(reflect.ValueOf(a.normalized())) + ", " + name + ")"
}

func (a *EqualsAssertion) Clone() Assertion {
	return &EqualsAssertion{source: a.source, expected: a.expected}
}

func (a *EqualsAssertion) Equals(other Assertion) bool {
	o, ok := other.(*EqualsAssertion)
	if !ok || o == nil || !samePosition(a.source, o.source) {
		return false
	}

	return reflect.DeepEqual(a.normalized(), o.normalized())
}

// normalized returns the expected value converted to the source type when
// the conversion is lossless.
func (a *EqualsAssertion) normalized() any {
	if !a.expected.IsValid() {
		return nil
	}

	if a.source != nil && isBasic(a.source.typ) {
		if converted, err := classpath.Coerce(a.expected, a.source.typ); err == nil {
			return converted.Interface()
		}
	}

	return a.expected.Interface()
}

// NullAssertion checks whether a value is nil.
type NullAssertion struct {
	source *VariableReference
	isNil  bool
}

// NewNullAssertion observes that source is nil (isNil) or not.
func NewNullAssertion(source *VariableReference, isNil bool) *NullAssertion {
	return &NullAssertion{source: source, isNil: isNil}
}

func (a *NullAssertion) Source() *VariableReference { return a.source }

func (a *NullAssertion) References() []*VariableReference { return []*VariableReference{a.source} }

func (a *NullAssertion) Replace(old, replacement *VariableReference) {
	replaceRef(&a.source, old, replacement)
}

func (a *NullAssertion) Evaluate(scope *Scope) bool {
	value, err := scope.Get(a.source)
	if err != nil {
		return false
	}

	return isNilValue(value) == a.isNil
}

func (a *NullAssertion) Code(names *Names) string {
	if a.isNil {
		return names.assert() + ".Nil(t, " + names.Name(a.source) + ")"
	}

	return names.assert() + ".NotNil(t, " + names.Name(a.source) + ")"
}

func (a *NullAssertion) Clone() Assertion {
	return &NullAssertion{source: a.source, isNil: a.isNil}
}

func (a *NullAssertion) Equals(other Assertion) bool {
	o, ok := other.(*NullAssertion)
	return ok && o != nil && samePosition(a.source, o.source) && a.isNil == o.isNil
}

// SameAssertion checks pointer identity between two values.
type SameAssertion struct {
	source *VariableReference
	other  *VariableReference
	same   bool
}

// NewSameAssertion observes that source and other point to the same object
// (same) or not.
func NewSameAssertion(source, other *VariableReference, same bool) *SameAssertion {
	return &SameAssertion{source: source, other: other, same: same}
}

func (a *SameAssertion) Source() *VariableReference { return a.source }

func (a *SameAssertion) References() []*VariableReference {
	return []*VariableReference{a.source, a.other}
}

func (a *SameAssertion) Replace(old, replacement *VariableReference) {
	replaceRef(&a.source, old, replacement)
	replaceRef(&a.other, old, replacement)
}

func (a *SameAssertion) Evaluate(scope *Scope) bool {
	left, err := scope.Get(a.source)
	if err != nil {
		return false
	}

	right, err := scope.Get(a.other)
	if err != nil {
		return false
	}

	if left.Kind() != reflect.Pointer || right.Kind() != reflect.Pointer {
		return false
	}

	return (left.Pointer() == right.Pointer() && left.Type() == right.Type()) == a.same
}

func (a *SameAssertion) Code(names *Names) string {
	fn := ".Same(t, "
	if !a.same {
		fn = ".NotSame(t, "
	}

	return names.assert() + fn + names.Name(a.other) + ", " + names.Name(a.source) + ")"
}

func (a *SameAssertion) Clone() Assertion {
	return &SameAssertion{source: a.source, other: a.other, same: a.same}
}

func (a *SameAssertion) Equals(other Assertion) bool {
	o, ok := other.(*SameAssertion)

	return ok && o != nil && samePosition(a.source, o.source) && samePosition(a.other, o.other) && a.same == o.same
}

// InDeltaAssertion checks a number against an expected value within a
// tolerance.
type InDeltaAssertion struct {
	source   *VariableReference
	expected float64
	delta    float64
}

// NewInDeltaAssertion observes that |source - expected| <= delta.
func NewInDeltaAssertion(source *VariableReference, expected, delta float64) *InDeltaAssertion {
	return &InDeltaAssertion{source: source, expected: expected, delta: delta}
}

func (a *InDeltaAssertion) Source() *VariableReference { return a.source }

func (a *InDeltaAssertion) References() []*VariableReference {
	return []*VariableReference{a.source}
}

func (a *InDeltaAssertion) Replace(old, replacement *VariableReference) {
	replaceRef(&a.source, old, replacement)
}

func (a *InDeltaAssertion) Evaluate(scope *Scope) bool {
	value, err := scope.Get(a.source)
	if err != nil {
		return false
	}

	actual, ok := asFloat(value)
	if !ok {
		return false
	}

	return math.Abs(actual-a.expected) <= a.delta
}

func (a *InDeltaAssertion) Code(names *Names) string {
	return fmt.Sprintf("%s.InDelta(t, %s, %s, %s)",
		names.assert(), names.floatLiteral(a.expected, 64), names.Name(a.source), names.floatLiteral(a.delta, 64))
}

func (a *InDeltaAssertion) Clone() Assertion {
	return &InDeltaAssertion{source: a.source, expected: a.expected, delta: a.delta}
}

func (a *InDeltaAssertion) Equals(other Assertion) bool {
	o, ok := other.(*InDeltaAssertion)

	return ok && o != nil && samePosition(a.source, o.source) && a.expected == o.expected && a.delta == o.delta
}

// ExceptionAssertion checks that the statement producing source failed: by
// panicking, or by returning an error whose message contains Message.
type ExceptionAssertion struct {
	source   *VariableReference
	panicked bool
	message  string
}

// NewExceptionAssertion observes that the statement producing source failed
// the way err describes.
func NewExceptionAssertion(source *VariableReference, err error) *ExceptionAssertion {
	exp := expectationOf(err)

	return &ExceptionAssertion{source: source, panicked: exp.panicked, message: exp.message}
}

// Panicked reports whether a panic is expected.
func (a *ExceptionAssertion) Panicked() bool { return a.panicked }

// Message returns the expected error message.
func (a *ExceptionAssertion) Message() string { return a.message }

func (a *ExceptionAssertion) Source() *VariableReference { return a.source }

func (a *ExceptionAssertion) References() []*VariableReference {
	return []*VariableReference{a.source}
}

func (a *ExceptionAssertion) Replace(old, replacement *VariableReference) {
	replaceRef(&a.source, old, replacement)
}

func (a *ExceptionAssertion) Evaluate(scope *Scope) bool {
	err := scope.Exception(a.source.position)
	if err == nil {
		return false
	}

	exp := expectationOf(err)
	if exp.panicked != a.panicked {
		return false
	}

	return a.panicked || strings.Contains(exp.message, a.message)
}

func (a *ExceptionAssertion) Code(*Names) string { return "" }

func (a *ExceptionAssertion) Clone() Assertion {
	return &ExceptionAssertion{source: a.source, panicked: a.panicked, message: a.message}
}

func (a *ExceptionAssertion) Equals(other Assertion) bool {
	o, ok := other.(*ExceptionAssertion)

	return ok && o != nil && samePosition(a.source, o.source) && a.panicked == o.panicked && a.message == o.message
}

func (a *ExceptionAssertion) err() error {
	return expectation{panicked: a.panicked, message: a.message}.err()
}

func samePosition(a, b *VariableReference) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.position == b.position
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func asFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}

