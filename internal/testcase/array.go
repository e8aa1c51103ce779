package testcase

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strconv"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// ArrayStatement creates a slice of a given length.
type ArrayStatement struct {
	statementBase

	elem   reflect.Type
	length int
}

// NewArrayStatement returns a statement creating a []elem of length.
func NewArrayStatement(elem reflect.Type, length int) *ArrayStatement {
	var typ reflect.Type
	if elem != nil {
		typ = reflect.SliceOf(elem)
	}

	return &ArrayStatement{statementBase: newBase(typ), elem: elem, length: length}
}

// Length returns the length of the created slice.
func (s *ArrayStatement) Length() int { return s.length }

func (s *ArrayStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	return scope.Set(s.retval, reflect.MakeSlice(s.retval.typ, s.length, s.length))
}

func (s *ArrayStatement) Inputs() []*VariableReference { return nil }

func (s *ArrayStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *ArrayStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *ArrayStatement) Replace(old, replacement *VariableReference) {
	s.replaceInAssertions(old, replacement)
}

func (s *ArrayStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *ArrayStatement) Clone() Statement {
	return &ArrayStatement{statementBase: s.cloneBase(), elem: s.elem, length: s.length}
}

func (s *ArrayStatement) Code(names *Names) string {
	return declare(names, s.retval, "make("+names.Type(s.retval.typ)+", "+strconv.Itoa(s.length)+")", false)
}

func (s *ArrayStatement) CodeWithException(names *Names, _ error) string {
	return s.Code(names)
}

func (s *ArrayStatement) Validate() error {
	if s.elem == nil {
		return invalid(s.retval.position, "slice without element type")
	}

	if s.length < 0 {
		return invalid(s.retval.position, "negative slice length %d", s.length)
	}

	return nil
}

func (s *ArrayStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *ArrayStatement) Hash() uint32 { return statementHash(s) }

func (s *ArrayStatement) structure() string {
	return fmt.Sprintf("array %s len=%d", refKey(s.retval), s.length)
}

func (s *ArrayStatement) rebind(classpath.Loader) error { return nil }

// ArrayIndexReadStatement reads one element of a slice.
type ArrayIndexReadStatement struct {
	statementBase

	array *VariableReference
	index int
}

// NewArrayIndexReadStatement returns a statement reading array[index].
func NewArrayIndexReadStatement(array *VariableReference, index int) *ArrayIndexReadStatement {
	return &ArrayIndexReadStatement{statementBase: newBase(elemType(array)), array: array, index: index}
}

func (s *ArrayIndexReadStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	element, err := indexSlice(scope, s.retval.position, s.array, s.index)
	if err != nil {
		return err
	}

	return scope.Set(s.retval, element)
}

func (s *ArrayIndexReadStatement) Inputs() []*VariableReference {
	return []*VariableReference{s.array}
}

func (s *ArrayIndexReadStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *ArrayIndexReadStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *ArrayIndexReadStatement) Replace(old, replacement *VariableReference) {
	replaceRef(&s.array, old, replacement)
	s.replaceInAssertions(old, replacement)
}

func (s *ArrayIndexReadStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *ArrayIndexReadStatement) Clone() Statement {
	return &ArrayIndexReadStatement{statementBase: s.cloneBase(), array: s.array, index: s.index}
}

func (s *ArrayIndexReadStatement) expr(names *Names) string {
	return names.Name(s.array) + "[" + strconv.Itoa(s.index) + "]"
}

func (s *ArrayIndexReadStatement) Code(names *Names) string {
	return declare(names, s.retval, s.expr(names), false)
}

func (s *ArrayIndexReadStatement) CodeWithException(names *Names, err error) string {
	return guard(names, s.retval, s.expr(names), false, err)
}

func (s *ArrayIndexReadStatement) Validate() error {
	return validateIndex(s.retval.position, s.array, s.index)
}

func (s *ArrayIndexReadStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *ArrayIndexReadStatement) Hash() uint32 { return statementHash(s) }

func (s *ArrayIndexReadStatement) structure() string {
	return fmt.Sprintf("index-read %s %s[%d]", refKey(s.retval), refKey(s.array), s.index)
}

func (s *ArrayIndexReadStatement) rebind(classpath.Loader) error { return nil }

// ArrayIndexWriteStatement assigns one element of a slice.
type ArrayIndexWriteStatement struct {
	statementBase

	array *VariableReference
	index int
	value *VariableReference
}

// NewArrayIndexWriteStatement returns a statement writing value to
// array[index].
func NewArrayIndexWriteStatement(array *VariableReference, index int, value *VariableReference) *ArrayIndexWriteStatement {
	return &ArrayIndexWriteStatement{statementBase: newBase(nil), array: array, index: index, value: value}
}

func (s *ArrayIndexWriteStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	element, err := indexSlice(scope, s.retval.position, s.array, s.index)
	if err != nil {
		return err
	}

	values, err := readInputs(scope, s.retval.position, []*VariableReference{s.value})
	if err != nil {
		return err
	}

	coerced, err := classpath.Coerce(values[0], element.Type())
	if err != nil {
		return &classpath.InvocationError{Member: "index write", Cause: err}
	}

	element.Set(coerced)

	return nil
}

func (s *ArrayIndexWriteStatement) Inputs() []*VariableReference {
	return []*VariableReference{s.array, s.value}
}

func (s *ArrayIndexWriteStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *ArrayIndexWriteStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *ArrayIndexWriteStatement) Replace(old, replacement *VariableReference) {
	replaceRef(&s.array, old, replacement)
	replaceRef(&s.value, old, replacement)
	s.replaceInAssertions(old, replacement)
}

func (s *ArrayIndexWriteStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *ArrayIndexWriteStatement) Clone() Statement {
	return &ArrayIndexWriteStatement{statementBase: s.cloneBase(), array: s.array, index: s.index, value: s.value}
}

func (s *ArrayIndexWriteStatement) expr(names *Names) string {
	return names.Name(s.array) + "[" + strconv.Itoa(s.index) + "] = " + names.Value(s.value, elemType(s.array))
}

func (s *ArrayIndexWriteStatement) Code(names *Names) string {
	return s.expr(names)
}

func (s *ArrayIndexWriteStatement) CodeWithException(names *Names, err error) string {
	return guard(names, s.retval, s.expr(names), false, err)
}

func (s *ArrayIndexWriteStatement) Validate() error {
	if err := validateIndex(s.retval.position, s.array, s.index); err != nil {
		return err
	}

	if s.value == nil || s.value.IsVoid() {
		return invalid(s.retval.position, "index write has no value")
	}

	if !classpath.Assignable(s.value.typ, s.array.typ.Elem()) {
		return invalid(s.retval.position, "%s is not assignable to element type %s", s.value.typ, s.array.typ.Elem())
	}

	return nil
}

func (s *ArrayIndexWriteStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *ArrayIndexWriteStatement) Hash() uint32 { return statementHash(s) }

func (s *ArrayIndexWriteStatement) structure() string {
	return fmt.Sprintf("index-write %s %s[%d] = %s", refKey(s.retval), refKey(s.array), s.index, refKey(s.value))
}

func (s *ArrayIndexWriteStatement) rebind(classpath.Loader) error { return nil }

func elemType(array *VariableReference) reflect.Type {
	if array == nil || array.typ == nil {
		return nil
	}

	switch array.typ.Kind() {
	case reflect.Slice, reflect.Array:
		return array.typ.Elem()
	default:
		return nil
	}
}

func validateIndex(position int, array *VariableReference, index int) error {
	if elemType(array) == nil {
		return invalid(position, "%s is not a slice", refKey(array))
	}

	if index < 0 {
		return invalid(position, "negative index %d", index)
	}

	return nil
}

// indexSlice returns the addressable element array[index].
func indexSlice(scope *Scope, position int, array *VariableReference, index int) (reflect.Value, error) {
	values, err := readInputs(scope, position, []*VariableReference{array})
	if err != nil {
		return reflect.Value{}, err
	}

	slice := values[0]
	if slice.Kind() == reflect.Array {
		return reflect.Value{}, &classpath.InvocationError{
			Member: "index",
			Cause:  fmt.Errorf("array value of type %s is not addressable", slice.Type()),
		}
	}

	if index >= slice.Len() {
		return reflect.Value{}, &classpath.InvocationError{
			Member:   "index",
			Cause:    &classpath.PanicError{Value: fmt.Sprintf("runtime error: index out of range [%d] with length %d", index, slice.Len())},
			Panicked: true,
		}
	}

	return slice.Index(index), nil
}
