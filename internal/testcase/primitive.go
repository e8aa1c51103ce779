package testcase

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

var typeType = reflect.TypeFor[reflect.Type]()

// PrimitiveStatement binds a literal of a predeclared basic type.
type PrimitiveStatement struct {
	statementBase

	value reflect.Value
}

// NewPrimitiveStatement returns a literal statement for value.
func NewPrimitiveStatement(value any) *PrimitiveStatement {
	v := reflect.ValueOf(value)

	var typ reflect.Type
	if v.IsValid() {
		typ = v.Type()
	}

	return &PrimitiveStatement{statementBase: newBase(typ), value: v}
}

// Value returns the literal.
func (s *PrimitiveStatement) Value() any {
	return s.value.Interface()
}

// SetValue changes the literal keeping its type.
func (s *PrimitiveStatement) SetValue(value any) error {
	v, err := classpath.Coerce(reflect.ValueOf(value), s.retval.typ)
	if err != nil {
		return invalid(s.retval.position, "%v", err)
	}

	s.value = v

	return nil
}

func (s *PrimitiveStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	return scope.Set(s.retval, s.value)
}

func (s *PrimitiveStatement) Inputs() []*VariableReference { return nil }

func (s *PrimitiveStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *PrimitiveStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *PrimitiveStatement) Replace(old, replacement *VariableReference) {
	s.replaceInAssertions(old, replacement)
}

func (s *PrimitiveStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *PrimitiveStatement) Clone() Statement {
	return &PrimitiveStatement{statementBase: s.cloneBase(), value: s.value}
}

func (s *PrimitiveStatement) Code(names *Names) string {
	return declare(names, s.retval, names.literal(s.value), false)
}

func (s *PrimitiveStatement) CodeWithException(names *Names, _ error) string {
	return s.Code(names)
}

func (s *PrimitiveStatement) Validate() error {
	if !s.value.IsValid() || !isBasic(s.retval.typ) {
		return invalid(s.retval.position, "primitive of type %v is not a predeclared basic type", s.retval.typ)
	}

	return nil
}

func (s *PrimitiveStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *PrimitiveStatement) Hash() uint32 { return statementHash(s) }

func (s *PrimitiveStatement) structure() string {
	if !s.value.IsValid() {
		return "primitive " + refKey(s.retval) + " <invalid>"
	}

	return fmt.Sprintf("primitive %s %#v", refKey(s.retval), s.value.Interface())
}

func (s *PrimitiveStatement) rebind(classpath.Loader) error { return nil }

func isBasic(t reflect.Type) bool {
	if t == nil || t.PkgPath() != "" {
		return false
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// NullStatement binds the nil value of a nillable type.
type NullStatement struct {
	statementBase
}

// NewNullStatement returns a statement producing a typed nil.
func NewNullStatement(typ reflect.Type) *NullStatement {
	return &NullStatement{statementBase: newBase(typ)}
}

func (s *NullStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	return scope.Set(s.retval, reflect.Zero(s.retval.typ))
}

func (s *NullStatement) Inputs() []*VariableReference { return nil }

func (s *NullStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *NullStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *NullStatement) Replace(old, replacement *VariableReference) {
	s.replaceInAssertions(old, replacement)
}

func (s *NullStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *NullStatement) Clone() Statement {
	return &NullStatement{statementBase: s.cloneBase()}
}

func (s *NullStatement) Code(names *Names) string {
	return "var " + names.Name(s.retval) + " " + names.Type(s.retval.typ)
}

func (s *NullStatement) CodeWithException(names *Names, _ error) string {
	return s.Code(names)
}

func (s *NullStatement) Validate() error {
	if !classpath.Nillable(s.retval.typ) {
		return invalid(s.retval.position, "type %v cannot be nil", s.retval.typ)
	}

	return nil
}

func (s *NullStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *NullStatement) Hash() uint32 { return statementHash(s) }

func (s *NullStatement) structure() string {
	return "null " + refKey(s.retval)
}

func (s *NullStatement) rebind(classpath.Loader) error { return nil }

// ClassLiteralStatement binds the reflect.Type of a type.
type ClassLiteralStatement struct {
	statementBase

	literal reflect.Type
}

// NewClassLiteralStatement returns a statement producing the reflect.Type of
// literal.
func NewClassLiteralStatement(literal reflect.Type) *ClassLiteralStatement {
	return &ClassLiteralStatement{statementBase: newBase(typeType), literal: literal}
}

// Literal returns the type the statement produces.
func (s *ClassLiteralStatement) Literal() reflect.Type { return s.literal }

func (s *ClassLiteralStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	return scope.Set(s.retval, reflect.ValueOf(s.literal))
}

func (s *ClassLiteralStatement) Inputs() []*VariableReference { return nil }

func (s *ClassLiteralStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *ClassLiteralStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *ClassLiteralStatement) Replace(old, replacement *VariableReference) {
	s.replaceInAssertions(old, replacement)
}

func (s *ClassLiteralStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *ClassLiteralStatement) Clone() Statement {
	return &ClassLiteralStatement{statementBase: s.cloneBase(), literal: s.literal}
}

func (s *ClassLiteralStatement) Code(names *Names) string {
	names.Import("reflect", "reflect")
	return declare(names, s.retval, "reflect.TypeFor["+names.Type(s.literal)+"]()", false)
}

func (s *ClassLiteralStatement) CodeWithException(names *Names, _ error) string {
	return s.Code(names)
}

func (s *ClassLiteralStatement) Validate() error {
	if s.literal == nil {
		return invalid(s.retval.position, "class literal without a type")
	}

	return nil
}

func (s *ClassLiteralStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *ClassLiteralStatement) Hash() uint32 { return statementHash(s) }

func (s *ClassLiteralStatement) structure() string {
	return fmt.Sprintf("class %s %v", refKey(s.retval), s.literal)
}

func (s *ClassLiteralStatement) rebind(classpath.Loader) error { return nil }
