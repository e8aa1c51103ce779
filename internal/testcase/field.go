package testcase

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// FieldReadStatement reads an instance field, or a static field when the
// receiver is nil.
type FieldReadStatement struct {
	statementBase

	field    *classpath.Field
	receiver *VariableReference
}

// NewFieldReadStatement returns a statement reading field from receiver.
func NewFieldReadStatement(receiver *VariableReference, field *classpath.Field) *FieldReadStatement {
	return &FieldReadStatement{statementBase: newBase(field.Type()), field: field, receiver: receiver}
}

// Field returns the accessed field.
func (s *FieldReadStatement) Field() *classpath.Field { return s.field }

// Receiver returns the receiver reference, or nil for static fields.
func (s *FieldReadStatement) Receiver() *VariableReference { return s.receiver }

func (s *FieldReadStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	recv, err := readReceiver(scope, s.retval.position, s.receiver)
	if err != nil {
		return err
	}

	value, err := s.field.Get(recv)
	if err != nil {
		return err
	}

	return scope.Set(s.retval, value)
}

func (s *FieldReadStatement) Inputs() []*VariableReference {
	if s.receiver == nil {
		return nil
	}

	return []*VariableReference{s.receiver}
}

func (s *FieldReadStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *FieldReadStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *FieldReadStatement) Replace(old, replacement *VariableReference) {
	if s.receiver != nil {
		replaceRef(&s.receiver, old, replacement)
	}

	s.replaceInAssertions(old, replacement)
}

func (s *FieldReadStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *FieldReadStatement) Clone() Statement {
	return &FieldReadStatement{statementBase: s.cloneBase(), field: s.field, receiver: s.receiver}
}

func (s *FieldReadStatement) Code(names *Names) string {
	return declare(names, s.retval, fieldExpr(names, s.field, s.receiver), false)
}

func (s *FieldReadStatement) CodeWithException(names *Names, err error) string {
	return guard(names, s.retval, fieldExpr(names, s.field, s.receiver), false, err)
}

func (s *FieldReadStatement) Validate() error {
	return validateReceiver(s.retval.position, s.field, s.receiver)
}

func (s *FieldReadStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *FieldReadStatement) Hash() uint32 { return statementHash(s) }

func (s *FieldReadStatement) structure() string {
	return fmt.Sprintf("field-read %s %s.%s[%s]", refKey(s.retval), s.field.Class().FullName(), s.field.Name(), refKey(s.receiver))
}

func (s *FieldReadStatement) rebind(loader classpath.Loader) error {
	field, err := rebindField(loader, s.field)
	if err != nil {
		return err
	}

	s.field = field

	return nil
}

// FieldWriteStatement assigns a value to a field. It produces no value.
type FieldWriteStatement struct {
	statementBase

	field    *classpath.Field
	receiver *VariableReference
	value    *VariableReference
}

// NewFieldWriteStatement returns a statement writing value into field.
func NewFieldWriteStatement(receiver *VariableReference, field *classpath.Field, value *VariableReference) *FieldWriteStatement {
	return &FieldWriteStatement{statementBase: newBase(nil), field: field, receiver: receiver, value: value}
}

// Field returns the written field.
func (s *FieldWriteStatement) Field() *classpath.Field { return s.field }

func (s *FieldWriteStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	recv, err := readReceiver(scope, s.retval.position, s.receiver)
	if err != nil {
		return err
	}

	values, err := readInputs(scope, s.retval.position, []*VariableReference{s.value})
	if err != nil {
		return err
	}

	return s.field.Set(recv, values[0])
}

func (s *FieldWriteStatement) Inputs() []*VariableReference {
	if s.receiver == nil {
		return []*VariableReference{s.value}
	}

	return []*VariableReference{s.receiver, s.value}
}

func (s *FieldWriteStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *FieldWriteStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *FieldWriteStatement) Replace(old, replacement *VariableReference) {
	if s.receiver != nil {
		replaceRef(&s.receiver, old, replacement)
	}

	replaceRef(&s.value, old, replacement)
	s.replaceInAssertions(old, replacement)
}

func (s *FieldWriteStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *FieldWriteStatement) Clone() Statement {
	return &FieldWriteStatement{statementBase: s.cloneBase(), field: s.field, receiver: s.receiver, value: s.value}
}

func (s *FieldWriteStatement) expr(names *Names) string {
	return fieldExpr(names, s.field, s.receiver) + " = " + names.Value(s.value, s.field.Type())
}

func (s *FieldWriteStatement) Code(names *Names) string {
	return s.expr(names)
}

func (s *FieldWriteStatement) CodeWithException(names *Names, err error) string {
	return guard(names, s.retval, s.expr(names), false, err)
}

func (s *FieldWriteStatement) Validate() error {
	if err := validateReceiver(s.retval.position, s.field, s.receiver); err != nil {
		return err
	}

	if s.value == nil || s.value.IsVoid() {
		return invalid(s.retval.position, "write to %s has no value", s.field)
	}

	if !classpath.Assignable(s.value.typ, s.field.Type()) {
		return invalid(s.retval.position, "%s is not assignable to field %s of type %s", s.value.typ, s.field, s.field.Type())
	}

	return nil
}

func (s *FieldWriteStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *FieldWriteStatement) Hash() uint32 { return statementHash(s) }

func (s *FieldWriteStatement) structure() string {
	return fmt.Sprintf("field-write %s %s.%s[%s] = %s",
		refKey(s.retval), s.field.Class().FullName(), s.field.Name(), refKey(s.receiver), refKey(s.value))
}

func (s *FieldWriteStatement) rebind(loader classpath.Loader) error {
	field, err := rebindField(loader, s.field)
	if err != nil {
		return err
	}

	s.field = field

	return nil
}

func fieldExpr(names *Names, field *classpath.Field, receiver *VariableReference) string {
	if field.Static() {
		class := field.Class()
		names.Import(class.Package(), class.PackageName())

		return field.String()
	}

	return names.Name(receiver) + "." + field.Name()
}

func readReceiver(scope *Scope, position int, receiver *VariableReference) (reflect.Value, error) {
	if receiver == nil {
		return reflect.Value{}, nil
	}

	values, err := readInputs(scope, position, []*VariableReference{receiver})
	if err != nil {
		return reflect.Value{}, err
	}

	return values[0], nil
}

func validateReceiver(position int, field *classpath.Field, receiver *VariableReference) error {
	if field.Static() {
		if receiver != nil {
			return invalid(position, "static field %s accessed through a receiver", field)
		}

		return nil
	}

	if receiver == nil || receiver.IsVoid() {
		return invalid(position, "field %s needs a receiver", field)
	}

	if !classpath.Assignable(receiver.typ, field.Class().Type()) {
		return invalid(position, "receiver %s has no field %s", receiver.typ, field)
	}

	return nil
}

func rebindField(loader classpath.Loader, field *classpath.Field) (*classpath.Field, error) {
	class, err := loader.LoadClass(field.Class().FullName())
	if err != nil {
		return nil, err
	}

	return class.Field(field.Name())
}
