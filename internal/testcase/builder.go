package testcase

import (
	"reflect"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// Builder appends statements to a test case. A rejected append returns a
// ValidationError and leaves the test case unchanged.
type Builder struct {
	tc *TestCase
}

// NewBuilder returns a builder over an empty test case.
func NewBuilder() *Builder {
	return &Builder{tc: New()}
}

// TestCase returns the test case built so far.
func (b *Builder) TestCase() *TestCase {
	return b.tc
}

// AppendIntPrimitive appends an int literal.
func (b *Builder) AppendIntPrimitive(value int) *VariableReference {
	return b.mustPrimitive(value)
}

// AppendStringPrimitive appends a string literal.
func (b *Builder) AppendStringPrimitive(value string) *VariableReference {
	return b.mustPrimitive(value)
}

// AppendBoolPrimitive appends a bool literal.
func (b *Builder) AppendBoolPrimitive(value bool) *VariableReference {
	return b.mustPrimitive(value)
}

// AppendFloatPrimitive appends a float64 literal.
func (b *Builder) AppendFloatPrimitive(value float64) *VariableReference {
	return b.mustPrimitive(value)
}

func (b *Builder) mustPrimitive(value any) *VariableReference {
	ref, err := b.AppendPrimitive(value)
	if err != nil {
		panic(err)
	}

	return ref
}

// AppendPrimitive appends a literal of any predeclared basic type.
func (b *Builder) AppendPrimitive(value any) (*VariableReference, error) {
	return b.tc.Append(NewPrimitiveStatement(value))
}

// AppendNull appends a typed nil.
func (b *Builder) AppendNull(typ reflect.Type) (*VariableReference, error) {
	return b.tc.Append(NewNullStatement(typ))
}

// AppendClassLiteral appends the reflect.Type of typ.
func (b *Builder) AppendClassLiteral(typ reflect.Type) (*VariableReference, error) {
	return b.tc.Append(NewClassLiteralStatement(typ))
}

// AppendConstructor appends a constructor call.
func (b *Builder) AppendConstructor(ctor *classpath.Constructor, args ...*VariableReference) (*VariableReference, error) {
	return b.tc.Append(NewConstructorStatement(ctor, args...))
}

// AppendMethod appends an instance method call on receiver.
func (b *Builder) AppendMethod(receiver *VariableReference, method *classpath.Method, args ...*VariableReference) (*VariableReference, error) {
	if receiver == nil {
		return nil, invalid(b.tc.Size(), "method %s needs a receiver", method)
	}

	return b.tc.Append(NewMethodStatement(receiver, method, args...))
}

// AppendStatic appends a static method call.
func (b *Builder) AppendStatic(method *classpath.Method, args ...*VariableReference) (*VariableReference, error) {
	return b.tc.Append(NewMethodStatement(nil, method, args...))
}

// AppendField appends a field read. receiver is nil for static fields.
func (b *Builder) AppendField(receiver *VariableReference, field *classpath.Field) (*VariableReference, error) {
	return b.tc.Append(NewFieldReadStatement(receiver, field))
}

// AppendFieldWrite appends a field write. receiver is nil for static fields.
func (b *Builder) AppendFieldWrite(receiver *VariableReference, field *classpath.Field, value *VariableReference) (*VariableReference, error) {
	return b.tc.Append(NewFieldWriteStatement(receiver, field, value))
}

// AppendArray appends the creation of a []elem of length.
func (b *Builder) AppendArray(elem reflect.Type, length int) (*VariableReference, error) {
	return b.tc.Append(NewArrayStatement(elem, length))
}

// AppendArrayRead appends array[index].
func (b *Builder) AppendArrayRead(array *VariableReference, index int) (*VariableReference, error) {
	return b.tc.Append(NewArrayIndexReadStatement(array, index))
}

// AppendArrayWrite appends array[index] = value.
func (b *Builder) AppendArrayWrite(array *VariableReference, index int, value *VariableReference) (*VariableReference, error) {
	return b.tc.Append(NewArrayIndexWriteStatement(array, index, value))
}

// AppendAssignment appends lhs = rhs.
func (b *Builder) AppendAssignment(lhs, rhs *VariableReference) (*VariableReference, error) {
	return b.tc.Append(NewAssignmentStatement(lhs, rhs))
}

// Assert attaches an assertion to the statement producing its source.
func (b *Builder) Assert(a Assertion) error {
	return b.tc.AddAssertion(a)
}
