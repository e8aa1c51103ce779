package testcase

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"gooze.dev/pkg/testsynth/pkg/classpath"
	"gooze.dev/pkg/testsynth/pkg/env"
)

// ConstructorStatement creates an instance of a class.
type ConstructorStatement struct {
	statementBase

	ctor *classpath.Constructor
	args []*VariableReference
}

// NewConstructorStatement returns a statement calling ctor with args.
func NewConstructorStatement(ctor *classpath.Constructor, args ...*VariableReference) *ConstructorStatement {
	return &ConstructorStatement{
		statementBase: newBase(ctor.Class().Type()),
		ctor:          ctor,
		args:          slices.Clone(args),
	}
}

// Constructor returns the invoked constructor.
func (s *ConstructorStatement) Constructor() *classpath.Constructor { return s.ctor }

func (s *ConstructorStatement) Execute(ctx context.Context, scope *Scope, out io.Writer) error {
	args, err := readInputs(scope, s.retval.position, s.args)
	if err != nil {
		return err
	}

	instance, err := s.ctor.Invoke(withOutput(ctx, out), args)
	if err != nil {
		return err
	}

	return scope.Set(s.retval, instance)
}

func (s *ConstructorStatement) Inputs() []*VariableReference { return slices.Clone(s.args) }

func (s *ConstructorStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *ConstructorStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *ConstructorStatement) Replace(old, replacement *VariableReference) {
	for i := range s.args {
		replaceRef(&s.args[i], old, replacement)
	}

	s.replaceInAssertions(old, replacement)
}

func (s *ConstructorStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *ConstructorStatement) Clone() Statement {
	return &ConstructorStatement{statementBase: s.cloneBase(), ctor: s.ctor, args: slices.Clone(s.args)}
}

func (s *ConstructorStatement) expr(names *Names) string {
	class := s.ctor.Class()
	names.Import(class.Package(), class.PackageName())

	return s.ctor.String() + "(" + argList(names, s.ctor.TakesContext(), s.args, s.ctor.Params()) + ")"
}

func (s *ConstructorStatement) Code(names *Names) string {
	return declare(names, s.retval, s.expr(names), s.ctor.ReturnsError())
}

func (s *ConstructorStatement) CodeWithException(names *Names, err error) string {
	return guard(names, s.retval, s.expr(names), s.ctor.ReturnsError(), err)
}

func (s *ConstructorStatement) Validate() error {
	return validateArgs(s.retval.position, s.ctor.String(), s.args, s.ctor.Params())
}

func (s *ConstructorStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *ConstructorStatement) Hash() uint32 { return statementHash(s) }

func (s *ConstructorStatement) structure() string {
	return fmt.Sprintf("constructor %s %s.%s(%s)", refKey(s.retval), s.ctor.Class().FullName(), s.ctor.Name(), refKeys(s.args))
}

func (s *ConstructorStatement) rebind(loader classpath.Loader) error {
	class, err := loader.LoadClass(s.ctor.Class().FullName())
	if err != nil {
		return err
	}

	ctor, err := class.Constructor(s.ctor.Name())
	if err != nil {
		return err
	}

	s.ctor = ctor

	return nil
}

// MethodStatement calls an instance method on a receiver, or a static
// method when the receiver is nil.
type MethodStatement struct {
	statementBase

	method   *classpath.Method
	receiver *VariableReference
	args     []*VariableReference
}

// NewMethodStatement returns a statement calling method on receiver.
// receiver must be nil for static methods.
func NewMethodStatement(receiver *VariableReference, method *classpath.Method, args ...*VariableReference) *MethodStatement {
	return &MethodStatement{
		statementBase: newBase(method.Result()),
		method:        method,
		receiver:      receiver,
		args:          slices.Clone(args),
	}
}

// Method returns the invoked method.
func (s *MethodStatement) Method() *classpath.Method { return s.method }

// Receiver returns the receiver reference, or nil for static calls.
func (s *MethodStatement) Receiver() *VariableReference { return s.receiver }

func (s *MethodStatement) Execute(ctx context.Context, scope *Scope, out io.Writer) error {
	var recv reflect.Value

	if s.receiver != nil {
		values, err := readInputs(scope, s.retval.position, []*VariableReference{s.receiver})
		if err != nil {
			return err
		}

		recv = values[0]
	}

	args, err := readInputs(scope, s.retval.position, s.args)
	if err != nil {
		return err
	}

	result, err := s.method.Invoke(withOutput(ctx, out), recv, args)
	if err != nil {
		return err
	}

	return scope.Set(s.retval, result)
}

func (s *MethodStatement) Inputs() []*VariableReference {
	if s.receiver == nil {
		return slices.Clone(s.args)
	}

	return append([]*VariableReference{s.receiver}, s.args...)
}

func (s *MethodStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *MethodStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *MethodStatement) Replace(old, replacement *VariableReference) {
	if s.receiver != nil {
		replaceRef(&s.receiver, old, replacement)
	}

	for i := range s.args {
		replaceRef(&s.args[i], old, replacement)
	}

	s.replaceInAssertions(old, replacement)
}

func (s *MethodStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *MethodStatement) Clone() Statement {
	return &MethodStatement{
		statementBase: s.cloneBase(),
		method:        s.method,
		receiver:      s.receiver,
		args:          slices.Clone(s.args),
	}
}

func (s *MethodStatement) expr(names *Names) string {
	args := "(" + argList(names, s.method.TakesContext(), s.args, s.method.Params()) + ")"

	if s.method.Static() {
		class := s.method.Class()
		names.Import(class.Package(), class.PackageName())

		return s.method.String() + args
	}

	return names.Name(s.receiver) + "." + s.method.Name() + args
}

func (s *MethodStatement) Code(names *Names) string {
	return declare(names, s.retval, s.expr(names), s.method.ReturnsError())
}

func (s *MethodStatement) CodeWithException(names *Names, err error) string {
	return guard(names, s.retval, s.expr(names), s.method.ReturnsError(), err)
}

func (s *MethodStatement) Validate() error {
	position := s.retval.position

	if s.method.Static() {
		if s.receiver != nil {
			return invalid(position, "static method %s called on a receiver", s.method)
		}
	} else {
		if s.receiver == nil || s.receiver.IsVoid() {
			return invalid(position, "method %s needs a receiver", s.method)
		}

		if !classpath.Assignable(s.receiver.typ, s.method.Receiver()) {
			return invalid(position, "receiver %s is not a %s", s.receiver.typ, s.method.Receiver())
		}
	}

	return validateArgs(position, s.method.String(), s.args, s.method.Params())
}

func (s *MethodStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *MethodStatement) Hash() uint32 { return statementHash(s) }

func (s *MethodStatement) structure() string {
	return fmt.Sprintf("method %s %s.%s[%s](%s)",
		refKey(s.retval), s.method.Class().FullName(), s.method.Name(), refKey(s.receiver), refKeys(s.args))
}

func (s *MethodStatement) rebind(loader classpath.Loader) error {
	class, err := loader.LoadClass(s.method.Class().FullName())
	if err != nil {
		return err
	}

	method, err := class.Method(s.method.Name())
	if err != nil {
		return err
	}

	s.method = method

	return nil
}

func withOutput(ctx context.Context, out io.Writer) context.Context {
	if out == nil {
		return ctx
	}

	return env.WithOutput(ctx, out)
}

func argList(names *Names, takesContext bool, args []*VariableReference, params []reflect.Type) string {
	parts := make([]string, 0, len(args)+1)
	if takesContext {
		parts = append(parts, "t.Context()")
	}

	for i, arg := range args {
		var param reflect.Type
		if i < len(params) {
			param = params[i]
		}

		parts = append(parts, names.Value(arg, param))
	}

	return strings.Join(parts, ", ")
}

func validateArgs(position int, member string, args []*VariableReference, params []reflect.Type) error {
	if len(args) != len(params) {
		return invalid(position, "%s takes %d arguments, got %d", member, len(params), len(args))
	}

	for i, arg := range args {
		if arg == nil || arg.IsVoid() {
			return invalid(position, "argument %d of %s has no value", i, member)
		}

		if !classpath.Assignable(arg.typ, params[i]) {
			return invalid(position, "argument %d of %s: %s is not assignable to %s", i, member, arg.typ, params[i])
		}
	}

	return nil
}
