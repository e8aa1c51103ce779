package testcase

import (
	"context"
	"fmt"
	"io"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// AssignmentStatement overwrites the value of lhs with the value of rhs.
type AssignmentStatement struct {
	statementBase

	lhs *VariableReference
	rhs *VariableReference
}

// NewAssignmentStatement returns a statement assigning rhs to lhs.
func NewAssignmentStatement(lhs, rhs *VariableReference) *AssignmentStatement {
	return &AssignmentStatement{statementBase: newBase(nil), lhs: lhs, rhs: rhs}
}

// Lhs returns the assigned reference.
func (s *AssignmentStatement) Lhs() *VariableReference { return s.lhs }

// Rhs returns the assigned value.
func (s *AssignmentStatement) Rhs() *VariableReference { return s.rhs }

func (s *AssignmentStatement) Execute(_ context.Context, scope *Scope, _ io.Writer) error {
	values, err := readInputs(scope, s.retval.position, []*VariableReference{s.lhs, s.rhs})
	if err != nil {
		return err
	}

	if err := scope.Set(s.lhs, values[1]); err != nil {
		return &classpath.InvocationError{Member: "assignment", Cause: err}
	}

	return nil
}

func (s *AssignmentStatement) Inputs() []*VariableReference {
	return []*VariableReference{s.lhs, s.rhs}
}

func (s *AssignmentStatement) VariableReferences() []*VariableReference { return statementRefs(s) }

func (s *AssignmentStatement) References(v *VariableReference) bool { return referencesAny(s, v) }

func (s *AssignmentStatement) Replace(old, replacement *VariableReference) {
	replaceRef(&s.lhs, old, replacement)
	replaceRef(&s.rhs, old, replacement)
	s.replaceInAssertions(old, replacement)
}

func (s *AssignmentStatement) AdjustVariableReferences(position, delta int) {
	adjustAll(s.VariableReferences(), position, delta)
}

func (s *AssignmentStatement) Clone() Statement {
	return &AssignmentStatement{statementBase: s.cloneBase(), lhs: s.lhs, rhs: s.rhs}
}

func (s *AssignmentStatement) Code(names *Names) string {
	return names.Name(s.lhs) + " = " + names.Value(s.rhs, s.lhs.typ)
}

func (s *AssignmentStatement) CodeWithException(names *Names, _ error) string {
	return s.Code(names)
}

func (s *AssignmentStatement) Validate() error {
	if s.lhs == nil || s.lhs.IsVoid() || s.rhs == nil || s.rhs.IsVoid() {
		return invalid(s.retval.position, "assignment needs two values")
	}

	if !classpath.Assignable(s.rhs.typ, s.lhs.typ) {
		return invalid(s.retval.position, "cannot assign %s to %s", s.rhs.typ, s.lhs.typ)
	}

	return nil
}

func (s *AssignmentStatement) Equals(other Statement) bool { return statementEquals(s, other) }

func (s *AssignmentStatement) Hash() uint32 { return statementHash(s) }

func (s *AssignmentStatement) structure() string {
	return fmt.Sprintf("assign %s %s = %s", refKey(s.retval), refKey(s.lhs), refKey(s.rhs))
}

func (s *AssignmentStatement) rebind(classpath.Loader) error { return nil }
