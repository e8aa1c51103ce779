package testcase

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/spaolacci/murmur3"

	"gooze.dev/pkg/testsynth/pkg/classpath"
	"gooze.dev/pkg/testsynth/pkg/coverage"
)

// RemovalPolicy decides what happens to statements reading a removed value.
type RemovalPolicy int

const (
	// RemoveReject refuses to remove a statement whose value is read.
	RemoveReject RemovalPolicy = iota
	// RemoveCascade also removes every statement reading the value,
	// transitively.
	RemoveCascade
	// RemoveRewrite points readers at the nearest earlier value of a
	// compatible type.
	RemoveRewrite
)

func (p RemovalPolicy) String() string {
	switch p {
	case RemoveReject:
		return "reject"
	case RemoveCascade:
		return "cascade"
	case RemoveRewrite:
		return "rewrite"
	}

	return fmt.Sprintf("RemovalPolicy(%d)", int(p))
}

// TestCase is an ordered sequence of statements. The statement at index i
// produces the value at position i and reads only values at positions < i.
type TestCase struct {
	statements []Statement
	covered    []coverage.GoalID
}

// New returns an empty test case.
func New() *TestCase {
	return &TestCase{}
}

// Size returns the number of statements.
func (tc *TestCase) Size() int {
	return len(tc.statements)
}

// Get returns the statement at position.
func (tc *TestCase) Get(position int) Statement {
	return tc.statements[position]
}

// All iterates over the statements in order.
func (tc *TestCase) All() iter.Seq2[int, Statement] {
	return func(yield func(int, Statement) bool) {
		for i, s := range tc.statements {
			if !yield(i, s) {
				return
			}
		}
	}
}

// Append adds s at the end and returns its value.
func (tc *TestCase) Append(s Statement) (*VariableReference, error) {
	return tc.Insert(len(tc.statements), s)
}

// Insert adds s at position, shifting every later value by one. A rejected
// insertion leaves the test case unchanged.
func (tc *TestCase) Insert(position int, s Statement) (*VariableReference, error) {
	if position < 0 || position > len(tc.statements) {
		return nil, invalid(-1, "insert position %d out of range [0,%d]", position, len(tc.statements))
	}

	if s == nil || isNilStatement(s) {
		return nil, invalid(position, "nil statement")
	}

	if slices.Contains(tc.statements, s) {
		return nil, invalid(position, "statement is already part of the test case")
	}

	previous := s.ReturnValue().position
	s.ReturnValue().position = position

	if err := tc.admit(position, s); err != nil {
		s.ReturnValue().position = previous
		return nil, err
	}

	adjustAll(tc.references(), position, 1)

	tc.statements = slices.Insert(tc.statements, position, s)

	return s.ReturnValue(), nil
}

// admit checks s as the statement at position against the statements
// before it.
func (tc *TestCase) admit(position int, s Statement) error {
	if err := s.Validate(); err != nil {
		return err
	}

	for _, ref := range s.Inputs() {
		if !tc.owns(ref) || ref.position >= position {
			return invalid(position, "input %s is not produced earlier in the test case", refKey(ref))
		}
	}

	for _, a := range s.Assertions() {
		for _, ref := range a.References() {
			if ref != s.ReturnValue() && (!tc.owns(ref) || ref.position >= position) {
				return invalid(position, "assertion reads %s which is not produced earlier", refKey(ref))
			}
		}
	}

	if receiver := receiverOf(s); receiver != nil && tc.owns(receiver) {
		if _, isNull := tc.statements[receiver.position].(*NullStatement); isNull {
			return invalid(position, "receiver %s is always nil", refKey(receiver))
		}
	}

	return nil
}

// Remove deletes the statement at position. Statements reading its value
// are handled according to policy. A failed removal leaves the test case
// unchanged.
func (tc *TestCase) Remove(position int, policy RemovalPolicy) error {
	if position < 0 || position >= len(tc.statements) {
		return invalid(-1, "remove position %d out of range [0,%d)", position, len(tc.statements))
	}

	removed := tc.statements[position].ReturnValue()
	readers := tc.readersOf(removed)

	switch policy {
	case RemoveReject:
		if len(readers) > 0 || tc.assertedElsewhere(removed) {
			return invalid(position, "value is read by statement %d", tc.firstUse(removed))
		}

		tc.removeAt(position)
	case RemoveCascade:
		tc.cascade(position)
	case RemoveRewrite:
		if err := tc.rewrite(position); err != nil {
			return err
		}

		tc.removeAt(position)
	default:
		return invalid(position, "unknown removal policy %v", policy)
	}

	return nil
}

func (tc *TestCase) cascade(position int) {
	doomed := map[*VariableReference]bool{tc.statements[position].ReturnValue(): true}
	positions := []int{position}

	for i := position + 1; i < len(tc.statements); i++ {
		s := tc.statements[i]
		if slices.ContainsFunc(s.Inputs(), func(ref *VariableReference) bool { return doomed[ref] }) {
			doomed[s.ReturnValue()] = true
			positions = append(positions, i)
		}
	}

	for _, s := range tc.statements {
		for _, a := range s.Assertions() {
			if slices.ContainsFunc(a.References(), func(ref *VariableReference) bool { return doomed[ref] }) {
				s.RemoveAssertion(a)
			}
		}
	}

	slices.Reverse(positions)

	for _, p := range positions {
		tc.removeAt(p)
	}

	slog.Debug("cascading removal", "position", position, "removed", len(positions))
}

func (tc *TestCase) rewrite(position int) error {
	removed := tc.statements[position].ReturnValue()
	if tc.firstUse(removed) < 0 {
		return nil
	}

	replacement := tc.compatibleProducer(position, removed)
	if replacement == nil {
		return invalid(position, "no earlier value can replace %s", refKey(removed))
	}

	if err := tc.trySubstitute(removed, replacement, position+1); err != nil {
		return err
	}

	tc.substitute(removed, replacement, position+1)

	return nil
}

// compatibleProducer returns the nearest value before position that can
// stand in for ref.
func (tc *TestCase) compatibleProducer(position int, ref *VariableReference) *VariableReference {
	for i := position - 1; i >= 0; i-- {
		candidate := tc.statements[i].ReturnValue()
		if candidate.IsVoid() || !classpath.Assignable(candidate.typ, ref.typ) {
			continue
		}

		return candidate
	}

	return nil
}

func (tc *TestCase) removeAt(position int) {
	tc.statements = slices.Delete(tc.statements, position, position+1)
	adjustAll(tc.references(), position+1, -1)
}

// Replace swaps the statement at position for s. Readers of the old value
// read the new one, which must be type compatible.
func (tc *TestCase) Replace(position int, s Statement) error {
	if position < 0 || position >= len(tc.statements) {
		return invalid(-1, "replace position %d out of range [0,%d)", position, len(tc.statements))
	}

	if s == nil || isNilStatement(s) {
		return invalid(position, "nil statement")
	}

	old := tc.statements[position].ReturnValue()
	previous := s.ReturnValue().position
	s.ReturnValue().position = position

	if err := tc.admit(position, s); err != nil {
		s.ReturnValue().position = previous
		return err
	}

	if tc.firstUse(old) >= 0 {
		if s.ReturnValue().IsVoid() || !classpath.Assignable(s.ReturnType(), old.typ) {
			s.ReturnValue().position = previous
			return invalid(position, "replacement value %v cannot stand in for %s", s.ReturnType(), refKey(old))
		}

		if err := tc.trySubstitute(old, s.ReturnValue(), position+1); err != nil {
			s.ReturnValue().position = previous
			return err
		}

		tc.substitute(old, s.ReturnValue(), position+1)
	}

	tc.statements[position] = s

	return nil
}

// Substitute makes every statement reading old read replacement instead.
func (tc *TestCase) Substitute(old, replacement *VariableReference) error {
	if !tc.owns(old) || !tc.owns(replacement) {
		return invalid(-1, "references do not belong to the test case")
	}

	if replacement.IsVoid() || !classpath.Assignable(replacement.typ, old.typ) {
		return invalid(-1, "%s cannot stand in for %s", refKey(replacement), refKey(old))
	}

	if first := tc.firstUse(old); first >= 0 && first <= replacement.position {
		return invalid(first, "%s is produced after its use", refKey(replacement))
	}

	if err := tc.trySubstitute(old, replacement, old.position+1); err != nil {
		return err
	}

	tc.substitute(old, replacement, old.position+1)

	return nil
}

// trySubstitute validates the substitution on copies of the affected
// statements.
func (tc *TestCase) trySubstitute(old, replacement *VariableReference, from int) error {
	for i := from; i < len(tc.statements); i++ {
		s := tc.statements[i]
		if !s.References(old) && !assertsOn(s, old) {
			continue
		}

		probe := s.Clone()
		probe.ReturnValue().position = i
		probe.Replace(old, replacement)

		if err := probe.Validate(); err != nil {
			return err
		}

		if receiver := receiverOf(probe); receiver == replacement {
			if _, isNull := tc.statements[replacement.position].(*NullStatement); isNull {
				return invalid(i, "receiver %s is always nil", refKey(replacement))
			}
		}
	}

	return nil
}

func (tc *TestCase) substitute(old, replacement *VariableReference, from int) {
	for i := from; i < len(tc.statements); i++ {
		tc.statements[i].Replace(old, replacement)
	}
}

// AddAssertion attaches a to the statement producing its source.
func (tc *TestCase) AddAssertion(a Assertion) error {
	if a == nil || isNilAssertion(a) {
		slog.Warn("ignoring nil assertion")
		return nil
	}

	source := a.Source()
	if !tc.owns(source) {
		return invalid(-1, "assertion source %s does not belong to the test case", refKey(source))
	}

	for _, ref := range a.References() {
		if !tc.owns(ref) || ref.position > source.position {
			return invalid(source.position, "assertion reads %s which is not available", refKey(ref))
		}
	}

	if err := validateAssertion(a); err != nil {
		return invalid(source.position, "%v", err)
	}

	tc.statements[source.position].AddAssertion(a)

	return nil
}

// Clone returns a deep copy whose statements read the copy's values.
func (tc *TestCase) Clone() *TestCase {
	clone := &TestCase{
		statements: make([]Statement, 0, len(tc.statements)),
		covered:    slices.Clone(tc.covered),
	}

	mapping := make(map[*VariableReference]*VariableReference, len(tc.statements))

	for _, s := range tc.statements {
		c := s.Clone()
		mapping[s.ReturnValue()] = c.ReturnValue()
		clone.statements = append(clone.statements, c)
	}

	for _, c := range clone.statements {
		refs := c.Inputs()
		for _, a := range c.Assertions() {
			refs = append(refs, a.References()...)
		}

		for _, ref := range refs {
			if mapped, ok := mapping[ref]; ok {
				c.Replace(ref, mapped)
			}
		}
	}

	return clone
}

// Equals compares statements in order, structurally.
func (tc *TestCase) Equals(other *TestCase) bool {
	if other == nil || len(tc.statements) != len(other.statements) {
		return false
	}

	for i, s := range tc.statements {
		if !s.Equals(other.statements[i]) {
			return false
		}
	}

	return true
}

// Hash is consistent with Equals.
func (tc *TestCase) Hash() uint32 {
	h := murmur3.New32()

	for _, s := range tc.statements {
		_, _ = h.Write([]byte(s.structure()))
		_, _ = h.Write([]byte{'\n'})
	}

	return h.Sum32()
}

// Validate checks every statement and the reference graph.
func (tc *TestCase) Validate() error {
	for i, s := range tc.statements {
		if s.ReturnValue().position != i {
			return invalid(i, "return value at position %d", s.ReturnValue().position)
		}

		if err := tc.admit(i, s); err != nil {
			return err
		}

		for _, a := range s.Assertions() {
			if err := validateAssertion(a); err != nil {
				return invalid(i, "%v", err)
			}
		}
	}

	return nil
}

// IsValid reports whether Validate succeeds.
func (tc *TestCase) IsValid() bool {
	return tc.Validate() == nil
}

// Rebind resolves every member against loader. Classes keep their names;
// their state and coverage come from the new loader.
func (tc *TestCase) Rebind(loader classpath.Loader) error {
	for i, s := range tc.statements {
		if err := s.rebind(loader); err != nil {
			return fmt.Errorf("rebind statement %d: %w", i, err)
		}
	}

	return nil
}

// CoveredGoals returns the goals covered by the last evaluation.
func (tc *TestCase) CoveredGoals() []coverage.GoalID {
	return slices.Clone(tc.covered)
}

// SetCoveredGoals records the goals covered by an evaluation.
func (tc *TestCase) SetCoveredGoals(goals []coverage.GoalID) {
	tc.covered = slices.Clone(goals)
}

// Code renders the test case as the body of a Go test function.
func (tc *TestCase) Code() string {
	return tc.CodeWith(NewNames())
}

// CodeWith renders the body using names, which collects the imports.
func (tc *TestCase) CodeWith(names *Names) string {
	for _, s := range tc.statements {
		for _, ref := range readsOf(s) {
			names.markRead(ref)
		}

		for _, a := range s.Assertions() {
			if _, rendersInline := a.(*ExceptionAssertion); rendersInline {
				continue
			}

			for _, ref := range a.References() {
				names.markRead(ref)
			}
		}
	}

	lines := make([]string, 0, len(tc.statements))

	for _, s := range tc.statements {
		lines = append(lines, statementCode(names, s))

		if code := s.AssertionCode(names); code != "" {
			lines = append(lines, code)
		}

		if ret := s.ReturnValue(); !ret.IsVoid() && !names.Reads(ret) {
			lines = append(lines, "_ = "+names.Name(ret))
		}
	}

	return strings.Join(lines, "\n")
}

func (tc *TestCase) String() string {
	return tc.Code()
}

func statementCode(names *Names, s Statement) string {
	for _, a := range s.Assertions() {
		if exception, ok := a.(*ExceptionAssertion); ok {
			return s.CodeWithException(names, exception.err())
		}
	}

	if err := s.ExceptionThrown(); renderable(err) {
		return s.CodeWithException(names, err)
	}

	return s.Code(names)
}

func renderable(err error) bool {
	var invocation *classpath.InvocationError
	var initializer *classpath.InitializerError

	return errors.As(err, &invocation) || errors.As(err, &initializer)
}

func (tc *TestCase) owns(ref *VariableReference) bool {
	if ref == nil || ref.position < 0 || ref.position >= len(tc.statements) {
		return false
	}

	return tc.statements[ref.position].ReturnValue() == ref
}

// references returns the distinct references held by the test case.
func (tc *TestCase) references() []*VariableReference {
	var refs []*VariableReference

	for _, s := range tc.statements {
		refs = append(refs, s.VariableReferences()...)
		for _, a := range s.Assertions() {
			refs = append(refs, a.References()...)
		}
	}

	return refs
}

func (tc *TestCase) readersOf(ref *VariableReference) []int {
	var readers []int

	for i, s := range tc.statements {
		if slices.Contains(s.Inputs(), ref) {
			readers = append(readers, i)
		}
	}

	return readers
}

func (tc *TestCase) assertedElsewhere(ref *VariableReference) bool {
	for i, s := range tc.statements {
		if i != ref.position && assertsOn(s, ref) {
			return true
		}
	}

	return false
}

// firstUse returns the first position reading ref through an input or an
// assertion of another statement, or -1.
func (tc *TestCase) firstUse(ref *VariableReference) int {
	for i, s := range tc.statements {
		if i == ref.position {
			continue
		}

		if slices.Contains(s.Inputs(), ref) || assertsOn(s, ref) {
			return i
		}
	}

	return -1
}

func assertsOn(s Statement, ref *VariableReference) bool {
	for _, a := range s.Assertions() {
		if slices.Contains(a.References(), ref) {
			return true
		}
	}

	return false
}

func receiverOf(s Statement) *VariableReference {
	switch st := s.(type) {
	case *MethodStatement:
		return st.receiver
	case *FieldReadStatement:
		return st.receiver
	case *FieldWriteStatement:
		return st.receiver
	}

	return nil
}

// readsOf returns the references whose values s reads. The left-hand side of
// an assignment is written, not read.
func readsOf(s Statement) []*VariableReference {
	if assignment, ok := s.(*AssignmentStatement); ok {
		return []*VariableReference{assignment.rhs}
	}

	return s.Inputs()
}

func validateAssertion(a Assertion) error {
	source := a.Source()
	if source == nil {
		return errors.New("assertion without a source")
	}

	if _, ok := a.(*ExceptionAssertion); ok {
		return nil
	}

	if source.IsVoid() {
		return errors.New("assertion on a void value")
	}

	switch assertion := a.(type) {
	case *EqualsAssertion:
		if !assertion.expected.IsValid() || !isBasic(assertion.expected.Type()) {
			return fmt.Errorf("expected value %v is not a basic literal", assertion.expected)
		}

		if !isBasic(source.typ) {
			return fmt.Errorf("equality on non-basic type %s", source.typ)
		}

		if _, err := classpath.Coerce(assertion.expected, source.typ); err != nil {
			return err
		}
	case *NullAssertion:
		if !classpath.Nillable(source.typ) {
			return fmt.Errorf("type %s cannot be nil", source.typ)
		}
	case *SameAssertion:
		if assertion.other == nil || source.typ.Kind() != reflect.Pointer || assertion.other.typ == nil ||
			assertion.other.typ.Kind() != reflect.Pointer {
			return errors.New("identity assertions need two pointers")
		}
	case *InDeltaAssertion:
		if _, ok := asFloat(reflect.Zero(source.typ)); !ok {
			return fmt.Errorf("type %s is not numeric", source.typ)
		}
	}

	return nil
}
