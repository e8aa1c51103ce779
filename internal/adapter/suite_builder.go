package adapter

import (
	"errors"
	"fmt"
	"strings"

	m "gooze.dev/pkg/testsynth/internal/model"
	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// ErrSuiteSpec is returned for malformed suite statements.
var ErrSuiteSpec = errors.New("invalid suite statement")

// BuildSuite turns a YAML suite into test cases through the builder.
func BuildSuite(spec m.SuiteSpec, loader classpath.PackageLoader) ([]testcase.NamedTest, error) {
	tests := make([]testcase.NamedTest, 0, len(spec.Tests))
	seen := map[string]bool{}

	for i, ts := range spec.Tests {
		name := ts.Name
		if name == "" {
			name = fmt.Sprintf("TestSynth%d", i)
		}

		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate test name %s", ErrSuiteSpec, name)
		}

		seen[name] = true

		tc, err := buildTest(ts, loader)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		tests = append(tests, testcase.NamedTest{Name: name, Case: tc})
	}

	return tests, nil
}

type testBuilder struct {
	loader  classpath.Loader
	builder *testcase.Builder
	vars    map[string]*testcase.VariableReference
}

func buildTest(spec m.TestSpec, loader classpath.Loader) (*testcase.TestCase, error) {
	tb := &testBuilder{
		loader:  loader,
		builder: testcase.NewBuilder(),
		vars:    map[string]*testcase.VariableReference{},
	}

	for i, st := range spec.Statements {
		if err := tb.statement(st); err != nil {
			return nil, fmt.Errorf("statement %d: %w", i, err)
		}
	}

	return tb.builder.TestCase(), nil
}

func (tb *testBuilder) statement(st m.StatementSpec) error {
	ref, err := tb.produce(st)
	if err != nil {
		return err
	}

	if st.ID != "" {
		if _, dup := tb.vars[st.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrSuiteSpec, st.ID)
		}

		tb.vars[st.ID] = ref
	}

	if st.Equals != nil {
		if err := tb.builder.Assert(testcase.NewEqualsAssertion(ref, st.Equals)); err != nil {
			return err
		}
	}

	if st.IsNil != nil {
		if err := tb.builder.Assert(testcase.NewNullAssertion(ref, *st.IsNil)); err != nil {
			return err
		}
	}

	return nil
}

func (tb *testBuilder) produce(st m.StatementSpec) (*testcase.VariableReference, error) {
	kinds := 0
	for _, set := range []bool{st.Value != nil, st.Nil != "", st.New != "", st.Call != "", st.Get != "", st.Set != ""} {
		if set {
			kinds++
		}
	}

	if kinds != 1 {
		return nil, fmt.Errorf("%w: exactly one of value, nil, new, call, get or set is required", ErrSuiteSpec)
	}

	switch {
	case st.Value != nil:
		return tb.builder.AppendPrimitive(st.Value)
	case st.Nil != "":
		class, err := tb.loader.LoadClass(st.Nil)
		if err != nil {
			return nil, err
		}

		return tb.builder.AppendNull(class.Type())
	case st.New != "":
		return tb.construct(st)
	case st.Call != "":
		return tb.call(st)
	case st.Get != "":
		receiver, field, err := tb.field(st.On, st.Get)
		if err != nil {
			return nil, err
		}

		return tb.builder.AppendField(receiver, field)
	default:
		receiver, field, err := tb.field(st.On, st.Set)
		if err != nil {
			return nil, err
		}

		value, err := tb.ref(st.From)
		if err != nil {
			return nil, err
		}

		return tb.builder.AppendFieldWrite(receiver, field, value)
	}
}

func (tb *testBuilder) construct(st m.StatementSpec) (*testcase.VariableReference, error) {
	class, member, err := tb.member(st.New)
	if err != nil {
		return nil, err
	}

	ctor, err := class.Constructor(member)
	if err != nil {
		return nil, err
	}

	args, err := tb.refs(st.Args)
	if err != nil {
		return nil, err
	}

	return tb.builder.AppendConstructor(ctor, args...)
}

func (tb *testBuilder) call(st m.StatementSpec) (*testcase.VariableReference, error) {
	args, err := tb.refs(st.Args)
	if err != nil {
		return nil, err
	}

	if st.On == "" {
		class, member, err := tb.member(st.Call)
		if err != nil {
			return nil, err
		}

		method, err := class.Method(member)
		if err != nil {
			return nil, err
		}

		return tb.builder.AppendStatic(method, args...)
	}

	receiver, err := tb.ref(st.On)
	if err != nil {
		return nil, err
	}

	class, err := tb.classOf(receiver)
	if err != nil {
		return nil, err
	}

	method, err := class.Method(st.Call)
	if err != nil {
		return nil, err
	}

	return tb.builder.AppendMethod(receiver, method, args...)
}

func (tb *testBuilder) field(on, name string) (*testcase.VariableReference, *classpath.Field, error) {
	if on == "" {
		class, member, err := tb.member(name)
		if err != nil {
			return nil, nil, err
		}

		field, err := class.Field(member)

		return nil, field, err
	}

	receiver, err := tb.ref(on)
	if err != nil {
		return nil, nil, err
	}

	class, err := tb.classOf(receiver)
	if err != nil {
		return nil, nil, err
	}

	field, err := class.Field(name)

	return receiver, field, err
}

// member splits "pkg.Type.Member" into its class and member name.
func (tb *testBuilder) member(qualified string) (*classpath.Class, string, error) {
	i := strings.LastIndex(qualified, ".")
	if i <= 0 || i == len(qualified)-1 {
		return nil, "", fmt.Errorf("%w: %q is not of the form <pkg>.<Type>.<Member>", ErrSuiteSpec, qualified)
	}

	class, err := tb.loader.LoadClass(qualified[:i])
	if err != nil {
		return nil, "", err
	}

	return class, qualified[i+1:], nil
}

// classOf finds the class whose instances have the receiver's type.
func (tb *testBuilder) classOf(receiver *testcase.VariableReference) (*classpath.Class, error) {
	typ := receiver.Type()
	name := strings.TrimPrefix(typ.String(), "*")

	class, err := tb.loader.LoadClass(name)
	if err != nil {
		return nil, fmt.Errorf("%w: no class for receiver type %s: %w", ErrSuiteSpec, typ, err)
	}

	return class, nil
}

func (tb *testBuilder) ref(id string) (*testcase.VariableReference, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: missing variable id", ErrSuiteSpec)
	}

	ref, ok := tb.vars[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown variable %q", ErrSuiteSpec, id)
	}

	return ref, nil
}

func (tb *testBuilder) refs(ids []string) ([]*testcase.VariableReference, error) {
	refs := make([]*testcase.VariableReference, 0, len(ids))

	for _, id := range ids {
		ref, err := tb.ref(id)
		if err != nil {
			return nil, err
		}

		refs = append(refs, ref)
	}

	return refs, nil
}
