package testcase

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testsynth/examples/targets"
	"gooze.dev/pkg/testsynth/pkg/classpath"
)

func loadClass(t *testing.T, name string) *classpath.Class {
	t.Helper()

	class, err := classpath.NewInstrumentingLoader(nil).LoadClass(name)
	require.NoError(t, err)

	return class
}

func dialogCase(t *testing.T, arg int) *TestCase {
	t.Helper()

	class := loadClass(t, "targets.ShowInternalMessageDialogExample")
	ctor, err := class.Constructor("NewShowInternalMessageDialogExample")
	require.NoError(t, err)
	show, err := class.Method("ShowInternalMessageDialog")
	require.NoError(t, err)

	b := NewBuilder()
	example, err := b.AppendConstructor(ctor)
	require.NoError(t, err)
	value := b.AppendIntPrimitive(arg)
	_, err = b.AppendMethod(example, show, value)
	require.NoError(t, err)

	return b.TestCase()
}

func accountCase(t *testing.T) (*TestCase, *classpath.Class) {
	t.Helper()

	class := loadClass(t, "targets.Account")
	open, err := class.Constructor("NewAccount")
	require.NoError(t, err)
	deposit, err := class.Method("Deposit")
	require.NoError(t, err)

	b := NewBuilder()
	owner := b.AppendStringPrimitive("ada")
	balance := b.AppendIntPrimitive(10)
	account, err := b.AppendConstructor(open, owner, balance)
	require.NoError(t, err)
	_, err = b.AppendMethod(account, deposit, balance)
	require.NoError(t, err)

	return b.TestCase(), class
}

func TestTestCase_InsertShiftsLaterPositions(t *testing.T) {
	class := loadClass(t, "targets.ShowInternalMessageDialogExample")
	ctor, err := class.Constructor("NewShowInternalMessageDialogExample")
	require.NoError(t, err)
	show, err := class.Method("ShowInternalMessageDialog")
	require.NoError(t, err)

	b := NewBuilder()
	one := b.AppendIntPrimitive(1)
	example, err := b.AppendConstructor(ctor)
	require.NoError(t, err)
	call, err := b.AppendMethod(example, show, one)
	require.NoError(t, err)

	tc := b.TestCase()

	seven, err := tc.Insert(0, NewPrimitiveStatement(7))
	require.NoError(t, err)

	assert.Equal(t, 0, seven.Position())
	assert.Equal(t, 1, one.Position())
	assert.Equal(t, 2, example.Position())
	assert.Equal(t, 3, call.Position())

	inputs := tc.Get(3).Inputs()
	require.Len(t, inputs, 2)
	assert.Same(t, example, inputs[0])
	assert.Same(t, one, inputs[1])
	assert.Equal(t, 1, inputs[1].Position())
	assert.NoError(t, tc.Validate())
}

func TestTestCase_InsertRejections(t *testing.T) {
	tc := dialogCase(t, 1)
	foreign := NewBuilder().AppendIntPrimitive(3)
	show := tc.Get(2).(*MethodStatement).Method()

	tests := []struct {
		name      string
		position  int
		statement Statement
	}{
		{name: "negative position", position: -1, statement: NewPrimitiveStatement(1)},
		{name: "past the end", position: 4, statement: NewPrimitiveStatement(1)},
		{name: "nil statement", position: 0, statement: nil},
		{name: "already present", position: 0, statement: tc.Get(1)},
		{name: "input from another test case", position: 3, statement: NewMethodStatement(tc.Get(0).ReturnValue(), show, foreign)},
		{name: "input produced later", position: 0, statement: NewMethodStatement(tc.Get(0).ReturnValue(), show, tc.Get(1).ReturnValue())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tc.Clone()

			_, err := tc.Insert(tt.position, tt.statement)

			require.ErrorIs(t, err, ErrValidation)
			assert.True(t, before.Equals(tc))
			assert.NoError(t, tc.Validate())
		})
	}
}

func TestTestCase_InsertThenRemoveRestoresStructure(t *testing.T) {
	tc, _ := accountCase(t)
	original := tc.Clone()

	for position := 0; position <= tc.Size(); position++ {
		_, err := tc.Insert(position, NewPrimitiveStatement(99))
		require.NoError(t, err)
		require.NoError(t, tc.Remove(position, RemoveReject))

		assert.True(t, original.Equals(tc), "insert and remove at %d", position)
		assert.Equal(t, original.Hash(), tc.Hash())
	}
}

func TestTestCase_Remove(t *testing.T) {
	tests := []struct {
		name     string
		position int
		policy   RemovalPolicy
		wantErr  bool
		wantSize int
	}{
		{name: "reject read value", position: 1, policy: RemoveReject, wantErr: true, wantSize: 4},
		{name: "reject unread value", position: 3, policy: RemoveReject, wantSize: 3},
		{name: "cascade", position: 1, policy: RemoveCascade, wantSize: 1},
		{name: "cascade from constructor", position: 2, policy: RemoveCascade, wantSize: 2},
		{name: "rewrite without compatible producer", position: 0, policy: RemoveRewrite, wantErr: true, wantSize: 4},
		{name: "out of range", position: 4, policy: RemoveCascade, wantErr: true, wantSize: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, _ := accountCase(t)
			before := tc.Clone()

			err := tc.Remove(tt.position, tt.policy)

			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				assert.True(t, before.Equals(tc))
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantSize, tc.Size())
			assert.NoError(t, tc.Validate())
		})
	}
}

func TestTestCase_RemoveRewrite(t *testing.T) {
	class := loadClass(t, "targets.Account")
	open, err := class.Constructor("NewAccount")
	require.NoError(t, err)

	b := NewBuilder()
	owner := b.AppendStringPrimitive("ada")
	first := b.AppendIntPrimitive(1)
	second := b.AppendIntPrimitive(2)
	_, err = b.AppendConstructor(open, owner, second)
	require.NoError(t, err)

	tc := b.TestCase()

	require.NoError(t, tc.Remove(second.Position(), RemoveRewrite))

	require.Equal(t, 3, tc.Size())
	inputs := tc.Get(2).Inputs()
	assert.Same(t, first, inputs[1])
	assert.NoError(t, tc.Validate())
}

func TestTestCase_RemoveCascadeDropsAssertions(t *testing.T) {
	tc, _ := accountCase(t)
	account := tc.Get(2).ReturnValue()
	balance := tc.Get(3).ReturnValue()

	require.NoError(t, tc.AddAssertion(NewNullAssertion(account, false)))
	require.NoError(t, tc.AddAssertion(NewEqualsAssertion(balance, 20)))

	require.NoError(t, tc.Remove(2, RemoveCascade))

	assert.Equal(t, 2, tc.Size())
	for _, s := range tc.All() {
		assert.False(t, s.HasAssertions())
	}
}

func TestTestCase_CloneIndependence(t *testing.T) {
	tc, class := accountCase(t)
	require.NoError(t, tc.AddAssertion(NewEqualsAssertion(tc.Get(3).ReturnValue(), 20)))

	original := tc.Clone()
	clone := tc.Clone()

	require.True(t, clone.Equals(tc))
	assert.Equal(t, tc.Hash(), clone.Hash())

	for i := range clone.Size() {
		assert.NotSame(t, tc.Get(i), clone.Get(i))
		assert.NotSame(t, tc.Get(i).ReturnValue(), clone.Get(i).ReturnValue())
	}

	withdraw, err := class.Method("Withdraw")
	require.NoError(t, err)

	_, err = clone.Append(NewMethodStatement(clone.Get(2).ReturnValue(), withdraw, clone.Get(1).ReturnValue()))
	require.NoError(t, err)

	clone.Get(3).RemoveAssertions()
	require.NoError(t, clone.AddAssertion(NewEqualsAssertion(clone.Get(3).ReturnValue(), 21)))
	require.NoError(t, clone.Get(0).(*PrimitiveStatement).SetValue("grace"))

	assert.True(t, original.Equals(tc))
	assert.False(t, clone.Equals(tc))
	assert.Equal(t, 4, tc.Size())
	assert.Equal(t, "ada", tc.Get(0).(*PrimitiveStatement).Value())
	assert.NoError(t, tc.Validate())
	assert.NoError(t, clone.Validate())
}

func TestTestCase_EqualsIgnoresAssertionOrder(t *testing.T) {
	left, _ := accountCase(t)
	right, _ := accountCase(t)
	account := func(tc *TestCase) *VariableReference { return tc.Get(2).ReturnValue() }
	deposit := func(tc *TestCase) *VariableReference { return tc.Get(3).ReturnValue() }

	require.NoError(t, left.AddAssertion(NewNullAssertion(account(left), false)))
	require.NoError(t, left.AddAssertion(NewEqualsAssertion(deposit(left), 20)))
	require.NoError(t, right.AddAssertion(NewEqualsAssertion(deposit(right), 20)))
	require.NoError(t, right.AddAssertion(NewNullAssertion(account(right), false)))

	assert.True(t, left.Equals(right))
	assert.Equal(t, left.Hash(), right.Hash())
}

func TestTestCase_Replace(t *testing.T) {
	tc, _ := accountCase(t)

	require.NoError(t, tc.Replace(1, NewPrimitiveStatement(25)))
	assert.Equal(t, 25, tc.Get(1).(*PrimitiveStatement).Value())
	assert.Same(t, tc.Get(1).ReturnValue(), tc.Get(2).Inputs()[1])

	before := tc.Clone()
	err := tc.Replace(1, NewPrimitiveStatement("not a number"))

	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, before.Equals(tc))
}

func TestTestCase_Substitute(t *testing.T) {
	tc, _ := accountCase(t)
	owner := tc.Get(0).ReturnValue()
	balance := tc.Get(1).ReturnValue()

	err := tc.Substitute(balance, owner)
	require.ErrorIs(t, err, ErrValidation)

	extra, err := tc.Insert(1, NewPrimitiveStatement(3))
	require.NoError(t, err)
	require.NoError(t, tc.Substitute(balance, extra))

	assert.Same(t, extra, tc.Get(3).Inputs()[1])
	assert.Same(t, extra, tc.Get(4).Inputs()[1])
	assert.NoError(t, tc.Validate())
}

func TestTestCase_AddAssertionRejections(t *testing.T) {
	tc, _ := accountCase(t)
	owner := tc.Get(0).ReturnValue()
	account := tc.Get(2).ReturnValue()

	tests := []struct {
		name      string
		assertion Assertion
	}{
		{name: "foreign source", assertion: NewNullAssertion(NewBuilder().AppendIntPrimitive(1), true)},
		{name: "nil on int", assertion: NewNullAssertion(tc.Get(1).ReturnValue(), true)},
		{name: "equality on pointer", assertion: NewEqualsAssertion(account, 1)},
		{name: "same on string", assertion: NewSameAssertion(owner, account, true)},
		{name: "delta on string", assertion: NewInDeltaAssertion(owner, 1, 0.1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tc.AddAssertion(tt.assertion), ErrValidation)
		})
	}
}

func TestTestCase_ValidateNilReceiver(t *testing.T) {
	class := loadClass(t, "targets.Account")
	deposit, err := class.Method("Deposit")
	require.NoError(t, err)

	b := NewBuilder()
	account, err := b.AppendNull(reflect.TypeFor[*targets.Account]())
	require.NoError(t, err)
	amount := b.AppendIntPrimitive(1)

	_, err = b.AppendMethod(account, deposit, amount)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, 2, validation.Position)
}
