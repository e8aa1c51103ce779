package fitness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "gooze.dev/pkg/testsynth/examples/targets"
	"gooze.dev/pkg/testsynth/internal/engine"
	"gooze.dev/pkg/testsynth/internal/testcase"
	"gooze.dev/pkg/testsynth/pkg/classpath"
	"gooze.dev/pkg/testsynth/pkg/coverage"
)

func dialogTest(t *testing.T, loader classpath.Loader, arg int) *testcase.TestCase {
	t.Helper()

	class, err := loader.LoadClass("targets.ShowInternalMessageDialogExample")
	require.NoError(t, err)
	ctor, err := class.Constructor("NewShowInternalMessageDialogExample")
	require.NoError(t, err)
	show, err := class.Method("ShowInternalMessageDialog")
	require.NoError(t, err)

	b := testcase.NewBuilder()
	example, err := b.AppendConstructor(ctor)
	require.NoError(t, err)
	_, err = b.AppendMethod(example, show, b.AppendIntPrimitive(arg))
	require.NoError(t, err)

	return b.TestCase()
}

func accountTest(t *testing.T, loader classpath.Loader, balance, amount int) *testcase.TestCase {
	t.Helper()

	class, err := loader.LoadClass("targets.Account")
	require.NoError(t, err)
	open, err := class.Constructor("NewAccount")
	require.NoError(t, err)
	withdraw, err := class.Method("Withdraw")
	require.NoError(t, err)

	b := testcase.NewBuilder()
	account, err := b.AppendConstructor(open, b.AppendStringPrimitive("ada"), b.AppendIntPrimitive(balance))
	require.NoError(t, err)
	_, err = b.AppendMethod(account, withdraw, b.AppendIntPrimitive(amount))
	require.NoError(t, err)

	return b.TestCase()
}

func TestBranchFunction_TwoValueCoverage(t *testing.T) {
	loader := classpath.NewInstrumentingLoader(nil)
	e := engine.New(engine.Options{MockEnvironment: true})

	suite := NewSuite(dialogTest(t, loader, 1), dialogTest(t, loader, 0))
	f := NewBranchFunction(e, loader)

	fitness, err := f.Fitness(t.Context(), suite)
	require.NoError(t, err)

	assert.Len(t, suite.CoveredGoals(), 3)
	assert.Equal(t, []coverage.GoalID{
		"branch:targets.ShowInternalMessageDialogExample.ShowInternalMessageDialog:arg == 0:false",
		"branch:targets.ShowInternalMessageDialogExample.ShowInternalMessageDialog:arg == 0:true",
		"method:targets.ShowInternalMessageDialogExample.NewShowInternalMessageDialogExample",
	}, suite.CoveredGoals())
	assert.Zero(t, fitness)
}

func TestBranchFunction_Distance(t *testing.T) {
	loader := classpath.NewInstrumentingLoader(nil)
	e := engine.New(engine.Options{MockEnvironment: true})
	f := NewBranchFunction(e, loader)

	far, err := f.Fitness(t.Context(), NewSuite(dialogTest(t, loader, 9)))
	require.NoError(t, err)
	near, err := f.Fitness(t.Context(), NewSuite(dialogTest(t, loader, 1)))
	require.NoError(t, err)

	assert.InDelta(t, 0.9, far, 1e-9)
	assert.InDelta(t, 0.5, near, 1e-9)
	assert.Less(t, near, far)
}

func TestSuite_Deterministic(t *testing.T) {
	loader := classpath.NewInstrumentingLoader(nil)
	e := engine.New(engine.Options{MockEnvironment: true})
	tests := []*testcase.TestCase{accountTest(t, loader, 5, 7), accountTest(t, loader, 5, 5)}

	f, err := ForCriteria([]coverage.Criterion{coverage.Branch, coverage.Line, coverage.Mutation}, e, loader)
	require.NoError(t, err)

	first := NewSuite(tests...)
	_, err = f.Fitness(t.Context(), first)
	require.NoError(t, err)

	second := NewSuite(tests...)
	_, err = f.Fitness(t.Context(), second)
	require.NoError(t, err)

	assert.Equal(t, first.CoveredGoals(), second.CoveredGoals())
	assert.Contains(t, first.CoveredGoals(), coverage.GoalID("mutation:targets.Account.Withdraw:ROR-gt-ge"))
}

func TestSuite_CachesResults(t *testing.T) {
	loader := classpath.NewInstrumentingLoader(nil)
	e := &countingEngine{Engine: engine.New(engine.Options{MockEnvironment: true})}
	tc := accountTest(t, loader, 5, 7)

	suite := NewSuite(tc, tc.Clone())

	_, err := suite.Execute(t.Context(), e, loader)
	require.NoError(t, err)
	_, err = suite.Execute(t.Context(), e, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(1), e.calls.Load())

	suite.Invalidate()
	_, err = suite.Execute(t.Context(), e, loader)
	require.NoError(t, err)
	assert.Equal(t, int32(2), e.calls.Load())
}

func TestForCriteria(t *testing.T) {
	loader := classpath.NewInstrumentingLoader(nil)
	e := engine.New(engine.Options{MockEnvironment: true})

	tests := []struct {
		name     string
		criteria []coverage.Criterion
		want     string
		wantErr  bool
	}{
		{name: "single", criteria: []coverage.Criterion{coverage.Branch}, want: "branch"},
		{name: "sorted and deduplicated", criteria: []coverage.Criterion{coverage.Line, coverage.Branch, coverage.Line}, want: "branch+line"},
		{name: "empty", wantErr: true},
		{name: "unknown", criteria: []coverage.Criterion{"statement"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ForCriteria(tt.criteria, e, loader)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name())
		})
	}
}

func TestExceptionFunction(t *testing.T) {
	loader := classpath.NewInstrumentingLoader(nil)
	e := engine.New(engine.Options{MockEnvironment: true})
	f := NewExceptionFunction(e, loader)

	suite := NewSuite(accountTest(t, loader, 5, 7), accountTest(t, loader, -1, 1))

	fitness, err := f.Fitness(t.Context(), suite)
	require.NoError(t, err)

	assert.InDelta(t, 1.0/3, fitness, 1e-9)
	assert.Equal(t, []coverage.GoalID{
		"exception:targets.Account.NewAccount:error:*errors.errorString",
		"exception:targets.Account.Withdraw:error:*errors.errorString",
	}, suite.CoveredGoals())
	assert.Len(t, f.Goals(), 2)
}

func TestSuite_PrefetchFillsCache(t *testing.T) {
	loader := classpath.NewInstrumentingLoader(nil)
	e := &countingEngine{Engine: engine.New(engine.Options{MockEnvironment: true})}
	pool := engine.NewPool(e, 2, func() classpath.Loader { return classpath.NewInstrumentingLoader(nil) })

	tests := []*testcase.TestCase{accountTest(t, loader, 5, 7), accountTest(t, loader, 5, 5), accountTest(t, loader, 5, 1)}
	suite := NewSuite(tests...)

	require.NoError(t, suite.Prefetch(t.Context(), pool, loader))
	assert.Equal(t, int32(3), e.calls.Load())

	f, err := ForCriteria([]coverage.Criterion{coverage.Branch}, e, loader)
	require.NoError(t, err)

	fitness, err := f.Fitness(t.Context(), suite)
	require.NoError(t, err)
	assert.Equal(t, int32(3), e.calls.Load())

	sequential := NewSuite(accountTest(t, loader, 5, 7), accountTest(t, loader, 5, 5), accountTest(t, loader, 5, 1))
	want, err := f.Fitness(t.Context(), sequential)
	require.NoError(t, err)

	assert.InDelta(t, want, fitness, 1e-9)
	assert.Equal(t, sequential.CoveredGoals(), suite.CoveredGoals())

	require.NoError(t, suite.Prefetch(t.Context(), pool, loader))
	assert.Equal(t, int32(6), e.calls.Load())
}
