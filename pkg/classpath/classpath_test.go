package classpath

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gooze.dev/pkg/testsynth/pkg/coverage"
)

var errNegative = errors.New("negative amount")

type counter struct {
	Value int
	Label string
}

func (c *counter) Add(_ context.Context, n int) (int, error) {
	if n < 0 {
		return 0, errNegative
	}

	c.Value += n

	return c.Value, nil
}

func (c *counter) Boom() {
	panic("boom")
}

func testDefinition(init func()) Definition {
	return Definition{
		Package: "example.com/lib/counters",
		Name:    "Counter",
		Instrument: func(p *coverage.Probes) Members {
			add := p.Method("Add")
			limit := new(int)
			*limit = 3

			return Members{
				Type: reflect.TypeFor[*counter](),
				Init: init,
				Constructors: map[string]any{
					"NewCounter": func(start int64) *counter { return &counter{Value: int(start)} },
				},
				Methods: map[string]any{
					"Add": func(c *counter, ctx context.Context, n int) (int, error) {
						add.Enter()
						return c.Add(ctx, n)
					},
					"Boom": (*counter).Boom,
				},
				StaticMethods: map[string]any{
					"Max": func(a, b int) int { return max(a, b) },
				},
				StaticFields: map[string]any{
					"Limit": limit,
				},
			}
		},
	}
}

func newTestLoader(t *testing.T, init func()) *InstrumentingLoader {
	t.Helper()

	registry := NewRegistry()
	require.NoError(t, registry.Register(testDefinition(init)))

	return NewInstrumentingLoader(registry)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(testDefinition(nil)))

	err := registry.Register(testDefinition(nil))
	require.ErrorContains(t, err, "registered twice")

	require.Error(t, registry.Register(Definition{Name: "X"}))
	require.Error(t, registry.Register(Definition{Package: "p", Name: "X"}))

	full, ok := registry.Lookup("example.com/lib/counters.Counter")
	require.True(t, ok)

	short, ok := registry.Lookup("counters.Counter")
	require.True(t, ok)
	assert.Equal(t, full.FullName(), short.FullName())
	assert.Equal(t, "counters", full.PackageName())

	assert.Equal(t, []string{"example.com/lib/counters.Counter"}, registry.Names())
	assert.Len(t, registry.Package("example.com/lib/counters"), 1)
	assert.Empty(t, registry.Package("example.com/lib/other"))
}

func TestLoader_LoadClass(t *testing.T) {
	loader := newTestLoader(t, nil)

	class, err := loader.LoadClass("counters.Counter")
	require.NoError(t, err)

	again, err := loader.LoadClass("example.com/lib/counters.Counter")
	require.NoError(t, err)
	assert.Same(t, class, again)

	assert.Equal(t, "counters.Counter", class.Name())
	assert.Equal(t, "example.com/lib/counters.Counter", class.FullName())
	assert.Equal(t, Loader(loader), class.Loader())

	var methods []string
	for _, m := range class.Methods() {
		methods = append(methods, m.Name())
	}

	var fields []string
	for _, f := range class.Fields() {
		fields = append(fields, f.Name())
	}

	assert.Equal(t, []string{"Add", "Boom", "Max"}, methods)
	assert.Equal(t, []string{"Label", "Limit", "Value"}, fields)

	_, err = class.Method("Missing")
	require.ErrorIs(t, err, ErrNoSuchMember)

	_, err = loader.LoadClass("counters.Missing")
	require.ErrorIs(t, err, ErrClassLoad)

	classes, err := loader.LoadPackage("example.com/lib/counters")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Same(t, class, classes[0])

	_, err = loader.LoadPackage("example.com/lib/none")
	require.ErrorIs(t, err, ErrClassLoad)
}

func TestMembers_Invoke(t *testing.T) {
	loader := newTestLoader(t, nil)
	class, err := loader.LoadClass("counters.Counter")
	require.NoError(t, err)

	ctor, err := class.Constructor("NewCounter")
	require.NoError(t, err)
	assert.Equal(t, "counters.NewCounter", ctor.String())

	// int widens to the int64 parameter.
	obj, err := ctor.Invoke(context.Background(), []reflect.Value{reflect.ValueOf(2)})
	require.NoError(t, err)

	add, err := class.Method("Add")
	require.NoError(t, err)
	assert.True(t, add.TakesContext())
	assert.True(t, add.ReturnsError())
	assert.Equal(t, "counters.Counter.Add", add.String())

	out, err := add.Invoke(context.Background(), obj, []reflect.Value{reflect.ValueOf(5)})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Interface())
	assert.True(t, loader.Tracker().Snapshot().IsCovered(coverage.MethodGoalID("counters.Counter", "Add")))

	_, err = add.Invoke(context.Background(), obj, []reflect.Value{reflect.ValueOf(-1)})
	require.ErrorIs(t, err, errNegative)
	assert.Equal(t, "error:*errors.errorString", ExceptionKind(err))

	_, err = add.Invoke(context.Background(), obj, nil)
	require.ErrorContains(t, err, "want 1 arguments, got 0")

	_, err = add.Invoke(context.Background(), reflect.Value{}, []reflect.Value{reflect.ValueOf(1)})
	require.ErrorIs(t, err, ErrNilReceiver)

	boom, err := class.Method("Boom")
	require.NoError(t, err)

	_, err = boom.Invoke(context.Background(), obj, nil)

	var invocation *InvocationError
	require.ErrorAs(t, err, &invocation)
	assert.True(t, invocation.Panicked)
	assert.NotEmpty(t, invocation.Stack)
	assert.Equal(t, "panic:string", ExceptionKind(err))

	maxMethod, err := class.Method("Max")
	require.NoError(t, err)
	assert.True(t, maxMethod.Static())
	assert.Equal(t, "counters.Max", maxMethod.String())

	out, err = maxMethod.Invoke(context.Background(), reflect.Value{}, []reflect.Value{reflect.ValueOf(3), reflect.ValueOf(9)})
	require.NoError(t, err)
	assert.Equal(t, 9, out.Interface())
}

func TestFields(t *testing.T) {
	loader := newTestLoader(t, nil)
	class, err := loader.LoadClass("counters.Counter")
	require.NoError(t, err)

	obj := reflect.ValueOf(&counter{Value: 4})

	value, err := class.Field("Value")
	require.NoError(t, err)
	assert.False(t, value.Static())

	got, err := value.Get(obj)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Interface())

	require.NoError(t, value.Set(obj, reflect.ValueOf(int8(6))))
	assert.Equal(t, 6, obj.Interface().(*counter).Value)

	err = value.Set(obj, reflect.ValueOf("six"))
	require.ErrorContains(t, err, "cannot use string as int")

	_, err = value.Get(reflect.Zero(reflect.TypeFor[*counter]()))
	require.ErrorIs(t, err, ErrNilReceiver)

	limit, err := class.Field("Limit")
	require.NoError(t, err)
	assert.True(t, limit.Static())

	require.NoError(t, limit.Set(reflect.Value{}, reflect.ValueOf(10)))

	got, err = limit.Get(reflect.Value{})
	require.NoError(t, err)
	assert.Equal(t, 10, got.Interface())

	// Static state is owned by the loader.
	other := newTestLoader(t, nil)
	otherClass, err := other.LoadClass("counters.Counter")
	require.NoError(t, err)

	otherLimit, err := otherClass.Field("Limit")
	require.NoError(t, err)

	got, err = otherLimit.Get(reflect.Value{})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Interface())
}

func TestClass_InitializerFailure(t *testing.T) {
	runs := 0
	loader := newTestLoader(t, func() {
		runs++
		panic("cannot initialize")
	})

	class, err := loader.LoadClass("counters.Counter")
	require.NoError(t, err, "loading does not run the initializer")

	maxMethod, err := class.Method("Max")
	require.NoError(t, err)

	args := []reflect.Value{reflect.ValueOf(1), reflect.ValueOf(2)}

	_, err = maxMethod.Invoke(context.Background(), reflect.Value{}, args)
	require.ErrorIs(t, err, ErrInitializerFailed)
	assert.Equal(t, "initializer-failed", ExceptionKind(err))

	_, err = maxMethod.Invoke(context.Background(), reflect.Value{}, args)

	var initErr *InitializerError
	require.ErrorAs(t, err, &initErr)
	assert.True(t, initErr.Repeated)
	assert.Equal(t, 1, runs)
}

func TestClass_InitializerStillRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	loader := newTestLoader(t, func() {
		close(started)
		<-release
	})

	class, err := loader.LoadClass("counters.Counter")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- class.Initialize() }()

	<-started

	err = class.Initialize()
	require.ErrorIs(t, err, ErrInitializerRunning)
	require.ErrorIs(t, err, ErrInitializerFailed)

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, class.Initialize())
}

func TestLoader_Reload(t *testing.T) {
	loader := newTestLoader(t, nil)
	assert.Len(t, loader.ID(), 36)

	class, err := loader.LoadClass("counters.Counter")
	require.NoError(t, err)

	limit, err := class.Field("Limit")
	require.NoError(t, err)
	require.NoError(t, limit.Set(reflect.Value{}, reflect.ValueOf(10)))

	add, err := class.Method("Add")
	require.NoError(t, err)

	obj := reflect.ValueOf(&counter{})
	retired := loader.Tracker()

	loader.Reload()

	assert.True(t, retired.Retired())
	assert.Equal(t, retired.Goals(coverage.Method), loader.Tracker().Goals(coverage.Method))

	// Code still holding the old class reports nowhere.
	_, err = add.Invoke(context.Background(), obj, []reflect.Value{reflect.ValueOf(1)})
	require.NoError(t, err)
	assert.Empty(t, loader.Tracker().Snapshot().CoveredIDs())
	assert.Empty(t, retired.Snapshot().CoveredIDs())

	reloaded, err := loader.LoadClass("counters.Counter")
	require.NoError(t, err)
	assert.NotSame(t, class, reloaded)

	freshLimit, err := reloaded.Field("Limit")
	require.NoError(t, err)

	got, err := freshLimit.Get(reflect.Value{})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Interface())

	freshAdd, err := reloaded.Method("Add")
	require.NoError(t, err)

	_, err = freshAdd.Invoke(context.Background(), obj, []reflect.Value{reflect.ValueOf(1)})
	require.NoError(t, err)
	assert.Equal(t, []coverage.GoalID{coverage.MethodGoalID("counters.Counter", "Add")}, loader.Tracker().Snapshot().CoveredIDs())
}

func TestCoerce(t *testing.T) {
	var nilErr error

	tests := []struct {
		name    string
		value   reflect.Value
		to      reflect.Type
		want    any
		wantErr bool
	}{
		{name: "same type", value: reflect.ValueOf(3), to: reflect.TypeFor[int](), want: 3},
		{name: "int8 to int", value: reflect.ValueOf(int8(3)), to: reflect.TypeFor[int](), want: 3},
		{name: "uint8 to int16", value: reflect.ValueOf(uint8(3)), to: reflect.TypeFor[int16](), want: int16(3)},
		{name: "int to float64", value: reflect.ValueOf(3), to: reflect.TypeFor[float64](), want: 3.0},
		{name: "float32 to float64", value: reflect.ValueOf(float32(1.5)), to: reflect.TypeFor[float64](), want: 1.5},
		{name: "nil to pointer", value: reflect.Value{}, to: reflect.TypeFor[*counter](), want: (*counter)(nil)},
		{name: "nil to interface", value: reflect.Value{}, to: reflect.TypeFor[error](), want: nilErr},
		{name: "nil to int", value: reflect.Value{}, to: reflect.TypeFor[int](), wantErr: true},
		{name: "int64 to int32", value: reflect.ValueOf(int64(3)), to: reflect.TypeFor[int32](), wantErr: true},
		{name: "int to uint", value: reflect.ValueOf(3), to: reflect.TypeFor[uint](), wantErr: true},
		{name: "float to int", value: reflect.ValueOf(1.0), to: reflect.TypeFor[int](), wantErr: true},
		{name: "string to int", value: reflect.ValueOf("3"), to: reflect.TypeFor[int](), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, tt.value.IsValid() && Assignable(tt.value.Type(), tt.to))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Type())
			assert.Equal(t, tt.want, got.Interface())
		})
	}
}

func TestNillable(t *testing.T) {
	assert.True(t, Nillable(reflect.TypeFor[*counter]()))
	assert.True(t, Nillable(reflect.TypeFor[[]int]()))
	assert.True(t, Nillable(reflect.TypeFor[error]()))
	assert.False(t, Nillable(reflect.TypeFor[int]()))
	assert.False(t, Nillable(nil))
}
