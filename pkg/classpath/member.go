package classpath

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
)

// Member is a constructor, method or field of a loaded class.
type Member interface {
	Class() *Class
	Name() string
	String() string
}

type signature struct {
	fn           reflect.Value
	takesContext bool
	params       []reflect.Type
	result       reflect.Type
	returnsError bool
}

// newSignature inspects fn, skipping the first skip parameters (the receiver
// of methods).
func newSignature(fn any, skip int) (signature, error) {
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func || value.IsNil() {
		return signature{}, fmt.Errorf("%T is not a function", fn)
	}

	fnType := value.Type()
	if fnType.IsVariadic() {
		return signature{}, fmt.Errorf("variadic function %s is not supported", fnType)
	}

	if fnType.NumIn() < skip {
		return signature{}, fmt.Errorf("function %s has no receiver parameter", fnType)
	}

	sig := signature{fn: value}

	first := skip
	if fnType.NumIn() > skip && fnType.In(skip) == contextType {
		sig.takesContext = true
		first++
	}

	for i := first; i < fnType.NumIn(); i++ {
		sig.params = append(sig.params, fnType.In(i))
	}

	switch fnType.NumOut() {
	case 0:
	case 1:
		if fnType.Out(0) == errorType {
			sig.returnsError = true
		} else {
			sig.result = fnType.Out(0)
		}
	case 2:
		if fnType.Out(1) != errorType {
			return signature{}, fmt.Errorf("function %s: second result must be error", fnType)
		}

		sig.result = fnType.Out(0)
		sig.returnsError = true
	default:
		return signature{}, fmt.Errorf("function %s returns too many results", fnType)
	}

	return sig, nil
}

func (s signature) call(ctx context.Context, member string, prefix []reflect.Value, args []reflect.Value) (result reflect.Value, err error) {
	if len(args) != len(s.params) {
		return reflect.Value{}, &InvocationError{
			Member: member,
			Cause:  fmt.Errorf("want %d arguments, got %d", len(s.params), len(args)),
		}
	}

	in := make([]reflect.Value, 0, len(prefix)+len(args)+1)
	in = append(in, prefix...)

	if s.takesContext {
		if ctx == nil {
			ctx = context.Background()
		}

		in = append(in, reflect.ValueOf(&ctx).Elem())
	}

	for i, arg := range args {
		coerced, coerceErr := Coerce(arg, s.params[i])
		if coerceErr != nil {
			return reflect.Value{}, &InvocationError{Member: member, Cause: coerceErr}
		}

		in = append(in, coerced)
	}

	defer func() {
		if r := recover(); r != nil {
			result = reflect.Value{}
			err = &InvocationError{
				Member:   member,
				Cause:    &PanicError{Value: r},
				Panicked: true,
				Stack:    debug.Stack(),
			}
		}
	}()

	out := s.fn.Call(in)

	if s.returnsError {
		last := out[len(out)-1]
		if !last.IsNil() {
			cause, _ := last.Interface().(error)
			return reflect.Value{}, &InvocationError{Member: member, Cause: cause}
		}
	}

	if s.result != nil {
		return out[0], nil
	}

	return reflect.Value{}, nil
}

// Constructor creates instances of its class.
type Constructor struct {
	class *Class
	name  string
	sig   signature
}

// Class returns the declaring class.
func (c *Constructor) Class() *Class { return c.class }

// Name returns the constructor function name.
func (c *Constructor) Name() string { return c.name }

// Params returns the formal parameter types, excluding a context parameter.
func (c *Constructor) Params() []reflect.Type { return c.sig.params }

// TakesContext reports whether the statement context is passed in.
func (c *Constructor) TakesContext() bool { return c.sig.takesContext }

// ReturnsError reports whether the constructor has a trailing error result.
func (c *Constructor) ReturnsError() bool { return c.sig.returnsError }

func (c *Constructor) String() string {
	return c.class.PackageName() + "." + c.name
}

// Invoke initializes the class if needed and calls the constructor.
func (c *Constructor) Invoke(ctx context.Context, args []reflect.Value) (reflect.Value, error) {
	if err := c.class.Initialize(); err != nil {
		return reflect.Value{}, err
	}

	return c.sig.call(ctx, c.String(), nil, args)
}

// Method is an instance or static method.
type Method struct {
	class    *Class
	name     string
	static   bool
	receiver reflect.Type
	sig      signature
}

// Class returns the declaring class.
func (m *Method) Class() *Class { return m.class }

// Name returns the method name.
func (m *Method) Name() string { return m.name }

// Static reports whether the method has no receiver.
func (m *Method) Static() bool { return m.static }

// Receiver returns the receiver type of an instance method.
func (m *Method) Receiver() reflect.Type { return m.receiver }

// Params returns the formal parameter types, excluding receiver and context.
func (m *Method) Params() []reflect.Type { return m.sig.params }

// Result returns the result type, or nil for void methods.
func (m *Method) Result() reflect.Type { return m.sig.result }

// TakesContext reports whether the statement context is passed in.
func (m *Method) TakesContext() bool { return m.sig.takesContext }

// ReturnsError reports whether the method has a trailing error result.
func (m *Method) ReturnsError() bool { return m.sig.returnsError }

func (m *Method) String() string {
	if m.static {
		return m.class.PackageName() + "." + m.name
	}

	return m.class.Name() + "." + m.name
}

// Invoke calls the method. recv is ignored for static methods.
func (m *Method) Invoke(ctx context.Context, recv reflect.Value, args []reflect.Value) (reflect.Value, error) {
	if m.static {
		if err := m.class.Initialize(); err != nil {
			return reflect.Value{}, err
		}

		return m.sig.call(ctx, m.String(), nil, args)
	}

	if isNil(recv) {
		return reflect.Value{}, &InvocationError{Member: m.String(), Cause: ErrNilReceiver}
	}

	if err := m.class.Initialize(); err != nil {
		return reflect.Value{}, err
	}

	coerced, err := Coerce(recv, m.receiver)
	if err != nil {
		return reflect.Value{}, &InvocationError{Member: m.String(), Cause: err}
	}

	return m.sig.call(ctx, m.String(), []reflect.Value{coerced}, args)
}

// Field is an exported struct field or a static package variable.
type Field struct {
	class  *Class
	name   string
	static bool
	typ    reflect.Type
	index  []int
	ptr    reflect.Value
}

// Class returns the declaring class.
func (f *Field) Class() *Class { return f.class }

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Static reports whether the field is a package variable.
func (f *Field) Static() bool { return f.static }

// Type returns the field type.
func (f *Field) Type() reflect.Type { return f.typ }

func (f *Field) String() string {
	if f.static {
		return f.class.PackageName() + "." + f.name
	}

	return f.class.Name() + "." + f.name
}

// Get reads the field. recv is ignored for static fields.
func (f *Field) Get(recv reflect.Value) (value reflect.Value, err error) {
	target, err := f.locate(recv)
	if err != nil {
		return reflect.Value{}, err
	}

	out := reflect.New(f.typ).Elem()
	out.Set(target)

	return out, nil
}

// Set writes the field. recv is ignored for static fields.
func (f *Field) Set(recv reflect.Value, value reflect.Value) (err error) {
	target, err := f.locate(recv)
	if err != nil {
		return err
	}

	coerced, err := Coerce(value, f.typ)
	if err != nil {
		return &InvocationError{Member: f.String(), Cause: err}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &InvocationError{Member: f.String(), Cause: &PanicError{Value: r}, Panicked: true}
		}
	}()

	target.Set(coerced)

	return nil
}

func (f *Field) locate(recv reflect.Value) (reflect.Value, error) {
	if f.static {
		if err := f.class.Initialize(); err != nil {
			return reflect.Value{}, err
		}

		return f.ptr.Elem(), nil
	}

	if isNil(recv) {
		return reflect.Value{}, &InvocationError{Member: f.String(), Cause: ErrNilReceiver}
	}

	if err := f.class.Initialize(); err != nil {
		return reflect.Value{}, err
	}

	if recv.Kind() == reflect.Interface {
		recv = recv.Elem()
	}

	if recv.Kind() != reflect.Pointer || recv.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, &InvocationError{
			Member: f.String(),
			Cause:  fmt.Errorf("receiver of type %s has no fields", recv.Type()),
		}
	}

	return recv.Elem().FieldByIndex(f.index), nil
}

func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}
