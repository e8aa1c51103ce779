package classpath

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"
)

type initState int

const (
	initPending initState = iota
	initRunning
	initDone
	initFailed
)

// Class is a definition instantiated by one loader.
type Class struct {
	def    Definition
	loader Loader
	typ    reflect.Type
	init   func()

	mu        sync.Mutex
	state     initState
	initCause error

	constructors []*Constructor
	methods      []*Method
	fields       []*Field
}

// Name returns the qualified name "pkgname.Type".
func (c *Class) Name() string { return c.def.QualifiedName() }

// FullName returns "import/path.Type".
func (c *Class) FullName() string { return c.def.FullName() }

// Package returns the import path of the declaring package.
func (c *Class) Package() string { return c.def.Package }

// PackageName returns the package identifier used in rendered source.
func (c *Class) PackageName() string { return c.def.PackageName() }

// Type returns the instance type.
func (c *Class) Type() reflect.Type { return c.typ }

// Loader returns the loader that defined the class.
func (c *Class) Loader() Loader { return c.loader }

// Constructors returns the constructors sorted by name.
func (c *Class) Constructors() []*Constructor { return slices.Clone(c.constructors) }

// Methods returns instance and static methods sorted by name.
func (c *Class) Methods() []*Method { return slices.Clone(c.methods) }

// Fields returns instance and static fields sorted by name.
func (c *Class) Fields() []*Field { return slices.Clone(c.fields) }

// Constructor finds a constructor by name.
func (c *Class) Constructor(name string) (*Constructor, error) {
	for _, ctor := range c.constructors {
		if ctor.name == name {
			return ctor, nil
		}
	}

	return nil, fmt.Errorf("constructor %s of %s: %w", name, c.Name(), ErrNoSuchMember)
}

// Method finds an instance or static method by name.
func (c *Class) Method(name string) (*Method, error) {
	for _, method := range c.methods {
		if method.name == name {
			return method, nil
		}
	}

	return nil, fmt.Errorf("method %s of %s: %w", name, c.Name(), ErrNoSuchMember)
}

// Field finds an instance or static field by name.
func (c *Class) Field(name string) (*Field, error) {
	for _, field := range c.fields {
		if field.name == name {
			return field, nil
		}
	}

	return nil, fmt.Errorf("field %s of %s: %w", name, c.Name(), ErrNoSuchMember)
}

// Initialize runs the static initializer once. A failed initializer leaves
// the class unusable for the lifetime of the loader. The lock is not held
// while the initializer runs: a use of the class before it returns fails
// with ErrInitializerRunning instead of waiting.
func (c *Class) Initialize() error {
	c.mu.Lock()

	switch c.state {
	case initDone:
		c.mu.Unlock()
		return nil
	case initFailed:
		c.mu.Unlock()
		return &InitializerError{Class: c.Name(), Cause: c.initCause, Repeated: true}
	case initRunning:
		c.mu.Unlock()
		return &InitializerError{Class: c.Name(), Cause: ErrInitializerRunning}
	case initPending:
	}

	if c.init == nil {
		c.state = initDone
		c.mu.Unlock()

		return nil
	}

	c.state = initRunning
	c.mu.Unlock()

	cause := runInit(c.init)

	c.mu.Lock()
	defer c.mu.Unlock()

	if cause != nil {
		c.state = initFailed
		c.initCause = cause
		slog.Debug("class initializer failed", "class", c.Name(), "error", cause)

		return &InitializerError{Class: c.Name(), Cause: cause}
	}

	c.state = initDone

	return nil
}

func runInit(init func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	init()

	return nil
}

func defineClass(loader Loader, def Definition, members Members) (*Class, error) {
	if members.Type == nil {
		return nil, fmt.Errorf("class %s has no type", def.FullName())
	}

	class := &Class{
		def:    def,
		loader: loader,
		typ:    members.Type,
		init:   members.Init,
	}

	for _, name := range sortedKeys(members.Constructors) {
		sig, err := newSignature(members.Constructors[name], 0)
		if err != nil {
			return nil, fmt.Errorf("constructor %s: %w", name, err)
		}

		if sig.result == nil || !sig.result.AssignableTo(class.typ) {
			return nil, fmt.Errorf("constructor %s must return %s", name, class.typ)
		}

		class.constructors = append(class.constructors, &Constructor{class: class, name: name, sig: sig})
	}

	for _, name := range sortedKeys(members.Methods) {
		sig, err := newSignature(members.Methods[name], 1)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", name, err)
		}

		receiver := reflect.TypeOf(members.Methods[name]).In(0)
		if !class.typ.AssignableTo(receiver) {
			return nil, fmt.Errorf("method %s: receiver %s does not accept %s", name, receiver, class.typ)
		}

		class.methods = append(class.methods, &Method{class: class, name: name, receiver: receiver, sig: sig})
	}

	for _, name := range sortedKeys(members.StaticMethods) {
		sig, err := newSignature(members.StaticMethods[name], 0)
		if err != nil {
			return nil, fmt.Errorf("static method %s: %w", name, err)
		}

		class.methods = append(class.methods, &Method{class: class, name: name, static: true, sig: sig})
	}

	class.fields = append(class.fields, instanceFields(class)...)

	for _, name := range sortedKeys(members.StaticFields) {
		ptr := reflect.ValueOf(members.StaticFields[name])
		if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
			return nil, fmt.Errorf("static field %s must be a non-nil pointer", name)
		}

		class.fields = append(class.fields, &Field{class: class, name: name, static: true, typ: ptr.Type().Elem(), ptr: ptr})
	}

	slices.SortFunc(class.methods, func(a, b *Method) int { return strings.Compare(a.name, b.name) })
	slices.SortFunc(class.fields, func(a, b *Field) int { return strings.Compare(a.name, b.name) })

	return class, nil
}

func instanceFields(class *Class) []*Field {
	if class.typ.Kind() != reflect.Pointer || class.typ.Elem().Kind() != reflect.Struct {
		return nil
	}

	var fields []*Field

	for _, sf := range reflect.VisibleFields(class.typ.Elem()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		fields = append(fields, &Field{class: class, name: sf.Name, typ: sf.Type, index: sf.Index})
	}

	return fields
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
