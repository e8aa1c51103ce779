package testcase

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"math"
	"path"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

var basicTypes = map[string]reflect.Type{
	"bool":    reflect.TypeFor[bool](),
	"string":  reflect.TypeFor[string](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"uintptr": reflect.TypeFor[uintptr](),
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
	"byte":    reflect.TypeFor[byte](),
	"rune":    reflect.TypeFor[rune](),
	"any":     reflect.TypeFor[any](),
	"error":   reflect.TypeFor[error](),
}

// Parse reads a file produced by Render back into test cases, resolving
// members through loader.
func Parse(src []byte, loader classpath.PackageLoader) ([]NamedTest, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, "rendered_test.go", src, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rendered tests: %w", err)
	}

	imports := map[string]string{}

	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", spec.Path.Value, err)
		}

		name := path.Base(importPath)
		if spec.Name != nil {
			name = spec.Name.Name
		}

		imports[name] = importPath
	}

	var tests []NamedTest

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil || fn.Recv != nil || !strings.HasPrefix(fn.Name.Name, "Test") {
			continue
		}

		p := &bodyParser{
			fset:     fset,
			imports:  imports,
			loader:   loader,
			builder:  NewBuilder(),
			vars:     map[string]*VariableReference{},
			pending:  map[string]reflect.Type{},
			packages: map[string][]*classpath.Class{},
		}

		if err := p.parse(fn.Body.List); err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name.Name, err)
		}

		tests = append(tests, NamedTest{Name: fn.Name.Name, Case: p.builder.TestCase()})
	}

	return tests, nil
}

// ParseFile reads path from fs and parses it with Parse.
func ParseFile(fs afero.Fs, path string, loader classpath.PackageLoader) ([]NamedTest, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	tests, err := Parse(src, loader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return tests, nil
}

type bodyParser struct {
	fset     *token.FileSet
	imports  map[string]string
	loader   classpath.PackageLoader
	builder  *Builder
	vars     map[string]*VariableReference
	pending  map[string]reflect.Type
	packages map[string][]*classpath.Class
	classes  []*classpath.Class
}

func (p *bodyParser) errorf(node ast.Node, format string, args ...any) error {
	return fmt.Errorf("%s: %s", p.fset.Position(node.Pos()), fmt.Sprintf(format, args...))
}

func (p *bodyParser) parse(stmts []ast.Stmt) error {
	for i, stmt := range stmts {
		var next ast.Stmt
		if i+1 < len(stmts) {
			next = stmts[i+1]
		}

		if err := p.statement(stmt, next); err != nil {
			return err
		}
	}

	return nil
}

func (p *bodyParser) statement(stmt, next ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.DeclStmt:
		return p.declaration(s, next)
	case *ast.AssignStmt:
		return p.assignment(s)
	case *ast.ExprStmt:
		call, ok := s.X.(*ast.CallExpr)
		if !ok {
			return p.errorf(s, "unsupported expression statement")
		}

		return p.call(call)
	}

	return p.errorf(stmt, "unsupported statement %T", stmt)
}

// declaration handles "var x T": a nil value, or the declaration of the
// result of a guarded statement that follows.
func (p *bodyParser) declaration(decl *ast.DeclStmt, next ast.Stmt) error {
	gen, ok := decl.Decl.(*ast.GenDecl)
	if !ok || gen.Tok != token.VAR || len(gen.Specs) != 1 {
		return p.errorf(decl, "unsupported declaration")
	}

	spec, ok := gen.Specs[0].(*ast.ValueSpec)
	if !ok || len(spec.Names) != 1 || spec.Type == nil || len(spec.Values) != 0 {
		return p.errorf(decl, "unsupported variable declaration")
	}

	typ, err := p.typeOf(spec.Type)
	if err != nil {
		return err
	}

	name := spec.Names[0].Name
	if next != nil && guardTarget(next) == name {
		p.pending[name] = typ
		return nil
	}

	ref, err := p.builder.AppendNull(typ)
	if err != nil {
		return p.errorf(decl, "%v", err)
	}

	p.vars[name] = ref

	return nil
}

func (p *bodyParser) assignment(s *ast.AssignStmt) error {
	switch {
	case s.Tok == token.DEFINE && len(s.Lhs) == 1 && len(s.Rhs) == 1:
		return p.define(ident(s.Lhs[0]), s.Rhs[0])
	case s.Tok == token.DEFINE && len(s.Lhs) == 2 && len(s.Rhs) == 1 && ident(s.Lhs[1]) == "err":
		return p.define(ident(s.Lhs[0]), s.Rhs[0])
	case s.Tok == token.ASSIGN && len(s.Lhs) == 1 && len(s.Rhs) == 1:
		if ident(s.Lhs[0]) == "_" {
			if _, isIdent := s.Rhs[0].(*ast.Ident); isIdent {
				return nil
			}
		}

		st, err := p.write(s.Lhs[0], s.Rhs[0])
		if err != nil {
			return err
		}

		_, err = p.builder.TestCase().Append(st)

		return err
	}

	return p.errorf(s, "unsupported assignment")
}

func (p *bodyParser) define(name string, rhs ast.Expr) error {
	if name == "" {
		return p.errorf(rhs, "definition without a name")
	}

	st, err := p.producer(rhs)
	if err != nil {
		return err
	}

	ref, err := p.builder.TestCase().Append(st)
	if err != nil {
		return p.errorf(rhs, "%v", err)
	}

	p.vars[name] = ref

	return nil
}

// producer parses the right-hand side of a definition.
func (p *bodyParser) producer(expr ast.Expr) (Statement, error) {
	switch e := expr.(type) {
	case *ast.SelectorExpr:
		return p.fieldRead(e)
	case *ast.IndexExpr:
		array, index, err := p.index(e)
		if err != nil {
			return nil, err
		}

		return NewArrayIndexReadStatement(array, index), nil
	case *ast.CallExpr:
		if fun := ident(e.Fun); fun == "make" && len(e.Args) == 2 {
			return p.makeSlice(e)
		}

		if literal, ok := p.classLiteral(e); ok {
			return literal, nil
		}

		if value, err := p.literal(e); err == nil {
			return NewPrimitiveStatement(value), nil
		}

		return p.invocation(e)
	}

	value, err := p.literal(expr)
	if err != nil {
		return nil, err
	}

	return NewPrimitiveStatement(value), nil
}

func (p *bodyParser) makeSlice(call *ast.CallExpr) (Statement, error) {
	typ, err := p.typeOf(call.Args[0])
	if err != nil {
		return nil, err
	}

	if typ.Kind() != reflect.Slice {
		return nil, p.errorf(call, "make of non-slice type %s", typ)
	}

	length, err := p.literal(call.Args[1])
	if err != nil {
		return nil, err
	}

	n, ok := length.(int)
	if !ok {
		return nil, p.errorf(call, "slice length %v is not an int", length)
	}

	return NewArrayStatement(typ.Elem(), n), nil
}

func (p *bodyParser) classLiteral(call *ast.CallExpr) (Statement, bool) {
	index, ok := call.Fun.(*ast.IndexExpr)
	if !ok || len(call.Args) != 0 {
		return nil, false
	}

	if sel, ok := index.X.(*ast.SelectorExpr); !ok || ident(sel.X) != "reflect" || sel.Sel.Name != "TypeFor" {
		return nil, false
	}

	typ, err := p.typeOf(index.Index)
	if err != nil {
		return nil, false
	}

	return NewClassLiteralStatement(typ), true
}

// invocation parses a constructor, static or instance method call.
func (p *bodyParser) invocation(call *ast.CallExpr) (Statement, error) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return nil, p.errorf(call, "unsupported call")
	}

	args, err := p.args(call.Args)
	if err != nil {
		return nil, err
	}

	x := ident(sel.X)
	name := sel.Sel.Name

	if receiver, isVar := p.vars[x]; isVar {
		method, err := p.method(receiver.typ, name)
		if err != nil {
			return nil, p.errorf(call, "%v", err)
		}

		return NewMethodStatement(receiver, method, args...), nil
	}

	classes, err := p.pkg(x)
	if err != nil {
		return nil, p.errorf(call, "%v", err)
	}

	for _, class := range classes {
		if ctor, err := class.Constructor(name); err == nil {
			return NewConstructorStatement(ctor, args...), nil
		}
	}

	for _, class := range classes {
		if method, err := class.Method(name); err == nil && method.Static() {
			return NewMethodStatement(nil, method, args...), nil
		}
	}

	return nil, p.errorf(call, "no constructor or function %s.%s", x, name)
}

func (p *bodyParser) fieldRead(sel *ast.SelectorExpr) (Statement, error) {
	receiver, field, err := p.field(sel)
	if err != nil {
		return nil, err
	}

	return NewFieldReadStatement(receiver, field), nil
}

func (p *bodyParser) field(sel *ast.SelectorExpr) (*VariableReference, *classpath.Field, error) {
	x := ident(sel.X)

	if receiver, isVar := p.vars[x]; isVar {
		for _, class := range p.classes {
			if !classpath.Assignable(receiver.typ, class.Type()) {
				continue
			}

			if field, err := class.Field(sel.Sel.Name); err == nil && !field.Static() {
				return receiver, field, nil
			}
		}

		return nil, nil, p.errorf(sel, "no field %s on %s", sel.Sel.Name, receiver.typ)
	}

	classes, err := p.pkg(x)
	if err != nil {
		return nil, nil, p.errorf(sel, "%v", err)
	}

	for _, class := range classes {
		if field, err := class.Field(sel.Sel.Name); err == nil && field.Static() {
			return nil, field, nil
		}
	}

	return nil, nil, p.errorf(sel, "no package variable %s.%s", x, sel.Sel.Name)
}

func (p *bodyParser) index(e *ast.IndexExpr) (*VariableReference, int, error) {
	array, ok := p.vars[ident(e.X)]
	if !ok {
		return nil, 0, p.errorf(e, "unknown slice %s", ident(e.X))
	}

	value, err := p.literal(e.Index)
	if err != nil {
		return nil, 0, err
	}

	index, ok := value.(int)
	if !ok {
		return nil, 0, p.errorf(e, "index %v is not an int", value)
	}

	return array, index, nil
}

// write parses a field write, an index write or an assignment.
func (p *bodyParser) write(lhs, rhs ast.Expr) (Statement, error) {
	value, err := p.arg(rhs)
	if err != nil {
		return nil, err
	}

	switch l := lhs.(type) {
	case *ast.SelectorExpr:
		receiver, field, err := p.field(l)
		if err != nil {
			return nil, err
		}

		return NewFieldWriteStatement(receiver, field, value), nil
	case *ast.IndexExpr:
		array, index, err := p.index(l)
		if err != nil {
			return nil, err
		}

		return NewArrayIndexWriteStatement(array, index, value), nil
	case *ast.Ident:
		target, ok := p.vars[l.Name]
		if !ok {
			return nil, p.errorf(l, "unknown variable %s", l.Name)
		}

		return NewAssignmentStatement(target, value), nil
	}

	return nil, p.errorf(lhs, "unsupported assignment target")
}

// call handles expression statements: harnesses, assertions and calls
// without a value.
func (p *bodyParser) call(call *ast.CallExpr) error {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return p.errorf(call, "unsupported call")
	}

	switch ident(sel.X) {
	case "mock":
		if sel.Sel.Name == "UseInTest" {
			return nil
		}
	case "require":
		return p.requirement(sel.Sel.Name, call)
	case "assert":
		return p.assertion(sel.Sel.Name, call)
	}

	st, err := p.invocation(call)
	if err != nil {
		return err
	}

	_, err = p.builder.TestCase().Append(st)

	return err
}

func (p *bodyParser) requirement(fn string, call *ast.CallExpr) error {
	switch fn {
	case "NoError":
		if len(call.Args) != 2 {
			return p.errorf(call, "NoError takes two arguments")
		}

		if ident(call.Args[1]) == "err" {
			return nil
		}

		inner, ok := call.Args[1].(*ast.CallExpr)
		if !ok {
			return p.errorf(call, "unsupported NoError argument")
		}

		st, err := p.invocation(inner)
		if err != nil {
			return err
		}

		_, err = p.builder.TestCase().Append(st)

		return err
	case "Panics":
		if len(call.Args) != 2 {
			return p.errorf(call, "Panics takes two arguments")
		}

		body, ok := call.Args[1].(*ast.FuncLit)
		if !ok || len(body.Body.List) != 1 {
			return p.errorf(call, "unsupported Panics argument")
		}

		return p.guarded(body.Body.List[0], expectation{panicked: true})
	case "Error", "ErrorContains":
		exp := expectation{}

		if fn == "ErrorContains" {
			if len(call.Args) != 3 {
				return p.errorf(call, "ErrorContains takes three arguments")
			}

			message, err := p.literal(call.Args[2])
			if err != nil {
				return err
			}

			exp.message, _ = message.(string)
		}

		return p.guardedError(call.Args[1], exp)
	}

	return p.errorf(call, "unsupported require.%s", fn)
}

// guarded parses the single statement inside a panic harness.
func (p *bodyParser) guarded(stmt ast.Stmt, exp expectation) error {
	var (
		st   Statement
		name string
		err  error
	)

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		call, ok := s.X.(*ast.CallExpr)
		if !ok {
			return p.errorf(s, "unsupported guarded expression")
		}

		st, err = p.invocation(call)
	case *ast.AssignStmt:
		if s.Tok != token.ASSIGN || len(s.Rhs) != 1 {
			return p.errorf(s, "unsupported guarded assignment")
		}

		name = ident(s.Lhs[0])

		switch _, pending := p.pending[name]; {
		case pending:
			st, err = p.producer(s.Rhs[0])
		case name == "_":
			name = ""
			st, err = p.producer(s.Rhs[0])
		default:
			name = ""
			st, err = p.write(s.Lhs[0], s.Rhs[0])
		}
	default:
		return p.errorf(stmt, "unsupported guarded statement")
	}

	if err != nil {
		return err
	}

	return p.appendGuarded(name, st, exp)
}

func (p *bodyParser) guardedError(expr ast.Expr, exp expectation) error {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return p.errorf(expr, "unsupported error harness")
	}

	lit, isClosure := call.Fun.(*ast.FuncLit)
	if !isClosure {
		st, err := p.invocation(call)
		if err != nil {
			return err
		}

		return p.appendGuarded("", st, exp)
	}

	if len(lit.Body.List) == 0 {
		return p.errorf(lit, "empty error harness")
	}

	assign, ok := lit.Body.List[0].(*ast.AssignStmt)
	if !ok || len(assign.Lhs) != 2 || len(assign.Rhs) != 1 {
		return p.errorf(lit, "unsupported error harness body")
	}

	st, err := p.producer(assign.Rhs[0])
	if err != nil {
		return err
	}

	return p.appendGuarded(ident(assign.Lhs[0]), st, exp)
}

func (p *bodyParser) appendGuarded(name string, st Statement, exp expectation) error {
	ref, err := p.builder.TestCase().Append(st)
	if err != nil {
		return err
	}

	if name != "" {
		delete(p.pending, name)
		p.vars[name] = ref
	}

	return p.builder.Assert(&ExceptionAssertion{source: ref, panicked: exp.panicked, message: exp.message})
}

func (p *bodyParser) assertion(fn string, call *ast.CallExpr) error {
	args := call.Args
	if len(args) < 2 {
		return p.errorf(call, "assert.%s needs arguments", fn)
	}

	var a Assertion

	switch fn {
	case "True", "False":
		source, err := p.variable(args[1])
		if err != nil {
			return err
		}

		a = NewEqualsAssertion(source, fn == "True")
	case "Nil", "NotNil":
		source, err := p.variable(args[1])
		if err != nil {
			return err
		}

		a = NewNullAssertion(source, fn == "Nil")
	case "Equal", "Same", "NotSame", "InDelta":
		if len(args) < 3 {
			return p.errorf(call, "assert.%s needs three arguments", fn)
		}

		source, err := p.variable(args[2])
		if err != nil {
			return err
		}

		switch fn {
		case "Equal":
			expected, err := p.literal(args[1])
			if err != nil {
				return err
			}

			a = NewEqualsAssertion(source, expected)
		case "InDelta":
			if len(args) != 4 {
				return p.errorf(call, "assert.InDelta needs four arguments")
			}

			expected, err := p.float(args[1])
			if err != nil {
				return err
			}

			delta, err := p.float(args[3])
			if err != nil {
				return err
			}

			a = NewInDeltaAssertion(source, expected, delta)
		default:
			other, err := p.variable(args[1])
			if err != nil {
				return err
			}

			a = NewSameAssertion(source, other, fn == "Same")
		}
	default:
		return p.errorf(call, "unsupported assert.%s", fn)
	}

	if err := p.builder.Assert(a); err != nil {
		return p.errorf(call, "%v", err)
	}

	return nil
}

func (p *bodyParser) variable(expr ast.Expr) (*VariableReference, error) {
	ref, ok := p.vars[ident(expr)]
	if !ok {
		return nil, p.errorf(expr, "unknown variable")
	}

	return ref, nil
}

// args resolves call arguments, dropping the test context.
func (p *bodyParser) args(exprs []ast.Expr) ([]*VariableReference, error) {
	var refs []*VariableReference

	for _, expr := range exprs {
		if isTestContext(expr) {
			continue
		}

		ref, err := p.arg(expr)
		if err != nil {
			return nil, err
		}

		refs = append(refs, ref)
	}

	return refs, nil
}

// arg resolves a variable, possibly wrapped in a conversion.
func (p *bodyParser) arg(expr ast.Expr) (*VariableReference, error) {
	if call, ok := expr.(*ast.CallExpr); ok && len(call.Args) == 1 {
		expr = call.Args[0]
	}

	return p.variable(expr)
}

func isTestContext(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) != 0 {
		return false
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)

	return ok && ident(sel.X) == "t" && sel.Sel.Name == "Context"
}

func (p *bodyParser) pkg(name string) ([]*classpath.Class, error) {
	importPath, ok := p.imports[name]
	if !ok {
		return nil, fmt.Errorf("unknown package %s", name)
	}

	if classes, loaded := p.packages[importPath]; loaded {
		return classes, nil
	}

	classes, err := p.loader.LoadPackage(importPath)
	if err != nil {
		return nil, err
	}

	p.packages[importPath] = classes
	p.classes = append(p.classes, classes...)

	return classes, nil
}

func (p *bodyParser) method(receiver reflect.Type, name string) (*classpath.Method, error) {
	var fallback *classpath.Method

	for _, class := range p.classes {
		method, err := class.Method(name)
		if err != nil || method.Static() || !classpath.Assignable(receiver, method.Receiver()) {
			continue
		}

		if class.Type() == receiver {
			return method, nil
		}

		if fallback == nil {
			fallback = method
		}
	}

	if fallback == nil {
		return nil, fmt.Errorf("no method %s on %s", name, receiver)
	}

	return fallback, nil
}

func (p *bodyParser) typeOf(expr ast.Expr) (reflect.Type, error) {
	switch e := expr.(type) {
	case *ast.Ident:
		if typ, ok := basicTypes[e.Name]; ok {
			return typ, nil
		}
	case *ast.StarExpr:
		elem, err := p.typeOf(e.X)
		if err != nil {
			return nil, err
		}

		return reflect.PointerTo(elem), nil
	case *ast.ArrayType:
		elem, err := p.typeOf(e.Elt)
		if err != nil {
			return nil, err
		}

		if e.Len == nil {
			return reflect.SliceOf(elem), nil
		}
	case *ast.MapType:
		key, err := p.typeOf(e.Key)
		if err != nil {
			return nil, err
		}

		value, err := p.typeOf(e.Value)
		if err != nil {
			return nil, err
		}

		return reflect.MapOf(key, value), nil
	case *ast.SelectorExpr:
		return p.namedType(e)
	}

	return nil, p.errorf(expr, "unsupported type expression")
}

func (p *bodyParser) namedType(sel *ast.SelectorExpr) (reflect.Type, error) {
	pkg, name := ident(sel.X), sel.Sel.Name
	if pkg == "reflect" && name == "Type" {
		return typeType, nil
	}

	classes, err := p.pkg(pkg)
	if err != nil {
		return nil, p.errorf(sel, "%v", err)
	}

	for _, class := range classes {
		typ := class.Type()
		if typ.Name() == name {
			return typ, nil
		}

		if typ.Kind() == reflect.Pointer && typ.Elem().Name() == name {
			return typ.Elem(), nil
		}
	}

	return nil, p.errorf(sel, "unknown type %s.%s", pkg, name)
}

// literal evaluates a rendered basic literal to a value of its Go type.
func (p *bodyParser) literal(expr ast.Expr) (any, error) {
	if call, ok := expr.(*ast.CallExpr); ok {
		if typ, isBasic := basicTypes[ident(call.Fun)]; isBasic && len(call.Args) == 1 {
			return p.typedLiteral(call.Args[0], typ)
		}

		if f, isFloat := p.special(call); isFloat {
			return f, nil
		}

		return nil, p.errorf(expr, "not a literal")
	}

	if name := ident(expr); name == "true" || name == "false" {
		return name == "true", nil
	}

	value, err := p.constant(expr)
	if err != nil {
		return nil, err
	}

	switch value.Kind() {
	case constant.Int:
		n, exact := constant.Int64Val(value)
		if !exact {
			return nil, p.errorf(expr, "integer literal overflows int")
		}

		return int(n), nil
	case constant.Float:
		f, _ := constant.Float64Val(value)
		return f, nil
	case constant.String:
		return constant.StringVal(value), nil
	}

	return nil, p.errorf(expr, "unsupported literal")
}

func (p *bodyParser) typedLiteral(expr ast.Expr, typ reflect.Type) (any, error) {
	if call, ok := expr.(*ast.CallExpr); ok {
		if f, isFloat := p.special(call); isFloat {
			return reflect.ValueOf(f).Convert(typ).Interface(), nil
		}
	}

	value, err := p.constant(expr)
	if err != nil {
		return nil, err
	}

	out := reflect.New(typ).Elem()

	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := constant.Int64Val(constant.ToInt(value))
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, _ := constant.Uint64Val(constant.ToInt(value))
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, _ := constant.Float64Val(constant.ToFloat(value))
		out.SetFloat(f)
	default:
		return nil, p.errorf(expr, "unsupported conversion to %s", typ)
	}

	return out.Interface(), nil
}

func (p *bodyParser) float(expr ast.Expr) (float64, error) {
	value, err := p.literal(expr)
	if err != nil {
		return 0, err
	}

	switch f := value.(type) {
	case float64:
		return f, nil
	case int:
		return float64(f), nil
	}

	return 0, p.errorf(expr, "not a float literal")
}

// special recognizes math.NaN() and math.Inf(±1).
func (p *bodyParser) special(call *ast.CallExpr) (float64, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || ident(sel.X) != "math" {
		return 0, false
	}

	switch sel.Sel.Name {
	case "NaN":
		return math.NaN(), len(call.Args) == 0
	case "Inf":
		if len(call.Args) != 1 {
			return 0, false
		}

		sign, err := p.constant(call.Args[0])
		if err != nil {
			return 0, false
		}

		n, _ := constant.Int64Val(sign)

		return math.Inf(int(n)), true
	}

	return 0, false
}

func (p *bodyParser) constant(expr ast.Expr) (constant.Value, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		value := constant.MakeFromLiteral(e.Value, e.Kind, 0)
		if value.Kind() == constant.Unknown {
			return nil, p.errorf(e, "malformed literal %s", e.Value)
		}

		return value, nil
	case *ast.UnaryExpr:
		if e.Op != token.SUB && e.Op != token.ADD {
			break
		}

		operand, err := p.constant(e.X)
		if err != nil {
			return nil, err
		}

		return constant.UnaryOp(e.Op, operand, 0), nil
	case *ast.ParenExpr:
		return p.constant(e.X)
	}

	return nil, p.errorf(expr, "not a constant")
}

// guardTarget returns the variable a harness statement assigns, or "".
func guardTarget(stmt ast.Stmt) string {
	expr, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return ""
	}

	call, ok := expr.X.(*ast.CallExpr)
	if !ok || len(call.Args) < 2 {
		return ""
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || ident(sel.X) != "require" {
		return ""
	}

	var body *ast.BlockStmt

	switch arg := call.Args[1].(type) {
	case *ast.FuncLit:
		body = arg.Body
	case *ast.CallExpr:
		if lit, isClosure := arg.Fun.(*ast.FuncLit); isClosure {
			body = lit.Body
		}
	}

	if body == nil || len(body.List) == 0 {
		return ""
	}

	assign, ok := body.List[0].(*ast.AssignStmt)
	if !ok || assign.Tok != token.ASSIGN || len(assign.Lhs) == 0 {
		return ""
	}

	return ident(assign.Lhs[0])
}

func ident(expr ast.Expr) string {
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}

	return ""
}
