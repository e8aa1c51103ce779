package testcase

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Import paths the rendered source may depend on.
const (
	assertImport  = "github.com/stretchr/testify/assert"
	requireImport = "github.com/stretchr/testify/require"
	mockImport    = "gooze.dev/pkg/testsynth/pkg/env/mock"
)

// Names assigns source identifiers to references and collects the imports a
// rendered test needs. Identifiers are the lowerCamel type name followed by
// a per-type counter, assigned in rendering order.
type Names struct {
	names   map[*VariableReference]string
	counts  map[string]int
	imports map[string]string
	reads   map[*VariableReference]bool
}

// NewNames returns an empty naming context.
func NewNames() *Names {
	return &Names{
		names:   map[*VariableReference]string{},
		counts:  map[string]int{},
		imports: map[string]string{},
		reads:   map[*VariableReference]bool{},
	}
}

// Name returns the identifier of ref, assigning one on first use.
func (n *Names) Name(ref *VariableReference) string {
	if name, ok := n.names[ref]; ok {
		return name
	}

	base := lowerCamel(baseName(ref.typ))
	name := base + strconv.Itoa(n.counts[base])
	n.counts[base]++
	n.names[ref] = name

	return name
}

// Type returns the Go type expression of t and records its imports.
func (n *Names) Type(t reflect.Type) string {
	if t.Name() != "" {
		if t.PkgPath() == "" {
			return t.Name()
		}

		pkg := strings.TrimSuffix(t.String(), "."+t.Name())
		n.Import(t.PkgPath(), pkg)

		return pkg + "." + t.Name()
	}

	switch t.Kind() {
	case reflect.Pointer:
		return "*" + n.Type(t.Elem())
	case reflect.Slice:
		return "[]" + n.Type(t.Elem())
	case reflect.Array:
		return fmt.Sprintf("[%d]%s", t.Len(), n.Type(t.Elem()))
	case reflect.Map:
		return "map[" + n.Type(t.Key()) + "]" + n.Type(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "any"
		}
	}

	return t.String()
}

// Import records a package the rendered source refers to.
func (n *Names) Import(path, name string) {
	n.imports[path] = name
}

// Imports returns the recorded import paths mapped to package names.
func (n *Names) Imports() map[string]string {
	return n.imports
}

// Reads reports whether ref is read after it is produced.
func (n *Names) Reads(ref *VariableReference) bool {
	return n.reads[ref]
}

func (n *Names) markRead(ref *VariableReference) {
	n.reads[ref] = true
}

func (n *Names) require() string {
	n.Import(requireImport, "require")
	return "require"
}

func (n *Names) assert() string {
	n.Import(assertImport, "assert")
	return "assert"
}

// Value renders ref where a value of type to is expected, converting when
// Go assignability does not cover numeric widening.
func (n *Names) Value(ref *VariableReference, to reflect.Type) string {
	name := n.Name(ref)
	if to == nil || ref.typ == nil || ref.typ.AssignableTo(to) {
		return name
	}

	return n.Type(to) + "(" + name + ")"
}

func baseName(t reflect.Type) string {
	switch {
	case t == nil:
		return "void"
	case t == typeType:
		return "type"
	case t.Name() != "":
		return t.Name()
	case t.Kind() == reflect.Pointer:
		return baseName(t.Elem())
	case t.Kind() == reflect.Slice, t.Kind() == reflect.Array:
		return baseName(t.Elem()) + "Slice"
	case t.Kind() == reflect.Map:
		return "map"
	default:
		return "value"
	}
}

func lowerCamel(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return "value"
	}

	return string(unicode.ToLower(r)) + s[size:]
}

// literal renders a basic value as Go source. Values of other than the
// default type of their literal are wrapped in a conversion.
func (n *Names) literal(v reflect.Value) string {
	t := v.Type()

	switch t.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.String:
		return strconv.Quote(v.String())
	case reflect.Int:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return t.Name() + "(" + strconv.FormatInt(v.Int(), 10) + ")"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return t.Name() + "(" + strconv.FormatUint(v.Uint(), 10) + ")"
	case reflect.Float64:
		return n.floatLiteral(v.Float(), 64)
	case reflect.Float32:
		return "float32(" + n.floatLiteral(v.Float(), 32) + ")"
	}

	return fmt.Sprintf("%#v", v.Interface())
}

func (n *Names) floatLiteral(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		n.Import("math", "math")
		return "math.NaN()"
	case math.IsInf(f, 1):
		n.Import("math", "math")
		return "math.Inf(1)"
	case math.IsInf(f, -1):
		n.Import("math", "math")
		return "math.Inf(-1)"
	}

	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}
