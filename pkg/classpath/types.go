package classpath

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Nillable reports whether a value of type t can be nil.
func Nillable(t reflect.Type) bool {
	if t == nil {
		return false
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// Assignable reports whether a value of static type from may be passed
// where to is expected: Go assignability plus lossless numeric widening.
func Assignable(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return false
	}

	if from.AssignableTo(to) {
		return true
	}

	return widens(from, to)
}

// Coerce converts v to type to, widening numbers and materialising typed
// nils. It fails when the value is not assignable.
func Coerce(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		if Nillable(to) {
			return reflect.Zero(to), nil
		}

		return reflect.Value{}, fmt.Errorf("cannot use nil as %s", to)
	}

	if v.Type() == to {
		return v, nil
	}

	if v.Type().AssignableTo(to) {
		converted := reflect.New(to).Elem()
		converted.Set(v)

		return converted, nil
	}

	if widens(v.Type(), to) {
		return v.Convert(to), nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), to)
}

func widens(from, to reflect.Type) bool {
	fromRank, fromOK := numericRank(from.Kind())
	toRank, toOK := numericRank(to.Kind())

	if !fromOK || !toOK {
		return false
	}

	switch {
	case isFloat(to.Kind()):
		return !isFloat(from.Kind()) || fromRank <= toRank
	case isFloat(from.Kind()):
		return false
	case isSigned(from.Kind()) && !isSigned(to.Kind()):
		return false
	case !isSigned(from.Kind()) && isSigned(to.Kind()):
		return fromRank < toRank
	default:
		return fromRank <= toRank
	}
}

func numericRank(k reflect.Kind) (int, bool) {
	switch k {
	case reflect.Int8, reflect.Uint8:
		return 1, true
	case reflect.Int16, reflect.Uint16:
		return 2, true
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 3, true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint64, reflect.Float64:
		return 4, true
	default:
		return 0, false
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}
