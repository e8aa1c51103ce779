package testcase

import (
	"errors"
	"strconv"

	"gooze.dev/pkg/testsynth/pkg/classpath"
)

// expectation is the observable part of an exception: whether the code
// panicked, and otherwise the message of the returned error.
type expectation struct {
	panicked bool
	message  string
}

func expectationOf(err error) expectation {
	var invocation *classpath.InvocationError
	if !errors.As(err, &invocation) {
		return expectation{panicked: true}
	}

	if invocation.Panicked || errors.Is(invocation.Cause, classpath.ErrNilReceiver) || invocation.Cause == nil {
		return expectation{panicked: true}
	}

	return expectation{message: invocation.Cause.Error()}
}

func (e expectation) err() error {
	if e.panicked {
		return &classpath.InvocationError{Cause: &classpath.PanicError{Value: e.message}, Panicked: true}
	}

	return &classpath.InvocationError{Cause: errors.New(e.message)}
}

// declare renders a statement that completes normally.
func declare(names *Names, ret *VariableReference, expr string, returnsError bool) string {
	switch {
	case ret.IsVoid() && !returnsError:
		return expr
	case ret.IsVoid():
		return names.require() + ".NoError(t, " + expr + ")"
	case !returnsError:
		return names.Name(ret) + " := " + expr
	default:
		return names.Name(ret) + ", err := " + expr + "\n" + names.require() + ".NoError(t, err)"
	}
}

// guard renders a statement expected to fail the way err did.
func guard(names *Names, ret *VariableReference, expr string, returnsError bool, err error) string {
	exp := expectationOf(err)
	req := names.require()

	decl := ""
	if !ret.IsVoid() {
		decl = "var " + names.Name(ret) + " " + names.Type(ret.typ) + "\n"
	}

	if exp.panicked || !returnsError {
		var inner string

		switch {
		case ret.IsVoid() && !returnsError:
			inner = expr
		case ret.IsVoid():
			inner = "_ = " + expr
		case !returnsError:
			inner = names.Name(ret) + " = " + expr
		default:
			inner = names.Name(ret) + ", _ = " + expr
		}

		return decl + req + ".Panics(t, func() {\n\t" + inner + "\n})"
	}

	check, tail := req+".Error(t, ", ")"
	if exp.message != "" {
		check, tail = req+".ErrorContains(t, ", ", "+strconv.Quote(exp.message)+")"
	}

	if ret.IsVoid() {
		return check + expr + tail
	}

	return decl + check + "func() (err error) {\n\t" + names.Name(ret) + ", err = " + expr + "\n\n\treturn err\n}()" + tail
}
