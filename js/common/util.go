// Package common holds the glue between Go errors and script exceptions
// shared by the script bindings.
package common

import (
	"errors"

	"github.com/dop251/goja"

	"go.k6.io/typedmem/errext"
)

// ThrownValue is a value thrown by script code that is not an exception
// object, carried through Go code as an error.
type ThrownValue struct {
	Value goja.Value
}

func (t *ThrownValue) Error() string {
	if o, ok := t.Value.(*goja.Object); ok {
		return "uncaught " + o.ClassName()
	}
	return "uncaught " + t.Value.String()
}

// Try runs f and returns whatever script code threw while it ran. Panics
// that are not script exceptions are not recovered.
func Try(f func()) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch x := r.(type) {
		case *goja.Exception:
			err = x
		case *goja.InterruptedError:
			err = x
		case goja.Value:
			err = &ThrownValue{Value: x}
		default:
			panic(r)
		}
	}()
	f()
	return nil
}

// Throw a JS error; avoids re-wrapping exceptions that came from script code.
func Throw(rt *goja.Runtime, err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex)
	}
	var ie *goja.InterruptedError
	if errors.As(err, &ie) {
		panic(ie)
	}
	var tv *ThrownValue
	if errors.As(err, &tv) {
		panic(tv.Value)
	}
	panic(NewError(rt, err))
}

// NewError converts err into a script error object. Typed memory errors
// become TypeError or RangeError objects with a code property, anything else
// a GoError.
func NewError(rt *goja.Runtime, err error) *goja.Object {
	var e *errext.Error
	if !errors.As(err, &e) {
		return rt.NewGoError(err)
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	var herr errext.HasHint
	if errors.As(err, &herr) {
		msg += " (" + herr.Hint() + ")"
	}

	var obj *goja.Object
	if e.Type == errext.TypeError {
		obj = rt.NewTypeError("%s", msg)
	} else {
		// OutOfMemory surfaces as a RangeError, like a failed allocation does.
		var cerr error
		obj, cerr = rt.New(rt.Get("RangeError"), rt.ToValue(msg))
		if cerr != nil {
			return rt.NewGoError(err)
		}
	}
	_ = obj.Set("code", string(e.Code))
	return obj
}
