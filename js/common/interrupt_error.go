package common

import (
	"errors"

	"github.com/dop251/goja"
)

// UnwrapInterruptedError returns the error a runtime was interrupted with,
// or err itself when it is not an interruption carrying an error.
func UnwrapInterruptedError(err error) error {
	var gojaErr *goja.InterruptedError
	if errors.As(err, &gojaErr) {
		if e, ok := gojaErr.Value().(error); ok {
			return e
		}
	}
	return err
}
