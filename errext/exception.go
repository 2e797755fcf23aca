package errext

// Exception is an error thrown by script code, with the JS stack trace that
// led to it.
type Exception interface {
	error
	StackTrace() string
}
