// Package exitcodes contains the process exit codes of the typedmem command.
package exitcodes

// ExitCode is a process exit code.
type ExitCode uint8

// Exit codes used by the typedmem command.
const (
	InvalidConfig   ExitCode = 104
	ExternalAbort   ExitCode = 105
	ScriptException ExitCode = 107
	ScriptAborted   ExitCode = 108
	StressFailed    ExitCode = 109
	GoPanic         ExitCode = 110
)
