package testutils

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

type testOutput struct{ testing.TB }

func (to testOutput) Write(p []byte) (int, error) {
	to.Logf("%s", p)
	return len(p), nil
}

// NewTestOutput returns an io.Writer that sends everything to t.Logf.
func NewTestOutput(t testing.TB) io.Writer {
	return testOutput{t}
}

// NewLogger returns a debug level logger writing to t.Logf, with a hook
// recording every entry.
func NewLogger(t testing.TB) (*logrus.Logger, *SimpleLogrusHook) {
	l := logrus.New()
	l.SetOutput(NewTestOutput(t))
	l.SetLevel(logrus.DebugLevel)
	hook := NewLogHook()
	l.AddHook(hook)
	return l, hook
}
