package modulestest

import (
	"strings"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
)

// console is a reduced script console for tests: every call logs its
// arguments joined by spaces at the level the method is named after.
type console struct {
	logger *logrus.Entry
}

func newConsole(logger logrus.FieldLogger) *console {
	return &console{logger.WithField("source", "console")}
}

func (c console) Log(args ...goja.Value)   { c.log(logrus.InfoLevel, args) }
func (c console) Info(args ...goja.Value)  { c.log(logrus.InfoLevel, args) }
func (c console) Debug(args ...goja.Value) { c.log(logrus.DebugLevel, args) }
func (c console) Warn(args ...goja.Value)  { c.log(logrus.WarnLevel, args) }
func (c console) Error(args ...goja.Value) { c.log(logrus.ErrorLevel, args) }

func (c console) log(level logrus.Level, args []goja.Value) {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = a.String()
	}
	c.logger.Log(level, strings.Join(strs, " "))
}
