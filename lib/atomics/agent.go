// Package atomics implements the Atomics operations over typed views: the
// read-modify-write family, compareExchange, load and store, and the
// wait/notify protocol that lets agents block on a location of a shared
// store.
package atomics

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Agent is an executor using atomics. Only agents that can suspend may
// wait.
type Agent struct {
	ID         int64
	CanSuspend bool
	// DefaultWaitTimeout bounds waits that pass an undefined timeout. Zero
	// means wait forever.
	DefaultWaitTimeout time.Duration
	Logger             logrus.FieldLogger
}

// NewAgent returns an agent logging to logger, or nowhere when it is nil.
func NewAgent(id int64, canSuspend bool, logger logrus.FieldLogger) *Agent {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Agent{ID: id, CanSuspend: canSuspend, Logger: logger.WithField("agent", id)}
}
