package state

import (
	"io"
	"sync"
)

// ConsoleWriter syncs writes to stdout and stderr and remembers whether the
// output is a terminal, which decides if colors are printed.
type ConsoleWriter struct {
	Writer io.Writer
	IsTTY  bool
	Mutex  *sync.Mutex
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	return w.Writer.Write(p)
}
