// Package arraybuffer implements the backing stores of typed views: plain,
// resizable and shared byte buffers that can be detached, together with the
// per-location waiter lists used by Atomics.wait and Atomics.notify.
package arraybuffer

import (
	"io"
	"math"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"go.k6.io/typedmem/errext"
)

// DefaultMaxByteLength is the largest store an Allocator hands out unless
// configured otherwise.
const DefaultMaxByteLength = math.MaxInt32

var lastID uint64 //nolint:gochecknoglobals

// Allocator creates stores and enforces the maximum byte length.
type Allocator struct {
	MaxByteLength int64
	Logger        logrus.FieldLogger
}

// NewAllocator returns an Allocator logging to logger. A non-positive
// maxByteLength selects DefaultMaxByteLength.
func NewAllocator(logger logrus.FieldLogger, maxByteLength int64) *Allocator {
	if maxByteLength <= 0 {
		maxByteLength = DefaultMaxByteLength
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Allocator{MaxByteLength: maxByteLength, Logger: logger}
}

var defaultAllocator = NewAllocator(nil, 0) //nolint:gochecknoglobals

// Default returns the allocator used by Allocate, with the default limit and
// logging discarded.
func Default() *Allocator { return defaultAllocator }

// Allocate returns a zeroed fixed-length store from the default allocator.
func Allocate(byteLength int64, shared bool) (*Store, error) {
	return defaultAllocator.Allocate(byteLength, shared)
}

// Allocate returns a zeroed fixed-length store.
func (a *Allocator) Allocate(byteLength int64, shared bool) (*Store, error) {
	return a.allocate(byteLength, byteLength, false, shared)
}

// AllocateResizable returns a zeroed store of byteLength that can later be
// resized (or grown, when shared) up to maxByteLength.
func (a *Allocator) AllocateResizable(byteLength, maxByteLength int64, shared bool) (*Store, error) {
	if byteLength > maxByteLength {
		return nil, errext.New(errext.ErrResizeFailed,
			"byte length %d exceeds the maximum byte length %d", byteLength, maxByteLength)
	}
	return a.allocate(byteLength, maxByteLength, true, shared)
}

func (a *Allocator) allocate(byteLength, maxByteLength int64, resizable, shared bool) (*Store, error) {
	if byteLength < 0 || maxByteLength < 0 {
		return nil, errext.New(errext.ErrInvalidIndex, "invalid array buffer length %d", byteLength)
	}
	if maxByteLength > a.MaxByteLength {
		return nil, errext.New(errext.ErrOutOfMemory,
			"cannot allocate %d bytes, the limit is %d", maxByteLength, a.MaxByteLength)
	}

	// Shared growable stores never move, other agents keep using the memory
	// while it grows, so they get their maximum capacity up front.
	capacity := byteLength
	if shared && resizable {
		capacity = maxByteLength
	}
	s := &Store{
		id:        atomic.AddUint64(&lastID, 1),
		maxLen:    maxByteLength,
		resizable: resizable,
		shared:    shared,
		alloc:     a,
	}
	s.setWords(capacity)
	s.byteLen.Store(byteLength)
	s.logger = a.Logger.WithField("buffer", s.id)
	s.logger.WithFields(logrus.Fields{
		"byteLength": byteLength,
		"shared":     shared,
		"resizable":  resizable,
	}).Debug("Allocated array buffer")
	return s, nil
}
