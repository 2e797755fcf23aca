package arraybuffer

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/sirupsen/logrus"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/jsconv"
)

var littleEndian = func() bool { //nolint:gochecknoglobals
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	return b[0] == 1
}()

// Store is a backing store. Its memory is kept in 64-bit words so that every
// naturally aligned element can be accessed atomically.
type Store struct {
	id        uint64
	words     []uint64
	data      []byte
	byteLen   atomic.Int64
	maxLen    int64
	resizable bool
	shared    bool
	detached  atomic.Bool

	mu      sync.Mutex
	waiters map[int64]*WaiterList

	alloc  *Allocator
	logger logrus.FieldLogger
}

func (s *Store) setWords(capacity int64) {
	n := (capacity + 7) / 8
	if n == 0 {
		n = 1
	}
	s.words = make([]uint64, n)
	s.data = unsafe.Slice((*byte)(unsafe.Pointer(&s.words[0])), n*8)
}

// ID identifies the store in logs.
func (s *Store) ID() uint64 { return s.id }

// Logger returns the store's logger, tagged with its id.
func (s *Store) Logger() logrus.FieldLogger { return s.logger }

// IsShared reports whether the store was allocated for cross-agent use.
func (s *Store) IsShared() bool { return s.shared }

// IsResizable reports whether the store was allocated with a maximum length.
func (s *Store) IsResizable() bool { return s.resizable }

// IsDetached reports whether Detach or Transfer has released the store.
func (s *Store) IsDetached() bool { return s.detached.Load() }

// ByteLength is the current length in bytes, 0 once detached.
func (s *Store) ByteLength() int64 { return s.byteLen.Load() }

// MaxByteLength is the limit for Resize and Grow. Fixed-length stores report
// their byte length.
func (s *Store) MaxByteLength() int64 {
	if !s.resizable {
		return s.ByteLength()
	}
	return s.maxLen
}

// Detach releases the memory of the store. Detaching twice is a no-op.
func (s *Store) Detach() error {
	if s.shared {
		return errext.ErrNotDetachable
	}
	if s.detached.Swap(true) {
		return nil
	}
	s.byteLen.Store(0)
	s.words, s.data = nil, nil
	s.logger.Debug("Detached array buffer")
	return nil
}

// ReadBytes copies length bytes starting at offset. Bounds are the caller's
// responsibility. Shared stores are read with the widest aligned atomic
// loads the range allows, so an element aligned to its width is never torn.
func (s *Store) ReadBytes(offset, length int64) []byte {
	out := make([]byte, length)
	if s.shared {
		s.readShared(out, offset)
		return out
	}
	copy(out, s.data[offset:offset+length])
	return out
}

// WriteBytes copies b into the store at offset. Bounds are the caller's
// responsibility. Shared stores are written like ReadBytes reads them.
func (s *Store) WriteBytes(offset int64, b []byte) {
	if s.shared {
		s.writeShared(offset, b)
		return
	}
	copy(s.data[offset:], b)
}

// Move copies length bytes from src to dst within the store, handling
// overlapping ranges.
func (s *Store) Move(dst, src, length int64) {
	if s.shared {
		s.moveShared(dst, src, length)
		return
	}
	copy(s.data[dst:dst+length], s.data[src:src+length])
}

// Bytes exposes the live contents for bulk access by the owning agent. The
// slice is invalidated by Detach and Resize.
func (s *Store) Bytes() []byte {
	if s.data == nil {
		return nil
	}
	return s.data[:s.ByteLength()]
}

// CloneRange copies a range into a fresh unshared store, used when a copy
// would otherwise read memory it is overwriting.
func (s *Store) CloneRange(offset, length int64) (*Store, error) {
	c, err := s.alloc.Allocate(length, false)
	if err != nil {
		return nil, err
	}
	if s.shared {
		s.readShared(c.data[:length], offset)
		return c, nil
	}
	copy(c.data, s.data[offset:offset+length])
	return c, nil
}

// Slice copies the bytes in [begin, end) into a new store with the same
// sharedness. Both ends are relative offsets clamped like Array.prototype.slice.
func (s *Store) Slice(begin, end float64) (*Store, error) {
	if s.IsDetached() {
		return nil, errext.ErrDetachedBuffer
	}
	length := s.ByteLength()
	first := jsconv.ClampOffset(begin, length)
	final := jsconv.ClampOffset(end, length)
	n := final - first
	if n < 0 {
		n = 0
	}
	c, err := s.alloc.Allocate(n, s.shared)
	if err != nil {
		return nil, err
	}
	// allocation may have run arbitrary code in a host, re-check
	if s.IsDetached() {
		return nil, errext.ErrDetachedBuffer
	}
	if first+n > s.ByteLength() {
		n = max(s.ByteLength()-first, 0)
	}
	if n > 0 {
		c.WriteBytes(0, s.ReadBytes(first, n))
	}
	return c, nil
}

// Transfer moves the contents into a new store of newLength bytes, zero
// extended or truncated, and detaches s. The new store keeps the maximum
// length of a resizable s.
func (s *Store) Transfer(newLength int64) (*Store, error) {
	if s.shared {
		return nil, errext.New(errext.ErrNotDetachable, "cannot transfer a shared buffer")
	}
	if s.IsDetached() {
		return nil, errext.ErrDetachedBuffer
	}
	var (
		c   *Store
		err error
	)
	if s.resizable {
		c, err = s.alloc.AllocateResizable(newLength, s.maxLen, false)
	} else {
		c, err = s.alloc.Allocate(newLength, false)
	}
	if err != nil {
		return nil, err
	}
	copy(c.data[:newLength], s.Bytes())
	if err := s.Detach(); err != nil {
		return nil, err
	}
	return c, nil
}

// Resize changes the length of a resizable, unshared store. Bytes beyond the
// new length are discarded and come back zeroed when growing again.
func (s *Store) Resize(newLength int64) error {
	if s.shared {
		return s.Grow(newLength)
	}
	if !s.resizable {
		return errext.New(errext.ErrResizeFailed, "array buffer is not resizable")
	}
	if s.IsDetached() {
		return errext.ErrDetachedBuffer
	}
	if newLength < 0 || newLength > s.maxLen {
		return errext.New(errext.ErrResizeFailed,
			"invalid length %d, the maximum is %d", newLength, s.maxLen)
	}
	old := s.ByteLength()
	switch {
	case newLength > int64(len(s.data)):
		prev := s.data[:old]
		s.setWords(newLength)
		copy(s.data, prev)
	case newLength < old:
		clear(s.data[newLength:old])
	}
	s.byteLen.Store(newLength)
	s.logger.WithFields(logrus.Fields{"from": old, "to": newLength}).Debug("Resized array buffer")
	return nil
}

// Grow extends a growable shared store. Shrinking is not allowed, the memory
// may be in use by other agents.
func (s *Store) Grow(newLength int64) error {
	if !s.shared || !s.resizable {
		return errext.New(errext.ErrResizeFailed, "shared array buffer is not growable")
	}
	if newLength > s.maxLen {
		return errext.New(errext.ErrResizeFailed,
			"invalid length %d, the maximum is %d", newLength, s.maxLen)
	}
	for {
		old := s.byteLen.Load()
		if newLength < old {
			return errext.New(errext.ErrResizeFailed,
				"cannot shrink a shared array buffer from %d to %d", old, newLength)
		}
		if s.byteLen.CompareAndSwap(old, newLength) {
			s.logger.WithFields(logrus.Fields{"from": old, "to": newLength}).Debug("Grew shared array buffer")
			return nil
		}
	}
}
