package arraybuffer

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// Element access by width. Values are raw bits in the low bytes of a uint64,
// in the host's native byte order. On shared stores every naturally aligned
// access is atomic: 4 and 8 byte elements map onto their own words, 1 and 2
// byte elements are updated through their containing aligned uint32.

func widthMask(width int) uint64 {
	if width == 8 {
		return ^uint64(0)
	}
	return 1<<(uint(width)*8) - 1
}

func (s *Store) ptr32(offset int64) *uint32 {
	return (*uint32)(unsafe.Pointer(&s.data[offset]))
}

func (s *Store) ptr64(offset int64) *uint64 {
	return (*uint64)(unsafe.Pointer(&s.data[offset]))
}

// subword returns the aligned container of a 1 or 2 byte element and the
// shift of the element inside it.
func (s *Store) subword(offset int64, width int) (*uint32, uint) {
	base := offset &^ 3
	pos := uint(offset - base)
	if !littleEndian {
		pos = 4 - uint(width) - pos
	}
	return s.ptr32(base), pos * 8
}

func (s *Store) atomicOK(offset int64, width int) bool {
	return s.shared && offset%int64(width) == 0
}

// Load reads width bytes at offset.
func (s *Store) Load(offset int64, width int) uint64 {
	if s.atomicOK(offset, width) {
		switch width {
		case 8:
			return atomic.LoadUint64(s.ptr64(offset))
		case 4:
			return uint64(atomic.LoadUint32(s.ptr32(offset)))
		default:
			p, shift := s.subword(offset, width)
			return uint64(atomic.LoadUint32(p)>>shift) & widthMask(width)
		}
	}
	return getNative(s.data[offset:], width)
}

// Store writes the low width bytes of bits at offset.
func (s *Store) Store(offset int64, width int, bits uint64) {
	if s.atomicOK(offset, width) {
		switch width {
		case 8:
			atomic.StoreUint64(s.ptr64(offset), bits)
		case 4:
			atomic.StoreUint32(s.ptr32(offset), uint32(bits))
		default:
			p, shift := s.subword(offset, width)
			mask := uint32(widthMask(width)) << shift
			v := uint32(bits) << shift & mask
			for {
				old := atomic.LoadUint32(p)
				if atomic.CompareAndSwapUint32(p, old, old&^mask|v) {
					return
				}
			}
		}
		return
	}
	putNative(s.data[offset:], width, bits)
}

// CompareAndSwap replaces the element at offset with bits if it currently
// holds old. Only the low width bytes of old and bits are compared and stored.
func (s *Store) CompareAndSwap(offset int64, width int, old, bits uint64) bool {
	mask := widthMask(width)
	old, bits = old&mask, bits&mask
	if !s.atomicOK(offset, width) {
		if s.Load(offset, width) != old {
			return false
		}
		s.Store(offset, width, bits)
		return true
	}
	switch width {
	case 8:
		return atomic.CompareAndSwapUint64(s.ptr64(offset), old, bits)
	case 4:
		return atomic.CompareAndSwapUint32(s.ptr32(offset), uint32(old), uint32(bits))
	}
	p, shift := s.subword(offset, width)
	m := uint32(mask) << shift
	for {
		cur := atomic.LoadUint32(p)
		if uint64(cur&m>>shift) != old {
			return false
		}
		if atomic.CompareAndSwapUint32(p, cur, cur&^m|uint32(bits)<<shift) {
			return true
		}
	}
}

// grain is the widest access width that keeps every chunk of a copy between
// offsets at the given positions naturally aligned.
func grain(positions ...int64) int {
	for _, w := range [...]int{8, 4, 2} {
		ok := true
		for _, p := range positions {
			if p%int64(w) != 0 {
				ok = false
				break
			}
		}
		if ok {
			return w
		}
	}
	return 1
}

func putNative(b []byte, width int, bits uint64) {
	switch width {
	case 1:
		b[0] = byte(bits)
	case 2:
		binary.NativeEndian.PutUint16(b, uint16(bits))
	case 4:
		binary.NativeEndian.PutUint32(b, uint32(bits))
	default:
		binary.NativeEndian.PutUint64(b, bits)
	}
}

func getNative(b []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.NativeEndian.Uint16(b))
	case 4:
		return uint64(binary.NativeEndian.Uint32(b))
	default:
		return binary.NativeEndian.Uint64(b)
	}
}

// readShared copies a range of a shared store into out with one atomic load
// per aligned chunk.
func (s *Store) readShared(out []byte, offset int64) {
	n := int64(len(out))
	w := grain(offset, n)
	for i := int64(0); i < n; i += int64(w) {
		putNative(out[i:], w, s.Load(offset+i, w))
	}
}

// writeShared is the storing counterpart of readShared.
func (s *Store) writeShared(offset int64, b []byte) {
	n := int64(len(b))
	w := grain(offset, n)
	for i := int64(0); i < n; i += int64(w) {
		s.Store(offset+i, w, getNative(b[i:], w))
	}
}

// moveShared copies within a shared store chunk by chunk, walking backwards
// when the destination overlaps the tail of the source.
func (s *Store) moveShared(dst, src, length int64) {
	w := int64(grain(dst, src, length))
	if dst <= src || dst >= src+length {
		for i := int64(0); i < length; i += w {
			s.Store(dst+i, int(w), s.Load(src+i, int(w)))
		}
		return
	}
	for i := length - w; i >= 0; i -= w {
		s.Store(dst+i, int(w), s.Load(src+i, int(w)))
	}
}
