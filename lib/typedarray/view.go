package typedarray

import (
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/host"
)

// AutoLength makes a view cover the rest of its store. Over a resizable
// store such a view tracks the store's length.
const AutoLength int64 = -1

// View is a typed window over a store. Kind, offset and length never change
// after construction, but the store may shrink or detach underneath it, so
// every access re-checks the current bounds.
type View struct {
	kind       Kind
	store      *arraybuffer.Store
	byteOffset int64
	length     int64
	tracking   bool
}

// NewView creates a view of kind over store starting at byteOffset. length
// is an element count or AutoLength.
func NewView(kind Kind, store *arraybuffer.Store, byteOffset, length int64) (*View, error) {
	width := int64(kind.Width())
	if byteOffset < 0 || byteOffset%width != 0 {
		return nil, errext.New(errext.ErrInvalidOffset,
			"start offset of %s should be a multiple of %d", kind.ConstructorName(), width)
	}
	if store.IsDetached() {
		return nil, errext.ErrDetachedBuffer
	}
	bufLen := store.ByteLength()
	v := &View{kind: kind, store: store, byteOffset: byteOffset}
	switch {
	case length == AutoLength && store.IsResizable():
		if byteOffset > bufLen {
			return nil, errext.New(errext.ErrInvalidOffset,
				"start offset %d is outside the bounds of the buffer", byteOffset)
		}
		v.tracking = true
	case length == AutoLength:
		if bufLen%width != 0 {
			return nil, errext.New(errext.ErrInvalidTypedArrayLength,
				"byte length of %s should be a multiple of %d", kind.ConstructorName(), width)
		}
		if byteOffset > bufLen {
			return nil, errext.New(errext.ErrInvalidOffset,
				"start offset %d is outside the bounds of the buffer", byteOffset)
		}
		v.length = (bufLen - byteOffset) / width
	default:
		if length < 0 || byteOffset+length*width > bufLen {
			return nil, errext.New(errext.ErrInvalidTypedArrayLength,
				"invalid typed array length: %d", length)
		}
		v.length = length
	}
	return v, nil
}

// New allocates a zeroed store for length elements and views all of it. A
// nil alloc uses the default allocator.
func New(alloc *arraybuffer.Allocator, kind Kind, length int64) (*View, error) {
	if length < 0 {
		return nil, errext.New(errext.ErrInvalidTypedArrayLength, "invalid typed array length: %d", length)
	}
	store, err := allocator(alloc).Allocate(length*int64(kind.Width()), false)
	if err != nil {
		return nil, err
	}
	return &View{kind: kind, store: store, length: length}, nil
}

func allocator(a *arraybuffer.Allocator) *arraybuffer.Allocator {
	if a == nil {
		return arraybuffer.Default()
	}
	return a
}

// Kind returns the element kind.
func (v *View) Kind() Kind { return v.kind }

// Store returns the backing store.
func (v *View) Store() *arraybuffer.Store { return v.store }

// IsLengthTracking reports whether the view follows a resizable store's
// length.
func (v *View) IsLengthTracking() bool { return v.tracking }

// IsDetached reports whether the backing store has been detached.
func (v *View) IsDetached() bool { return v.store.IsDetached() }

// IsOutOfBounds reports whether the view no longer fits its store, because
// the store was detached or shrunk.
func (v *View) IsOutOfBounds() bool {
	if v.store.IsDetached() {
		return true
	}
	bufLen := v.store.ByteLength()
	if v.byteOffset > bufLen {
		return true
	}
	return !v.tracking && v.byteOffset+v.length*int64(v.kind.Width()) > bufLen
}

// Length is the current element count, 0 for views that are out of bounds.
func (v *View) Length() int64 {
	if v.IsOutOfBounds() {
		return 0
	}
	if v.tracking {
		return (v.store.ByteLength() - v.byteOffset) / int64(v.kind.Width())
	}
	return v.length
}

// ByteLength is Length in bytes.
func (v *View) ByteLength() int64 { return v.Length() * int64(v.kind.Width()) }

// ByteOffset is the offset into the store, 0 for views that are out of bounds.
func (v *View) ByteOffset() int64 {
	if v.IsOutOfBounds() {
		return 0
	}
	return v.byteOffset
}

// CheckNotDetached fails with a DetachedBuffer TypeError once the store has
// been detached.
func (v *View) CheckNotDetached() error {
	if v.store.IsDetached() {
		return errext.New(errext.ErrDetachedBuffer, "%s is backed by a detached buffer", v.kind.ConstructorName())
	}
	return nil
}

// Validate returns the current length of an in-bounds view. Detached and
// out of bounds views fail with a DetachedBuffer TypeError.
func (v *View) Validate() (int64, error) {
	if err := v.CheckNotDetached(); err != nil {
		return 0, err
	}
	if v.IsOutOfBounds() {
		return 0, errext.New(errext.ErrDetachedBuffer, "%s is out of bounds", v.kind.ConstructorName())
	}
	return v.Length(), nil
}

// InBounds reports whether index addresses an element right now.
func (v *View) InBounds(index int64) bool {
	return index >= 0 && index < v.Length()
}

func (v *View) offsetOf(index int64) int64 {
	return v.byteOffset + index*int64(v.kind.Width())
}

// Bits reads the raw element at index without any checks.
func (v *View) Bits(index int64) uint64 {
	return v.store.Load(v.offsetOf(index), v.kind.Width())
}

// SetBits writes the raw element at index without any checks.
func (v *View) SetBits(index int64, bits uint64) {
	v.store.Store(v.offsetOf(index), v.kind.Width(), bits)
}

// Get returns the element at index as a float64 or *big.Int, or
// host.Undefined when index is outside the view.
func (v *View) Get(index int64) (host.Value, error) {
	if err := v.CheckNotDetached(); err != nil {
		return nil, err
	}
	if !v.InBounds(index) {
		return host.Undefined, nil
	}
	return v.kind.Decode(v.Bits(index)), nil
}

// Set coerces value through h and stores it at index. Stores outside the
// view are dropped. The coercion runs first, so a detach it causes makes
// Set fail.
func (v *View) Set(h host.Host, index int64, value host.Value) error {
	c, err := v.kind.Coerce(h, value)
	if err != nil {
		return err
	}
	return v.SetValue(index, c)
}

// SetValue stores an already coerced float64 or *big.Int at index.
func (v *View) SetValue(index int64, value host.Value) error {
	if err := v.CheckNotDetached(); err != nil {
		return err
	}
	if v.InBounds(index) {
		v.SetBits(index, v.kind.Encode(value))
	}
	return nil
}

// SetNumber stores f at index of a number view.
func (v *View) SetNumber(index int64, f float64) error {
	return v.SetValue(index, f)
}
