package typedarray

import (
	"encoding/binary"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/host"
)

// DataView reads and writes elements of any kind at arbitrary byte offsets
// with an explicit byte order.
type DataView struct {
	store      *arraybuffer.Store
	byteOffset int64
	byteLength int64
	tracking   bool
}

// NewDataView creates a DataView over store. byteLength may be AutoLength.
func NewDataView(store *arraybuffer.Store, byteOffset, byteLength int64) (*DataView, error) {
	if store.IsDetached() {
		return nil, errext.ErrDetachedBuffer
	}
	bufLen := store.ByteLength()
	if byteOffset < 0 || byteOffset > bufLen {
		return nil, errext.New(errext.ErrInvalidOffset, "start offset %d is outside the bounds of the buffer", byteOffset)
	}
	d := &DataView{store: store, byteOffset: byteOffset}
	switch {
	case byteLength == AutoLength && store.IsResizable():
		d.tracking = true
	case byteLength == AutoLength:
		d.byteLength = bufLen - byteOffset
	default:
		if byteLength < 0 || byteOffset+byteLength > bufLen {
			return nil, errext.New(errext.ErrInvalidTypedArrayLength, "invalid DataView length %d", byteLength)
		}
		d.byteLength = byteLength
	}
	return d, nil
}

// Store returns the backing store.
func (d *DataView) Store() *arraybuffer.Store { return d.store }

// IsOutOfBounds reports whether the view no longer fits its store.
func (d *DataView) IsOutOfBounds() bool {
	if d.store.IsDetached() {
		return true
	}
	bufLen := d.store.ByteLength()
	return d.byteOffset > bufLen || !d.tracking && d.byteOffset+d.byteLength > bufLen
}

// ByteLength is the current size of the view in bytes.
func (d *DataView) ByteLength() (int64, error) {
	if d.store.IsDetached() {
		return 0, errext.ErrDetachedBuffer
	}
	if d.IsOutOfBounds() {
		return 0, errext.New(errext.ErrDetachedBuffer, "DataView is out of bounds")
	}
	if d.tracking {
		return d.store.ByteLength() - d.byteOffset, nil
	}
	return d.byteLength, nil
}

// ByteOffset is the start of the view in its store.
func (d *DataView) ByteOffset() (int64, error) {
	if _, err := d.ByteLength(); err != nil {
		return 0, err
	}
	return d.byteOffset, nil
}

func (d *DataView) locate(kind Kind, byteIndex int64) (int64, error) {
	size, err := d.ByteLength()
	if err != nil {
		return 0, err
	}
	if byteIndex < 0 || byteIndex+int64(kind.Width()) > size {
		return 0, errext.New(errext.ErrOutOfBounds, "offset is outside the bounds of the DataView")
	}
	return d.byteOffset + byteIndex, nil
}

func order(littleEndian bool) binary.ByteOrder {
	if littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// GetValue reads a kind element at byteIndex, big-endian unless
// littleEndian is set.
func (d *DataView) GetValue(kind Kind, byteIndex int64, littleEndian bool) (host.Value, error) {
	off, err := d.locate(kind, byteIndex)
	if err != nil {
		return nil, err
	}
	b := d.store.ReadBytes(off, int64(kind.Width()))
	var bits uint64
	o := order(littleEndian)
	switch len(b) {
	case 1:
		bits = uint64(b[0])
	case 2:
		bits = uint64(o.Uint16(b))
	case 4:
		bits = uint64(o.Uint32(b))
	default:
		bits = o.Uint64(b)
	}
	return kind.Decode(bits), nil
}

// SetValue coerces value through h and writes it at byteIndex. The value is
// converted before the bounds are checked.
func (d *DataView) SetValue(h host.Host, kind Kind, byteIndex int64, value host.Value, littleEndian bool) error {
	c, err := kind.Coerce(h, value)
	if err != nil {
		return err
	}
	off, err := d.locate(kind, byteIndex)
	if err != nil {
		return err
	}
	bits := kind.Encode(c)
	b := make([]byte, kind.Width())
	o := order(littleEndian)
	switch len(b) {
	case 1:
		b[0] = byte(bits)
	case 2:
		o.PutUint16(b, uint16(bits))
	case 4:
		o.PutUint32(b, uint32(bits))
	default:
		o.PutUint64(b, bits)
	}
	d.store.WriteBytes(off, b)
	return nil
}
