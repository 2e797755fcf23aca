package typedarray

import (
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/host"
)

// FromView creates a new view of kind holding a converted copy of src.
func FromView(alloc *arraybuffer.Allocator, kind Kind, src *View) (*View, error) {
	length, err := src.Validate()
	if err != nil {
		return nil, err
	}
	if err := contentTypeCheck(kind, src.kind); err != nil {
		return nil, err
	}
	v, err := New(alloc, kind, length)
	if err != nil {
		return nil, err
	}
	if err := v.SetFromView(src, 0); err != nil {
		return nil, err
	}
	return v, nil
}

// FromArrayLike creates a new view of kind holding the elements of an
// array-like host object, coerced through h.
func FromArrayLike(h host.Host, alloc *arraybuffer.Allocator, kind Kind, src host.Value) (*View, error) {
	length, err := h.Length(src)
	if err != nil {
		return nil, err
	}
	v, err := New(alloc, kind, length)
	if err != nil {
		return nil, err
	}
	for k := int64(0); k < length; k++ {
		val, err := h.Get(src, k)
		if err != nil {
			return nil, err
		}
		if err := v.Set(h, k, val); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// FromValues creates a new view of kind holding values, coerced through h.
func FromValues(h host.Host, alloc *arraybuffer.Allocator, kind Kind, values ...host.Value) (*View, error) {
	v, err := New(alloc, kind, int64(len(values)))
	if err != nil {
		return nil, err
	}
	for k, val := range values {
		if err := v.Set(h, int64(k), val); err != nil {
			return nil, err
		}
	}
	return v, nil
}
