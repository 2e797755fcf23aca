package typedarray

import (
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arraybuffer"
)

// Factory creates the views returned by subarray, slice, map and filter. It
// lets a subclassed constructor decide the concrete result. store is nil
// when the operation needs a fresh store for length elements; otherwise the
// result views store from byteOffset, where length may be AutoLength.
type Factory interface {
	CreateDerivedView(source *View, store *arraybuffer.Store, byteOffset, length int64) (*View, error)
}

// DefaultFactory creates views of the source's kind.
type DefaultFactory struct {
	Allocator *arraybuffer.Allocator
}

// CreateDerivedView implements Factory.
func (f DefaultFactory) CreateDerivedView(
	source *View, store *arraybuffer.Store, byteOffset, length int64,
) (*View, error) {
	if store == nil {
		return New(f.Allocator, source.kind, length)
	}
	return NewView(source.kind, store, byteOffset, length)
}

// derive runs the factory and checks that the result is usable in place of
// the source: same content type, in bounds, and long enough when a fresh
// view of length elements was requested.
func derive(f Factory, source *View, store *arraybuffer.Store, byteOffset, length int64) (*View, error) {
	if f == nil {
		f = DefaultFactory{}
	}
	res, err := f.CreateDerivedView(source, store, byteOffset, length)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errext.New(errext.ErrArrayBufferViewExpected, "derived constructor did not return a typed array")
	}
	n, err := res.Validate()
	if err != nil {
		return nil, err
	}
	if err := contentTypeCheck(source.kind, res.kind); err != nil {
		return nil, err
	}
	if store == nil && n < length {
		return nil, errext.New(errext.ErrArrayBufferViewExpected,
			"derived typed array is too short: %d < %d", n, length)
	}
	return res, nil
}
