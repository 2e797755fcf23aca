// Package arrayops holds the array algorithms shared by ordinary arrays and
// typed views: iteration with callbacks, searching, joining, sorting and
// reversing over any indexed Sequence.
package arrayops

import (
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/host"
)

// Sequence is an indexed collection the algorithms operate on. Get returns
// host.Undefined for missing elements. Has distinguishes holes from present
// elements holding undefined.
type Sequence interface {
	Len() (int64, error)
	Get(i int64) (host.Value, error)
	Set(i int64, v host.Value) error
	Has(i int64) (bool, error)
	Delete(i int64) error
}

type objectSequence struct {
	h   host.Host
	obj host.Value
}

// Object adapts an ordinary array-like host object to a Sequence.
func Object(h host.Host, obj host.Value) Sequence {
	return objectSequence{h: h, obj: obj}
}

func (o objectSequence) Len() (int64, error)             { return o.h.Length(o.obj) }
func (o objectSequence) Get(i int64) (host.Value, error) { return o.h.Get(o.obj, i) }
func (o objectSequence) Set(i int64, v host.Value) error { return o.h.Set(o.obj, i, v) }
func (o objectSequence) Has(i int64) (bool, error)       { return o.h.Has(o.obj, i) }
func (o objectSequence) Delete(i int64) error            { return o.h.Delete(o.obj, i) }

// Dense is implemented by sequences without holes, such as typed views.
// Iteration then visits every index below the initial length, even if the
// sequence shrinks while callbacks run.
type Dense interface {
	Dense() bool
}

func present(s Sequence, k int64) (bool, error) {
	if d, ok := s.(Dense); ok && d.Dense() {
		return true, nil
	}
	return s.Has(k)
}

func callable(h host.Host, fn host.Value) error {
	if !h.IsCallable(fn) {
		return errext.New(errext.ErrNotCallable, "callback is not a function")
	}
	return nil
}

func optional(args []host.Value) (host.Value, bool) {
	if len(args) == 0 {
		return host.Undefined, false
	}
	return args[0], true
}
