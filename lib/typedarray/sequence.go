package typedarray

import (
	"go.k6.io/typedmem/lib/arrayops"
	"go.k6.io/typedmem/lib/host"
)

// sequence adapts a view to arrayops. Reads of a detached or shrunk view
// give undefined and writes are dropped, matching element access from
// script code.
type sequence struct {
	h host.Host
	v *View
}

var (
	_ arrayops.Sequence = sequence{}
	_ arrayops.Dense    = sequence{}
)

// Sequence returns v as an arrayops.Sequence using h to coerce stored values.
func (v *View) Sequence(h host.Host) arrayops.Sequence {
	return sequence{h: h, v: v}
}

func (s sequence) Len() (int64, error) { return s.v.Length(), nil }

func (s sequence) Get(i int64) (host.Value, error) {
	if !s.v.InBounds(i) {
		return host.Undefined, nil
	}
	return s.v.kind.Decode(s.v.Bits(i)), nil
}

func (s sequence) Set(i int64, val host.Value) error {
	c, err := s.v.kind.coerceNative(s.h, val)
	if err != nil {
		return err
	}
	if s.v.InBounds(i) {
		s.v.SetBits(i, s.v.kind.Encode(c))
	}
	return nil
}

func (s sequence) Has(i int64) (bool, error) { return s.v.InBounds(i), nil }

// Delete is unreachable for typed views, every index below the length is
// present.
func (s sequence) Delete(int64) error { return nil }

func (s sequence) Dense() bool { return true }
