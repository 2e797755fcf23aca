package arrayops

import (
	"math"

	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/jsconv"
)

func fromIndex(h host.Host, args []host.Value) (float64, bool, error) {
	v, ok := optional(args)
	if !ok {
		return 0, false, nil
	}
	f, err := h.ToNumber(v)
	if err != nil {
		return 0, true, err
	}
	return jsconv.ToIntegerOrInfinity(f), true, nil
}

func startIndex(n float64, length int64) int64 {
	if n >= 0 {
		return int64(n)
	}
	k := float64(length) + n
	if k < 0 {
		return 0
	}
	return int64(k)
}

// IndexOf returns the first present index holding a value strictly equal to
// search, or -1. fromIndex is optional and may count from the end.
func IndexOf(h host.Host, s Sequence, search host.Value, fromIdx ...host.Value) (int64, error) {
	length, err := s.Len()
	if err != nil || length == 0 {
		return -1, err
	}
	n, _, err := fromIndex(h, fromIdx)
	if err != nil {
		return -1, err
	}
	if math.IsInf(n, 1) {
		return -1, nil
	}
	for k := startIndex(n, length); k < length; k++ {
		ok, err := s.Has(k)
		if err != nil {
			return -1, err
		}
		if !ok {
			continue
		}
		v, err := s.Get(k)
		if err != nil {
			return -1, err
		}
		if h.StrictEquals(v, search) {
			return k, nil
		}
	}
	return -1, nil
}

// LastIndexOf is IndexOf searching backwards from fromIndex, which defaults
// to the last index.
func LastIndexOf(h host.Host, s Sequence, search host.Value, fromIdx ...host.Value) (int64, error) {
	length, err := s.Len()
	if err != nil || length == 0 {
		return -1, err
	}
	n, given, err := fromIndex(h, fromIdx)
	if err != nil {
		return -1, err
	}
	if !given {
		n = float64(length - 1)
	}
	if math.IsInf(n, -1) {
		return -1, nil
	}
	k := int64(0)
	if n >= 0 {
		k = int64(math.Min(n, float64(length-1)))
	} else {
		k = length + int64(n)
	}
	for ; k >= 0; k-- {
		ok, err := s.Has(k)
		if err != nil {
			return -1, err
		}
		if !ok {
			continue
		}
		v, err := s.Get(k)
		if err != nil {
			return -1, err
		}
		if h.StrictEquals(v, search) {
			return k, nil
		}
	}
	return -1, nil
}

// Includes reports whether some index holds a value SameValueZero to search.
// Holes read as undefined.
func Includes(h host.Host, s Sequence, search host.Value, fromIdx ...host.Value) (bool, error) {
	length, err := s.Len()
	if err != nil || length == 0 {
		return false, err
	}
	n, _, err := fromIndex(h, fromIdx)
	if err != nil {
		return false, err
	}
	if math.IsInf(n, 1) {
		return false, nil
	}
	for k := startIndex(n, length); k < length; k++ {
		v, err := s.Get(k)
		if err != nil {
			return false, err
		}
		if h.SameValueZero(v, search) {
			return true, nil
		}
	}
	return false, nil
}
