package arrayops

import (
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/host"
)

// visit calls fn(value, index, obj) for every present index in order and
// stops when it returns false. Holes are skipped.
func visit(h host.Host, s Sequence, obj host.Value, fn, this host.Value,
	do func(k int64, v, result host.Value) (bool, error),
) error {
	if err := callable(h, fn); err != nil {
		return err
	}
	length, err := s.Len()
	if err != nil {
		return err
	}
	for k := int64(0); k < length; k++ {
		ok, err := present(s, k)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		v, err := s.Get(k)
		if err != nil {
			return err
		}
		r, err := h.Call(fn, this, v, float64(k), obj)
		if err != nil {
			return err
		}
		more, err := do(k, v, r)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

// ForEach calls fn(element, index, obj) for every element.
func ForEach(h host.Host, s Sequence, obj host.Value, fn, this host.Value) error {
	return visit(h, s, obj, fn, this, func(int64, host.Value, host.Value) (bool, error) {
		return true, nil
	})
}

// Map stores fn(element, index, obj) into out at the same index.
func Map(h host.Host, s Sequence, obj host.Value, fn, this host.Value, out Sequence) error {
	return visit(h, s, obj, fn, this, func(k int64, _, r host.Value) (bool, error) {
		return true, out.Set(k, r)
	})
}

// Filter returns the elements for which fn returns a truthy value.
func Filter(h host.Host, s Sequence, obj host.Value, fn, this host.Value) ([]host.Value, error) {
	var kept []host.Value
	err := visit(h, s, obj, fn, this, func(_ int64, v, r host.Value) (bool, error) {
		if h.ToBoolean(r) {
			kept = append(kept, v)
		}
		return true, nil
	})
	return kept, err
}

// Every reports whether fn returns a truthy value for every element.
func Every(h host.Host, s Sequence, obj host.Value, fn, this host.Value) (bool, error) {
	all := true
	err := visit(h, s, obj, fn, this, func(_ int64, _, r host.Value) (bool, error) {
		all = h.ToBoolean(r)
		return all, nil
	})
	return all, err
}

// Some reports whether fn returns a truthy value for some element.
func Some(h host.Host, s Sequence, obj host.Value, fn, this host.Value) (bool, error) {
	found := false
	err := visit(h, s, obj, fn, this, func(_ int64, _, r host.Value) (bool, error) {
		found = h.ToBoolean(r)
		return !found, nil
	})
	return found, err
}

func reduce(h host.Host, s Sequence, obj host.Value, fn host.Value, initial []host.Value, right bool) (host.Value, error) {
	if err := callable(h, fn); err != nil {
		return nil, err
	}
	length, err := s.Len()
	if err != nil {
		return nil, err
	}
	k, end, step := int64(0), length, int64(1)
	if right {
		k, end, step = length-1, -1, -1
	}
	acc, ok := optional(initial)
	for ; !ok && k != end; k += step {
		if ok, err = present(s, k); err != nil {
			return nil, err
		}
		if ok {
			if acc, err = s.Get(k); err != nil {
				return nil, err
			}
		}
	}
	if !ok {
		return nil, errext.New(errext.ErrReduceOfEmpty, "reduce of empty array with no initial value")
	}
	for ; k != end; k += step {
		has, err := present(s, k)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		v, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		if acc, err = h.Call(fn, host.Undefined, acc, v, float64(k), obj); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Reduce folds the elements from the start with fn(acc, element, index,
// obj). Without an initial value the first element seeds the accumulator.
func Reduce(h host.Host, s Sequence, obj host.Value, fn host.Value, initial ...host.Value) (host.Value, error) {
	return reduce(h, s, obj, fn, initial, false)
}

// ReduceRight is Reduce from the end.
func ReduceRight(h host.Host, s Sequence, obj host.Value, fn host.Value, initial ...host.Value) (host.Value, error) {
	return reduce(h, s, obj, fn, initial, true)
}

// find visits every index, holes included, and returns the first index for
// which fn is truthy, or -1.
func find(h host.Host, s Sequence, obj host.Value, fn, this host.Value, last bool) (int64, host.Value, error) {
	if err := callable(h, fn); err != nil {
		return -1, host.Undefined, err
	}
	length, err := s.Len()
	if err != nil {
		return -1, host.Undefined, err
	}
	k, end, step := int64(0), length, int64(1)
	if last {
		k, end, step = length-1, -1, -1
	}
	for ; k != end; k += step {
		v, err := s.Get(k)
		if err != nil {
			return -1, host.Undefined, err
		}
		r, err := h.Call(fn, this, v, float64(k), obj)
		if err != nil {
			return -1, host.Undefined, err
		}
		if h.ToBoolean(r) {
			return k, v, nil
		}
	}
	return -1, host.Undefined, nil
}

// Find returns the first element satisfying fn, or host.Undefined.
func Find(h host.Host, s Sequence, obj host.Value, fn, this host.Value) (host.Value, error) {
	_, v, err := find(h, s, obj, fn, this, false)
	return v, err
}

// FindIndex returns the index of the first element satisfying fn, or -1.
func FindIndex(h host.Host, s Sequence, obj host.Value, fn, this host.Value) (int64, error) {
	k, _, err := find(h, s, obj, fn, this, false)
	return k, err
}

// FindLast returns the last element satisfying fn, or host.Undefined.
func FindLast(h host.Host, s Sequence, obj host.Value, fn, this host.Value) (host.Value, error) {
	_, v, err := find(h, s, obj, fn, this, true)
	return v, err
}

// FindLastIndex returns the index of the last element satisfying fn, or -1.
func FindLastIndex(h host.Host, s Sequence, obj host.Value, fn, this host.Value) (int64, error) {
	k, _, err := find(h, s, obj, fn, this, true)
	return k, err
}
