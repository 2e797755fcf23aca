package arrayops

import (
	"slices"
	"strings"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/host"
)

// Compare orders two elements: negative when a sorts first.
type Compare func(a, b host.Value) (int, error)

// StringCompare is the default ordering of ordinary arrays, by the string
// form of each element.
func StringCompare(h host.Host) Compare {
	return func(a, b host.Value) (int, error) {
		sa, err := h.ToString(a)
		if err != nil {
			return 0, err
		}
		sb, err := h.ToString(b)
		if err != nil {
			return 0, err
		}
		return strings.Compare(sa, sb), nil
	}
}

// FunctionCompare orders elements by calling the user comparator fn. A NaN
// result counts as equal.
func FunctionCompare(h host.Host, fn host.Value) (Compare, error) {
	if !h.IsCallable(fn) {
		return nil, errext.New(errext.ErrNotCallable, "the comparison function must be either a function or undefined")
	}
	return func(a, b host.Value) (int, error) {
		r, err := h.Call(fn, host.Undefined, a, b)
		if err != nil {
			return 0, err
		}
		f, err := h.ToNumber(r)
		if err != nil {
			return 0, err
		}
		switch {
		case f < 0:
			return -1, nil
		case f > 0:
			return 1, nil
		}
		return 0, nil
	}, nil
}

// Sort sorts s in place with a stable sort. Undefined elements go after all
// others and holes are moved to the end, neither is passed to cmp.
func Sort(s Sequence, cmp Compare) error {
	length, err := s.Len()
	if err != nil {
		return err
	}
	items := make([]host.Value, 0, length)
	undefined := int64(0)
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
		if host.IsUndefined(v) {
			undefined++
			continue
		}
		items = append(items, v)
	}

	var cmpErr error
	slices.SortStableFunc(items, func(a, b host.Value) int {
		if cmpErr != nil {
			return 0
		}
		r, err := cmp(a, b)
		if err != nil {
			cmpErr = err
		}
		return r
	})
	if cmpErr != nil {
		return cmpErr
	}

	k := int64(0)
	for _, v := range items {
		if err := s.Set(k, v); err != nil {
			return err
		}
		k++
	}
	for ; undefined > 0; undefined-- {
		if err := s.Set(k, host.Undefined); err != nil {
			return err
		}
		k++
	}
	for ; k < length; k++ {
		if err := s.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
