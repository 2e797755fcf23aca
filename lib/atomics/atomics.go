package atomics

import (
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/jsconv"
	"go.k6.io/typedmem/lib/typedarray"
)

// ValidateIntegerView checks that v is an in-bounds view of an integer kind
// atomics can operate on. With waitable only Int32 and BigInt64 qualify.
func ValidateIntegerView(v *typedarray.View, waitable bool) error {
	if v == nil {
		return errext.ErrArrayBufferViewExpected
	}
	if _, err := v.Validate(); err != nil {
		return err
	}
	k := v.Kind()
	ok := k == typedarray.Int32 || k == typedarray.BigInt64
	if !waitable {
		ok = ok || k.IsBigInt() || (k.IsInteger() && k != typedarray.Uint8Clamped)
	}
	if !ok {
		return errext.New(errext.ErrNonSharedArray, "atomics are not supported on %s", k.ConstructorName())
	}
	return nil
}

// ValidateAtomicAccess converts index to an element index of v, failing with
// an OutOfBounds RangeError past the end of the view.
func ValidateAtomicAccess(h host.Host, v *typedarray.View, index host.Value) (int64, error) {
	f, err := h.ToNumber(index)
	if err != nil {
		return 0, err
	}
	i, err := jsconv.ToIndex(f)
	if err != nil {
		return 0, err
	}
	if i >= v.Length() {
		return 0, errext.New(errext.ErrOutOfBounds, "index %d is out of bounds for length %d", i, v.Length())
	}
	return i, nil
}

// revalidate repeats the view checks after user code may have run.
func revalidate(v *typedarray.View, i int64) error {
	if _, err := v.Validate(); err != nil {
		return err
	}
	if i >= v.Length() {
		return errext.New(errext.ErrOutOfBounds, "index %d is out of bounds for length %d", i, v.Length())
	}
	return nil
}

// operand coerces value for an atomic operation: to a BigInt for bigint
// views, to an integral number otherwise.
func operand(h host.Host, k typedarray.Kind, value host.Value) (host.Value, error) {
	if k.IsBigInt() {
		return h.ToBigInt(value)
	}
	f, err := h.ToNumber(value)
	if err != nil {
		return nil, err
	}
	return jsconv.ToIntegerOrInfinity(f), nil
}

func location(v *typedarray.View, i int64) (offset int64, width int) {
	width = v.Kind().Width()
	return v.ByteOffset() + i*int64(width), width
}

func mask(width int) uint64 {
	if width == 8 {
		return ^uint64(0)
	}
	return 1<<(uint(width)*8) - 1
}

func prepare(h host.Host, v *typedarray.View, index, value host.Value) (int64, host.Value, error) {
	if err := ValidateIntegerView(v, false); err != nil {
		return 0, nil, err
	}
	i, err := ValidateAtomicAccess(h, v, index)
	if err != nil {
		return 0, nil, err
	}
	c, err := operand(h, v.Kind(), value)
	if err != nil {
		return 0, nil, err
	}
	return i, c, revalidate(v, i)
}

// rmw installs op(old, operand) at the element with a CAS loop and returns
// the old value. The loop retries until no other agent changed the element
// between the load and the swap.
func rmw(h host.Host, v *typedarray.View, index, value host.Value, op func(old, x uint64) uint64) (host.Value, error) {
	i, c, err := prepare(h, v, index, value)
	if err != nil {
		return nil, err
	}
	x := v.Kind().Encode(c)
	off, width := location(v, i)
	store, m := v.Store(), mask(width)
	for {
		old := store.Load(off, width)
		if store.CompareAndSwap(off, width, old, op(old, x)&m) {
			return v.Kind().Decode(old), nil
		}
	}
}

// Add adds value to the element and returns the previous value.
func Add(h host.Host, v *typedarray.View, index, value host.Value) (host.Value, error) {
	return rmw(h, v, index, value, func(old, x uint64) uint64 { return old + x })
}

// Sub subtracts value from the element and returns the previous value.
func Sub(h host.Host, v *typedarray.View, index, value host.Value) (host.Value, error) {
	return rmw(h, v, index, value, func(old, x uint64) uint64 { return old - x })
}

// And stores the bitwise and of the element and value, returning the
// previous value.
func And(h host.Host, v *typedarray.View, index, value host.Value) (host.Value, error) {
	return rmw(h, v, index, value, func(old, x uint64) uint64 { return old & x })
}

// Or stores the bitwise or of the element and value, returning the previous
// value.
func Or(h host.Host, v *typedarray.View, index, value host.Value) (host.Value, error) {
	return rmw(h, v, index, value, func(old, x uint64) uint64 { return old | x })
}

// Xor stores the bitwise xor of the element and value, returning the
// previous value.
func Xor(h host.Host, v *typedarray.View, index, value host.Value) (host.Value, error) {
	return rmw(h, v, index, value, func(old, x uint64) uint64 { return old ^ x })
}

// Exchange stores value and returns the previous value.
func Exchange(h host.Host, v *typedarray.View, index, value host.Value) (host.Value, error) {
	return rmw(h, v, index, value, func(_, x uint64) uint64 { return x })
}

// CompareExchange stores replacement if the element equals expected and
// returns the previous value either way. It does not retry a failed
// comparison; the loop only absorbs a concurrent change between the read
// and the swap, when the swap is re-evaluated against the fresh value.
func CompareExchange(h host.Host, v *typedarray.View, index, expected, replacement host.Value) (host.Value, error) {
	if err := ValidateIntegerView(v, false); err != nil {
		return nil, err
	}
	i, err := ValidateAtomicAccess(h, v, index)
	if err != nil {
		return nil, err
	}
	k := v.Kind()
	exp, err := operand(h, k, expected)
	if err != nil {
		return nil, err
	}
	rep, err := operand(h, k, replacement)
	if err != nil {
		return nil, err
	}
	if err := revalidate(v, i); err != nil {
		return nil, err
	}
	off, width := location(v, i)
	store, m := v.Store(), mask(width)
	e, r := k.Encode(exp)&m, k.Encode(rep)&m
	for {
		old := store.Load(off, width)
		if old != e || store.CompareAndSwap(off, width, old, r) {
			return k.Decode(old), nil
		}
	}
}

// Load reads the element.
func Load(h host.Host, v *typedarray.View, index host.Value) (host.Value, error) {
	if err := ValidateIntegerView(v, false); err != nil {
		return nil, err
	}
	i, err := ValidateAtomicAccess(h, v, index)
	if err != nil {
		return nil, err
	}
	if err := revalidate(v, i); err != nil {
		return nil, err
	}
	off, width := location(v, i)
	return v.Kind().Decode(v.Store().Load(off, width)), nil
}

// Store writes value to the element and returns the coerced value before
// narrowing to the element kind.
func Store(h host.Host, v *typedarray.View, index, value host.Value) (host.Value, error) {
	i, c, err := prepare(h, v, index, value)
	if err != nil {
		return nil, err
	}
	off, width := location(v, i)
	v.Store().Store(off, width, v.Kind().Encode(c))
	return c, nil
}

// IsLockFree reports whether atomic operations on elements of size bytes
// are lock free, which holds for every element width.
func IsLockFree(size float64) bool {
	switch size {
	case 1, 2, 4, 8:
		return true
	}
	return false
}
