package typedarray

import (
	"math"
	"math/big"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arrayops"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/jsconv"
)

func relative(h host.Host, v host.Value, length int64) (int64, error) {
	f, err := h.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return jsconv.ClampOffset(f, length), nil
}

// relativeEnd is relative with undefined meaning length.
func relativeEnd(h host.Host, v host.Value, length int64) (int64, error) {
	if host.IsUndefined(v) {
		return length, nil
	}
	return relative(h, v, length)
}

// Subarray returns a view of the elements in [begin, end) sharing v's store.
// Negative bounds count from the end and an omitted end keeps a length
// tracking view tracking.
func (v *View) Subarray(h host.Host, f Factory, begin, end host.Value) (*View, error) {
	srcLength := v.Length()
	start, err := relative(h, begin, srcLength)
	if err != nil {
		return nil, err
	}
	final, err := relativeEnd(h, end, srcLength)
	if err != nil {
		return nil, err
	}
	byteOffset := v.byteOffset + start*int64(v.kind.Width())
	if v.tracking && host.IsUndefined(end) {
		return derive(f, v, v.store, byteOffset, AutoLength)
	}
	return derive(f, v, v.store, byteOffset, max(final-start, 0))
}

// Slice copies the elements in [begin, end) into a new view created by f.
func (v *View) Slice(h host.Host, f Factory, begin, end host.Value) (*View, error) {
	length, err := v.Validate()
	if err != nil {
		return nil, err
	}
	start, err := relative(h, begin, length)
	if err != nil {
		return nil, err
	}
	final, err := relativeEnd(h, end, length)
	if err != nil {
		return nil, err
	}
	count := max(final-start, 0)
	res, err := derive(f, v, nil, 0, count)
	if err != nil || count == 0 {
		return res, err
	}

	if length, err = v.Validate(); err != nil {
		return nil, err
	}
	final = min(final, length)
	if final <= start {
		return res, nil
	}
	src := v
	if res.store == v.store {
		if src, err = v.snapshot(start, final-start); err != nil {
			return nil, err
		}
		final -= start
		start = 0
	}
	if res.kind == src.kind && !src.store.IsShared() && !res.store.IsShared() {
		n := (final - start) * int64(src.kind.Width())
		res.store.WriteBytes(res.byteOffset, src.store.ReadBytes(src.offsetOf(start), n))
		return res, nil
	}
	for n := int64(0); start < final; start, n = start+1, n+1 {
		if err := res.SetValue(n, src.kind.Decode(src.Bits(start))); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// SetFrom copies source into v starting at element offset. source is either
// a *View or an array-like host object.
func (v *View) SetFrom(h host.Host, source host.Value, offset host.Value) error {
	o, err := h.ToNumber(offset)
	if err != nil {
		return err
	}
	targetOffset := jsconv.ToIntegerOrInfinity(o)
	if targetOffset < 0 {
		return errext.New(errext.ErrOutOfBounds, "offset is out of bounds")
	}
	if src, ok := source.(*View); ok {
		return v.SetFromView(src, targetOffset)
	}
	return v.SetFromArrayLike(h, source, targetOffset)
}

// snapshot copies count elements starting at start into a view over a fresh
// unshared store. Elements of a shared store are read one atomic load each.
func (v *View) snapshot(start, count int64) (*View, error) {
	clone, err := v.store.CloneRange(v.offsetOf(start), count*int64(v.kind.Width()))
	if err != nil {
		return nil, err
	}
	return &View{kind: v.kind, store: clone, length: count}, nil
}

// rangeCheck validates copying srcLen-srcStart elements into a destination
// of destLen starting at destStart.
func rangeCheck(srcStart, srcLen int64, destStart float64, destLen int64) error {
	if srcStart < 0 || destStart < 0 || srcStart > srcLen || destStart > float64(destLen) ||
		float64(srcLen-srcStart) > float64(destLen)-destStart {
		return errext.New(errext.ErrOutOfBounds, "offset is out of bounds")
	}
	return nil
}

// SetFromView copies all of src into v at targetOffset. When both views
// share a store the source range is snapshotted first, so overlapping
// copies behave as if made through an intermediate buffer.
func (v *View) SetFromView(src *View, targetOffset float64) error {
	targetLength, err := v.Validate()
	if err != nil {
		return err
	}
	srcLength, err := src.Validate()
	if err != nil {
		return err
	}
	if err := contentTypeCheck(v.kind, src.kind); err != nil {
		return err
	}
	if err := rangeCheck(0, srcLength, targetOffset, targetLength); err != nil {
		return err
	}
	if srcLength == 0 {
		return nil
	}
	dst := int64(targetOffset)

	if src.store == v.store {
		if src, err = src.snapshot(0, srcLength); err != nil {
			return err
		}
	}

	switch {
	case src.kind == v.kind && !v.store.IsShared() && !src.store.IsShared():
		n := srcLength * int64(v.kind.Width())
		v.store.WriteBytes(v.offsetOf(dst), src.store.ReadBytes(src.byteOffset, n))
	case src.kind == v.kind:
		for i := int64(0); i < srcLength; i++ {
			v.SetBits(dst+i, src.Bits(i))
		}
	case src.kind.IsInteger() && v.kind.IsInteger(), src.kind.IsFloat() && v.kind.IsFloat():
		from, to := src.kind.codec(), v.kind.codec()
		for i := int64(0); i < srcLength; i++ {
			v.SetBits(dst+i, to.fromNumber(from.toNumber(src.Bits(i))))
		}
	default:
		for i := int64(0); i < srcLength; i++ {
			if err := v.CheckNotDetached(); err != nil {
				return err
			}
			v.SetBits(dst+i, v.kind.Encode(src.kind.Decode(src.Bits(i))))
		}
	}
	return nil
}

// SetFromArrayLike copies the elements of an array-like host object into v
// at targetOffset. Reading the source may run user code, so the store is
// checked for detachment before every write.
func (v *View) SetFromArrayLike(h host.Host, src host.Value, targetOffset float64) error {
	targetLength, err := v.Validate()
	if err != nil {
		return err
	}
	srcLength, err := h.Length(src)
	if err != nil {
		return err
	}
	if err := rangeCheck(0, srcLength, targetOffset, targetLength); err != nil {
		return err
	}
	dst := int64(targetOffset)
	for k := int64(0); k < srcLength; k++ {
		val, err := h.Get(src, k)
		if err != nil {
			return err
		}
		c, err := v.kind.Coerce(h, val)
		if err != nil {
			return err
		}
		if err := v.CheckNotDetached(); err != nil {
			return err
		}
		if v.InBounds(dst + k) {
			v.SetBits(dst+k, v.kind.Encode(c))
		}
	}
	return nil
}

// Fill writes value to every element in [start, end). value is coerced
// before the bounds are resolved, and a detach caused by that coercion is
// an error.
func (v *View) Fill(h host.Host, value, start, end host.Value) error {
	length, err := v.Validate()
	if err != nil {
		return err
	}
	c, err := v.kind.Coerce(h, value)
	if err != nil {
		return err
	}
	k, err := relative(h, start, length)
	if err != nil {
		return err
	}
	final, err := relativeEnd(h, end, length)
	if err != nil {
		return err
	}
	if length, err = v.Validate(); err != nil {
		return err
	}
	final = min(final, length)
	bits := v.kind.Encode(c)
	for ; k < final; k++ {
		v.SetBits(k, bits)
	}
	return nil
}

// Reverse reverses the elements in place.
func (v *View) Reverse() error {
	if _, err := v.Validate(); err != nil {
		return err
	}
	return arrayops.Reverse(v.Sequence(nil))
}

// CopyWithin copies the elements in [start, end) to target within v, like
// memmove.
func (v *View) CopyWithin(h host.Host, target, start, end host.Value) error {
	length, err := v.Validate()
	if err != nil {
		return err
	}
	to, err := relative(h, target, length)
	if err != nil {
		return err
	}
	from, err := relative(h, start, length)
	if err != nil {
		return err
	}
	final, err := relativeEnd(h, end, length)
	if err != nil {
		return err
	}
	count := min(final-from, length-to)
	if count <= 0 {
		return nil
	}
	if length, err = v.Validate(); err != nil {
		return err
	}
	w := int64(v.kind.Width())
	limit := v.byteOffset + length*w
	toByte, fromByte := v.offsetOf(to), v.offsetOf(from)
	n := count * w
	n = min(n, limit-fromByte, limit-toByte)
	if n > 0 {
		v.store.Move(toByte, fromByte, n)
	}
	return nil
}

// At returns the element at a relative index, negative values counting from
// the end, or host.Undefined outside the view.
func (v *View) At(h host.Host, index host.Value) (host.Value, error) {
	length, err := v.Validate()
	if err != nil {
		return nil, err
	}
	f, err := h.ToNumber(index)
	if err != nil {
		return nil, err
	}
	rel := jsconv.ToIntegerOrInfinity(f)
	if rel < 0 {
		rel += float64(length)
	}
	if rel < 0 || rel >= float64(length) {
		return host.Undefined, nil
	}
	return v.Sequence(h).Get(int64(rel))
}

// Join concatenates the string forms of the elements with sep, "," when
// omitted.
func (v *View) Join(h host.Host, sep ...host.Value) (string, error) {
	if _, err := v.Validate(); err != nil {
		return "", err
	}
	return arrayops.Join(h, v.Sequence(h), sep...)
}

// String is Join with the default separator.
func (v *View) String(h host.Host) (string, error) {
	return v.Join(h)
}

// NumericCompare orders typed elements by value: -0 before +0 and NaN after
// everything else.
func NumericCompare(a, b host.Value) (int, error) {
	if x, ok := a.(*big.Int); ok {
		return x.Cmp(b.(*big.Int)), nil //nolint:forcetypeassert
	}
	x, y := a.(float64), b.(float64) //nolint:forcetypeassert
	switch {
	case math.IsNaN(x) && math.IsNaN(y):
		return 0, nil
	case math.IsNaN(x):
		return 1, nil
	case math.IsNaN(y):
		return -1, nil
	case x < y:
		return -1, nil
	case x > y:
		return 1, nil
	case x == 0 && y == 0:
		sx, sy := math.Signbit(x), math.Signbit(y)
		if sx && !sy {
			return -1, nil
		}
		if !sx && sy {
			return 1, nil
		}
	}
	return 0, nil
}

// Sort sorts the elements in place, numerically unless cmp is a user
// comparator.
func (v *View) Sort(h host.Host, cmp host.Value) error {
	compare := arrayops.Compare(NumericCompare)
	if !host.IsUndefined(cmp) {
		var err error
		if compare, err = arrayops.FunctionCompare(h, cmp); err != nil {
			return err
		}
	}
	if _, err := v.Validate(); err != nil {
		return err
	}
	return arrayops.Sort(v.Sequence(h), compare)
}

// Map returns a view created by f holding fn(element, index, obj) for every
// element, obj being the script value that represents v.
func (v *View) Map(h host.Host, f Factory, obj, fn, this host.Value) (*View, error) {
	length, err := v.Validate()
	if err != nil {
		return nil, err
	}
	if !h.IsCallable(fn) {
		return nil, errext.New(errext.ErrNotCallable, "callback is not a function")
	}
	res, err := derive(f, v, nil, 0, length)
	if err != nil {
		return nil, err
	}
	if err := arrayops.Map(h, v.Sequence(h), obj, fn, this, res.Sequence(h)); err != nil {
		return nil, err
	}
	return res, nil
}

// Filter returns a view created by f holding the elements for which fn
// returns a truthy value.
func (v *View) Filter(h host.Host, f Factory, obj, fn, this host.Value) (*View, error) {
	if _, err := v.Validate(); err != nil {
		return nil, err
	}
	kept, err := arrayops.Filter(h, v.Sequence(h), obj, fn, this)
	if err != nil {
		return nil, err
	}
	res, err := derive(f, v, nil, 0, int64(len(kept)))
	if err != nil {
		return nil, err
	}
	out := res.Sequence(h)
	for i, val := range kept {
		if err := out.Set(int64(i), val); err != nil {
			return nil, err
		}
	}
	return res, nil
}
