// Package jsconv holds the numeric conversions and range helpers shared by the
// typed memory packages. Everything here is pure: values that need user code
// to be converted (objects with valueOf and the like) go through a host.Host
// first, and only the resulting numbers reach this package.
package jsconv

import (
	"math"
	"math/big"

	"go.k6.io/typedmem/errext"
)

// MaxSafeInteger is 2^53-1, the largest integer a float64 represents exactly
// along with all smaller ones.
const MaxSafeInteger = 1<<53 - 1

const (
	two32 = 4294967296.0
	two64 = 18446744073709551616.0
)

var mask64 = new(big.Int).SetUint64(math.MaxUint64)

// ToIntegerOrInfinity truncates f towards zero. NaN becomes 0, infinities are
// kept and -0 is normalized to +0.
func ToIntegerOrInfinity(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 0) {
		return f
	}
	t := math.Trunc(f)
	if t == 0 {
		return 0
	}
	return t
}

// ToIndex converts f to a non-negative integer index, failing with an
// InvalidIndex RangeError when it is negative or above MaxSafeInteger.
func ToIndex(f float64) (int64, error) {
	i := ToIntegerOrInfinity(f)
	if i < 0 || i > MaxSafeInteger {
		return 0, errext.New(errext.ErrInvalidIndex, "invalid index %s", FormatNumber(f))
	}
	return int64(i), nil
}

// ClampOffset resolves a relative offset against length: negative values
// count back from the end and the result always lies in [0, length].
func ClampOffset(relative float64, length int64) int64 {
	rel := ToIntegerOrInfinity(relative)
	if rel < 0 {
		r := float64(length) + rel
		if r < 0 {
			return 0
		}
		return int64(r)
	}
	if rel > float64(length) {
		return length
	}
	return int64(rel)
}

// ClampIndex is ClampOffset for a relative offset that is already an integer.
func ClampIndex(relative, length int64) int64 {
	if relative < 0 {
		if relative+length < 0 {
			return 0
		}
		return relative + length
	}
	if relative > length {
		return length
	}
	return relative
}

// modulo32 implements the shared part of ToInt32/ToUint32: truncate and wrap
// modulo 2^32.
func modulo32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	if t >= math.MinInt32 && t <= math.MaxUint32 {
		return uint32(int64(t))
	}
	m := math.Mod(t, two32)
	if m < 0 {
		m += two32
	}
	return uint32(m)
}

// ToInt32 is the two's-complement narrowing of f to 32 bits.
func ToInt32(f float64) int32 { return int32(modulo32(f)) }

// ToUint32 is the modular narrowing of f to 32 unsigned bits.
func ToUint32(f float64) uint32 { return modulo32(f) }

// ToInt16 is the two's-complement narrowing of f to 16 bits.
func ToInt16(f float64) int16 { return int16(modulo32(f)) }

// ToUint16 is the modular narrowing of f to 16 unsigned bits.
func ToUint16(f float64) uint16 { return uint16(modulo32(f)) }

// ToInt8 is the two's-complement narrowing of f to 8 bits.
func ToInt8(f float64) int8 { return int8(modulo32(f)) }

// ToUint8 is the modular narrowing of f to 8 unsigned bits.
func ToUint8(f float64) uint8 { return uint8(modulo32(f)) }

// ToUint8Clamp saturates f to [0, 255] and rounds half to even.
func ToUint8Clamp(f float64) uint8 {
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= 255:
		return 255
	}
	return uint8(math.RoundToEven(f))
}

// ToFloat32 narrows f with IEEE-754 round to nearest even.
func ToFloat32(f float64) float32 { return float32(f) }

// ToBigUint64 wraps b modulo 2^64.
func ToBigUint64(b *big.Int) uint64 {
	if b.IsUint64() {
		return b.Uint64()
	}
	return new(big.Int).And(b, mask64).Uint64()
}

// ToBigInt64 wraps b into the signed 64-bit range.
func ToBigInt64(b *big.Int) int64 {
	if b.IsInt64() {
		return b.Int64()
	}
	return int64(ToBigUint64(b))
}

// IntegralBigInt converts an integral number to a big.Int. It returns false
// for NaN, infinities and numbers with a fractional part.
func IntegralBigInt(f float64) (*big.Int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, false
	}
	if f >= -two64/2 && f < two64/2 {
		return big.NewInt(int64(f)), true
	}
	b, _ := new(big.Float).SetFloat64(f).Int(nil)
	return b, true
}
