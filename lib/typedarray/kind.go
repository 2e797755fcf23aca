// Package typedarray implements typed views over array buffer stores: the
// eleven element kinds and their bit-exact codecs, view construction and
// bounds tracking, the view operations (subarray, slice, set, fill, reverse,
// copyWithin and the iteration methods) and DataView.
package typedarray

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/jsconv"
)

// Kind is the element type of a view.
type Kind uint8

// The element kinds.
const (
	Int8 Kind = iota
	Uint8
	Uint8Clamped
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
	BigInt64
	BigUint64
)

// Kinds lists every element kind in declaration order.
var Kinds = []Kind{ //nolint:gochecknoglobals
	Int8, Uint8, Uint8Clamped, Int16, Uint16, Int32, Uint32, Float32, Float64, BigInt64, BigUint64,
}

type family uint8

const (
	integerFamily family = iota
	floatFamily
	bigFamily
)

type codec struct {
	name   string
	width  int
	family family

	fromNumber func(float64) uint64
	toNumber   func(uint64) float64
	fromBig    func(*big.Int) uint64
	toBig      func(uint64) *big.Int
}

var codecs = [...]codec{ //nolint:gochecknoglobals
	Int8: {
		name: "Int8", width: 1,
		fromNumber: func(f float64) uint64 { return uint64(uint8(jsconv.ToInt8(f))) },
		toNumber:   func(b uint64) float64 { return float64(int8(b)) },
	},
	Uint8: {
		name: "Uint8", width: 1,
		fromNumber: func(f float64) uint64 { return uint64(jsconv.ToUint8(f)) },
		toNumber:   func(b uint64) float64 { return float64(uint8(b)) },
	},
	Uint8Clamped: {
		name: "Uint8Clamped", width: 1,
		fromNumber: func(f float64) uint64 { return uint64(jsconv.ToUint8Clamp(f)) },
		toNumber:   func(b uint64) float64 { return float64(uint8(b)) },
	},
	Int16: {
		name: "Int16", width: 2,
		fromNumber: func(f float64) uint64 { return uint64(uint16(jsconv.ToInt16(f))) },
		toNumber:   func(b uint64) float64 { return float64(int16(b)) },
	},
	Uint16: {
		name: "Uint16", width: 2,
		fromNumber: func(f float64) uint64 { return uint64(jsconv.ToUint16(f)) },
		toNumber:   func(b uint64) float64 { return float64(uint16(b)) },
	},
	Int32: {
		name: "Int32", width: 4,
		fromNumber: func(f float64) uint64 { return uint64(uint32(jsconv.ToInt32(f))) },
		toNumber:   func(b uint64) float64 { return float64(int32(b)) },
	},
	Uint32: {
		name: "Uint32", width: 4,
		fromNumber: func(f float64) uint64 { return uint64(jsconv.ToUint32(f)) },
		toNumber:   func(b uint64) float64 { return float64(uint32(b)) },
	},
	Float32: {
		name: "Float32", width: 4, family: floatFamily,
		fromNumber: func(f float64) uint64 { return uint64(math.Float32bits(jsconv.ToFloat32(f))) },
		toNumber:   func(b uint64) float64 { return float64(math.Float32frombits(uint32(b))) },
	},
	Float64: {
		name: "Float64", width: 8, family: floatFamily,
		fromNumber: math.Float64bits,
		toNumber:   math.Float64frombits,
	},
	BigInt64: {
		name: "BigInt64", width: 8, family: bigFamily,
		fromBig: func(b *big.Int) uint64 { return uint64(jsconv.ToBigInt64(b)) },
		toBig:   func(b uint64) *big.Int { return big.NewInt(int64(b)) },
	},
	BigUint64: {
		name: "BigUint64", width: 8, family: bigFamily,
		fromBig: jsconv.ToBigUint64,
		toBig:   func(b uint64) *big.Int { return new(big.Int).SetUint64(b) },
	},
}

func (k Kind) codec() *codec { return &codecs[k] }

// String returns the kind name, e.g. "Uint8Clamped".
func (k Kind) String() string {
	if int(k) >= len(codecs) {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return codecs[k].name
}

// ConstructorName is the script constructor of the kind, e.g. "Int32Array".
func (k Kind) ConstructorName() string { return k.String() + "Array" }

// Width is the number of bytes per element.
func (k Kind) Width() int { return codecs[k].width }

// IsBigInt reports whether elements are bigints rather than numbers.
func (k Kind) IsBigInt() bool { return codecs[k].family == bigFamily }

// IsFloat reports whether elements are IEEE-754 floats.
func (k Kind) IsFloat() bool { return codecs[k].family == floatFamily }

// IsInteger reports whether elements are integers of at most 32 bits.
func (k Kind) IsInteger() bool { return codecs[k].family == integerFamily }

// ParseKind resolves a kind by name, with or without the "Array" suffix and
// ignoring case.
func ParseKind(name string) (Kind, error) {
	n := strings.TrimSuffix(strings.ToLower(name), "array")
	for _, k := range Kinds {
		if strings.ToLower(k.String()) == n {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown element kind %q", name)
}

// Encode returns the element bits for v, which must be a float64 for number
// kinds or a *big.Int for bigint kinds.
func (k Kind) Encode(v host.Value) uint64 {
	c := k.codec()
	if c.family == bigFamily {
		return c.fromBig(v.(*big.Int)) //nolint:forcetypeassert
	}
	return c.fromNumber(v.(float64)) //nolint:forcetypeassert
}

// Decode turns element bits into a float64 or a *big.Int.
func (k Kind) Decode(bits uint64) host.Value {
	c := k.codec()
	if c.family == bigFamily {
		return c.toBig(bits)
	}
	return c.toNumber(bits)
}

// Coerce converts v to the kind's value domain through h, which may run user
// code. The result is a float64 for number kinds and a *big.Int for bigint
// kinds; it is not narrowed yet.
func (k Kind) Coerce(h host.Host, v host.Value) (host.Value, error) {
	if k.IsBigInt() {
		return h.ToBigInt(v)
	}
	return h.ToNumber(v)
}

// coerceNative is Coerce that passes values already in the kind's domain
// through without consulting h, which may then be nil.
func (k Kind) coerceNative(h host.Host, v host.Value) (host.Value, error) {
	switch v.(type) {
	case float64:
		if !k.IsBigInt() {
			return v, nil
		}
	case *big.Int:
		if k.IsBigInt() {
			return v, nil
		}
	}
	return k.Coerce(h, v)
}

// Narrow applies the kind's conversion to f: wraparound for integers,
// clamping for Uint8Clamped and rounding for Float32. Not valid for bigint
// kinds.
func (k Kind) Narrow(f float64) float64 {
	c := k.codec()
	return c.toNumber(c.fromNumber(f))
}

func contentTypeCheck(a, b Kind) error {
	if a.IsBigInt() != b.IsBigInt() {
		return errext.New(errext.ErrContentTypeMismatch, "cannot mix %s and %s elements", a, b)
	}
	return nil
}
