package host

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/jsconv"
)

// Object is an ordinary indexed object for the Go host. Missing keys in
// Props are holes. When Getter is set it replaces the plain lookup, which is
// how tests model accessors that run arbitrary code.
type Object struct {
	Length int64
	Props  map[int64]Value
	Getter func(index int64) (Value, error)
}

// NewArray returns a dense Object holding values.
func NewArray(values ...Value) *Object {
	o := &Object{Length: int64(len(values)), Props: make(map[int64]Value, len(values))}
	for i, v := range values {
		o.Props[int64(i)] = v
	}
	return o
}

// Func is a callable value for the Go host.
type Func func(this Value, args ...Value) (Value, error)

// Coercible is an object whose conversion to a primitive runs ValueOf, like a
// script object with a custom valueOf method.
type Coercible struct {
	ValueOf func() (Value, error)
}

// Go is a Host over plain Go values: nil (null), Undefined, bool, string,
// Go numbers, *big.Int, *Object, Func and *Coercible.
type Go struct{}

var _ Host = Go{}

func asNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint8:
		return float64(n), true
	}
	return 0, false
}

// Get implements Host.
func (g Go) Get(obj Value, index int64) (Value, error) {
	o, ok := obj.(*Object)
	if !ok {
		return Undefined, nil
	}
	if o.Getter != nil {
		return o.Getter(index)
	}
	if v, ok := o.Props[index]; ok {
		return v, nil
	}
	return Undefined, nil
}

// Set implements Host.
func (g Go) Set(obj Value, index int64, v Value) error {
	o, ok := obj.(*Object)
	if !ok {
		return errext.New(errext.ErrIncompatibleReceiver, "cannot set index %d", index)
	}
	if o.Props == nil {
		o.Props = make(map[int64]Value)
	}
	o.Props[index] = v
	if index >= o.Length {
		o.Length = index + 1
	}
	return nil
}

// Has implements Host.
func (g Go) Has(obj Value, index int64) (bool, error) {
	o, ok := obj.(*Object)
	if !ok {
		return false, nil
	}
	if o.Getter != nil {
		return index >= 0 && index < o.Length, nil
	}
	_, ok = o.Props[index]
	return ok, nil
}

// Delete implements Host.
func (g Go) Delete(obj Value, index int64) error {
	if o, ok := obj.(*Object); ok {
		delete(o.Props, index)
	}
	return nil
}

// Length implements Host.
func (g Go) Length(obj Value) (int64, error) {
	if o, ok := obj.(*Object); ok {
		return o.Length, nil
	}
	return 0, nil
}

// IsCallable implements Host.
func (g Go) IsCallable(fn Value) bool {
	f, ok := fn.(Func)
	return ok && f != nil
}

// Call implements Host.
func (g Go) Call(fn Value, this Value, args ...Value) (Value, error) {
	f, ok := fn.(Func)
	if !ok || f == nil {
		return nil, errext.ErrNotCallable
	}
	return f(this, args...)
}

// ToNumber implements Host.
func (g Go) ToNumber(v Value) (float64, error) {
	if f, ok := asNumber(v); ok {
		return f, nil
	}
	switch x := v.(type) {
	case nil:
		return 0, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseNumber(x), nil
	case *big.Int:
		return 0, errext.New(errext.ErrContentTypeMismatch, "cannot convert a BigInt value to a number")
	case *Coercible:
		p, err := x.ValueOf()
		if err != nil {
			return 0, err
		}
		return g.ToNumber(p)
	}
	return math.NaN(), nil
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if u, err := strconv.ParseUint(s[2:], 16, 64); err == nil {
			return float64(u)
		}
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToBigInt implements Host.
func (g Go) ToBigInt(v Value) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		return x, nil
	case bool:
		if x {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case string:
		b, ok := new(big.Int).SetString(strings.TrimSpace(x), 10)
		if !ok {
			return nil, errext.New(errext.ErrContentTypeMismatch, "cannot convert %q to a BigInt", x)
		}
		return b, nil
	case *Coercible:
		p, err := x.ValueOf()
		if err != nil {
			return nil, err
		}
		return g.ToBigInt(p)
	}
	return nil, errext.New(errext.ErrContentTypeMismatch, "cannot convert %v to a BigInt", v)
}

// ToBoolean implements Host.
func (g Go) ToBoolean(v Value) bool {
	if f, ok := asNumber(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case *big.Int:
		return x.Sign() != 0
	}
	return !IsUndefined(v)
}

// ToString implements Host.
func (g Go) ToString(v Value) (string, error) {
	if f, ok := asNumber(v); ok {
		return jsconv.FormatNumber(f), nil
	}
	switch x := v.(type) {
	case nil:
		return "null", nil
	case bool:
		return strconv.FormatBool(x), nil
	case string:
		return x, nil
	case *big.Int:
		return x.String(), nil
	case *Coercible:
		p, err := x.ValueOf()
		if err != nil {
			return "", err
		}
		return g.ToString(p)
	case *Object:
		return "[object Object]", nil
	}
	if IsUndefined(v) {
		return "undefined", nil
	}
	return "[object Object]", nil
}

// StrictEquals implements Host.
func (g Go) StrictEquals(a, b Value) bool {
	fa, aok := asNumber(a)
	fb, bok := asNumber(b)
	if aok || bok {
		return aok && bok && fa == fb
	}
	ba, aok := a.(*big.Int)
	bb, bok := b.(*big.Int)
	if aok || bok {
		return aok && bok && ba.Cmp(bb) == 0
	}
	switch a.(type) {
	case Func:
		return false
	case *Object, *Coercible, string, bool, nil:
		return a == b
	}
	return IsUndefined(a) && IsUndefined(b)
}

// SameValueZero implements Host.
func (g Go) SameValueZero(a, b Value) bool {
	fa, aok := asNumber(a)
	fb, bok := asNumber(b)
	if aok && bok && math.IsNaN(fa) && math.IsNaN(fb) {
		return true
	}
	return g.StrictEquals(a, b)
}
