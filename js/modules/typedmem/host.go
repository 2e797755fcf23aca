package typedmem

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dop251/goja"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/js/common"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/jsconv"
)

var maxSafe = big.NewInt(jsconv.MaxSafeInteger) //nolint:gochecknoglobals

// gojaHost implements host.Host on top of a goja runtime. Values coming from
// scripts stay goja.Values, except undefined which maps to host.Undefined.
// Element values produced by the typed memory packages (float64, *big.Int)
// are converted when they reach script code again.
type gojaHost struct {
	rt    *goja.Runtime
	hasFn goja.Callable
}

var _ host.Host = &gojaHost{}

func newHost(rt *goja.Runtime) (*gojaHost, error) {
	// goja has no Go API for the `in` operator that sees prototype chains
	// and proxies the way scripts do.
	v, err := rt.RunString(`(function(o, k) { return k in o; })`)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		panic("the `in` helper is not a function")
	}
	return &gojaHost{rt: rt, hasFn: fn}, nil
}

// toJS converts a host value into a script value. BigInt elements become
// numbers when they are safe integers and decimal strings otherwise, since
// the runtime has no BigInt type.
func (h *gojaHost) toJS(v host.Value) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case goja.Value:
		return x
	case float64:
		return h.rt.ToValue(x)
	case *big.Int:
		if x.CmpAbs(maxSafe) <= 0 {
			return h.rt.ToValue(float64(x.Int64()))
		}
		return h.rt.ToValue(x.String())
	}
	if host.IsUndefined(v) {
		return goja.Undefined()
	}
	return h.rt.ToValue(v)
}

func (h *gojaHost) toJSArgs(args []host.Value) []goja.Value {
	res := make([]goja.Value, len(args))
	for i, a := range args {
		res[i] = h.toJS(a)
	}
	return res
}

// fromJS is the inverse of toJS for values read from scripts.
func fromJS(v goja.Value) host.Value {
	if v == nil || goja.IsUndefined(v) {
		return host.Undefined
	}
	return v
}

// arg returns the i-th call argument as a host value.
func arg(call goja.FunctionCall, i int) host.Value {
	return fromJS(call.Argument(i))
}

// rest returns the arguments from i on as host values.
func rest(call goja.FunctionCall, i int) []host.Value {
	if len(call.Arguments) <= i {
		return nil
	}
	res := make([]host.Value, 0, len(call.Arguments)-i)
	for _, a := range call.Arguments[i:] {
		res = append(res, fromJS(a))
	}
	return res
}

func (h *gojaHost) object(obj host.Value) (o *goja.Object, err error) {
	err = common.Try(func() {
		o = h.toJS(obj).ToObject(h.rt)
	})
	return o, err
}

func key(index int64) string {
	return strconv.FormatInt(index, 10)
}

// Get implements host.Host.
func (h *gojaHost) Get(obj host.Value, index int64) (host.Value, error) {
	o, err := h.object(obj)
	if err != nil {
		return nil, err
	}
	var v goja.Value
	err = common.Try(func() {
		v = o.Get(key(index))
	})
	return fromJS(v), err
}

// Set implements host.Host.
func (h *gojaHost) Set(obj host.Value, index int64, v host.Value) error {
	o, ok := h.toJS(obj).(*goja.Object)
	if !ok {
		return errext.New(errext.ErrIncompatibleReceiver, "cannot set index %d of a primitive", index)
	}
	return o.Set(key(index), h.toJS(v))
}

// Has implements host.Host.
func (h *gojaHost) Has(obj host.Value, index int64) (bool, error) {
	res, err := h.hasFn(goja.Undefined(), h.toJS(obj), h.rt.ToValue(key(index)))
	if err != nil {
		return false, err
	}
	return res.ToBoolean(), nil
}

// Delete implements host.Host.
func (h *gojaHost) Delete(obj host.Value, index int64) error {
	o, err := h.object(obj)
	if err != nil {
		return err
	}
	return o.Delete(key(index))
}

// Length implements host.Host.
func (h *gojaHost) Length(obj host.Value) (int64, error) {
	o, err := h.object(obj)
	if err != nil {
		return 0, err
	}
	var l goja.Value
	if err := common.Try(func() { l = o.Get("length") }); err != nil {
		return 0, err
	}
	f, err := h.ToNumber(fromJS(l))
	if err != nil {
		return 0, err
	}
	f = jsconv.ToIntegerOrInfinity(f)
	switch {
	case f <= 0:
		return 0, nil
	case f >= jsconv.MaxSafeInteger:
		return jsconv.MaxSafeInteger, nil
	}
	return int64(f), nil
}

// IsCallable implements host.Host.
func (h *gojaHost) IsCallable(fn host.Value) bool {
	_, ok := goja.AssertFunction(h.toJS(fn))
	return ok
}

// Call implements host.Host.
func (h *gojaHost) Call(fn host.Value, this host.Value, args ...host.Value) (host.Value, error) {
	f, ok := goja.AssertFunction(h.toJS(fn))
	if !ok {
		return nil, errext.ErrNotCallable
	}
	res, err := f(h.toJS(this), h.toJSArgs(args)...)
	if err != nil {
		return nil, err
	}
	return fromJS(res), nil
}

// ToNumber implements host.Host.
func (h *gojaHost) ToNumber(v host.Value) (f float64, err error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case *big.Int:
		return 0, errext.New(errext.ErrContentTypeMismatch, "cannot convert a BigInt value to a number")
	}
	if host.IsUndefined(v) {
		return math.NaN(), nil
	}
	err = common.Try(func() {
		f = h.toJS(v).ToFloat()
	})
	return f, err
}

// ToBigInt implements host.Host. Integral numbers are accepted along with
// booleans and strings, as scripts have no BigInt literals to pass.
func (h *gojaHost) ToBigInt(v host.Value) (*big.Int, error) {
	if b, ok := v.(*big.Int); ok {
		return new(big.Int).Set(b), nil
	}
	if host.IsUndefined(v) {
		return nil, errext.New(errext.ErrContentTypeMismatch, "cannot convert undefined to a BigInt")
	}
	jv := h.toJS(v)
	if b, ok := jv.Export().(*big.Int); ok {
		return new(big.Int).Set(b), nil
	}
	if o, ok := jv.(*goja.Object); ok {
		f, err := h.ToNumber(o)
		if err != nil {
			return nil, err
		}
		jv = h.rt.ToValue(f)
	}

	switch x := jv.Export().(type) {
	case nil:
		return nil, errext.New(errext.ErrContentTypeMismatch, "cannot convert null to a BigInt")
	case bool:
		if x {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return big.NewInt(0), nil
		}
		b, ok := new(big.Int).SetString(s, 0)
		if !ok || strings.Contains(s, "_") {
			return nil, errext.New(errext.ErrContentTypeMismatch, "cannot convert %q to a BigInt", x)
		}
		return b, nil
	}
	f := jv.ToFloat()
	b, ok := jsconv.IntegralBigInt(f)
	if !ok {
		return nil, errext.New(errext.ErrInvalidIndex,
			"the number %s cannot be converted to a BigInt because it is not an integer", jsconv.FormatNumber(f))
	}
	return b, nil
}

// ToBoolean implements host.Host.
func (h *gojaHost) ToBoolean(v host.Value) bool {
	return h.toJS(v).ToBoolean()
}

// ToString implements host.Host.
func (h *gojaHost) ToString(v host.Value) (s string, err error) {
	switch x := v.(type) {
	case float64:
		return jsconv.FormatNumber(x), nil
	case *big.Int:
		return x.String(), nil
	}
	err = common.Try(func() {
		s = h.toJS(v).String()
	})
	return s, err
}

// StrictEquals implements host.Host.
func (h *gojaHost) StrictEquals(a, b host.Value) bool {
	return h.toJS(a).StrictEquals(h.toJS(b))
}

// SameValueZero implements host.Host.
func (h *gojaHost) SameValueZero(a, b host.Value) bool {
	ja, jb := h.toJS(a), h.toJS(b)
	if ja.StrictEquals(jb) {
		return true
	}
	return ja.SameAs(jb)
}
