package typedmem

import (
	"github.com/dop251/goja"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/js/common"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/arrayops"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/typedarray"
)

// viewObject backs typed array objects. Reads outside the view give
// undefined and writes there are dropped, detached or not.
type viewObject struct {
	mi     *ModuleInstance
	v      *typedarray.View
	buffer *goja.Object
}

var _ goja.DynamicArray = &viewObject{}

func (o *viewObject) Len() int {
	return int(o.v.Length())
}

func (o *viewObject) Get(idx int) goja.Value {
	val, err := o.v.Sequence(o.mi.h).Get(int64(idx))
	if err != nil {
		o.mi.throw(err)
	}
	return o.mi.toJS(val)
}

func (o *viewObject) Set(idx int, val goja.Value) bool {
	if err := o.v.Sequence(o.mi.h).Set(int64(idx), fromJS(val)); err != nil {
		o.mi.throw(err)
	}
	return true
}

// SetLen refuses length changes, typed arrays have a fixed length.
func (o *viewObject) SetLen(int) bool {
	return false
}

// bufferObject returns the script object of the view's store, creating it
// on first use.
func (o *viewObject) bufferObject() *goja.Object {
	if o.buffer == nil {
		o.buffer = o.mi.newBufferObject(o.v.Store())
	}
	return o.buffer
}

// wrapView creates the script object for v. buffer is the object of v's
// store when the caller already has one.
func (mi *ModuleInstance) wrapView(v *typedarray.View, buffer *goja.Object) (*goja.Object, *viewObject) {
	vo := &viewObject{mi: mi, v: v, buffer: buffer}
	obj := mi.rt.NewDynamicArray(vo)
	_ = obj.SetPrototype(mi.protos[v.Kind()])
	return obj, vo
}

// asView returns the view behind v, if v is a typed array.
func asView(v goja.Value) (*viewObject, bool) {
	o, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	vo, ok := o.Export().(*viewObject)
	return vo, ok
}

func (mi *ModuleInstance) thisView(this goja.Value, method string) *viewObject {
	vo, ok := asView(this)
	if !ok {
		mi.throw(incompatible("%TypedArray%.prototype." + method))
	}
	return vo
}

// validView is thisView for methods that need an attached, in-bounds view.
func (mi *ModuleInstance) validView(this goja.Value, method string) *viewObject {
	vo := mi.thisView(this, method)
	if _, err := vo.v.Validate(); err != nil {
		mi.throw(err)
	}
	return vo
}

// kindOf returns the kind a built-in typed array constructor creates.
func (mi *ModuleInstance) kindOf(ctor goja.Value) (typedarray.Kind, bool) {
	for k, c := range mi.ctors {
		if c.SameAs(ctor) {
			return k, true
		}
	}
	return 0, false
}

// construct creates a typed array of length elements with ctor, which may be
// a built-in constructor or any script constructor returning a typed array.
func (mi *ModuleInstance) construct(ctor goja.Value, length int64) (*goja.Object, *viewObject, error) {
	if k, ok := mi.kindOf(ctor); ok {
		v, err := typedarray.New(mi.alloc, k, length)
		if err != nil {
			return nil, nil, err
		}
		obj, vo := mi.wrapView(v, nil)
		return obj, vo, nil
	}
	obj, err := mi.rt.New(ctor, mi.rt.ToValue(length))
	if err != nil {
		return nil, nil, err
	}
	vo, ok := asView(obj)
	if !ok {
		return nil, nil, errext.New(errext.ErrArrayBufferViewExpected, "constructor did not return a typed array")
	}
	n, err := vo.v.Validate()
	if err != nil {
		return nil, nil, err
	}
	if n < length {
		return nil, nil, errext.New(errext.ErrArrayBufferViewExpected,
			"constructed typed array is too short: %d < %d", n, length)
	}
	return obj, vo, nil
}

// speciesFactory creates derived views through the species constructor of
// the exemplar object, falling back to the exemplar's own kind.
type speciesFactory struct {
	mi     *ModuleInstance
	this   *goja.Object
	source *viewObject
	result *goja.Object
}

var _ typedarray.Factory = &speciesFactory{}

func (mi *ModuleInstance) factory(this goja.Value, source *viewObject) *speciesFactory {
	return &speciesFactory{mi: mi, this: this.ToObject(mi.rt), source: source}
}

func (f *speciesFactory) species() (ctor goja.Value, err error) {
	err = common.Try(func() {
		c := f.this.Get("constructor")
		if c == nil || goja.IsUndefined(c) {
			return
		}
		co, ok := c.(*goja.Object)
		if !ok {
			panic(f.mi.rt.NewTypeError("object.constructor is not an object"))
		}
		s := co.GetSymbol(goja.SymSpecies)
		if s == nil || goja.IsUndefined(s) || goja.IsNull(s) {
			return
		}
		ctor = s
	})
	return ctor, err
}

// CreateDerivedView implements typedarray.Factory.
func (f *speciesFactory) CreateDerivedView(
	source *typedarray.View, store *arraybuffer.Store, byteOffset, length int64,
) (*typedarray.View, error) {
	ctor, err := f.species()
	if err != nil {
		return nil, err
	}
	kind, builtin := source.Kind(), ctor == nil
	if !builtin {
		kind, builtin = f.mi.kindOf(ctor)
	}

	if builtin {
		var v *typedarray.View
		if store == nil {
			v, err = typedarray.New(f.mi.alloc, kind, length)
		} else {
			v, err = typedarray.NewView(kind, store, byteOffset, length)
		}
		if err != nil {
			return nil, err
		}
		var buffer *goja.Object
		if store != nil {
			buffer = f.source.bufferObject()
		}
		f.result, _ = f.mi.wrapView(v, buffer)
		return v, nil
	}

	args := []goja.Value{f.mi.rt.ToValue(length)}
	if store != nil {
		args = []goja.Value{f.source.bufferObject(), f.mi.rt.ToValue(byteOffset)}
		if length != typedarray.AutoLength {
			args = append(args, f.mi.rt.ToValue(length))
		}
	}
	obj, err := f.mi.rt.New(ctor, args...)
	if err != nil {
		return nil, err
	}
	vo, ok := asView(obj)
	if !ok {
		return nil, errext.New(errext.ErrArrayBufferViewExpected, "species constructor did not return a typed array")
	}
	f.result = obj
	return vo.v, nil
}

// constructView implements the argument forms of the typed array
// constructors: a length, a buffer with optional offset and length, another
// typed array, a runtime ArrayBuffer or an array-like object.
func (mi *ModuleInstance) constructView(k typedarray.Kind, args []goja.Value) (*typedarray.View, *goja.Object) {
	argument := func(i int) goja.Value {
		if i < len(args) {
			return args[i]
		}
		return goja.Undefined()
	}

	var (
		v   *typedarray.View
		err error
	)
	first, isObj := argument(0).(*goja.Object)
	if !isObj {
		v, err = typedarray.New(mi.alloc, k, mi.toIndex(argument(0)))
		if err != nil {
			mi.throw(err)
		}
		return v, nil
	}

	switch x := first.Export().(type) {
	case *bufferObject:
		offset := mi.toIndex(argument(1))
		length := typedarray.AutoLength
		if !goja.IsUndefined(argument(2)) {
			length = mi.toIndex(argument(2))
		}
		if v, err = typedarray.NewView(k, x.store, offset, length); err != nil {
			mi.throw(err)
		}
		return v, first
	case *viewObject:
		v, err = typedarray.FromView(mi.alloc, k, x.v)
	case goja.ArrayBuffer:
		b := x.Bytes()
		var store *arraybuffer.Store
		if store, err = mi.alloc.Allocate(int64(len(b)), false); err == nil {
			store.WriteBytes(0, b)
			v, err = typedarray.NewView(k, store, 0, typedarray.AutoLength)
		}
	default:
		v, err = typedarray.FromArrayLike(mi.h, mi.alloc, k, first)
	}
	if err != nil {
		mi.throw(err)
	}
	return v, nil
}

// initTypedArray creates the abstract %TypedArray% constructor and the
// prototype all typed arrays share.
func (mi *ModuleInstance) initTypedArray() {
	ctor := mi.rt.ToValue(func(goja.ConstructorCall) *goja.Object {
		panic(mi.rt.NewTypeError("Abstract class TypedArray not directly constructable"))
	}).ToObject(mi.rt)
	mi.speciesGetter(ctor)
	mi.typedArrayCtor = ctor
	mi.typedArrayProto = mi.prototypeOf(ctor)

	mi.method(ctor, "of", func(call goja.FunctionCall) goja.Value {
		obj, vo, err := mi.construct(call.This, int64(len(call.Arguments)))
		if err != nil {
			mi.throw(err)
		}
		for i, a := range call.Arguments {
			if err := vo.v.Set(mi.h, int64(i), fromJS(a)); err != nil {
				mi.throw(err)
			}
		}
		return obj
	})
	mi.method(ctor, "from", func(call goja.FunctionCall) goja.Value {
		return mi.from(call.This, call.Argument(0), arg(call, 1), arg(call, 2))
	})

	mi.initTypedArrayPrototype(mi.typedArrayProto)
}

// from implements %TypedArray%.from for array-likes and typed arrays.
func (mi *ModuleInstance) from(ctor, source goja.Value, mapFn, thisArg host.Value) goja.Value {
	mapping := !host.IsUndefined(mapFn)
	if mapping && !mi.h.IsCallable(mapFn) {
		mi.throw(errext.New(errext.ErrNotCallable, "%s: when provided, the second argument must be a function",
			"%TypedArray%.from"))
	}

	var seq arrayops.Sequence
	if vo, ok := asView(source); ok {
		seq = vo.v.Sequence(mi.h)
	} else {
		seq = arrayops.Object(mi.h, fromJS(source))
	}
	length, err := seq.Len()
	if err != nil {
		mi.throw(err)
	}
	obj, target, err := mi.construct(ctor, length)
	if err != nil {
		mi.throw(err)
	}
	for k := int64(0); k < length; k++ {
		val, err := seq.Get(k)
		if err != nil {
			mi.throw(err)
		}
		if mapping {
			if val, err = mi.h.Call(mapFn, thisArg, val, float64(k)); err != nil {
				mi.throw(err)
			}
		}
		if err := target.v.Set(mi.h, k, val); err != nil {
			mi.throw(err)
		}
	}
	return obj
}

// initKind creates the constructor of one element kind.
func (mi *ModuleInstance) initKind(k typedarray.Kind) *goja.Object {
	ctor := mi.rt.ToValue(func(call goja.ConstructorCall) *goja.Object {
		v, buffer := mi.constructView(k, call.Arguments)
		obj, _ := mi.wrapView(v, buffer)
		_ = obj.SetPrototype(call.This.Prototype())
		return obj
	}).ToObject(mi.rt)
	_ = ctor.SetPrototype(mi.typedArrayCtor)
	_ = ctor.DefineDataProperty("BYTES_PER_ELEMENT", mi.rt.ToValue(k.Width()),
		goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

	proto := mi.prototypeOf(ctor)
	_ = proto.SetPrototype(mi.typedArrayProto)
	_ = proto.DefineDataProperty("BYTES_PER_ELEMENT", mi.rt.ToValue(k.Width()),
		goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

	mi.ctors[k] = ctor
	mi.protos[k] = proto
	return ctor
}
