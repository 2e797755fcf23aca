package typedmem

import (
	"github.com/dop251/goja"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/typedarray"
)

// dataViewObject backs DataView objects.
type dataViewObject struct {
	expando
	dv     *typedarray.DataView
	buffer *goja.Object
}

var _ goja.DynamicObject = &dataViewObject{}

func (mi *ModuleInstance) thisDataView(this goja.Value, method string) *dataViewObject {
	if o, ok := this.(*goja.Object); ok {
		if d, ok := o.Export().(*dataViewObject); ok {
			return d
		}
	}
	mi.throw(incompatible("DataView.prototype." + method))
	return nil
}

func (mi *ModuleInstance) initDataView() *goja.Object {
	ctor := mi.rt.ToValue(func(call goja.ConstructorCall) *goja.Object {
		b, ok := asBuffer(call.Argument(0))
		if !ok {
			mi.throw(errext.New(errext.ErrArrayBufferExpected, "first argument to DataView constructor must be an ArrayBuffer"))
		}
		offset := mi.toIndex(call.Argument(1))
		length := typedarray.AutoLength
		if !goja.IsUndefined(call.Argument(2)) {
			length = mi.toIndex(call.Argument(2))
		}
		dv, err := typedarray.NewDataView(b.store, offset, length)
		if err != nil {
			mi.throw(err)
		}
		obj := mi.rt.NewDynamicObject(&dataViewObject{dv: dv, buffer: call.Argument(0).ToObject(mi.rt)})
		_ = obj.SetPrototype(call.This.Prototype())
		return obj
	}).ToObject(mi.rt)

	proto := mi.prototypeOf(ctor)
	mi.dataViewProto = proto

	mi.getter(proto, "buffer", func(call goja.FunctionCall) goja.Value {
		return mi.thisDataView(call.This, "buffer").buffer
	})
	mi.getter(proto, "byteLength", func(call goja.FunctionCall) goja.Value {
		n, err := mi.thisDataView(call.This, "byteLength").dv.ByteLength()
		if err != nil {
			mi.throw(err)
		}
		return mi.rt.ToValue(n)
	})
	mi.getter(proto, "byteOffset", func(call goja.FunctionCall) goja.Value {
		n, err := mi.thisDataView(call.This, "byteOffset").dv.ByteOffset()
		if err != nil {
			mi.throw(err)
		}
		return mi.rt.ToValue(n)
	})

	for _, k := range typedarray.Kinds {
		if k == typedarray.Uint8Clamped {
			continue
		}
		k := k
		get, set := "get"+k.String(), "set"+k.String()
		mi.method(proto, get, func(call goja.FunctionCall) goja.Value {
			d := mi.thisDataView(call.This, get)
			index := mi.toIndex(call.Argument(0))
			v, err := d.dv.GetValue(k, index, call.Argument(1).ToBoolean())
			if err != nil {
				mi.throw(err)
			}
			return mi.toJS(v)
		})
		mi.method(proto, set, func(call goja.FunctionCall) goja.Value {
			d := mi.thisDataView(call.This, set)
			index := mi.toIndex(call.Argument(0))
			if err := d.dv.SetValue(mi.h, k, index, arg(call, 1), call.Argument(2).ToBoolean()); err != nil {
				mi.throw(err)
			}
			return goja.Undefined()
		})
	}
	return ctor
}
