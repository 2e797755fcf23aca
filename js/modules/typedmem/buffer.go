package typedmem

import (
	"math"

	"github.com/dop251/goja"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arraybuffer"
)

// expando keeps the ordinary properties scripts add to objects whose
// behavior lives in Go.
type expando struct {
	props map[string]goja.Value
	keys  []string
}

func (e *expando) Get(key string) goja.Value {
	return e.props[key]
}

func (e *expando) Set(key string, val goja.Value) bool {
	if e.props == nil {
		e.props = make(map[string]goja.Value)
	}
	if _, ok := e.props[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.props[key] = val
	return true
}

func (e *expando) Has(key string) bool {
	_, ok := e.props[key]
	return ok
}

func (e *expando) Delete(key string) bool {
	if _, ok := e.props[key]; !ok {
		return true
	}
	delete(e.props, key)
	for i, k := range e.keys {
		if k == key {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
	return true
}

func (e *expando) Keys() []string {
	return e.keys
}

// bufferObject backs ArrayBuffer and SharedArrayBuffer objects.
type bufferObject struct {
	expando
	store *arraybuffer.Store
}

var _ goja.DynamicObject = &bufferObject{}

func (mi *ModuleInstance) newBufferObject(store *arraybuffer.Store) *goja.Object {
	obj := mi.rt.NewDynamicObject(&bufferObject{store: store})
	proto := mi.bufferProto
	if store.IsShared() {
		proto = mi.sharedProto
	}
	_ = obj.SetPrototype(proto)
	return obj
}

// asBuffer returns the buffer behind v, if v is one.
func asBuffer(v goja.Value) (*bufferObject, bool) {
	o, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	b, ok := o.Export().(*bufferObject)
	return b, ok
}

func (mi *ModuleInstance) thisBuffer(this goja.Value, shared bool, method string) *arraybuffer.Store {
	b, ok := asBuffer(this)
	if !ok || b.store.IsShared() != shared {
		mi.throw(incompatible(method))
	}
	return b.store
}

// maxByteLength reads the maxByteLength member of the constructor options.
func (mi *ModuleInstance) maxByteLength(options goja.Value) (int64, bool) {
	o, ok := options.(*goja.Object)
	if !ok {
		return 0, false
	}
	v := o.Get("maxByteLength")
	if v == nil || goja.IsUndefined(v) {
		return 0, false
	}
	return mi.toIndex(v), true
}

func (mi *ModuleInstance) initArrayBuffer(shared bool) *goja.Object {
	name := "ArrayBuffer"
	if shared {
		name = "SharedArrayBuffer"
	}

	ctor := mi.rt.ToValue(func(call goja.ConstructorCall) *goja.Object {
		length := mi.toIndex(call.Argument(0))
		var (
			store *arraybuffer.Store
			err   error
		)
		if maxLen, ok := mi.maxByteLength(call.Argument(1)); ok {
			store, err = mi.alloc.AllocateResizable(length, maxLen, shared)
		} else {
			store, err = mi.alloc.Allocate(length, shared)
		}
		if err != nil {
			mi.throw(err)
		}
		obj := mi.newBufferObject(store)
		_ = obj.SetPrototype(call.This.Prototype())
		return obj
	}).ToObject(mi.rt)
	mi.speciesGetter(ctor)

	proto := mi.prototypeOf(ctor)
	if shared {
		mi.sharedProto = proto
	} else {
		mi.bufferProto = proto
	}

	mi.getter(proto, "byteLength", func(call goja.FunctionCall) goja.Value {
		return mi.rt.ToValue(mi.thisBuffer(call.This, shared, name+".prototype.byteLength").ByteLength())
	})
	mi.getter(proto, "maxByteLength", func(call goja.FunctionCall) goja.Value {
		return mi.rt.ToValue(mi.thisBuffer(call.This, shared, name+".prototype.maxByteLength").MaxByteLength())
	})
	resizable := "resizable"
	if shared {
		resizable = "growable"
	}
	mi.getter(proto, resizable, func(call goja.FunctionCall) goja.Value {
		return mi.rt.ToValue(mi.thisBuffer(call.This, shared, name+".prototype."+resizable).IsResizable())
	})
	mi.method(proto, "slice", func(call goja.FunctionCall) goja.Value {
		store := mi.thisBuffer(call.This, shared, name+".prototype.slice")
		if store.IsDetached() {
			mi.throw(errext.ErrDetachedBuffer)
		}
		begin := mi.toNumber(call.Argument(0))
		end := math.Inf(1)
		if !goja.IsUndefined(call.Argument(1)) {
			end = mi.toNumber(call.Argument(1))
		}
		res, err := store.Slice(begin, end)
		if err != nil {
			mi.throw(err)
		}
		return mi.newBufferObject(res)
	})

	if shared {
		mi.method(proto, "grow", func(call goja.FunctionCall) goja.Value {
			store := mi.thisBuffer(call.This, shared, name+".prototype.grow")
			if err := store.Grow(mi.toIndex(call.Argument(0))); err != nil {
				mi.throw(err)
			}
			return goja.Undefined()
		})
		return ctor
	}

	mi.getter(proto, "detached", func(call goja.FunctionCall) goja.Value {
		return mi.rt.ToValue(mi.thisBuffer(call.This, shared, name+".prototype.detached").IsDetached())
	})
	mi.method(proto, "resize", func(call goja.FunctionCall) goja.Value {
		store := mi.thisBuffer(call.This, shared, name+".prototype.resize")
		if err := store.Resize(mi.toIndex(call.Argument(0))); err != nil {
			mi.throw(err)
		}
		return goja.Undefined()
	})
	mi.method(proto, "transfer", func(call goja.FunctionCall) goja.Value {
		store := mi.thisBuffer(call.This, shared, name+".prototype.transfer")
		length := store.ByteLength()
		if !goja.IsUndefined(call.Argument(0)) {
			length = mi.toIndex(call.Argument(0))
		}
		res, err := store.Transfer(length)
		if err != nil {
			mi.throw(err)
		}
		return mi.newBufferObject(res)
	})
	mi.method(ctor, "isView", func(call goja.FunctionCall) goja.Value {
		o, ok := call.Argument(0).(*goja.Object)
		if !ok {
			return mi.rt.ToValue(false)
		}
		switch o.Export().(type) {
		case *viewObject, *dataViewObject:
			return mi.rt.ToValue(true)
		}
		return mi.rt.ToValue(false)
	})
	return ctor
}
