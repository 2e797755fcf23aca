package typedmem

import (
	"github.com/dop251/goja"

	"go.k6.io/typedmem/lib/arrayops"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/typedarray"
)

// initTypedArrayPrototype installs the methods and accessors shared by all
// typed arrays.
func (mi *ModuleInstance) initTypedArrayPrototype(proto *goja.Object) {
	rt := mi.rt
	h := mi.h

	mi.getter(proto, "buffer", func(call goja.FunctionCall) goja.Value {
		return mi.thisView(call.This, "buffer").bufferObject()
	})
	mi.getter(proto, "byteLength", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(mi.thisView(call.This, "byteLength").v.ByteLength())
	})
	mi.getter(proto, "byteOffset", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(mi.thisView(call.This, "byteOffset").v.ByteOffset())
	})

	// Iteration is generic over array-likes, the Array versions serve as is.
	arrayProto := rt.Get("Array").ToObject(rt).Get("prototype").ToObject(rt)
	for _, name := range []string{"values", "keys", "entries"} {
		_ = proto.Set(name, arrayProto.Get(name))
	}
	_ = proto.SetSymbol(goja.SymIterator, arrayProto.Get("values"))

	mi.method(proto, "at", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "at")
		res, err := vo.v.At(h, arg(call, 0))
		if err != nil {
			mi.throw(err)
		}
		return mi.toJS(res)
	})
	mi.method(proto, "copyWithin", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "copyWithin")
		if err := vo.v.CopyWithin(h, arg(call, 0), arg(call, 1), arg(call, 2)); err != nil {
			mi.throw(err)
		}
		return call.This
	})
	mi.method(proto, "fill", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "fill")
		if err := vo.v.Fill(h, arg(call, 0), arg(call, 1), arg(call, 2)); err != nil {
			mi.throw(err)
		}
		return call.This
	})
	mi.method(proto, "reverse", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "reverse")
		if err := vo.v.Reverse(); err != nil {
			mi.throw(err)
		}
		return call.This
	})
	mi.method(proto, "set", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "set")
		var source host.Value = arg(call, 0)
		if src, ok := asView(call.Argument(0)); ok {
			source = src.v
		}
		if err := vo.v.SetFrom(h, source, arg(call, 1)); err != nil {
			mi.throw(err)
		}
		return goja.Undefined()
	})
	mi.method(proto, "sort", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "sort")
		if err := vo.v.Sort(h, arg(call, 0)); err != nil {
			mi.throw(err)
		}
		return call.This
	})
	join := func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "join")
		s, err := vo.v.Join(h, rest(call, 0)...)
		if err != nil {
			mi.throw(err)
		}
		return rt.ToValue(s)
	}
	mi.method(proto, "join", join)
	mi.method(proto, "toLocaleString", join)
	mi.method(proto, "toString", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "toString")
		s, err := vo.v.String(h)
		if err != nil {
			mi.throw(err)
		}
		return rt.ToValue(s)
	})

	mi.initDerivingMethods(proto)
	mi.initIterationMethods(proto)
}

// initDerivingMethods installs the methods whose result is created through
// the species constructor.
func (mi *ModuleInstance) initDerivingMethods(proto *goja.Object) {
	h := mi.h
	derived := func(f *speciesFactory, v *typedarray.View, err error) goja.Value {
		if err != nil {
			mi.throw(err)
		}
		if f.result != nil {
			if vo, ok := asView(f.result); ok && vo.v == v {
				return f.result
			}
		}
		obj, _ := mi.wrapView(v, nil)
		return obj
	}

	mi.method(proto, "subarray", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "subarray")
		f := mi.factory(call.This, vo)
		res, err := vo.v.Subarray(h, f, arg(call, 0), arg(call, 1))
		return derived(f, res, err)
	})
	mi.method(proto, "slice", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "slice")
		f := mi.factory(call.This, vo)
		res, err := vo.v.Slice(h, f, arg(call, 0), arg(call, 1))
		return derived(f, res, err)
	})
	mi.method(proto, "map", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "map")
		f := mi.factory(call.This, vo)
		res, err := vo.v.Map(h, f, call.This, arg(call, 0), arg(call, 1))
		return derived(f, res, err)
	})
	mi.method(proto, "filter", func(call goja.FunctionCall) goja.Value {
		vo := mi.thisView(call.This, "filter")
		f := mi.factory(call.This, vo)
		res, err := vo.v.Filter(h, f, call.This, arg(call, 0), arg(call, 1))
		return derived(f, res, err)
	})
}

// initIterationMethods installs the read-only algorithms, which run on the
// generic sequence algorithms after validating the receiver.
func (mi *ModuleInstance) initIterationMethods(proto *goja.Object) {
	rt := mi.rt
	h := mi.h
	seq := func(call goja.FunctionCall, method string) arrayops.Sequence {
		return mi.validView(call.This, method).v.Sequence(h)
	}
	check := func(v goja.Value, err error) goja.Value {
		if err != nil {
			mi.throw(err)
		}
		return v
	}
	value := func(v host.Value, err error) goja.Value {
		return check(mi.toJS(v), err)
	}
	index := func(i int64, err error) goja.Value {
		return check(rt.ToValue(i), err)
	}
	boolean := func(b bool, err error) goja.Value {
		return check(rt.ToValue(b), err)
	}

	mi.method(proto, "forEach", func(call goja.FunctionCall) goja.Value {
		err := arrayops.ForEach(h, seq(call, "forEach"), call.This, arg(call, 0), arg(call, 1))
		return check(goja.Undefined(), err)
	})
	mi.method(proto, "every", func(call goja.FunctionCall) goja.Value {
		return boolean(arrayops.Every(h, seq(call, "every"), call.This, arg(call, 0), arg(call, 1)))
	})
	mi.method(proto, "some", func(call goja.FunctionCall) goja.Value {
		return boolean(arrayops.Some(h, seq(call, "some"), call.This, arg(call, 0), arg(call, 1)))
	})
	mi.method(proto, "reduce", func(call goja.FunctionCall) goja.Value {
		return value(arrayops.Reduce(h, seq(call, "reduce"), call.This, arg(call, 0), rest(call, 1)...))
	})
	mi.method(proto, "reduceRight", func(call goja.FunctionCall) goja.Value {
		return value(arrayops.ReduceRight(h, seq(call, "reduceRight"), call.This, arg(call, 0), rest(call, 1)...))
	})
	mi.method(proto, "find", func(call goja.FunctionCall) goja.Value {
		return value(arrayops.Find(h, seq(call, "find"), call.This, arg(call, 0), arg(call, 1)))
	})
	mi.method(proto, "findIndex", func(call goja.FunctionCall) goja.Value {
		return index(arrayops.FindIndex(h, seq(call, "findIndex"), call.This, arg(call, 0), arg(call, 1)))
	})
	mi.method(proto, "findLast", func(call goja.FunctionCall) goja.Value {
		return value(arrayops.FindLast(h, seq(call, "findLast"), call.This, arg(call, 0), arg(call, 1)))
	})
	mi.method(proto, "findLastIndex", func(call goja.FunctionCall) goja.Value {
		return index(arrayops.FindLastIndex(h, seq(call, "findLastIndex"), call.This, arg(call, 0), arg(call, 1)))
	})
	mi.method(proto, "indexOf", func(call goja.FunctionCall) goja.Value {
		return index(arrayops.IndexOf(h, seq(call, "indexOf"), arg(call, 0), rest(call, 1)...))
	})
	mi.method(proto, "lastIndexOf", func(call goja.FunctionCall) goja.Value {
		return index(arrayops.LastIndexOf(h, seq(call, "lastIndexOf"), arg(call, 0), rest(call, 1)...))
	})
	mi.method(proto, "includes", func(call goja.FunctionCall) goja.Value {
		return boolean(arrayops.Includes(h, seq(call, "includes"), arg(call, 0), rest(call, 1)...))
	})
}
