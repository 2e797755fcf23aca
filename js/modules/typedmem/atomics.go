package typedmem

import (
	"errors"

	"github.com/dop251/goja"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/atomics"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/typedarray"
)

// viewArg returns the typed array passed as the first argument of an
// Atomics function.
func (mi *ModuleInstance) viewArg(call goja.FunctionCall) *typedarray.View {
	vo, ok := asView(call.Argument(0))
	if !ok {
		mi.throw(errext.New(errext.ErrArrayBufferViewExpected, "Atomics operations require an integer typed array"))
	}
	return vo.v
}

func (mi *ModuleInstance) initAtomics() *goja.Object {
	rt := mi.rt
	h := mi.h
	obj := rt.NewObject()

	result := func(v host.Value, err error) goja.Value {
		if err != nil {
			mi.throw(err)
		}
		return mi.toJS(v)
	}
	rmw := map[string]func(host.Host, *typedarray.View, host.Value, host.Value) (host.Value, error){
		"add":      atomics.Add,
		"sub":      atomics.Sub,
		"and":      atomics.And,
		"or":       atomics.Or,
		"xor":      atomics.Xor,
		"exchange": atomics.Exchange,
		"store":    atomics.Store,
	}
	for name, op := range rmw {
		op := op
		mi.method(obj, name, func(call goja.FunctionCall) goja.Value {
			return result(op(h, mi.viewArg(call), arg(call, 1), arg(call, 2)))
		})
	}
	mi.method(obj, "load", func(call goja.FunctionCall) goja.Value {
		return result(atomics.Load(h, mi.viewArg(call), arg(call, 1)))
	})
	mi.method(obj, "compareExchange", func(call goja.FunctionCall) goja.Value {
		return result(atomics.CompareExchange(h, mi.viewArg(call), arg(call, 1), arg(call, 2), arg(call, 3)))
	})
	mi.method(obj, "isLockFree", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(atomics.IsLockFree(mi.toNumber(call.Argument(0))))
	})
	mi.method(obj, "wait", func(call goja.FunctionCall) goja.Value {
		res, err := atomics.Wait(mi.vu.Context(), h, mi.vu.Agent(), mi.viewArg(call), arg(call, 1), arg(call, 2), arg(call, 3))
		if err != nil {
			if errors.Is(err, errext.ErrCannotSuspend) {
				err = errext.WithHint(err, "only agents started with suspension enabled may call Atomics.wait")
			}
			mi.throw(err)
		}
		return rt.ToValue(string(res))
	})
	mi.method(obj, "notify", func(call goja.FunctionCall) goja.Value {
		n, err := atomics.Notify(h, mi.vu.Agent(), mi.viewArg(call), arg(call, 1), arg(call, 2))
		if err != nil {
			mi.throw(err)
		}
		return rt.ToValue(n)
	})
	_ = obj.DefineDataPropertySymbol(goja.SymToStringTag, rt.ToValue("Atomics"),
		goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	return obj
}
