// Package typedmem exposes array buffers, typed arrays, DataView and Atomics
// to scripts. The objects it creates replace the runtime's built-in ones and
// are backed by the stores of lib/arraybuffer, so agents running on separate
// runtimes can share memory through a Registry.
package typedmem

import (
	"github.com/dop251/goja"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/js/common"
	"go.k6.io/typedmem/js/modules"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/jsconv"
	"go.k6.io/typedmem/lib/typedarray"
)

type (
	// RootModule is the global module instance that will create module
	// instances for each agent.
	RootModule struct {
		registry *Registry
	}

	// ModuleInstance represents an instance of the module for one agent
	// runtime.
	ModuleInstance struct {
		vu       modules.VU
		rt       *goja.Runtime
		h        *gojaHost
		registry *Registry
		alloc    *arraybuffer.Allocator

		bufferProto, sharedProto *goja.Object
		typedArrayCtor           *goja.Object
		typedArrayProto          *goja.Object
		ctors                    map[typedarray.Kind]*goja.Object
		protos                   map[typedarray.Kind]*goja.Object
		dataViewProto            *goja.Object

		shared  map[string]*goja.Object
		exports map[string]interface{}
	}
)

var (
	_ modules.Module   = &RootModule{}
	_ modules.Instance = &ModuleInstance{}
)

// New returns a pointer to a new RootModule instance whose agents exchange
// shared buffers through registry.
func New(registry *Registry) *RootModule {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	return &RootModule{registry: registry}
}

// NewModuleInstance implements the modules.Module interface and returns
// a new instance for each agent runtime.
func (rm *RootModule) NewModuleInstance(vu modules.VU) modules.Instance {
	rt := vu.Runtime()
	h, err := newHost(rt)
	if err != nil {
		common.Throw(rt, err)
	}
	mi := &ModuleInstance{
		vu:       vu,
		rt:       rt,
		h:        h,
		registry: rm.registry,
		alloc:    rm.registry.Allocator(),
		ctors:    make(map[typedarray.Kind]*goja.Object, len(typedarray.Kinds)),
		protos:   make(map[typedarray.Kind]*goja.Object, len(typedarray.Kinds)),
		shared:   make(map[string]*goja.Object),
	}

	mi.exports = map[string]interface{}{
		"ArrayBuffer":       mi.initArrayBuffer(false),
		"SharedArrayBuffer": mi.initArrayBuffer(true),
		"DataView":          mi.initDataView(),
		"Atomics":           mi.initAtomics(),
		"shared":            mi.sharedBuffer,
	}
	mi.initTypedArray()
	for _, k := range typedarray.Kinds {
		mi.exports[k.ConstructorName()] = mi.initKind(k)
	}
	return mi
}

// Exports returns the exports of the module instance.
func (mi *ModuleInstance) Exports() modules.Exports {
	return modules.Exports{Named: mi.exports}
}

func (mi *ModuleInstance) throw(err error) {
	common.Throw(mi.rt, err)
}

// sharedBuffer implements shared(name, byteLength): it returns the
// registry's shared buffer called name, creating it with byteLength bytes if
// no agent did so yet.
func (mi *ModuleInstance) sharedBuffer(call goja.FunctionCall) goja.Value {
	name := call.Argument(0).String()
	store, err := mi.registry.GetOrCreate(name, mi.toIndex(call.Argument(1)))
	if err != nil {
		mi.throw(err)
	}
	if obj, ok := mi.shared[name]; ok {
		return obj
	}
	obj := mi.newBufferObject(store)
	mi.shared[name] = obj
	return obj
}

// toNumber converts v to a number, throwing what the conversion threw.
func (mi *ModuleInstance) toNumber(v goja.Value) float64 {
	f, err := mi.h.ToNumber(fromJS(v))
	if err != nil {
		mi.throw(err)
	}
	return f
}

// toIndex is the ToIndex conversion of v; undefined converts to 0.
func (mi *ModuleInstance) toIndex(v goja.Value) int64 {
	i, err := jsconv.ToIndex(mi.toNumber(v))
	if err != nil {
		mi.throw(err)
	}
	return i
}

func (mi *ModuleInstance) method(obj *goja.Object, name string, fn func(goja.FunctionCall) goja.Value) {
	if err := obj.Set(name, fn); err != nil {
		panic(err)
	}
}

func (mi *ModuleInstance) getter(obj *goja.Object, name string, fn func(goja.FunctionCall) goja.Value) {
	if err := obj.DefineAccessorProperty(name, mi.rt.ToValue(fn), nil, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		panic(err)
	}
}

// prototypeOf returns the prototype property of a native constructor.
func (mi *ModuleInstance) prototypeOf(ctor *goja.Object) *goja.Object {
	return ctor.Get("prototype").ToObject(mi.rt)
}

// speciesGetter makes ctor[Symbol.species] return the constructor it is
// read from.
func (mi *ModuleInstance) speciesGetter(ctor *goja.Object) {
	get := mi.rt.ToValue(func(call goja.FunctionCall) goja.Value { return call.This })
	if err := ctor.DefineAccessorPropertySymbol(goja.SymSpecies, get, nil, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		panic(err)
	}
}

func (mi *ModuleInstance) toJS(v host.Value) goja.Value {
	return mi.h.toJS(v)
}

func incompatible(method string) error {
	return errext.New(errext.ErrIncompatibleReceiver, "%s called on incompatible receiver", method)
}
