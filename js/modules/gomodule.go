package modules

import (
	"github.com/dop251/goja"
)

type module interface {
	instantiate(vu VU) moduleInstance
}

type moduleInstance interface {
	exports() *goja.Object
}

// baseGoModule is a plain Go value registered as a module; its exports are
// the value itself.
type baseGoModule struct {
	mod interface{}
}

var _ module = &baseGoModule{}

func (b *baseGoModule) instantiate(vu VU) moduleInstance {
	return &baseGoModuleInstance{mod: b.mod, vu: vu}
}

type baseGoModuleInstance struct {
	mod      interface{}
	vu       VU
	exportsO *goja.Object // this is so we only initialize the exports once per instance
}

func (b *baseGoModuleInstance) exports() *goja.Object {
	if b.exportsO == nil {
		rt := b.vu.Runtime()
		b.exportsO = rt.ToValue(b.mod).ToObject(rt)
	}
	return b.exportsO
}

// goModule is a go module which implements Module
type goModule struct {
	Module
}

var _ module = &goModule{}

func (g *goModule) instantiate(vu VU) moduleInstance {
	return &goModuleInstance{Instance: g.NewModuleInstance(vu), vu: vu}
}

type goModuleInstance struct {
	Instance
	vu       VU
	exportsO *goja.Object // this is so we only initialize the exports once per instance
}

var _ moduleInstance = &goModuleInstance{}

func (gi *goModuleInstance) exports() *goja.Object {
	if gi.exportsO == nil {
		rt := gi.vu.Runtime()
		gi.exportsO = rt.ToValue(toESModuleExports(gi.Instance.Exports())).ToObject(rt)
	}
	return gi.exportsO
}

func toESModuleExports(exp Exports) interface{} {
	if exp.Named == nil {
		return exp.Default
	}
	if exp.Default == nil {
		return exp.Named
	}

	result := make(map[string]interface{}, len(exp.Named)+1)
	for k, v := range exp.Named {
		result[k] = v
	}
	result["default"] = exp.Default
	return result
}
