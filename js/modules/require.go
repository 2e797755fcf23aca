package modules

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ModuleSystem resolves require() calls of one agent runtime. Every module
// is instantiated at most once per ModuleSystem.
type ModuleSystem struct {
	vu        VU
	modules   map[string]interface{}
	instances map[string]moduleInstance
}

// NewModuleSystem returns a ModuleSystem resolving names against mods, a map
// of Module implementations or plain values as returned by GetJSModules.
func NewModuleSystem(vu VU, mods map[string]interface{}) *ModuleSystem {
	return &ModuleSystem{
		vu:        vu,
		modules:   mods,
		instances: make(map[string]moduleInstance),
	}
}

// Require is the actual call that implements require
func (ms *ModuleSystem) Require(specifier string) (*goja.Object, error) {
	if specifier == "" {
		return nil, errors.New("require() can't be used with an empty specifier")
	}
	if mi, ok := ms.instances[specifier]; ok {
		return mi.exports(), nil
	}

	mod, ok := ms.modules[specifier]
	if !ok {
		return nil, fmt.Errorf("unknown module: %s", specifier)
	}
	var m module
	if gm, ok := mod.(Module); ok {
		m = &goModule{Module: gm}
	} else {
		m = &baseGoModule{mod: mod}
	}
	mi := m.instantiate(ms.vu)
	ms.instances[specifier] = mi
	return mi.exports(), nil
}
