// Package modules lets Go code expose modules to scripts: a module is
// instantiated once per agent runtime and its exports are what require()
// returns.
package modules

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"go.k6.io/typedmem/lib/atomics"
)

const extPrefix string = "typedmem/x/"

//nolint:gochecknoglobals
var (
	modules = make(map[string]interface{})
	mx      sync.RWMutex
)

// Register the given mod as an external JavaScript module that can be required
// by name. The name must be unique across all registered modules and must be
// prefixed with "typedmem/x/", otherwise this function will panic.
func Register(name string, mod interface{}) {
	if !strings.HasPrefix(name, extPrefix) {
		panic(fmt.Errorf("external module names must be prefixed with '%s', tried to register: %s", extPrefix, name))
	}

	mx.Lock()
	defer mx.Unlock()

	if _, ok := modules[name]; ok {
		panic(fmt.Sprintf("module already registered: %s", name))
	}
	modules[name] = mod
}

// Module is the interface js modules should implement in order to get access to the VU
type Module interface {
	// NewModuleInstance will get modules.VU that should provide the module with a way to interact with the VU
	// This method will be called for *each* require and should return an unique instance for each call
	NewModuleInstance(VU) Instance
}

// GetJSModules returns a map of all registered js modules
func GetJSModules() map[string]interface{} {
	mx.RLock()
	defer mx.RUnlock()
	result := make(map[string]interface{}, len(modules))

	for name, module := range modules {
		result[name] = module
	}

	return result
}

// Instance is what a module needs to return
type Instance interface {
	Exports() Exports
}

// VU gives a module Instance access to the agent whose runtime required it.
type VU interface {
	// Context is cancelled when the agent has to stop; blocking calls
	// such as Atomics.wait honor it.
	Context() context.Context

	// Runtime returns the goja.Runtime of the agent.
	Runtime() *goja.Runtime

	// Agent returns the agent executing the runtime.
	Agent() *atomics.Agent
}

// Exports is representation of ESM exports of a module
type Exports struct {
	// Default is what will be the `default` export of a module
	Default interface{}
	// Named is the named exports of a module
	Named map[string]interface{}
}
