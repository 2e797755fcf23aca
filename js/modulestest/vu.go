// Package modulestest contains helpers for testing script modules without a
// full agent runner.
package modulestest

import (
	"context"
	"testing"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/js/modules"
	"go.k6.io/typedmem/lib/atomics"
	"go.k6.io/typedmem/lib/testutils"
)

// VU is a modules.VU implementation meant to be used within tests.
type VU struct {
	CtxField     context.Context
	RuntimeField *goja.Runtime
	AgentField   *atomics.Agent
}

var _ modules.VU = &VU{}

// Context returns internally set field to conform to modules.VU interface
func (m *VU) Context() context.Context {
	return m.CtxField
}

// Runtime returns internally set field to conform to modules.VU interface
func (m *VU) Runtime() *goja.Runtime {
	return m.RuntimeField
}

// Agent returns internally set field to conform to modules.VU interface
func (m *VU) Agent() *atomics.Agent {
	return m.AgentField
}

// Runtime is a helper struct that contains what is needed to run a (simple)
// module test.
type Runtime struct {
	VU            *VU
	Logger        *logrus.Logger
	LogHook       *testutils.SimpleLogrusHook
	CancelContext func()
}

// NewRuntime returns a runtime for agent id whose context is cancelled when
// the test ends. The agent may suspend.
func NewRuntime(t testing.TB, id int64) *Runtime {
	t.Helper()
	rt := goja.New()
	rt.SetFieldNameMapper(goja.UncapFieldNameMapper())

	logger, hook := testutils.NewLogger(t)
	require.NoError(t, rt.Set("console", newConsole(logger)))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &Runtime{
		VU: &VU{
			CtxField:     ctx,
			RuntimeField: rt,
			AgentField:   atomics.NewAgent(id, true, logger),
		},
		Logger:        logger,
		LogHook:       hook,
		CancelContext: cancel,
	}
}

// SetupModule instantiates mod for the runtime and defines its named
// exports as globals, the way the agent runner does.
func (r *Runtime) SetupModule(t testing.TB, mod modules.Module) modules.Instance {
	t.Helper()
	mi := mod.NewModuleInstance(r.VU)
	for name, v := range mi.Exports().Named {
		require.NoError(t, r.VU.RuntimeField.Set(name, v))
	}
	return mi
}

// RunString runs a script on the runtime.
func (r *Runtime) RunString(src string) (goja.Value, error) {
	return r.VU.RuntimeField.RunString(src)
}
