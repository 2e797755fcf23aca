package js

import (
	"context"

	"github.com/dop251/goja"

	"go.k6.io/typedmem/lib/atomics"
)

type moduleVUImpl struct {
	ctx     context.Context
	runtime *goja.Runtime
	agent   *atomics.Agent
}

func (m *moduleVUImpl) Context() context.Context {
	return m.ctx
}

func (m *moduleVUImpl) Runtime() *goja.Runtime {
	return m.runtime
}

func (m *moduleVUImpl) Agent() *atomics.Agent {
	return m.agent
}
