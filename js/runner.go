// Package js runs scripts on goja runtimes, one runtime per agent. All
// agents of a Runner share the stores of one typedmem.Registry, so scripts
// coordinate through shared buffers and Atomics.
package js

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/js/common"
	"go.k6.io/typedmem/js/modules"
	"go.k6.io/typedmem/js/modules/typedmem"
	"go.k6.io/typedmem/lib/atomics"
)

// ModuleName is the name scripts require the typed memory module by.
const ModuleName = "typedmem"

// Options controls how a Runner executes its script.
type Options struct {
	// Agents is the number of agents running the script concurrently.
	Agents int
	// MainCanSuspend lets agent 0 call Atomics.wait.
	MainCanSuspend bool
	// DefaultWaitTimeout bounds waits that pass no timeout; zero waits
	// forever.
	DefaultWaitTimeout time.Duration
}

// Runner executes one script on several agents.
type Runner struct {
	Logger   logrus.FieldLogger
	Registry *typedmem.Registry
	Options  Options

	filename string
	program  *goja.Program
	modules  map[string]interface{}
}

// New compiles src and returns a Runner for it. A nil registry gets a fresh
// one using the default allocator.
func New(logger logrus.FieldLogger, registry *typedmem.Registry, filename, src string, opts Options) (*Runner, error) {
	program, err := goja.Compile(filename, src, false)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(fmt.Errorf("could not compile %s: %w", filename, err),
			exitcodes.ScriptException)
	}
	if registry == nil {
		registry = typedmem.NewRegistry(nil)
	}
	if opts.Agents < 1 {
		opts.Agents = 1
	}

	mods := modules.GetJSModules()
	mods[ModuleName] = typedmem.New(registry)
	return &Runner{
		Logger:   logger,
		Registry: registry,
		Options:  opts,
		filename: filename,
		program:  program,
		modules:  mods,
	}, nil
}

// Run runs the script on every agent and waits for all of them. The first
// agent failure cancels the others.
func (r *Runner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for id := 0; id < r.Options.Agents; id++ {
		id := int64(id)
		g.Go(func() error {
			return r.RunAgent(ctx, id)
		})
	}
	return g.Wait()
}

// RunAgent runs the script once as agent id on a fresh runtime. Agent 0 is
// the main agent. Cancelling ctx interrupts the script.
func (r *Runner) RunAgent(ctx context.Context, id int64) error {
	canSuspend := id != 0 || r.Options.MainCanSuspend
	agent := atomics.NewAgent(id, canSuspend, r.Logger)
	agent.DefaultWaitTimeout = r.Options.DefaultWaitTimeout

	rt, err := r.newRuntime(ctx, agent)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// the cause belongs to whichever agent failed first, never format it here
			select {
			case <-done:
			default:
				rt.Interrupt(&errext.InterruptError{Reason: "agent stopped: " + ctx.Err().Error()})
			}
		case <-done:
		}
	}()

	start := time.Now()
	agent.Logger.Debug("Agent started")
	_, err = rt.RunProgram(r.program)
	err = r.scriptError(ctx, err)
	agent.Logger.WithFields(logrus.Fields{
		"duration": time.Since(start),
		"failed":   err != nil,
	}).Debug("Agent finished")
	return err
}

func (r *Runner) newRuntime(ctx context.Context, agent *atomics.Agent) (*goja.Runtime, error) {
	rt := goja.New()
	rt.SetFieldNameMapper(goja.UncapFieldNameMapper())
	vu := &moduleVUImpl{ctx: ctx, runtime: rt, agent: agent}
	ms := modules.NewModuleSystem(vu, r.modules)

	exports, err := ms.Require(ModuleName)
	if err != nil {
		return nil, err
	}
	for _, name := range exports.Keys() {
		if err := rt.Set(name, exports.Get(name)); err != nil {
			return nil, err
		}
	}

	require := func(specifier string) *goja.Object {
		obj, err := ms.Require(specifier)
		if err != nil {
			common.Throw(rt, err)
		}
		return obj
	}
	globals := map[string]interface{}{
		"console":  newConsole(agent.Logger),
		"require":  require,
		"__AGENT":  agent.ID,
		"__AGENTS": r.Options.Agents,
	}
	for name, v := range globals {
		if err := rt.Set(name, v); err != nil {
			return nil, err
		}
	}
	return rt, nil
}

// scriptError turns what running the script returned into the error the
// agent fails with.
func (r *Runner) scriptError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	err = common.UnwrapInterruptedError(err)
	if errext.IsInterruptError(err) {
		return err
	}
	if ctx.Err() != nil {
		return &errext.InterruptError{Reason: "agent stopped: " + err.Error()}
	}
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &scriptException{ex}
	}
	return err
}

// scriptException is an uncaught exception of an agent's script.
type scriptException struct {
	*goja.Exception
}

var (
	_ errext.Exception   = &scriptException{}
	_ errext.HasExitCode = &scriptException{}
)

func (e *scriptException) Unwrap() error {
	return e.Exception
}

// StackTrace returns the message and stack of the exception.
func (e *scriptException) StackTrace() string {
	return e.Exception.String()
}

// ExitCode makes uncaught exceptions exit with ScriptException.
func (e *scriptException) ExitCode() exitcodes.ExitCode {
	return exitcodes.ScriptException
}
