package js

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/js/modules/typedmem"
	"go.k6.io/typedmem/lib/testutils"
)

func newTestRunner(t *testing.T, src string, opts Options) (*Runner, *testutils.SimpleLogrusHook) {
	t.Helper()
	logger, hook := testutils.NewLogger(t)
	r, err := New(logger, nil, "script.js", src, opts)
	require.NoError(t, err)
	return r, hook
}

func exitCode(t *testing.T, err error) exitcodes.ExitCode {
	t.Helper()
	var ecerr errext.HasExitCode
	require.ErrorAs(t, err, &ecerr)
	return ecerr.ExitCode()
}

func TestRunnerGlobals(t *testing.T) {
	t.Parallel()
	r, hook := newTestRunner(t, `
		if (require("typedmem").Int32Array !== Int32Array) { throw new Error("different module instance"); }
		if (!(new Uint8Array(2).buffer instanceof ArrayBuffer)) { throw new Error("builtin ArrayBuffer leaked"); }
		console.log("agent", __AGENT, "of", __AGENTS);
	`, Options{Agents: 2})

	require.NoError(t, r.Run(context.Background()))
	entries := hook.Drain()
	assert.True(t, testutils.LogContains(entries, logrus.InfoLevel, "agent 0 of 2"))
	assert.True(t, testutils.LogContains(entries, logrus.InfoLevel, "agent 1 of 2"))
	assert.Len(t, testutils.WithField(testutils.FilterEntries(entries, logrus.InfoLevel, "of 2"), "agent", int64(1)), 1)
}

func TestRunnerSharedCounter(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `
		const counter = new Int32Array(shared("counter", 4));
		for (let i = 0; i < 500; i++) { Atomics.add(counter, 0, 1); }
	`, Options{Agents: 4})

	require.NoError(t, r.Run(context.Background()))
	store, err := r.Registry.GetOrCreate("counter", 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), store.Load(0, 4))
}

func TestRunnerPingPong(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `
		const flag = new Int32Array(shared("flag", 4));
		if (__AGENT === 1) {
			Atomics.wait(flag, 0, 0);
		} else {
			while (Atomics.notify(flag, 0, 1) === 0) {
				Atomics.wait(new Int32Array(shared("spin", 4)), 0, 0, 1);
			}
		}
	`, Options{Agents: 2, MainCanSuspend: true})

	require.NoError(t, r.Run(context.Background()))
}

func TestRunnerMainCannotSuspend(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `
		try {
			Atomics.wait(new Int32Array(shared("w", 4)), 0, 0, 0);
		} catch (e) {
			if (__AGENT !== 0 || e.code !== "CannotSuspend") { throw e; }
		}
	`, Options{Agents: 2})

	require.NoError(t, r.Run(context.Background()))
}

func TestRunnerDefaultWaitTimeout(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `
		const res = Atomics.wait(new Int32Array(shared("w", 4)), 0, 0);
		if (res !== "timed-out") { throw new Error(res); }
	`, Options{Agents: 1, MainCanSuspend: true, DefaultWaitTimeout: 10 * time.Millisecond})

	require.NoError(t, r.Run(context.Background()))
}

func TestRunnerException(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `
		if (__AGENT === 0) { new Uint8Array(-1); }
		for (;;) {}
	`, Options{Agents: 2})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, exitcodes.ScriptException, exitCode(t, err))
	var xerr errext.Exception
	require.ErrorAs(t, err, &xerr)
	assert.Contains(t, xerr.StackTrace(), "RangeError")
	assert.Contains(t, xerr.StackTrace(), "script.js")
}

func TestRunnerCompileError(t *testing.T) {
	t.Parallel()
	logger, _ := testutils.NewLogger(t)
	_, err := New(logger, typedmem.NewRegistry(nil), "broken.js", `let x = ;`, Options{})
	require.Error(t, err)
	assert.Equal(t, exitcodes.ScriptException, exitCode(t, err))
	assert.Contains(t, err.Error(), "broken.js")
}

func TestRunnerInterrupt(t *testing.T) {
	t.Parallel()
	for name, src := range map[string]string{
		"loop": `for (;;) {}`,
		"wait": `Atomics.wait(new Int32Array(shared("never", 4)), 0, 0);`,
	} {
		src := src
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			r, _ := newTestRunner(t, src, Options{Agents: 1, MainCanSuspend: true})
			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(20*time.Millisecond, cancel)

			err := r.Run(ctx)
			require.Error(t, err)
			assert.True(t, errext.IsInterruptError(err), err.Error())
			assert.Equal(t, exitcodes.ScriptAborted, exitCode(t, err))
		})
	}
}

type countingCause struct{ calls atomic.Int64 }

func (c *countingCause) Error() string {
	c.calls.Add(1)
	return "sibling failed"
}

func TestRunnerInterruptLeavesCauseAlone(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `for (;;) {}`, Options{Agents: 2})
	cause := &countingCause{}
	ctx, cancel := context.WithCancelCause(context.Background())
	time.AfterFunc(20*time.Millisecond, func() { cancel(cause) })

	err := r.RunAgent(ctx, 1)
	require.Error(t, err)
	var ierr *errext.InterruptError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "agent stopped: context canceled", ierr.Reason)
	assert.Zero(t, cause.calls.Load())
}

func TestRunnerExceptionWithBlockedSiblings(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `
		if (__AGENT === 0) { throw new TypeError("first"); }
		if (__AGENT % 2 === 1) { for (;;) {} }
		Atomics.wait(new Int32Array(shared("never", 4)), 0, 0);
	`, Options{Agents: 6})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, exitcodes.ScriptException, exitCode(t, err))
	text, _ := errext.Format(err)
	assert.Contains(t, text, "first")
}

func TestRunnerAgentIsolation(t *testing.T) {
	t.Parallel()
	r, _ := newTestRunner(t, `
		globalThis.mine = (globalThis.mine || 0) + 1;
		if (mine !== 1) { throw new Error("runtime reused"); }
		new Int32Array(shared("ids", 8))[__AGENT] = __AGENT + 10;
	`, Options{Agents: 2})

	require.NoError(t, r.Run(context.Background()))
	store, err := r.Registry.GetOrCreate("ids", 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), store.Load(0, 4))
	assert.Equal(t, uint64(11), store.Load(4, 4))
}
