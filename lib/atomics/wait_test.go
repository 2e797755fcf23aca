package atomics

import (
	"context"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/testutils"
	"go.k6.io/typedmem/lib/typedarray"
)

func waiting(v *typedarray.View, byteIndex int64) int {
	list := v.Store().Waiters(byteIndex)
	list.Lock()
	defer list.Unlock()
	return list.Len()
}

type waitOutcome struct {
	result WaitResult
	err    error
	took   time.Duration
}

func goWait(ctx context.Context, agent *Agent, v *typedarray.View, index, value, timeout host.Value) <-chan waitOutcome {
	ch := make(chan waitOutcome, 1)
	go func() {
		start := time.Now()
		r, err := Wait(ctx, g, agent, v, index, value, timeout)
		ch <- waitOutcome{r, err, time.Since(start)}
	}()
	return ch
}

func TestWaitNotify(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int32, 4)
	a, b := NewAgent(1, true, nil), NewAgent(2, false, nil)

	done := goWait(context.Background(), a, v, 2.0, 0.0, 5000.0)
	require.Eventually(t, func() bool { return waiting(v, 8) == 1 }, 2*time.Second, time.Millisecond)

	_, err := Store(g, v, 2.0, 42.0)
	require.NoError(t, err)
	n, err := Notify(g, b, v, 2.0, 1.0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, OK, out.result)
	assert.Less(t, out.took, 5*time.Second)
	got, err := Load(g, v, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
	assert.Equal(t, 0, waiting(v, 8))
}

func TestWaitNotEqual(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int32, 1)
	_, err := Store(g, v, 0.0, -1.0)
	require.NoError(t, err)
	a := NewAgent(1, true, nil)
	r, err := Wait(context.Background(), g, a, v, 0.0, 0.0, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, NotEqual, r)

	// the expected value is converted like a stored Int32
	out := goWait(context.Background(), a, v, 0.0, 4294967295.0, 0.0)
	o := <-out
	require.NoError(t, o.err)
	assert.Equal(t, TimedOut, o.result)
}

func TestWaitTimesOut(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.BigInt64, 1)
	logger, hook := testutils.NewLogger(t)
	a := NewAgent(3, true, logger)
	r, err := Wait(context.Background(), g, a, v, 0.0, big.NewInt(0), 20.0)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, r)
	assert.Equal(t, 0, waiting(v, 0))

	r, err = Wait(context.Background(), g, a, v, 0.0, big.NewInt(0), -5.0)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, r)

	entries := testutils.FilterEntries(hook.Drain(), logrus.DebugLevel, "Wait finished")
	require.Len(t, entries, 2)
	assert.Equal(t, TimedOut, entries[0].Data["result"])
	assert.Equal(t, int64(3), entries[0].Data["agent"])
}

func TestWaitDefaultTimeout(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int32, 1)
	a := NewAgent(1, true, nil)
	a.DefaultWaitTimeout = 10 * time.Millisecond
	r, err := Wait(context.Background(), g, a, v, 0.0, 0.0, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, r)

	// an explicit timeout wins over the default
	a.DefaultWaitTimeout = time.Hour
	r, err = Wait(context.Background(), g, a, v, 0.0, 0.0, 0.0)
	require.NoError(t, err)
	assert.Equal(t, TimedOut, r)
}

func TestWaitNaNTimeoutIsInfinite(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int32, 1)
	a := NewAgent(1, true, nil)
	done := goWait(context.Background(), a, v, 0.0, 0.0, math.NaN())
	require.Eventually(t, func() bool { return waiting(v, 0) == 1 }, 2*time.Second, time.Millisecond)
	select {
	case <-done:
		t.Fatal("wait returned early")
	case <-time.After(30 * time.Millisecond):
	}
	n, err := Notify(g, a, v, 0.0, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, OK, out.result)
}

func TestWaitCancelled(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int32, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := goWait(ctx, NewAgent(1, true, nil), v, 0.0, 0.0, host.Undefined)
	require.Eventually(t, func() bool { return waiting(v, 0) == 1 }, 2*time.Second, time.Millisecond)
	cancel()
	out := <-done
	assert.ErrorIs(t, out.err, context.Canceled)
	assert.Equal(t, 0, waiting(v, 0))
}

func TestWaitErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v := sharedView(t, typedarray.Int32, 1)

	_, err := Wait(ctx, g, NewAgent(0, false, nil), v, 0.0, 0.0, 0.0)
	assert.ErrorIs(t, err, errext.ErrCannotSuspend)
	typ, _ := errext.TypeOf(err)
	assert.Equal(t, errext.TypeError, typ)

	a := NewAgent(1, true, nil)
	plain, err := typedarray.New(nil, typedarray.Int32, 1)
	require.NoError(t, err)
	_, err = Wait(ctx, g, a, plain, 0.0, 0.0, 0.0)
	assert.ErrorIs(t, err, errext.ErrNonSharedArray)

	u := sharedView(t, typedarray.Uint32, 1)
	_, err = Wait(ctx, g, a, u, 0.0, 0.0, 0.0)
	assert.ErrorIs(t, err, errext.ErrNonSharedArray)
	_, err = Notify(g, a, u, 0.0, host.Undefined)
	assert.ErrorIs(t, err, errext.ErrNonSharedArray)

	_, err = Wait(ctx, g, a, v, 1.0, 0.0, 0.0)
	assert.ErrorIs(t, err, errext.ErrOutOfBounds)
}

func TestNotifyCount(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int32, 2)
	outs := make([]<-chan waitOutcome, 3)
	for i := range outs {
		outs[i] = goWait(context.Background(), NewAgent(int64(i+1), true, nil), v, 1.0, 0.0, host.Undefined)
		want := i + 1
		require.Eventually(t, func() bool { return waiting(v, 4) == want }, 2*time.Second, time.Millisecond)
	}

	n, err := Notify(g, NewAgent(0, false, nil), v, 1.0, 2.0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	for _, ch := range outs[:2] {
		out := <-ch
		require.NoError(t, out.err)
		assert.Equal(t, OK, out.result)
	}
	assert.Equal(t, 1, waiting(v, 4))

	// a different index does not reach the remaining waiter
	n, err = Notify(g, NewAgent(0, false, nil), v, 0.0, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = Notify(g, NewAgent(0, false, nil), v, 1.0, -3.0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = Notify(g, NewAgent(0, false, nil), v, 1.0, math.Inf(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	out := <-outs[2]
	assert.Equal(t, OK, out.result)
}

func TestNotifyUnshared(t *testing.T) {
	t.Parallel()
	v, err := typedarray.New(nil, typedarray.BigInt64, 1)
	require.NoError(t, err)
	n, err := Notify(g, NewAgent(0, false, nil), v, 0.0, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
