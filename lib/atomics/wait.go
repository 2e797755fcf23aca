package atomics

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/jsconv"
	"go.k6.io/typedmem/lib/typedarray"
)

// WaitResult is the outcome of Wait.
type WaitResult string

// The results of Wait.
const (
	OK       WaitResult = "ok"
	NotEqual WaitResult = "not-equal"
	TimedOut WaitResult = "timed-out"
)

// timeoutMillis converts a wait timeout: NaN means forever, negative values
// mean zero.
func timeoutMillis(h host.Host, agent *Agent, timeout host.Value) (float64, error) {
	if host.IsUndefined(timeout) {
		if agent.DefaultWaitTimeout > 0 {
			return float64(agent.DefaultWaitTimeout) / float64(time.Millisecond), nil
		}
		return math.Inf(1), nil
	}
	q, err := h.ToNumber(timeout)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(q) {
		return math.Inf(1), nil
	}
	return math.Max(q, 0), nil
}

func timer(t float64) (<-chan time.Time, func()) {
	if math.IsInf(t, 1) || t >= float64(math.MaxInt64/int64(time.Millisecond)) {
		return nil, func() {}
	}
	tm := time.NewTimer(time.Duration(t * float64(time.Millisecond)))
	return tm.C, func() { tm.Stop() }
}

// Wait blocks agent until another agent notifies the element at index, as
// long as it still holds value. timeout is in milliseconds, NaN waits
// forever and an undefined timeout uses agent.DefaultWaitTimeout when that is
// set, forever otherwise. Cancelling ctx abandons the wait with the context's
// error.
func Wait(
	ctx context.Context, h host.Host, agent *Agent, v *typedarray.View, index, value, timeout host.Value,
) (WaitResult, error) {
	if err := ValidateIntegerView(v, true); err != nil {
		return "", err
	}
	if !v.Store().IsShared() {
		return "", errext.New(errext.ErrNonSharedArray, "cannot wait on a non-shared %s", v.Kind().ConstructorName())
	}
	i, err := ValidateAtomicAccess(h, v, index)
	if err != nil {
		return "", err
	}
	expected, err := operand(h, v.Kind(), value)
	if err != nil {
		return "", err
	}
	t, err := timeoutMillis(h, agent, timeout)
	if err != nil {
		return "", err
	}
	if !agent.CanSuspend {
		return "", errext.New(errext.ErrCannotSuspend, "agent %d cannot suspend", agent.ID)
	}

	off, width := location(v, i)
	want := v.Kind().Encode(expected) & mask(width)
	return block(ctx, agent, v.Store(), off, width, want, t)
}

func block(
	ctx context.Context, agent *Agent, store *arraybuffer.Store, off int64, width int, want uint64, t float64,
) (WaitResult, error) {
	logger := agent.Logger.WithFields(logrus.Fields{"buffer": store.ID(), "byteIndex": off})
	list := store.Waiters(off)

	list.Lock()
	if store.Load(off, width) != want {
		list.Unlock()
		return NotEqual, nil
	}
	w := arraybuffer.NewWaiter(agent.ID)
	list.Add(w)
	// Wait never passes a negative timeout
	if t < 0 {
		list.Remove(w)
		list.Unlock()
		return TimedOut, nil
	}
	list.Unlock()
	logger.Debug("Waiting")

	expired, stop := timer(t)
	defer stop()
	var ctxErr error
	select {
	case <-w.Signal():
	case <-expired:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}

	list.Lock()
	woken := w.Woken()
	list.Remove(w)
	list.Unlock()

	result := TimedOut
	if woken {
		result = OK
	}
	logger.WithField("result", result).Debug("Wait finished")
	if !woken && ctxErr != nil {
		return "", ctxErr
	}
	return result, nil
}

// Notify wakes up to count agents waiting on the element at index, all of
// them when count is undefined, and returns how many were woken. Views over
// unshared stores have no waiters and always report 0.
func Notify(h host.Host, agent *Agent, v *typedarray.View, index, count host.Value) (int64, error) {
	if err := ValidateIntegerView(v, true); err != nil {
		return 0, err
	}
	i, err := ValidateAtomicAccess(h, v, index)
	if err != nil {
		return 0, err
	}
	n := int64(-1)
	if !host.IsUndefined(count) {
		c, err := h.ToNumber(count)
		if err != nil {
			return 0, err
		}
		c = math.Max(jsconv.ToIntegerOrInfinity(c), 0)
		if c < 1<<53 {
			n = int64(c)
		}
	}
	if !v.Store().IsShared() {
		return 0, nil
	}
	off, _ := location(v, i)
	list := v.Store().Waiters(off)
	list.Lock()
	woken := list.NotifyN(n)
	list.Unlock()

	agent.Logger.WithFields(logrus.Fields{
		"buffer":    v.Store().ID(),
		"byteIndex": off,
		"requested": n,
		"woken":     woken,
	}).Debug("Notified waiters")
	return woken, nil
}
