package cmd

import (
	"context"
	"math/big"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/cmd/tests"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/testutils"
	"go.k6.io/typedmem/lib/typedarray"
)

func TestStress(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		kind     string
		agents   string
		expected string
	}{
		{kind: "Int32", agents: "3", expected: "✓ Int32Array counter: 300 (expected 300)"},
		{kind: "bigint64", agents: "2", expected: "✓ BigInt64Array counter: 200 (expected 200)"},
		{kind: "Uint8Array", agents: "3", expected: "✓ Uint8Array counter: 44 (expected 44)"},
		{kind: "Int16", agents: "1", expected: "✓ Int16Array counter: 100 (expected 100)"},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.kind, func(t *testing.T) {
			t.Parallel()
			ts := tests.NewGlobalTestState(t)
			execute(ts, "stress", "--kind", tc.kind, "--agents", tc.agents, "--iterations", "100", "--rounds", "5")

			out := ts.Stdout.String()
			assert.Contains(t, out, tc.expected)
			assert.Contains(t, out, "✓ ping-pong: 5 round(s)")
			assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.InfoLevel, "Stress run finished"))
		})
	}
}

func TestStressSkipsPingPong(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)
	execute(ts, "stress", "-a", "1", "-i", "10", "--rounds", "0")

	assert.NotContains(t, ts.Stdout.String(), "ping-pong")
}

func TestStressInvalidKind(t *testing.T) {
	t.Parallel()
	for _, kind := range []string{"Float64", "Uint8Clamped", "Int128"} {
		kind := kind
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			ts := tests.NewGlobalTestState(t)
			ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
			execute(ts, "stress", "--kind", kind)
		})
	}
}

func TestStressTooLarge(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)
	ts.ExpectedExitCode = -1
	execute(ts, "stress", "--kind", "BigInt64", "--max-byte-length", "4")

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel, "cannot allocate 8 bytes, the limit is 4"))
}

func TestExpectedCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 44.0, expectedCount(typedarray.Uint8, 300))
	assert.Equal(t, -32768.0, expectedCount(typedarray.Int16, 32768))
	assert.Equal(t, 0, big.NewInt(7).Cmp(expectedCount(typedarray.BigUint64, 7).(*big.Int))) //nolint:forcetypeassert
}

func TestContendCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := contend(ctx, nil, arraybuffer.NewAllocator(nil, 0), typedarray.Int32, 2, 10)
	require.ErrorIs(t, err, context.Canceled)
}
