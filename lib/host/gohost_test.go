package host

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/errext"
)

func TestGoToNumber(t *testing.T) {
	t.Parallel()
	g := Go{}
	cases := map[string]struct {
		in   Value
		want float64
	}{
		"float":    {1.5, 1.5},
		"int":      {7, 7},
		"null":     {nil, 0},
		"true":     {true, 1},
		"empty":    {"", 0},
		"spaces":   {"  42 ", 42},
		"hex":      {"0x10", 16},
		"infinity": {"-Infinity", math.Inf(-1)},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := g.ToNumber(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	n, err := g.ToNumber(Undefined)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(n))

	_, err = g.ToNumber(big.NewInt(1))
	assert.ErrorIs(t, err, errext.ErrContentTypeMismatch)
}

func TestGoCoercibleRunsValueOf(t *testing.T) {
	t.Parallel()
	calls := 0
	c := &Coercible{ValueOf: func() (Value, error) {
		calls++
		return 3.0, nil
	}}
	n, err := Go{}.ToNumber(c)
	require.NoError(t, err)
	assert.Equal(t, 3.0, n)
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err = Go{}.ToNumber(&Coercible{ValueOf: func() (Value, error) { return nil, boom }})
	assert.ErrorIs(t, err, boom)
}

func TestGoToBigInt(t *testing.T) {
	t.Parallel()
	g := Go{}
	b, err := g.ToBigInt("-12")
	require.NoError(t, err)
	assert.Equal(t, int64(-12), b.Int64())

	b, err = g.ToBigInt(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Int64())

	_, err = g.ToBigInt(1.0)
	assert.ErrorIs(t, err, errext.ErrContentTypeMismatch)
}

func TestGoObjectProtocol(t *testing.T) {
	t.Parallel()
	g := Go{}
	arr := NewArray(1.0, "two")
	n, err := g.Length(arr)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, g.Set(arr, 4, 5.0))
	n, _ = g.Length(arr)
	assert.Equal(t, int64(5), n)

	has, err := g.Has(arr, 3)
	require.NoError(t, err)
	assert.False(t, has)

	v, err := g.Get(arr, 3)
	require.NoError(t, err)
	assert.True(t, IsUndefined(v))

	require.NoError(t, g.Delete(arr, 0))
	has, _ = g.Has(arr, 0)
	assert.False(t, has)
}

func TestGoCall(t *testing.T) {
	t.Parallel()
	g := Go{}
	var fn Func = func(this Value, args ...Value) (Value, error) {
		return len(args), nil
	}
	assert.True(t, g.IsCallable(fn))
	assert.False(t, g.IsCallable(1.0))

	v, err := g.Call(fn, Undefined, 1.0, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = g.Call("nope", Undefined)
	assert.ErrorIs(t, err, errext.ErrNotCallable)
}

func TestGoEquality(t *testing.T) {
	t.Parallel()
	g := Go{}
	nan := math.NaN()
	assert.False(t, g.StrictEquals(nan, nan))
	assert.True(t, g.SameValueZero(nan, nan))
	assert.True(t, g.StrictEquals(0.0, math.Copysign(0, -1)))
	assert.True(t, g.StrictEquals(3, 3.0))
	assert.True(t, g.StrictEquals(big.NewInt(5), big.NewInt(5)))
	assert.False(t, g.StrictEquals(big.NewInt(5), 5.0))
	assert.True(t, g.StrictEquals(Undefined, Undefined))
	assert.False(t, g.StrictEquals(Undefined, nil))
	assert.True(t, g.StrictEquals("a", "a"))
}

func TestGoToString(t *testing.T) {
	t.Parallel()
	g := Go{}
	for in, want := range map[Value]string{
		1.5:       "1.5",
		nil:       "null",
		true:      "true",
		Undefined: "undefined",
		"x":       "x",
	} {
		got, err := g.ToString(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := g.ToString(big.NewInt(-9))
	require.NoError(t, err)
	assert.Equal(t, "-9", got)
}
