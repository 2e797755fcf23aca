package arrayops

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/host"
)

var g = host.Go{} //nolint:gochecknoglobals

func holey(length int64, values map[int64]host.Value) *host.Object {
	return &host.Object{Length: length, Props: values}
}

func elements(t *testing.T, o *host.Object) []host.Value {
	t.Helper()
	out := make([]host.Value, o.Length)
	for i := range out {
		v, err := g.Get(o, int64(i))
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func TestForEachSkipsHoles(t *testing.T) {
	t.Parallel()
	arr := holey(4, map[int64]host.Value{0: 1.0, 2: 3.0})
	var seen []float64
	fn := host.Func(func(_ host.Value, args ...host.Value) (host.Value, error) {
		seen = append(seen, args[0].(float64), args[1].(float64))
		assert.Same(t, arr, args[2])
		return host.Undefined, nil
	})
	require.NoError(t, ForEach(g, Object(g, arr), arr, fn, host.Undefined))
	assert.Equal(t, []float64{1, 0, 3, 2}, seen)
}

func TestNotCallable(t *testing.T) {
	t.Parallel()
	arr := host.NewArray(1.0)
	s := Object(g, arr)
	err := ForEach(g, s, arr, 1.0, host.Undefined)
	assert.ErrorIs(t, err, errext.ErrNotCallable)
	_, err = Find(g, s, arr, host.Undefined, host.Undefined)
	assert.ErrorIs(t, err, errext.ErrNotCallable)
	_, err = Reduce(g, s, arr, "x")
	assert.ErrorIs(t, err, errext.ErrNotCallable)
}

func TestCallbackErrorStops(t *testing.T) {
	t.Parallel()
	arr := host.NewArray(1.0, 2.0, 3.0)
	boom := errors.New("boom")
	calls := 0
	fn := host.Func(func(host.Value, ...host.Value) (host.Value, error) {
		calls++
		return nil, boom
	})
	_, err := Some(g, Object(g, arr), arr, fn, host.Undefined)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestMapFilterEverySome(t *testing.T) {
	t.Parallel()
	arr := host.NewArray(1.0, 2.0, 3.0, 4.0)
	s := Object(g, arr)
	double := host.Func(func(_ host.Value, args ...host.Value) (host.Value, error) {
		return args[0].(float64) * 2, nil
	})
	even := host.Func(func(_ host.Value, args ...host.Value) (host.Value, error) {
		return math.Mod(args[0].(float64), 2) == 0, nil
	})
	positive := host.Func(func(_ host.Value, args ...host.Value) (host.Value, error) {
		return args[0].(float64) > 0, nil
	})

	out := &host.Object{}
	require.NoError(t, Map(g, s, arr, double, host.Undefined, Object(g, out)))
	assert.Equal(t, []host.Value{2.0, 4.0, 6.0, 8.0}, elements(t, out))

	kept, err := Filter(g, s, arr, even, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, []host.Value{2.0, 4.0}, kept)

	ok, err := Every(g, s, arr, even, host.Undefined)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = Every(g, s, arr, positive, host.Undefined)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = Some(g, s, arr, even, host.Undefined)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReduce(t *testing.T) {
	t.Parallel()
	concat := host.Func(func(_ host.Value, args ...host.Value) (host.Value, error) {
		a, _ := g.ToString(args[0])
		b, _ := g.ToString(args[1])
		return a + b, nil
	})
	arr := holey(4, map[int64]host.Value{1: "a", 2: "b", 3: "c"})
	s := Object(g, arr)

	v, err := Reduce(g, s, arr, concat)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
	v, err = ReduceRight(g, s, arr, concat)
	require.NoError(t, err)
	assert.Equal(t, "cba", v)
	v, err = Reduce(g, s, arr, concat, ">")
	require.NoError(t, err)
	assert.Equal(t, ">abc", v)

	empty := holey(3, nil)
	_, err = Reduce(g, Object(g, empty), empty, concat)
	assert.ErrorIs(t, err, errext.ErrReduceOfEmpty)
	v, err = ReduceRight(g, Object(g, empty), empty, concat, "init")
	require.NoError(t, err)
	assert.Equal(t, "init", v)
}

func TestFind(t *testing.T) {
	t.Parallel()
	arr := host.NewArray(5.0, 12.0, 8.0, 130.0, 44.0)
	s := Object(g, arr)
	big := host.Func(func(_ host.Value, args ...host.Value) (host.Value, error) {
		return args[0].(float64) > 10, nil
	})
	v, err := Find(g, s, arr, big, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)
	k, err := FindIndex(g, s, arr, big, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(1), k)
	v, err = FindLast(g, s, arr, big, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, 44.0, v)
	k, err = FindLastIndex(g, s, arr, big, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(4), k)

	never := host.Func(func(host.Value, ...host.Value) (host.Value, error) { return false, nil })
	v, err = Find(g, s, arr, never, host.Undefined)
	require.NoError(t, err)
	assert.True(t, host.IsUndefined(v))
	k, err = FindLastIndex(g, s, arr, never, host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), k)
}

func TestIndexOf(t *testing.T) {
	t.Parallel()
	nan := math.NaN()
	arr := host.NewArray(1.0, 2.0, nan, 1.0)
	s := Object(g, arr)

	tests := []struct {
		name string
		got  func() (int64, error)
		want int64
	}{
		{"first", func() (int64, error) { return IndexOf(g, s, 1.0) }, 0},
		{"from", func() (int64, error) { return IndexOf(g, s, 1.0, 1.0) }, 3},
		{"negative from", func() (int64, error) { return IndexOf(g, s, 2.0, -3.0) }, 1},
		{"infinite from", func() (int64, error) { return IndexOf(g, s, 1.0, math.Inf(1)) }, -1},
		{"nan never", func() (int64, error) { return IndexOf(g, s, nan) }, -1},
		{"last", func() (int64, error) { return LastIndexOf(g, s, 1.0) }, 3},
		{"last from", func() (int64, error) { return LastIndexOf(g, s, 1.0, 2.0) }, 0},
		{"last undefined from", func() (int64, error) { return LastIndexOf(g, s, 1.0, host.Undefined) }, 0},
		{"last -inf", func() (int64, error) { return LastIndexOf(g, s, 1.0, math.Inf(-1)) }, -1},
		{"last missing", func() (int64, error) { return LastIndexOf(g, s, 9.0) }, -1},
	}
	for _, tc := range tests {
		k, err := tc.got()
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, k, tc.name)
	}

	ok, err := Includes(g, s, nan)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = Includes(g, s, 2.0, 2.0)
	require.NoError(t, err)
	assert.False(t, ok)

	holes := holey(2, nil)
	ok, err = Includes(g, Object(g, holes), host.Undefined)
	require.NoError(t, err)
	assert.True(t, ok)
	k, err := IndexOf(g, Object(g, holes), host.Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), k)
}

func TestJoin(t *testing.T) {
	t.Parallel()
	arr := holey(5, map[int64]host.Value{0: 1.0, 1: nil, 3: "x", 4: math.Copysign(0, -1)})
	s := Object(g, arr)
	str, err := Join(g, s)
	require.NoError(t, err)
	assert.Equal(t, "1,,,x,0", str)
	str, err = Join(g, s, " - ")
	require.NoError(t, err)
	assert.Equal(t, "1 -  -  - x - 0", str)
	str, err = Join(g, Object(g, holey(0, nil)), "+")
	require.NoError(t, err)
	assert.Equal(t, "", str)
}

func TestSortDefaultIsStringOrder(t *testing.T) {
	t.Parallel()
	arr := holey(6, map[int64]host.Value{0: 10.0, 1: 9.0, 2: host.Undefined, 4: 1.0, 5: "a"})
	require.NoError(t, Sort(Object(g, arr), StringCompare(g)))
	assert.Equal(t, []host.Value{1.0, 10.0, 9.0, "a", host.Undefined, host.Undefined}, elements(t, arr))
	has, err := g.Has(arr, 4)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = g.Has(arr, 5)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestSortWithFunction(t *testing.T) {
	t.Parallel()
	arr := host.NewArray(3.0, 1.0, 2.0)
	desc := host.Func(func(_ host.Value, args ...host.Value) (host.Value, error) {
		return args[1].(float64) - args[0].(float64), nil
	})
	cmp, err := FunctionCompare(g, desc)
	require.NoError(t, err)
	require.NoError(t, Sort(Object(g, arr), cmp))
	assert.Equal(t, []host.Value{3.0, 2.0, 1.0}, elements(t, arr))

	_, err = FunctionCompare(g, 5.0)
	assert.ErrorIs(t, err, errext.ErrNotCallable)

	boom := errors.New("boom")
	failing, err := FunctionCompare(g, host.Func(func(host.Value, ...host.Value) (host.Value, error) {
		return nil, boom
	}))
	require.NoError(t, err)
	assert.ErrorIs(t, Sort(Object(g, arr), failing), boom)
}

func TestReverseHoles(t *testing.T) {
	t.Parallel()
	arr := holey(5, map[int64]host.Value{0: "a", 1: "b", 4: "e"})
	require.NoError(t, Reverse(Object(g, arr)))
	assert.Equal(t, map[int64]host.Value{0: "e", 3: "b", 4: "a"}, arr.Props)

	odd := host.NewArray(1.0, 2.0, 3.0)
	require.NoError(t, Reverse(Object(g, odd)))
	assert.Equal(t, []host.Value{3.0, 2.0, 1.0}, elements(t, odd))
}
