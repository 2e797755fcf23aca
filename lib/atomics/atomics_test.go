package atomics

import (
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/typedarray"
)

var g = host.Go{} //nolint:gochecknoglobals

func sharedView(t *testing.T, kind typedarray.Kind, length int64) *typedarray.View {
	t.Helper()
	store, err := arraybuffer.Allocate(length*int64(kind.Width()), true)
	require.NoError(t, err)
	v, err := typedarray.NewView(kind, store, 0, typedarray.AutoLength)
	require.NoError(t, err)
	return v
}

func TestAddContention(t *testing.T) {
	t.Parallel()
	const agents, iterations = 8, 2000
	for _, kind := range []typedarray.Kind{typedarray.Int32, typedarray.Uint16, typedarray.Int8, typedarray.BigInt64} {
		kind := kind
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()
			v := sharedView(t, kind, 4)
			one := host.Value(1.0)
			if kind.IsBigInt() {
				one = big.NewInt(1)
			}
			var wg sync.WaitGroup
			for a := 0; a < agents; a++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for n := 0; n < iterations; n++ {
						if _, err := Add(g, v, 1.0, one); err != nil {
							t.Error(err)
							return
						}
					}
				}()
			}
			wg.Wait()

			got, err := Load(g, v, 1.0)
			require.NoError(t, err)
			want := agents * iterations
			if kind.IsBigInt() {
				assert.Equal(t, int64(want), got.(*big.Int).Int64())
				return
			}
			assert.Equal(t, kind.Narrow(float64(want)), got)
			// neighbours untouched
			for _, i := range []float64{0, 2, 3} {
				n, err := Load(g, v, i)
				require.NoError(t, err)
				assert.Equal(t, 0.0, n)
			}
		})
	}
}

func TestReadModifyWrite(t *testing.T) {
	t.Parallel()
	type op func(host.Host, *typedarray.View, host.Value, host.Value) (host.Value, error)
	tests := []struct {
		name      string
		kind      typedarray.Kind
		op        op
		initial   float64
		operand   float64
		wantOld   float64
		wantAfter float64
	}{
		{"add wraps", typedarray.Uint8, Add, 250, 10, 250, 4},
		{"add negative", typedarray.Int16, Add, 5, -7, 5, -2},
		{"sub wraps", typedarray.Uint32, Sub, 0, 1, 0, 4294967295},
		{"sub", typedarray.Int32, Sub, -5, 5, -5, -10},
		{"and", typedarray.Int8, And, -1, 0x0f, -1, 15},
		{"or", typedarray.Uint16, Or, 0x0f00, 0x00f0, 0x0f00, 0x0ff0},
		{"xor", typedarray.Int32, Xor, 0x55, 0xff, 0x55, 0xaa},
		{"exchange", typedarray.Int8, Exchange, 3, 200, 3, -56},
		{"fraction truncated", typedarray.Int32, Add, 1, 2.9, 1, 3},
	}
	for _, tc := range tests {
		for _, shared := range []bool{false, true} {
			store, err := arraybuffer.Allocate(16, shared)
			require.NoError(t, err)
			v, err := typedarray.NewView(tc.kind, store, 0, 2)
			require.NoError(t, err)
			require.NoError(t, v.SetNumber(1, tc.initial))

			old, err := tc.op(g, v, 1.0, tc.operand)
			require.NoError(t, err, tc.name)
			assert.Equal(t, tc.wantOld, old, tc.name)
			after, err := Load(g, v, 1.0)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAfter, after, "%s shared=%v", tc.name, shared)
		}
	}
}

func TestBigIntOps(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.BigUint64, 1)
	old, err := Sub(g, v, 0.0, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0", old.(*big.Int).String())
	got, err := Load(g, v, 0.0)
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551615", got.(*big.Int).String())

	_, err = Add(g, v, 0.0, 1.0)
	assert.ErrorIs(t, err, errext.ErrContentTypeMismatch)
}

func TestCompareExchange(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int16, 2)
	require.NoError(t, v.SetNumber(0, -1))

	old, err := CompareExchange(g, v, 0.0, 0.0, 7.0)
	require.NoError(t, err)
	assert.Equal(t, -1.0, old)
	got, _ := Load(g, v, 0.0)
	assert.Equal(t, -1.0, got)

	// the expected value is narrowed like a store would be
	old, err = CompareExchange(g, v, 0.0, 65535.0, 7.0)
	require.NoError(t, err)
	assert.Equal(t, -1.0, old)
	got, _ = Load(g, v, 0.0)
	assert.Equal(t, 7.0, got)

	b := sharedView(t, typedarray.BigInt64, 1)
	old, err = CompareExchange(g, b, 0.0, big.NewInt(0), big.NewInt(-9))
	require.NoError(t, err)
	assert.Equal(t, "0", old.(*big.Int).String())
	got, _ = Load(g, b, 0.0)
	assert.Equal(t, "-9", got.(*big.Int).String())
}

func TestCompareExchangeContention(t *testing.T) {
	t.Parallel()
	const agents, iterations = 4, 1000
	v := sharedView(t, typedarray.Uint8, 1)
	var wg sync.WaitGroup
	for a := 0; a < agents; a++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < iterations; n++ {
				for {
					cur, err := Load(g, v, 0.0)
					if err != nil {
						t.Error(err)
						return
					}
					next := math.Mod(cur.(float64)+1, 256)
					old, err := CompareExchange(g, v, 0.0, cur, next)
					if err != nil {
						t.Error(err)
						return
					}
					if old == cur {
						break
					}
				}
			}
		}()
	}
	wg.Wait()
	got, err := Load(g, v, 0.0)
	require.NoError(t, err)
	assert.Equal(t, float64(agents*iterations%256), got)
}

func TestStoreReturnsCoercedValue(t *testing.T) {
	t.Parallel()
	v := sharedView(t, typedarray.Int8, 1)
	r, err := Store(g, v, 0.0, 300.7)
	require.NoError(t, err)
	assert.Equal(t, 300.0, r)
	got, err := Load(g, v, 0.0)
	require.NoError(t, err)
	assert.Equal(t, 44.0, got)

	r, err = Store(g, v, 0.0, math.Copysign(0, -1))
	require.NoError(t, err)
	assert.False(t, math.Signbit(r.(float64)))
}

func TestValidation(t *testing.T) {
	t.Parallel()
	for _, kind := range []typedarray.Kind{typedarray.Float32, typedarray.Float64, typedarray.Uint8Clamped} {
		v := sharedView(t, kind, 1)
		_, err := Load(g, v, 0.0)
		assert.ErrorIs(t, err, errext.ErrNonSharedArray, kind.String())
	}

	v := sharedView(t, typedarray.Int32, 2)
	_, err := Load(g, v, 2.0)
	assert.ErrorIs(t, err, errext.ErrOutOfBounds)
	typ, _ := errext.TypeOf(err)
	assert.Equal(t, errext.RangeError, typ)
	_, err = Add(g, v, -1.0, 1.0)
	assert.ErrorIs(t, err, errext.ErrInvalidIndex)
	_, err = Store(g, v, "1", 1.0)
	assert.NoError(t, err)

	plain, err := typedarray.New(nil, typedarray.Int32, 1)
	require.NoError(t, err)
	require.NoError(t, plain.Store().Detach())
	_, err = Exchange(g, plain, 0.0, 1.0)
	assert.ErrorIs(t, err, errext.ErrDetachedBuffer)

	_, err = Load(g, nil, 0.0)
	assert.ErrorIs(t, err, errext.ErrArrayBufferViewExpected)
}

func TestDetachDuringCoercion(t *testing.T) {
	t.Parallel()
	v, err := typedarray.New(nil, typedarray.Int32, 1)
	require.NoError(t, err)
	value := &host.Coercible{ValueOf: func() (host.Value, error) {
		return 1.0, v.Store().Detach()
	}}
	_, err = Add(g, v, 0.0, value)
	assert.ErrorIs(t, err, errext.ErrDetachedBuffer)
}

func TestIsLockFree(t *testing.T) {
	t.Parallel()
	for _, n := range []float64{1, 2, 4, 8} {
		assert.True(t, IsLockFree(n))
	}
	for _, n := range []float64{0, 3, 16, math.NaN()} {
		assert.False(t, IsLockFree(n))
	}
}
