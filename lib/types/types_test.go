package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseExtendedDuration(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		in   string
		err  bool
		want time.Duration
	}{
		{in: "", err: true},
		{in: "d", err: true},
		{in: "d2h", err: true},
		{in: "2.1d", err: true},
		{in: "2d-2h", err: true},
		{in: "2da", err: true},
		{in: "1.12s", want: 1120 * time.Millisecond},
		{in: "250", want: 250 * time.Millisecond},
		{in: "0d1.12s", want: 1120 * time.Millisecond},
		{in: "1d", want: 24 * time.Hour},
		{in: "1d25h80m", want: 50*time.Hour + 20*time.Minute},
		{in: "-1d2h", want: -26 * time.Hour},
		{in: "2d1ns", want: 48*time.Hour + 1},
		{in: "106751d23h47m16.854775807s", want: time.Duration(math.MaxInt64)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseExtendedDuration(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNullDurationText(t *testing.T) {
	t.Parallel()
	var d NullDuration
	require.NoError(t, d.UnmarshalText([]byte("1d1s")))
	assert.Equal(t, NullDurationFrom(24*time.Hour+time.Second), d)
	assert.Equal(t, "24h0m1s", d.Duration.String())

	require.NoError(t, d.UnmarshalText(nil))
	assert.False(t, d.Valid)

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestGetDurationValue(t *testing.T) {
	t.Parallel()
	for in, want := range map[interface{}]time.Duration{
		"1.5s":      1500 * time.Millisecond,
		time.Second: time.Second,
		1500:        1500 * time.Millisecond,
		int64(20):   20 * time.Millisecond,
		uint64(3):   3 * time.Millisecond,
		0.5:         500 * time.Microsecond,
		"1d3h1s":    27*time.Hour + time.Second,
	} {
		got, err := GetDurationValue(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := GetDurationValue(true)
	assert.ErrorContains(t, err, "unable to use type bool")
}

func TestNullDurationYAML(t *testing.T) {
	t.Parallel()
	type conf struct {
		Timeout NullDuration `yaml:"timeout"`
	}
	for src, want := range map[string]NullDuration{
		`timeout: 1500`:   NullDurationFrom(1500 * time.Millisecond),
		`timeout: "2s"`:   NullDurationFrom(2 * time.Second),
		`timeout: 1d1s`:   NullDurationFrom(24*time.Hour + time.Second),
		`timeout: null`:   {},
		`other: 1`:        {},
		`timeout: 0.5`:    NullDurationFrom(500 * time.Microsecond),
		`timeout: "1000"`: NullDurationFrom(time.Second),
	} {
		var c conf
		require.NoError(t, yaml.Unmarshal([]byte(src), &c), src)
		assert.Equal(t, want, c.Timeout, src)
	}

	var c conf
	err := yaml.Unmarshal([]byte("\ntimeout: [1]"), &c)
	assert.ErrorContains(t, err, "line 2")
}
