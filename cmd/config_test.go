package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"go.k6.io/typedmem/cmd/tests"
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/lib/types"
)

func requireExitCode(t *testing.T, err error, code exitcodes.ExitCode) {
	t.Helper()
	var ecerr errext.HasExitCode
	require.ErrorAs(t, err, &ecerr)
	assert.Equal(t, code, ecerr.ExitCode())
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)

	conf, err := getConsolidatedConfig(ts.GlobalState, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), conf.Agents.Int64)
	assert.Equal(t, int64(10000), conf.Iterations.Int64)
	assert.Equal(t, int64(1<<31-1), conf.MaxByteLength.Int64)
	assert.Equal(t, time.Duration(0), conf.DefaultWaitTimeout.TimeDuration())
	assert.False(t, conf.Agents.Valid)
}

func TestConfigLayers(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)
	ts.WriteFile(t, "config.yaml", `
agents: 2
iterations: 5
defaultWaitTimeout: 1500ms
maxByteLength: 4096
logLevel: warning
`)
	ts.Env["TYPEDMEM_ITERATIONS"] = "7"
	ts.Env["TYPEDMEM_DEFAULT_WAIT_TIMEOUT"] = "2s"

	conf, err := getConsolidatedConfig(ts.GlobalState, Config{Agents: null.IntFrom(3)})
	require.NoError(t, err)
	assert.Equal(t, null.IntFrom(3), conf.Agents)
	assert.Equal(t, null.IntFrom(7), conf.Iterations)
	assert.Equal(t, null.IntFrom(4096), conf.MaxByteLength)
	assert.Equal(t, types.NullDurationFrom(2*time.Second), conf.DefaultWaitTimeout)
	assert.Equal(t, null.StringFrom("warning"), conf.LogLevel)
}

func TestConfigFileErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.WriteFile(t, "config.yaml", "agnets: 2\n")
		_, err := getConsolidatedConfig(ts.GlobalState, Config{})
		requireExitCode(t, err, exitcodes.InvalidConfig)
		assert.ErrorContains(t, err, "agnets")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.WriteFile(t, "config.yaml", "defaultWaitTimeout: soon\n")
		_, err := getConsolidatedConfig(ts.GlobalState, Config{})
		requireExitCode(t, err, exitcodes.InvalidConfig)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.WriteFile(t, "config.yaml", "")
		_, err := getConsolidatedConfig(ts.GlobalState, Config{})
		require.NoError(t, err)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.Flags.ConfigFilePath = "/elsewhere/typedmem.yaml"
		_, err := getConsolidatedConfig(ts.GlobalState, Config{})
		requireExitCode(t, err, exitcodes.InvalidConfig)
	})

	t.Run("bad env", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.Env["TYPEDMEM_AGENTS"] = "many"
		_, err := getConsolidatedConfig(ts.GlobalState, Config{})
		requireExitCode(t, err, exitcodes.InvalidConfig)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		conf Config
		err  string
	}{
		{name: "valid", conf: Config{}},
		{name: "no agents", conf: Config{Agents: null.IntFrom(0)}, err: "agents must be at least 1"},
		{name: "negative iterations", conf: Config{Iterations: null.IntFrom(-1)}, err: "iterations must not be negative"},
		{name: "negative max", conf: Config{MaxByteLength: null.IntFrom(-5)}, err: "maxByteLength"},
		{
			name: "negative timeout",
			conf: Config{DefaultWaitTimeout: types.NullDurationFrom(-time.Second)},
			err:  "defaultWaitTimeout",
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := defaultConfig().Apply(tc.conf).Validate()
			if tc.err == "" {
				require.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.err)
		})
	}
}
