package cmd

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/cmd/tests"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/lib/testutils"
)

func execute(ts *tests.GlobalTestState, args ...string) {
	ts.CmdArgs = append([]string{"typedmem"}, args...)
	ExecuteWithGlobalState(ts.GlobalState)
}

func TestRootHelp(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)
	execute(ts, "--help")

	out := ts.Stdout.String()
	assert.Contains(t, out, "run")
	assert.Contains(t, out, "stress")
	assert.Contains(t, out, "--log-output")
}

func TestRootPanic(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)
	ts.ExpectedExitCode = int(exitcodes.GoPanic)
	ts.CmdArgs = []string{"typedmem", "explode"}

	c := newRootCommand(ts.GlobalState)
	c.cmd.AddCommand(&cobra.Command{
		Use: "explode",
		RunE: func(*cobra.Command, []string) error {
			panic("boom")
		},
	})
	c.execute()

	assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel, "unexpected typedmem panic: boom"))
}

func TestRootInvalidLogOptions(t *testing.T) {
	t.Parallel()

	t.Run("flag", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
		execute(ts, "--log-level", "loud", "version")
		assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel, `unknown log level "loud"`))
	})

	t.Run("env", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
		ts.Env["TYPEDMEM_LOG_LEVEL"] = "quiet"
		execute(ts, "version")
		assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel, `unknown log level "quiet"`))
	})

	t.Run("output", func(t *testing.T) {
		t.Parallel()
		ts := tests.NewGlobalTestState(t)
		ts.ExpectedExitCode = int(exitcodes.InvalidConfig)
		execute(ts, "--log-output", "syslog", "version")
		assert.True(t, testutils.LogContains(ts.LoggerHook.Drain(), logrus.ErrorLevel, "unsupported log output 'syslog'"))
	})
}

func TestRootLogOutputFile(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)
	execute(ts, "--log-output", "file=/test/typedmem.log", "--verbose", "version", "--json")

	data, err := afero.ReadFile(ts.FS, "/test/typedmem.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "typedmem version")
}

func TestRootLogFormatFromConfig(t *testing.T) {
	t.Parallel()
	ts := tests.NewGlobalTestState(t)
	ts.WriteFile(t, "config.yaml", "logFormat: json\nlogLevel: debug\n")
	execute(ts, "version", "--json")

	assert.Contains(t, ts.Stderr.String(), `"msg":"Logger format: JSON"`)
}
