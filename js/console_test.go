package js

import (
	"testing"

	"github.com/dop251/goja"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.k6.io/typedmem/lib/testutils"
)

func TestConsoleLevels(t *testing.T) {
	t.Parallel()
	logger, hook := testutils.NewLogger(t)
	rt := goja.New()
	rt.SetFieldNameMapper(goja.UncapFieldNameMapper())
	require.NoError(t, rt.Set("console", newConsole(logger)))

	_, err := rt.RunString(`
		console.log("log", 1);
		console.debug("debug");
		console.info("info");
		console.warn("warn", { a: [1, 2] });
		console.error("error", function() {});
	`)
	require.NoError(t, err)

	entries := hook.Drain()
	require.Len(t, entries, 5)
	tests := []struct {
		level logrus.Level
		msg   string
	}{
		{logrus.InfoLevel, "log 1"},
		{logrus.DebugLevel, "debug"},
		{logrus.InfoLevel, "info"},
		{logrus.WarnLevel, `warn {"a":[1,2]}`},
		{logrus.ErrorLevel, "error [object Function]"},
	}
	for i, tc := range tests {
		assert.Equal(t, tc.level, entries[i].Level)
		assert.Equal(t, tc.msg, entries[i].Message)
		assert.Equal(t, "console", entries[i].Data["source"])
	}
}
