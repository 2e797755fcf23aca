package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"go.k6.io/typedmem/cmd/state"
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/js"
	"go.k6.io/typedmem/js/modules/typedmem"
	"go.k6.io/typedmem/lib/arraybuffer"
)

// cmdRun handles the `typedmem run` sub-command
type cmdRun struct {
	gs             *state.GlobalState
	mainCanSuspend bool
}

func (c *cmdRun) run(cmd *cobra.Command, args []string) error {
	gs := c.gs
	conf, err := getConsolidatedConfig(gs, getConfig(cmd.Flags()))
	if err != nil {
		return err
	}

	filename, src, err := readSource(gs, args[0])
	if err != nil {
		return err
	}

	alloc := arraybuffer.NewAllocator(gs.Logger, conf.MaxByteLength.Int64)
	registry := typedmem.NewRegistry(alloc)
	runner, err := js.New(gs.Logger, registry, filename, string(src), js.Options{
		Agents:             int(conf.Agents.Int64),
		MainCanSuspend:     c.mainCanSuspend,
		DefaultWaitTimeout: conf.DefaultWaitTimeout.TimeDuration(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(gs.Ctx)
	defer cancel()
	stopSignalHandling := handleAbortSignals(gs, func(sig os.Signal) {
		gs.Logger.WithField("sig", sig).Warn("Stopping the agents in response to signal...")
		cancel()
	})
	defer stopSignalHandling()

	start := time.Now()
	gs.Logger.WithFields(logrus.Fields{
		"script": filename,
		"agents": conf.Agents.Int64,
	}).Debug("Starting agents")
	err = runner.Run(ctx)
	elapsed := time.Since(start)

	printCheck(gs, err == nil, "%s: %d agent(s) finished in %s", filepath.Base(filename),
		conf.Agents.Int64, elapsed.Round(time.Millisecond))
	printValue(gs, "shared", registry.Len())
	return err
}

// readSource reads the script at path, relative to the working directory,
// or from standard input when path is "-".
func readSource(gs *state.GlobalState, path string) (string, []byte, error) {
	if path == "-" {
		src, err := io.ReadAll(gs.Stdin)
		if err != nil {
			return "", nil, fmt.Errorf("couldn't read the script from stdin: %w", err)
		}
		return "stdin", src, nil
	}
	if !filepath.IsAbs(path) {
		cwd, err := gs.Getwd()
		if err != nil {
			return "", nil, err
		}
		path = filepath.Join(cwd, path)
	}
	src, err := afero.ReadFile(gs.FS, path)
	if err != nil {
		return "", nil, errext.WithExitCodeIfNone(fmt.Errorf("couldn't read the script: %w", err),
			exitcodes.InvalidConfig)
	}
	return path, src, nil
}

func (c *cmdRun) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.Int64P("agents", "a", 4, "number of agents running the script concurrently")
	flags.BoolVar(&c.mainCanSuspend, "main-can-suspend", false, "allow agent 0 to block in Atomics.wait")
	flags.Duration("wait-timeout", 0, "timeout of waits that pass none, 0 waits forever")
	flags.Int64("max-byte-length", 0, "largest buffer an allocation may create")
	return flags
}

func getCmdRun(gs *state.GlobalState) *cobra.Command {
	c := &cmdRun{gs: gs}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a script on several agents",
		Long: `Run a script on several agents.

Every agent runs the script on its own runtime. Agents exchange memory
through shared("name", byteLength), which returns the same
SharedArrayBuffer to every agent asking for the same name, and
synchronize with Atomics.wait and Atomics.notify.`,
		Example: `
  # Run a script on four agents
  typedmem run script.js

  # Let the main agent wait too
  typedmem run --agents 2 --main-can-suspend script.js`[1:],
		Args: exactArgsWithMsg(1, "arg should either be \"-\", if reading script from stdin, or a path to a script file"),
		RunE: c.run,
	}

	runCmd.Flags().SortFlags = false
	runCmd.Flags().AddFlagSet(c.flagSet())
	return runCmd
}
