package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"go.k6.io/typedmem/cmd/state"
	"go.k6.io/typedmem/errext"
	"go.k6.io/typedmem/errext/exitcodes"
	"go.k6.io/typedmem/lib/arraybuffer"
	"go.k6.io/typedmem/lib/atomics"
	"go.k6.io/typedmem/lib/host"
	"go.k6.io/typedmem/lib/typedarray"
)

// cmdStress handles the `typedmem stress` sub-command
type cmdStress struct {
	gs     *state.GlobalState
	kind   string
	rounds int64
}

// stressResult is the outcome of one stress run.
type stressResult struct {
	Kind       typedarray.Kind
	Agents     int64
	Iterations int64
	Expected   host.Value
	Got        host.Value
	Rounds     int64
	Elapsed    time.Duration
}

func (r stressResult) ok() bool {
	return host.Go{}.StrictEquals(r.Expected, r.Got)
}

// one returns the increment for elements of k.
func one(k typedarray.Kind) host.Value {
	if k.IsBigInt() {
		return big.NewInt(1)
	}
	return 1.0
}

// expectedCount returns n narrowed to the element type of k, the value a
// counter of kind k holds after n increments.
func expectedCount(k typedarray.Kind, n int64) host.Value {
	if k.IsBigInt() {
		return k.Decode(k.Encode(big.NewInt(n)))
	}
	return k.Narrow(float64(n))
}

// contend has agents goroutines add one to the same element iterations
// times each and returns the final value of the element.
func contend(
	ctx context.Context, logger logrus.FieldLogger, alloc *arraybuffer.Allocator,
	kind typedarray.Kind, agents, iterations int64,
) (host.Value, error) {
	store, err := alloc.Allocate(int64(kind.Width()), true)
	if err != nil {
		return nil, err
	}
	view, err := typedarray.NewView(kind, store, 0, typedarray.AutoLength)
	if err != nil {
		return nil, err
	}

	h := host.Go{}
	g, ctx := errgroup.WithContext(ctx)
	for id := int64(0); id < agents; id++ {
		agent := atomics.NewAgent(id, true, logger)
		g.Go(func() error {
			for i := int64(0); i < iterations; i++ {
				if i%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				if _, err := atomics.Add(h, view, 0.0, one(kind)); err != nil {
					return err
				}
			}
			agent.Logger.Debug("Agent finished adding")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return atomics.Load(h, view, 0.0)
}

// pingPong passes a token between two agents rounds times through a shared
// Int32 pair: the first agent publishes round r at element 0 and waits for
// the second to echo it at element 1.
func pingPong(ctx context.Context, logger logrus.FieldLogger, alloc *arraybuffer.Allocator, rounds int64) error {
	store, err := alloc.Allocate(8, true)
	if err != nil {
		return err
	}
	view, err := typedarray.NewView(typedarray.Int32, store, 0, typedarray.AutoLength)
	if err != nil {
		return err
	}

	h := host.Go{}
	publish := func(agent *atomics.Agent, index float64, r int64) error {
		if _, err := atomics.Store(h, view, index, float64(r)); err != nil {
			return err
		}
		_, err := atomics.Notify(h, agent, view, index, host.Undefined)
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agent := atomics.NewAgent(0, true, logger)
		for r := int64(1); r <= rounds; r++ {
			if err := publish(agent, 0, r); err != nil {
				return err
			}
			if err := awaitValue(ctx, h, agent, view, 1, r); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		agent := atomics.NewAgent(1, true, logger)
		for r := int64(1); r <= rounds; r++ {
			if err := awaitValue(ctx, h, agent, view, 0, r); err != nil {
				return err
			}
			if err := publish(agent, 1, r); err != nil {
				return err
			}
		}
		return nil
	})
	return g.Wait()
}

// awaitValue blocks agent until element index holds at least want.
func awaitValue(
	ctx context.Context, h host.Host, agent *atomics.Agent, view *typedarray.View, index float64, want int64,
) error {
	for {
		v, err := atomics.Load(h, view, index)
		if err != nil {
			return err
		}
		cur := v.(float64) //nolint:forcetypeassert
		if cur >= float64(want) {
			return nil
		}
		if _, err := atomics.Wait(ctx, h, agent, view, index, cur, host.Undefined); err != nil {
			return err
		}
	}
}

func (c *cmdStress) run(cmd *cobra.Command, _ []string) error {
	gs := c.gs
	conf, err := getConsolidatedConfig(gs, getConfig(cmd.Flags()))
	if err != nil {
		return err
	}
	kind, err := typedarray.ParseKind(c.kind)
	if err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	if !kind.IsBigInt() && (!kind.IsInteger() || kind == typedarray.Uint8Clamped) {
		return errext.WithExitCodeIfNone(
			fmt.Errorf("atomics are not supported on %s", kind.ConstructorName()), exitcodes.InvalidConfig)
	}

	ctx, cancel := context.WithCancel(gs.Ctx)
	defer cancel()
	stopSignalHandling := handleAbortSignals(gs, func(sig os.Signal) {
		gs.Logger.WithField("sig", sig).Warn("Stopping the stress run in response to signal...")
		cancel()
	})
	defer stopSignalHandling()

	alloc := arraybuffer.NewAllocator(gs.Logger, conf.MaxByteLength.Int64)
	res := stressResult{
		Kind:       kind,
		Agents:     conf.Agents.Int64,
		Iterations: conf.Iterations.Int64,
		Expected:   expectedCount(kind, conf.Agents.Int64*conf.Iterations.Int64),
		Rounds:     c.rounds,
	}

	start := time.Now()
	res.Got, err = contend(ctx, gs.Logger, alloc, kind, res.Agents, res.Iterations)
	if err != nil {
		return stressError(ctx, err)
	}
	if c.rounds > 0 {
		if err := pingPong(ctx, gs.Logger, alloc, c.rounds); err != nil {
			return stressError(ctx, err)
		}
	}
	res.Elapsed = time.Since(start)

	c.report(res)
	if !res.ok() {
		return errext.WithExitCodeIfNone(
			fmt.Errorf("%s counter holds %v after %d agents added %d times, expected %v",
				kind.ConstructorName(), res.Got, res.Agents, res.Iterations, res.Expected),
			exitcodes.StressFailed)
	}
	return nil
}

// stressError marks errors caused by an interruption as such.
func stressError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return &errext.InterruptError{Reason: "stress run stopped: " + err.Error()}
	}
	return err
}

func (c *cmdStress) report(res stressResult) {
	gs := c.gs
	gs.Logger.WithFields(logrus.Fields{
		"kind":       res.Kind.ConstructorName(),
		"agents":     res.Agents,
		"iterations": res.Iterations,
		"rounds":     res.Rounds,
		"elapsed":    res.Elapsed,
		"ok":         res.ok(),
	}).Info("Stress run finished")

	printCheck(gs, res.ok(), "%s counter: %v (expected %v)", res.Kind.ConstructorName(), res.Got, res.Expected)
	if res.Rounds > 0 {
		printCheck(gs, true, "ping-pong: %d round(s)", res.Rounds)
	}
	printValue(gs, "agents", res.Agents)
	printValue(gs, "iterations", res.Iterations)
	printValue(gs, "elapsed", res.Elapsed.Round(time.Millisecond))
}

func (c *cmdStress) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.Int64P("agents", "a", 4, "number of agents adding concurrently")
	flags.Int64P("iterations", "i", 10000, "additions per agent")
	flags.StringVar(&c.kind, "kind", "Int32", "element kind of the counter")
	flags.Int64Var(&c.rounds, "rounds", 100, "ping-pong rounds between two waiting agents, 0 skips them")
	flags.Int64("max-byte-length", 0, "largest buffer an allocation may create")
	return flags
}

func getCmdStress(gs *state.GlobalState) *cobra.Command {
	c := &cmdStress{gs: gs}

	stressCmd := &cobra.Command{
		Use:   "stress",
		Short: "Stress test the atomics engine",
		Long: `Stress test the atomics engine.

Agents add one to a shared counter concurrently and the final value is
checked against the number of additions. Two agents then pass a token
back and forth with Atomics.wait and Atomics.notify.`,
		Example: `
  # Eight agents adding a million times each to a BigInt64 counter
  typedmem stress --agents 8 --iterations 1000000 --kind BigInt64`[1:],
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	stressCmd.Flags().SortFlags = false
	stressCmd.Flags().AddFlagSet(c.flagSet())
	return stressCmd
}
