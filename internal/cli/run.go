package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/contend/internal/config"
	"github.com/roach88/contend/internal/engine"
	"github.com/roach88/contend/internal/journal"
	"github.com/roach88/contend/internal/ring"
	"github.com/roach88/contend/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config      string
	Policy      string
	Seed        uint64
	Steps       int
	Tick        time.Duration
	Actors      int
	Journal     string
	Watch       bool
	ResetOnStop bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// ActorSummary is one actor's final state in a run summary.
type ActorSummary struct {
	ID          int    `json:"id"`
	State       string `json:"state"`
	Activations int    `json:"activations"`
	Denials     int    `json:"denials"`
}

// RunSummary is printed when an automatic run stops.
type RunSummary struct {
	RunID   string         `json:"run_id"`
	Policy  string         `json:"policy"`
	Steps   int64          `json:"steps"`
	Actors  []ActorSummary `json:"actors"`
	Starved []int          `json:"starved"`
	Journal string         `json:"journal,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the resource ring with a policy",
		Long: `Run the resource ring in automatic mode.

Every tick the policy picks one actor and toggles it: an Active actor
releases its resources, any other actor requests both of its resources.
The run stops after --steps toggles, or on Ctrl-C when --steps is 0.

Flags override values from --config. With --watch, edits to the config
file swap the policy of the running simulation.

Examples:
  contend run --policy round-robin --steps 100 --tick 0s
  contend run --config sim.yaml --journal run.db --watch
  contend run --policy random --seed 7 --steps 50 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "config file (.yaml, .yml, .cue)")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "policy: round-robin, random, oldest-first")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for the random policy and generated items")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "stop after this many toggles (0 = until interrupted)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 0, "delay between toggles (0s = as fast as possible)")
	cmd.Flags().IntVar(&opts.Actors, "actors", 0, "number of actors in the ring")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record events to this SQLite journal")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload --config on change")
	cmd.Flags().BoolVar(&opts.ResetOnStop, "reset-on-stop", false, "return every actor to thinking when the run stops")

	return cmd
}

// loadConfig reads --config (or defaults) and applies flag overrides.
func loadConfig(path string, apply func(*config.Config)) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	if opts.Watch && opts.Config == "" {
		return NewExitError(ExitCommandError, "--watch requires --config")
	}

	flags := cmd.Flags()
	cfg, err := loadConfig(opts.Config, func(c *config.Config) {
		if flags.Changed("policy") {
			c.Policy.Kind = opts.Policy
		}
		if flags.Changed("seed") {
			c.Policy.Seed = opts.Seed
		}
		if flags.Changed("steps") {
			c.Steps = opts.Steps
		}
		if flags.Changed("tick") {
			c.Tick = opts.Tick.String()
		}
		if flags.Changed("actors") {
			c.ActorCount = opts.Actors
		}
		if flags.Changed("reset-on-stop") {
			c.ResetOnStop = opts.ResetOnStop
		}
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if !cfg.Automatic() {
		return NewExitError(ExitCommandError, "run needs a policy: set --policy or policy.kind in the config")
	}

	interval, err := cfg.TickInterval()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid tick", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	eng, err := engine.New(cfg, engine.WithLogger(logger), engine.WithRunIDGenerator(runIDs))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	defer eng.Close()

	// Use command's context if available (for testing), otherwise create one.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var rec *engine.Recorder
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		rec, err = eng.Record(ctx, j)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	if opts.Watch {
		go func() {
			err := config.Watch(ctx, opts.Config, func(next config.Config) {
				if err := eng.Reconfigure(next); err != nil {
					logger.Warn("config reload rejected", "error", err)
				}
			}, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("config watch stopped", "error", err)
			}
		}()
	}

	// Live event log in text mode.
	var printer sync.WaitGroup
	events := eng.Ring().Subscribe()
	if !formatter.JSON() {
		printer.Add(1)
		go func() {
			defer printer.Done()
			w := cmd.OutOrStdout()
			for ev := range events.Events(context.WithoutCancel(ctx)) {
				fmt.Fprintln(w, formatRingEvent(ev))
			}
		}()
	}

	var ticker sim.Ticker = sim.ImmediateTicker{}
	if interval > 0 {
		it := sim.NewIntervalTicker(interval)
		defer it.Stop()
		ticker = it
	}

	logger.Info("run starting", "run_id", eng.RunID(), "policy", cfg.Policy.Kind, "actors", cfg.ActorCount, "steps", cfg.Steps)
	steps, runErr := eng.Run(ctx, ticker)

	events.Unsubscribe()
	printer.Wait()
	if rec != nil {
		rec.Stop()
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "simulation failed", runErr)
	}

	summary := summarize(eng, steps)
	summary.Journal = opts.Journal
	return formatter.Success(summary, formatSummary(summary))
}

func summarize(eng *engine.Engine, steps int64) RunSummary {
	snap := eng.Ring().Snapshot()
	s := RunSummary{
		RunID:   eng.RunID(),
		Policy:  eng.Config().Policy.Kind,
		Steps:   steps,
		Actors:  make([]ActorSummary, len(snap.Actors)),
		Starved: snap.Starved(1),
	}
	if s.Starved == nil {
		s.Starved = []int{}
	}
	for i, a := range snap.Actors {
		s.Actors[i] = ActorSummary{
			ID:          a.ID,
			State:       string(a.State),
			Activations: a.Activations,
			Denials:     a.Denials,
		}
	}
	return s
}

func formatRingEvent(ev ring.Event) string {
	if ev.Kind == ring.EventReset {
		return fmt.Sprintf("[%4d] ring reset", ev.Seq)
	}
	return fmt.Sprintf("[%4d] actor %d %s (resources %d,%d)", ev.Seq, ev.Actor, ev.Kind, ev.Left, ev.Right)
}

func formatSummary(s RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d steps with %s\n", s.RunID, s.Steps, s.Policy)
	fmt.Fprintf(&b, "  %-5s  %-8s  %11s  %7s\n", "ACTOR", "STATE", "ACTIVATIONS", "DENIALS")
	for _, a := range s.Actors {
		fmt.Fprintf(&b, "  %-5d  %-8s  %11d  %7d\n", a.ID, a.State, a.Activations, a.Denials)
	}
	if len(s.Starved) > 0 {
		fmt.Fprintf(&b, "Starved: %v\n", s.Starved)
	} else {
		b.WriteString("Starved: none\n")
	}
	if s.Journal != "" {
		fmt.Fprintf(&b, "Journal: %s\n", s.Journal)
	}
	return strings.TrimRight(b.String(), "\n")
}
