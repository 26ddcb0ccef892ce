package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/contend/internal/config"
	"github.com/roach88/contend/internal/engine"
	"github.com/roach88/contend/internal/journal"
)

// ShellOptions holds flags for the shell command.
type ShellOptions struct {
	*RootOptions
	Config   string
	Capacity int
	Actors   int
	Seed     uint64
	Journal  string

	// RunIDs overrides the run id generator (for testing).
	RunIDs engine.RunIDGenerator
}

// NewShellCommand creates the shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return newShellCommand(&ShellOptions{RootOptions: rootOpts})
}

func newShellCommand(opts *ShellOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Drive the buffer and ring by hand",
		Long: `Read commands from stdin, one per line, and print one result per line.

Commands:
  produce [item]     append an item (random in [0,100) if omitted)
  consume            remove the oldest item
  activate <actor>   acquire both of the actor's resources
  release <actor>    free both of the actor's resources
  toggle <actor>     release if active, activate otherwise
  reset buffer|ring  restore the initial state
  snapshot           show buffer and ring state
  check              verify ring invariants
  quit               stop reading

Blank lines and lines starting with # are ignored. With --format json
every result is one JSON object per line.

Examples:
  echo "produce 7" | contend shell
  contend shell --capacity 2 --actors 3 < session.txt`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "config file (.yaml, .yml, .cue)")
	cmd.Flags().IntVar(&opts.Capacity, "capacity", 0, "buffer capacity")
	cmd.Flags().IntVar(&opts.Actors, "actors", 0, "number of actors in the ring")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for generated items")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record events to this SQLite journal")

	return cmd
}

func runShell(opts *ShellOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	flags := cmd.Flags()
	cfg, err := loadConfig(opts.Config, func(c *config.Config) {
		if flags.Changed("capacity") {
			c.BufferCapacity = opts.Capacity
		}
		if flags.Changed("actors") {
			c.ActorCount = opts.Actors
		}
		if flags.Changed("seed") {
			c.Policy.Seed = opts.Seed
		}
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng, err := engine.New(cfg, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	defer eng.Close()

	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()

		rec, err := eng.Record(context.Background(), j)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record session", err)
		}
		defer rec.Stop()
	}

	return shellLoop(eng, cmd.InOrStdin(), formatter)
}

func shellLoop(eng *engine.Engine, in io.Reader, formatter *OutputFormatter) error {
	w := formatter.Writer
	enc := json.NewEncoder(w)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		cmd, err := engine.ParseCommand(line)
		var res engine.Result
		if err != nil {
			res = engine.Result{
				Status:  engine.StatusInvalid,
				Code:    engine.CodeInvalidCommand,
				Message: err.Error(),
			}
		} else {
			res = eng.Execute(cmd)
		}

		if formatter.JSON() {
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(w, formatResult(line, res))
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to read commands", err)
	}
	return nil
}

func formatResult(line string, res engine.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", line, res.Status)

	if res.Message != "" {
		fmt.Fprintf(&b, " (%s)", res.Message)
	}
	if res.Item != nil && res.Code == "" {
		fmt.Fprintf(&b, " item=%d", *res.Item)
	}
	if res.Size != nil {
		fmt.Fprintf(&b, " size=%d", *res.Size)
	}

	if res.Buffer != nil {
		fmt.Fprintf(&b, "\n  buffer %v (%d/%d)", res.Buffer.Items, len(res.Buffer.Items), res.Buffer.Capacity)
	}
	if res.Ring != nil {
		for _, a := range res.Ring.Actors {
			fmt.Fprintf(&b, "\n  actor %d %-8s activations=%d denials=%d", a.ID, a.State, a.Activations, a.Denials)
		}
	}
	return b.String()
}
