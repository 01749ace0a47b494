package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/monitor"
	"todosync/internal/output"
)

// statsPeriod is how often watch --stats reports.
const statsPeriod = 10 * time.Second

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command. It prints every snapshot the store
// publishes until interrupted.
type WatchCmd struct {
	stats bool
}

// SetStats sets the stats flag (for testing).
func (c *WatchCmd) SetStats(stats bool) {
	c.stats = stats
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Follow lists as they change" }
func (c *WatchCmd) Usage() string     { return "todosync watch [--stats]" }
func (c *WatchCmd) NeedsAuth() bool   { return true }
func (c *WatchCmd) Live() bool        { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.stats, "stats", false, "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintln(errOut, "error: watch takes no arguments")
		return exitcode.UserError
	}

	snaps, stop := st.Watch()
	defer stop()

	if m := st.Monitor(); c.stats && m != nil {
		m.Start(statsPeriod, func(s monitor.Stats) {
			fmt.Fprintf(errOut, "stats: %.2f events/s, %d unchanged, %d seeds, reconcile %.3fms, seed %.2fms\n",
				s.EventsPerSec, s.Unchanged, s.Seeds, s.ReconcileMs, s.SeedMs)
		})
		defer m.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return exitcode.Success
		case snap, ok := <-snaps:
			if !ok {
				return exitcode.Success
			}
			if !cfg.Quiet {
				fmt.Fprintf(out, "== %s ==\n", time.Now().Format(time.TimeOnly))
			}
			output.FormatSnapshot(out, snap)
		}
	}
}
