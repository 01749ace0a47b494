package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"runtime/debug"

	"todosync/internal/config"
	"todosync/internal/exitcode"
)

// Version is the application version. Set at build time with
// -ldflags "-X todosync/internal/commands.Version=...".
var Version = "0.1.0"

func init() {
	Register(&VersionCmd{})
}

// VersionCmd implements the version command.
type VersionCmd struct {
	verbose bool
}

func (c *VersionCmd) Name() string      { return "version" }
func (c *VersionCmd) Aliases() []string { return nil }
func (c *VersionCmd) Synopsis() string  { return "Print version" }
func (c *VersionCmd) Usage() string     { return "todosync version [--verbose]" }
func (c *VersionCmd) NeedsAuth() bool   { return false }

func (c *VersionCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.verbose, "verbose", false, "")
}

func (c *VersionCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	fmt.Fprintf(out, "todosync %s\n", Version)
	if !c.verbose {
		return exitcode.Success
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(out, "go:       %s\n", info.GoVersion)
	}
	fmt.Fprintf(out, "config:   %s\n", cfg.Dir)
	fmt.Fprintf(out, "graphql:  %s\n", cfg.Settings.GraphQLURL)
	fmt.Fprintf(out, "realtime: %s\n", cfg.Settings.RealtimeEndpoint())
	return exitcode.Success
}
