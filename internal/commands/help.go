package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todosync help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  todosync                                         Print all lists
  todosync lists [common flags]
  todosync list [common flags] [--open] <list-name|letter>
  todosync add [common flags] --list <list-name> [--desc <text>] [--due <yyyy-mm-dd>]
               [--status <status>] <name...>
  todosync edit [common flags] [--list <list-name>] [--name <name>] [--desc <text>]
                [--due <yyyy-mm-dd|none>] [--status <status>] <ref>
  todosync show [common flags] [--list <list-name>] <ref>
  todosync done [common flags] [--list <list-name>] <ref...>
  todosync rm [common flags] [--list <list-name>] <ref...>
  todosync createlist [common flags] [--desc <text>] <list-name>
  todosync rmlist [common flags] [--force] <list-name>
  todosync share [common flags] --list <list-name> [--role editor|viewer] <user-id...>
  todosync watch [common flags] [--stats]
  todosync import-google [common flags] [--reauth]
  todosync login [common flags]
  todosync logout [--google] [common flags]
  todosync help
  todosync version [--verbose]

Task references:
  <n>           task n of the list named with --list
  <letter><n>   task n of the list with that letter in 'todosync lists'

Statuses: not-started, in-progress, completed

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
