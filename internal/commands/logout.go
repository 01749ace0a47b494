package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/session"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct {
	google bool
}

// SetGoogle makes logout also forget the Google Tasks import token.
func (c *LogoutCmd) SetGoogle(v bool) { c.google = v }

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "todosync logout [--google] [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.google, "google", false, "")
}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	if c.google {
		if err := os.Remove(cfg.GoogleTokenPath()); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(errOut, "error: failed to remove google token: %v\n", err)
			return exitcode.AuthError
		}
	}

	if !cfg.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	p := session.NewProvider(session.OAuthConfig(cfg.Settings), cfg.TokenPath())
	if err := p.Logout(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
