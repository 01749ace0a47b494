package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/session"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct{}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in through the browser" }
func (c *LoginCmd) Usage() string     { return "todosync login [common flags]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	if cfg.Settings.ClientID == "" || cfg.Settings.AuthDomain == "" {
		fmt.Fprintf(errOut, "error: client_id and auth_domain must be set in %s\n", cfg.SettingsPath())
		return exitcode.AuthError
	}

	// A stored session that still yields a token is kept.
	if cfg.HasToken() {
		if p, err := session.Open(cfg); err == nil {
			if _, err := p.Token(ctx); err == nil {
				if !cfg.Quiet {
					fmt.Fprintf(out, "already logged in as %s\n", p.Username())
				}
				return exitcode.Success
			}
		}
	}

	oc := session.OAuthConfig(cfg.Settings)
	tok, err := session.Authorize(ctx, oc, cfg.Settings.CallbackPort, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}

	p := session.NewProvider(oc, cfg.TokenPath())
	if err := p.Save(tok); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "logged in as %s\n", p.Username())
	}
	return exitcode.Success
}
