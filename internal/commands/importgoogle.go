package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"todosync/internal/backend/googletasks"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
	"todosync/internal/session"
)

func init() {
	Register(&ImportGoogleCmd{})
}

// ListSource supplies lists to import.
type ListSource interface {
	FetchLists(ctx context.Context) ([]service.List, error)
}

// ImportGoogleCmd implements the import-google command. Every Google Tasks
// list becomes a new list owned by the user; lists whose title already
// exists are skipped.
type ImportGoogleCmd struct {
	reauth bool
	source ListSource
}

// SetSource replaces the Google Tasks source (for testing).
func (c *ImportGoogleCmd) SetSource(src ListSource) {
	c.source = src
}

func (c *ImportGoogleCmd) Name() string      { return "import-google" }
func (c *ImportGoogleCmd) Aliases() []string { return nil }
func (c *ImportGoogleCmd) Synopsis() string  { return "Copy lists from Google Tasks" }
func (c *ImportGoogleCmd) Usage() string     { return "todosync import-google [--reauth]" }
func (c *ImportGoogleCmd) NeedsAuth() bool   { return true }

func (c *ImportGoogleCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.reauth, "reauth", false, "")
}

func (c *ImportGoogleCmd) Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int {
	src := c.source
	if src == nil {
		client, code := c.googleClient(ctx, cfg, errOut)
		if client == nil {
			return code
		}
		src = client
	}

	lists, err := src.FetchLists(ctx)
	if err != nil {
		return report(errOut, err)
	}

	snap := st.Snapshot()
	created := make(map[string]bool)
	var nLists, nTasks int
	for _, gl := range lists {
		title := strings.TrimSpace(gl.Title)
		if title == "" {
			title = "Google Tasks"
		}
		key := strings.ToLower(title)
		_, err := snap.ResolveList(title)
		if created[key] || !errors.Is(err, service.ErrNotFound) {
			if !cfg.Quiet {
				fmt.Fprintf(errOut, "skipped %q: list already exists\n", title)
			}
			continue
		}

		list, err := st.CreateList(ctx, title, gl.Description)
		if err != nil {
			return report(errOut, err)
		}
		created[key] = true
		nLists++

		for _, task := range gl.Tasks {
			task.ID = ""
			if _, err := st.AddTask(ctx, list.ID, task); err != nil {
				return report(errOut, err)
			}
			nTasks++
		}
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "imported %d lists, %d tasks\n", nLists, nTasks)
	}
	return exitcode.Success
}

// googleClient authorizes against Google, reusing the stored token unless
// --reauth is given. On failure it returns nil and the exit code.
func (c *ImportGoogleCmd) googleClient(ctx context.Context, cfg *config.Config, errOut io.Writer) (*googletasks.Client, int) {
	if !cfg.HasGoogleClient() {
		fmt.Fprintf(errOut, "error: %s not found in %s\n\n", config.GoogleClientFile, cfg.Dir)
		fmt.Fprintln(errOut, "To import from Google Tasks, you need OAuth credentials:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
		fmt.Fprintln(errOut, "2. Enable the Google Tasks API:")
		fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
		fmt.Fprintln(errOut, "3. Create an OAuth client ID of type 'Desktop app' and download the JSON")
		fmt.Fprintln(errOut, "4. Save it as:")
		fmt.Fprintf(errOut, "   %s\n", cfg.GoogleClientPath())
		return nil, exitcode.AuthError
	}

	clientJSON, err := os.ReadFile(cfg.GoogleClientPath())
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to read %s: %v\n", config.GoogleClientFile, err)
		return nil, exitcode.AuthError
	}
	oc, err := googletasks.OAuthConfig(clientJSON)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.AuthError
	}

	var tok *oauth2.Token
	if !c.reauth {
		tok, _ = googletasks.LoadToken(cfg.GoogleTokenPath())
	}
	if tok == nil {
		tok, err = session.Authorize(ctx, oc, cfg.Settings.CallbackPort, errOut, oauth2.AccessTypeOffline)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return nil, exitcode.AuthError
		}
		if err := cfg.EnsureDir(); err != nil {
			fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
			return nil, exitcode.AuthError
		}
		if err := googletasks.SaveToken(cfg.GoogleTokenPath(), tok); err != nil {
			fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
			return nil, exitcode.AuthError
		}
	}

	client, err := googletasks.New(ctx, oc, tok)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.BackendError
	}
	return client, exitcode.Success
}
