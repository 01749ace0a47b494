package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"todosync/internal/cli"
	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
	"todosync/internal/store"
	"todosync/internal/testutil"
)

// testFactory returns a factory seeding a store over backend. It records
// the live flag of the last call.
func testFactory(backend *testutil.FakeBackend, live *bool) cli.StoreFactory {
	return func(ctx context.Context, cfg *config.Config, l bool) (commands.Store, error) {
		if live != nil {
			*live = l
		}
		st := store.New(store.Options{
			Backend: backend,
			Session: testutil.NewFakeSession("alice"),
			Feed:    testutil.NewFakeFeed(),
		})
		if err := st.Seed(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}
}

func newBackend() *testutil.FakeBackend {
	b := testutil.NewFakeBackend()
	b.AddList("L1", "Groceries", service.RoleOwner)
	b.AddTask("L1", service.Task{ID: "T1", Name: "Milk", Status: service.StatusNotStarted})
	return b
}

func run(t *testing.T, factory cli.StoreFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(newBackend(), nil), "unknowncmd")

	require.Equal(t, exitcode.UserError, code)
	require.Equal(t, "error: unknown command: unknowncmd\n", stderr)
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testFactory(newBackend(), nil), "--quiet")

	require.Equal(t, exitcode.UserError, code)
	require.Equal(t, "error: unknown command: --quiet\n", stderr)
}

func TestDispatcher_NoArgsListsLists(t *testing.T) {
	var live bool
	stdout, stderr, code := run(t, testFactory(newBackend(), &live))

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "a  Groceries  [owner]  1 open\n", stdout)
	require.False(t, live, "lists should not ask for a live store")
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "help")

	require.Equal(t, exitcode.Success, code)
	require.Empty(t, stderr)
	require.Contains(t, stdout, "Usage:")
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, nil, "version", "--config", t.TempDir())

	require.Equal(t, exitcode.Success, code)
	require.Empty(t, stderr)
	require.Equal(t, "todosync 0.1.0\n", stdout)
}

func TestDispatcher_VersionVerbose(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(dir, config.SettingsFile, "graphql_url: https://abc.appsync-api.eu-west-1.amazonaws.com/graphql\n"))

	stdout, stderr, code := run(t, nil, "version", "--verbose", "--config", dir)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Contains(t, stdout, "todosync 0.1.0\n")
	require.Contains(t, stdout, "config:   "+dir+"\n")
	require.Contains(t, stdout, "realtime: wss://abc.appsync-realtime-api.eu-west-1.amazonaws.com/graphql\n")

	// Flag values do not leak into the next run of the command.
	stdout, _, _ = run(t, nil, "version", "--config", dir)
	require.Equal(t, "todosync 0.1.0\n", stdout)
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, nil, "help", "--unknown")

	require.Equal(t, exitcode.UserError, code)
	require.Equal(t, "error: unknown flag: -unknown\n", stderr)
}

func TestDispatcher_FlagNeedsArgument(t *testing.T) {
	_, stderr, code := run(t, nil, "add", "--list")

	require.Equal(t, exitcode.UserError, code)
	require.Equal(t, "error: flag needs an argument: -list\n", stderr)
}

func TestDispatcher_Alias(t *testing.T) {
	backend := newBackend()
	_, stderr, code := run(t, testFactory(backend, nil), "create", "--config", t.TempDir(), "--list", "Groceries", "Bread")

	require.Equal(t, exitcode.Success, code, stderr)
	require.Len(t, backend.Lists()[0].Tasks, 2)
}

func TestDispatcher_WatchAsksForLiveStore(t *testing.T) {
	var live bool
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var outBuf, errBuf bytes.Buffer
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(newBackend(), &live))
	code := dispatcher.Run(ctx, []string{"watch", "--config", t.TempDir()}, &outBuf, &errBuf)

	require.Equal(t, exitcode.Success, code, errBuf.String())
	require.True(t, live, "watch should ask for a live store")
}

func TestDispatcher_AuthError(t *testing.T) {
	factory := func(ctx context.Context, cfg *config.Config, live bool) (commands.Store, error) {
		return nil, fmt.Errorf("not logged in: %w", service.ErrNotAuthenticated)
	}
	_, stderr, code := run(t, factory, "lists", "--config", t.TempDir())

	require.Equal(t, exitcode.AuthError, code)
	require.Equal(t, "error: auth error: not logged in: not authenticated\n", stderr)
}

func TestDispatcher_BackendError(t *testing.T) {
	backend := newBackend()
	backend.SetFetchErr(fmt.Errorf("fetch: %w", service.ErrBackend))
	_, stderr, code := run(t, testFactory(backend, nil), "lists", "--config", t.TempDir())

	require.Equal(t, exitcode.BackendError, code)
	require.True(t, strings.HasPrefix(stderr, "error: backend error: "), stderr)
}

func TestDispatcher_BadSettings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(dir, config.SettingsFile, "refresh_interval: -1s\n"))

	_, stderr, code := run(t, nil, "version", "--config", dir)

	require.Equal(t, exitcode.UserError, code)
	require.NotEmpty(t, stderr, "expected an error about settings.yaml")
}

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0600)
}
