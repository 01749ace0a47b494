package commands_test

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"todosync/internal/commands"
	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
	"todosync/internal/store"
	"todosync/internal/testutil"
)

func init() {
	flag.Set("logtostderr", "true")
	flag.Set("stderrthreshold", "INFO")
	flag.Set("v", "0")
}

var due = time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)

type env struct {
	store   *store.Store
	backend *testutil.FakeBackend
	session *testutil.FakeSession
}

// newEnv opens a store over fakes holding:
//
//	a  Groceries  owner   Milk (due 2026-03-01), Eggs (completed)
//	b  Shared     viewer  Read (in progress)
//	c  Work       editor  no tasks
func newEnv(t *testing.T) *env {
	t.Helper()
	backend := testutil.NewFakeBackend()
	backend.Feed = testutil.NewFakeFeed()
	backend.AddList("L1", "Groceries", service.RoleOwner)
	backend.AddTask("L1", service.Task{ID: "T1", Name: "Milk", DueDate: &due, Status: service.StatusNotStarted})
	backend.AddTask("L1", service.Task{ID: "T2", Name: "Eggs", Status: service.StatusCompleted})
	backend.AddList("L2", "Shared", service.RoleViewer)
	backend.AddTask("L2", service.Task{ID: "T3", Name: "Read", Status: service.StatusInProgress})
	backend.AddList("L3", "Work", service.RoleEditor)

	e := &env{backend: backend, session: testutil.NewFakeSession("alice")}
	e.store = store.New(store.Options{Backend: backend, Session: e.session, Feed: backend.Feed})
	t.Cleanup(e.store.Close)
	require.NoError(t, e.store.Open(context.Background()), "open store")
	return e
}

// task returns the task with the given ID from the store snapshot.
func (e *env) task(t *testing.T, listID, taskID string) (service.Task, bool) {
	t.Helper()
	snap := e.store.Snapshot()
	li := snap.FindList(listID)
	if li == -1 {
		return service.Task{}, false
	}
	ti := snap[li].FindTask(taskID)
	if ti == -1 {
		return service.Task{}, false
	}
	return snap[li].Tasks[ti], true
}

// runCommand runs a command against st.
func runCommand(t *testing.T, cmd commands.Command, st commands.Store, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{
		Dir:      t.TempDir(),
		Settings: config.DefaultSettings(),
		Quiet:    quiet,
	}

	code = cmd.Run(context.Background(), cfg, st, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// runWithFlags parses args with the command's flags first.
func runWithFlags(t *testing.T, cmd commands.Command, st commands.Store, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	require.NoError(t, fs.Parse(args), "parse flags")
	return runCommand(t, cmd, st, fs.Args(), false)
}

func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "todosync 0.1.0\n", stdout)
	require.Equal(t, "", stderr)
}

func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Contains(t, stdout, "Usage:")
	for _, cmd := range commands.DefaultRegistry.All() {
		require.Contains(t, stdout, "todosync "+cmd.Name())
	}
}

func TestListsCommand(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runCommand(t, &commands.ListsCmd{}, e.store, nil, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t,
		"a  Groceries  [owner]  1 open\n"+
			"b  Shared  [viewer]  1 open\n"+
			"c  Work  [editor]  0 open\n",
		stdout)
}

func TestListsCommand_Empty(t *testing.T) {
	backend := testutil.NewFakeBackend()
	st := store.New(store.Options{Backend: backend, Session: testutil.NewFakeSession("alice"), Feed: testutil.NewFakeFeed()})
	t.Cleanup(st.Close)
	require.NoError(t, st.Seed(context.Background()))

	stdout, _, code := runCommand(t, &commands.ListsCmd{}, st, nil, false)
	require.Equal(t, exitcode.Success, code)
	require.Equal(t, "no lists found\n", stdout)

	stdout, _, _ = runCommand(t, &commands.ListsCmd{}, st, nil, true)
	require.Equal(t, "", stdout)
}

func TestListCommand(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, e.store, []string{"groceries"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t,
		"------------\nGroceries [owner]\n------------\n"+
			"   1  [ ] Milk  due 2026-03-01\n"+
			"   2  [x] Eggs\n",
		stdout)
}

func TestListCommand_Letter(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, e.store, []string{"b"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "------------\nShared [viewer]\n------------\n   1  [~] Read\n", stdout)
}

func TestListCommand_Open(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.ListCmd{}
	cmd.SetOpen(true)
	stdout, stderr, code := runCommand(t, cmd, e.store, []string{"Groceries"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "------------\nGroceries [owner]\n------------\n   1  [ ] Milk  due 2026-03-01\n", stdout)
}

func TestListCommand_NotFound(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, e.store, []string{"Nope"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "", stdout)
	require.Equal(t, "error: list not found: Nope\n", stderr)
}

func TestListCommand_Ambiguous(t *testing.T) {
	e := newEnv(t)
	e.backend.AddList("L4", "groceries", service.RoleViewer)
	require.NoError(t, e.store.Seed(context.Background()))

	_, stderr, code := runCommand(t, &commands.ListCmd{}, e.store, []string{"Groceries"}, false)
	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: ambiguous list name: Groceries\n", stderr)
}

func TestListCommand_NoName(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.ListCmd{}, e.store, nil, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: list name required\n", stderr)
}

func TestShowCommand(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runCommand(t, &commands.ShowCmd{}, e.store, []string{"a1"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t,
		"name:        Milk\nstatus:      Not Started\ndue:         2026-03-01\nid:          T1\n",
		stdout)
}

func TestAddCommand(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runWithFlags(t, &commands.AddCmd{}, e.store,
		"--list", "Groceries", "--desc", "wholegrain", "--due", "2026-04-01", "Buy", "bread")

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)

	snap := e.store.Snapshot()
	list := snap[snap.FindList("L1")]
	require.Len(t, list.Tasks, 3)
	added := list.Tasks[2]
	require.Equal(t, "Buy bread", added.Name)
	require.Equal(t, "wholegrain", added.Description)
	require.Equal(t, service.StatusNotStarted, added.Status)
	require.NotNil(t, added.DueDate)
	require.Equal(t, "2026-04-01", added.DueDate.Format("2006-01-02"))
	require.NotEmpty(t, added.ID, "expected a generated task ID")
}

func TestAddCommand_Status(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runWithFlags(t, &commands.AddCmd{}, e.store, "-l", "Work", "--status", "in-progress", "Plan")

	require.Equal(t, exitcode.Success, code, stderr)
	snap := e.store.Snapshot()
	tasks := snap[snap.FindList("L3")].Tasks
	require.Len(t, tasks, 1)
	require.Equal(t, service.StatusInProgress, tasks[0].Status)
}

func TestAddCommand_Quiet(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.AddCmd{}
	cmd.SetListName("Groceries")
	stdout, stderr, code := runCommand(t, cmd, e.store, []string{"Tea"}, true)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "", stdout)
}

func TestAddCommand_EmptyName(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.AddCmd{}
	cmd.SetListName("Groceries")
	_, stderr, code := runCommand(t, cmd, e.store, []string{"  "}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: task name required\n", stderr)
	require.Len(t, e.backend.Lists()[0].Tasks, 2, "expected no new task")
}

func TestAddCommand_NoList(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.AddCmd{}, e.store, []string{"Tea"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: list required (use --list)\n", stderr)
}

func TestAddCommand_BadDue(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.AddCmd{}
	cmd.SetListName("Groceries")
	cmd.SetDue("tomorrow")
	_, stderr, code := runCommand(t, cmd, e.store, []string{"Tea"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: invalid due date: tomorrow (want YYYY-MM-DD)\n", stderr)
}

func TestAddCommand_Viewer(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.AddCmd{}
	cmd.SetListName("Shared")
	_, stderr, code := runCommand(t, cmd, e.store, []string{"Tea"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: viewer cannot add tasks to list \"Shared\": not permitted\n", stderr)
}

func TestAddCommand_BackendError(t *testing.T) {
	e := newEnv(t)
	e.backend.CreateTaskErr = fmt.Errorf("create task: boom: %w", service.ErrBackend)
	cmd := &commands.AddCmd{}
	cmd.SetListName("Groceries")
	_, stderr, code := runCommand(t, cmd, e.store, []string{"Tea"}, false)

	require.Equal(t, exitcode.BackendError, code, stderr)
	require.Equal(t, "error: backend error: create task: boom: backend error\n", stderr)
}

func TestAddCommand_NotAuthenticated(t *testing.T) {
	e := newEnv(t)
	e.session.Logout()
	cmd := &commands.AddCmd{}
	cmd.SetListName("Groceries")
	_, stderr, code := runCommand(t, cmd, e.store, []string{"Tea"}, false)

	require.Equal(t, exitcode.AuthError, code, stderr)
	require.True(t, strings.HasPrefix(stderr, "error: auth error: "), stderr)
}

func TestEditCommand(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runWithFlags(t, &commands.EditCmd{}, e.store, "--name", "Oat milk", "--due", "none", "a1")

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)

	task, ok := e.task(t, "L1", "T1")
	require.True(t, ok, "task T1 missing")
	require.Equal(t, "Oat milk", task.Name)
	require.Nil(t, task.DueDate)
	require.Equal(t, service.StatusNotStarted, task.Status, "status should be unchanged")
}

func TestEditCommand_ClearDescription(t *testing.T) {
	e := newEnv(t)
	e.backend.AddTask("L3", service.Task{ID: "T9", Name: "Plan", Description: "old"})
	require.NoError(t, e.store.Seed(context.Background()))

	_, stderr, code := runWithFlags(t, &commands.EditCmd{}, e.store, "--list", "Work", "--desc", "", "1")
	require.Equal(t, exitcode.Success, code, stderr)

	task, _ := e.task(t, "L3", "T9")
	require.Equal(t, "", task.Description)
	require.Equal(t, "Plan", task.Name)
}

func TestEditCommand_NothingToChange(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runWithFlags(t, &commands.EditCmd{}, e.store, "a1")

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: nothing to change (use --name, --desc, --due or --status)\n", stderr)
}

func TestEditCommand_BadStatus(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runWithFlags(t, &commands.EditCmd{}, e.store, "--status", "sleeping", "a1")

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: invalid status: sleeping\n", stderr)
}

func TestEditCommand_TwoRefs(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runWithFlags(t, &commands.EditCmd{}, e.store, "--status", "done", "a1", "a2")

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: one task reference expected\n", stderr)
}

func TestDoneCommand_Letter(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, e.store, []string{"a1"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)
	task, _ := e.task(t, "L1", "T1")
	require.Equal(t, service.StatusCompleted, task.Status)
}

func TestDoneCommand_ListFlagMultiple(t *testing.T) {
	e := newEnv(t)
	e.backend.AddTask("L3", service.Task{ID: "W1", Name: "Alpha", Status: service.StatusNotStarted})
	e.backend.AddTask("L3", service.Task{ID: "W2", Name: "Beta", Status: service.StatusInProgress})
	require.NoError(t, e.store.Seed(context.Background()))

	cmd := &commands.DoneCmd{}
	cmd.SetListName("Work")
	_, stderr, code := runCommand(t, cmd, e.store, []string{"1", "2", "1"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	for _, id := range []string{"W1", "W2"} {
		task, _ := e.task(t, "L3", id)
		require.Equal(t, service.StatusCompleted, task.Status, id)
	}
}

func TestDoneCommand_Errors(t *testing.T) {
	tests := []struct {
		name     string
		listName string
		args     []string
		stderr   string
	}{
		{"no ref", "", nil, "error: task reference required\n"},
		{"no list", "", []string{"1"}, "error: list required (use --list or a list letter)\n"},
		{"both", "Groceries", []string{"a1"}, "error: cannot use both --list and list letter\n"},
		{"out of range", "", []string{"a9"}, "error: task number out of range: 9\n"},
		{"zero", "Groceries", []string{"0"}, "error: task number out of range: 0\n"},
		{"letter not found", "", []string{"z1"}, "error: list letter not found: z\n"},
		{"separated", "", []string{"a", "1"}, "error: invalid task reference: a\n"},
		{"list not found", "Nope", []string{"1"}, "error: list not found: Nope\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			cmd := &commands.DoneCmd{}
			cmd.SetListName(tt.listName)
			_, stderr, code := runCommand(t, cmd, e.store, tt.args, false)

			require.Equal(t, exitcode.UserError, code, stderr)
			require.Equal(t, tt.stderr, stderr)
		})
	}
}

func TestDoneCommand_Viewer(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.DoneCmd{}, e.store, []string{"b1"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Contains(t, stderr, "not permitted")
}

func TestDoneCommand_NotApplied(t *testing.T) {
	e := newEnv(t)
	// The backend lost the task but the snapshot still has it.
	e.backend.Feed = nil
	e.backend.DeleteTask(context.Background(), "alice", "L1", "T1")

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, e.store, []string{"a1"}, false)
	require.Equal(t, exitcode.BackendError, code, stderr)
	require.Equal(t, "error: backend error: completing \"Milk\" was not applied\n", stderr)
}

func TestRmCommand(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, e.store, []string{"a2"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)
	_, ok := e.task(t, "L1", "T2")
	require.False(t, ok, "expected T2 removed")
	_, ok = e.task(t, "L1", "T1")
	require.True(t, ok, "expected T1 kept")
}

func TestRmCommand_Viewer(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.RmCmd{}, e.store, []string{"b1"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	_, ok := e.task(t, "L2", "T3")
	require.True(t, ok, "viewer task should be kept")
}

func TestCreateListCommand(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runWithFlags(t, &commands.CreateListCmd{}, e.store, "--desc", "weekend", "Hobby", "projects")

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)

	lists := e.backend.Lists()
	created := lists[len(lists)-1]
	require.Equal(t, "Hobby projects", created.Title)
	require.Equal(t, "weekend", created.Description)
	require.Equal(t, service.RoleOwner, created.Role)
}

func TestCreateListCommand_Exists(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.CreateListCmd{}, e.store, []string{"groceries"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: list already exists: groceries\n", stderr)
	require.Len(t, e.backend.Lists(), 3)
}

func TestCreateListCommand_NoName(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.CreateListCmd{}, e.store, nil, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: list name required\n", stderr)
}

func TestRmListCommand_NotEmpty(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.RmListCmd{}, e.store, []string{"Groceries"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: list not empty (use --force)\n", stderr)
}

func TestRmListCommand_Force(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.RmListCmd{}
	cmd.SetForce(true)
	stdout, stderr, code := runCommand(t, cmd, e.store, []string{"Groceries"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)
	require.Equal(t, -1, e.store.Snapshot().FindList("L1"), "expected L1 removed from the snapshot")
}

func TestRmListCommand_NotOwner(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.RmListCmd{}, e.store, []string{"Work"}, false)

	require.Equal(t, exitcode.UserError, code, stderr)
	require.Equal(t, "error: editor cannot delete list \"Work\": not permitted\n", stderr)
}

func TestShareCommand(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.ShareCmd{}
	cmd.SetListName("Groceries")
	stdout, stderr, code := runCommand(t, cmd, e.store, []string{"bob", "carol"}, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)

	grants := e.backend.Grants()
	want := []service.Grant{{UserID: "bob", Role: service.RoleEditor}, {UserID: "carol", Role: service.RoleEditor}}
	require.Equal(t, want, grants)
}

func TestShareCommand_Viewer(t *testing.T) {
	e := newEnv(t)
	stdout, stderr, code := runWithFlags(t, &commands.ShareCmd{}, e.store, "--list", "Groceries", "--role", "viewer", "bob")

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "ok\n", stdout)
	grants := e.backend.Grants()
	require.Len(t, grants, 1)
	require.Equal(t, service.RoleViewer, grants[0].Role)
}

func TestShareCommand_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		stderr string
	}{
		{"no list", []string{"bob"}, "error: list required (use --list)\n"},
		{"no user", []string{"--list", "Groceries"}, "error: user id required\n"},
		{"owner role", []string{"--list", "Groceries", "--role", "owner", "bob"}, "error: ownership cannot be shared\n"},
		{"bad role", []string{"--list", "Groceries", "--role", "admin", "bob"}, "error: invalid role: admin\n"},
		{"not owner", []string{"--list", "Work", "bob"}, "error: editor cannot share list \"Work\": not permitted\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_, stderr, code := runWithFlags(t, &commands.ShareCmd{}, e.store, tt.args...)

			require.Equal(t, exitcode.UserError, code, stderr)
			require.Equal(t, tt.stderr, stderr)
			require.Empty(t, e.backend.Grants())
		})
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		require.False(t, time.Now().After(deadline), "timed out waiting for %s", what)
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchCommand(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out, errOut syncBuffer
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	done := make(chan int, 1)
	go func() {
		done <- (&commands.WatchCmd{}).Run(ctx, cfg, e.store, nil, &out, &errOut)
	}()

	waitFor(t, "first render", func() bool { return strings.Contains(out.String(), "a1    [ ] Milk") })

	_, err := e.store.AddTask(context.Background(), "L3", service.Task{Name: "Standup"})
	require.NoError(t, err)
	waitFor(t, "render after change", func() bool { return strings.Contains(out.String(), "c1    [ ] Standup") })

	cancel()
	select {
	case code := <-done:
		require.Equal(t, exitcode.Success, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	require.Empty(t, errOut.String())
}

func TestWatchCommand_StopsOnClose(t *testing.T) {
	e := newEnv(t)

	var out syncBuffer
	cfg := &config.Config{Dir: t.TempDir(), Settings: config.DefaultSettings()}
	done := make(chan int, 1)
	go func() {
		done <- (&commands.WatchCmd{}).Run(context.Background(), cfg, e.store, nil, &out, &out)
	}()

	waitFor(t, "first render", func() bool { return strings.Contains(out.String(), "Groceries") })
	e.store.Close()

	select {
	case code := <-done:
		require.Equal(t, exitcode.Success, code)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after close")
	}
}

type fakeSource struct {
	lists []service.List
	err   error
}

func (f *fakeSource) FetchLists(ctx context.Context) ([]service.List, error) {
	return f.lists, f.err
}

func TestImportGoogleCommand(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.ImportGoogleCmd{}
	cmd.SetSource(&fakeSource{lists: []service.List{
		{ID: "g-work", Title: "Work", Tasks: []service.Task{{ID: "g1", Name: "Skip me"}}},
		{ID: "g-travel", Title: "Travel", Tasks: []service.Task{
			{ID: "g2", Name: "Passport", Status: service.StatusCompleted},
			{ID: "g3", Name: "Tickets", DueDate: &due, Status: service.StatusNotStarted},
		}},
		{ID: "g-travel2", Title: "travel"},
	}})
	stdout, stderr, code := runCommand(t, cmd, e.store, nil, false)

	require.Equal(t, exitcode.Success, code, stderr)
	require.Equal(t, "imported 1 lists, 2 tasks\n", stdout)
	require.Equal(t, "skipped \"Work\": list already exists\nskipped \"travel\": list already exists\n", stderr)

	lists := e.backend.Lists()
	require.Len(t, lists, 4)
	travel := lists[3]
	require.Equal(t, "Travel", travel.Title)
	require.Len(t, travel.Tasks, 2)
	for _, task := range travel.Tasks {
		require.NotContains(t, []string{"g2", "g3"}, task.ID, "task kept its Google ID")
	}
	require.Equal(t, service.StatusCompleted, travel.Tasks[0].Status, "status kept")
}

func TestImportGoogleCommand_SourceError(t *testing.T) {
	e := newEnv(t)
	cmd := &commands.ImportGoogleCmd{}
	cmd.SetSource(&fakeSource{err: fmt.Errorf("google token expired: %w", service.ErrNotAuthenticated)})
	_, stderr, code := runCommand(t, cmd, e.store, nil, false)

	require.Equal(t, exitcode.AuthError, code, stderr)
	require.Len(t, e.backend.Lists(), 3, "expected no new lists")
}

func TestImportGoogleCommand_NoClientFile(t *testing.T) {
	e := newEnv(t)
	_, stderr, code := runCommand(t, &commands.ImportGoogleCmd{}, e.store, nil, false)

	require.Equal(t, exitcode.AuthError, code, stderr)
	require.Contains(t, stderr, "google_oauth_client.json not found")
}
