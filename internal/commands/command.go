// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/config"
	"todosync/internal/monitor"
	"todosync/internal/service"
)

// Store is the list store commands read and mutate. It is implemented by
// *store.Store.
type Store interface {
	Snapshot() service.Snapshot
	Watch() (<-chan service.Snapshot, func())
	Monitor() *monitor.Monitor

	CreateList(ctx context.Context, title, description string) (service.List, error)
	DeleteList(ctx context.Context, listID string) (bool, error)
	AddTask(ctx context.Context, listID string, task service.Task) (string, error)
	UpdateTask(ctx context.Context, listID string, task service.Task) (bool, error)
	DeleteTask(ctx context.Context, listID, taskID string) (bool, error)
	ShareList(ctx context.Context, listID string, grants []service.Grant) (bool, error)

	Close()
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a seeded store.
	// Commands like help, version, login, logout return false.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// st is nil if NeedsAuth() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, st Store, args []string, out, errOut io.Writer) int
}

// LiveCommand is implemented by commands that need the change feeds open
// for their whole run.
type LiveCommand interface {
	Live() bool
}
