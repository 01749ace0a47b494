package service

import "context"

// Backend defines the request/response operations of the to-do backend.
// Every call is authenticated with the current session token; the username
// scopes the call to the signed-in user.
// Failures wrap ErrBackend or ErrNotAuthenticated.
type Backend interface {
	// FetchAllLists returns every list the user can see, with nested tasks
	// when includeTasks is set.
	FetchAllLists(ctx context.Context, username string, includeTasks bool) ([]List, error)

	// CreateList creates a list owned by the user.
	CreateList(ctx context.Context, username string, in ListInput) (List, error)

	// DeleteList deletes a list.
	DeleteList(ctx context.Context, username, listID string) (bool, error)

	// CreateTask creates a task and returns its ID.
	CreateTask(ctx context.Context, username, listID string, task Task) (string, error)

	// UpdateTask replaces the fields of a task.
	UpdateTask(ctx context.Context, username, listID, taskID string, task Task) (bool, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, username, listID, taskID string) (bool, error)

	// ShareList grants roles on a list to other users.
	ShareList(ctx context.Context, username, listID string, grants []Grant) (bool, error)
}

// Session supplies the identity of the signed-in user.
type Session interface {
	// Token returns a valid identity token, refreshing it when expired.
	// Fails with ErrNotAuthenticated when there is no session.
	Token(ctx context.Context) (string, error)

	// Refresh exchanges the refresh token for a new identity token.
	// Fails with ErrRefreshFailed.
	Refresh(ctx context.Context) error

	// Username returns the signed-in user's name, or "" when signed out.
	Username() string

	// Logout discards the session.
	Logout() error
}
