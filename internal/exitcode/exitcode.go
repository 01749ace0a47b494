// Package exitcode defines exit codes for the CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, ambiguous,
	// not permitted by the list role).
	UserError = 1

	// AuthError indicates a missing or ended session, or an auth config
	// error.
	AuthError = 2

	// BackendError indicates a backend, feed or network error.
	BackendError = 3
)
