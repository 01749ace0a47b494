package commands

import (
	"errors"
	"fmt"
	"io"

	"todosync/internal/exitcode"
	"todosync/internal/service"
)

// usageError is a command line mistake, printed as is.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// report prints err to errOut and returns the matching exit code.
func report(errOut io.Writer, err error) int {
	var ue *usageError
	switch {
	case errors.As(err, &ue):
		fmt.Fprintf(errOut, "error: %s\n", ue.msg)
		return exitcode.UserError
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrRefreshFailed):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, service.ErrNotPermitted), errors.Is(err, service.ErrInvalidInput):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// notApplied reports a mutation the backend acknowledged without success.
func notApplied(errOut io.Writer, what string) int {
	fmt.Fprintf(errOut, "error: backend error: %s was not applied\n", what)
	return exitcode.BackendError
}

// resolveList finds a list by title or ID in the snapshot.
func resolveList(snap service.Snapshot, name string) (service.List, error) {
	list, err := snap.ResolveList(name)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return service.List{}, usagef("list not found: %s", name)
	case errors.Is(err, service.ErrAmbiguous):
		return service.List{}, usagef("ambiguous list name: %s", name)
	}
	return list, err
}
