package service

import "errors"

var (
	// ErrNotAuthenticated indicates there is no session or it has expired.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRefreshFailed indicates the session token could not be refreshed.
	// It ends the session.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrBackend indicates a query or mutation failed on the backend.
	ErrBackend = errors.New("backend error")

	// ErrFeed indicates a change feed subscription failed.
	ErrFeed = errors.New("feed error")

	// ErrNotPermitted indicates the user's role on a list does not allow
	// the operation.
	ErrNotPermitted = errors.New("not permitted")

	// ErrNotFound is returned when a list or task does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a request was rejected locally before
	// reaching the backend.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAmbiguous is returned when a name matches more than one list.
	ErrAmbiguous = errors.New("ambiguous")
)
