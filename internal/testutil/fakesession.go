package testutil

import (
	"context"
	"fmt"
	"sync"

	"todosync/internal/service"
)

// FakeSession is an in-memory service.Session.
type FakeSession struct {
	mu         sync.Mutex
	user       string
	token      string
	refreshErr error
	refreshes  int
	loggedOut  bool
}

// NewFakeSession creates a signed-in session for user.
func NewFakeSession(user string) *FakeSession {
	return &FakeSession{user: user, token: "id-token-" + user}
}

// SetRefreshErr sets the error returned by Refresh.
func (f *FakeSession) SetRefreshErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshErr = err
}

// Refreshes returns how many times Refresh was called.
func (f *FakeSession) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

// LoggedOut reports whether Logout was called.
func (f *FakeSession) LoggedOut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedOut
}

// Token implements service.Session.
func (f *FakeSession) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loggedOut || f.user == "" {
		return "", fmt.Errorf("not logged in: %w", service.ErrNotAuthenticated)
	}
	return f.token, nil
}

// Refresh implements service.Session.
func (f *FakeSession) Refresh(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return fmt.Errorf("%v: %w", f.refreshErr, service.ErrRefreshFailed)
	}
	return nil
}

// Username implements service.Session.
func (f *FakeSession) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loggedOut {
		return ""
	}
	return f.user
}

// Logout implements service.Session.
func (f *FakeSession) Logout() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	return nil
}
