package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang/glog"

	"todosync/internal/service"
)

// Mutations go straight to the backend and leave the snapshot alone. The
// snapshot changes when the backend echoes the change on the feeds.

// CreateList creates a list owned by the current user.
func (s *Store) CreateList(ctx context.Context, title, description string) (service.List, error) {
	username, err := s.user(ctx)
	if err != nil {
		return service.List{}, err
	}
	if strings.TrimSpace(title) == "" {
		return service.List{}, fmt.Errorf("%w: list title is required", service.ErrInvalidInput)
	}
	list, err := s.backend.CreateList(ctx, username, service.ListInput{
		ID:          service.NewID(),
		Title:       title,
		Description: description,
	})
	if err != nil {
		glog.Infof("[store]create list failed: %s", err)
		return service.List{}, err
	}
	glog.V(1).Infof("[store]created list %s", list.ID)
	return list, nil
}

// DeleteList deletes a list. Only the owner may delete it.
func (s *Store) DeleteList(ctx context.Context, listID string) (bool, error) {
	username, err := s.user(ctx)
	if err != nil {
		return false, err
	}
	if err := s.permit(listID, service.Role.CanDeleteList, "delete"); err != nil {
		return false, err
	}
	ok, err := s.backend.DeleteList(ctx, username, listID)
	if err != nil {
		glog.Infof("[store]delete list %s failed: %s", listID, err)
	}
	return ok, err
}

// AddTask creates a task in a list and returns its ID. A task without an ID
// gets a new one and a task without a status starts as not started.
func (s *Store) AddTask(ctx context.Context, listID string, task service.Task) (string, error) {
	username, err := s.user(ctx)
	if err != nil {
		return "", err
	}
	if err := s.permit(listID, service.Role.CanEditTasks, "add tasks to"); err != nil {
		return "", err
	}
	if task.ID == "" {
		task.ID = service.NewID()
	}
	if task.Status == "" {
		task.Status = service.StatusNotStarted
	}
	id, err := s.backend.CreateTask(ctx, username, listID, task)
	if err != nil {
		glog.Infof("[store]add task to %s failed: %s", listID, err)
		return "", err
	}
	return id, nil
}

// UpdateTask replaces every field of a task.
func (s *Store) UpdateTask(ctx context.Context, listID string, task service.Task) (bool, error) {
	username, err := s.user(ctx)
	if err != nil {
		return false, err
	}
	if err := s.permit(listID, service.Role.CanEditTasks, "edit tasks in"); err != nil {
		return false, err
	}
	ok, err := s.backend.UpdateTask(ctx, username, listID, task.ID, task)
	if err != nil {
		glog.Infof("[store]update task %s/%s failed: %s", listID, task.ID, err)
	}
	return ok, err
}

// DeleteTask deletes a task.
func (s *Store) DeleteTask(ctx context.Context, listID, taskID string) (bool, error) {
	username, err := s.user(ctx)
	if err != nil {
		return false, err
	}
	if err := s.permit(listID, service.Role.CanEditTasks, "delete tasks in"); err != nil {
		return false, err
	}
	ok, err := s.backend.DeleteTask(ctx, username, listID, taskID)
	if err != nil {
		glog.Infof("[store]delete task %s/%s failed: %s", listID, taskID, err)
	}
	return ok, err
}

// ShareList grants roles on a list to other users. Only the owner may
// share.
func (s *Store) ShareList(ctx context.Context, listID string, grants []service.Grant) (bool, error) {
	username, err := s.user(ctx)
	if err != nil {
		return false, err
	}
	if err := s.permit(listID, service.Role.CanShare, "share"); err != nil {
		return false, err
	}
	ok, err := s.backend.ShareList(ctx, username, listID, grants)
	if err != nil {
		glog.Infof("[store]share %s failed: %s", listID, err)
	}
	return ok, err
}

// user returns the signed-in username after making sure the session has a
// usable token.
func (s *Store) user(ctx context.Context) (string, error) {
	username := s.session.Username()
	if username == "" {
		return "", fmt.Errorf("no session: %w", service.ErrNotAuthenticated)
	}
	if _, err := s.session.Token(ctx); err != nil {
		return "", err
	}
	return username, nil
}

// permit checks the role held on a list the snapshot knows. Lists missing
// from the snapshot are left to the backend to judge.
func (s *Store) permit(listID string, allowed func(service.Role) bool, action string) error {
	snap := s.Snapshot()
	idx := snap.FindList(listID)
	if idx == -1 {
		return nil
	}
	if l := snap[idx]; !allowed(l.Role) {
		return fmt.Errorf("%s cannot %s list %q: %w", l.Role, action, l.Title, service.ErrNotPermitted)
	}
	return nil
}
