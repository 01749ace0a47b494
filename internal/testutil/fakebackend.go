// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"todosync/internal/service"
)

// FakeBackend is an in-memory implementation of service.Backend holding the
// lists one user can see.
//
// When Feed is set, every successful mutation is echoed on it the way the
// real backend pushes changes to subscribers.
type FakeBackend struct {
	mu    sync.Mutex
	lists []service.List

	// Feed receives the change events of mutations when non-nil.
	Feed *FakeFeed

	// AfterFetch is called by FetchAllLists after the lists are copied and
	// before they are returned.
	AfterFetch func()

	// Error injection for testing
	FetchErr      error
	CreateListErr error
	DeleteListErr error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error
	ShareErr      error

	fetchCalls int
	users      []string
	grants     []service.Grant
}

// NewFakeBackend creates a FakeBackend with no lists.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{}
}

// AddList adds a list to the backend.
func (f *FakeBackend) AddList(id, title string, role service.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, service.List{ID: id, Title: title, Role: role, Tasks: []service.Task{}})
}

// AddTask adds a task to a list.
func (f *FakeBackend) AddTask(listID string, task service.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lists {
		if f.lists[i].ID == listID {
			f.lists[i].Tasks = append(f.lists[i].Tasks, task)
			return
		}
	}
}

// SetFetchErr sets the error returned by FetchAllLists.
func (f *FakeBackend) SetFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FetchErr = err
}

// FetchCalls returns how many times FetchAllLists was called.
func (f *FakeBackend) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// Users returns the usernames passed to every call, in order.
func (f *FakeBackend) Users() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.users...)
}

// Grants returns every grant passed to ShareList.
func (f *FakeBackend) Grants() []service.Grant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Grant(nil), f.grants...)
}

// Lists returns a copy of the backend's lists.
func (f *FakeBackend) Lists() []service.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	return service.Snapshot(f.lists).Clone()
}

// FetchAllLists implements service.Backend.
func (f *FakeBackend) FetchAllLists(ctx context.Context, username string, includeTasks bool) ([]service.List, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.users = append(f.users, username)
	err := f.FetchErr
	lists := service.Snapshot(f.lists).Clone()
	hook := f.AfterFetch
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !includeTasks {
		for i := range lists {
			lists[i].Tasks = nil
		}
	}
	if hook != nil {
		hook()
	}
	return lists, nil
}

// CreateList implements service.Backend.
func (f *FakeBackend) CreateList(ctx context.Context, username string, in service.ListInput) (service.List, error) {
	if f.CreateListErr != nil {
		return service.List{}, f.CreateListErr
	}
	f.mu.Lock()
	f.users = append(f.users, username)
	list := service.List{ID: in.ID, Role: service.RoleOwner, Title: in.Title, Description: in.Description, Tasks: []service.Task{}}
	f.lists = append(f.lists, list)
	f.mu.Unlock()

	if f.Feed != nil {
		f.Feed.PublishMembership(service.MembershipEvent{Type: service.EventInsert, ListID: list.ID, Role: service.RoleOwner})
	}
	return list, nil
}

// DeleteList implements service.Backend.
func (f *FakeBackend) DeleteList(ctx context.Context, username, listID string) (bool, error) {
	if f.DeleteListErr != nil {
		return false, f.DeleteListErr
	}
	f.mu.Lock()
	f.users = append(f.users, username)
	idx := service.Snapshot(f.lists).FindList(listID)
	if idx == -1 {
		f.mu.Unlock()
		return false, nil
	}
	role := f.lists[idx].Role
	f.lists = append(f.lists[:idx], f.lists[idx+1:]...)
	f.mu.Unlock()

	if f.Feed != nil {
		f.Feed.PublishMembership(service.MembershipEvent{Type: service.EventRemove, ListID: listID, Role: role})
	}
	return true, nil
}

// CreateTask implements service.Backend.
func (f *FakeBackend) CreateTask(ctx context.Context, username, listID string, task service.Task) (string, error) {
	if f.CreateTaskErr != nil {
		return "", f.CreateTaskErr
	}
	f.mu.Lock()
	f.users = append(f.users, username)
	idx := service.Snapshot(f.lists).FindList(listID)
	if idx == -1 {
		f.mu.Unlock()
		return "", fmt.Errorf("list %s: %w", listID, service.ErrBackend)
	}
	if task.ID == "" {
		task.ID = service.NewID()
	}
	f.lists[idx].Tasks = append(f.lists[idx].Tasks, task)
	f.mu.Unlock()

	if f.Feed != nil {
		f.Feed.PublishTask(service.TaskEvent{Type: service.EventInsert, ListID: listID, Task: task})
	}
	return task.ID, nil
}

// UpdateTask implements service.Backend.
func (f *FakeBackend) UpdateTask(ctx context.Context, username, listID, taskID string, task service.Task) (bool, error) {
	if f.UpdateTaskErr != nil {
		return false, f.UpdateTaskErr
	}
	f.mu.Lock()
	f.users = append(f.users, username)
	li := service.Snapshot(f.lists).FindList(listID)
	if li == -1 {
		f.mu.Unlock()
		return false, nil
	}
	ti := f.lists[li].FindTask(taskID)
	if ti == -1 {
		f.mu.Unlock()
		return false, nil
	}
	task.ID = taskID
	f.lists[li].Tasks[ti] = task
	f.mu.Unlock()

	if f.Feed != nil {
		f.Feed.PublishTask(service.TaskEvent{Type: service.EventModify, ListID: listID, Task: task})
	}
	return true, nil
}

// DeleteTask implements service.Backend.
func (f *FakeBackend) DeleteTask(ctx context.Context, username, listID, taskID string) (bool, error) {
	if f.DeleteTaskErr != nil {
		return false, f.DeleteTaskErr
	}
	f.mu.Lock()
	f.users = append(f.users, username)
	li := service.Snapshot(f.lists).FindList(listID)
	if li == -1 {
		f.mu.Unlock()
		return false, nil
	}
	ti := f.lists[li].FindTask(taskID)
	if ti == -1 {
		f.mu.Unlock()
		return false, nil
	}
	tasks := f.lists[li].Tasks
	f.lists[li].Tasks = append(tasks[:ti:ti], tasks[ti+1:]...)
	f.mu.Unlock()

	if f.Feed != nil {
		f.Feed.PublishTask(service.TaskEvent{Type: service.EventRemove, ListID: listID, Task: service.Task{ID: taskID}})
	}
	return true, nil
}

// ShareList implements service.Backend.
func (f *FakeBackend) ShareList(ctx context.Context, username, listID string, grants []service.Grant) (bool, error) {
	if f.ShareErr != nil {
		return false, f.ShareErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, username)
	if service.Snapshot(f.lists).FindList(listID) == -1 {
		return false, nil
	}
	f.grants = append(f.grants, grants...)
	return true, nil
}
