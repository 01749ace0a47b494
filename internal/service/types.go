// Package service defines the to-do data model and the backend-agnostic
// interface for list and task operations.
package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Role is the capability level the current user holds on a list.
// Values match the backend's integer encoding.
type Role int

const (
	RoleOwner  Role = 0
	RoleEditor Role = 1
	RoleViewer Role = 2
)

// String returns the lowercase role name.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleEditor:
		return "editor"
	case RoleViewer:
		return "viewer"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// CanShare reports whether the role may share the list with other users.
func (r Role) CanShare() bool { return r == RoleOwner }

// CanDeleteList reports whether the role may delete the list.
func (r Role) CanDeleteList() bool { return r == RoleOwner }

// CanEditTasks reports whether the role may add, edit and delete tasks.
func (r Role) CanEditTasks() bool { return r == RoleOwner || r == RoleEditor }

// ParseRole parses a role name ("owner", "editor", "viewer") or its
// integer form.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner", "0":
		return RoleOwner, nil
	case "editor", "edit", "1":
		return RoleEditor, nil
	case "viewer", "view", "2":
		return RoleViewer, nil
	}
	return 0, fmt.Errorf("invalid role: %s", s)
}

// Status is the progress state of a task.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// ParseStatus parses a status, accepting the spellings older clients sent
// ("open", "in progress", "completed").
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	switch norm {
	case "not started", "notstarted", "open", "todo":
		return StatusNotStarted, nil
	case "in progress", "inprogress", "started":
		return StatusInProgress, nil
	case "completed", "complete", "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("invalid status: %s", s)
}

// Task represents a single task item.
type Task struct {
	ID          string
	Name        string
	Description string
	DueDate     *time.Time // nil means no due date
	Status      Status
}

// Equal reports whether t and o carry the same fields. Due dates compare by
// instant, not by location.
func (t Task) Equal(o Task) bool {
	if t.ID != o.ID || t.Name != o.Name || t.Description != o.Description || t.Status != o.Status {
		return false
	}
	if t.DueDate == nil || o.DueDate == nil {
		return t.DueDate == nil && o.DueDate == nil
	}
	return t.DueDate.Equal(*o.DueDate)
}

// List represents a task list as seen by the current user.
type List struct {
	ID          string
	Role        Role
	Title       string
	Description string
	Tasks       []Task
}

// FindTask returns the index of the task with the given ID, or -1.
func (l List) FindTask(taskID string) int {
	for i, t := range l.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

// OpenTasks returns the number of tasks that are not completed.
func (l List) OpenTasks() int {
	n := 0
	for _, t := range l.Tasks {
		if t.Status != StatusCompleted {
			n++
		}
	}
	return n
}

// Snapshot is the full set of lists visible to the current user at a point
// in time. A published Snapshot is never modified; reconcilers build a new
// one for every change.
type Snapshot []List

// FindList returns the index of the list with the given ID, or -1.
func (s Snapshot) FindList(listID string) int {
	for i, l := range s {
		if l.ID == listID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy that the caller may modify freely.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for i, l := range s {
		out[i] = l
		out[i].Tasks = append([]Task(nil), l.Tasks...)
	}
	return out
}

// ResolveList finds a list by title (case-insensitive, trimmed) or by ID.
// Returns ErrNotFound or ErrAmbiguous.
func (s Snapshot) ResolveList(name string) (List, error) {
	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	var matches []List
	for _, l := range s {
		if l.ID == name {
			return l, nil
		}
		if strings.ToLower(strings.TrimSpace(l.Title)) == nameLower {
			matches = append(matches, l)
		}
	}

	switch len(matches) {
	case 0:
		return List{}, fmt.Errorf("list not found: %s: %w", name, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return List{}, fmt.Errorf("ambiguous list name: %s: %w", name, ErrAmbiguous)
	}
}

// SortedTasks returns the list's tasks in display order: by due date
// (tasks without one last), then name, then ID. The list is not modified.
func SortedTasks(tasks []Task) []Task {
	out := append([]Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out
}

// ListInput carries the fields of a list to create.
type ListInput struct {
	ID          string
	Title       string
	Description string
}

// Grant gives a user a role on a list.
type Grant struct {
	UserID string
	Role   Role
}

// NewID returns a new globally unique, time-ordered identifier for a list
// or task.
func NewID() string {
	return strings.ToLower(ulid.Make().String())
}
