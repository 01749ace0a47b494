// Package reconcile folds change feed events into list snapshots.
//
// Every function here is pure: the input snapshot is never modified and the
// returned snapshot shares unchanged lists and task slices with it. Events
// are applied in delivery order without timestamp reordering; duplicate and
// stale events are absorbed by the found / not-found guards, which also makes
// replaying an already applied event a no-op.
package reconcile

import (
	"todosync/internal/service"
)

// Result is the outcome of applying one event.
type Result struct {
	// Snapshot is the reconciled snapshot. It is the input snapshot when
	// Changed is false.
	Snapshot service.Snapshot

	// Changed reports whether the event altered the snapshot.
	Changed bool

	// NeedsSeed reports that the event cannot be materialized locally and
	// a full reseed is required (membership granted for an unknown list).
	NeedsSeed bool
}

// ApplyTaskEvent applies a task change to the snapshot.
//
// Events for a list missing from the snapshot are dropped. Remove deletes a
// present task, Insert appends an absent one, and Modify replaces all fields
// of a present one when any field differs. Every other combination leaves the snapshot unchanged.
func ApplyTaskEvent(s service.Snapshot, e service.TaskEvent) Result {
	listIdx := s.FindList(e.ListID)
	if listIdx == -1 {
		return Result{Snapshot: s}
	}

	list := s[listIdx]
	taskIdx := list.FindTask(e.Task.ID)
	found := taskIdx != -1

	var tasks []service.Task
	switch e.Type {
	case service.EventRemove:
		if !found {
			return Result{Snapshot: s}
		}
		tasks = make([]service.Task, 0, len(list.Tasks)-1)
		tasks = append(tasks, list.Tasks[:taskIdx]...)
		tasks = append(tasks, list.Tasks[taskIdx+1:]...)

	case service.EventInsert:
		if found {
			return Result{Snapshot: s}
		}
		tasks = make([]service.Task, 0, len(list.Tasks)+1)
		tasks = append(tasks, list.Tasks...)
		tasks = append(tasks, e.Task)

	case service.EventModify:
		if !found || list.Tasks[taskIdx].Equal(e.Task) {
			return Result{Snapshot: s}
		}
		tasks = append([]service.Task(nil), list.Tasks...)
		tasks[taskIdx] = e.Task

	default:
		return Result{Snapshot: s}
	}

	list.Tasks = tasks
	return Result{Snapshot: replaceList(s, listIdx, list), Changed: true}
}

// ApplyMembershipEvent applies a change to the user's access to a list.
//
// Remove drops a present list together with its tasks and Modify updates
// the role of a present list. Insert for an absent list carries no tasks, so
// the snapshot is left unchanged and NeedsSeed is set. Every other
// combination leaves the snapshot unchanged.
func ApplyMembershipEvent(s service.Snapshot, e service.MembershipEvent) Result {
	listIdx := s.FindList(e.ListID)
	found := listIdx != -1

	switch e.Type {
	case service.EventRemove:
		if !found {
			return Result{Snapshot: s}
		}
		out := make(service.Snapshot, 0, len(s)-1)
		out = append(out, s[:listIdx]...)
		out = append(out, s[listIdx+1:]...)
		return Result{Snapshot: out, Changed: true}

	case service.EventInsert:
		if found {
			return Result{Snapshot: s}
		}
		return Result{Snapshot: s, NeedsSeed: true}

	case service.EventModify:
		if !found || s[listIdx].Role == e.Role {
			return Result{Snapshot: s}
		}
		list := s[listIdx]
		list.Role = e.Role
		return Result{Snapshot: replaceList(s, listIdx, list), Changed: true}
	}

	return Result{Snapshot: s}
}

// replaceList returns a copy of s with the list at idx replaced.
func replaceList(s service.Snapshot, idx int, list service.List) service.Snapshot {
	out := make(service.Snapshot, len(s))
	copy(out, s)
	out[idx] = list
	return out
}
