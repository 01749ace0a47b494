package commands

import (
	"todosync/internal/service"
)

// target is a task addressed on the command line.
type target struct {
	list service.List
	task service.Task
}

// lookupTasks resolves task references against the snapshot. listName is
// the --list flag value; it and list letters are mutually exclusive.
// Task numbers follow display order. A task named twice is returned once.
func lookupTasks(snap service.Snapshot, listName string, args []string) ([]target, error) {
	refs, err := ParseTaskRefs(args)
	if err != nil {
		return nil, usagef("%v", err)
	}

	var named service.List
	if listName != "" {
		named, err = resolveList(snap, listName)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var out []target
	for _, ref := range refs {
		var list service.List
		switch {
		case listName != "" && ref.HasLetter:
			return nil, usagef("cannot use both --list and list letter")
		case listName != "":
			list = named
		case ref.HasLetter:
			list, err = ResolveListByLetter(snap, ref.Letter)
			if err != nil {
				return nil, usagef("%v", err)
			}
		default:
			return nil, usagef("list required (use --list or a list letter)")
		}

		tasks := service.SortedTasks(list.Tasks)
		if ref.TaskNum < 1 || ref.TaskNum > len(tasks) {
			return nil, usagef("task number out of range: %d", ref.TaskNum)
		}
		task := tasks[ref.TaskNum-1]
		key := list.ID + "/" + task.ID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, target{list: list, task: task})
	}
	return out, nil
}

// lookupTask resolves exactly one task reference.
func lookupTask(snap service.Snapshot, listName string, args []string) (target, error) {
	if len(args) > 1 {
		return target{}, usagef("one task reference expected")
	}
	targets, err := lookupTasks(snap, listName, args)
	if err != nil {
		return target{}, err
	}
	return targets[0], nil
}
