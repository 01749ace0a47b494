package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"todosync/internal/output"
	"todosync/internal/service"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Letter    rune // 0 if no letter, 'a'-'z' otherwise
	TaskNum   int  // 1-based task number in display order
	HasLetter bool // true if a list letter was provided
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a single task reference from args.
//
// Accepted forms:
//   - "3": task 3 of the list named with --list
//   - "a3", "b12": task 3 of list a, task 12 of list b
//
// No args is ErrTaskRefRequired; anything else is an invalid reference.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}
	return parseRef(args[0])
}

// ParseTaskRefs parses every arg as a task reference.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}
	refs := make([]TaskRef, 0, len(args))
	for _, arg := range args {
		ref, err := parseRef(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseRef(s string) (TaskRef, error) {
	if isAllDigits(s) {
		num, err := strconv.Atoi(s)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", s)
		}
		return TaskRef{TaskNum: num}, nil
	}

	if len(s) > 1 && isLetter(rune(s[0])) && isAllDigits(s[1:]) {
		num, err := strconv.Atoi(s[1:])
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", s)
		}
		return TaskRef{Letter: rune(s[0]), TaskNum: num, HasLetter: true}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", s)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetter returns true if r is a lowercase letter a-z.
func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// ResolveListByLetter returns the list a letter addresses. Letters index the
// snapshot in order, as printed by the lists command.
func ResolveListByLetter(snap service.Snapshot, letter rune) (service.List, error) {
	for i, list := range snap {
		l := output.Letter(i)
		if l == 0 {
			break
		}
		if l == letter {
			return list, nil
		}
	}
	return service.List{}, fmt.Errorf("list letter not found: %c", letter)
}
