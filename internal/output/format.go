// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"todosync/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// DateLayout is the layout of due dates on the command line and in
	// output.
	DateLayout = "2006-01-02"

	// MaxLetters is the number of lists that can be addressed by letter.
	MaxLetters = 26
)

// Letter returns the reference letter of the list at index i, or 0 when
// the index has no letter.
func Letter(i int) rune {
	if i < 0 || i >= MaxLetters {
		return 0
	}
	return rune('a' + i)
}

// FormatListLine formats a list for the lists command.
// Format: "{L}  {TITLE}  [{role}]  {n} open\n"
func FormatListLine(w io.Writer, letter rune, list service.List) {
	ref := " "
	if letter != 0 {
		ref = string(letter)
	}
	fmt.Fprintf(w, "%s  %s  [%s]  %d open\n", ref, normalizeListTitle(list.Title), list.Role, list.OpenTasks())
}

// FormatListHeader formats a list section header.
func FormatListHeader(w io.Writer, list service.List) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s [%s]\n", normalizeListTitle(list.Title), list.Role)
	if desc := normalizeText(list.Description); desc != "" {
		fmt.Fprintln(w, desc)
	}
	fmt.Fprintln(w, ListSeparator)
}

// FormatTask formats a task line of a list section.
// Format: "{N:>4}  {MARK} {NAME}[  due {DATE}]\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s%s\n", num, StatusMark(task.Status), normalizeTitle(task.Name), dueSuffix(task.DueDate))
}

// FormatTaskWithLetter formats a task line addressed by list letter.
// Format: "  {L}{N:<3}  {MARK} {NAME}[  due {DATE}]\n"
func FormatTaskWithLetter(w io.Writer, letter rune, num int, task service.Task) {
	ref := fmt.Sprintf("%c%d", letter, num)
	fmt.Fprintf(w, "  %-4s  %s %s%s\n", ref, StatusMark(task.Status), normalizeTitle(task.Name), dueSuffix(task.DueDate))
}

// FormatTaskDetail prints every field of a task.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "name:        %s\n", normalizeTitle(task.Name))
	fmt.Fprintf(w, "status:      %s\n", task.Status)
	fmt.Fprintf(w, "due:         %s\n", FormatDue(task.DueDate))
	if desc := normalizeText(task.Description); desc != "" {
		fmt.Fprintf(w, "description: %s\n", desc)
	}
	fmt.Fprintf(w, "id:          %s\n", task.ID)
}

// FormatSnapshot renders every list with its tasks in display order, each
// task addressed by list letter. Used by the live view.
func FormatSnapshot(w io.Writer, snap service.Snapshot) {
	if len(snap) == 0 {
		fmt.Fprintln(w, "no lists")
		return
	}
	for i, list := range snap {
		FormatListHeader(w, list)
		letter := Letter(i)
		for n, task := range service.SortedTasks(list.Tasks) {
			if letter == 0 {
				FormatTask(w, n+1, task)
				continue
			}
			FormatTaskWithLetter(w, letter, n+1, task)
		}
	}
}

// StatusMark returns the checkbox shown for a status.
func StatusMark(s service.Status) string {
	switch s {
	case service.StatusCompleted:
		return "[x]"
	case service.StatusInProgress:
		return "[~]"
	case service.StatusNotStarted:
		return "[ ]"
	default:
		return "[?]"
	}
}

// FormatDue formats a due date in local time, or "-" when unset.
func FormatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(time.Local).Format(DateLayout)
}

// ParseDue parses a YYYY-MM-DD date as local midnight. "none" and "" clear
// the due date.
func ParseDue(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date: %s (want YYYY-MM-DD)", s)
	}
	return &t, nil
}

func dueSuffix(t *time.Time) string {
	if t == nil {
		return ""
	}
	return "  due " + FormatDue(t)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

// normalizeListTitle normalizes a list title for display.
// Empty or whitespace-only titles become "(untitled)".
func normalizeListTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
