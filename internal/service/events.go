package service

import (
	"fmt"
	"strings"
)

// EventType is the kind of change a feed event describes.
type EventType int

const (
	EventInsert EventType = iota + 1
	EventModify
	EventRemove
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventInsert:
		return "INSERT"
	case EventModify:
		return "MODIFY"
	case EventRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// ParseEventType parses the wire name of an event type (case-insensitive).
func ParseEventType(s string) (EventType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INSERT":
		return EventInsert, nil
	case "MODIFY":
		return EventModify, nil
	case "REMOVE":
		return EventRemove, nil
	}
	return 0, fmt.Errorf("unknown event type: %q", s)
}

// TaskEvent is a change to one task inside a list.
// For EventRemove only Task.ID is meaningful.
type TaskEvent struct {
	Type   EventType
	ListID string
	Task   Task
}

// MembershipEvent is a change to the current user's access to a list:
// access granted (insert), role changed (modify) or revoked (remove).
type MembershipEvent struct {
	Type   EventType
	ListID string
	Role   Role
}
