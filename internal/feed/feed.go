// Package feed delivers server-pushed change events over the AppSync
// realtime websocket protocol.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"todosync/internal/backend/appsync"
	"todosync/internal/service"
)

// Topic names a change feed.
type Topic int

const (
	// TopicTasks carries task inserts, modifications and removals.
	TopicTasks Topic = iota + 1
	// TopicMembership carries changes to the user's access to lists.
	TopicMembership
)

// String returns the subscription field name of the topic.
func (t Topic) String() string {
	switch t {
	case TopicTasks:
		return "onTodoItemChange"
	case TopicMembership:
		return "onUserToListChange"
	default:
		return fmt.Sprintf("Topic(%d)", int(t))
	}
}

func (t Topic) query() string {
	switch t {
	case TopicTasks:
		return appsync.TodoSubscription
	case TopicMembership:
		return appsync.UserToListSubscription
	default:
		return ""
	}
}

// Handlers receive the events of one subscription. Handlers are called
// from the subscription's reader goroutine, one at a time and in delivery
// order. A nil handler drops its events.
type Handlers struct {
	Task       func(service.TaskEvent)
	Membership func(service.MembershipEvent)

	// Error is called once when the subscription fails. The subscription
	// is dead afterwards and is not re-established.
	Error func(error)
}

// Subscription is a live subscription.
type Subscription interface {
	// Unsubscribe stops delivery. After it returns no handler is called.
	Unsubscribe()
}

// Feed opens subscriptions.
type Feed interface {
	Subscribe(ctx context.Context, topic Topic, username string, h Handlers) (Subscription, error)
}

type changePayload struct {
	Type string          `json:"type"`
	Item json.RawMessage `json:"item"`
}

// dispatch decodes one data payload of the topic and calls the matching
// handler. Payloads without an item are ignored.
func dispatch(topic Topic, data json.RawMessage, h Handlers) error {
	var fields map[string]*changePayload
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode %s payload: %w", topic, err)
	}
	change := fields[topic.String()]
	if change == nil || len(change.Item) == 0 || string(change.Item) == "null" {
		return nil
	}

	eventType, err := service.ParseEventType(change.Type)
	if err != nil {
		return err
	}

	switch topic {
	case TopicTasks:
		var item appsync.TodoItem
		if err := json.Unmarshal(change.Item, &item); err != nil {
			return fmt.Errorf("decode %s item: %w", topic, err)
		}
		if h.Task != nil {
			h.Task(service.TaskEvent{Type: eventType, ListID: item.ListID, Task: item.Task()})
		}
	case TopicMembership:
		var item appsync.UserToListItem
		if err := json.Unmarshal(change.Item, &item); err != nil {
			return fmt.Errorf("decode %s item: %w", topic, err)
		}
		if h.Membership != nil {
			h.Membership(service.MembershipEvent{Type: eventType, ListID: item.ListID, Role: service.Role(item.Role)})
		}
	}
	return nil
}
