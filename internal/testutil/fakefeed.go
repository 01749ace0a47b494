package testutil

import (
	"context"
	"sync"

	"todosync/internal/feed"
	"todosync/internal/service"
)

// FakeFeed is an in-memory feed.Feed. Publish calls deliver synchronously
// to the live subscriptions of the topic.
type FakeFeed struct {
	mu         sync.Mutex
	subs       []*fakeSub
	subscribes map[feed.Topic]int

	// SubscribeErr is returned by Subscribe when set.
	SubscribeErr error
}

type fakeSub struct {
	feed     *FakeFeed
	topic    feed.Topic
	username string
	handlers feed.Handlers
	live     bool
}

// NewFakeFeed creates a FakeFeed.
func NewFakeFeed() *FakeFeed {
	return &FakeFeed{subscribes: make(map[feed.Topic]int)}
}

// Subscribe implements feed.Feed.
func (f *FakeFeed) Subscribe(ctx context.Context, topic feed.Topic, username string, h feed.Handlers) (feed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	sub := &fakeSub{feed: f, topic: topic, username: username, handlers: h, live: true}
	f.subs = append(f.subs, sub)
	f.subscribes[topic]++
	return sub, nil
}

func (s *fakeSub) Unsubscribe() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.live = false
}

// Active returns the number of live subscriptions on topic.
func (f *FakeFeed) Active(topic feed.Topic) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if s.live && s.topic == topic {
			n++
		}
	}
	return n
}

// Subscribes returns how many subscriptions were opened on topic.
func (f *FakeFeed) Subscribes(topic feed.Topic) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes[topic]
}

// Usernames returns the usernames of the live subscriptions on topic.
func (f *FakeFeed) Usernames(topic feed.Topic) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.subs {
		if s.live && s.topic == topic {
			out = append(out, s.username)
		}
	}
	return out
}

// PublishTask delivers a task event.
func (f *FakeFeed) PublishTask(e service.TaskEvent) {
	for _, h := range f.live(feed.TopicTasks) {
		if h.Task != nil {
			h.Task(e)
		}
	}
}

// PublishMembership delivers a membership event.
func (f *FakeFeed) PublishMembership(e service.MembershipEvent) {
	for _, h := range f.live(feed.TopicMembership) {
		if h.Membership != nil {
			h.Membership(e)
		}
	}
}

// Fail reports err to the live subscriptions of topic and kills them.
func (f *FakeFeed) Fail(topic feed.Topic, err error) {
	f.mu.Lock()
	var handlers []feed.Handlers
	for _, s := range f.subs {
		if s.live && s.topic == topic {
			s.live = false
			handlers = append(handlers, s.handlers)
		}
	}
	f.mu.Unlock()

	for _, h := range handlers {
		if h.Error != nil {
			h.Error(err)
		}
	}
}

func (f *FakeFeed) live(topic feed.Topic) []feed.Handlers {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []feed.Handlers
	for _, s := range f.subs {
		if s.live && s.topic == topic {
			out = append(out, s.handlers)
		}
	}
	return out
}
