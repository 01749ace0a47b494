// Package store holds the signed-in user's lists and keeps them in sync with
// the change feeds.
//
// A Store runs one goroutine, the loop, which owns every piece of mutable
// state: the published snapshot, the seed journal, watchers and feed
// subscriptions. Feed handlers, seeds and watchers post closures to the loop
// so events are applied strictly in arrival order. Network calls never run
// on the loop.
//
// While a seed is in flight, every applied event is journaled with its
// sequence number. When the seed result arrives the journaled events newer
// than the seed's start are replayed onto it before it is published, so an
// event applied to the old snapshot is not lost when the fetched lists
// replace it. Replay is safe because reconcilers ignore events that are
// already reflected in the snapshot.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"todosync/internal/feed"
	"todosync/internal/monitor"
	"todosync/internal/reconcile"
	"todosync/internal/service"
	"todosync/internal/session"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Options configure a Store.
type Options struct {
	Backend service.Backend
	Session service.Session
	Feed    feed.Feed

	// RefreshInterval enables the session refresh scheduler when positive.
	RefreshInterval time.Duration

	// OnSessionEnd is called when a scheduled refresh fails. The session
	// has been logged out by then.
	OnSessionEnd func(error)

	// OnFeedError is called when a feed subscription fails. The
	// subscription is not re-established.
	OnFeedError func(feed.Topic, error)

	// Monitor receives reconcile and seed timings when set.
	Monitor *monitor.Monitor
}

type journalEntry struct {
	seq   uint64
	apply func(service.Snapshot) reconcile.Result
}

// Store is the session-scoped list store.
type Store struct {
	backend service.Backend
	session service.Session
	feed    feed.Feed
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	inbox     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	subMu     sync.Mutex
	reseeds   sync.WaitGroup

	current atomic.Pointer[service.Snapshot]

	// owned by the loop
	seq         uint64
	inflight    int
	seededAt    uint64
	journal     []journalEntry
	watchers    map[int]chan service.Snapshot
	nextWatcher int
	subs        map[feed.Topic]feed.Subscription
	scheduler   *session.Scheduler
}

// New creates a store and starts its loop. Call Open to seed and subscribe,
// and Close to release it.
func New(opts Options) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend:  opts.Backend,
		session:  opts.Session,
		feed:     opts.Feed,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		inbox:    make(chan func()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		watchers: make(map[int]chan service.Snapshot),
		subs:     make(map[feed.Topic]feed.Subscription),
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.quit:
			for id, ch := range s.watchers {
				delete(s.watchers, id)
				close(ch)
			}
			return
		}
	}
}

// do runs fn on the loop and waits for it to return.
func (s *Store) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case s.inbox <- func() {
		defer close(ran)
		fn()
	}:
	case <-s.done:
		return ErrClosed
	}
	<-ran
	return nil
}

// Open subscribes to both change feeds, seeds the snapshot and starts the
// refresh scheduler. The feeds are opened before the seed so no change
// between the fetch and the subscription is missed.
func (s *Store) Open(ctx context.Context) error {
	if err := s.Subscribe(ctx); err != nil {
		return err
	}
	if err := s.Seed(ctx); err != nil {
		return err
	}
	if s.opts.RefreshInterval > 0 {
		return s.startScheduler()
	}
	return nil
}

func (s *Store) startScheduler() error {
	sched := session.NewScheduler(s.session, s.opts.RefreshInterval, s.endSession)
	started := false
	if err := s.do(func() {
		if s.scheduler == nil {
			s.scheduler = sched
			started = true
		}
	}); err != nil {
		return err
	}
	if started {
		sched.Start(s.ctx)
	}
	return nil
}

func (s *Store) endSession(err error) {
	glog.Infof("[store]session ended: %s", err)
	if s.opts.OnSessionEnd != nil {
		s.opts.OnSessionEnd(err)
	}
}

// Subscribe opens the task and membership subscriptions for the current
// user, replacing existing ones. Each old subscription is closed before its
// replacement is opened.
func (s *Store) Subscribe(ctx context.Context) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	username := s.session.Username()
	if username == "" {
		return fmt.Errorf("subscribe: %w", service.ErrNotAuthenticated)
	}

	err := s.subscribe(ctx, feed.TopicTasks, username, feed.Handlers{
		Task:  s.ApplyTaskEvent,
		Error: s.feedError(feed.TopicTasks),
	})
	if err != nil {
		return err
	}
	return s.subscribe(ctx, feed.TopicMembership, username, feed.Handlers{
		Membership: s.ApplyMembershipEvent,
		Error:      s.feedError(feed.TopicMembership),
	})
}

func (s *Store) subscribe(ctx context.Context, topic feed.Topic, username string, h feed.Handlers) error {
	var old feed.Subscription
	if err := s.do(func() {
		old = s.subs[topic]
		delete(s.subs, topic)
	}); err != nil {
		return err
	}
	if old != nil {
		old.Unsubscribe()
	}

	sub, err := s.feed.Subscribe(ctx, topic, username, h)
	if err != nil {
		glog.Infof("[store]subscribe %s failed: %s", topic, err)
		return err
	}
	if err := s.do(func() { s.subs[topic] = sub }); err != nil {
		sub.Unsubscribe()
		return err
	}
	glog.V(1).Infof("[store]subscribed %s for %s", topic, username)
	return nil
}

func (s *Store) feedError(topic feed.Topic) func(error) {
	return func(err error) {
		glog.Infof("[store]%s feed failed: %s", topic, err)
		if s.opts.OnFeedError != nil {
			s.opts.OnFeedError(topic, err)
		}
	}
}

// Seed fetches all lists with their tasks and replaces the snapshot. On
// failure the snapshot is left unchanged and the error is returned; there
// is no retry.
func (s *Store) Seed(ctx context.Context) error {
	var start uint64
	if err := s.do(func() { start = s.beginSeed() }); err != nil {
		return err
	}

	began := time.Now()
	lists, err := s.fetch(ctx)
	if s.opts.Monitor != nil {
		s.opts.Monitor.SeedCompleted(time.Since(began))
	}

	if doErr := s.do(func() { s.endSeed(start, lists, err) }); doErr != nil && err == nil {
		return doErr
	}
	return err
}

func (s *Store) fetch(ctx context.Context) ([]service.List, error) {
	username := s.session.Username()
	if username == "" {
		return nil, fmt.Errorf("seed: %w", service.ErrNotAuthenticated)
	}
	glog.V(1).Infof("[store]seed start")
	lists, err := s.backend.FetchAllLists(ctx, username, true)
	if err != nil {
		glog.Infof("[store]seed failed: %s", err)
		return nil, err
	}
	glog.V(1).Infof("[store]seed fetched %d lists", len(lists))
	return lists, nil
}

func (s *Store) beginSeed() uint64 {
	s.inflight++
	return s.seq
}

func (s *Store) endSeed(start uint64, lists []service.List, err error) {
	s.inflight--
	defer func() {
		if s.inflight == 0 {
			s.journal = nil
		}
	}()

	if err != nil {
		return
	}
	if start < s.seededAt {
		glog.V(1).Infof("[store]discard seed started at %d, newer seed at %d applied", start, s.seededAt)
		return
	}

	snap := service.Snapshot(lists)
	if snap == nil {
		snap = service.Snapshot{}
	}
	replayed := 0
	for _, e := range s.journal {
		if e.seq > start {
			snap = e.apply(snap).Snapshot
			replayed++
		}
	}
	s.seededAt = start
	glog.V(2).Infof("[store]seed applied, %d events replayed", replayed)
	s.publish(snap)
}

// ApplyTaskEvent reconciles a task event into the snapshot. It returns
// once the event is applied.
func (s *Store) ApplyTaskEvent(e service.TaskEvent) {
	glog.V(2).Infof("[store]task %s %s/%s", e.Type, e.ListID, e.Task.ID)
	err := s.do(func() {
		s.apply(func(snap service.Snapshot) reconcile.Result {
			return reconcile.ApplyTaskEvent(snap, e)
		})
	})
	if err != nil {
		glog.V(2).Infof("[store]drop task event: %s", err)
	}
}

// ApplyMembershipEvent reconciles a membership event into the snapshot. A
// grant for a list the snapshot does not have starts one asynchronous
// reseed.
func (s *Store) ApplyMembershipEvent(e service.MembershipEvent) {
	glog.V(2).Infof("[store]membership %s %s role=%s", e.Type, e.ListID, e.Role)
	err := s.do(func() {
		s.apply(func(snap service.Snapshot) reconcile.Result {
			return reconcile.ApplyMembershipEvent(snap, e)
		})
	})
	if err != nil {
		glog.V(2).Infof("[store]drop membership event: %s", err)
	}
}

// apply runs on the loop.
func (s *Store) apply(fn func(service.Snapshot) reconcile.Result) {
	began := time.Now()
	s.seq++
	if s.inflight > 0 {
		s.journal = append(s.journal, journalEntry{seq: s.seq, apply: fn})
	}

	res := fn(s.Snapshot())
	if s.opts.Monitor != nil {
		s.opts.Monitor.EventApplied(res.Changed, time.Since(began))
	}
	if res.Changed {
		s.publish(res.Snapshot)
	}
	if res.NeedsSeed {
		s.reseed()
	}
}

// reseed runs on the loop.
func (s *Store) reseed() {
	s.reseeds.Add(1)
	go func() {
		defer s.reseeds.Done()
		if err := s.Seed(s.ctx); err != nil && !errors.Is(err, ErrClosed) {
			glog.Infof("[store]reseed failed: %s", err)
		}
	}()
}

// publish runs on the loop.
func (s *Store) publish(snap service.Snapshot) {
	s.current.Store(&snap)
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Snapshot returns the current snapshot, or nil before the first seed.
// The returned snapshot must not be modified.
func (s *Store) Snapshot() service.Snapshot {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return nil
}

// Monitor returns the monitor the store reports to, or nil.
func (s *Store) Monitor() *monitor.Monitor {
	return s.opts.Monitor
}

// Watch returns a channel that holds the latest snapshot. A slow reader
// skips intermediate snapshots. The channel receives the current snapshot
// immediately when there is one. cancel stops delivery and closes the
// channel; Close closes it too.
func (s *Store) Watch() (<-chan service.Snapshot, func()) {
	ch := make(chan service.Snapshot, 1)
	var id int
	err := s.do(func() {
		id = s.nextWatcher
		s.nextWatcher++
		s.watchers[id] = ch
		if p := s.current.Load(); p != nil {
			ch <- *p
		}
	})
	if err != nil {
		close(ch)
		return ch, func() {}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.do(func() {
				if _, ok := s.watchers[id]; ok {
					delete(s.watchers, id)
					close(ch)
				}
			})
		})
	}
	return ch, cancel
}

// Close unsubscribes the feeds, stops the scheduler and the loop, and
// waits for pending reseeds. Watch channels are closed.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.quit)
		<-s.done

		s.subMu.Lock()
		for topic, sub := range s.subs {
			sub.Unsubscribe()
			delete(s.subs, topic)
		}
		s.subMu.Unlock()

		if s.scheduler != nil {
			s.scheduler.Stop()
		}
		s.reseeds.Wait()
		glog.V(1).Infof("[store]closed")
	})
}
