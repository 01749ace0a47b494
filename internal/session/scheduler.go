package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"todosync/internal/service"
)

// refreshTimeout bounds one scheduled refresh.
const refreshTimeout = 30 * time.Second

// Scheduler refreshes a session periodically. A failed refresh ends the
// session: the scheduler logs out and reports the error to onEnd.
type Scheduler struct {
	session  service.Session
	interval time.Duration
	onEnd    func(error)

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewScheduler creates a scheduler. onEnd may be nil.
func NewScheduler(s service.Session, interval time.Duration, onEnd func(error)) *Scheduler {
	return &Scheduler{
		session:  s,
		interval: interval,
		onEnd:    onEnd,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start starts the scheduler. Calls after the first are ignored.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Stop cancels the pending refresh and waits for the scheduler to exit.
// It is safe to call from onEnd.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	started := true
	s.startOnce.Do(func() {
		started = false
		close(s.doneCh)
	})
	if started {
		<-s.doneCh
	}
}

func (s *Scheduler) run(ctx context.Context) {
	err := s.loop(ctx)
	close(s.doneCh)
	if err == nil {
		return
	}

	glog.Infof("[session]refresh failed, ending session: %s", err)
	if logoutErr := s.session.Logout(); logoutErr != nil {
		glog.Infof("[session]logout: %s", logoutErr)
	}
	if s.onEnd != nil {
		s.onEnd(err)
	}
}

func (s *Scheduler) loop(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			glog.V(1).Infof("[session]scheduled refresh")
			refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
			err := s.session.Refresh(refreshCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
