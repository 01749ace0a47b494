// Package monitor keeps sync statistics for a running store.
package monitor

import (
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/golang/glog"
)

// Stats is one report period.
type Stats struct {
	EventsPerSec float64 // feed events reconciled per second
	Unchanged    int     // events that left the snapshot unchanged
	Seeds        int     // completed seeds
	ReconcileMs  float64 // moving average of reconcile duration
	SeedMs       float64 // moving average of seed round-trip duration
}

// Monitor keeps store stats. The zero value is not usable; use New.
type Monitor struct {
	sync.Mutex
	reconcileDur *movingaverage.MovingAverage
	seedDur      *movingaverage.MovingAverage
	events       int
	unchanged    int
	seeds        int
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// New creates a Monitor averaging over the given number of samples.
func New(window int) *Monitor {
	if window < 1 {
		window = 1
	}
	return &Monitor{
		reconcileDur: movingaverage.New(window),
		seedDur:      movingaverage.New(window),
	}
}

// EventApplied records one reconciled feed event.
func (m *Monitor) EventApplied(changed bool, dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.events++
	if !changed {
		m.unchanged++
	}
	m.reconcileDur.Add(millis(dur))
}

// SeedCompleted records one seed, successful or not.
func (m *Monitor) SeedCompleted(dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.seeds++
	m.seedDur.Add(millis(dur))
}

// Collect returns the stats accumulated since the previous call and resets
// the counters. Averages are not reset.
func (m *Monitor) Collect(period time.Duration) Stats {
	m.Lock()
	defer m.Unlock()

	st := Stats{
		Unchanged:   m.unchanged,
		Seeds:       m.seeds,
		ReconcileMs: m.reconcileDur.Avg(),
		SeedMs:      m.seedDur.Avg(),
	}
	if period > 0 {
		st.EventsPerSec = float64(m.events) / period.Seconds()
	}
	m.events = 0
	m.unchanged = 0
	m.seeds = 0
	return st
}

// Start starts the report worker. A nil report logs through glog.
func (m *Monitor) Start(period time.Duration, report func(Stats)) {
	m.Lock()
	defer m.Unlock()
	if m.stopCh != nil {
		return
	}
	if report == nil {
		report = logStats
	}

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.worker(period, report, m.stopCh, m.doneCh)
}

// Stop stops the report worker and waits for it to exit.
func (m *Monitor) Stop() {
	m.Lock()
	stopCh, doneCh := m.stopCh, m.doneCh
	m.stopCh, m.doneCh = nil, nil
	m.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}

func (m *Monitor) worker(period time.Duration, report func(Stats), stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			report(m.Collect(period))
		}
	}
}

func logStats(st Stats) {
	glog.Infof("Monitor:")
	glog.Infof("  - Events / s:          %.2f", st.EventsPerSec)
	glog.Infof("  - Unchanged events:    %d", st.Unchanged)
	glog.Infof("  - Seeds:               %d", st.Seeds)
	glog.Infof("  - Reconcile dur [ms]:  %.3f", st.ReconcileMs)
	glog.Infof("  - Seed dur [ms]:       %.2f", st.SeedMs)
}

func millis(d time.Duration) float64 {
	return float64(d/time.Microsecond) / 1000.0
}
