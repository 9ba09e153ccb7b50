// Package scheduler triggers periodic sync passes on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/araeLaver/petchecky-sub002/internal/logging"
)

// DefaultInterval is the gap between periodic sync passes.
const DefaultInterval = 30 * time.Second

// Clock abstracts ticker creation so tests can drive the schedule
// deterministically.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the scheduler needs.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) Chan() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()                  { r.t.Stop() }

// Syncer is the engine surface the scheduler drives.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Scheduler fires a sync pass every interval while running. Overlap is
// impossible regardless of interval length; a tick that lands during a
// pass is absorbed by the engine's single-flight guard.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	clock    Clock

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval overrides the default 30s tick interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// New creates a stopped Scheduler.
func New(syncer Syncer, opts ...Option) *Scheduler {
	s := &Scheduler{
		syncer:   syncer,
		interval: DefaultInterval,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the periodic loop. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	logging.Info("Sync scheduler started",
		map[string]any{"interval": s.interval.String()})

	s.wg.Add(1)
	go s.loop(ctx, s.stopCh)
}

func (s *Scheduler) loop(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if err := s.syncer.Sync(ctx); err != nil {
				logging.Warn("Scheduled sync pass ended with error",
					map[string]any{"error": err.Error()})
			}
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the loop and waits for the in-flight tick handler, if any,
// to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info("Sync scheduler stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
