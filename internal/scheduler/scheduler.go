package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rileyhilliard/nvglance/internal/gpu"
	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/logger"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

// Refresh interval bounds.
const (
	DefaultInterval = time.Second
	MinInterval     = 100 * time.Millisecond
	MaxInterval     = 5 * time.Second
	IntervalStep    = 100 * time.Millisecond

	// minPollTimeout keeps short intervals from starving slow sources.
	minPollTimeout = 500 * time.Millisecond
)

// ClampInterval bounds d to [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration
	// Sources are the host metric sources. The GPU backend is polled
	// alongside them.
	Sources []metrics.Source
	GPU     gpu.Backend
	History *history.Store
	Logger  logger.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler polls every source on a timer, assembles one Snapshot per tick
// and publishes it. The next tick is armed only once the current poll is
// done, so polls never overlap.
type Scheduler struct {
	sources []metrics.Source
	backend gpu.Backend
	history *history.Store
	log     logger.Logger
	now     func() time.Time

	interval atomic.Int64
	latest   atomic.Pointer[metrics.Snapshot]
	updates  chan *metrics.Snapshot
	running  atomic.Bool

	stopOnce sync.Once
	stop     chan struct{}

	pollMu    sync.Mutex
	lastStale metrics.DomainSet
}

// New creates a scheduler. A nil GPU backend is treated as none.
func New(opts Options) *Scheduler {
	backend := opts.GPU
	if backend == nil {
		backend = gpu.None()
	}
	hist := opts.History
	if hist == nil {
		hist = history.NewStore(history.DefaultSize)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	s := &Scheduler{
		sources: append(append([]metrics.Source(nil), opts.Sources...), backend),
		backend: backend,
		history: hist,
		log:     log,
		now:     now,
		updates: make(chan *metrics.Snapshot, 1),
		stop:    make(chan struct{}),
	}
	s.interval.Store(int64(ClampInterval(interval)))
	return s
}

// Interval returns the interval used for the next tick that gets scheduled.
func (s *Scheduler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// SetInterval changes the refresh interval and returns the clamped value.
// A timer that is already armed keeps its old deadline.
func (s *Scheduler) SetInterval(d time.Duration) time.Duration {
	d = ClampInterval(d)
	s.interval.Store(int64(d))
	s.log.Debug("refresh interval set to %s", d)
	return d
}

// Backend returns the GPU backend chosen at startup.
func (s *Scheduler) Backend() gpu.Backend {
	return s.backend
}

// History returns the store fed after each tick.
func (s *Scheduler) History() *history.Store {
	return s.history
}

// Latest returns the newest published snapshot, or nil before the first poll.
func (s *Scheduler) Latest() *metrics.Snapshot {
	return s.latest.Load()
}

// Updates delivers published snapshots. Only the newest is kept when the
// reader falls behind.
func (s *Scheduler) Updates() <-chan *metrics.Snapshot {
	return s.updates
}

// Run polls until ctx is cancelled or Stop is called. It polls once
// immediately. A poll already in flight when Run is told to stop is allowed
// to finish, but no further poll starts.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("scheduler is already running")
	}
	defer s.running.Store(false)

	for {
		if s.stopped(ctx) {
			return nil
		}
		s.Poll(ctx)
		if s.stopped(ctx) {
			return nil
		}

		timer := time.NewTimer(s.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-s.stop:
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

type result struct {
	domain metrics.Domain
	part   *metrics.Snapshot
	err    error
}

// Poll runs one collection cycle and publishes the result. Each source gets
// its own scratch snapshot and a deadline of one interval; a failing source
// has its domain carried over from the previous snapshot and marked stale.
// Concurrent calls are serialized.
func (s *Scheduler) Poll(ctx context.Context) *metrics.Snapshot {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	prev := s.latest.Load()
	start := s.now()

	timeout := s.Interval()
	if timeout < minPollTimeout {
		timeout = minPollTimeout
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]result, len(s.sources))
	var wg sync.WaitGroup
	for i, src := range s.sources {
		wg.Add(1)
		go func(i int, src metrics.Source) {
			defer wg.Done()
			part := &metrics.Snapshot{Timestamp: start}
			results[i] = result{domain: src.Domain(), part: part, err: src.Collect(pollCtx, part)}
		}(i, src)
	}
	wg.Wait()

	snap := &metrics.Snapshot{Timestamp: start}
	if prev != nil {
		snap.Elapsed = start.Sub(prev.Timestamp)
	}
	for _, r := range results {
		if r.err != nil {
			snap.Carry(r.domain, prev)
			if !s.lastStale.Has(r.domain) {
				s.log.Warn("%s source unavailable: %v", r.domain, r.err)
			}
			continue
		}
		snap.Merge(r.domain, r.part)
	}
	for _, d := range s.lastStale.Domains() {
		if !snap.Stale.Has(d) {
			s.log.Info("%s source recovered", d)
		}
	}
	s.lastStale = snap.Stale

	snap.AttachGPUProcesses()
	s.history.Push(snap)
	s.publish(snap)
	return snap
}

func (s *Scheduler) publish(snap *metrics.Snapshot) {
	s.latest.Store(snap)
	select {
	case s.updates <- snap:
		return
	default:
	}
	// Drop the unread snapshot so the reader sees the newest one.
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}
