package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nvglance/internal/errors"
	"github.com/rileyhilliard/nvglance/internal/gpu"
	"github.com/rileyhilliard/nvglance/internal/history"
	"github.com/rileyhilliard/nvglance/internal/logger"
	"github.com/rileyhilliard/nvglance/internal/metrics"
)

// cpuSource reports an increasing CPU percentage and can be told to fail.
type cpuSource struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	delay   time.Duration
	active  atomic.Int32
	overlap atomic.Bool
}

func (c *cpuSource) Domain() metrics.Domain { return metrics.DomainCPU }

func (c *cpuSource) Collect(ctx context.Context, snap *metrics.Snapshot) error {
	if c.active.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.active.Add(-1)

	if c.delay > 0 {
		time.Sleep(c.delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return errors.Unavailable("cpu", fmt.Errorf("busy"))
	}
	snap.CPU = metrics.CPUMetrics{Percent: float64(c.calls * 10), PerCore: []float64{10, 90}}
	return nil
}

func (c *cpuSource) setFail(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = v
}

func (c *cpuSource) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func memSource() metrics.Source {
	return metrics.SourceFunc{D: metrics.DomainMemory, Fn: func(_ context.Context, snap *metrics.Snapshot) error {
		snap.Memory = metrics.MemoryMetrics{UsedBytes: 4, TotalBytes: 8}
		return nil
	}}
}

func TestClampInterval(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"below floor", 10 * time.Millisecond, MinInterval},
		{"at floor", MinInterval, MinInterval},
		{"default", DefaultInterval, DefaultInterval},
		{"above ceiling", time.Minute, MaxInterval},
		{"negative", -time.Second, MinInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampInterval(tt.in))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(Options{})

	assert.Equal(t, DefaultInterval, s.Interval())
	assert.Equal(t, metrics.BackendNone, s.Backend().Name())
	assert.NotNil(t, s.History())
	assert.Nil(t, s.Latest())
}

func TestSetInterval_Clamps(t *testing.T) {
	s := New(Options{Interval: 300 * time.Millisecond})

	for i := 0; i < 10; i++ {
		s.SetInterval(s.Interval() - IntervalStep)
	}
	assert.Equal(t, MinInterval, s.Interval())

	assert.Equal(t, MaxInterval, s.SetInterval(time.Hour))
}

func TestPoll_PublishesSnapshot(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := history.NewStore(5)
	s := New(Options{
		Sources: []metrics.Source{&cpuSource{}, memSource()},
		History: store,
		Now:     func() time.Time { return now },
	})

	snap := s.Poll(context.Background())

	require.NotNil(t, snap)
	assert.Same(t, snap, s.Latest())
	assert.Equal(t, 10.0, snap.CPU.Percent)
	assert.Equal(t, uint64(8), snap.Memory.TotalBytes)
	assert.Equal(t, metrics.BackendNone, snap.GPU.Backend)
	assert.Empty(t, snap.GPU.Devices)
	assert.Zero(t, snap.Stale)
	assert.Equal(t, []float64{10}, store.Values(history.SeriesCPU, 5))

	select {
	case got := <-s.Updates():
		assert.Same(t, snap, got)
	default:
		t.Fatal("expected a snapshot on the updates channel")
	}
}

func TestPoll_StaleCarry(t *testing.T) {
	src := &cpuSource{}
	log := logger.NewBufferLogger()
	s := New(Options{Sources: []metrics.Source{src, memSource()}, Logger: log})

	first := s.Poll(context.Background())
	require.False(t, first.Stale.Has(metrics.DomainCPU))

	src.setFail(true)
	second := s.Poll(context.Background())

	assert.True(t, second.Stale.Has(metrics.DomainCPU))
	assert.False(t, second.Stale.Has(metrics.DomainMemory))
	assert.Equal(t, first.CPU, second.CPU, "previous value substituted")
	assert.NotSame(t, first, second)
	assert.True(t, log.HasLevel("warn"))

	src.setFail(false)
	third := s.Poll(context.Background())
	assert.False(t, third.Stale.Has(metrics.DomainCPU))
	assert.True(t, log.HasLevel("info"))
}

func TestPoll_FirstTickFailure(t *testing.T) {
	src := &cpuSource{fail: true}
	s := New(Options{Sources: []metrics.Source{src}})

	snap := s.Poll(context.Background())
	assert.True(t, snap.Stale.Has(metrics.DomainCPU))
	assert.Zero(t, snap.CPU.Percent)
}

func TestPoll_Elapsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(Options{Now: func() time.Time { return now }})

	assert.Zero(t, s.Poll(context.Background()).Elapsed)
	now = now.Add(750 * time.Millisecond)
	assert.Equal(t, 750*time.Millisecond, s.Poll(context.Background()).Elapsed)
}

func TestPoll_AttachesGPUProcesses(t *testing.T) {
	procs := metrics.SourceFunc{D: metrics.DomainProcesses, Fn: func(_ context.Context, snap *metrics.Snapshot) error {
		snap.Processes = []metrics.Process{{PID: 10, Name: "python"}}
		return nil
	}}
	backend := &fakeGPU{}
	s := New(Options{Sources: []metrics.Source{procs}, GPU: backend})

	snap := s.Poll(context.Background())

	require.Len(t, snap.Processes, 1)
	used, ok := snap.Processes[0].GPUMemoryTotal()
	assert.True(t, ok)
	assert.Equal(t, uint64(2000), used)
}

func TestUpdates_LatestWins(t *testing.T) {
	s := New(Options{Sources: []metrics.Source{&cpuSource{}}})

	s.Poll(context.Background())
	s.Poll(context.Background())
	last := s.Poll(context.Background())

	got := <-s.Updates()
	assert.Same(t, last, got)
	select {
	case <-s.Updates():
		t.Fatal("only the newest snapshot should be buffered")
	default:
	}
}

func TestRun_NoOverlap(t *testing.T) {
	src := &cpuSource{delay: 30 * time.Millisecond}
	s := New(Options{Sources: []metrics.Source{src}, Interval: MinInterval})
	s.SetInterval(MinInterval)

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.False(t, src.overlap.Load(), "polls of the same source overlapped")
	assert.GreaterOrEqual(t, src.callCount(), 2)
}

func TestRun_NoCyclesAfterStop(t *testing.T) {
	src := &cpuSource{}
	s := New(Options{Sources: []metrics.Source{src}, Interval: MinInterval})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	require.Eventually(t, func() bool { return src.callCount() >= 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	calls := src.callCount()
	time.Sleep(3 * MinInterval)
	assert.Equal(t, calls, src.callCount(), "no poll after stop")
}

func TestRun_CancelledContext(t *testing.T) {
	src := &cpuSource{}
	s := New(Options{Sources: []metrics.Source{src}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.Zero(t, src.callCount())
}

func TestRun_AlreadyRunning(t *testing.T) {
	s := New(Options{Interval: MinInterval})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = s.Run(ctx) }()
	require.Eventually(t, func() bool { return s.Latest() != nil }, time.Second, 5*time.Millisecond)

	assert.Error(t, s.Run(ctx))
}

func TestSetInterval_DoesNotShortenArmedTimer(t *testing.T) {
	src := &cpuSource{}
	s := New(Options{Sources: []metrics.Source{src}, Interval: MaxInterval})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Latest() != nil }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	s.SetInterval(MinInterval)

	time.Sleep(5 * MinInterval)
	assert.Equal(t, 1, src.callCount(), "armed timer keeps its deadline")
}

// fakeGPU reports one device and one process.
type fakeGPU struct{}

func (fakeGPU) Domain() metrics.Domain { return metrics.DomainGPU }
func (fakeGPU) Name() string           { return metrics.BackendNVML }
func (fakeGPU) Available() bool        { return true }
func (fakeGPU) Close() error           { return nil }

func (fakeGPU) Collect(_ context.Context, snap *metrics.Snapshot) error {
	snap.GPU = metrics.GPUInfo{
		Backend: metrics.BackendNVML,
		Devices: []metrics.GPUDevice{{
			Index: 0, Name: "RTX", Supported: metrics.GPUUtilization | metrics.GPUMemory,
			UtilizationPercent: 50, MemoryUsedBytes: 2000, MemoryTotalBytes: 8000,
		}},
		Processes: []metrics.GPUProcess{{PID: 10, GPUIndex: 0, UsedMemory: 2000, Type: metrics.GPUProcessCompute}},
	}
	return nil
}

var _ gpu.Backend = fakeGPU{}
