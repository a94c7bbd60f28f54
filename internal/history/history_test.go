package history

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/nvglance/internal/metrics"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func tick(i int) time.Time {
	return epoch.Add(time.Duration(i) * time.Second)
}

func drain(v *View) []float64 {
	var out []float64
	for {
		s, ok := v.Next()
		if !ok {
			return out
		}
		out = append(out, s.Value)
	}
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"default size", 0, DefaultSize},
		{"negative size", -1, DefaultSize},
		{"custom size", 100, 100},
		{"small size", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.size)
			assert.Equal(t, tt.expected, s.Size())
			assert.Nil(t, s.Series(SeriesCPU))
		})
	}
}

func TestSeries_Overflow(t *testing.T) {
	s := NewSeries("cpu", 5)
	for i := 0; i < 8; i++ {
		s.Push(tick(i), float64(i))
	}

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 5, s.Cap())
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, s.Values(10))
}

func TestSeries_CapacityPlusOne(t *testing.T) {
	const capacity = 4
	s := NewSeries("cpu", capacity)
	for i := 0; i < capacity; i++ {
		s.Push(tick(i), float64(i))
	}
	require.Equal(t, capacity, s.Len())

	s.Push(tick(capacity), float64(capacity))

	assert.Equal(t, capacity, s.Len(), "length unchanged after capacity+1 inserts")
	values := drain(s.View())
	assert.NotContains(t, values, 0.0, "oldest entry is gone")
	assert.Equal(t, []float64{1, 2, 3, 4}, values)
}

func TestSeries_Values(t *testing.T) {
	s := NewSeries("cpu", 10)
	assert.Nil(t, s.Values(5), "empty series")

	for i := 0; i < 7; i++ {
		s.Push(tick(i), float64(i*10))
	}

	tests := []struct {
		name string
		n    int
		want []float64
	}{
		{"all", 10, []float64{0, 10, 20, 30, 40, 50, 60}},
		{"partial", 3, []float64{40, 50, 60}},
		{"zero", 0, nil},
		{"negative", -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Values(tt.n))
		})
	}
}

func TestSeries_Last(t *testing.T) {
	s := NewSeries("cpu", 3)
	_, ok := s.Last()
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		s.Push(tick(i), float64(i))
	}
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 4.0, last.Value)
	assert.Equal(t, tick(4), last.At)
}

func TestView_Chronological(t *testing.T) {
	s := NewSeries("cpu", 3)
	for i := 0; i < 5; i++ {
		s.Push(tick(i), float64(i))
	}

	v := s.View()
	assert.Equal(t, 3, v.Remaining())

	var stamps []time.Time
	for {
		sample, ok := v.Next()
		if !ok {
			break
		}
		stamps = append(stamps, sample.At)
	}
	assert.Equal(t, []time.Time{tick(2), tick(3), tick(4)}, stamps)
}

func TestView_NotRestartable(t *testing.T) {
	s := NewSeries("cpu", 3)
	s.Push(tick(0), 1)
	s.Push(tick(1), 2)

	v := s.View()
	assert.Equal(t, []float64{1, 2}, drain(v))
	assert.Empty(t, drain(v), "an exhausted view stays exhausted")

	assert.Equal(t, []float64{1, 2}, drain(s.View()), "a fresh view reads again")
}

func TestView_IgnoresLaterPushes(t *testing.T) {
	s := NewSeries("cpu", 10)
	s.Push(tick(0), 1)

	v := s.View()
	s.Push(tick(1), 2)

	assert.Equal(t, []float64{1}, drain(v))
}

func TestView_EndsWhenOverwritten(t *testing.T) {
	s := NewSeries("cpu", 2)
	s.Push(tick(0), 1)
	s.Push(tick(1), 2)

	v := s.View()
	s.Push(tick(2), 3)
	s.Push(tick(3), 4)

	_, ok := v.Next()
	assert.False(t, ok, "samples in the view were overwritten")
}

func TestStore_ViewUnknownSeries(t *testing.T) {
	s := NewStore(5)
	assert.Empty(t, drain(s.View("nope")))
	assert.Nil(t, s.Values("nope", 5))
	assert.Nil(t, s.Series("nope"))
}

func TestStore_PushSnapshot(t *testing.T) {
	s := NewStore(10)
	snap := &metrics.Snapshot{
		Timestamp: tick(0),
		CPU:       metrics.CPUMetrics{Percent: 50, PerCore: []float64{10, 90}},
		Memory:    metrics.MemoryMetrics{UsedBytes: 4, TotalBytes: 8},
		Network: []metrics.NetworkInterface{
			{Name: "eth0", RxPerSec: 2 * bytesPerMB, TxPerSec: bytesPerMB},
		},
		GPU: metrics.GPUInfo{
			Devices: []metrics.GPUDevice{
				{Index: 0, Supported: metrics.GPUUtilization | metrics.GPUMemory, UtilizationPercent: 50, MemoryUsedBytes: 2000, MemoryTotalBytes: 8000},
				{Index: 1, Supported: metrics.GPUMemory, MemoryUsedBytes: 1, MemoryTotalBytes: 4},
			},
		},
	}

	s.Push(snap)

	assert.Equal(t, []float64{50}, s.Values(SeriesCPU, 1))
	assert.Equal(t, []float64{10}, s.Values(CoreSeries(0), 1))
	assert.Equal(t, []float64{90}, s.Values(CoreSeries(1), 1))
	assert.Equal(t, []float64{50}, s.Values(SeriesMem, 1))
	assert.Equal(t, []float64{2}, s.Values(SeriesNetRx, 1))
	assert.Equal(t, []float64{1}, s.Values(SeriesNetTx, 1))
	assert.Equal(t, []float64{50}, s.Values(GPUUtilSeries(0), 1))
	assert.Equal(t, []float64{25}, s.Values(GPUMemSeries(0), 1))
	assert.Nil(t, s.Series(GPUUtilSeries(1)), "unsupported utilization is not recorded")
	assert.Equal(t, []float64{25}, s.Values(GPUMemSeries(1), 1))

	s.Push(nil)
	assert.Equal(t, 1, s.Series(SeriesCPU).Len())
}

func TestStore_SeriesShareCapacity(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 10; i++ {
		s.Push(&metrics.Snapshot{Timestamp: tick(i), CPU: metrics.CPUMetrics{Percent: float64(i)}})
	}

	for _, name := range []string{SeriesCPU, SeriesNetRx, SeriesNetTx} {
		series := s.Series(name)
		require.NotNil(t, series, name)
		assert.Equal(t, 3, series.Cap(), name)
		assert.LessOrEqual(t, series.Len(), 3, name)
	}
}

func TestStore_Concurrency(t *testing.T) {
	s := NewStore(10)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 200; j++ {
			s.Push(&metrics.Snapshot{Timestamp: tick(j), CPU: metrics.CPUMetrics{Percent: float64(j)}})
		}
	}()

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.Values(SeriesCPU, 10)
				drain(s.View(SeriesCPU))
				s.Series(SeriesNetRx)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 10, s.Series(SeriesCPU).Len())
}
