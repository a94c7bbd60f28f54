package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/nvglance/internal/metrics"
)

// DefaultSize is the default number of samples retained per series.
const DefaultSize = 60

// Well-known series names.
const (
	SeriesCPU   = "cpu"
	SeriesMem   = "mem"
	SeriesNetRx = "net.rx"
	SeriesNetTx = "net.tx"
)

const bytesPerMB = 1024 * 1024

// CoreSeries names the per-core CPU series.
func CoreSeries(core int) string { return fmt.Sprintf("cpu.core.%d", core) }

// GPUUtilSeries names the utilization series of one GPU.
func GPUUtilSeries(index int) string { return fmt.Sprintf("gpu.%d.util", index) }

// GPUMemSeries names the memory usage series of one GPU.
func GPUMemSeries(index int) string { return fmt.Sprintf("gpu.%d.mem", index) }

// Store holds one ring buffer per named series. Every series in a store
// shares the same capacity, fixed at construction.
type Store struct {
	mu     sync.RWMutex
	size   int
	series map[string]*Series
}

// NewStore creates a store whose series keep size samples each.
func NewStore(size int) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{
		size:   size,
		series: make(map[string]*Series),
	}
}

// Size returns the per-series capacity.
func (s *Store) Size() int {
	return s.size
}

// Push appends one sample from every graphable scalar in snap. GPU series
// only receive samples for fields the device supports.
func (s *Store) Push(snap *metrics.Snapshot) {
	if snap == nil {
		return
	}
	at := snap.Timestamp

	s.Append(SeriesCPU, at, snap.CPU.Percent)
	for i, pct := range snap.CPU.PerCore {
		s.Append(CoreSeries(i), at, pct)
	}
	if snap.Memory.TotalBytes > 0 {
		s.Append(SeriesMem, at, snap.Memory.Percent())
	}
	s.Append(SeriesNetRx, at, snap.TotalRxPerSec()/bytesPerMB)
	s.Append(SeriesNetTx, at, snap.TotalTxPerSec()/bytesPerMB)

	for _, d := range snap.GPU.Devices {
		if util, ok := d.Utilization(); ok {
			s.Append(GPUUtilSeries(d.Index), at, util)
		}
		if mem, ok := d.MemoryPercent(); ok {
			s.Append(GPUMemSeries(d.Index), at, mem)
		}
	}
}

// Append adds one sample to the named series, creating it on first use.
func (s *Store) Append(name string, at time.Time, value float64) {
	s.getOrCreate(name).Push(at, value)
}

// Series returns the named series, or nil if nothing was ever appended to it.
func (s *Store) Series(name string) *Series {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.series[name]
}

// View returns a chronological view over the named series. An unknown
// series yields an empty view.
func (s *Store) View(name string) *View {
	series := s.Series(name)
	if series == nil {
		return &View{}
	}
	return series.View()
}

// Values returns the last n values of the named series, oldest first.
func (s *Store) Values(name string, n int) []float64 {
	series := s.Series(name)
	if series == nil {
		return nil
	}
	return series.Values(n)
}

func (s *Store) getOrCreate(name string) *Series {
	s.mu.RLock()
	series, ok := s.series[name]
	s.mu.RUnlock()
	if ok {
		return series
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if series, ok = s.series[name]; !ok {
		series = NewSeries(name, s.size)
		s.series[name] = series
	}
	return series
}
