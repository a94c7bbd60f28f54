package history

import (
	"sync"
	"time"
)

// Sample is one timestamped value.
type Sample struct {
	At    time.Time
	Value float64
}

// Series is a fixed-size circular buffer of samples. The backing slice is
// allocated once; Push overwrites the oldest sample when full.
type Series struct {
	mu    sync.RWMutex
	name  string
	data  []Sample
	head  int
	count int
	// total counts every Push and identifies samples for views.
	total uint64
}

// NewSeries creates a series holding up to size samples.
func NewSeries(name string, size int) *Series {
	if size <= 0 {
		size = DefaultSize
	}
	return &Series{
		name: name,
		data: make([]Sample, size),
	}
}

// Name returns the series name.
func (s *Series) Name() string {
	return s.name
}

// Cap returns the fixed capacity.
func (s *Series) Cap() int {
	return len(s.data)
}

// Len returns the number of samples currently held.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Push appends a sample.
func (s *Series) Push(at time.Time, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[s.head] = Sample{At: at, Value: value}
	s.head = (s.head + 1) % len(s.data)
	if s.count < len(s.data) {
		s.count++
	}
	s.total++
}

// Values returns the last n values in chronological order (oldest first).
func (s *Series) Values(n int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || s.count == 0 {
		return nil
	}
	if n > s.count {
		n = s.count
	}

	size := len(s.data)
	out := make([]float64, n)
	// head is the next write position; the newest sample sits at head-1.
	start := (s.head - n + size) % size
	for i := 0; i < n; i++ {
		out[i] = s.data[(start+i)%size].Value
	}
	return out
}

// Last returns the newest sample.
func (s *Series) Last() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return Sample{}, false
	}
	return s.data[(s.head-1+len(s.data))%len(s.data)], true
}

// View returns a view over the samples held right now, oldest first.
// Samples pushed after View returns are not part of it.
func (s *Series) View() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &View{
		series: s,
		next:   s.total - uint64(s.count),
		end:    s.total,
	}
}

// at returns the sample with sequence number seq if it is still buffered.
func (s *Series) at(seq uint64) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := uint64(len(s.data))
	if seq >= s.total || s.total-seq > size {
		return Sample{}, false
	}
	return s.data[seq%size], true
}

// View iterates a series lazily. It is finite and single-use: once Next
// returns false it stays exhausted; ask the store for a new view to read
// again. If the writer overwrites a sample before the view reaches it, the
// view ends early rather than skipping ahead.
type View struct {
	series *Series
	next   uint64
	end    uint64
}

// Next returns the next sample, and false when the view is exhausted.
func (v *View) Next() (Sample, bool) {
	if v.series == nil || v.next >= v.end {
		return Sample{}, false
	}
	sample, ok := v.series.at(v.next)
	if !ok {
		v.next = v.end
		return Sample{}, false
	}
	v.next++
	return sample, true
}

// Remaining returns how many samples the view may still yield.
func (v *View) Remaining() int {
	if v.series == nil {
		return 0
	}
	return int(v.end - v.next)
}
