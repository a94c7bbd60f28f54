package metrics

import (
	"sync"
	"time"
)

type counterSample struct {
	rx, tx uint64
}

// RateTracker turns cumulative interface counters into per-second rates
// using the previous sample of each interface.
type RateTracker struct {
	mu   sync.Mutex
	prev map[string]counterSample
	at   time.Time
}

// NewRateTracker creates an empty tracker.
func NewRateTracker() *RateTracker {
	return &RateTracker{prev: make(map[string]counterSample)}
}

// Apply fills RxPerSec and TxPerSec for each interface from the delta since
// the previous call and records the new counters. The first sample of an
// interface, a counter reset, or a non-positive elapsed time yields zero.
func (r *RateTracker) Apply(ifaces []NetworkInterface, now time.Time) []NetworkInterface {
	r.mu.Lock()
	defer r.mu.Unlock()

	secs := 0.0
	if !r.at.IsZero() {
		secs = now.Sub(r.at).Seconds()
	}

	next := make(map[string]counterSample, len(ifaces))
	out := make([]NetworkInterface, len(ifaces))
	for i, iface := range ifaces {
		out[i] = iface
		if prev, ok := r.prev[iface.Name]; ok {
			out[i].RxPerSec = ratePerSec(prev.rx, iface.RxBytes, secs)
			out[i].TxPerSec = ratePerSec(prev.tx, iface.TxBytes, secs)
		}
		next[iface.Name] = counterSample{rx: iface.RxBytes, tx: iface.TxBytes}
	}

	r.prev = next
	r.at = now
	return out
}

func ratePerSec(prev, cur uint64, secs float64) float64 {
	// Counter wraparound or reset
	if cur < prev || secs <= 0 {
		return 0
	}
	return float64(cur-prev) / secs
}
