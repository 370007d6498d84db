package metrics

import (
	"encoding/json"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
)

// DefaultWindowSize is the number of latency samples kept per consistency level
const DefaultWindowSize = 1000

// LatencyStats summarizes one level's latency window
type LatencyStats struct {
	Count int
	Avg   time.Duration
	P50   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// MarshalJSON renders latencies as fractional milliseconds
func (s LatencyStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count int     `json:"count"`
		Avg   float64 `json:"avg"`
		P50   float64 `json:"p50"`
		P99   float64 `json:"p99"`
		Max   float64 `json:"max"`
	}{
		Count: s.Count,
		Avg:   model.Milliseconds(s.Avg),
		P50:   model.Milliseconds(s.P50),
		P99:   model.Milliseconds(s.P99),
		Max:   model.Milliseconds(s.Max),
	})
}

// Snapshot is an immutable view of LatencyMetrics
type Snapshot struct {
	OneStats     LatencyStats `json:"oneStats"`
	QuorumStats  LatencyStats `json:"quorumStats"`
	AllStats     LatencyStats `json:"allStats"`
	TotalWrites  int64        `json:"totalWrites"`
	FailedWrites int64        `json:"failedWrites"`
	StaleReads   int64        `json:"staleReads"`
	TotalReads   int64        `json:"totalReads"`
	FailedReads  int64        `json:"failedReads"`
}

// Stats returns the summary for a level
func (s Snapshot) Stats(level model.ConsistencyLevel) LatencyStats {
	switch level {
	case model.ConsistencyOne:
		return s.OneStats
	case model.ConsistencyQuorum:
		return s.QuorumStats
	case model.ConsistencyAll:
		return s.AllStats
	default:
		return LatencyStats{}
	}
}

// window is a fixed-capacity FIFO of latency samples
type window struct {
	samples []time.Duration
	next    int
	full    bool
}

func newWindow(capacity int) *window {
	return &window{samples: make([]time.Duration, capacity)}
}

func (w *window) add(d time.Duration) {
	w.samples[w.next] = d
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

func (w *window) len() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// values returns the samples oldest first
func (w *window) values() []time.Duration {
	if !w.full {
		return slices.Clone(w.samples[:w.next])
	}
	out := make([]time.Duration, 0, len(w.samples))
	out = append(out, w.samples[w.next:]...)
	return append(out, w.samples[:w.next]...)
}

// LatencyMetrics records per-level write latencies and outcome counters.
// All methods are safe for concurrent use.
type LatencyMetrics struct {
	mu      sync.Mutex
	windows map[model.ConsistencyLevel]*window

	totalWrites  atomic.Int64
	failedWrites atomic.Int64
	staleReads   atomic.Int64
	totalReads   atomic.Int64
	failedReads  atomic.Int64
}

// NewLatencyMetrics creates metrics with windowSize samples per level
func NewLatencyMetrics(windowSize int) *LatencyMetrics {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	m := &LatencyMetrics{windows: make(map[model.ConsistencyLevel]*window, len(model.Levels))}
	for _, level := range model.Levels {
		m.windows[level] = newWindow(windowSize)
	}
	return m
}

// RecordWrite counts a write and keeps its latency when it succeeded
func (m *LatencyMetrics) RecordWrite(level model.ConsistencyLevel, outcome model.WriteOutcome) {
	m.totalWrites.Add(1)

	if !outcome.Success {
		m.failedWrites.Add(1)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[level]; ok {
		w.add(outcome.Latency)
	}
}

// RecordRead counts a read and its failure
func (m *LatencyMetrics) RecordRead(_ model.ConsistencyLevel, outcome model.ReadOutcome) {
	m.totalReads.Add(1)
	if !outcome.Success {
		m.failedReads.Add(1)
	}
}

// RecordStaleRead counts a read that returned a possibly outdated value
func (m *LatencyMetrics) RecordStaleRead() {
	m.staleReads.Add(1)
}

// WindowLen returns the number of samples currently held for level
func (m *LatencyMetrics) WindowLen(level model.ConsistencyLevel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[level]; ok {
		return w.len()
	}
	return 0
}

// Window returns a copy of level's samples, oldest first
func (m *LatencyMetrics) Window(level model.ConsistencyLevel) []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[level]; ok {
		return w.values()
	}
	return nil
}

// Snapshot computes summaries over the current windows without mutating them
func (m *LatencyMetrics) Snapshot() Snapshot {
	m.mu.Lock()
	one := m.windows[model.ConsistencyOne].values()
	quorum := m.windows[model.ConsistencyQuorum].values()
	all := m.windows[model.ConsistencyAll].values()
	m.mu.Unlock()

	return Snapshot{
		OneStats:     calculateStats(one),
		QuorumStats:  calculateStats(quorum),
		AllStats:     calculateStats(all),
		TotalWrites:  m.totalWrites.Load(),
		FailedWrites: m.failedWrites.Load(),
		StaleReads:   m.staleReads.Load(),
		TotalReads:   m.totalReads.Load(),
		FailedReads:  m.failedReads.Load(),
	}
}

// calculateStats sorts samples in place and picks percentiles by index
func calculateStats(samples []time.Duration) LatencyStats {
	n := len(samples)
	if n == 0 {
		return LatencyStats{}
	}
	slices.Sort(samples)

	var sum time.Duration
	for _, d := range samples {
		sum += d
	}

	return LatencyStats{
		Count: n,
		Avg:   sum / time.Duration(n),
		P50:   samples[n/2],
		P99:   samples[min(int(float64(n)*0.99), n-1)],
		Max:   samples[n-1],
	}
}
