package metrics

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func success(latency time.Duration) model.WriteOutcome {
	return model.WriteOutcome{Success: true, Latency: latency}
}

func TestLatencyMetrics_WindowFillsAndEvicts(t *testing.T) {
	m := NewLatencyMetrics(DefaultWindowSize)

	for i := 1; i <= DefaultWindowSize; i++ {
		m.RecordWrite(model.ConsistencyQuorum, success(time.Duration(i)*time.Millisecond))
	}
	assert.Equal(t, DefaultWindowSize, m.WindowLen(model.ConsistencyQuorum))

	m.RecordWrite(model.ConsistencyQuorum, success(5000*time.Millisecond))
	assert.Equal(t, DefaultWindowSize, m.WindowLen(model.ConsistencyQuorum))

	samples := m.Window(model.ConsistencyQuorum)
	require.Len(t, samples, DefaultWindowSize)
	assert.Equal(t, 2*time.Millisecond, samples[0], "oldest sample should be evicted first")
	assert.Equal(t, 5000*time.Millisecond, samples[len(samples)-1])
}

func TestLatencyMetrics_Counters(t *testing.T) {
	m := NewLatencyMetrics(10)

	m.RecordWrite(model.ConsistencyOne, success(time.Millisecond))
	m.RecordWrite(model.ConsistencyOne, model.WriteOutcome{Success: false, Latency: 100 * time.Millisecond})
	m.RecordWrite(model.ConsistencyAll, model.WriteOutcome{Success: false})
	m.RecordStaleRead()
	m.RecordRead(model.ConsistencyOne, model.ReadOutcome{Success: true})
	m.RecordRead(model.ConsistencyQuorum, model.ReadOutcome{Success: false})

	snap := m.Snapshot()
	assert.EqualValues(t, 3, snap.TotalWrites)
	assert.EqualValues(t, 2, snap.FailedWrites)
	assert.EqualValues(t, 1, snap.StaleReads)
	assert.EqualValues(t, 2, snap.TotalReads)
	assert.EqualValues(t, 1, snap.FailedReads)

	assert.Equal(t, 1, m.WindowLen(model.ConsistencyOne), "failed writes stay out of the window")
	assert.Equal(t, 0, m.WindowLen(model.ConsistencyAll))
}

func TestLatencyMetrics_Percentiles(t *testing.T) {
	m := NewLatencyMetrics(DefaultWindowSize)

	// Insert 1..100ms in reverse to make sure snapshot sorts a copy.
	for i := 100; i >= 1; i-- {
		m.RecordWrite(model.ConsistencyOne, success(time.Duration(i)*time.Millisecond))
	}

	stats := m.Snapshot().OneStats
	assert.Equal(t, 100, stats.Count)
	assert.Equal(t, 51*time.Millisecond, stats.P50)
	assert.Equal(t, 100*time.Millisecond, stats.P99)
	assert.Equal(t, 100*time.Millisecond, stats.Max)
	assert.Equal(t, 50500*time.Microsecond, stats.Avg)

	samples := m.Window(model.ConsistencyOne)
	assert.Equal(t, 100*time.Millisecond, samples[0], "snapshot must not reorder the window")
}

func TestLatencyMetrics_EmptySnapshot(t *testing.T) {
	snap := NewLatencyMetrics(0).Snapshot()
	assert.Equal(t, LatencyStats{}, snap.OneStats)
	assert.Equal(t, LatencyStats{}, snap.Stats(model.ConsistencyAll))
	assert.Zero(t, snap.TotalWrites)
}

func TestLatencyMetrics_ConcurrentRecording(t *testing.T) {
	m := NewLatencyMetrics(DefaultWindowSize)
	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := range 200 {
				level := model.Levels[(worker+j)%len(model.Levels)]
				m.RecordWrite(level, success(time.Duration(j)*time.Microsecond))
				_ = m.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.EqualValues(t, 1600, snap.TotalWrites)
	assert.Equal(t, 1600, snap.OneStats.Count+snap.QuorumStats.Count+snap.AllStats.Count)
}

func TestSnapshot_JSON(t *testing.T) {
	m := NewLatencyMetrics(10)
	m.RecordWrite(model.ConsistencyOne, success(1500*time.Microsecond))

	data, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	one := decoded["oneStats"].(map[string]any)
	assert.InDelta(t, 1.5, one["avg"], 0.0001)
	assert.EqualValues(t, 1, decoded["totalWrites"])
}
