package replica

import (
	"context"
	"testing"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(1, Config{Sleeper: NoopSleeper{}})
}

func TestStore_WriteThenRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := model.NewRecord(100, "channel-1", "user-1", "hello")

	wr, err := s.Write(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, wr.ReplicaID)

	rr, err := s.Read(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, rr.Record)
	assert.True(t, rec.SameVersion(*rr.Record))
	assert.Equal(t, 1, s.Len())
}

func TestStore_ReadMissing(t *testing.T) {
	s := newTestStore(t)

	rr, err := s.Read(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, rr.Record)
}

func TestStore_IdempotentRewrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := model.NewRecord(7, "channel-1", "user-1", "same content")

	_, err := s.Write(ctx, rec)
	require.NoError(t, err)
	_, err = s.Write(ctx, rec)
	require.NoError(t, err)

	stored, ok := s.Get(rec.ID)
	require.True(t, ok)
	assert.True(t, rec.SameVersion(stored))
	assert.Equal(t, 1, s.Len())
}

func TestStore_Partitioned(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.SetPartitioned(true)
	assert.True(t, s.IsPartitioned())

	wr, err := s.Write(ctx, model.NewRecord(1, "c", "a", "x"))
	assert.ErrorIs(t, err, model.ErrReplicaUnreachable)
	assert.Zero(t, wr.Latency)
	assert.Equal(t, 0, s.Len())

	_, err = s.Read(ctx, 1)
	assert.ErrorIs(t, err, model.ErrReplicaUnreachable)

	s.SetPartitioned(false)
	_, err = s.Write(ctx, model.NewRecord(1, "c", "a", "x"))
	assert.NoError(t, err)
}

func TestStore_SimulatedLatency(t *testing.T) {
	var slept []time.Duration
	s := NewStore(2, Config{
		BaseLatency: 5 * time.Millisecond,
		Jitter:      10 * time.Millisecond,
		Sleeper: SleeperFunc(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	})

	for i := range 50 {
		_, err := s.Write(context.Background(), model.NewRecord(model.RecordID(i), "c", "a", "x"))
		require.NoError(t, err)
	}

	require.Len(t, slept, 50)
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.Less(t, d, 15*time.Millisecond)
	}

	s.SetBaseLatency(20 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, s.BaseLatency())
}

func TestStore_CanceledContext(t *testing.T) {
	s := NewStore(3, Config{BaseLatency: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Write(ctx, model.NewRecord(1, "c", "a", "x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len())
}

func TestNewStores(t *testing.T) {
	stores, err := NewStores(3, Config{Sleeper: NoopSleeper{}})
	require.NoError(t, err)
	require.Len(t, stores, 3)
	for i, s := range stores {
		assert.Equal(t, i+1, s.ID())
	}

	_, err = NewStores(0, Config{})
	assert.ErrorIs(t, err, model.ErrNoReplicas)
}
