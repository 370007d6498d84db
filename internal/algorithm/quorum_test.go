package algorithm

import (
	"testing"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredAcks_Bounds(t *testing.T) {
	q := NewQuorumCalculator()

	for rf := 1; rf <= 64; rf++ {
		for _, level := range model.Levels {
			got, err := q.RequiredAcks(level, rf)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, got, 1, "level=%s rf=%d", level, rf)
			assert.LessOrEqual(t, got, rf, "level=%s rf=%d", level, rf)
		}

		one, _ := q.RequiredAcks(model.ConsistencyOne, rf)
		quorum, _ := q.RequiredAcks(model.ConsistencyQuorum, rf)
		all, _ := q.RequiredAcks(model.ConsistencyAll, rf)

		assert.Equal(t, 1, one)
		assert.Equal(t, rf/2+1, quorum)
		assert.Equal(t, rf, all)
	}
}

func TestRequiredAcks_KnownValues(t *testing.T) {
	tests := []struct {
		rf     int
		quorum int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
	}

	for _, tt := range tests {
		got, err := RequiredAcks(model.ConsistencyQuorum, tt.rf)
		require.NoError(t, err)
		assert.Equal(t, tt.quorum, got, "rf=%d", tt.rf)
	}
}

func TestRequiredAcks_InvalidInput(t *testing.T) {
	t.Run("zero replication factor", func(t *testing.T) {
		_, err := RequiredAcks(model.ConsistencyOne, 0)
		assert.ErrorIs(t, err, model.ErrNoReplicas)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := RequiredAcks(model.ConsistencyLevel(42), 3)
		assert.ErrorIs(t, err, model.ErrInvalidConsistency)
	})
}

func TestIsSatisfied(t *testing.T) {
	q := NewQuorumCalculator()

	assert.True(t, q.IsSatisfied(model.ConsistencyQuorum, 2, 3))
	assert.False(t, q.IsSatisfied(model.ConsistencyAll, 2, 3))
	assert.True(t, q.IsSatisfied(model.ConsistencyOne, 1, 3))
	assert.False(t, q.IsSatisfied(model.ConsistencyLevel(0), 3, 3))
}
