package algorithm

import (
	"fmt"

	"github.com/fluxchat/consistency-sim/internal/model"
)

// QuorumCalculator calculates acknowledgment requirements per consistency level
type QuorumCalculator struct{}

// NewQuorumCalculator creates a new quorum calculator
func NewQuorumCalculator() *QuorumCalculator {
	return &QuorumCalculator{}
}

// CalculateQuorum returns the majority size for the given replication factor
func (q *QuorumCalculator) CalculateQuorum(replicationFactor int) int {
	return (replicationFactor / 2) + 1
}

// RequiredAcks returns how many replicas must answer for the level to be satisfied
func (q *QuorumCalculator) RequiredAcks(level model.ConsistencyLevel, replicationFactor int) (int, error) {
	if replicationFactor < 1 {
		return 0, fmt.Errorf("%w: got %d", model.ErrNoReplicas, replicationFactor)
	}

	switch level {
	case model.ConsistencyOne:
		return 1, nil
	case model.ConsistencyQuorum:
		return q.CalculateQuorum(replicationFactor), nil
	case model.ConsistencyAll:
		return replicationFactor, nil
	default:
		return 0, fmt.Errorf("%w: %d", model.ErrInvalidConsistency, int(level))
	}
}

// IsSatisfied checks whether count acknowledgments satisfy the level
func (q *QuorumCalculator) IsSatisfied(level model.ConsistencyLevel, count, replicationFactor int) bool {
	required, err := q.RequiredAcks(level, replicationFactor)
	if err != nil {
		return false
	}
	return count >= required
}

// RequiredAcks is a convenience wrapper around QuorumCalculator.RequiredAcks
func RequiredAcks(level model.ConsistencyLevel, replicationFactor int) (int, error) {
	return NewQuorumCalculator().RequiredAcks(level, replicationFactor)
}
