package service

import (
	"github.com/fluxchat/consistency-sim/internal/algorithm"
	"github.com/fluxchat/consistency-sim/internal/model"
)

// ConsistencyService manages consistency levels and quorum calculations
type ConsistencyService struct {
	defaultLevel model.ConsistencyLevel
	quorum       *algorithm.QuorumCalculator
}

// NewConsistencyService creates a new consistency service
func NewConsistencyService(defaultLevel model.ConsistencyLevel) *ConsistencyService {
	if !defaultLevel.Valid() {
		defaultLevel = model.ConsistencyQuorum
	}
	return &ConsistencyService{
		defaultLevel: defaultLevel,
		quorum:       algorithm.NewQuorumCalculator(),
	}
}

// RequiredAcks returns the acknowledgment count for level over replicationFactor replicas
func (s *ConsistencyService) RequiredAcks(level model.ConsistencyLevel, replicationFactor int) (int, error) {
	return s.quorum.RequiredAcks(level, replicationFactor)
}

// DefaultLevel returns the level used when a caller does not name one
func (s *ConsistencyService) DefaultLevel() model.ConsistencyLevel {
	return s.defaultLevel
}

// NormalizeConsistencyLevel parses level, falling back to the default when empty
func (s *ConsistencyService) NormalizeConsistencyLevel(level string) (model.ConsistencyLevel, error) {
	if level == "" {
		return s.defaultLevel, nil
	}
	return model.ParseConsistencyLevel(level)
}

// IsQuorumReached checks if count responses satisfy level
func (s *ConsistencyService) IsQuorumReached(count, replicationFactor int, level model.ConsistencyLevel) bool {
	return s.quorum.IsSatisfied(level, count, replicationFactor)
}
