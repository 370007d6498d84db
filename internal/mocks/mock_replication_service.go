// Package mocks provides mock implementations for testing.
package mocks

import (
	"github.com/fluxchat/consistency-sim/internal/metrics"
	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/fluxchat/consistency-sim/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockReplicationService is a mock implementation of service.ReplicationService.
type MockReplicationService struct {
	mock.Mock
}

var _ service.ReplicationService = (*MockReplicationService)(nil)

// Write mocks a coordinated write.
func (m *MockReplicationService) Write(rec model.Record, level model.ConsistencyLevel) model.WriteOutcome {
	args := m.Called(rec, level)
	return args.Get(0).(model.WriteOutcome)
}

// Read mocks a coordinated read.
func (m *MockReplicationService) Read(id model.RecordID, level model.ConsistencyLevel) model.ReadOutcome {
	args := m.Called(id, level)
	return args.Get(0).(model.ReadOutcome)
}

// SetPartitioned mocks partition injection.
func (m *MockReplicationService) SetPartitioned(index int, partitioned bool) error {
	args := m.Called(index, partitioned)
	return args.Error(0)
}

// Replicas mocks the replica status listing.
func (m *MockReplicationService) Replicas() []model.ReplicaStatus {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.ReplicaStatus)
}

// MetricsSnapshot mocks the metrics snapshot.
func (m *MockReplicationService) MetricsSnapshot() metrics.Snapshot {
	args := m.Called()
	return args.Get(0).(metrics.Snapshot)
}

// ReplicationFactor mocks the replica count.
func (m *MockReplicationService) ReplicationFactor() int {
	args := m.Called()
	return args.Int(0)
}

// Consistency mocks the consistency service accessor.
func (m *MockReplicationService) Consistency() *service.ConsistencyService {
	args := m.Called()
	return args.Get(0).(*service.ConsistencyService)
}

// SequenceIDs hands out consecutive record ids starting at Next.
type SequenceIDs struct {
	Next model.RecordID
}

// NextID returns the next id in the sequence.
func (s *SequenceIDs) NextID() model.RecordID {
	id := s.Next
	s.Next++
	return id
}
