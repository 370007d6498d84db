// Package idgen mints time-ordered 64-bit record identifiers.
//
// Layout: 41 bits of milliseconds since 2024-01-01 UTC, 10 bits of node id
// and 12 bits of per-millisecond sequence.
package idgen

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fluxchat/consistency-sim/internal/model"
)

const (
	nodeBits     = 10
	sequenceBits = 12
	maxSequence  = 1<<sequenceBits - 1
	nodeShift    = sequenceBits
	timeShift    = sequenceBits + nodeBits
	epochMillis  = int64(1704067200000)
)

// MaxNodeID is the largest node id a generator accepts
const MaxNodeID = 1<<nodeBits - 1

// Epoch is the zero point of the timestamp field
var Epoch = time.UnixMilli(epochMillis).UTC()

// ErrInvalidNodeID is returned for a node id outside [0, MaxNodeID]
var ErrInvalidNodeID = errors.New("node id out of range")

// Snowflake generates strictly increasing ids. Safe for concurrent use.
type Snowflake struct {
	mu       sync.Mutex
	nodeID   int64
	lastMs   int64
	sequence int64
	now      func() time.Time
}

// NewSnowflake creates a generator for nodeID
func NewSnowflake(nodeID int) (*Snowflake, error) {
	if nodeID < 0 || nodeID > MaxNodeID {
		return nil, fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidNodeID, nodeID, MaxNodeID)
	}
	return &Snowflake{nodeID: int64(nodeID), lastMs: -1, now: time.Now}, nil
}

// NextID returns the next identifier. When the sequence is exhausted within
// one millisecond it waits for the clock to advance; a clock that moves
// backwards is treated as standing still.
func (s *Snowflake) NextID() model.RecordID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.millis()
	if ms < s.lastMs {
		ms = s.lastMs
	}

	if ms == s.lastMs {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			for ms <= s.lastMs {
				time.Sleep(100 * time.Microsecond)
				ms = s.millis()
			}
		}
	} else {
		s.sequence = 0
	}
	s.lastMs = ms

	return model.RecordID(ms<<timeShift | s.nodeID<<nodeShift | s.sequence)
}

func (s *Snowflake) millis() int64 {
	return s.now().UnixMilli() - epochMillis
}

// ExtractTimestamp returns the wall-clock time encoded in id
func ExtractTimestamp(id model.RecordID) time.Time {
	return time.UnixMilli(int64(id)>>timeShift + epochMillis).UTC()
}

// ExtractNodeID returns the node id encoded in id
func ExtractNodeID(id model.RecordID) int {
	return int(int64(id) >> nodeShift & MaxNodeID)
}

// ExtractSequence returns the sequence number encoded in id
func ExtractSequence(id model.RecordID) int {
	return int(int64(id) & maxSequence)
}
