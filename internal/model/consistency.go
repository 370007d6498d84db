package model

import (
	"fmt"
	"strings"
)

// ConsistencyLevel is the caller-chosen acknowledgment policy
type ConsistencyLevel int

const (
	// ConsistencyOne resolves on the first replica response
	ConsistencyOne ConsistencyLevel = iota + 1
	// ConsistencyQuorum requires a majority of replicas
	ConsistencyQuorum
	// ConsistencyAll requires every replica
	ConsistencyAll
)

// Levels lists every supported consistency level in ascending strength
var Levels = []ConsistencyLevel{ConsistencyOne, ConsistencyQuorum, ConsistencyAll}

// String returns the canonical upper-case name
func (l ConsistencyLevel) String() string {
	switch l {
	case ConsistencyOne:
		return "ONE"
	case ConsistencyQuorum:
		return "QUORUM"
	case ConsistencyAll:
		return "ALL"
	default:
		return fmt.Sprintf("ConsistencyLevel(%d)", int(l))
	}
}

// Valid reports whether l is one of the known levels
func (l ConsistencyLevel) Valid() bool {
	return l >= ConsistencyOne && l <= ConsistencyAll
}

// ParseConsistencyLevel parses "one", "quorum" or "all" case-insensitively
func ParseConsistencyLevel(s string) (ConsistencyLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "one":
		return ConsistencyOne, nil
	case "quorum":
		return ConsistencyQuorum, nil
	case "all":
		return ConsistencyAll, nil
	default:
		return 0, fmt.Errorf("%w: %q (must be one of: one, quorum, all)", ErrInvalidConsistency, s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (l ConsistencyLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidConsistency, int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *ConsistencyLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseConsistencyLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
