package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConsistencyLevel(t *testing.T) {
	tests := []struct {
		in   string
		want ConsistencyLevel
	}{
		{"one", ConsistencyOne},
		{"ONE", ConsistencyOne},
		{" Quorum ", ConsistencyQuorum},
		{"all", ConsistencyAll},
	}
	for _, tt := range tests {
		got, err := ParseConsistencyLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseConsistencyLevel("two")
	assert.ErrorIs(t, err, ErrInvalidConsistency)
}

func TestConsistencyLevel_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]ConsistencyLevel{"level": ConsistencyQuorum})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"QUORUM"}`, string(data))

	var decoded struct {
		Level ConsistencyLevel `json:"level"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"level":"all"}`), &decoded))
	assert.Equal(t, ConsistencyAll, decoded.Level)
}

func TestQuorumError(t *testing.T) {
	err := &QuorumError{Op: "write", Level: ConsistencyAll, Acked: 2, Required: 3}
	assert.Equal(t, "Timeout: only 2/3 acks", err.Error())
	assert.True(t, errors.Is(err, ErrQuorumTimeout))

	read := &QuorumError{Op: "read", Level: ConsistencyQuorum, Acked: 1, Required: 2}
	assert.Equal(t, "Timeout: only 1/2 responses", read.Error())

	one := &QuorumError{Op: "write", Level: ConsistencyOne, Required: 1}
	assert.Equal(t, "timeout waiting for any replica", one.Error())
}

func TestRecord_Versions(t *testing.T) {
	now := time.Now()
	a := Record{ID: 1, Content: "a", Timestamp: now}
	b := Record{ID: 2, Content: "b", Timestamp: now.Add(time.Millisecond)}

	assert.True(t, b.NewerThan(a))
	assert.False(t, a.NewerThan(b))
	assert.True(t, a.SameVersion(a))
	assert.False(t, a.SameVersion(b))

	tie := Record{ID: 3, Timestamp: now}
	assert.True(t, tie.NewerThan(a))
}

func TestParseRecordID(t *testing.T) {
	id, err := ParseRecordID("1234")
	require.NoError(t, err)
	assert.Equal(t, RecordID(1234), id)
	assert.Equal(t, "1234", id.String())

	_, err = ParseRecordID("abc")
	assert.Error(t, err)
}
