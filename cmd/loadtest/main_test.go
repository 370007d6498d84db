package main

import (
	"testing"

	"github.com/fluxchat/consistency-sim/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevels(t *testing.T) {
	levels, err := parseLevels("one, QUORUM,,all")
	require.NoError(t, err)
	assert.Equal(t, []model.ConsistencyLevel{model.ConsistencyOne, model.ConsistencyQuorum, model.ConsistencyAll}, levels)

	_, err = parseLevels("one,two")
	assert.ErrorIs(t, err, model.ErrInvalidConsistency)

	_, err = parseLevels(" , ")
	assert.ErrorIs(t, err, model.ErrInvalidConsistency)
}
