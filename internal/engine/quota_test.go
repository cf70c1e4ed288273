package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelocationQuota_WithinLimit(t *testing.T) {
	q := newRelocationQuota(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Check())
	}
	assert.Equal(t, 3, q.Current())
}

func TestRelocationQuota_Exceeded(t *testing.T) {
	q := newRelocationQuota(1)
	require.NoError(t, q.Check())

	err := q.Check()
	require.Error(t, err)
	assert.True(t, IsPassesExceededError(err))
	assert.True(t, IsPassesExceededError(fmt.Errorf("repair: %w", err)))
	assert.Contains(t, err.Error(), "2 passes > 1 limit")
}
