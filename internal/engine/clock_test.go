package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressClock_Next_Incrementing(t *testing.T) {
	c := newProgressClock(0)
	assert.Equal(t, int64(0), c.Current(), "new clock should start at 0")

	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(3), c.Next())
	assert.Equal(t, int64(3), c.Current())
}

func TestProgressClock_Due_DisabledWithoutInterval(t *testing.T) {
	c := newProgressClock(0)
	assert.False(t, c.Due())
}

func TestProgressClock_Due_RespectsInterval(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base

	c := newProgressClock(time.Second)
	c.now = func() time.Time { return now }
	c.last = base

	now = base.Add(500 * time.Millisecond)
	assert.False(t, c.Due(), "interval not elapsed")

	now = base.Add(time.Second)
	assert.True(t, c.Due(), "interval elapsed")

	now = base.Add(1500 * time.Millisecond)
	assert.False(t, c.Due(), "interval restarted on the last report")
}
