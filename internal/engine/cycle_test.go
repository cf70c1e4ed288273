package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTripleHistory_FirstOccurrence(t *testing.T) {
	h := newTripleHistory()
	assert.False(t, h.WouldRepeat(10, 11, 12))
	assert.Equal(t, 0, h.Size())
}

func TestTripleHistory_RecordedTripleRepeats(t *testing.T) {
	h := newTripleHistory()
	h.Record(10, 11, 12)

	assert.True(t, h.WouldRepeat(10, 11, 12))
	assert.False(t, h.WouldRepeat(10, 12, 11), "leg order matters")
	assert.Equal(t, 1, h.Size())

	h.Record(10, 11, 12)
	assert.Equal(t, 1, h.Size(), "recording twice is a no-op")
}
