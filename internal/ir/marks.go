package ir

import "math"

// VersionedMarks is a reusable "marked this round" set over arena indices.
//
// An index is marked iff its stored version equals the current version.
// Bump starts a new round in O(1); only on counter wraparound is the
// backing array cleared. Version 0 is never current, so a zeroed array
// means "nothing marked".
type VersionedMarks struct {
	version uint32
	marks   []uint32
}

// NewVersionedMarks allocates a mark set able to hold n indices.
func NewVersionedMarks(n int) *VersionedMarks {
	return &VersionedMarks{version: 1, marks: make([]uint32, n)}
}

// Bump starts a new round: every index becomes unmarked.
func (m *VersionedMarks) Bump() {
	if m.version == math.MaxUint32 {
		clear(m.marks)
		m.version = 0
	}
	m.version++
}

// Grow makes sure indices below n can be marked.
func (m *VersionedMarks) Grow(n int) {
	if n <= len(m.marks) {
		return
	}
	grown := make([]uint32, n)
	copy(grown, m.marks)
	m.marks = grown
}

// Mark marks index i in the current round.
func (m *VersionedMarks) Mark(i uint32) {
	m.marks[i] = m.version
}

// Unmark removes index i from the current round.
func (m *VersionedMarks) Unmark(i uint32) {
	m.marks[i] = 0
}

// IsMarked reports whether index i is marked in the current round.
func (m *VersionedMarks) IsMarked(i uint32) bool {
	return int(i) < len(m.marks) && m.marks[i] == m.version
}

// Version returns the current round counter.
func (m *VersionedMarks) Version() uint32 {
	return m.version
}

// Len returns the capacity of the mark set.
func (m *VersionedMarks) Len() int {
	return len(m.marks)
}
