package ir

import "fmt"

// Ref is a reference to a node or group in a tree arena.
//
// The low 31 bits hold the arena index. The high bit (IBIT) is the polarity
// bit: when set, the reference denotes the inverted function of the
// referenced group.
type Ref uint32

// IBIT is the polarity bit of a Ref.
const IBIT Ref = 0x80000000

// Reserved arena indices.
const (
	// ZeroID is the constant false. It is always arena index 0.
	ZeroID uint32 = 0

	// ErrorID is the reserved "uninitialized" sentinel. It is never
	// dereferenced as a value.
	ErrorID uint32 = 1

	// KStart is the first entry point index.
	KStart uint32 = 2
)

// MaxSlots is the maximum number of operands a node can reference.
const MaxSlots = 9

// MakeRef builds a reference to id with the given polarity.
func MakeRef(id uint32, inverted bool) Ref {
	if inverted {
		return Ref(id) | IBIT
	}
	return Ref(id)
}

// ID returns the arena index without the polarity bit.
func (r Ref) ID() uint32 {
	return uint32(r &^ IBIT)
}

// Inverted reports whether the polarity bit is set.
func (r Ref) Inverted() bool {
	return r&IBIT != 0
}

// Not returns r with its polarity flipped.
func (r Ref) Not() Ref {
	return r ^ IBIT
}

// IsZero reports whether r denotes constant false (non-inverted index 0).
func (r Ref) IsZero() bool {
	return r == 0
}

// IsOne reports whether r denotes constant true (inverted index 0).
func (r Ref) IsOne() bool {
	return r == IBIT
}

// String renders r as "id" or "~id".
func (r Ref) String() string {
	if r.Inverted() {
		return fmt.Sprintf("~%d", r.ID())
	}
	return fmt.Sprintf("%d", r.ID())
}
