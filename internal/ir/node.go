package ir

// Node is a single arena cell.
//
// A node is either a group header (Sid == SidSelf and Gid == its own index
// while the group is live), a terminal (the constant or an entry point), or
// a member of a group describing the group's function as the signature
// Sid applied to Slots.
//
// Gid may be stale after merges; it must be chased to its fixpoint before
// use. Prev/Next form the intra-group circular list. A member whose Prev and
// Next are both zero is an orphan: it is no longer listed and its Gid
// forwards to the group that replaced it.
type Node struct {
	Gid   uint32
	Prev  uint32
	Next  uint32
	Sid   uint32
	Power uint32
	Slots [MaxSlots]uint32
}

// NodeKey is the hash-consing key of a member node.
type NodeKey struct {
	Sid   uint32
	Slots [MaxSlots]uint32
}

// Key returns the hash-consing key of n.
func (n *Node) Key() NodeKey {
	return NodeKey{Sid: n.Sid, Slots: n.Slots}
}

// NumSlots returns the number of used slots. Slots are packed from the
// front, so the count stops at the first unused (zero) slot.
func (n *Node) NumSlots() int {
	for i, s := range n.Slots {
		if s == 0 {
			return i
		}
	}
	return MaxSlots
}

// CompareSlots orders two slot vectors lexicographically.
// Returns -1, 0 or +1.
func CompareSlots(a, b *[MaxSlots]uint32) int {
	for i := 0; i < MaxSlots; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
