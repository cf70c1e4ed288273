package engine

import (
	"fmt"

	"github.com/roach88/qtree/internal/ir"
)

// Validate checks the arena invariants.
//
// Always checked: reserved cells, entry points, list integrity, member
// signatures, one member per signature, raw slots in range and never the
// sentinel, orphans forwarding somewhere valid. strict additionally
// requires what must hold after every top-level call: no empty live group,
// and every chased slot distinct, not constant, not the group itself and
// below the group.
func (t *Tree) Validate(strict bool) error {
	size := uint32(len(t.nodes))

	if n := t.nodes[ir.ZeroID]; n.Gid != ir.ZeroID || n.Sid != ir.SidZero {
		return NewInconsistencyError(0, 0, "constant cell corrupted")
	}
	if n := t.nodes[ir.ErrorID]; n.Gid != ir.ErrorID || n.Sid != ir.SidNone {
		return NewInconsistencyError(0, ir.ErrorID, "sentinel cell corrupted")
	}
	for i := ir.KStart; i < t.nstart; i++ {
		if n := t.nodes[i]; n.Gid != i || n.Sid != ir.SidSelf {
			return NewInconsistencyError(i, 0, "entry point %d corrupted", i)
		}
	}

	listed := t.acquireMarks()
	defer t.releaseMarks(listed)

	for g := t.nstart; g < size; g++ {
		if !t.isLiveHeader(g) {
			continue
		}
		if err := t.validateGroup(g, strict, listed); err != nil {
			return err
		}
	}

	for id := t.nstart; id < size; id++ {
		n := &t.nodes[id]
		if n.Sid == ir.SidSelf {
			if n.Gid >= size || n.Gid == ir.ErrorID {
				return NewInconsistencyError(id, 0, "header forwards out of range")
			}
			continue
		}
		if listed.IsMarked(id) {
			continue
		}
		if !t.isOrphan(id) {
			return NewInconsistencyError(n.Gid, id, "node is linked but not listed by its group")
		}
		if n.Gid >= size || n.Gid == ir.ErrorID {
			return NewInconsistencyError(0, id, "orphan forwards out of range")
		}
	}

	for _, r := range t.roots {
		if r.Ref.ID() >= size || r.Ref.ID() == ir.ErrorID {
			return NewInconsistencyError(0, 0, "root %q out of range", r.Name)
		}
	}
	return nil
}

func (t *Tree) validateGroup(g uint32, strict bool, listed *ir.VersionedMarks) error {
	size := uint32(len(t.nodes))
	seen := make(map[uint32]uint32)

	prev := g
	count := 0
	for id := t.nodes[g].Next; id != g; id = t.nodes[id].Next {
		if id == 0 || id >= size {
			return NewInconsistencyError(g, prev, "list runs out of the arena")
		}
		if count++; count > len(t.nodes) {
			return NewInconsistencyError(g, id, "list does not close")
		}
		n := &t.nodes[id]
		if n.Prev != prev {
			return NewInconsistencyError(g, id, "broken back link")
		}
		if n.Gid != g {
			return NewInconsistencyError(g, id, "member names group %d", n.Gid)
		}
		if n.Sid < ir.SidFirst {
			return NewInconsistencyError(g, id, "member has reserved signature %d", n.Sid)
		}
		sig := t.oracle.Signature(n.Sid)
		if sig == nil {
			return NewInconsistencyError(g, id, "unknown signature %d", n.Sid)
		}
		if other, dup := seen[n.Sid]; dup {
			return NewInconsistencyError(g, id, "duplicate signature %s (also node %d)", sig.Name, other)
		}
		seen[n.Sid] = id

		if err := t.validateSlots(g, id, sig, strict); err != nil {
			return err
		}
		listed.Mark(id)
		prev = id
	}
	if t.nodes[g].Prev != prev {
		return NewInconsistencyError(g, 0, "header back link broken")
	}
	if strict && count == 0 {
		return NewInconsistencyError(g, 0, "live group has no members")
	}
	return nil
}

func (t *Tree) validateSlots(g, id uint32, sig *ir.Signature, strict bool) error {
	size := uint32(len(t.nodes))
	n := &t.nodes[id]
	k := sig.NumPlaceholder

	for i := 0; i < ir.MaxSlots; i++ {
		s := n.Slots[i]
		if i >= k {
			if s != 0 {
				return NewInconsistencyError(g, id, "slot %d used beyond %d placeholders", i, k)
			}
			continue
		}
		if s == ir.ZeroID || s == ir.ErrorID || s >= size {
			return NewInconsistencyError(g, id, "slot %d holds invalid id %d", i, s)
		}
		if !strict {
			continue
		}

		c := t.chase(s)
		switch {
		case c == g:
			return NewInconsistencyError(g, id, "self-reference in slot %d", i)
		case c == ir.ZeroID:
			return NewInconsistencyError(g, id, "slot %d collapsed to constant", i)
		case c > g:
			return &InconsistencyError{
				Group:   g,
				Node:    id,
				Message: "forward reference",
				Details: map[string]string{"slot": fmt.Sprintf("%d", i), "target": fmt.Sprintf("%d", c)},
			}
		}
		for j := 0; j < i; j++ {
			if t.chase(n.Slots[j]) == c {
				return NewInconsistencyError(g, id, "slots %d and %d collide", j, i)
			}
		}
	}
	return nil
}
