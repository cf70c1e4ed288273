package engine

import (
	"fmt"

	"github.com/roach88/qtree/internal/ir"
)

// Record is one exported group: a signature over earlier ids. Entry ids
// keep their arena numbering; exported groups are numbered densely from
// NStart in ascending order.
type Record struct {
	Sid   uint32
	Slots [ir.MaxSlots]uint32
}

// Snapshot is the portable form of a tree.
type Snapshot struct {
	SidCRC  uint32
	Layout  Layout
	Names   []string // one per entry
	Records []Record
	Roots   []Root
}

// Export renders the groups reachable from the roots, or every live group
// when there are none, as a Snapshot. Each group is described by its first
// member.
func (t *Tree) Export() (*Snapshot, error) {
	if t.dirty != 0 {
		return nil, NewInconsistencyError(t.dirty, 0, "export of a tree with pending repair")
	}

	keep := t.acquireMarks()
	defer t.releaseMarks(keep)

	if len(t.roots) == 0 {
		for g := t.nstart; g < uint32(len(t.nodes)); g++ {
			if t.isLiveHeader(g) {
				keep.Mark(g)
			}
		}
	} else {
		for _, r := range t.roots {
			if err := t.markReachable(keep, t.chase(r.Ref.ID())); err != nil {
				return nil, err
			}
		}
	}

	snap := &Snapshot{
		SidCRC: t.oracle.Checksum(),
		Layout: Layout{
			NumKeys:     int(t.ostart - ir.KStart),
			NumOutputs:  int(t.estart - t.ostart),
			NumExtended: int(t.nstart - t.estart),
		},
		Names: append([]string(nil), t.names[ir.KStart:t.nstart]...),
	}

	renum := make(map[uint32]uint32)
	for g := t.nstart; g < uint32(len(t.nodes)); g++ {
		if !keep.IsMarked(g) {
			continue
		}
		ms := t.members(g)
		if len(ms) == 0 {
			return nil, NewInconsistencyError(g, 0, "empty group")
		}
		n := &t.nodes[ms[0]]
		rec := Record{Sid: n.Sid}
		for i, s := range n.Slots {
			if s == 0 {
				break
			}
			c := t.chase(s)
			if c >= t.nstart {
				m, ok := renum[c]
				if !ok {
					return nil, NewInconsistencyError(g, ms[0], "slot %d references unexported group %d", i, c)
				}
				c = m
			}
			rec.Slots[i] = c
		}
		renum[g] = t.nstart + uint32(len(snap.Records))
		snap.Records = append(snap.Records, rec)
	}

	for _, r := range t.roots {
		id := t.chase(r.Ref.ID())
		if id >= t.nstart {
			id = renum[id]
		}
		snap.Roots = append(snap.Roots, Root{Name: r.Name, Ref: ir.MakeRef(id, r.Ref.Inverted())})
	}
	return snap, nil
}

// markReachable marks gid and every group its first member depends on.
func (t *Tree) markReachable(m *ir.VersionedMarks, gid uint32) error {
	stack := []uint32{gid}
	for len(stack) > 0 {
		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g < t.nstart || m.IsMarked(g) {
			continue
		}
		ms := t.members(g)
		if len(ms) == 0 {
			return NewInconsistencyError(g, 0, "empty group")
		}
		m.Mark(g)
		for _, s := range t.nodes[ms[0]].Slots {
			if s == 0 {
				break
			}
			stack = append(stack, t.chase(s))
		}
	}
	return nil
}

// Import rebuilds a snapshot through the Normalizer of a fresh tree.
// Snapshots taken against a different oracle are rejected unless force is
// set.
func Import(oracle Oracle, snap *Snapshot, force bool, opts ...Option) (*Tree, error) {
	if snap.SidCRC != oracle.Checksum() && !force {
		return nil, fmt.Errorf("import: signature checksum %#x does not match oracle %#x", snap.SidCRC, oracle.Checksum())
	}
	t, err := New(oracle, snap.Layout, opts...)
	if err != nil {
		return nil, err
	}
	if len(snap.Names) != t.NumEntries() {
		return nil, NewMalformedError(-1, "%d names for %d entries", len(snap.Names), t.NumEntries())
	}
	copy(t.names[ir.KStart:], snap.Names)

	refs := make([]ir.Ref, t.nstart, int(t.nstart)+len(snap.Records))
	for i := range refs {
		refs[i] = ir.MakeRef(uint32(i), false)
	}
	for i, rec := range snap.Records {
		id := t.nstart + uint32(i)
		sig := oracle.Signature(rec.Sid)
		if sig == nil || rec.Sid < ir.SidFirst {
			return nil, NewMalformedError(-1, "record %d: unknown signature %d", id, rec.Sid)
		}
		slots := make([]ir.Ref, sig.NumPlaceholder)
		for j := range slots {
			s := rec.Slots[j]
			if s == ir.ZeroID || s == ir.ErrorID || s >= id {
				return nil, NewMalformedError(-1, "record %d: slot %d holds %d", id, j, s)
			}
			slots[j] = refs[s]
		}
		r, err := t.AddSignature(rec.Sid, slots)
		if err != nil {
			return nil, fmt.Errorf("import record %d: %w", id, err)
		}
		refs = append(refs, r)
	}

	for _, root := range snap.Roots {
		id := root.Ref.ID()
		if id == ir.ErrorID || int(id) >= len(refs) {
			return nil, NewMalformedError(-1, "root %q references %d", root.Name, id)
		}
		r := refs[id]
		if root.Ref.Inverted() {
			r = r.Not()
		}
		t.AddRoot(root.Name, r)
	}
	return t, nil
}
