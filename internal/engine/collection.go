package engine

import (
	"github.com/roach88/qtree/internal/ir"
)

// markDirty lowers the repair watermark to gid.
func (t *Tree) markDirty(gid uint32) {
	if gid < t.nstart {
		gid = t.nstart
	}
	if t.dirty == 0 || gid < t.dirty {
		t.dirty = gid
	}
}

// findSid returns the live member of gid with signature sid, or 0.
func (t *Tree) findSid(gid, sid uint32) uint32 {
	for id := t.nodes[gid].Next; id != gid && id != 0; id = t.nodes[id].Next {
		if t.nodes[id].Sid == sid {
			return id
		}
	}
	return 0
}

// addToCollection files a node into group gid and returns its id.
//
// An existing node with the same key is returned unchanged, whichever group
// it lives in; the caller merges on mismatch. When gid is 0 a fresh group
// is allocated. A group keeps one member per signature: the one with the
// lexicographically smaller chased slots. The loser is orphaned.
func (t *Tree) addToCollection(sid uint32, slots [ir.MaxSlots]uint32, gid uint32, power uint32) (uint32, error) {
	key := ir.NodeKey{Sid: sid, Slots: slots}
	if id, ok := t.index[key]; ok {
		return id, nil
	}

	if gid == 0 {
		h, err := t.newHeader()
		if err != nil {
			return 0, err
		}
		gid = h
	}

	id, err := t.alloc(ir.Node{Sid: sid, Slots: slots, Power: power})
	if err != nil {
		return 0, err
	}
	t.index[key] = id

	forward := false
	for _, s := range slots {
		if s == 0 {
			break
		}
		c := t.chase(s)
		if c == gid {
			// Never list a self-reference; keep the key for lookups.
			t.nodes[id].Gid = gid
			return id, nil
		}
		if c > gid {
			forward = true
		}
	}
	if t.reaches(&slots, gid) {
		// A slot already depends on gid; listing the node would close a
		// cycle between groups.
		t.nodes[id].Gid = gid
		t.stats.Cyclic++
		return id, nil
	}

	if peer := t.findSid(gid, sid); peer != 0 {
		peerSlots := t.chasedSlots(peer)
		if ir.CompareSlots(&slots, &peerSlots) >= 0 {
			t.nodes[id].Gid = gid
			return id, nil
		}
		t.orphan(peer, gid)
	}

	t.link(id, gid)
	if forward {
		t.markDirty(gid)
	}
	return id, nil
}

// mergeGroups records that groups a and b compute the same function.
func (t *Tree) mergeGroups(a, b uint32) error {
	a, b = t.chase(a), t.chase(b)
	if a == b {
		return nil
	}
	switch {
	case t.isTerminal(a) && t.isTerminal(b):
		return NewInconsistencyError(0, 0, "distinct terminals %d and %d proven equal", a, b)
	case t.isTerminal(a):
		t.collapse(b, a)
		return nil
	case t.isTerminal(b):
		t.collapse(a, b)
		return nil
	}
	if a > b {
		return t.importGroup(a, b)
	}
	return t.importGroup(b, a)
}

// collapse folds interior group gid into a terminal forever.
func (t *Tree) collapse(gid, terminal uint32) {
	for _, id := range t.members(gid) {
		t.orphan(id, terminal)
	}
	t.nodes[gid].Gid = terminal
	t.nodes[gid].Prev = gid
	t.nodes[gid].Next = gid
	t.stats.Collapses++
	t.markDirty(gid)
}

// importGroup merges group older into group newer.
//
// Every group transitively referencing either one is flooded; members of
// both whose slots touch the flood would become cyclic and are orphaned.
// The remaining members of older fold into newer one at a time, keeping
// one member per signature. If nothing of newer survives the flood the
// roles invert and newer forwards to older.
func (t *Tree) importGroup(newer, older uint32) error {
	flood := t.acquireMarks()
	t.floodFill(flood, newer, older)

	var keepN, keepO, dropN, dropO []uint32
	for _, id := range t.members(newer) {
		if t.touchesFlood(flood, id) {
			dropN = append(dropN, id)
		} else {
			keepN = append(keepN, id)
		}
	}
	for _, id := range t.members(older) {
		if t.touchesFlood(flood, id) {
			dropO = append(dropO, id)
		} else {
			keepO = append(keepO, id)
		}
	}
	t.releaseMarks(flood)

	survivor, victim := newer, older
	dropS, keepV, dropV := dropN, keepO, dropO
	if len(keepN) == 0 {
		survivor, victim = older, newer
		dropS, keepV, dropV = dropO, keepN, dropN
		if len(keepO) == 0 {
			// Both sides only hold cyclic members. Keep the older ones so the
			// group stays described; repair sorts out what remains.
			dropS = nil
			t.stats.Anomalies++
			t.logger.Warn("merge left no acyclic member", "newer", newer, "older", older)
		}
	}

	for _, id := range dropS {
		t.orphan(id, survivor)
	}
	for _, id := range dropV {
		t.orphan(id, survivor)
	}

	t.nodes[victim].Gid = survivor
	for _, id := range keepV {
		t.unlink(id)
		t.foldMember(id, survivor)
	}
	t.nodes[victim].Prev = victim
	t.nodes[victim].Next = victim

	t.stats.Merges++
	if victim < survivor {
		t.markDirty(victim)
	} else {
		t.markDirty(survivor)
	}
	return nil
}

// foldMember links an unlinked node into gid under the one-member-per-
// signature rule.
func (t *Tree) foldMember(id, gid uint32) {
	slots := t.chasedSlots(id)
	if peer := t.findSid(gid, t.nodes[id].Sid); peer != 0 {
		peerSlots := t.chasedSlots(peer)
		if ir.CompareSlots(&slots, &peerSlots) >= 0 {
			t.nodes[id].Gid = gid
			t.stats.Orphaned++
			return
		}
		t.orphan(peer, gid)
	}
	t.relink(id, gid)
}

// relink moves an unlinked node into the list of gid.
func (t *Tree) relink(id, gid uint32) {
	last := t.nodes[gid].Prev
	t.nodes[id].Gid = gid
	t.nodes[id].Prev = last
	t.nodes[id].Next = gid
	t.nodes[last].Next = id
	t.nodes[gid].Prev = id
}

// reaches reports whether one of the slot groups depends on gid through
// the listed members of the groups below it.
func (t *Tree) reaches(slots *[ir.MaxSlots]uint32, gid uint32) bool {
	seen := t.acquireMarks()
	defer t.releaseMarks(seen)

	var stack []uint32
	push := func(s uint32) bool {
		c := t.chase(s)
		if c == gid {
			return true
		}
		if !t.isTerminal(c) && !seen.IsMarked(c) {
			seen.Mark(c)
			stack = append(stack, c)
		}
		return false
	}

	for _, s := range slots {
		if s == 0 {
			break
		}
		if push(s) {
			return true
		}
	}
	for len(stack) > 0 {
		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for id := t.nodes[g].Next; id != g && id != 0; id = t.nodes[id].Next {
			for _, s := range t.nodes[id].Slots {
				if s == 0 {
					break
				}
				if push(s) {
					return true
				}
			}
		}
	}
	return false
}

// floodFill marks the seeds and every live group that transitively
// references one of them.
func (t *Tree) floodFill(m *ir.VersionedMarks, seeds ...uint32) {
	referrers := make(map[uint32][]uint32)
	for g := t.nstart; g < uint32(len(t.nodes)); g++ {
		if !t.isLiveHeader(g) {
			continue
		}
		for _, id := range t.members(g) {
			n := &t.nodes[id]
			for _, s := range n.Slots {
				if s == 0 {
					break
				}
				c := t.chase(s)
				referrers[c] = append(referrers[c], g)
			}
		}
	}

	q := newGroupQueue()
	for _, s := range seeds {
		if !m.IsMarked(s) {
			m.Mark(s)
			q.Enqueue(s)
		}
	}
	for {
		g, ok := q.TryDequeue()
		if !ok {
			return
		}
		for _, r := range referrers[g] {
			if !m.IsMarked(r) {
				m.Mark(r)
				q.Enqueue(r)
			}
		}
	}
}

// touchesFlood reports whether member id references a flooded group.
func (t *Tree) touchesFlood(m *ir.VersionedMarks, id uint32) bool {
	for _, s := range t.nodes[id].Slots {
		if s == 0 {
			break
		}
		if m.IsMarked(t.chase(s)) {
			return true
		}
	}
	return false
}
