package engine

import (
	"github.com/roach88/qtree/internal/ir"
)

// scrubGroup re-chases the members of gid and repairs what moved.
//
// Self-references are orphaned. Members whose slots collided are rebuilt
// through the Normalizer with gid as target; members whose slots only moved
// are re-keyed in place with their swap rules re-applied. Afterwards the
// group keeps one member per signature and drops weakly dominated members.
// fwd reports whether a survivor still references a later group.
func (t *Tree) scrubGroup(gid uint32, depth int) (fwd bool, err error) {
	for _, id := range t.members(gid) {
		if t.chase(gid) != gid {
			return false, nil
		}
		if t.isOrphan(id) || t.nodes[id].Gid != gid {
			continue
		}

		n := t.nodes[id]
		sig := t.oracle.Signature(n.Sid)
		if sig == nil {
			return false, NewInconsistencyError(gid, id, "member has unknown signature %d", n.Sid)
		}
		k := sig.NumPlaceholder
		chased := t.chasedSlots(id)

		self, collide, moved := false, false, false
		for i := 0; i < k; i++ {
			c := chased[i]
			switch {
			case c == gid:
				self = true
			case c == ir.ZeroID:
				collide = true
			}
			if c != n.Slots[i] {
				moved = true
			}
			for j := 0; j < i; j++ {
				if chased[j] == c {
					collide = true
				}
			}
		}

		switch {
		case self:
			t.orphan(id, gid)
		case collide:
			if err := t.rederive(id, chased, k, gid, depth); err != nil {
				return false, err
			}
		case moved:
			if err := t.rekey(id, chased, k, sig, gid); err != nil {
				return false, err
			}
		}
	}

	if t.chase(gid) != gid {
		return false, nil
	}
	t.dedupe(gid)
	t.prune(gid)

	for _, id := range t.members(gid) {
		for _, s := range t.nodes[id].Slots {
			if s == 0 {
				break
			}
			if t.chase(s) > gid {
				return true, nil
			}
		}
	}
	return false, nil
}

// rederive rebuilds a member whose slots collided. The old node is only
// dropped once the group holds another description or was merged away.
func (t *Tree) rederive(id uint32, chased [ir.MaxSlots]uint32, k int, gid uint32, depth int) error {
	if t.rederiving[id] {
		return nil
	}
	t.rederiving[id] = true
	defer delete(t.rederiving, id)

	if _, err := t.expandMember(t.nodes[id].Sid, chased[:k], gid, depth+1); err != nil {
		return err
	}
	g := t.chase(gid)
	if g != gid || len(t.members(gid)) > 1 {
		t.orphan(id, g)
	}
	return nil
}

// rekey rewrites a member in place over its chased slots.
func (t *Tree) rekey(id uint32, chased [ir.MaxSlots]uint32, k int, sig *ir.Signature, gid uint32) error {
	slots := applySwapRules(chased, k, sig.SwapRules)
	key := ir.NodeKey{Sid: t.nodes[id].Sid, Slots: slots}
	t.nodes[id].Slots = slots

	other, ok := t.index[key]
	if !ok {
		t.index[key] = id
		return nil
	}
	if other == id {
		return nil
	}
	if g := t.chase(other); g != gid {
		return t.mergeGroups(gid, g)
	}
	if !t.isOrphan(other) {
		// The same node is listed twice; keep the older copy.
		t.orphan(id, gid)
	}
	return nil
}

// dedupe keeps one member per signature, the one with the smallest slots.
func (t *Tree) dedupe(gid uint32) {
	best := make(map[uint32]uint32)
	for _, id := range t.members(gid) {
		sid := t.nodes[id].Sid
		cur, ok := best[sid]
		if !ok {
			best[sid] = id
			continue
		}
		a, b := t.chasedSlots(id), t.chasedSlots(cur)
		if ir.CompareSlots(&a, &b) < 0 {
			t.orphan(cur, gid)
			best[sid] = id
		} else {
			t.orphan(id, gid)
		}
	}
}

// prune drops members weakly dominated by a peer of the same size: the
// peer has at least the power and at most the placeholders, and is strictly
// better in one of the two.
func (t *Tree) prune(gid uint32) {
	ms := t.members(gid)
	if len(ms) < 2 {
		return
	}
	sigs := make([]*ir.Signature, len(ms))
	for i, id := range ms {
		sigs[i] = t.oracle.Signature(t.nodes[id].Sid)
	}

	dominated := make([]bool, len(ms))
	for i := range ms {
		for j := range ms {
			if i == j || sigs[i].Size != sigs[j].Size {
				continue
			}
			pi, pj := t.nodes[ms[i]].Power, t.nodes[ms[j]].Power
			ki, kj := sigs[i].NumPlaceholder, sigs[j].NumPlaceholder
			if pj >= pi && kj <= ki && (pj > pi || kj < ki) {
				dominated[i] = true
				break
			}
		}
	}
	for i, id := range ms {
		if dominated[i] {
			t.orphan(id, gid)
		}
	}
}

// ============================================================================
// Global repair
// ============================================================================

// updateGroups scrubs every group from the dirty watermark up and moves
// groups left with forward references to a fresh header past everything
// they reference. A pass stops at the arena end it started with; headers
// allocated by relocation are marked dirty and scrubbed by the next pass,
// so every pass is finite and the quota bounds the whole repair.
func (t *Tree) updateGroups() error {
	quota := newRelocationQuota(relocationBudget)
	for t.dirty != 0 {
		start := t.dirty
		t.dirty = 0

		end := uint32(len(t.nodes))
		for g := start; g < end; g++ {
			if !t.isLiveHeader(g) {
				continue
			}
			fwd, err := t.scrubGroup(g, 1)
			if err != nil {
				return err
			}
			if fwd && t.chase(g) == g {
				if err := t.relocate(g); err != nil {
					return err
				}
			}
		}

		if t.dirty == 0 {
			return nil
		}
		if err := quota.Check(); err != nil {
			t.stats.Anomalies++
			t.logger.Warn("group repair anomaly, discarding mutually forward members",
				"error", err,
				"from", t.dirty,
			)
			return t.discardForward()
		}
	}
	return nil
}

// relocate moves the members of gid to a freshly allocated header.
func (t *Tree) relocate(gid uint32) error {
	h, err := t.newHeader()
	if err != nil {
		return err
	}
	for _, id := range t.members(gid) {
		t.unlink(id)
		t.relink(id, h)
	}
	t.nodes[gid].Gid = h
	t.nodes[gid].Prev = gid
	t.nodes[gid].Next = gid
	t.stats.Relocations++
	t.markDirty(gid)
	return nil
}

// discardForward is the fallback repair: members still referencing a later
// group are dropped wherever the group keeps another member.
func (t *Tree) discardForward() error {
	t.dirty = 0
	for g := t.nstart; g < uint32(len(t.nodes)); g++ {
		if !t.isLiveHeader(g) {
			continue
		}
		var forward, backward []uint32
		for _, id := range t.members(g) {
			isFwd := false
			for _, s := range t.nodes[id].Slots {
				if s == 0 {
					break
				}
				if t.chase(s) > g {
					isFwd = true
					break
				}
			}
			if isFwd {
				forward = append(forward, id)
			} else {
				backward = append(backward, id)
			}
		}
		if len(forward) == 0 {
			continue
		}
		if len(backward) == 0 {
			return NewInconsistencyError(g, forward[0], "group only has forward references")
		}
		for _, id := range forward {
			t.orphan(id, g)
		}
	}
	return nil
}
