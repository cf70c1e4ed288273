package engine

import "github.com/roach88/qtree/internal/ir"

// leg is one operand of a triple as seen by the oracle: a signature and the
// groups feeding its placeholders.
type leg struct {
	sid   uint32
	n     int
	slots [ir.MaxSlots]uint32
}

// slotResult is a resolved triple: a signature with its canonical slots.
type slotResult struct {
	sid   uint32
	n     int
	slots [ir.MaxSlots]uint32
	power uint32
}

// groupLeg treats group gid as an opaque endpoint.
func groupLeg(gid uint32) leg {
	if gid == ir.ZeroID {
		return leg{sid: ir.SidZero}
	}
	l := leg{sid: ir.SidSelf, n: 1}
	l.slots[0] = gid
	return l
}

// memberLeg describes member id by its signature over chased slots.
// Members whose slots have collided since they were built are skipped.
func (t *Tree) memberLeg(id uint32) (leg, bool) {
	n := &t.nodes[id]
	sig := t.oracle.Signature(n.Sid)
	if sig == nil || sig.NumPlaceholder > ir.MaxSlots {
		return leg{}, false
	}
	l := leg{sid: n.Sid, n: sig.NumPlaceholder}
	for i := 0; i < l.n; i++ {
		c := t.chase(n.Slots[i])
		if c == ir.ZeroID {
			return leg{}, false
		}
		for j := 0; j < i; j++ {
			if l.slots[j] == c {
				return leg{}, false
			}
		}
		l.slots[i] = c
	}
	return l, true
}

// legOf describes representative id: the group itself for headers and
// terminals, its signature for members.
func (t *Tree) legOf(id uint32) (leg, bool) {
	if t.isTerminal(id) || t.isHeaderCell(id) {
		return groupLeg(t.chase(id)), true
	}
	return t.memberLeg(id)
}

// constructSlots resolves "q ? t : f" through the oracle.
//
// Q's placeholders take the first merged endpoint positions in order; T's
// and F's endpoints follow in first-seen order. More than ir.MaxSlots
// distinct endpoints, or a miss at either lookup stage, means no known
// encoding.
func (t *Tree) constructSlots(q, tl leg, invT bool, f leg) (slotResult, bool) {
	var merged [ir.MaxSlots]uint32
	n := 0
	for i := 0; i < q.n; i++ {
		merged[n] = q.slots[i]
		n++
	}

	place := func(gid uint32) (byte, bool) {
		for j := 0; j < n; j++ {
			if merged[j] == gid {
				return byte('a' + j), true
			}
		}
		if n == ir.MaxSlots {
			return 0, false
		}
		merged[n] = gid
		n++
		return byte('a' + n - 1), true
	}

	var tName, fName [ir.MaxSlots]byte
	for i := 0; i < tl.n; i++ {
		c, ok := place(tl.slots[i])
		if !ok {
			return slotResult{}, false
		}
		tName[i] = c
	}
	for i := 0; i < f.n; i++ {
		c, ok := place(f.slots[i])
		if !ok {
			return slotResult{}, false
		}
		fName[i] = c
	}

	tidT, ok := t.oracle.LookupFwdTransform(string(tName[:tl.n]))
	if !ok {
		return slotResult{}, false
	}
	tidF, ok := t.oracle.LookupFwdTransform(string(fName[:f.n]))
	if !ok {
		return slotResult{}, false
	}

	t.stats.Lookups++
	first, ok := t.oracle.LookupPatternFirst(q.sid, tl.sid, tidT, invT)
	if !ok {
		t.stats.Misses++
		return slotResult{}, false
	}
	res, ok := t.oracle.LookupPatternSecond(first, f.sid, tidF)
	if !ok {
		t.stats.Misses++
		return slotResult{}, false
	}

	extract := t.oracle.Transform(res.Extract)
	out := slotResult{sid: res.Sid, n: len(extract), power: res.Power}
	for i := 0; i < len(extract); i++ {
		pos := int(extract[i] - 'a')
		if pos >= n {
			return slotResult{}, false
		}
		out.slots[i] = merged[pos]
	}
	if sig := t.oracle.Signature(res.Sid); sig != nil {
		out.slots = applySwapRules(out.slots, out.n, sig.SwapRules)
	}
	return out, true
}

// applySwapRules returns the lexicographically smallest slot vector among
// slots and its images under the signature's swap rules.
func applySwapRules(slots [ir.MaxSlots]uint32, n int, rules [][]uint8) [ir.MaxSlots]uint32 {
	best := slots
	for _, p := range rules {
		if len(p) != n {
			continue
		}
		var cand [ir.MaxSlots]uint32
		for i := 0; i < n; i++ {
			cand[i] = slots[p[i]]
		}
		if ir.CompareSlots(&cand, &best) < 0 {
			best = cand
		}
	}
	return best
}
