package engine

import (
	"fmt"

	"github.com/roach88/qtree/internal/ir"
)

// maxRestarts bounds how often the combination search restarts after a
// leg group was merged away.
const maxRestarts = 64

// triple is a classified "Q ? T : F" over chased group ids. T carries its
// own polarity; F is never inverted. inv is the polarity of the result.
type triple struct {
	form    ir.Form
	q, t, f uint32
	invT    bool
	inv     bool
}

// String renders the triple for diagnostics.
func (tr triple) String() string {
	t := fmt.Sprintf("%d", tr.t)
	if tr.invT {
		t = "~" + t
	}
	return fmt.Sprintf("%s(%d ? %s : %d)", tr.form, tr.q, t, tr.f)
}

// AddNormaliseNode builds "q ? t : f" and returns a reference to its fully
// reduced group.
//
// The result may be merged further by later calls; use Resolve before
// comparing references taken at different times.
func (t *Tree) AddNormaliseNode(q, tt, f ir.Ref) (ir.Ref, error) {
	for _, r := range [...]ir.Ref{q, tt, f} {
		if err := t.checkRef(r); err != nil {
			return 0, err
		}
	}

	seq := t.progress.Next()
	t.stats.Calls++

	r, err := t.addNormaliseNode(q, tt, f, 0, 1)
	if err != nil {
		return 0, err
	}
	r = t.Resolve(r)

	if t.progress.Due() {
		t.logger.Info("build progress",
			"calls", seq,
			"nodes", len(t.nodes),
			"merges", t.stats.Merges,
			"relocations", t.stats.Relocations,
		)
	}
	if t.paranoid {
		if err := t.Validate(true); err != nil {
			return 0, fmt.Errorf("after %s: %w", formatCall(q, tt, f), err)
		}
	}
	return r, nil
}

func formatCall(q, tt, f ir.Ref) string {
	return fmt.Sprintf("%s ? %s : %s", q, tt, f)
}

// checkRef rejects references outside the arena or to the sentinel.
func (t *Tree) checkRef(r ir.Ref) error {
	id := r.ID()
	if id == ir.ErrorID || id >= uint32(len(t.nodes)) {
		return &MalformedError{Pos: -1, Message: fmt.Sprintf("reference %s out of range", r)}
	}
	return nil
}

// classify applies the level-1 rewrites and the level-2 case table.
// When the triple reduces to an existing reference, folded is true and res
// holds it; no node is needed.
func (t *Tree) classify(q, tt, f ir.Ref) (tr triple, res ir.Ref, folded bool) {
	q, tt, f = t.Resolve(q), t.Resolve(tt), t.Resolve(f)

	// !Q ? T : F == Q ? F : T
	if q.Inverted() {
		q = q.Not()
		tt, f = f, tt
	}
	if q.ID() == ir.ZeroID {
		return tr, f, true
	}

	// Q ? Q : F == Q ? 1 : F and Q ? !Q : F == Q ? 0 : F
	if tt.ID() == q.ID() {
		if tt.Inverted() {
			tt = 0
		} else {
			tt = ir.IBIT
		}
	}
	// Q ? T : Q == Q ? T : 0 and Q ? T : !Q == Q ? T : 1
	if f.ID() == q.ID() {
		if f.Inverted() {
			f = ir.IBIT
		} else {
			f = 0
		}
	}
	if tt == f {
		return tr, f, true
	}

	// Q ? T : !F == !(Q ? !T : F)
	if f.Inverted() {
		tt = tt.Not()
		f = f.Not()
		tr.inv = true
	}

	switch {
	case tt == ir.IBIT:
		if f == 0 {
			return tr, ir.MakeRef(q.ID(), tr.inv), true
		}
		a, b := ordered(q.ID(), f.ID())
		tr.form, tr.q, tr.t, tr.invT, tr.f = ir.FormOR, a, ir.ZeroID, true, b

	case tt == 0:
		// Q ? 0 : F == F ? !Q : 0
		tr.form, tr.q, tr.t, tr.invT, tr.f = ir.FormGT, f.ID(), q.ID(), true, ir.ZeroID

	case tt.Inverted():
		switch {
		case f == 0:
			tr.form, tr.q, tr.t, tr.invT, tr.f = ir.FormGT, q.ID(), tt.ID(), true, ir.ZeroID
		case f.ID() == tt.ID():
			a, b := ordered(q.ID(), f.ID())
			tr.form, tr.q, tr.t, tr.invT, tr.f = ir.FormNE, a, b, true, b
		default:
			tr.form, tr.q, tr.t, tr.invT, tr.f = ir.FormQnTF, q.ID(), tt.ID(), true, f.ID()
		}

	default:
		if f == 0 {
			a, b := ordered(q.ID(), tt.ID())
			tr.form, tr.q, tr.t, tr.invT, tr.f = ir.FormAND, a, b, false, ir.ZeroID
		} else {
			tr.form, tr.q, tr.t, tr.invT, tr.f = ir.FormQTF, q.ID(), tt.ID(), false, f.ID()
		}
	}
	return tr, 0, false
}

func ordered(a, b uint32) (uint32, uint32) {
	if a > b {
		return b, a
	}
	return a, b
}

// addNormaliseNode is the Normalizer. gid, when non-zero, is the group the
// triple is known to equal; depth counts recursion from the top-level call.
func (t *Tree) addNormaliseNode(q, tt, f ir.Ref, gid uint32, depth int) (ir.Ref, error) {
	if gid != 0 {
		gid = t.chase(gid)
		if t.isTerminal(gid) {
			r, err := t.addNormaliseNode(q, tt, f, 0, depth)
			if err != nil {
				return 0, err
			}
			return t.mergeRef(gid, r)
		}
	}

	tr, res, folded := t.classify(q, tt, f)
	if folded {
		if gid != 0 {
			return t.mergeRef(gid, res)
		}
		return res, nil
	}

	base, ok := t.constructSlots(groupLeg(tr.q), groupLeg(tr.t), tr.invT, groupLeg(tr.f))
	if !ok {
		return 0, NewInconsistencyError(gid, 0, "oracle has no signature for %s", tr)
	}
	switch base.sid {
	case ir.SidZero:
		r := ir.MakeRef(ir.ZeroID, tr.inv)
		if gid != 0 {
			return t.mergeRef(gid, r)
		}
		return r, nil
	case ir.SidSelf:
		r := ir.MakeRef(base.slots[0], tr.inv)
		if gid != 0 {
			return t.mergeRef(gid, r)
		}
		return r, nil
	}

	if gid != 0 && tr.inv {
		return 0, NewInconsistencyError(gid, 0, "group proven equal to an inverted triple %s", tr)
	}

	key := ir.NodeKey{Sid: base.sid, Slots: base.slots}
	if id, hit := t.index[key]; hit {
		g := t.chase(id)
		if gid == 0 {
			return ir.MakeRef(g, tr.inv), nil
		}
		if g != gid {
			if err := t.mergeGroups(gid, g); err != nil {
				return 0, err
			}
		}
		return ir.MakeRef(t.chase(gid), false), nil
	}

	if gid == 0 {
		h, err := t.newHeader()
		if err != nil {
			return 0, err
		}
		gid = h
	}
	if !t.touches(base, gid) {
		if err := t.addMember(base, gid); err != nil {
			return 0, err
		}
	}

	if t.rewrite && depth < t.maxDepth {
		if err := t.search(tr, gid, depth); err != nil {
			return 0, err
		}
	}

	gid = t.chase(gid)
	if t.isLiveHeader(gid) {
		if _, err := t.scrubGroup(gid, depth); err != nil {
			return 0, err
		}
	}
	if depth == 1 {
		if err := t.updateGroups(); err != nil {
			return 0, err
		}
	}
	return ir.MakeRef(t.chase(gid), tr.inv), nil
}

// touches reports whether a resolved triple references group gid.
func (t *Tree) touches(res slotResult, gid uint32) bool {
	for i := 0; i < res.n; i++ {
		if t.chase(res.slots[i]) == gid {
			return true
		}
	}
	return false
}

// mergeRef records that group gid equals reference r and returns the
// surviving group.
func (t *Tree) mergeRef(gid uint32, r ir.Ref) (ir.Ref, error) {
	if r.Inverted() {
		return 0, NewInconsistencyError(gid, 0, "group proven equal to inverted reference %s", r)
	}
	if err := t.mergeGroups(gid, r.ID()); err != nil {
		return 0, err
	}
	return ir.MakeRef(t.chase(gid), false), nil
}

// addMember links a resolved triple into gid, merging when the node
// already lives in another group.
func (t *Tree) addMember(res slotResult, gid uint32) error {
	id, err := t.addToCollection(res.sid, res.slots, gid, res.power)
	if err != nil {
		return err
	}
	if g := t.chase(id); g != t.chase(gid) {
		return t.mergeGroups(gid, g)
	}
	return nil
}

// ============================================================================
// Combination search
// ============================================================================

// representatives lists the header (as an opaque endpoint) followed by the
// live members of group gid.
func (t *Tree) representatives(gid uint32) []uint32 {
	return append([]uint32{gid}, t.members(gid)...)
}

// search tries every combination of Q, T and F representatives against the
// oracle and files each success into gid.
func (t *Tree) search(tr triple, gid uint32, depth int) error {
	history := newTripleHistory()
	restarts := 0

restart:
	for {
		target := t.chase(gid)
		qg, tg, fg := t.chase(tr.q), t.chase(tr.t), t.chase(tr.f)
		if !t.isLiveHeader(target) || target == qg || target == tg || target == fg {
			return nil
		}
		if restarts > maxRestarts {
			t.logger.Debug("combination search restart limit reached", "group", target, "triple", tr.String())
			return nil
		}

		qs, ts, fs := t.representatives(qg), t.representatives(tg), t.representatives(fg)
		for _, qi := range qs {
			for _, ti := range ts {
				for _, fi := range fs {
					if history.WouldRepeat(qi, ti, fi) {
						continue
					}
					history.Record(qi, ti, fi)

					if err := t.tryCombination(qi, ti, tr.invT, fi, target, depth); err != nil {
						return err
					}
					if t.chase(target) != target || t.chase(qg) != qg || t.chase(tg) != tg || t.chase(fg) != fg {
						restarts++
						continue restart
					}
				}
			}
		}
		return nil
	}
}

// tryCombination resolves one representative combination and files the
// result into gid.
func (t *Tree) tryCombination(qi, ti uint32, invT bool, fi, gid uint32, depth int) error {
	if qi < t.nstart || t.isHeaderCell(qi) {
		if (ti < t.nstart || t.isHeaderCell(ti)) && (fi < t.nstart || t.isHeaderCell(fi)) {
			// The base triple; already filed.
			return nil
		}
	}

	lq, ok := t.legOf(qi)
	if !ok {
		return nil
	}
	lt, ok := t.legOf(ti)
	if !ok {
		return nil
	}
	lf, ok := t.legOf(fi)
	if !ok {
		return nil
	}

	res, ok := t.constructSlots(lq, lt, invT, lf)
	if !ok {
		return nil
	}

	switch res.sid {
	case ir.SidZero:
		return t.mergeGroups(gid, ir.ZeroID)
	case ir.SidSelf:
		if res.slots[0] == gid {
			return nil
		}
		return t.mergeGroups(gid, res.slots[0])
	}
	if t.touches(res, gid) {
		return nil
	}

	sig := t.oracle.Signature(res.sid)
	if sig == nil {
		return NewInconsistencyError(gid, 0, "oracle returned unknown signature %d", res.sid)
	}
	if sig.Size > 1 {
		if t.cascade {
			_, err := t.expandMember(res.sid, res.slots[:res.n], gid, depth+1)
			return err
		}
		if t.pure {
			return nil
		}
	}
	return t.addMember(res, gid)
}
