package engine

import (
	"fmt"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// pattern returns the parsed postfix pattern of signature sid.
func (t *Tree) pattern(sid uint32) (*notation.Program, error) {
	if p, ok := t.patterns[sid]; ok {
		return p, nil
	}
	sig := t.oracle.Signature(sid)
	if sig == nil || sid < ir.SidFirst {
		return nil, NewInconsistencyError(0, 0, "signature %d has no pattern", sid)
	}
	p, err := notation.Parse(sig.Name)
	if err != nil {
		return nil, fmt.Errorf("signature %d: %w", sid, err)
	}
	t.patterns[sid] = p
	return p, nil
}

// formTriple maps the operands of a postfix operator to Q, T and F.
func formTriple(form ir.Form, ops []ir.Ref) (q, tt, f ir.Ref) {
	switch form {
	case ir.FormOR:
		return ops[0], ir.IBIT, ops[1]
	case ir.FormGT:
		return ops[0], ops[1].Not(), 0
	case ir.FormNE:
		return ops[0], ops[1].Not(), ops[1]
	case ir.FormAND:
		return ops[0], ops[1], 0
	case ir.FormQnTF:
		return ops[0], ops[1].Not(), ops[2]
	default:
		return ops[0], ops[1], ops[2]
	}
}

// AddSignature builds signature sid over the given slot references and
// returns the resulting reference. Slots may carry the polarity bit.
func (t *Tree) AddSignature(sid uint32, slots []ir.Ref) (ir.Ref, error) {
	for _, r := range slots {
		if err := t.checkRef(r); err != nil {
			return 0, err
		}
	}
	t.stats.Calls++
	r, err := t.expandSignature(sid, slots, 1)
	if err != nil {
		return 0, err
	}
	if t.paranoid {
		if err := t.Validate(true); err != nil {
			return 0, fmt.Errorf("after signature %d: %w", sid, err)
		}
	}
	return t.Resolve(r), nil
}

// expandSignature builds every operator of the signature's pattern
// through the Normalizer without a target.
func (t *Tree) expandSignature(sid uint32, slots []ir.Ref, depth int) (ir.Ref, error) {
	prog, err := t.pattern(sid)
	if err != nil {
		return 0, err
	}
	if prog.NumEndpoints > len(slots) {
		return 0, NewMalformedError(-1, "signature %d needs %d slots, got %d", sid, prog.NumEndpoints, len(slots))
	}
	return t.buildPattern(prog, slots, 0, depth)
}

// expandMember is expandSignature for a known group: the outermost
// operator is built with gid as target, so the canonical decomposition of
// the signature lands in gid instead of a fresh group.
func (t *Tree) expandMember(sid uint32, slots []uint32, gid uint32, depth int) (ir.Ref, error) {
	prog, err := t.pattern(sid)
	if err != nil {
		return 0, err
	}
	if prog.NumEndpoints > len(slots) {
		return 0, NewMalformedError(-1, "signature %d needs %d slots, got %d", sid, prog.NumEndpoints, len(slots))
	}
	refs := make([]ir.Ref, len(slots))
	for i, s := range slots {
		refs[i] = ir.MakeRef(s, false)
	}

	r, err := t.buildPattern(prog, refs, gid, depth)
	if err != nil {
		return 0, err
	}
	if prog.Instrs[len(prog.Instrs)-1].Op != notation.OpOperator {
		// A pattern ending in an inversion cannot describe a group.
		return t.mergeRef(gid, r)
	}
	return r, nil
}

// buildPattern runs the pattern's operators through the Normalizer. The
// final operator is built with gid as target when gid is non-zero.
func (t *Tree) buildPattern(prog *notation.Program, slots []ir.Ref, gid uint32, depth int) (ir.Ref, error) {
	last := len(prog.Instrs) - 1
	stack := make([]ir.Ref, 0, 8)
	results := make([]ir.Ref, 0, prog.NumNodes)
	for i, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			stack = append(stack, 0)
		case notation.OpEndpoint:
			stack = append(stack, slots[in.Arg])
		case notation.OpBackRef:
			stack = append(stack, results[len(results)-in.Arg])
		case notation.OpInvert:
			stack[len(stack)-1] = stack[len(stack)-1].Not()
		case notation.OpOperator:
			n := in.Form.Arity()
			q, tt, f := formTriple(in.Form, stack[len(stack)-n:])
			target := uint32(0)
			if i == last {
				target = gid
			}
			r, err := t.addNormaliseNode(q, tt, f, target, depth)
			if err != nil {
				return 0, err
			}
			stack = append(stack[:len(stack)-n], r)
			results = append(results, r)
		}
	}
	return stack[0], nil
}
