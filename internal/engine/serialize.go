package engine

import (
	"errors"
	"strings"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// stringWriter renders groups as postfix notation.
type stringWriter struct {
	tree          *Tree
	withTransform bool
	sb            strings.Builder

	numOps     int
	opIndex    map[uint32]int // group -> operator number of its result
	inProgress map[uint32]bool

	placeholder map[uint32]int // entry -> placeholder, transform mode
	entries     []uint32
}

// SaveString renders r in postfix notation.
//
// Entries render as placeholders; an interior group renders as its first
// member's signature pattern with every slot rendered in turn, and as a
// back-reference when it was already rendered. withTransform renames
// entries to placeholders in first-seen order and appends the real entries
// after a "/".
func (t *Tree) SaveString(r ir.Ref, withTransform bool) (string, error) {
	if err := t.checkRef(r); err != nil {
		return "", err
	}
	w := &stringWriter{
		tree:          t,
		withTransform: withTransform,
		opIndex:       make(map[uint32]int),
		inProgress:    make(map[uint32]bool),
		placeholder:   make(map[uint32]int),
	}
	if err := w.render(t.chase(r.ID())); err != nil {
		return "", err
	}
	if r.Inverted() {
		w.sb.WriteByte('~')
	}
	if withTransform && len(w.entries) > 0 {
		w.sb.WriteByte('/')
		for _, e := range w.entries {
			w.sb.WriteString(notation.EncodeEndpoint(int(e - ir.KStart)))
		}
	}
	return w.sb.String(), nil
}

func (w *stringWriter) render(gid uint32) error {
	t := w.tree
	switch {
	case gid == ir.ZeroID:
		w.sb.WriteByte('0')
		return nil
	case gid == ir.ErrorID:
		return NewInconsistencyError(0, 0, "sentinel reached while rendering")
	case t.isTerminal(gid):
		w.sb.WriteString(notation.EncodeEndpoint(w.endpoint(gid)))
		return nil
	}

	if n, ok := w.opIndex[gid]; ok {
		w.sb.WriteString(notation.EncodeBackRef(w.numOps - n + 1))
		return nil
	}
	if w.inProgress[gid] {
		return NewInconsistencyError(gid, 0, "group references itself")
	}
	ms := t.members(gid)
	if len(ms) == 0 {
		return NewInconsistencyError(gid, 0, "empty group")
	}
	w.inProgress[gid] = true
	defer delete(w.inProgress, gid)

	id := ms[0]
	node := t.nodes[id]
	prog, err := t.pattern(node.Sid)
	if err != nil {
		return err
	}

	var local []int
	for _, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			w.sb.WriteByte('0')
		case notation.OpEndpoint:
			if err := w.render(t.chase(node.Slots[in.Arg])); err != nil {
				return err
			}
		case notation.OpBackRef:
			w.sb.WriteString(notation.EncodeBackRef(w.numOps - local[len(local)-in.Arg] + 1))
		case notation.OpInvert:
			w.sb.WriteByte('~')
		case notation.OpOperator:
			w.sb.WriteByte(in.Form.Op())
			w.numOps++
			local = append(local, w.numOps)
		}
	}
	if prog.Instrs[len(prog.Instrs)-1].Op == notation.OpOperator {
		w.opIndex[gid] = w.numOps
	}
	return nil
}

// endpoint returns the placeholder number of entry gid.
func (w *stringWriter) endpoint(gid uint32) int {
	if !w.withTransform {
		return int(gid - ir.KStart)
	}
	if p, ok := w.placeholder[gid]; ok {
		return p
	}
	p := len(w.entries)
	w.placeholder[gid] = p
	w.entries = append(w.entries, gid)
	return p
}

// LoadStringSafe builds the expression s and returns its reference.
//
// s is parsed once into an instruction stream; every operator then goes
// through the Normalizer as a top-level call. Malformed text and endpoints
// beyond the tree's entries are rejected before anything is built.
func (t *Tree) LoadStringSafe(s string) (ir.Ref, error) {
	prog, err := notation.Parse(s)
	if err != nil {
		var se *notation.SyntaxError
		if errors.As(err, &se) {
			return 0, &MalformedError{Pos: se.Pos, Message: se.Message, Err: err}
		}
		return 0, &MalformedError{Pos: -1, Message: err.Error(), Err: err}
	}
	for _, in := range prog.Instrs {
		if in.Op == notation.OpEndpoint && in.Arg >= t.NumEntries() {
			return 0, NewMalformedError(in.Pos, "endpoint %s beyond %d entries", notation.EncodeEndpoint(in.Arg), t.NumEntries())
		}
	}

	stack := make([]ir.Ref, 0, 16)
	results := make([]ir.Ref, 0, prog.NumNodes)
	for _, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			stack = append(stack, 0)
		case notation.OpEndpoint:
			stack = append(stack, ir.MakeRef(ir.KStart+uint32(in.Arg), false))
		case notation.OpBackRef:
			stack = append(stack, results[len(results)-in.Arg])
		case notation.OpInvert:
			stack[len(stack)-1] = stack[len(stack)-1].Not()
		case notation.OpOperator:
			n := in.Form.Arity()
			q, tt, f := formTriple(in.Form, stack[len(stack)-n:])
			r, err := t.AddNormaliseNode(q, tt, f)
			if err != nil {
				return 0, err
			}
			stack = append(stack[:len(stack)-n], r)
			results = append(results, r)
		}
	}
	return t.Resolve(stack[0]), nil
}
