package engine

import (
	"fmt"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// Evaluation holds the bit-parallel value of every arena cell: bit i of a
// word is the cell's value under the i-th of 64 input assignments.
type Evaluation struct {
	tree   *Tree
	values []uint64
}

// Evaluate computes every group over 64 input assignments at once.
//
// inputs[i] is the word of entry i. Groups are visited in ascending order,
// so the tree must be free of forward references. Every member of a group
// is evaluated, and members that disagree are reported as an
// InconsistencyError.
func (t *Tree) Evaluate(inputs []uint64) (*Evaluation, error) {
	if len(inputs) != t.NumEntries() {
		return nil, fmt.Errorf("evaluate: %d input words for %d entries", len(inputs), t.NumEntries())
	}

	values := make([]uint64, len(t.nodes))
	copy(values[ir.KStart:], inputs)

	for g := t.nstart; g < uint32(len(t.nodes)); g++ {
		if !t.isLiveHeader(g) {
			continue
		}
		first := true
		for _, id := range t.members(g) {
			v, err := t.evalMember(id, g, values)
			if err != nil {
				return nil, err
			}
			if first {
				values[g] = v
				first = false
				continue
			}
			if v != values[g] {
				return nil, &InconsistencyError{
					Group:   g,
					Node:    id,
					Message: "members disagree",
					Details: map[string]string{"want": fmt.Sprintf("%#x", values[g]), "got": fmt.Sprintf("%#x", v)},
				}
			}
		}
	}
	return &Evaluation{tree: t, values: values}, nil
}

// evalMember runs the member's signature pattern over its slot values.
func (t *Tree) evalMember(id, g uint32, values []uint64) (uint64, error) {
	node := &t.nodes[id]
	prog, err := t.pattern(node.Sid)
	if err != nil {
		return 0, err
	}

	stack := make([]uint64, 0, 8)
	results := make([]uint64, 0, prog.NumNodes)
	for _, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			stack = append(stack, 0)
		case notation.OpEndpoint:
			c := t.chase(node.Slots[in.Arg])
			if c >= g {
				return 0, NewInconsistencyError(g, id, "slot %d not evaluated yet (group %d)", in.Arg, c)
			}
			stack = append(stack, values[c])
		case notation.OpBackRef:
			stack = append(stack, results[len(results)-in.Arg])
		case notation.OpInvert:
			stack[len(stack)-1] = ^stack[len(stack)-1]
		case notation.OpOperator:
			n := in.Form.Arity()
			v := applyWord(in.Form, stack[len(stack)-n:])
			stack = append(stack[:len(stack)-n], v)
			results = append(results, v)
		}
	}
	return stack[0], nil
}

// applyWord evaluates one operator over 64 assignments.
func applyWord(form ir.Form, ops []uint64) uint64 {
	switch form {
	case ir.FormOR:
		return ops[0] | ops[1]
	case ir.FormGT:
		return ops[0] &^ ops[1]
	case ir.FormNE:
		return ops[0] ^ ops[1]
	case ir.FormAND:
		return ops[0] & ops[1]
	case ir.FormQnTF:
		return ops[0]&^ops[1] | ^ops[0]&ops[2]
	case ir.FormQTF:
		return ops[0]&ops[1] | ^ops[0]&ops[2]
	}
	return 0
}

// Value returns the word of reference r, resolved to its current group.
func (e *Evaluation) Value(r ir.Ref) uint64 {
	v := e.values[e.tree.chase(r.ID())]
	if r.Inverted() {
		return ^v
	}
	return v
}

// ExhaustiveInputs returns the input words enumerating every assignment of
// n entries (n <= 6) in one word: bit x of word i is bit i of x.
func ExhaustiveInputs(n int) []uint64 {
	words := [6]uint64{
		0xAAAAAAAAAAAAAAAA,
		0xCCCCCCCCCCCCCCCC,
		0xF0F0F0F0F0F0F0F0,
		0xFF00FF00FF00FF00,
		0xFFFF0000FFFF0000,
		0xFFFFFFFF00000000,
	}
	if n > len(words) {
		n = len(words)
	}
	out := make([]uint64, n)
	copy(out, words[:n])
	return out
}

// EvalString evaluates postfix notation directly over input words, without
// a tree. Placeholder i reads inputs[i].
func EvalString(s string, inputs []uint64) (uint64, error) {
	prog, err := notation.Parse(s)
	if err != nil {
		return 0, &MalformedError{Pos: -1, Message: err.Error(), Err: err}
	}
	stack := make([]uint64, 0, 16)
	results := make([]uint64, 0, prog.NumNodes)
	for _, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			stack = append(stack, 0)
		case notation.OpEndpoint:
			if in.Arg >= len(inputs) {
				return 0, NewMalformedError(in.Pos, "endpoint %s has no input", notation.EncodeEndpoint(in.Arg))
			}
			stack = append(stack, inputs[in.Arg])
		case notation.OpBackRef:
			stack = append(stack, results[len(results)-in.Arg])
		case notation.OpInvert:
			stack[len(stack)-1] = ^stack[len(stack)-1]
		case notation.OpOperator:
			n := in.Form.Arity()
			v := applyWord(in.Form, stack[len(stack)-n:])
			stack = append(stack[:len(stack)-n], v)
			results = append(results, v)
		}
	}
	return stack[0], nil
}
