package sigdb

import (
	"fmt"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// applyNarrow evaluates one operator over narrow tables.
func applyNarrow(form ir.Form, ops []uint32) uint32 {
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

// applyWide evaluates one operator over wide tables.
func applyWide(form ir.Form, ops []wide) wide {
	var zero wide
	switch form {
	case ir.FormOR:
		return qtf(ops[0], zero.not(), ops[1])
	case ir.FormGT:
		return qtf(ops[0], ops[1].not(), zero)
	case ir.FormNE:
		return qtf(ops[0], ops[1].not(), ops[1])
	case ir.FormAND:
		return qtf(ops[0], ops[1], zero)
	case ir.FormQnTF:
		return qtf(ops[0], ops[1].not(), ops[2])
	case ir.FormQTF:
		return qtf(ops[0], ops[1], ops[2])
	}
	return zero
}

// evalNarrow runs a signature pattern with placeholder i bound to vars[i].
func evalNarrow(prog *notation.Program, vars []uint32) (uint32, error) {
	var stack []uint32
	for _, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			stack = append(stack, 0)
		case notation.OpEndpoint:
			if in.Arg >= len(vars) {
				return 0, fmt.Errorf("placeholder %d out of range", in.Arg)
			}
			stack = append(stack, vars[in.Arg])
		case notation.OpOperator:
			n := in.Form.Arity()
			v := applyNarrow(in.Form, stack[len(stack)-n:])
			stack = append(stack[:len(stack)-n], v)
		case notation.OpInvert:
			stack[len(stack)-1] = ^stack[len(stack)-1]
		default:
			return 0, fmt.Errorf("unsupported instruction in signature pattern")
		}
	}
	return stack[0], nil
}

// evalWide runs a signature pattern with placeholder i bound to vars[i].
func evalWide(prog *notation.Program, vars []wide) wide {
	stack := make([]wide, 0, 8)
	for _, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			stack = append(stack, wide{})
		case notation.OpEndpoint:
			stack = append(stack, vars[in.Arg])
		case notation.OpOperator:
			n := in.Form.Arity()
			v := applyWide(in.Form, stack[len(stack)-n:])
			stack = append(stack[:len(stack)-n], v)
		case notation.OpInvert:
			stack[len(stack)-1] = stack[len(stack)-1].not()
		}
	}
	return stack[0]
}
