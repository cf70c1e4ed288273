package notation

import (
	"fmt"
	"strings"

	"github.com/roach88/qtree/internal/ir"
)

// OpCode identifies the kind of an instruction.
type OpCode uint8

const (
	// OpZero pushes the constant false.
	OpZero OpCode = iota
	// OpEndpoint pushes an endpoint (placeholder or entry) by index.
	OpEndpoint
	// OpBackRef pushes the result of the Arg-th most recent operator.
	OpBackRef
	// OpOperator pops Form.Arity() operands and pushes the combined node.
	OpOperator
	// OpInvert flips the polarity of the top of stack.
	OpInvert
)

// Instr is one instruction of a parsed postfix program.
type Instr struct {
	Op   OpCode
	Arg  int     // endpoint index or back-reference distance
	Form ir.Form // operator shape, OpOperator only
	Pos  int     // byte offset in the source, for diagnostics
}

// Program is a parsed postfix expression.
//
// Endpoint arguments are already mapped through the transform side channel
// when the source carried one, so consumers only see real endpoint indices.
type Program struct {
	Instrs []Instr

	// Transform holds the endpoint index of every placeholder when the
	// source used the "pattern/transform" form, nil otherwise.
	Transform []int

	// NumEndpoints is one more than the largest endpoint index referenced.
	NumEndpoints int

	// NumNodes is the number of operator instructions.
	NumNodes int
}

// String disassembles the program, one instruction per line.
func (p *Program) String() string {
	var sb strings.Builder
	for i, in := range p.Instrs {
		fmt.Fprintf(&sb, "%3d ", i)
		switch in.Op {
		case OpZero:
			sb.WriteString("ZERO")
		case OpEndpoint:
			fmt.Fprintf(&sb, "ENDPOINT %d (%s)", in.Arg, EncodeEndpoint(in.Arg))
		case OpBackRef:
			fmt.Fprintf(&sb, "BACKREF %d", in.Arg)
		case OpOperator:
			fmt.Fprintf(&sb, "%s %c", in.Form, in.Form.Op())
		case OpInvert:
			sb.WriteString("INVERT")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
