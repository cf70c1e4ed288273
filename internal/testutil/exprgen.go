package testutil

import (
	"math/rand/v2"
	"strings"

	"github.com/roach88/qtree/internal/notation"
)

// ExprGenerator produces random well-formed postfix expressions.
//
// The same seed and key count always yield the same sequence of
// expressions.
type ExprGenerator struct {
	rng  *rand.Rand
	keys int
}

// NewExprGenerator creates a generator over keys endpoints (keys >= 1).
func NewExprGenerator(seed uint64, keys int) *ExprGenerator {
	if keys < 1 {
		keys = 1
	}
	return &ExprGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), keys: keys}
}

// Keys returns the number of endpoints expressions may reference.
func (g *ExprGenerator) Keys() int { return g.keys }

// Expr returns an expression with at least ops operators. Endpoints,
// the constant, inversions and back-references are mixed in.
func (g *ExprGenerator) Expr(ops int) string {
	var sb strings.Builder
	depth, emitted := 0, 0

	for sb.Len() == 0 || emitted < ops || depth > 1 {
		switch {
		case depth >= 3 && emitted < ops && g.rng.IntN(4) == 0:
			sb.WriteByte("?!"[g.rng.IntN(2)])
			depth -= 2
			emitted++
			g.maybeInvert(&sb)
		case depth >= 2 && (emitted >= ops || g.rng.IntN(2) == 0):
			sb.WriteByte("+>^&"[g.rng.IntN(4)])
			depth--
			emitted++
			g.maybeInvert(&sb)
		default:
			g.pushOperand(&sb, emitted)
			depth++
		}
	}
	return sb.String()
}

func (g *ExprGenerator) pushOperand(sb *strings.Builder, emitted int) {
	switch n := g.rng.IntN(20); {
	case n == 0:
		sb.WriteByte('0')
	case n <= 3 && emitted > 0:
		sb.WriteString(notation.EncodeBackRef(1 + g.rng.IntN(min(emitted, 9))))
	default:
		sb.WriteString(notation.EncodeEndpoint(g.rng.IntN(g.keys)))
	}
	g.maybeInvert(sb)
}

func (g *ExprGenerator) maybeInvert(sb *strings.Builder) {
	if g.rng.IntN(6) == 0 {
		sb.WriteByte('~')
	}
}
