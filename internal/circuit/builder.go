// Package circuit builds logic networks gate by gate on an engine tree.
//
// Every gate is one "Q ? T : F" call into the Normalizer, so the tree sees
// circuits exactly as a generator emits them. The first engine error is
// kept and later gates become no-ops returning the constant false.
package circuit

import (
	"fmt"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/ir"
)

// Builder emits gates into a tree.
type Builder struct {
	tree  *engine.Tree
	err   error
	gates int
}

// NewBuilder returns a builder over tree.
func NewBuilder(tree *engine.Tree) *Builder {
	return &Builder{tree: tree}
}

// Tree returns the tree gates are emitted into.
func (b *Builder) Tree() *engine.Tree { return b.tree }

// Err returns the first error met while emitting gates.
func (b *Builder) Err() error { return b.err }

// Gates returns the number of gates emitted.
func (b *Builder) Gates() int { return b.gates }

// Key returns entry i.
func (b *Builder) Key(i int) ir.Ref { return b.tree.Entry(i) }

// Word returns entries [from, from+width) as a little-endian word.
func (b *Builder) Word(from, width int) []ir.Ref {
	w := make([]ir.Ref, width)
	for i := range w {
		w[i] = b.tree.Entry(from + i)
	}
	return w
}

func (b *Builder) gate(q, t, f ir.Ref) ir.Ref {
	if b.err != nil {
		return 0
	}
	b.gates++
	r, err := b.tree.AddNormaliseNode(q, t, f)
	if err != nil {
		b.err = fmt.Errorf("gate %d: %w", b.gates, err)
		return 0
	}
	return r
}

// Not inverts x. It costs no gate.
func (b *Builder) Not(x ir.Ref) ir.Ref { return x.Not() }

// And returns x & y.
func (b *Builder) And(x, y ir.Ref) ir.Ref { return b.gate(x, y, 0) }

// Or returns x | y.
func (b *Builder) Or(x, y ir.Ref) ir.Ref { return b.gate(x, ir.IBIT, y) }

// Xor returns x ^ y.
func (b *Builder) Xor(x, y ir.Ref) ir.Ref { return b.gate(x, y.Not(), y) }

// Mux returns s ? t : f.
func (b *Builder) Mux(s, t, f ir.Ref) ir.Ref { return b.gate(s, t, f) }

// Maj returns the majority of x, y and z.
func (b *Builder) Maj(x, y, z ir.Ref) ir.Ref {
	return b.gate(x, b.Or(y, z), b.And(y, z))
}

// Ands folds And over xs; the empty conjunction is true.
func (b *Builder) Ands(xs ...ir.Ref) ir.Ref {
	acc := ir.IBIT
	for _, x := range xs {
		acc = b.And(acc, x)
	}
	return acc
}

// Ors folds Or over xs; the empty disjunction is false.
func (b *Builder) Ors(xs ...ir.Ref) ir.Ref {
	var acc ir.Ref
	for _, x := range xs {
		acc = b.Or(acc, x)
	}
	return acc
}

// Output records r as a named root.
func (b *Builder) Output(name string, r ir.Ref) {
	if b.err == nil {
		b.tree.AddRoot(name, r)
	}
}

// OutputWord records every bit of w as root name[i].
func (b *Builder) OutputWord(name string, w []ir.Ref) {
	for i, r := range w {
		b.Output(fmt.Sprintf("%s[%d]", name, i), r)
	}
}
