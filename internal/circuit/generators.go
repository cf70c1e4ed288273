package circuit

import (
	"fmt"
	"sort"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/ir"
)

// Generator describes a circuit family member: the entries it needs and
// how to emit it.
type Generator struct {
	Name   string
	Layout engine.Layout
	Build  func(b *Builder)
}

// Run builds the generator into a fresh tree.
func (g Generator) Run(oracle engine.Oracle, opts ...engine.Option) (*engine.Tree, error) {
	tree, err := engine.New(oracle, g.Layout, opts...)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(tree)
	g.Build(b)
	if err := b.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name, err)
	}
	return tree, nil
}

// AdderGen is a ripple-carry adder of two bits-wide words. Keys 0..bits-1
// hold x, the next bits keys hold y.
func AdderGen(bits int) Generator {
	return Generator{
		Name:   fmt.Sprintf("adder%d", bits),
		Layout: engine.Layout{NumKeys: 2 * bits},
		Build: func(b *Builder) {
			sum, carry := b.Add(b.Word(0, bits), b.Word(bits, bits))
			b.OutputWord("s", sum)
			b.Output("c", carry)
		},
	}
}

// MajGen is the bitwise majority of three bits-wide words.
func MajGen(bits int) Generator {
	return Generator{
		Name:   fmt.Sprintf("maj%d", bits),
		Layout: engine.Layout{NumKeys: 3 * bits},
		Build: func(b *Builder) {
			for i := 0; i < bits; i++ {
				b.Output(fmt.Sprintf("m[%d]", i), b.Maj(b.Key(i), b.Key(bits+i), b.Key(2*bits+i)))
			}
		},
	}
}

// MuxGen selects one of 2^sel data keys. Keys 0..sel-1 are the select
// lines, least significant first.
func MuxGen(sel int) Generator {
	n := 1 << sel
	return Generator{
		Name:   fmt.Sprintf("mux%d", sel),
		Layout: engine.Layout{NumKeys: sel + n},
		Build: func(b *Builder) {
			level := b.Word(sel, n)
			for s := 0; s < sel; s++ {
				next := make([]ir.Ref, len(level)/2)
				for i := range next {
					next[i] = b.Mux(b.Key(s), level[2*i+1], level[2*i])
				}
				level = next
			}
			b.Output("y", level[0])
		},
	}
}

// MixGen runs rounds add-rotate-xor quarter rounds over four width-bit
// words held in keys a, b, c, d order.
func MixGen(width, rounds int) Generator {
	r1, r2 := 1%width, 2%width
	if width >= 8 {
		r1, r2 = width/2, width*3/8
	}
	return Generator{
		Name:   fmt.Sprintf("mix%dx%d", width, rounds),
		Layout: engine.Layout{NumKeys: 4 * width},
		Build: func(b *Builder) {
			a, bw, c, d := b.Word(0, width), b.Word(width, width), b.Word(2*width, width), b.Word(3*width, width)
			for i := 0; i < rounds; i++ {
				a, bw, c, d = b.MixRound(a, bw, c, d, r1, r2)
			}
			b.OutputWord("a", a)
			b.OutputWord("b", bw)
			b.OutputWord("c", c)
			b.OutputWord("d", d)
		},
	}
}

var registry = map[string]func(size int) Generator{
	"adder": AdderGen,
	"maj":   MajGen,
	"mux":   MuxGen,
	"mix":   func(width int) Generator { return MixGen(width, 1) },
}

// Lookup returns the named generator at the given size.
func Lookup(name string, size int) (Generator, error) {
	f, ok := registry[name]
	if !ok {
		return Generator{}, fmt.Errorf("unknown generator %q (have %v)", name, Names())
	}
	if size < 1 {
		return Generator{}, fmt.Errorf("generator %s: size must be positive, got %d", name, size)
	}
	return f(size), nil
}

// Names lists the registered generators.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
