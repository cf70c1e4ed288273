package circuit

import "github.com/roach88/qtree/internal/ir"

// FullAdd returns the sum and carry of x + y + c.
func (b *Builder) FullAdd(x, y, c ir.Ref) (sum, carry ir.Ref) {
	return b.Xor(b.Xor(x, y), c), b.Maj(x, y, c)
}

// Add returns the ripple-carry sum of two equal-width words and the carry
// out of the top bit.
func (b *Builder) Add(xs, ys []ir.Ref) (sum []ir.Ref, carry ir.Ref) {
	sum = make([]ir.Ref, len(xs))
	for i := range xs {
		sum[i], carry = b.FullAdd(xs[i], ys[i], carry)
	}
	return sum, carry
}

// XorWord returns xs ^ ys bitwise.
func (b *Builder) XorWord(xs, ys []ir.Ref) []ir.Ref {
	out := make([]ir.Ref, len(xs))
	for i := range xs {
		out[i] = b.Xor(xs[i], ys[i])
	}
	return out
}

// Rotl rotates a little-endian word left by r. It costs no gate.
func Rotl(xs []ir.Ref, r int) []ir.Ref {
	n := len(xs)
	out := make([]ir.Ref, n)
	if n == 0 {
		return out
	}
	r %= n
	for i := range xs {
		out[(i+r)%n] = xs[i]
	}
	return out
}

// MixRound is one add-rotate-xor quarter round over four words:
//
//	a += b; d ^= a; d <<<= r1
//	c += d; b ^= c; b <<<= r2
func (b *Builder) MixRound(a, bw, c, d []ir.Ref, r1, r2 int) (na, nb, nc, nd []ir.Ref) {
	a, _ = b.Add(a, bw)
	d = Rotl(b.XorWord(d, a), r1)
	c, _ = b.Add(c, d)
	bw = Rotl(b.XorWord(bw, c), r2)
	return a, bw, c, d
}
