package sigdb

import "github.com/roach88/qtree/internal/ir"

// wide is a truth table over up to ir.MaxSlots variables: bit x of the
// 512-bit vector holds the value for assignment x.
type wide [8]uint64

// wideVars[i] is the table of variable i.
var wideVars = func() [ir.MaxSlots]wide {
	var v [ir.MaxSlots]wide
	low := [6]uint64{
		0xAAAAAAAAAAAAAAAA,
		0xCCCCCCCCCCCCCCCC,
		0xF0F0F0F0F0F0F0F0,
		0xFF00FF00FF00FF00,
		0xFFFF0000FFFF0000,
		0xFFFFFFFF00000000,
	}
	for i := 0; i < ir.MaxSlots; i++ {
		for w := 0; w < 8; w++ {
			switch {
			case i < 6:
				v[i][w] = low[i]
			case (w>>(i-6))&1 == 1:
				v[i][w] = ^uint64(0)
			}
		}
	}
	return v
}()

func (t wide) bit(x int) bool {
	return t[x>>6]>>(x&63)&1 != 0
}

func (t wide) not() wide {
	for i := range t {
		t[i] = ^t[i]
	}
	return t
}

// qtf computes "q ? t : f" word-wise.
func qtf(q, t, f wide) wide {
	var r wide
	for i := range r {
		r[i] = q[i]&t[i] | ^q[i]&f[i]
	}
	return r
}

// support returns the variables (below m) the table depends on, ascending.
func (t wide) support(m int) []int {
	var out []int
	n := 1 << m
	for i := 0; i < m; i++ {
		bit := 1 << i
		for x := 0; x < n; x++ {
			if x&bit == 0 && t.bit(x) != t.bit(x|bit) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// project folds t onto the variables in vars: variable j of the result is
// variable vars[j] of t. Variables outside vars read as zero, which is
// harmless because t does not depend on them.
func (t wide) project(vars []int) uint32 {
	var r uint32
	for y := 0; y < 1<<len(vars); y++ {
		x := 0
		for j, v := range vars {
			if y>>j&1 != 0 {
				x |= 1 << v
			}
		}
		if t.bit(x) {
			r |= 1 << y
		}
	}
	return r
}

// narrow tables hold at most ir.MaxPlaceholders variables.
var narrowVars = [ir.MaxPlaceholders]uint32{
	0xAAAAAAAA,
	0xCCCCCCCC,
	0xF0F0F0F0,
	0xFF00FF00,
	0xFFFF0000,
}

// mask returns the valid bits of a k-variable narrow table.
func mask(k int) uint32 {
	if k >= 5 {
		return 0xFFFFFFFF
	}
	return 1<<(1<<k) - 1
}

// permute returns t·p: the table g with g(x) = t(y) where y_i = x_{p[i]}.
func permute(t uint32, k int, p []uint8) uint32 {
	var r uint32
	for x := 0; x < 1<<k; x++ {
		y := 0
		for i := 0; i < k; i++ {
			if x>>p[i]&1 != 0 {
				y |= 1 << i
			}
		}
		if t>>y&1 != 0 {
			r |= 1 << x
		}
	}
	return r
}

// perms[k] lists every permutation of k elements in lexicographic order.
var perms = func() [ir.MaxPlaceholders + 1][][]uint8 {
	var out [ir.MaxPlaceholders + 1][][]uint8
	for k := 0; k <= ir.MaxPlaceholders; k++ {
		out[k] = permutations(k)
	}
	return out
}()

func permutations(k int) [][]uint8 {
	if k == 0 {
		return [][]uint8{{}}
	}
	var out [][]uint8
	var rec func(cur []uint8, used uint32)
	rec = func(cur []uint8, used uint32) {
		if len(cur) == k {
			out = append(out, append([]uint8(nil), cur...))
			return
		}
		for i := 0; i < k; i++ {
			if used&(1<<i) == 0 {
				rec(append(cur, uint8(i)), used|1<<i)
			}
		}
	}
	rec(nil, 0)
	return out
}

// canonical returns the smallest table in the permutation class of t.
func canonical(t uint32, k int) uint32 {
	best := t
	for _, p := range perms[k] {
		if c := permute(t, k, p); c < best {
			best = c
		}
	}
	return best
}

// supportNarrow reports whether a k-variable narrow table depends on every
// one of its variables.
func supportNarrow(t uint32, k int) bool {
	for i := 0; i < k; i++ {
		bit := 1 << i
		depends := false
		for x := 0; x < 1<<k; x++ {
			if x&bit == 0 && (t>>x&1) != (t>>(x|bit)&1) {
				depends = true
				break
			}
		}
		if !depends {
			return false
		}
	}
	return true
}
