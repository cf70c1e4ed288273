package sigdb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// MaxSize is the largest operator count of a catalogued signature.
const MaxSize = 2

const letters = "abcde"

// classKey identifies a function class: its placeholder count and the
// smallest truth table over all placeholder permutations.
type classKey struct {
	k     uint8
	table uint32
}

// catalog is the immutable part of the database, shared by every DB.
type catalog struct {
	sigs    []ir.Signature
	progs   []*notation.Program
	classes map[classKey]uint32
}

var (
	catalogOnce sync.Once
	shared      *catalog
)

func loadCatalog() *catalog {
	catalogOnce.Do(func() {
		shared = buildCatalog()
	})
	return shared
}

func buildCatalog() *catalog {
	c := &catalog{classes: make(map[classKey]uint32)}

	c.reserve(ir.Signature{ID: ir.SidNone, Name: ""})
	c.reserve(ir.Signature{ID: ir.SidZero, Name: "0"})
	c.reserve(ir.Signature{ID: ir.SidSelf, Name: "a", NumPlaceholder: 1, Table: narrowVars[0] & mask(1)})

	level1 := operatorStrings(nil)
	c.addLevel(level1, 1)

	var level2 []string
	for _, inner := range level1 {
		level2 = append(level2, operatorStrings(&inner)...)
	}
	c.addLevel(level2, 2)

	return c
}

// reserve appends one of the reserved signatures.
func (c *catalog) reserve(sig ir.Signature) {
	var prog *notation.Program
	if sig.Name != "" {
		p, err := notation.Parse(sig.Name)
		if err != nil {
			panic(fmt.Sprintf("sigdb: reserved signature %q: %v", sig.Name, err))
		}
		prog = p
	}
	c.sigs = append(c.sigs, sig)
	c.progs = append(c.progs, prog)
}

// operatorStrings lists every single-operator pattern over distinct
// letters. When inner is given, exactly one operand is the inner pattern.
func operatorStrings(inner *string) []string {
	forms := []ir.Form{ir.FormOR, ir.FormGT, ir.FormNE, ir.FormAND, ir.FormQnTF, ir.FormQTF}
	var out []string
	for _, form := range forms {
		arity := form.Arity()
		if inner == nil {
			for _, tuple := range letterTuples(arity) {
				out = append(out, tuple+string(form.Op()))
			}
			continue
		}
		for pos := 0; pos < arity; pos++ {
			for _, tuple := range letterTuples(arity - 1) {
				var s string
				j := 0
				for i := 0; i < arity; i++ {
					if i == pos {
						s += *inner
						continue
					}
					s += tuple[j : j+1]
					j++
				}
				out = append(out, s+string(form.Op()))
			}
		}
	}
	return out
}

// letterTuples lists ordered tuples of n distinct letters.
func letterTuples(n int) []string {
	if n == 0 {
		return []string{""}
	}
	var out []string
	for _, rest := range letterTuples(n - 1) {
		for i := 0; i < len(letters); i++ {
			l := letters[i : i+1]
			dup := false
			for j := 0; j < len(rest); j++ {
				if rest[j] == l[0] {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, rest+l)
			}
		}
	}
	return out
}

// firstSeen renames placeholders in order of first appearance.
func firstSeen(s string) string {
	var rename [26]byte
	next := byte('a')
	out := []byte(s)
	for i, c := range out {
		if c < 'a' || c > 'z' {
			continue
		}
		if rename[c-'a'] == 0 {
			rename[c-'a'] = next
			next++
		}
		out[i] = rename[c-'a']
	}
	return string(out)
}

type candidate struct {
	name string
	k    int
}

// addLevel registers the new function classes found among cands, all of
// which have the given operator count. Candidates are visited in
// (placeholders, name) order so signature ids and names are deterministic.
func (c *catalog) addLevel(cands []string, size int) {
	seen := make(map[string]bool)
	var list []candidate
	for _, raw := range cands {
		name := firstSeen(raw)
		if seen[name] {
			continue
		}
		seen[name] = true
		k := 0
		for i := 0; i < len(name); i++ {
			if name[i] >= 'a' && name[i] <= 'z' && int(name[i]-'a')+1 > k {
				k = int(name[i]-'a') + 1
			}
		}
		list = append(list, candidate{name: name, k: k})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].k != list[j].k {
			return list[i].k < list[j].k
		}
		return list[i].name < list[j].name
	})

	for _, cand := range list {
		prog, err := notation.Parse(cand.name)
		if err != nil {
			panic(fmt.Sprintf("sigdb: candidate %q: %v", cand.name, err))
		}
		table, err := evalNarrow(prog, narrowVars[:cand.k])
		if err != nil {
			panic(fmt.Sprintf("sigdb: candidate %q: %v", cand.name, err))
		}
		table &= mask(cand.k)
		if !supportNarrow(table, cand.k) {
			continue
		}
		key := classKey{k: uint8(cand.k), table: canonical(table, cand.k)}
		if _, ok := c.classes[key]; ok {
			continue
		}

		sid := uint32(len(c.sigs))
		c.sigs = append(c.sigs, ir.Signature{
			ID:             sid,
			Name:           cand.name,
			NumPlaceholder: cand.k,
			Size:           size,
			Table:          table,
			SwapRules:      swapRules(table, cand.k),
		})
		c.progs = append(c.progs, prog)
		c.classes[key] = sid
	}
}

// swapRules lists the non-identity permutations under which table is
// invariant.
func swapRules(table uint32, k int) [][]uint8 {
	var rules [][]uint8
	for i, p := range perms[k] {
		if i == 0 {
			continue // identity comes first in lexicographic order
		}
		if permute(table, k, p) == table {
			rules = append(rules, p)
		}
	}
	return rules
}
