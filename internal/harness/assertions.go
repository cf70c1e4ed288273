package harness

import (
	"fmt"

	"github.com/roach88/qtree/internal/ir"
)

// assert evaluates one assertion against the finished tree.
func (r *run) assert(a Assertion) error {
	switch a.Type {
	case AssertSameGroup:
		return r.assertSameGroup(a.Names)
	case AssertDistinct:
		return r.assertDistinct(a.Names)
	case AssertEquivalent:
		for _, n := range a.Names[1:] {
			if !r.equivalent(a.Names[0], n) {
				return fmt.Errorf("%s and %s compute different functions", a.Names[0], n)
			}
		}
		return nil
	case AssertCanonical:
		got, err := r.tree.SaveString(r.refs[a.Name], false)
		if err != nil {
			return err
		}
		if got != a.Want {
			return fmt.Errorf("%s saved as %q, want %q", a.Name, got, a.Want)
		}
		return nil
	case AssertConstant:
		ref := r.tree.Resolve(r.refs[a.Name])
		want := ir.MakeRef(ir.ZeroID, a.Value)
		if ref != want {
			return fmt.Errorf("%s resolved to %s, want %s", a.Name, ref, want)
		}
		return nil
	case AssertMaxGroups:
		if got := r.tree.Stats().Groups; got > a.Count {
			return fmt.Errorf("tree holds %d groups, want at most %d", got, a.Count)
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (r *run) assertSameGroup(names []string) error {
	first := r.tree.Resolve(r.refs[names[0]])
	for _, n := range names[1:] {
		if got := r.tree.Resolve(r.refs[n]); got != first {
			return fmt.Errorf("%s is %s, %s is %s", names[0], first, n, got)
		}
	}
	return nil
}

func (r *run) assertDistinct(names []string) error {
	seen := make(map[ir.Ref]string, len(names))
	for _, n := range names {
		ref := r.tree.Resolve(r.refs[n])
		if prev, ok := seen[ref]; ok {
			return fmt.Errorf("%s and %s both resolve to %s", prev, n, ref)
		}
		seen[ref] = n
	}
	return nil
}
