package harness

import (
	"context"
	"fmt"
	"runtime"

	"github.com/crillab/gophersat/bf"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// EntryVar is the SAT variable of entry i.
func EntryVar(i int) bf.Formula {
	return bf.Var(fmt.Sprintf("x%d", i))
}

func applyFormula(form ir.Form, ops []bf.Formula) bf.Formula {
	switch form {
	case ir.FormOR:
		return bf.Or(ops[0], ops[1])
	case ir.FormGT:
		return bf.And(ops[0], bf.Not(ops[1]))
	case ir.FormNE:
		return bf.Xor(ops[0], ops[1])
	case ir.FormAND:
		return bf.And(ops[0], ops[1])
	case ir.FormQnTF:
		return bf.Or(bf.And(ops[0], bf.Not(ops[1])), bf.And(bf.Not(ops[0]), ops[2]))
	case ir.FormQTF:
		return bf.Or(bf.And(ops[0], ops[1]), bf.And(bf.Not(ops[0]), ops[2]))
	}
	return bf.False
}

// programFormula runs prog over formulas, endpoint i reading slot(i).
func programFormula(prog *notation.Program, slot func(i int) bf.Formula) bf.Formula {
	stack := make([]bf.Formula, 0, 16)
	results := make([]bf.Formula, 0, prog.NumNodes)
	for _, in := range prog.Instrs {
		switch in.Op {
		case notation.OpZero:
			stack = append(stack, bf.False)
		case notation.OpEndpoint:
			stack = append(stack, slot(in.Arg))
		case notation.OpBackRef:
			stack = append(stack, results[len(results)-in.Arg])
		case notation.OpInvert:
			stack[len(stack)-1] = bf.Not(stack[len(stack)-1])
		case notation.OpOperator:
			n := in.Form.Arity()
			f := applyFormula(in.Form, stack[len(stack)-n:])
			stack = append(stack[:len(stack)-n], f)
			results = append(results, f)
		}
	}
	return stack[0]
}

// ExprFormula translates postfix notation into a formula over EntryVar.
func ExprFormula(s string) (bf.Formula, error) {
	prog, err := notation.Parse(s)
	if err != nil {
		return nil, err
	}
	return programFormula(prog, EntryVar), nil
}

// SnapshotFormulas translates the roots of snap into formulas, in root
// order. Every record is translated once and shared by later records.
func SnapshotFormulas(oracle engine.Oracle, snap *engine.Snapshot) ([]bf.Formula, error) {
	nstart := ir.KStart + uint32(len(snap.Names))
	records := make([]bf.Formula, len(snap.Records))
	progs := make(map[uint32]*notation.Program)

	cell := func(id uint32) bf.Formula {
		switch {
		case id == ir.ZeroID:
			return bf.False
		case id < nstart:
			return EntryVar(int(id - ir.KStart))
		default:
			return records[id-nstart]
		}
	}

	for i, rec := range snap.Records {
		prog, ok := progs[rec.Sid]
		if !ok {
			sig := oracle.Signature(rec.Sid)
			if sig == nil {
				return nil, fmt.Errorf("record %d: unknown signature %d", nstart+uint32(i), rec.Sid)
			}
			var err error
			if prog, err = notation.Parse(sig.Name); err != nil {
				return nil, fmt.Errorf("signature %d: %w", rec.Sid, err)
			}
			progs[rec.Sid] = prog
		}
		id := nstart + uint32(i)
		for j := 0; j < prog.NumEndpoints; j++ {
			if s := rec.Slots[j]; s == ir.ErrorID || s >= id {
				return nil, fmt.Errorf("record %d: slot %d holds %d", id, j, s)
			}
		}
		records[i] = programFormula(prog, func(j int) bf.Formula { return cell(rec.Slots[j]) })
	}

	out := make([]bf.Formula, len(snap.Roots))
	for i, r := range snap.Roots {
		id := r.Ref.ID()
		if id == ir.ErrorID || int(id) >= int(nstart)+len(records) {
			return nil, fmt.Errorf("root %q references %d", r.Name, id)
		}
		f := cell(id)
		if r.Ref.Inverted() {
			f = bf.Not(f)
		}
		out[i] = f
	}
	return out, nil
}

// Equivalent reports whether a and b agree under every assignment of the
// entry variables EntryVar(0) .. EntryVar(numVars-1).
func Equivalent(a, b bf.Formula, numVars int) bool {
	return counterexample(bf.Xor(a, b), numVars) == nil
}

// maxSolverFallback is the largest variable count enumerated when the
// solver gives up on an instance.
const maxSolverFallback = 16

// counterexample returns an assignment satisfying f, or nil when f is
// unsatisfiable. Up to maxEvalEntries variables are enumerated directly;
// larger instances go to the SAT solver.
func counterexample(f bf.Formula, numVars int) map[string]bool {
	if numVars <= maxEvalEntries {
		return enumerate(f, numVars)
	}
	model, ok := solve(f)
	if ok {
		return model
	}
	if numVars <= maxSolverFallback {
		return enumerate(f, numVars)
	}
	return nil
}

// solve runs the SAT solver. ok is false when the solver panicked, which
// gophersat's clause learning does on some unsatisfiable instances;
// satisfiable instances always come back with a model.
func solve(f bf.Formula) (model map[string]bool, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			model, ok = nil, false
		}
	}()
	return bf.Solve(f), true
}

// enumerate evaluates f under every assignment of numVars entry variables
// and returns the first one making it true.
func enumerate(f bf.Formula, numVars int) map[string]bool {
	names := make([]string, numVars)
	for i := range names {
		names[i] = EntryVar(i).String()
	}
	model := make(map[string]bool, numVars)
	for x := 0; x < 1<<numVars; x++ {
		for i, name := range names {
			model[name] = x>>i&1 != 0
		}
		if f.Eval(model) {
			return model
		}
	}
	return nil
}

// EquivalentEval compares two references of one tree by exhaustive
// evaluation. The tree must have at most six entries.
func EquivalentEval(tree *engine.Tree, a, b ir.Ref) (bool, error) {
	if tree.NumEntries() > 6 {
		return false, fmt.Errorf("exhaustive evaluation needs at most 6 entries, tree has %d", tree.NumEntries())
	}
	ev, err := tree.Evaluate(engine.ExhaustiveInputs(tree.NumEntries()))
	if err != nil {
		return false, err
	}
	return ev.Value(a) == ev.Value(b), nil
}

// MismatchError names the first root whose functions differ.
type MismatchError struct {
	Root  string
	Model map[string]bool // a distinguishing assignment
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("root %q differs under %v", e.Root, e.Model)
}

// CompareRoots checks that two snapshots compute the same function for every
// root name they share, and that they name the same roots.
//
// Formulas are built sequentially; the equivalence check runs once per
// root in parallel.
func CompareRoots(ctx context.Context, oracle engine.Oracle, a, b *engine.Snapshot) error {
	if len(a.Names) != len(b.Names) {
		return fmt.Errorf("entry count differs: %d and %d", len(a.Names), len(b.Names))
	}
	fa, err := SnapshotFormulas(oracle, a)
	if err != nil {
		return fmt.Errorf("first snapshot: %w", err)
	}
	fb, err := SnapshotFormulas(oracle, b)
	if err != nil {
		return fmt.Errorf("second snapshot: %w", err)
	}

	byName := make(map[string]bf.Formula, len(b.Roots))
	for i, r := range b.Roots {
		byName[r.Name] = fb[i]
	}
	if len(byName) != len(a.Roots) {
		return fmt.Errorf("root count differs: %d and %d", len(a.Roots), len(byName))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, r := range a.Roots {
		other, ok := byName[r.Name]
		if !ok {
			return fmt.Errorf("root %q missing from second snapshot", r.Name)
		}
		f := fa[i]
		name := r.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if model := counterexample(bf.Xor(f, other), len(a.Names)); model != nil {
				return &MismatchError{Root: name, Model: model}
			}
			return nil
		})
	}
	return g.Wait()
}
