package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/crillab/gophersat/bf"

	"github.com/roach88/qtree/internal/config"
	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/sigdb"
)

// maxEvalEntries is the largest tree checked by exhaustive evaluation.
const maxEvalEntries = 6

// run is the state of one scenario execution.
type run struct {
	scenario *Scenario
	tree     *engine.Tree
	result   *Result

	refs map[string]ir.Ref
	eval *engine.Evaluation    // set when the tree is small enough
	sat  map[string]bf.Formula // set otherwise
}

// Run executes a scenario in a fresh tree and returns the result.
//
// Execution flow:
//  1. Build every expression in order, as a named root
//  2. Check each root against its source expression
//  3. Evaluate the assertions
//
// A returned error means the scenario could not be executed at all;
// failed checks are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := scenario.Options.apply(config.Default())
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("scenario options: %w", err)
	}

	tree, err := engine.New(sigdb.New(), engine.Layout{NumKeys: scenario.Keys}, opts.EngineOptions(logger)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}

	r := &run{
		scenario: scenario,
		tree:     tree,
		result:   NewResult(),
		refs:     make(map[string]ir.Ref, len(scenario.Exprs)),
	}
	if err := r.build(); err != nil {
		r.result.AddError(err.Error())
		return r.result, nil
	}
	if err := r.prepare(); err != nil {
		r.result.AddError(err.Error())
		return r.result, nil
	}
	r.checkSources()
	for i, a := range scenario.Assertions {
		if err := r.assert(a); err != nil {
			r.result.AddError(fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	r.result.Groups = tree.Stats().Groups
	return r.result, nil
}

// build loads every expression and records it as a root.
func (r *run) build() error {
	for _, step := range r.scenario.Exprs {
		ref, err := r.tree.LoadStringSafe(step.Expr)
		if err != nil {
			return fmt.Errorf("expr %s: %w", step.Name, err)
		}
		r.tree.AddRoot(step.Name, ref)
		r.refs[step.Name] = ref
	}
	if err := r.tree.Validate(true); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// prepare computes the functions of the roots, by evaluation or as SAT
// formulas, and fills the trace.
func (r *run) prepare() error {
	if r.tree.NumEntries() <= maxEvalEntries {
		ev, err := r.tree.Evaluate(engine.ExhaustiveInputs(r.tree.NumEntries()))
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		r.eval = ev
	} else {
		snap, err := r.tree.Export()
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fs, err := SnapshotFormulas(r.tree.Oracle(), snap)
		if err != nil {
			return err
		}
		r.sat = make(map[string]bf.Formula, len(fs))
		for i, root := range snap.Roots {
			r.sat[root.Name] = fs[i]
		}
	}

	for _, step := range r.scenario.Exprs {
		ev := TraceEvent{Name: step.Name, Expr: step.Expr}
		s, err := r.tree.SaveString(r.refs[step.Name], false)
		if err != nil {
			return fmt.Errorf("save %s: %w", step.Name, err)
		}
		ev.Canonical = s
		if r.eval != nil {
			ev.Truth = fmt.Sprintf("%016x", r.eval.Value(r.refs[step.Name]))
		}
		r.result.Trace = append(r.result.Trace, ev)
	}
	return nil
}

// checkSources compares every root with the expression it was built from.
func (r *run) checkSources() {
	for _, step := range r.scenario.Exprs {
		if r.eval != nil {
			want, err := engine.EvalString(step.Expr, engine.ExhaustiveInputs(r.tree.NumEntries()))
			if err != nil {
				r.result.AddError(fmt.Sprintf("expr %s: %v", step.Name, err))
				continue
			}
			if got := r.eval.Value(r.refs[step.Name]); got != want {
				r.result.AddError(fmt.Sprintf("expr %s: built %016x, source %016x", step.Name, got, want))
			}
			continue
		}
		want, err := ExprFormula(step.Expr)
		if err != nil {
			r.result.AddError(fmt.Sprintf("expr %s: %v", step.Name, err))
			continue
		}
		if !Equivalent(r.sat[step.Name], want, r.tree.NumEntries()) {
			r.result.AddError(fmt.Sprintf("expr %s: built function differs from source", step.Name))
		}
	}
}

// equivalent reports whether two named roots compute the same function.
func (r *run) equivalent(a, b string) bool {
	if r.eval != nil {
		return r.eval.Value(r.refs[a]) == r.eval.Value(r.refs[b])
	}
	return Equivalent(r.sat[a], r.sat[b], r.tree.NumEntries())
}
