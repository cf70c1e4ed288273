package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Keys int // entry count, 0 to infer from the expressions
}

// ExprResult describes one built expression.
type ExprResult struct {
	Name      string `json:"name"`
	Expr      string `json:"expr"`
	Canonical string `json:"canonical"`
	Transform string `json:"transform"`
	Ref       string `json:"ref"`
	Truth     string `json:"truth,omitempty"`
}

// EvalResult holds the outcome of eval and save.
type EvalResult struct {
	Keys   int          `json:"keys"`
	Exprs  []ExprResult `json:"exprs"`
	Groups int          `json:"groups"`
	Nodes  int          `json:"nodes"`
}

func (r EvalResult) String() string {
	var sb strings.Builder
	for _, e := range r.Exprs {
		fmt.Fprintf(&sb, "%s: %s -> %s  [%s]", e.Name, e.Expr, e.Canonical, e.Transform)
		if e.Truth != "" {
			fmt.Fprintf(&sb, "  %s", e.Truth)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%d groups, %d nodes", r.Groups, r.Nodes)
	return sb.String()
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <expr>...",
		Short: "Build expressions and print their canonical form",
		Long: `Build each expression into one tree and print its canonical notation.

An argument may be written name=expr to name the result. Every result is
shown with and without the placeholder transform, and with its truth table
when the tree has at most six entries.

Examples:
  qtree eval "ab&c^" "ba&c^"
  qtree eval carry=ab&ab^c&+ --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Keys, "keys", "k", 0, "number of entry points (default: inferred)")

	return cmd
}

func runEval(opts *EvalOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	tree, result, err := buildExprs(opts.RootOptions, opts.Keys, args)
	if err != nil {
		return formatter.Fail(ExitFailure, "eval", err)
	}
	opts.reportMetrics(cmd, "eval", tree)
	return formatter.Success(result)
}

// namedExpr is a command-line expression with its result name.
type namedExpr struct {
	name, expr string
}

// parseExprArgs splits name=expr arguments. Unnamed expressions are named
// r0, r1, ... by position.
func parseExprArgs(args []string) ([]namedExpr, int, error) {
	out := make([]namedExpr, len(args))
	keys := 1
	for i, a := range args {
		name, expr, ok := strings.Cut(a, "=")
		if !ok {
			name, expr = fmt.Sprintf("r%d", i), a
		}
		prog, err := notation.Parse(expr)
		if err != nil {
			return nil, 0, &engine.MalformedError{Pos: -1, Message: fmt.Sprintf("%s: %v", name, err), Err: err}
		}
		keys = max(keys, prog.NumEndpoints)
		out[i] = namedExpr{name: name, expr: expr}
	}
	return out, keys, nil
}

// buildExprs builds every argument into a fresh tree as a named root.
func buildExprs(opts *RootOptions, keys int, args []string) (*engine.Tree, EvalResult, error) {
	exprs, need, err := parseExprArgs(args)
	if err != nil {
		return nil, EvalResult{}, err
	}
	if keys == 0 {
		keys = need
	}

	tree, err := opts.newTree(engine.Layout{NumKeys: keys})
	if err != nil {
		return nil, EvalResult{}, err
	}
	opts.Logger.Info("build", "keys", keys, "exprs", len(exprs))

	refs := make([]ir.Ref, len(exprs))
	for i, e := range exprs {
		r, err := tree.LoadStringSafe(e.expr)
		if err != nil {
			return nil, EvalResult{}, fmt.Errorf("%s: %w", e.name, err)
		}
		tree.AddRoot(e.name, r)
		refs[i] = r
	}

	var ev *engine.Evaluation
	if tree.NumEntries() <= 6 {
		if ev, err = tree.Evaluate(engine.ExhaustiveInputs(tree.NumEntries())); err != nil {
			return nil, EvalResult{}, err
		}
	}

	result := EvalResult{Keys: keys, Exprs: make([]ExprResult, len(exprs))}
	for i, e := range exprs {
		r := tree.Resolve(refs[i])
		canon, err := tree.SaveString(r, false)
		if err != nil {
			return nil, EvalResult{}, err
		}
		tf, err := tree.SaveString(r, true)
		if err != nil {
			return nil, EvalResult{}, err
		}
		er := ExprResult{Name: e.name, Expr: e.expr, Canonical: canon, Transform: tf, Ref: r.String()}
		if ev != nil {
			er.Truth = fmt.Sprintf("%016x", ev.Value(r))
		}
		result.Exprs[i] = er
	}
	st := tree.Stats()
	result.Groups, result.Nodes = st.Groups, st.Nodes
	return tree, result, nil
}
