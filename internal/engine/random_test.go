package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtree/internal/testutil"
)

// Random expressions built in one shared tree keep their function, keep the
// tree valid, and render to text that rebuilds the same function.
func TestRandomExpressions(t *testing.T) {
	modes := []struct {
		name string
		opts []Option
	}{
		{"default", []Option{WithParanoid(true)}},
		{"no rewrite", []Option{WithRewrite(false)}},
		{"pure", []Option{WithPure(true), WithCascade(false)}},
	}

	for _, mode := range modes {
		t.Run(mode.name, func(t *testing.T) {
			const keys = 5
			tree := newTestTree(t, keys, mode.opts...)
			gen := testutil.NewExprGenerator(uint64(len(mode.name)), keys)
			inputs := ExhaustiveInputs(keys)

			for i := 0; i < 40; i++ {
				expr := gen.Expr(1 + i%12)
				label := fmt.Sprintf("#%d %q", i, expr)

				r, err := tree.LoadStringSafe(expr)
				require.NoError(t, err, label)
				require.NoError(t, tree.Validate(true), label)

				want, err := EvalString(expr, inputs)
				require.NoError(t, err, label)
				ev, err := tree.Evaluate(inputs)
				require.NoError(t, err, label)
				assert.Equal(t, want, ev.Value(r), label)

				saved, err := tree.SaveString(r, false)
				require.NoError(t, err, label)
				got, err := EvalString(saved, inputs)
				require.NoError(t, err, "%s saved as %q", label, saved)
				assert.Equal(t, want, got, "%s saved as %q", label, saved)
			}
		})
	}
}

// Six-key streams that once grew a cycle between two groups. The tree must
// stay acyclic, settle its repair passes and keep every function.
func TestRandomExpressions_SixKeys(t *testing.T) {
	cases := []struct {
		name string
		seed uint64
		opts []Option
	}{
		{"seed 10", 10, nil},
		{"no cascade seed 1", 1, []Option{WithCascade(false)}},
		{"no cascade seed 2", 2, []Option{WithCascade(false)}},
		{"no cascade seed 3", 3, []Option{WithCascade(false)}},
		{"no cascade seed 5", 5, []Option{WithCascade(false)}},
		{"depth 5 seed 1", 1, []Option{WithMaxDepth(5)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const keys = 6
			tree := newTestTree(t, keys, tc.opts...)
			gen := testutil.NewExprGenerator(tc.seed, keys)
			inputs := ExhaustiveInputs(keys)

			for i := 0; i < 60; i++ {
				expr := gen.Expr(1 + i%12)
				label := fmt.Sprintf("#%d %q", i, expr)

				r, err := tree.LoadStringSafe(expr)
				require.NoError(t, err, label)
				require.NoError(t, tree.Validate(true), label)

				want, err := EvalString(expr, inputs)
				require.NoError(t, err, label)
				ev, err := tree.Evaluate(inputs)
				require.NoError(t, err, label)
				assert.Equal(t, want, ev.Value(r), label)
			}
		})
	}
}
