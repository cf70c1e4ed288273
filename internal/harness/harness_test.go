package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crillab/gophersat/bf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/sigdb"
)

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(s.Exprs))
		})
	}
}

func TestRun_Golden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/full_adder.yaml")
	require.NoError(t, err)
	require.NoError(t, RunWithGolden(t, s))

	fixture, err := os.ReadFile(filepath.Join("testdata", "golden", "full_adder.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(fixture), `"ab&ab^c&+"`)
	assert.NotContains(t, string(fixture), `\u0026`)
}

func TestRun_TruthOnlyForSmallTrees(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/wide_xor.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	for _, ev := range result.Trace {
		assert.Empty(t, ev.Truth, ev.Name)
		assert.NotEmpty(t, ev.Canonical, ev.Name)
	}
}

func TestRun_FailingAssertions(t *testing.T) {
	s, err := ParseScenario([]byte(`name: wrong
description: "assertions that do not hold"
keys: 2
exprs:
  - name: and
    expr: "ab&"
  - name: or
    expr: "ab+"
assertions:
  - type: same_group
    names: [and, or]
  - type: equivalent
    names: [and, or]
  - type: constant
    name: and
  - type: canonical
    name: or
    want: "ab&"
  - type: max_groups
    count: 0
  - type: distinct
    names: [and, or]
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "same_group")
	assert.Contains(t, result.Errors[1], "different functions")
	assert.Contains(t, result.Errors[2], "constant")
	assert.Contains(t, result.Errors[3], `want "ab&"`)
	assert.Contains(t, result.Errors[4], "at most 0")
}

func TestExprFormula(t *testing.T) {
	carry, err := ExprFormula("ab&ab^c&+")
	require.NoError(t, err)
	maj, err := ExprFormula("ab&ac&+bc&+")
	require.NoError(t, err)
	sum, err := ExprFormula("ab^c^")
	require.NoError(t, err)

	assert.True(t, Equivalent(carry, maj, 3))
	assert.False(t, Equivalent(carry, sum, 3))

	_, err = ExprFormula("ab")
	assert.Error(t, err)
}

func TestExprFormula_Operators(t *testing.T) {
	a, b, c := EntryVar(0), EntryVar(1), EntryVar(2)
	tests := []struct {
		expr string
		want bf.Formula
	}{
		{"ab+", bf.Or(a, b)},
		{"ab>", bf.And(a, bf.Not(b))},
		{"ab^", bf.Xor(a, b)},
		{"ab&", bf.And(a, b)},
		{"abc?", bf.Or(bf.And(a, b), bf.And(bf.Not(a), c))},
		{"abc!", bf.Or(bf.And(a, bf.Not(b)), bf.And(bf.Not(a), c))},
		{"a~", bf.Not(a)},
		{"0", bf.False},
		{"aa^", bf.False},
		{"ab&1~&", bf.False},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ExprFormula(tt.expr)
			require.NoError(t, err)
			assert.True(t, Equivalent(got, tt.want, 3))
		})
	}
}

func TestEquivalent_CommutedOperands(t *testing.T) {
	for _, n := range []int{2, 8, 20} {
		a, b := EntryVar(0), EntryVar(n-1)
		tests := []struct {
			name string
			x, y bf.Formula
			want bool
		}{
			{"same or", bf.Or(a, b), bf.Or(a, b), true},
			{"commuted or", bf.Or(a, b), bf.Or(b, a), true},
			{"commuted and", bf.And(a, b), bf.And(b, a), true},
			{"or against and", bf.Or(a, b), bf.And(a, b), false},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, Equivalent(tt.x, tt.y, n), "%s over %d variables", tt.name, n)
		}
	}
}

func TestCounterexample(t *testing.T) {
	a, b := EntryVar(0), EntryVar(7)
	model := counterexample(bf.Xor(bf.Or(a, b), bf.And(a, b)), 8)
	require.NotNil(t, model)
	assert.NotEqual(t, model["x0"], model["x7"])

	assert.Nil(t, counterexample(bf.And(a, bf.Not(a)), 8))
}

func buildRooted(t *testing.T, keys int, exprs map[string]string) (*engine.Tree, *engine.Snapshot) {
	t.Helper()
	tree, err := engine.New(sigdb.New(), engine.Layout{NumKeys: keys})
	require.NoError(t, err)
	for _, name := range []string{"f", "g"} {
		expr, ok := exprs[name]
		if !ok {
			continue
		}
		ref, err := tree.LoadStringSafe(expr)
		require.NoError(t, err)
		tree.AddRoot(name, ref)
	}
	snap, err := tree.Export()
	require.NoError(t, err)
	return tree, snap
}

func TestCompareRoots(t *testing.T) {
	db := sigdb.New()
	_, a := buildRooted(t, 4, map[string]string{"f": "ab&c+", "g": "ab^cd^^"})
	_, b := buildRooted(t, 4, map[string]string{"f": "ca&cb&+", "g": "ad^bc^^"})

	// "ab&c+" and "ca&cb&+" differ: a=b=1, c=0.
	err := CompareRoots(context.Background(), db, a, b)
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "f", mismatch.Root)

	_, c := buildRooted(t, 4, map[string]string{"f": "cba&+", "g": "ad^bc^^"})
	assert.NoError(t, CompareRoots(context.Background(), db, a, c))
}

func TestCompareRoots_Shape(t *testing.T) {
	db := sigdb.New()
	_, a := buildRooted(t, 3, map[string]string{"f": "ab&", "g": "bc&"})
	_, onlyF := buildRooted(t, 3, map[string]string{"f": "ab&"})
	_, wider := buildRooted(t, 4, map[string]string{"f": "ab&", "g": "bc&"})

	assert.ErrorContains(t, CompareRoots(context.Background(), db, a, onlyF), "root count differs")
	assert.ErrorContains(t, CompareRoots(context.Background(), db, a, wider), "entry count differs")
}

func TestSnapshotFormulas_MatchesEvaluation(t *testing.T) {
	tree, snap := buildRooted(t, 3, map[string]string{"f": "ab^c&ab&+", "g": "abc!~"})
	fs, err := SnapshotFormulas(tree.Oracle(), snap)
	require.NoError(t, err)
	require.Len(t, fs, 2)

	for i, src := range []string{"ab^c&ab&+", "abc!~"} {
		want, err := ExprFormula(src)
		require.NoError(t, err)
		assert.True(t, Equivalent(fs[i], want, 3), src)
	}
}

func TestEquivalentEval(t *testing.T) {
	tree, err := engine.New(sigdb.New(), engine.Layout{NumKeys: 3})
	require.NoError(t, err)
	x, err := tree.LoadStringSafe("ab&ab^c&+")
	require.NoError(t, err)
	y, err := tree.LoadStringSafe("ab&ac&+bc&+")
	require.NoError(t, err)
	z, err := tree.LoadStringSafe("ab^c^")
	require.NoError(t, err)

	ok, err := EquivalentEval(tree, x, y)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EquivalentEval(tree, x, z)
	require.NoError(t, err)
	assert.False(t, ok)

	wide, err := engine.New(sigdb.New(), engine.Layout{NumKeys: 7})
	require.NoError(t, err)
	_, err = EquivalentEval(wide, x, y)
	assert.ErrorContains(t, err, "at most 6 entries")
}
