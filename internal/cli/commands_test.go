package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval_JSON(t *testing.T) {
	out, _, err := execute(t, "--format=json", "eval", "ab&c^", "x=ba&c^")
	require.NoError(t, err)

	res, resp := decode[EvalResult](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, res.Keys)
	require.Len(t, res.Exprs, 2)
	assert.Equal(t, "r0", res.Exprs[0].Name)
	assert.Equal(t, "x", res.Exprs[1].Name)
	assert.Equal(t, res.Exprs[0].Canonical, res.Exprs[1].Canonical)
	assert.Equal(t, res.Exprs[0].Ref, res.Exprs[1].Ref)
	assert.Equal(t, "7878787878787878", res.Exprs[0].Truth)
}

func TestEval_Text(t *testing.T) {
	out, _, err := execute(t, "eval", "--keys=4", "cd&")
	require.NoError(t, err)
	assert.Contains(t, out, "r0: cd& -> cd&  [ab&/cd]")
	assert.Contains(t, out, "groups")
}

func TestEval_Malformed(t *testing.T) {
	out, _, err := execute(t, "--format=json", "eval", "a+")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))

	_, resp := decode[struct{}](t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_INPUT", resp.Error.Code)
}

func TestEval_CapacityIsFatal(t *testing.T) {
	out, _, err := execute(t, "--format=json", "--maxnode=64", "eval",
		"ab&c^d+ab>cd^+&ef^gh&+&ab^cd^^ef&gh>+&&",
		"ae&bf^+cg&dh^+&ag^bh&+ce^df&+^&",
		"ah^bg&+cf^de&+&ad&bc^+eh&fg^+^^")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, resp := decode[struct{}](t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CAPACITY_EXCEEDED", resp.Error.Code)
}

func TestSaveLoadValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carry.dat")

	_, _, err := execute(t, "save", path, "carry=ab&ab^c&+", "sum=ab^c^")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, _, err := execute(t, "--format=json", "load", path)
	require.NoError(t, err)
	tree, _ := decode[TreeResult](t, out)
	assert.Equal(t, []string{"k0", "k1", "k2"}, tree.Entries)
	require.Len(t, tree.Roots, 2)
	assert.Equal(t, "carry", tree.Roots[0].Name)
	assert.Equal(t, "e8e8e8e8e8e8e8e8", tree.Roots[0].Truth)
	assert.Equal(t, "sum", tree.Roots[1].Name)
	assert.Equal(t, "9696969696969696", tree.Roots[1].Truth)

	out, _, err = execute(t, "--format=json", "validate", path)
	require.NoError(t, err)
	v, _ := decode[ValidationResult](t, out)
	assert.True(t, v.Valid)
	assert.True(t, v.Evaluated)
	assert.Equal(t, 2, v.Roots)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := execute(t, "load", filepath.Join(t.TempDir(), "absent.dat"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.dat")
	_, _, err := execute(t, "save", path, "ab&c+")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, err = execute(t, "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adder.dat")

	out, _, err := execute(t, "--format=json", "--paranoid", "gen", "adder", "2", "--out", path)
	require.NoError(t, err)
	res, _ := decode[TreeResult](t, out)
	assert.Len(t, res.Entries, 4)
	assert.Len(t, res.Roots, 3)
	assert.Positive(t, res.Groups)

	_, _, err = execute(t, "validate", path)
	require.NoError(t, err)
}

func TestGen_Errors(t *testing.T) {
	_, _, err := execute(t, "gen", "teleporter")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "gen", "adder", "two")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid size")
}

func TestGen_VerboseMetrics(t *testing.T) {
	_, errOut, err := execute(t, "-v", "gen", "maj", "1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "# TYPE qtree_groups gauge")
	assert.Contains(t, errOut, `qtree_calls_total{tree=`)
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "trees.db")
	src := filepath.Join(dir, "maj.dat")
	dst := filepath.Join(dir, "copy.dat")

	_, _, err := execute(t, "save", src, "m=ab&ac&+bc&+")
	require.NoError(t, err)

	out, _, err := execute(t, "--format=json", "archive", "put", "--db", db, src)
	require.NoError(t, err)
	put, _ := decode[ArchiveList](t, out)
	require.Len(t, put.Trees, 1)
	assert.Equal(t, "maj", put.Trees[0].Name)
	assert.Equal(t, int64(1), put.Trees[0].Seq)
	assert.Equal(t, []string{"m"}, put.Trees[0].Roots)
	assert.Len(t, put.Trees[0].Digest, 64)
	id := put.Trees[0].ID

	_, _, err = execute(t, "archive", "put", "--db", db, "--name", "again", src)
	require.NoError(t, err)

	out, _, err = execute(t, "--format=json", "archive", "list", "--db", db)
	require.NoError(t, err)
	list, _ := decode[ArchiveList](t, out)
	require.Len(t, list.Trees, 2)
	assert.Equal(t, id, list.Trees[0].ID)
	assert.Equal(t, "again", list.Trees[1].Name)

	_, _, err = execute(t, "archive", "get", "--db", db, id, dst)
	require.NoError(t, err)
	_, _, err = execute(t, "validate", dst)
	require.NoError(t, err)

	_, _, err = execute(t, "archive", "rm", "--db", db, id)
	require.NoError(t, err)
	_, _, err = execute(t, "archive", "rm", "--db", db, id)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSigdb(t *testing.T) {
	out, _, err := execute(t, "--format=json", "sigdb", "--list")
	require.NoError(t, err)
	info, _ := decode[SigdbInfo](t, out)
	assert.Len(t, info.Checksum, 8)
	assert.Positive(t, info.Signatures)
	assert.NotEmpty(t, info.Names)
}

func TestScenario(t *testing.T) {
	out, _, err := execute(t, "--format=json", "scenario", "../harness/testdata/scenarios")
	require.NoError(t, err)
	report, _ := decode[ScenarioReport](t, out)
	assert.Equal(t, report.Total, report.Passed)
	assert.Positive(t, report.Total)
}

func TestScenario_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: bad
description: "and is not or"
keys: 2
exprs:
  - name: and
    expr: "ab&"
  - name: or
    expr: "ab+"
assertions:
  - type: same_group
    names: [and, or]
`), 0o644))

	out, _, err := execute(t, "scenario", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ bad")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestScenario_Filter(t *testing.T) {
	out, _, err := execute(t, "--format=json", "scenario", "--filter", "fold*", "../harness/testdata/scenarios")
	require.NoError(t, err)
	report, _ := decode[ScenarioReport](t, out)
	require.Equal(t, 1, report.Total)
	assert.Equal(t, "folding", report.Scenarios[0].Name)
}
