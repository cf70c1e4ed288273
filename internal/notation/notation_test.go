package notation

import (
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtree/internal/ir"
)

// ============================================================================
// Token encoding
// ============================================================================

func TestEncodeEndpoint(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "a"},
		{25, "z"},
		{26, "Aa"},
		{51, "Az"},
		{52, "Ba"},
		{701, "Zz"},
		{702, "AAa"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeEndpoint(tt.n))
		})
	}
}

func TestEncodeBackRef(t *testing.T) {
	assert.Equal(t, "1", EncodeBackRef(1))
	assert.Equal(t, "9", EncodeBackRef(9))
	assert.Equal(t, "A0", EncodeBackRef(10))
	assert.Equal(t, "B3", EncodeBackRef(23))
	assert.Equal(t, "Z9", EncodeBackRef(269))
	assert.Equal(t, "AA0", EncodeBackRef(270))
}

func TestEncode_RoundTripThroughParse(t *testing.T) {
	for _, n := range []int{0, 1, 25, 26, 27, 500, 701, 702, 18277, 123456} {
		prog, err := Parse(EncodeEndpoint(n))
		require.NoError(t, err, "endpoint %d", n)
		require.Len(t, prog.Instrs, 1)
		assert.Equal(t, OpEndpoint, prog.Instrs[0].Op)
		assert.Equal(t, n, prog.Instrs[0].Arg)
		assert.Equal(t, n+1, prog.NumEndpoints)
	}
}

// ============================================================================
// Parsing
// ============================================================================

func TestParse_Operators(t *testing.T) {
	for _, src := range []string{"ab+", "ab>", "ab^", "ab&", "abc!", "abc?"} {
		t.Run(src, func(t *testing.T) {
			prog, err := Parse(src)
			require.NoError(t, err)
			require.Len(t, prog.Instrs, len(src))

			last := prog.Instrs[len(prog.Instrs)-1]
			assert.Equal(t, OpOperator, last.Op)
			assert.Equal(t, src[len(src)-1], last.Form.Op())
			assert.Equal(t, 1, prog.NumNodes)
		})
	}
}

func TestParse_ZeroAndInvert(t *testing.T) {
	prog, err := Parse("0")
	require.NoError(t, err)
	assert.Equal(t, []Instr{{Op: OpZero, Pos: 0}}, prog.Instrs)

	prog, err = Parse("0~")
	require.NoError(t, err)
	require.Len(t, prog.Instrs, 2)
	assert.Equal(t, OpInvert, prog.Instrs[1].Op)

	prog, err = Parse("ab&~")
	require.NoError(t, err)
	assert.Equal(t, OpInvert, prog.Instrs[3].Op)
	assert.Equal(t, 2, prog.NumEndpoints)
}

func TestParse_BackReferences(t *testing.T) {
	// ((a AND b) XOR c) OR itself, reusing the most recent node.
	prog, err := Parse("ab&c^1+")
	require.NoError(t, err)
	assert.Equal(t, OpBackRef, prog.Instrs[5].Op)
	assert.Equal(t, 1, prog.Instrs[5].Arg)
	assert.Equal(t, 3, prog.NumNodes)
}

func TestParse_SpacesIgnored(t *testing.T) {
	a, err := Parse("a b +")
	require.NoError(t, err)
	b, err := Parse("ab+")
	require.NoError(t, err)
	assert.Equal(t, len(b.Instrs), len(a.Instrs))
	assert.Equal(t, b.NumNodes, a.NumNodes)
}

func TestParse_Transform(t *testing.T) {
	prog, err := Parse("ab+c&/dAab")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 26, 1}, prog.Transform)
	assert.Equal(t, 3, prog.Instrs[0].Arg)
	assert.Equal(t, 26, prog.Instrs[1].Arg)
	assert.Equal(t, 1, prog.Instrs[3].Arg)
	assert.Equal(t, 27, prog.NumEndpoints)
}

func TestParse_Disassembly(t *testing.T) {
	prog, err := Parse("ab+c&~1^/dAab")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "disassembly", []byte(prog.String()))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		pos     int
		message string
	}{
		{"empty", "", 0, "expression leaves 0 values on the stack"},
		{"leftover", "ab", 2, "expression leaves 2 values on the stack"},
		{"operator underflow", "a+", 1, "stack underflow on '+'"},
		{"ternary underflow", "ab?", 2, "stack underflow on '?'"},
		{"invert underflow", "~a", 0, "stack underflow on '~'"},
		{"bad token", "a$", 1, "bad token '$'"},
		{"unterminated prefix", "aB", 1, "unterminated prefix"},
		{"backref out of range", "ab&2c^", 3, "back-reference 2 out of range (1 nodes)"},
		{"backref before nodes", "1", 0, "back-reference 1 out of range (0 nodes)"},
		{"placeholder not covered", "ab+/c", 1, "placeholder b not covered by transform"},
		{"transform backref", "ab+/c1", 5, "transform may only list endpoints"},
		{"empty transform", "ab+/", 4, "empty transform"},
		{"transform bad token", "ab+/c$", 5, "bad token '$'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)

			var se *SyntaxError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.pos, se.Pos)
			assert.Equal(t, tt.message, se.Message)
		})
	}
}

func TestParse_TokenTooLarge(t *testing.T) {
	_, err := Parse("ZZZZZZZZa")
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "token value too large", se.Message)
}

func TestForm_OperatorsRoundTrip(t *testing.T) {
	for f := ir.FormOR; f <= ir.FormQTF; f++ {
		assert.Equal(t, f, ir.FormFromOp(f.Op()))
	}
	assert.Equal(t, ir.FormNone, ir.FormFromOp('x'))
}
