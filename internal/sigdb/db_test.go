package sigdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtree/internal/ir"
)

func mustName(t *testing.T, db *DB, name string) uint32 {
	t.Helper()
	sid, ok := db.LookupName(name)
	require.True(t, ok, "signature %q not in catalog", name)
	return sid
}

func mustTransform(t *testing.T, db *DB, name string) uint32 {
	t.Helper()
	tid, ok := db.LookupFwdTransform(name)
	require.True(t, ok, "transform %q rejected", name)
	return tid
}

// lookup runs both stages for a triple of legs.
func lookup(t *testing.T, db *DB, sidQ, sidT uint32, tT string, invT bool, sidF uint32, tF string) (ir.PatternResult, bool) {
	t.Helper()
	first, ok := db.LookupPatternFirst(sidQ, sidT, mustTransform(t, db, tT), invT)
	require.True(t, ok)
	return db.LookupPatternSecond(first, sidF, mustTransform(t, db, tF))
}

func TestCatalog_ReservedSignatures(t *testing.T) {
	db := New()

	zero := db.Signature(ir.SidZero)
	require.NotNil(t, zero)
	assert.Equal(t, "0", zero.Name)
	assert.Equal(t, 0, zero.NumPlaceholder)

	self := db.Signature(ir.SidSelf)
	require.NotNil(t, self)
	assert.Equal(t, "a", self.Name)
	assert.Equal(t, 1, self.NumPlaceholder)

	assert.Nil(t, db.Signature(uint32(db.NumSignatures())))
}

func TestCatalog_SingleOperatorShapes(t *testing.T) {
	db := New()

	for _, name := range []string{"ab+", "ab>", "ab^", "ab&", "abc!", "abc?"} {
		t.Run(name, func(t *testing.T) {
			sig := db.Signature(mustName(t, db, name))
			assert.Equal(t, 1, sig.Size)
			assert.Equal(t, len(name)-1, sig.NumPlaceholder)
		})
	}

	// The six single-operator shapes come first, in (placeholders, name) order.
	assert.Equal(t, "ab&", db.Signature(ir.SidFirst).Name)
	assert.Equal(t, "abc?", db.Signature(ir.SidFirst+5).Name)
}

func TestCatalog_SwapRules(t *testing.T) {
	db := New()

	or := db.Signature(mustName(t, db, "ab+"))
	assert.Len(t, or.SwapRules, 1, "OR is symmetric in both placeholders")

	gt := db.Signature(mustName(t, db, "ab>"))
	assert.Empty(t, gt.SwapRules, "GT is not symmetric")

	qtf := db.Signature(mustName(t, db, "abc?"))
	assert.Empty(t, qtf.SwapRules)
}

func TestCatalog_Deterministic(t *testing.T) {
	a, b := New(), New()
	require.Equal(t, a.NumSignatures(), b.NumSignatures())
	assert.Equal(t, a.Checksum(), b.Checksum())

	fresh := buildCatalog()
	require.Equal(t, len(fresh.sigs), a.NumSignatures())
	for i := range fresh.sigs {
		assert.Equal(t, fresh.sigs[i].Name, a.Signature(uint32(i)).Name)
	}
}

func TestCatalog_EveryPatternMatchesItsTable(t *testing.T) {
	db := New()
	for sid := ir.SidFirst; sid < uint32(db.NumSignatures()); sid++ {
		sig := db.Signature(sid)
		table, err := evalNarrow(db.Program(sid), narrowVars[:sig.NumPlaceholder])
		require.NoError(t, err)
		assert.Equal(t, sig.Table, table&mask(sig.NumPlaceholder), sig.Name)
		assert.True(t, supportNarrow(sig.Table, sig.NumPlaceholder), sig.Name)
		assert.LessOrEqual(t, sig.Size, MaxSize)
	}
}

func TestLookupFwdTransform(t *testing.T) {
	db := New()

	tid, ok := db.LookupFwdTransform("bca")
	require.True(t, ok)
	assert.Equal(t, "bca", db.Transform(tid))

	again, ok := db.LookupFwdTransform("bca")
	require.True(t, ok)
	assert.Equal(t, tid, again, "transforms are interned")

	for _, bad := range []string{"aa", "abj", "A", "abcdefghij"} {
		_, ok := db.LookupFwdTransform(bad)
		assert.False(t, ok, "transform %q should be invalid", bad)
	}
}

func TestLookupPattern_BaseTriple(t *testing.T) {
	db := New()
	self := ir.SidSelf

	// a ? b : c
	res, ok := lookup(t, db, self, self, "b", false, self, "c")
	require.True(t, ok)
	assert.Equal(t, "abc?", db.Signature(res.Sid).Name)
	assert.Equal(t, "abc", db.Transform(res.Extract))
	assert.Equal(t, uint32(0), res.Power)

	// a ? !b : c
	res, ok = lookup(t, db, self, self, "b", true, self, "c")
	require.True(t, ok)
	assert.Equal(t, "abc!", db.Signature(res.Sid).Name)
}

func TestLookupPattern_Folds(t *testing.T) {
	db := New()
	self := ir.SidSelf

	// a ? b : a == a AND b
	res, ok := lookup(t, db, self, self, "b", false, self, "a")
	require.True(t, ok)
	assert.Equal(t, "ab&", db.Signature(res.Sid).Name)
	assert.Equal(t, "ab", db.Transform(res.Extract))

	// a ? a : b == a OR b
	res, ok = lookup(t, db, self, self, "a", false, self, "b")
	require.True(t, ok)
	assert.Equal(t, "ab+", db.Signature(res.Sid).Name)

	// a ? !a : 0 == 0
	res, ok = lookup(t, db, self, self, "a", true, ir.SidZero, "")
	require.True(t, ok)
	assert.Equal(t, ir.SidZero, res.Sid)

	// a ? b : b == b, reported as the endpoint in position 1
	res, ok = lookup(t, db, self, self, "b", false, self, "b")
	require.True(t, ok)
	assert.Equal(t, ir.SidSelf, res.Sid)
	assert.Equal(t, "b", db.Transform(res.Extract))
}

func TestLookupPattern_Associativity(t *testing.T) {
	db := New()
	and := mustName(t, db, "ab&")

	// (a AND b) ? c : 0
	left, ok := lookup(t, db, and, ir.SidSelf, "c", false, ir.SidZero, "")
	require.True(t, ok)

	// a ? (b AND c) : 0
	right, ok := lookup(t, db, ir.SidSelf, and, "bc", false, ir.SidZero, "")
	require.True(t, ok)

	assert.Equal(t, left.Sid, right.Sid, "both groupings land on the same class")
	sig := db.Signature(left.Sid)
	assert.Equal(t, 2, sig.Size)
	assert.Equal(t, 3, sig.NumPlaceholder)
	assert.Len(t, sig.SwapRules, 5, "three-way AND is fully symmetric")
}

func TestLookupPattern_PowerCountsSavedNodes(t *testing.T) {
	db := New()
	or := mustName(t, db, "ab+")

	// (a OR b) ? a : 0 == a
	res, ok := lookup(t, db, or, ir.SidSelf, "a", false, ir.SidZero, "")
	require.True(t, ok)
	assert.Equal(t, ir.SidSelf, res.Sid)
	assert.Equal(t, uint32(2), res.Power)
}

func TestLookupPattern_Miss(t *testing.T) {
	db := New()
	qtf := mustName(t, db, "abc?")

	// Six independent endpoints cannot be described by any signature.
	res, ok := lookup(t, db, qtf, qtf, "def", false, ir.SidZero, "")
	assert.False(t, ok)
	assert.Equal(t, ir.SidNone, res.Sid)

	stats := db.Stats()
	assert.Equal(t, 1, stats.Misses)
}

func TestLookupPattern_RejectsMismatchedTransform(t *testing.T) {
	db := New()
	_, ok := db.LookupPatternFirst(ir.SidSelf, ir.SidSelf, mustTransform(t, db, "bc"), false)
	assert.False(t, ok, "SELF has one placeholder")
}
