package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtree/internal/ir"
)

func TestValidate_FreshTree(t *testing.T) {
	tree := newTestTree(t, 8)
	assert.NoError(t, tree.Validate(true))
}

func TestValidate_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		corrupt func(tree *Tree, g, id uint32)
		msg     string
	}{
		{
			name:    "constant cell",
			corrupt: func(tree *Tree, g, id uint32) { tree.nodes[ir.ZeroID].Gid = 5 },
			msg:     "constant cell corrupted",
		},
		{
			name:    "member names another group",
			corrupt: func(tree *Tree, g, id uint32) { tree.nodes[id].Gid = ir.KStart },
			msg:     "member names group",
		},
		{
			name:    "broken back link",
			corrupt: func(tree *Tree, g, id uint32) { tree.nodes[id].Prev = ir.KStart },
			msg:     "broken back link",
		},
		{
			name:    "slot past placeholders",
			corrupt: func(tree *Tree, g, id uint32) { tree.nodes[id].Slots[5] = ir.KStart },
			msg:     "used beyond",
		},
		{
			name:    "sentinel slot",
			corrupt: func(tree *Tree, g, id uint32) { tree.nodes[id].Slots[0] = ir.ErrorID },
			msg:     "invalid id",
		},
		{
			name:    "self reference",
			strict:  true,
			corrupt: func(tree *Tree, g, id uint32) { tree.nodes[id].Slots[0] = g },
			msg:     "self-reference",
		},
		{
			name:    "colliding slots",
			strict:  true,
			corrupt: func(tree *Tree, g, id uint32) { tree.nodes[id].Slots[1] = tree.nodes[id].Slots[0] },
			msg:     "collide",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree := newTestTree(t, 2)
			r := mustAdd(t, tree, tree.Entry(0), tree.Entry(1), 0)
			g := r.ID()
			id := memberWith(tree, g, mustSid(t, tree, "ab&"))
			require.NotZero(t, id)
			require.NoError(t, tree.Validate(true))

			tc.corrupt(tree, g, id)
			err := tree.Validate(tc.strict)
			require.Error(t, err)
			assert.True(t, IsInconsistencyError(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestValidate_ForwardReference(t *testing.T) {
	tree := newTestTree(t, 3)
	ab := mustAdd(t, tree, tree.Entry(0), tree.Entry(1), 0)
	abc := mustAdd(t, tree, ab, tree.Entry(2), 0)
	require.Greater(t, abc.ID(), ab.ID())

	id := memberWith(tree, ab.ID(), mustSid(t, tree, "ab&"))
	require.NotZero(t, id)
	tree.nodes[id].Slots[1] = abc.ID()

	assert.NoError(t, tree.Validate(false))
	err := tree.Validate(true)
	require.Error(t, err)

	var ie *InconsistencyError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "forward reference", ie.Message)
	assert.Equal(t, "1", ie.Details["slot"])
}

func TestValidate_ParanoidBuild(t *testing.T) {
	tree := newTestTree(t, 4, WithParanoid(true))
	for _, s := range []string{"ab&c&d&", "abcd&&&", "ab^cd^^", "ac^bd^^", "abc?d+", "ab&cd&+ac&bd&+^"} {
		_, err := tree.LoadStringSafe(s)
		require.NoError(t, err, s)
	}
	assert.NoError(t, tree.Validate(true))
}
