package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// Oracle is the signature database consumed by the engine.
//
// Implemented by sigdb.DB. Lookups are deterministic; a miss at either
// pattern stage means the triple has no known encoding and is skipped.
type Oracle interface {
	Signature(sid uint32) *ir.Signature
	NumSignatures() int
	LookupFwdTransform(name string) (uint32, bool)
	Transform(tid uint32) string
	LookupPatternFirst(sidQ, sidT, tidT uint32, invT bool) (uint32, bool)
	LookupPatternSecond(first, sidF, tidF uint32) (ir.PatternResult, bool)
	Checksum() uint32
}

// Defaults for tree options.
const (
	// DefaultMaxNodes is the default arena capacity.
	DefaultMaxNodes = 1 << 22

	// DefaultMaxDepth bounds Normalizer recursion. Calls deeper than this
	// only hash-cons the base triple.
	DefaultMaxDepth = 3

	// relocationBudget caps repair passes before the fallback pass runs.
	relocationBudget = 64
)

// Layout sizes the entry point ranges of a tree.
//
// Keys occupy [KStart, OStart), outputs-as-inputs [OStart, EStart) and
// extended entries [EStart, NStart).
type Layout struct {
	NumKeys     int
	NumOutputs  int
	NumExtended int
}

// Total returns the number of entry points.
func (l Layout) Total() int {
	return l.NumKeys + l.NumOutputs + l.NumExtended
}

// Root is a named output of the tree.
type Root struct {
	Name string
	Ref  ir.Ref
}

// Stats counts engine activity.
type Stats struct {
	Nodes       int // arena cells in use
	Groups      int // live interior groups
	Calls       int // top-level Normalizer calls
	Created     int // member nodes linked
	Orphaned    int // member nodes unlinked
	Merges      int // group merges
	Collapses   int // groups collapsed into a terminal
	Relocations int // groups moved to a fresh header
	Lookups     int // oracle second-stage lookups
	Misses      int // oracle misses
	Cyclic      int // members refused because they would close a cycle
	Anomalies   int // fallback repairs
}

// Tree is a canonicalizing group tree.
//
// A Tree is owned by a single builder and is not safe for concurrent use.
// Even lookups compress forwarding paths.
type Tree struct {
	oracle Oracle

	nodes []ir.Node
	index map[ir.NodeKey]uint32

	ostart, estart, nstart uint32
	names                  []string
	roots                  []Root

	maxNodes int
	maxDepth int
	paranoid bool
	pure     bool
	rewrite  bool
	cascade  bool

	logger   *slog.Logger
	progress *progressClock

	marks     []*ir.VersionedMarks
	marksUsed int

	// dirty is the lowest group whose references may have moved since the
	// last repair pass, 0 when clean.
	dirty      uint32
	rederiving map[uint32]bool
	patterns   map[uint32]*notation.Program

	stats Stats
}

// Option configures a Tree.
type Option func(*Tree)

// WithMaxNodes sets the arena capacity.
//
// Default: DefaultMaxNodes.
func WithMaxNodes(n int) Option {
	return func(t *Tree) {
		t.maxNodes = n
	}
}

// WithMaxDepth sets the Normalizer recursion cap.
//
// Default: DefaultMaxDepth. Depth 1 disables the combination search.
func WithMaxDepth(depth int) Option {
	return func(t *Tree) {
		t.maxDepth = depth
	}
}

// WithParanoid enables a strict Validate after every top-level call.
func WithParanoid(on bool) Option {
	return func(t *Tree) {
		t.paranoid = on
	}
}

// WithPure restricts group members to single-operator signatures.
func WithPure(on bool) Option {
	return func(t *Tree) {
		t.pure = on
	}
}

// WithRewrite toggles the combination search over group members.
func WithRewrite(on bool) Option {
	return func(t *Tree) {
		t.rewrite = on
	}
}

// WithCascade toggles re-expansion of multi-operator results.
func WithCascade(on bool) Option {
	return func(t *Tree) {
		t.cascade = on
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		t.logger = l
	}
}

// WithTimer logs build progress at the given interval. Zero disables it.
func WithTimer(d time.Duration) Option {
	return func(t *Tree) {
		t.progress = newProgressClock(d)
	}
}

// New creates an empty tree with the given entry layout.
func New(oracle Oracle, layout Layout, opts ...Option) (*Tree, error) {
	if oracle == nil {
		return nil, fmt.Errorf("engine: nil oracle")
	}
	if layout.NumKeys < 0 || layout.NumOutputs < 0 || layout.NumExtended < 0 {
		return nil, fmt.Errorf("engine: negative entry count")
	}

	t := &Tree{
		oracle:     oracle,
		index:      make(map[ir.NodeKey]uint32),
		rederiving: make(map[uint32]bool),
		patterns:   make(map[uint32]*notation.Program),
		maxNodes:   DefaultMaxNodes,
		maxDepth:   DefaultMaxDepth,
		rewrite:    true,
		cascade:    true,
		logger:     slog.Default(),
		progress:   newProgressClock(0),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.maxDepth < 1 {
		t.maxDepth = 1
	}

	t.ostart = ir.KStart + uint32(layout.NumKeys)
	t.estart = t.ostart + uint32(layout.NumOutputs)
	t.nstart = t.estart + uint32(layout.NumExtended)
	if int(t.nstart) > t.maxNodes {
		return nil, NewCapacityError(t.maxNodes)
	}

	t.nodes = make([]ir.Node, t.nstart, t.nstart+64)
	t.nodes[ir.ZeroID] = ir.Node{Gid: ir.ZeroID, Sid: ir.SidZero}
	t.nodes[ir.ErrorID] = ir.Node{Gid: ir.ErrorID, Sid: ir.SidNone}
	t.names = make([]string, t.nstart)
	for i := ir.KStart; i < t.nstart; i++ {
		t.nodes[i] = ir.Node{Gid: i, Prev: i, Next: i, Sid: ir.SidSelf}
		t.names[i] = defaultEntryName(i - ir.KStart)
	}
	return t, nil
}

// Oracle returns the signature database the tree was built with.
func (t *Tree) Oracle() Oracle { return t.oracle }

// KStart returns the first entry index.
func (t *Tree) KStart() uint32 { return ir.KStart }

// OStart returns the first output-as-input entry index.
func (t *Tree) OStart() uint32 { return t.ostart }

// EStart returns the first extended entry index.
func (t *Tree) EStart() uint32 { return t.estart }

// NStart returns the first interior index.
func (t *Tree) NStart() uint32 { return t.nstart }

// NumNodes returns the number of arena cells in use.
func (t *Tree) NumNodes() int { return len(t.nodes) }

// Node returns a copy of arena cell id.
func (t *Tree) Node(id uint32) ir.Node { return t.nodes[id] }

// Entry returns a reference to entry point i (0-based).
func (t *Tree) Entry(i int) ir.Ref {
	return ir.MakeRef(ir.KStart+uint32(i), false)
}

// NumEntries returns the number of entry points.
func (t *Tree) NumEntries() int { return int(t.nstart - ir.KStart) }

// EntryName returns the name of entry i (0-based).
func (t *Tree) EntryName(i int) string { return t.names[ir.KStart+uint32(i)] }

// SetEntryName renames entry i (0-based).
func (t *Tree) SetEntryName(i int, name string) { t.names[ir.KStart+uint32(i)] = name }

// AddRoot records a named output.
func (t *Tree) AddRoot(name string, r ir.Ref) {
	t.roots = append(t.roots, Root{Name: name, Ref: r})
}

// Roots returns the named outputs with their references chased to the
// current groups.
func (t *Tree) Roots() []Root {
	out := make([]Root, len(t.roots))
	for i, r := range t.roots {
		out[i] = Root{Name: r.Name, Ref: t.Resolve(r.Ref)}
	}
	return out
}

// Stats returns a snapshot of the activity counters.
func (t *Tree) Stats() Stats {
	s := t.stats
	s.Nodes = len(t.nodes)
	s.Groups = 0
	for id := t.nstart; id < uint32(len(t.nodes)); id++ {
		if t.isLiveHeader(id) {
			s.Groups++
		}
	}
	return s
}

func defaultEntryName(i uint32) string {
	return fmt.Sprintf("k%d", i)
}

// ============================================================================
// Arena primitives
// ============================================================================

// chase follows group forwarding to its fixpoint, compressing the path of
// forwarded headers.
func (t *Tree) chase(id uint32) uint32 {
	root := id
	for t.nodes[root].Gid != root {
		root = t.nodes[root].Gid
	}
	for id != root {
		next := t.nodes[id].Gid
		if t.isHeaderCell(id) {
			t.nodes[id].Gid = root
		}
		id = next
	}
	return root
}

// Resolve chases r to its current group, keeping the polarity bit.
func (t *Tree) Resolve(r ir.Ref) ir.Ref {
	return ir.MakeRef(t.chase(r.ID()), r.Inverted())
}

// isHeaderCell reports whether id was allocated as a group header.
// Headers keep Sid == SidSelf forever, members never use it.
func (t *Tree) isHeaderCell(id uint32) bool {
	return id >= t.nstart && t.nodes[id].Sid == ir.SidSelf
}

// isLiveHeader reports whether id heads a group that has not been merged.
func (t *Tree) isLiveHeader(id uint32) bool {
	return t.isHeaderCell(id) && t.nodes[id].Gid == id
}

// isTerminal reports whether id is the constant or an entry point.
func (t *Tree) isTerminal(id uint32) bool {
	return id < t.nstart
}

func (t *Tree) alloc(n ir.Node) (uint32, error) {
	if len(t.nodes) >= t.maxNodes {
		return 0, NewCapacityError(t.maxNodes)
	}
	id := uint32(len(t.nodes))
	t.nodes = append(t.nodes, n)
	return id, nil
}

// newHeader allocates an empty group.
func (t *Tree) newHeader() (uint32, error) {
	id, err := t.alloc(ir.Node{Sid: ir.SidSelf})
	if err != nil {
		return 0, err
	}
	t.nodes[id].Gid = id
	t.nodes[id].Prev = id
	t.nodes[id].Next = id
	return id, nil
}

// members returns a snapshot of the live members of group gid.
func (t *Tree) members(gid uint32) []uint32 {
	var out []uint32
	if t.isTerminal(gid) {
		return out
	}
	for id := t.nodes[gid].Next; id != gid && id != 0; id = t.nodes[id].Next {
		out = append(out, id)
	}
	return out
}

// link appends member id to the list of gid.
func (t *Tree) link(id, gid uint32) {
	last := t.nodes[gid].Prev
	t.nodes[id].Gid = gid
	t.nodes[id].Prev = last
	t.nodes[id].Next = gid
	t.nodes[last].Next = id
	t.nodes[gid].Prev = id
	t.stats.Created++
}

// unlink removes member id from its list without touching Gid.
func (t *Tree) unlink(id uint32) {
	n := &t.nodes[id]
	if n.Prev == 0 && n.Next == 0 {
		return
	}
	t.nodes[n.Prev].Next = n.Next
	t.nodes[n.Next].Prev = n.Prev
	n.Prev, n.Next = 0, 0
}

// orphan unlinks member id and forwards it to fwd.
func (t *Tree) orphan(id, fwd uint32) {
	if t.nodes[id].Prev != 0 || t.nodes[id].Next != 0 {
		t.stats.Orphaned++
	}
	t.unlink(id)
	t.nodes[id].Gid = fwd
}

// isOrphan reports whether member id is unlinked.
func (t *Tree) isOrphan(id uint32) bool {
	return t.nodes[id].Prev == 0 && t.nodes[id].Next == 0
}

// chasedSlots returns the slots of node id resolved to current groups.
func (t *Tree) chasedSlots(id uint32) [ir.MaxSlots]uint32 {
	var out [ir.MaxSlots]uint32
	n := &t.nodes[id]
	for i, s := range n.Slots {
		if s == 0 {
			break
		}
		out[i] = t.chase(s)
	}
	return out
}

// ============================================================================
// Mark pool
// ============================================================================

// acquireMarks returns a cleared mark set sized to the arena. Mark sets are
// released in strict LIFO order.
func (t *Tree) acquireMarks() *ir.VersionedMarks {
	if t.marksUsed == len(t.marks) {
		t.marks = append(t.marks, ir.NewVersionedMarks(len(t.nodes)))
	}
	m := t.marks[t.marksUsed]
	t.marksUsed++
	m.Grow(cap(t.nodes))
	m.Bump()
	return m
}

// releaseMarks returns m to the pool.
func (t *Tree) releaseMarks(m *ir.VersionedMarks) {
	if t.marksUsed == 0 || t.marks[t.marksUsed-1] != m {
		panic("engine: mark sets released out of order")
	}
	t.marksUsed--
}
