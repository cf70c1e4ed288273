package sigdb

import (
	"hash/crc32"
	"strings"

	"github.com/roach88/qtree/internal/ir"
	"github.com/roach88/qtree/internal/notation"
)

// DB is a signature database instance.
//
// The signature catalog is built once per process and shared; transform
// interning and pattern lookups are memoized per instance. A DB is owned by
// a single tree and is not safe for concurrent use.
type DB struct {
	cat *catalog

	transformNames []string
	transformIDs   map[string]uint32

	firsts     []firstEntry
	firstIndex map[firstEntry]uint32
	seconds    map[secondKey]secondEntry

	checksum uint32
}

type firstEntry struct {
	sidQ, sidT, tidT uint32
	invT             bool
}

type secondKey struct {
	first, sidF, tidF uint32
}

type secondEntry struct {
	result ir.PatternResult
	ok     bool
}

// Stats counts memoized lookups.
type Stats struct {
	Signatures int
	Transforms int
	Firsts     int
	Seconds    int
	Hits       int
	Misses     int
}

// New returns a database backed by the shared catalog.
func New() *DB {
	cat := loadCatalog()
	db := &DB{
		cat:          cat,
		transformIDs: make(map[string]uint32),
		firstIndex:   make(map[firstEntry]uint32),
		seconds:      make(map[secondKey]secondEntry),
	}
	db.intern("")

	names := make([]string, len(cat.sigs))
	for i, s := range cat.sigs {
		names[i] = s.Name
	}
	db.checksum = crc32.ChecksumIEEE([]byte(strings.Join(names, "\n")))
	return db
}

// Signature returns the signature with id sid, or nil when out of range.
func (db *DB) Signature(sid uint32) *ir.Signature {
	if sid >= uint32(len(db.cat.sigs)) {
		return nil
	}
	return &db.cat.sigs[sid]
}

// Program returns the parsed pattern of signature sid.
func (db *DB) Program(sid uint32) *notation.Program {
	if sid >= uint32(len(db.cat.progs)) {
		return nil
	}
	return db.cat.progs[sid]
}

// NumSignatures returns the number of signature ids, reserved ones included.
func (db *DB) NumSignatures() int {
	return len(db.cat.sigs)
}

// LookupName finds a signature by its postfix pattern.
func (db *DB) LookupName(name string) (uint32, bool) {
	for i := ir.SidZero; i < uint32(len(db.cat.sigs)); i++ {
		if db.cat.sigs[i].Name == name {
			return i, true
		}
	}
	return ir.SidNone, false
}

// Checksum identifies the catalog contents.
func (db *DB) Checksum() uint32 {
	return db.checksum
}

// LookupFwdTransform returns the id of a transform string. A transform
// lists, per placeholder, the letter of the merged endpoint it maps to.
// Letters beyond the slot capacity and repeated letters are invalid.
func (db *DB) LookupFwdTransform(name string) (uint32, bool) {
	if len(name) > ir.MaxSlots {
		return 0, false
	}
	var used uint32
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 'a' || c >= 'a'+ir.MaxSlots {
			return 0, false
		}
		bit := uint32(1) << (c - 'a')
		if used&bit != 0 {
			return 0, false
		}
		used |= bit
	}
	return db.intern(name), true
}

// Transform returns the string of transform tid.
func (db *DB) Transform(tid uint32) string {
	if tid >= uint32(len(db.transformNames)) {
		return ""
	}
	return db.transformNames[tid]
}

func (db *DB) intern(name string) uint32 {
	if id, ok := db.transformIDs[name]; ok {
		return id
	}
	id := uint32(len(db.transformNames))
	db.transformNames = append(db.transformNames, name)
	db.transformIDs[name] = id
	return id
}

// LookupPatternFirst resolves the Q and T legs of a triple. Q's
// placeholders occupy the first merged endpoint positions in order; tidT
// places T's placeholders.
func (db *DB) LookupPatternFirst(sidQ, sidT, tidT uint32, invT bool) (uint32, bool) {
	if db.Signature(sidQ) == nil || db.Signature(sidT) == nil || tidT >= uint32(len(db.transformNames)) {
		return 0, false
	}
	if sidQ == ir.SidNone || sidT == ir.SidNone {
		return 0, false
	}
	if len(db.transformNames[tidT]) != db.cat.sigs[sidT].NumPlaceholder {
		return 0, false
	}
	key := firstEntry{sidQ: sidQ, sidT: sidT, tidT: tidT, invT: invT}
	if idx, ok := db.firstIndex[key]; ok {
		return idx, true
	}
	idx := uint32(len(db.firsts))
	db.firsts = append(db.firsts, key)
	db.firstIndex[key] = idx
	return idx, true
}

// LookupPatternSecond completes a triple with its F leg and returns the
// signature of "Q ? T : F" together with the transform extracting its
// slots from the merged endpoints. A miss means the triple has no known
// encoding within the catalog.
func (db *DB) LookupPatternSecond(first, sidF, tidF uint32) (ir.PatternResult, bool) {
	if first >= uint32(len(db.firsts)) || db.Signature(sidF) == nil || sidF == ir.SidNone || tidF >= uint32(len(db.transformNames)) {
		return ir.PatternResult{}, false
	}
	if len(db.transformNames[tidF]) != db.cat.sigs[sidF].NumPlaceholder {
		return ir.PatternResult{}, false
	}
	key := secondKey{first: first, sidF: sidF, tidF: tidF}
	if e, ok := db.seconds[key]; ok {
		return e.result, e.ok
	}
	res, ok := db.resolve(db.firsts[first], sidF, tidF)
	db.seconds[key] = secondEntry{result: res, ok: ok}
	return res, ok
}

// resolve evaluates the whole triple over the merged endpoints and finds
// its class.
func (db *DB) resolve(fe firstEntry, sidF, tidF uint32) (ir.PatternResult, bool) {
	sigQ := &db.cat.sigs[fe.sidQ]
	sigT := &db.cat.sigs[fe.sidT]
	sigF := &db.cat.sigs[sidF]

	m := sigQ.NumPlaceholder
	legVars := func(transform string) []wide {
		vars := make([]wide, len(transform))
		for i := 0; i < len(transform); i++ {
			pos := int(transform[i] - 'a')
			vars[i] = wideVars[pos]
			if pos+1 > m {
				m = pos + 1
			}
		}
		return vars
	}

	qVars := make([]wide, sigQ.NumPlaceholder)
	for i := range qVars {
		qVars[i] = wideVars[i]
	}
	q := evalWide(db.cat.progs[fe.sidQ], qVars)
	t := evalWide(db.cat.progs[fe.sidT], legVars(db.transformNames[fe.tidT]))
	f := evalWide(db.cat.progs[sidF], legVars(db.transformNames[tidF]))
	if fe.invT {
		t = t.not()
	}
	if m > ir.MaxSlots {
		return ir.PatternResult{}, false
	}
	whole := qtf(q, t, f)

	naive := sigQ.Size + sigT.Size + sigF.Size + 1
	power := func(size int) uint32 {
		if naive <= size {
			return 0
		}
		return uint32(naive - size)
	}

	support := whole.support(m)
	switch len(support) {
	case 0:
		if whole.bit(0) {
			// Not zero preserving: cannot be a group function.
			return ir.PatternResult{}, false
		}
		return ir.PatternResult{Sid: ir.SidZero, Extract: db.intern(""), Power: power(0)}, true
	case 1:
		// A zero-preserving function of one variable is that variable.
		return ir.PatternResult{Sid: ir.SidSelf, Extract: db.intern(string(rune('a' + support[0]))), Power: power(0)}, true
	}
	if len(support) > ir.MaxPlaceholders {
		return ir.PatternResult{}, false
	}

	k := len(support)
	proj := whole.project(support)
	sid, ok := db.cat.classes[classKey{k: uint8(k), table: canonical(proj, k)}]
	if !ok {
		return ir.PatternResult{}, false
	}
	sig := &db.cat.sigs[sid]

	// Find q with sig.Table·q == proj: placeholder i of sig is fed by
	// support variable q[i].
	for _, p := range perms[k] {
		if permute(sig.Table, k, p) != proj {
			continue
		}
		extract := make([]byte, k)
		for i := 0; i < k; i++ {
			extract[i] = byte('a' + support[p[i]])
		}
		return ir.PatternResult{Sid: sid, Extract: db.intern(string(extract)), Power: power(sig.Size)}, true
	}
	return ir.PatternResult{}, false
}

// Stats reports memoization counters.
func (db *DB) Stats() Stats {
	s := Stats{
		Signatures: len(db.cat.sigs),
		Transforms: len(db.transformNames),
		Firsts:     len(db.firsts),
		Seconds:    len(db.seconds),
	}
	for _, e := range db.seconds {
		if e.ok {
			s.Hits++
		} else {
			s.Misses++
		}
	}
	return s
}
