// Package engine implements the canonicalizing group tree.
//
// Every Boolean function is built from "Q ? T : F" triples. A Tree stores
// functions as groups: a group is a set of member nodes that each describe
// the same function as a catalogued signature over slot groups. Adding a
// triple runs it through the Normalizer, which reduces it to one of six
// level-2 forms, looks the result up through the signature Oracle, and
// searches alternative member combinations of the operand groups for
// further descriptions. Two groups found to compute the same function are
// merged.
//
// ARCHITECTURE:
//
// Arena:
// Cell 0 is the constant false and cell 1 the sentinel. Entry points follow
// from KStart. Headers and members share the arena and are linked into
// circular lists per group. Merged groups forward to their survivor through
// Gid; chase resolves forwards and compresses the path.
//
// Ordering:
// After every top-level call each member references only groups with a
// smaller id. Merges that break this mark the tree dirty; updateGroups
// scrubs from the watermark and relocates offending groups past everything
// they reference.
//
// CRITICAL PATTERNS:
//
// Single builder:
// A Tree is used by one goroutine. Reads chase forwards and compress them,
// so callers needing parallelism export a Snapshot first.
//
// Deterministic:
// The same sequence of calls against the same Oracle yields the same arena.
// Maps are only used for lookup, never iterated to decide an outcome.
package engine
