// Package harness checks built trees against their source expressions.
//
// Equivalence is decided by evaluation when a tree has at most six entries
// (every assignment fits one 64-bit word) and by SAT otherwise: the XOR of
// the two functions is handed to gophersat and must be unsatisfiable.
//
// # Scenario Format
//
// Scenarios are YAML files with strict fields:
//
//	name: full_adder
//	description: "Sum and carry share the xor of the first two bits"
//	keys: 3
//	options:
//	  paranoid: true
//	exprs:
//	  - name: sum
//	    expr: "ab^c^"
//	  - name: carry
//	    expr: "ab&ab^c&+"
//	assertions:
//	  - type: same_group
//	    names: [carry, maj]
//	  - type: equivalent
//	    names: [sum, sum2]
//	  - type: canonical
//	    name: and
//	    want: "ab&"
//	  - type: max_groups
//	    count: 4
//
// # Assertion Types
//
//   - same_group: every named expression resolves to one reference
//   - distinct: the named expressions resolve to different references
//   - equivalent: the named expressions compute the same function
//   - canonical: the saved notation of an expression equals want
//   - constant: an expression folded to the constant given by value
//   - max_groups: the tree holds at most count live groups
//
// # Deterministic Testing
//
// Every scenario builds a fresh tree with the reference oracle, so traces
// are identical across runs and can be compared against golden files.
package harness
