// Package sigdb is the reference signature oracle.
//
// The catalog enumerates every zero-preserving Boolean function of up to
// ir.MaxPlaceholders placeholders that can be written with at most MaxSize
// operator nodes, one signature per class of functions equal under
// placeholder permutation. A signature carries its minimal postfix pattern,
// its truth table and its swap rules (the permutations it is symmetric
// under).
//
// Pattern lookups come in two stages, mirroring how the engine walks a
// "Q ? T : F" triple. Stage one binds the Q and T legs (T through a
// transform that places its placeholders among the merged endpoints),
// stage two adds the F leg and yields the signature of the whole triple
// plus the transform that extracts its slots. Results are memoized per DB.
//
// Every group function is zero preserving: all-false inputs give false.
// Inversion lives only on references, never inside a pattern.
package sigdb
