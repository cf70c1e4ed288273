// Package testutil provides deterministic input generators for tests.
//
// Generators are seeded explicitly so that a failing case can be replayed
// from its seed alone.
package testutil
