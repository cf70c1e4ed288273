package ir

// Version constants for the tree format and engine.
const (
	// FormatVersion is the binary tree file format version.
	FormatVersion = 1

	// EngineVersion is the qtree engine version.
	EngineVersion = "0.1.0"
)
