// Package ir provides the arena vocabulary shared by every qtree package:
// references, nodes, signatures and operator forms.
//
// This package contains type definitions and small helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Arena indices are uint32; index 0 is the constant false
//   - Polarity lives in the high bit of a Ref, never in a node
//   - Slots are packed from the front and zero-terminated
package ir
