// Package store persists built trees.
//
// Two forms are supported:
//   - Tree files: a fixed little-endian header followed by node records,
//     root references and a NUL-separated name table, guarded by CRC32.
//     Files are memory mapped where the platform allows and read whole
//     otherwise.
//   - Archives: a SQLite database holding many tree files with their
//     metadata, keyed by UUIDv7.
//
// # Tree file layout
//
//	header   12 x uint32: Magic, Version, Flags, SidCRC, KStart, OStart,
//	         EStart, NStart, NumNodes, NumRoots, NameBytes, Crc32
//	records  (NumNodes - NStart) x 10 x uint32: sid, 9 slot ids
//	roots    NumRoots x uint32: id | polarity bit
//	names    NameBytes: entry names then root names, each NUL-terminated
//
// Crc32 covers everything after the header. Names are stored in Unicode
// normalization form C.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: Root rows follow their tree
//
// Listing order is deterministic: ORDER BY seq ASC, id COLLATE BINARY ASC.
package store
