package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qtree/internal/engine"
	"github.com/roach88/qtree/internal/ir"
)

var (
	// ErrNotFound is returned when an archive holds no tree with the given id.
	ErrNotFound = errors.New("tree not found")

	// ErrDigest is returned when an archived blob no longer matches the
	// digest recorded when it was saved.
	ErrDigest = errors.New("tree digest mismatch")
)

// TreeInfo describes an archived tree without decoding it.
type TreeInfo struct {
	ID         string
	Seq        int64
	Name       string
	SidCRC     uint32
	NumEntries int
	NumRecords int
	Digest     string // ir.TreeDigest of the encoded file
	Roots      []string
}

// SaveTree archives a snapshot under a fresh UUIDv7 and returns the id.
// seq is assigned from the archive's own counter, never the wall clock.
func (s *Store) SaveTree(ctx context.Context, name string, snap *engine.Snapshot) (string, error) {
	data, err := Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("save tree: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("save tree: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save tree: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM trees`).Scan(&seq); err != nil {
		return "", fmt.Errorf("save tree: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trees
		(id, seq, name, sid_crc, num_entries, num_records, num_roots, data, digest, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id.String(),
		seq,
		norm.NFC.String(name),
		int64(snap.SidCRC),
		len(snap.Names),
		len(snap.Records),
		len(snap.Roots),
		data,
		ir.TreeDigest(data),
		ir.EngineVersion,
	)
	if err != nil {
		return "", fmt.Errorf("save tree: %w", err)
	}

	for i, r := range snap.Roots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tree_roots (tree_id, pos, name) VALUES (?, ?, ?)
		`, id.String(), i, norm.NFC.String(r.Name)); err != nil {
			return "", fmt.Errorf("save tree: root %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save tree: %w", err)
	}
	return id.String(), nil
}

// LoadTree decodes the archived tree with the given id.
func (s *Store) LoadTree(ctx context.Context, id string) (*engine.Snapshot, error) {
	var data []byte
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT data, digest FROM trees WHERE id = ?`, id).Scan(&data, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load tree %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", id, err)
	}
	if ir.TreeDigest(data) != digest {
		return nil, fmt.Errorf("load tree %s: %w", id, ErrDigest)
	}
	snap, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load tree %s: %w", id, err)
	}
	return snap, nil
}

// ListTrees returns every archived tree in archive order.
// Returns an empty slice (not nil) for an empty archive.
func (s *Store) ListTrees(ctx context.Context) ([]TreeInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, name, sid_crc, num_entries, num_records, digest
		FROM trees
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query trees: %w", err)
	}
	defer rows.Close()

	trees := []TreeInfo{}
	for rows.Next() {
		var info TreeInfo
		var crc int64
		if err := rows.Scan(&info.ID, &info.Seq, &info.Name, &crc, &info.NumEntries, &info.NumRecords, &info.Digest); err != nil {
			return nil, fmt.Errorf("scan tree: %w", err)
		}
		info.SidCRC = uint32(crc)
		trees = append(trees, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trees: %w", err)
	}

	for i := range trees {
		roots, err := s.rootNames(ctx, trees[i].ID)
		if err != nil {
			return nil, err
		}
		trees[i].Roots = roots
	}
	return trees, nil
}

func (s *Store) rootNames(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM tree_roots WHERE tree_id = ? ORDER BY pos ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// DeleteTree removes an archived tree and its roots.
func (s *Store) DeleteTree(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tree %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete tree %s: %w", id, ErrNotFound)
	}
	return nil
}
