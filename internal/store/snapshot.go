package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/layersync/internal/ir"
)

// SnapshotInfo is a snapshot header.
type SnapshotInfo struct {
	Name   string `json:"name"`
	Hash   string `json:"hash"`
	Layers int    `json:"layers"`
}

// SaveSnapshot stores layers under name, replacing any snapshot with the
// same name atomically, and returns the stored snapshot with its hash.
func (s *Store) SaveSnapshot(ctx context.Context, name string, layers []ir.SnapshotLayer) (ir.Snapshot, error) {
	hash, err := ir.SnapshotHash(layers)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("save snapshot %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	// snapshot_layers rows go with it (ON DELETE CASCADE).
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return ir.Snapshot{}, fmt.Errorf("save snapshot %q: delete: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (name, hash) VALUES (?, ?)`, name, hash); err != nil {
		return ir.Snapshot{}, fmt.Errorf("save snapshot %q: insert: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_layers (snapshot, ord, depth, layer_id, is_group, properties)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("save snapshot %q: prepare: %w", name, err)
	}
	defer stmt.Close()

	ord := 0
	var insert func(layers []ir.SnapshotLayer, depth int) error
	insert = func(layers []ir.SnapshotLayer, depth int) error {
		for _, l := range layers {
			props, err := marshalProperties(l.Properties)
			if err != nil {
				return fmt.Errorf("layer %s: %w", l.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, name, ord, depth, l.ID, l.Group, props); err != nil {
				return fmt.Errorf("layer %s: %w", l.ID, err)
			}
			ord++
			if err := insert(l.Children, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(layers, 0); err != nil {
		return ir.Snapshot{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return ir.Snapshot{}, fmt.Errorf("save snapshot %q: commit: %w", name, err)
	}
	return ir.Snapshot{Name: name, Hash: hash, Layers: layers}, nil
}

// LoadSnapshot reads the snapshot stored under name and verifies its hash.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (ir.Snapshot, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM snapshots WHERE name = ?`, name).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Snapshot{}, fmt.Errorf("load snapshot %q: %w", name, ErrSnapshotNotFound)
	}
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT depth, layer_id, is_group, properties
		FROM snapshot_layers
		WHERE snapshot = ?
		ORDER BY ord ASC
	`, name)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("load snapshot %q: query layers: %w", name, err)
	}
	defer rows.Close()

	var flat []storedLayer
	for rows.Next() {
		var row storedLayer
		var props string
		if err := rows.Scan(&row.depth, &row.layer.ID, &row.layer.Group, &props); err != nil {
			return ir.Snapshot{}, fmt.Errorf("load snapshot %q: scan: %w", name, err)
		}
		if row.layer.Properties, err = unmarshalProperties(props); err != nil {
			return ir.Snapshot{}, fmt.Errorf("load snapshot %q: layer %s: %w", name, row.layer.ID, err)
		}
		flat = append(flat, row)
	}
	if err := rows.Err(); err != nil {
		return ir.Snapshot{}, fmt.Errorf("load snapshot %q: iterate: %w", name, err)
	}

	layers, err := buildTree(flat)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}

	got, err := ir.SnapshotHash(layers)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	if got != hash {
		return ir.Snapshot{}, fmt.Errorf("load snapshot %q: hash mismatch: stored %s, computed %s", name, hash, got)
	}
	return ir.Snapshot{Name: name, Hash: hash, Layers: layers}, nil
}

// ListSnapshots returns every snapshot header, by name.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.hash, COUNT(l.ord)
		FROM snapshots s
		LEFT JOIN snapshot_layers l ON l.snapshot = s.name AND l.depth = 0
		GROUP BY s.name, s.hash
		ORDER BY s.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Name, &info.Hash, &info.Layers); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

type storedLayer struct {
	depth int
	layer ir.SnapshotLayer
}

// buildTree rebuilds the layer tree from pre-order rows.
func buildTree(flat []storedLayer) ([]ir.SnapshotLayer, error) {
	pos := 0
	var build func(depth int) ([]ir.SnapshotLayer, error)
	build = func(depth int) ([]ir.SnapshotLayer, error) {
		out := []ir.SnapshotLayer{}
		for pos < len(flat) {
			row := flat[pos]
			if row.depth < depth {
				break
			}
			if row.depth > depth {
				return nil, fmt.Errorf("layer %s at depth %d has no parent", row.layer.ID, row.depth)
			}
			pos++
			l := row.layer
			if l.Group {
				children, err := build(depth + 1)
				if err != nil {
					return nil, err
				}
				l.Children = children
			}
			out = append(out, l)
		}
		return out, nil
	}
	return build(0)
}
