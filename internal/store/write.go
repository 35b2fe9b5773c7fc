package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/scene"
)

// Meta keys written by LoadScene.
const (
	MetaSceneHash = "scene_hash"
)

// LoadScene replaces the stored scene with s in one transaction and records
// its content hash. Nodes must be declared parent-first.
func (s *Store) LoadScene(ctx context.Context, sc *ir.Scene) error {
	types, err := scene.NewHierarchy(sc.Types)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	hash, err := ir.SceneHash(sc)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load scene: begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM connections",
		"DELETE FROM attributes",
		"DELETE FROM nodes",
		"DELETE FROM node_types",
		"DELETE FROM meta",
		"DELETE FROM sqlite_sequence WHERE name IN ('nodes', 'connections')",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("load scene: %s: %w", stmt, err)
		}
	}

	if err := insertTypes(ctx, tx, types); err != nil {
		return err
	}
	for _, n := range sc.Nodes {
		if !types.Known(n.Type) {
			return fmt.Errorf("load scene: node %q: %w", n.Name, scene.UnknownType(n.Type))
		}
		if err := insertNode(ctx, tx, n); err != nil {
			return err
		}
	}
	for _, c := range sc.Connections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO connections (source, source_attr, target, target_attr)
			VALUES (?, ?, ?, ?)
		`, c.Source, c.SourceAttr, c.Target, c.TargetAttr); err != nil {
			return fmt.Errorf("load scene: connection %s.%s -> %s.%s: %w", c.Source, c.SourceAttr, c.Target, c.TargetAttr, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, MetaSceneHash, hash); err != nil {
		return fmt.Errorf("load scene: meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load scene: commit: %w", err)
	}
	return nil
}

// insertTypes writes the hierarchy root-first so every base row exists
// before the rows that reference it.
func insertTypes(ctx context.Context, tx *sql.Tx, h *scene.Hierarchy) error {
	all := h.Types()
	depth := func(t string) int {
		d := 0
		for cur := t; cur != scene.RootType; d++ {
			cur = h.Base(cur)
		}
		return d
	}
	slices.SortStableFunc(all, func(a, b string) int { return depth(a) - depth(b) })

	for _, t := range all {
		var base any
		if t != scene.RootType {
			base = h.Base(t)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO node_types (name, base) VALUES (?, ?)`, t, base); err != nil {
			return fmt.Errorf("load scene: type %q: %w", t, err)
		}
	}
	return nil
}

func insertNode(ctx context.Context, tx *sql.Tx, n ir.SceneNode) error {
	var parent any
	if n.Parent != "" {
		parent = n.Parent
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (name, type, parent, uuid) VALUES (?, ?, ?, ?)
	`, n.Name, n.Type, parent, n.UUID); err != nil {
		return fmt.Errorf("load scene: node %q: %w", n.Name, err)
	}
	names := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, attr := range names {
		if err := upsertAttribute(ctx, tx, n.Name, attr, n.Attributes[attr]); err != nil {
			return fmt.Errorf("load scene: %w", err)
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertAttribute uses ON CONFLICT DO UPDATE so a write replaces the value.
func upsertAttribute(ctx context.Context, db execer, node, attr string, v ir.IRValue) error {
	data, err := ir.MarshalIRValue(v)
	if err != nil {
		return fmt.Errorf("attribute %s.%s: %w", node, attr, err)
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO attributes (node, name, value) VALUES (?, ?, ?)
		ON CONFLICT(node, name) DO UPDATE SET value = excluded.value
	`, node, attr, string(data)); err != nil {
		return fmt.Errorf("attribute %s.%s: %w", node, attr, err)
	}
	return nil
}

// SetAttribute creates or replaces one attribute value.
func (s *Store) SetAttribute(name, attr string, v ir.IRValue) error {
	ctx := context.Background()
	if err := s.requireNode(ctx, name); err != nil {
		return err
	}
	if err := upsertAttribute(ctx, s.db, name, attr, v); err != nil {
		return fmt.Errorf("set attribute: %w", err)
	}
	return nil
}

// DeleteNode removes a node; foreign key cascades remove its descendants,
// their attributes and every connection touching them.
func (s *Store) DeleteNode(name string) error {
	res, err := s.db.Exec(`DELETE FROM nodes WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete node %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete node %q: %w", name, err)
	}
	if n == 0 {
		return scene.NotFound(ir.IRNode(name))
	}
	return nil
}

func (s *Store) requireNode(ctx context.Context, name string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE name = ?`, name).Scan(&exists)
	if err == sql.ErrNoRows {
		return scene.NotFound(ir.IRNode(name))
	}
	if err != nil {
		return fmt.Errorf("lookup node %q: %w", name, err)
	}
	return nil
}

// SceneHash returns the hash recorded by the last LoadScene, or "" for an
// empty database.
func (s *Store) SceneHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, MetaSceneHash).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read scene hash: %w", err)
	}
	return hash, nil
}
