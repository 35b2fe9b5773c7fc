package memscene

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/go-memdb"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/scene"
)

// Store is an in-memory scene backend on go-memdb. Reads run against a
// snapshot transaction; mutations are serialized by memdb's writer lock.
type Store struct {
	db      *memdb.MemDB
	types   *scene.Hierarchy
	nodeSeq int
	connSeq int
}

var _ scene.Backend = (*Store)(nil)

// New loads a compiled scene into a fresh in-memory store.
func New(s *ir.Scene) (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	types, err := scene.NewHierarchy(s.Types)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	st := &Store{db: db, types: types}

	txn := db.Txn(true)
	defer txn.Abort()
	for _, n := range s.Nodes {
		if err := st.insertNode(txn, n); err != nil {
			return nil, err
		}
	}
	for _, c := range s.Connections {
		if err := st.insertConnection(txn, c); err != nil {
			return nil, err
		}
	}
	txn.Commit()
	return st, nil
}

// Types returns the store's type hierarchy.
func (s *Store) Types() *scene.Hierarchy { return s.types }

func (s *Store) insertNode(txn *memdb.Txn, n ir.SceneNode) error {
	if !s.types.Known(n.Type) {
		return fmt.Errorf("node %q: %w", n.Name, scene.UnknownType(n.Type))
	}
	existing, err := txn.First(tableNode, indexID, n.Name)
	if err != nil {
		return fmt.Errorf("lookup node %q: %w", n.Name, err)
	}
	if existing != nil {
		return fmt.Errorf("node %q already exists", n.Name)
	}
	if n.Parent != "" {
		parent, err := txn.First(tableNode, indexID, n.Parent)
		if err != nil {
			return fmt.Errorf("lookup parent %q: %w", n.Parent, err)
		}
		if parent == nil {
			return fmt.Errorf("node %q: parent %w", n.Name, scene.NotFound(ir.IRNode(n.Parent)))
		}
	}

	s.nodeSeq++
	row := &node{Name: n.Name, Type: n.Type, Parent: n.Parent, UUID: n.UUID, Seq: s.nodeSeq}
	if err := txn.Insert(tableNode, row); err != nil {
		return fmt.Errorf("insert node %q: %w", n.Name, err)
	}
	for name, v := range n.Attributes {
		if err := txn.Insert(tableAttribute, &attribute{Node: n.Name, Name: name, Value: v}); err != nil {
			return fmt.Errorf("insert attribute %s.%s: %w", n.Name, name, err)
		}
	}
	return nil
}

func (s *Store) insertConnection(txn *memdb.Txn, c ir.Connection) error {
	for _, end := range []string{c.Source, c.Target} {
		raw, err := txn.First(tableNode, indexID, end)
		if err != nil {
			return fmt.Errorf("lookup node %q: %w", end, err)
		}
		if raw == nil {
			return fmt.Errorf("connection %s.%s -> %s.%s: %w", c.Source, c.SourceAttr, c.Target, c.TargetAttr, scene.NotFound(ir.IRNode(end)))
		}
	}
	s.connSeq++
	row := &connection{Seq: s.connSeq, Source: c.Source, SourceAttr: c.SourceAttr, Target: c.Target, TargetAttr: c.TargetAttr}
	if err := txn.Insert(tableConnection, row); err != nil {
		return fmt.Errorf("insert connection: %w", err)
	}
	return nil
}

// AddNode inserts a node after load.
func (s *Store) AddNode(n ir.SceneNode) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := s.insertNode(txn, n); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Connect adds a connection after load.
func (s *Store) Connect(c ir.Connection) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := s.insertConnection(txn, c); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// SetAttribute creates or replaces one attribute value.
func (s *Store) SetAttribute(name, attr string, v ir.IRValue) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tableNode, indexID, name)
	if err != nil {
		return fmt.Errorf("lookup node %q: %w", name, err)
	}
	if raw == nil {
		return scene.NotFound(ir.IRNode(name))
	}
	if err := txn.Insert(tableAttribute, &attribute{Node: name, Name: attr, Value: v}); err != nil {
		return fmt.Errorf("set %s.%s: %w", name, attr, err)
	}
	txn.Commit()
	return nil
}

// DeleteAttribute removes one attribute; removing a missing one is a no-op.
func (s *Store) DeleteAttribute(name, attr string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableAttribute, indexID, name, attr); err != nil {
		return fmt.Errorf("delete %s.%s: %w", name, attr, err)
	}
	txn.Commit()
	return nil
}

// DeleteNode removes a node with its DAG descendants, their attributes and
// every connection touching them.
func (s *Store) DeleteNode(name string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tableNode, indexID, name)
	if err != nil {
		return fmt.Errorf("lookup node %q: %w", name, err)
	}
	if raw == nil {
		return scene.NotFound(ir.IRNode(name))
	}
	doomed, err := descendants(txn, name)
	if err != nil {
		return err
	}
	doomed = append([]*node{raw.(*node)}, doomed...)
	for _, n := range doomed {
		if err := txn.Delete(tableNode, n); err != nil {
			return fmt.Errorf("delete node %q: %w", n.Name, err)
		}
		if _, err := txn.DeleteAll(tableAttribute, indexNode, n.Name); err != nil {
			return fmt.Errorf("delete attributes of %q: %w", n.Name, err)
		}
		if _, err := txn.DeleteAll(tableConnection, indexSource, n.Name); err != nil {
			return fmt.Errorf("delete connections of %q: %w", n.Name, err)
		}
		if _, err := txn.DeleteAll(tableConnection, indexTarget, n.Name); err != nil {
			return fmt.Errorf("delete connections of %q: %w", n.Name, err)
		}
	}
	txn.Commit()
	return nil
}

func (s *Store) QueryByType(ctx context.Context, types []string, ns scene.Namespace) ([]ir.IRNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	var rows []*node
	if len(types) == 0 {
		all, err := collect[node](txn.Get(tableNode, indexID))
		if err != nil {
			return nil, fmt.Errorf("query nodes: %w", err)
		}
		rows = all
	} else {
		expanded, err := s.types.Expand(types)
		if err != nil {
			return nil, err
		}
		for _, t := range expanded {
			typed, err := collect[node](txn.Get(tableNode, indexType, t))
			if err != nil {
				return nil, fmt.Errorf("query type %q: %w", t, err)
			}
			rows = append(rows, typed...)
		}
	}
	sortNodes(rows)

	out := make([]ir.IRNode, 0, len(rows))
	for _, n := range rows {
		id := ir.IRNode(n.Name)
		if ns.Match(id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) ListRelationship(ctx context.Context, ids []ir.IRNode, kind scene.Relationship) ([]ir.IRNode, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("list relationship: invalid kind %v", kind)
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	out := []ir.IRNode{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := txn.First(tableNode, indexID, string(id))
		if err != nil {
			return nil, fmt.Errorf("lookup node %q: %w", id, err)
		}
		if raw == nil {
			return nil, scene.NotFound(id)
		}
		related, err := relate(txn, raw.(*node), kind)
		if err != nil {
			return nil, err
		}
		out = append(out, related...)
	}
	return out, nil
}

func relate(txn *memdb.Txn, n *node, kind scene.Relationship) ([]ir.IRNode, error) {
	switch kind {
	case scene.Parents:
		if n.Parent == "" {
			return nil, nil
		}
		return []ir.IRNode{ir.IRNode(n.Parent)}, nil
	case scene.AllParents:
		var out []ir.IRNode
		for cur := n; cur.Parent != ""; {
			out = append(out, ir.IRNode(cur.Parent))
			raw, err := txn.First(tableNode, indexID, cur.Parent)
			if err != nil || raw == nil {
				return out, err
			}
			cur = raw.(*node)
		}
		return out, nil
	case scene.Children:
		kids, err := children(txn, n.Name)
		return names(kids), err
	case scene.AllChildren:
		all, err := descendants(txn, n.Name)
		return names(all), err
	case scene.Connections:
		in, err := neighbours(txn, n.Name, indexTarget)
		if err != nil {
			return nil, err
		}
		outgoing, err := neighbours(txn, n.Name, indexSource)
		if err != nil {
			return nil, err
		}
		return uniqueExcluding(n.Name, append(in, outgoing...)), nil
	case scene.History:
		return walk(txn, n.Name, indexTarget)
	case scene.Future:
		return walk(txn, n.Name, indexSource)
	}
	return nil, fmt.Errorf("unsupported relationship %v", kind)
}

func children(txn *memdb.Txn, name string) ([]*node, error) {
	kids, err := collect[node](txn.Get(tableNode, indexParent, name))
	if err != nil {
		return nil, fmt.Errorf("children of %q: %w", name, err)
	}
	sortNodes(kids)
	return kids, nil
}

// descendants returns the subtree under name in depth-first preorder.
func descendants(txn *memdb.Txn, name string) ([]*node, error) {
	kids, err := children(txn, name)
	if err != nil {
		return nil, err
	}
	var out []*node
	for _, k := range kids {
		out = append(out, k)
		sub, err := descendants(txn, k.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// neighbours follows connections one hop. via=indexTarget walks upstream
// (returns sources), via=indexSource walks downstream (returns targets).
func neighbours(txn *memdb.Txn, name, via string) ([]ir.IRNode, error) {
	conns, err := collect[connection](txn.Get(tableConnection, via, name))
	if err != nil {
		return nil, fmt.Errorf("connections of %q: %w", name, err)
	}
	slices.SortFunc(conns, func(a, b *connection) int { return a.Seq - b.Seq })
	out := make([]ir.IRNode, 0, len(conns))
	for _, c := range conns {
		if via == indexTarget {
			out = append(out, ir.IRNode(c.Source))
		} else {
			out = append(out, ir.IRNode(c.Target))
		}
	}
	return out, nil
}

// walk is a breadth-first closure over neighbours, excluding the start node.
func walk(txn *memdb.Txn, start, via string) ([]ir.IRNode, error) {
	seen := map[ir.IRNode]bool{ir.IRNode(start): true}
	var out []ir.IRNode
	frontier := []ir.IRNode{ir.IRNode(start)}
	for len(frontier) > 0 {
		var next []ir.IRNode
		for _, cur := range frontier {
			hop, err := neighbours(txn, string(cur), via)
			if err != nil {
				return nil, err
			}
			for _, h := range hop {
				if !seen[h] {
					seen[h] = true
					out = append(out, h)
					next = append(next, h)
				}
			}
		}
		frontier = next
	}
	return out, nil
}

func uniqueExcluding(self string, ids []ir.IRNode) []ir.IRNode {
	seen := map[ir.IRNode]bool{ir.IRNode(self): true}
	out := make([]ir.IRNode, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) ReadAttributeBulk(ctx context.Context, ids []ir.IRNode, attr string) (map[ir.IRNode]ir.IRValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	out := make(map[ir.IRNode]ir.IRValue, len(ids))
	for _, id := range ids {
		raw, err := txn.First(tableAttribute, indexID, string(id), attr)
		if err != nil {
			return nil, fmt.Errorf("read %s.%s: %w", id, attr, err)
		}
		if raw != nil {
			out[id] = raw.(*attribute).Value
		}
	}
	return out, nil
}

func (s *Store) AttributeExistsBulk(ctx context.Context, ids []ir.IRNode, attr string) (scene.NodeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	out := scene.NewNodeSet()
	for _, id := range ids {
		raw, err := txn.First(tableAttribute, indexID, string(id), attr)
		if err != nil {
			return nil, fmt.Errorf("check %s.%s: %w", id, attr, err)
		}
		if raw != nil {
			out.Add(id)
		}
	}
	return out, nil
}

func (s *Store) NodeTypeBulk(ctx context.Context, ids []ir.IRNode) (map[ir.IRNode]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	out := make(map[ir.IRNode]string, len(ids))
	for _, id := range ids {
		raw, err := txn.First(tableNode, indexID, string(id))
		if err != nil {
			return nil, fmt.Errorf("lookup node %q: %w", id, err)
		}
		if raw != nil {
			out[id] = raw.(*node).Type
		}
	}
	return out, nil
}

func collect[T any](it memdb.ResultIterator, err error) ([]*T, error) {
	if err != nil {
		return nil, err
	}
	var out []*T
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, obj.(*T))
	}
	return out, nil
}

func sortNodes(rows []*node) {
	slices.SortFunc(rows, func(a, b *node) int { return a.Seq - b.Seq })
}

func names(rows []*node) []ir.IRNode {
	out := make([]ir.IRNode, len(rows))
	for i, r := range rows {
		out[i] = ir.IRNode(r.Name)
	}
	return out
}
