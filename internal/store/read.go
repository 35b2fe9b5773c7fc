package store

import (
	"context"
	"fmt"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/querysql"
	"github.com/roach88/minq/internal/scene"
)

var _ scene.LiveBackend = (*Store)(nil)

// QueryByType returns nodes deriving from types in declaration order.
// The namespace filter runs in Go over the SQL result.
func (s *Store) QueryByType(ctx context.Context, types []string, ns scene.Namespace) ([]ir.IRNode, error) {
	if len(types) > 0 {
		unknown, err := s.scanStrings(ctx, querysql.UnknownTypes{Types: types})
		if err != nil {
			return nil, fmt.Errorf("query types: %w", err)
		}
		if len(unknown) > 0 {
			return nil, scene.UnknownType(unknown[0])
		}
	}
	names, err := s.scanStrings(ctx, querysql.NodesByType{Types: types})
	if err != nil {
		return nil, fmt.Errorf("query nodes by type: %w", err)
	}
	return ns.Filter(toNodes(names)), nil
}

// ListRelationship fetches edges one hop at a time for the whole frontier,
// so a recursive traversal costs one SQL statement per level rather than one
// per node. Per-input results are assembled in Go.
func (s *Store) ListRelationship(ctx context.Context, ids []ir.IRNode, kind scene.Relationship) ([]ir.IRNode, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("list relationship: invalid kind %v", kind)
	}
	out := []ir.IRNode{}
	if len(ids) == 0 {
		return out, nil
	}
	start := distinctNames(ids)
	if err := s.requireNodes(ctx, ids, start); err != nil {
		return nil, err
	}

	var expand func(id string) []string
	switch kind {
	case scene.Parents, scene.Children:
		var req querysql.Request = querysql.ParentsOf{Nodes: start}
		if kind == scene.Children {
			req = querysql.ChildrenOf{Parents: start}
		}
		g, err := s.edges(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		expand = func(id string) []string { return g[id] }
	case scene.AllChildren:
		g, err := s.closure(ctx, start, func(f []string) querysql.Request { return querysql.ChildrenOf{Parents: f} })
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		expand = func(id string) []string { return preorder(g, id) }
	case scene.AllParents:
		g, err := s.closure(ctx, start, func(f []string) querysql.Request { return querysql.ParentsOf{Nodes: f} })
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		expand = func(id string) []string { return ancestors(g, id) }
	case scene.Connections:
		up, err := s.edges(ctx, querysql.ConnectionEdges{Nodes: start, Direction: querysql.Upstream})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		down, err := s.edges(ctx, querysql.ConnectionEdges{Nodes: start, Direction: querysql.Downstream})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		expand = func(id string) []string {
			return uniqueExcluding(id, append(append([]string{}, up[id]...), down[id]...))
		}
	case scene.History, scene.Future:
		dir := querysql.Upstream
		if kind == scene.Future {
			dir = querysql.Downstream
		}
		g, err := s.closure(ctx, start, func(f []string) querysql.Request {
			return querysql.ConnectionEdges{Nodes: f, Direction: dir}
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		expand = func(id string) []string { return breadthFirst(g, id) }
	}

	for _, id := range ids {
		out = append(out, toNodes(expand(string(id)))...)
	}
	return out, nil
}

// ReadAttributeBulk decodes the stored JSON value of attr for every id
// that has it.
func (s *Store) ReadAttributeBulk(ctx context.Context, ids []ir.IRNode, attr string) (map[ir.IRNode]ir.IRValue, error) {
	out := make(map[ir.IRNode]ir.IRValue, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pairs, err := s.scanPairs(ctx, querysql.AttributeValues{Nodes: distinctNames(ids), Attr: attr})
	if err != nil {
		return nil, fmt.Errorf("read attribute %q: %w", attr, err)
	}
	for _, p := range pairs {
		v, err := ir.UnmarshalIRValue([]byte(p[1]))
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", p[0], attr, err)
		}
		out[ir.IRNode(p[0])] = v
	}
	return out, nil
}

func (s *Store) AttributeExistsBulk(ctx context.Context, ids []ir.IRNode, attr string) (scene.NodeSet, error) {
	out := scene.NewNodeSet()
	if len(ids) == 0 {
		return out, nil
	}
	owners, err := s.scanStrings(ctx, querysql.AttributeOwners{Nodes: distinctNames(ids), Attr: attr})
	if err != nil {
		return nil, fmt.Errorf("check attribute %q: %w", attr, err)
	}
	for _, o := range owners {
		out.Add(ir.IRNode(o))
	}
	return out, nil
}

func (s *Store) NodeTypeBulk(ctx context.Context, ids []ir.IRNode) (map[ir.IRNode]string, error) {
	out := make(map[ir.IRNode]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	pairs, err := s.scanPairs(ctx, querysql.NodeTypes{Nodes: distinctNames(ids)})
	if err != nil {
		return nil, fmt.Errorf("read node types: %w", err)
	}
	for _, p := range pairs {
		out[ir.IRNode(p[0])] = p[1]
	}
	return out, nil
}

// requireNodes fails with ErrNodeNotFound for the first input (in input
// order) that is not in the scene.
func (s *Store) requireNodes(ctx context.Context, ids []ir.IRNode, distinct []string) error {
	found, err := s.scanStrings(ctx, querysql.NodesExist{Nodes: distinct})
	if err != nil {
		return fmt.Errorf("lookup nodes: %w", err)
	}
	if len(found) == len(distinct) {
		return nil
	}
	present := make(map[string]bool, len(found))
	for _, f := range found {
		present[f] = true
	}
	for _, id := range ids {
		if !present[string(id)] {
			return scene.NotFound(id)
		}
	}
	return nil
}

// edges runs a two-column (anchor, neighbour) request into an adjacency map.
// Neighbour order follows the SQL ORDER BY.
func (s *Store) edges(ctx context.Context, r querysql.Request) (map[string][]string, error) {
	pairs, err := s.scanPairs(ctx, r)
	if err != nil {
		return nil, err
	}
	g := make(map[string][]string)
	for _, p := range pairs {
		g[p[0]] = append(g[p[0]], p[1])
	}
	return g, nil
}

// closure expands the adjacency map level by level until no new nodes
// appear: one statement per level for the whole frontier.
func (s *Store) closure(ctx context.Context, start []string, req func([]string) querysql.Request) (map[string][]string, error) {
	g := make(map[string][]string)
	seen := make(map[string]bool, len(start))
	for _, n := range start {
		seen[n] = true
	}
	for frontier := start; len(frontier) > 0; {
		level, err := s.edges(ctx, req(frontier))
		if err != nil {
			return nil, err
		}
		var next []string
		for _, anchor := range frontier {
			for _, n := range level[anchor] {
				g[anchor] = append(g[anchor], n)
				if !seen[n] {
					seen[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return g, nil
}

func (s *Store) scanStrings(ctx context.Context, r querysql.Request) ([]string, error) {
	rows, err := s.query(ctx, r)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

func (s *Store) scanPairs(ctx context.Context, r querysql.Request) ([][2]string, error) {
	rows, err := s.query(ctx, r)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := [][2]string{}
	for rows.Next() {
		var p [2]string
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

func preorder(g map[string][]string, id string) []string {
	var out []string
	for _, c := range g[id] {
		out = append(out, c)
		out = append(out, preorder(g, c)...)
	}
	return out
}

func ancestors(g map[string][]string, id string) []string {
	var out []string
	for cur := id; len(g[cur]) > 0; cur = g[cur][0] {
		out = append(out, g[cur][0])
	}
	return out
}

func breadthFirst(g map[string][]string, id string) []string {
	seen := map[string]bool{id: true}
	var out []string
	for frontier := []string{id}; len(frontier) > 0; {
		var next []string
		for _, cur := range frontier {
			for _, n := range g[cur] {
				if !seen[n] {
					seen[n] = true
					out = append(out, n)
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return out
}

func uniqueExcluding(self string, ids []string) []string {
	seen := map[string]bool{self: true}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func distinctNames(ids []ir.IRNode) []string {
	seen := make(map[ir.IRNode]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, string(id))
		}
	}
	return out
}

func toNodes(names []string) []ir.IRNode {
	out := make([]ir.IRNode, len(names))
	for i, n := range names {
		out[i] = ir.IRNode(n)
	}
	return out
}
