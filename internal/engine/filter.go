package engine

import (
	"context"
	"fmt"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
)

func (x *execution) typeQuery(ctx context.Context, n queryir.TypeQuery) ([]ir.IRValue, error) {
	ids, err := x.backend.QueryByType(ctx, queryir.ResolveTypes(n.Types), n.Namespace)
	if err != nil {
		return nil, err
	}
	return nodeValues(ids), nil
}

// like keeps elements whose identifier text matches, in upstream order.
func (x *execution) like(ctx context.Context, n queryir.Like) ([]ir.IRValue, error) {
	re, err := queryir.CompileLike(n.Pattern, n.Exact)
	if err != nil {
		return nil, err
	}
	in, err := x.resolve(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRValue, 0, len(in))
	for _, v := range in {
		ok, err := re.MatchString(ir.Text(v))
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", ir.Text(v), err)
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// only intersects upstream with one backend type query. Upstream order and
// duplicates are preserved; non-node elements never match.
func (x *execution) only(ctx context.Context, n queryir.Only) ([]ir.IRValue, error) {
	in, err := x.resolve(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	if len(in) == 0 {
		return []ir.IRValue{}, nil
	}
	ids, err := x.backend.QueryByType(ctx, queryir.ResolveTypes(n.Types), n.Namespace)
	if err != nil {
		return nil, err
	}
	match := scene.NewNodeSet(ids...)
	out := make([]ir.IRValue, 0, len(in))
	for _, v := range in {
		if id, ok := v.(ir.IRNode); ok && match.Has(id) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (x *execution) where(ctx context.Context, n queryir.Where) ([]ir.IRValue, error) {
	prog, err := Compile(n.Pred)
	if err != nil {
		return nil, err
	}
	in, err := x.resolve(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	mask, err := x.eval(ctx, prog, in)
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRValue, 0, len(in))
	for i, v := range in {
		if mask[i] != n.Negate {
			out = append(out, v)
		}
	}
	return out, nil
}

// having keeps nodes carrying the attribute (one backend call) and removes
// duplicates by natural equality, first-seen order.
func (x *execution) having(ctx context.Context, n queryir.Having) ([]ir.IRValue, error) {
	in, err := x.resolve(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	ids := distinctNodes(in)
	if len(ids) == 0 {
		return []ir.IRValue{}, nil
	}
	owners, err := x.backend.AttributeExistsBulk(ctx, ids, n.Attr)
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRValue, 0, len(in))
	for _, v := range in {
		if id, ok := v.(ir.IRNode); ok && owners.Has(id) {
			out = append(out, v)
		}
	}
	return distinct(out), nil
}

func distinct(in []ir.IRValue) []ir.IRValue {
	seen := make(map[string]bool, len(in))
	out := make([]ir.IRValue, 0, len(in))
	for _, v := range in {
		k := ir.Key(v)
		if !seen[k] {
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

// distinctNodes returns the node elements of in, each once, first-seen order.
func distinctNodes(in []ir.IRValue) []ir.IRNode {
	seen := make(map[ir.IRNode]bool, len(in))
	out := make([]ir.IRNode, 0, len(in))
	for _, v := range in {
		if id, ok := v.(ir.IRNode); ok && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func nodeValues(ids []ir.IRNode) []ir.IRValue {
	out := make([]ir.IRValue, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
