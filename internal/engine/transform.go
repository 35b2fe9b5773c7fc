package engine

import (
	"context"
	"fmt"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
)

// transform applies a Get designator to a whole upstream sequence.
func (x *execution) transform(ctx context.Context, t queryir.Transform, in []ir.IRValue) ([]ir.IRValue, error) {
	switch tr := t.(type) {
	case queryir.Related:
		return x.related(ctx, tr, in)
	case queryir.AttributeOf:
		out := make([]ir.IRValue, len(in))
		for i, v := range in {
			id, ok := v.(ir.IRNode)
			if !ok {
				return nil, notNode(queryir.FormatTransform(t), i, v)
			}
			out[i] = ir.IRPlug{Node: id, Attr: tr.Attr}
		}
		return out, nil
	case queryir.Values:
		return x.values(ctx, in)
	case queryir.NodeType:
		return x.nodeTypes(ctx, in)
	case nil:
		return nil, fmt.Errorf("missing transform")
	default:
		return nil, fmt.Errorf("unsupported transform %T", t)
	}
}

// related expands every node with one backend call for the batch. The
// backend concatenates per input in input order.
func (x *execution) related(ctx context.Context, tr queryir.Related, in []ir.IRValue) ([]ir.IRValue, error) {
	if len(in) == 0 {
		return []ir.IRValue{}, nil
	}
	ids := make([]ir.IRNode, len(in))
	for i, v := range in {
		id, ok := v.(ir.IRNode)
		if !ok {
			return nil, notNode(tr.Kind.String(), i, v)
		}
		ids[i] = id
	}
	rel, err := x.backend.ListRelationship(ctx, ids, tr.Kind)
	if err != nil {
		return nil, err
	}
	return nodeValues(rel), nil
}

// values reads every plug's value, one backend call per distinct attribute
// name. Missing values become null so the output stays 1:1.
func (x *execution) values(ctx context.Context, in []ir.IRValue) ([]ir.IRValue, error) {
	var attrs []string
	byAttr := make(map[string][]ir.IRNode)
	for i, v := range in {
		p, ok := v.(ir.IRPlug)
		if !ok {
			return nil, fmt.Errorf("values: element %d (%T) is not an attribute plug", i, v)
		}
		if _, seen := byAttr[p.Attr]; !seen {
			attrs = append(attrs, p.Attr)
		}
		byAttr[p.Attr] = append(byAttr[p.Attr], p.Node)
	}

	read := make(map[string]map[ir.IRNode]ir.IRValue, len(attrs))
	for _, attr := range attrs {
		vals, err := x.backend.ReadAttributeBulk(ctx, uniqueNodes(byAttr[attr]), attr)
		if err != nil {
			return nil, err
		}
		read[attr] = vals
	}

	out := make([]ir.IRValue, len(in))
	for i, v := range in {
		p := v.(ir.IRPlug)
		if val, ok := read[p.Attr][p.Node]; ok {
			out[i] = val
		} else {
			out[i] = ir.IRNull{}
		}
	}
	return out, nil
}

func (x *execution) nodeTypes(ctx context.Context, in []ir.IRValue) ([]ir.IRValue, error) {
	ids := make([]ir.IRNode, len(in))
	for i, v := range in {
		id, ok := v.(ir.IRNode)
		if !ok {
			return nil, notNode("node_type", i, v)
		}
		ids[i] = id
	}
	if len(ids) == 0 {
		return []ir.IRValue{}, nil
	}
	types, err := x.backend.NodeTypeBulk(ctx, uniqueNodes(ids))
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRValue, len(ids))
	for i, id := range ids {
		if t, ok := types[id]; ok {
			out[i] = ir.IRString(t)
		} else {
			out[i] = ir.IRNull{}
		}
	}
	return out, nil
}

// foreach maps every element through the callable, in upstream order.
func (x *execution) foreach(ctx context.Context, n queryir.Foreach) ([]ir.IRValue, error) {
	if n.Fn == nil {
		return nil, fmt.Errorf("foreach: missing function")
	}
	in, err := x.resolve(ctx, n.Input)
	if err != nil {
		return nil, err
	}
	out := make([]ir.IRValue, len(in))
	for i, v := range in {
		mapped, err := n.Fn(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, &callableError{err: err})
		}
		if mapped == nil {
			mapped = ir.IRNull{}
		}
		out[i] = mapped
	}
	return out, nil
}

func uniqueNodes(ids []ir.IRNode) []ir.IRNode {
	seen := make(map[ir.IRNode]bool, len(ids))
	out := make([]ir.IRNode, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
