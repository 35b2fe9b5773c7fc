package minq

import (
	"context"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
)

// AttrRef names an attribute for comparison predicates.
type AttrRef struct {
	name string
}

// Item starts a predicate on attribute name: Item("tx").Gt(50).
func Item(name string) AttrRef {
	return AttrRef{name: name}
}

func (a AttrRef) compare(op queryir.CompareOp, v any) queryir.Predicate {
	return queryir.Compare{Attr: a.name, Op: op, Value: literal(v)}
}

func (a AttrRef) Eq(v any) queryir.Predicate { return a.compare(queryir.Eq, v) }
func (a AttrRef) Ne(v any) queryir.Predicate { return a.compare(queryir.Ne, v) }
func (a AttrRef) Lt(v any) queryir.Predicate { return a.compare(queryir.Lt, v) }
func (a AttrRef) Le(v any) queryir.Predicate { return a.compare(queryir.Le, v) }
func (a AttrRef) Gt(v any) queryir.Predicate { return a.compare(queryir.Gt, v) }
func (a AttrRef) Ge(v any) queryir.Predicate { return a.compare(queryir.Ge, v) }

// Exists holds for nodes that carry the attribute.
func (a AttrRef) Exists() queryir.Predicate {
	return queryir.HasAttr{Attr: a.name}
}

// literal converts a Go value for a comparison. Values that ir.FromAny
// cannot represent become null, which Validate reports for ordering
// operators.
func literal(v any) ir.IRValue {
	if iv, ok := v.(ir.IRValue); ok {
		return iv
	}
	iv, err := ir.FromAny(v)
	if err != nil {
		return ir.IRNull{}
	}
	return iv
}

// Has holds for nodes whose relationship expansion is non-empty:
// Has(Children) keeps nodes with at least one child.
func Has(r queryir.Related) queryir.Predicate {
	return queryir.HasRelationship{Kind: r.Kind}
}

// HasAttr holds for nodes that carry attr.
func HasAttr(attr string) queryir.Predicate {
	return queryir.HasAttr{Attr: attr}
}

// Not negates p.
func Not(p queryir.Predicate) queryir.Predicate {
	return queryir.Not{Pred: p}
}

// And holds when every predicate holds.
func And(preds ...queryir.Predicate) queryir.Predicate {
	return queryir.And{Preds: preds}
}

// Func wraps a Go predicate. It always runs per element.
func Func(label string, fn func(ctx context.Context, v ir.IRValue) (bool, error)) queryir.Predicate {
	return queryir.Func{Fn: fn, Label: label}
}

// Truthy wraps a mapping whose result is tested with ir.Truthy.
func Truthy(label string, fn queryir.MapFunc) queryir.Predicate {
	return queryir.Func{Label: label, Fn: func(ctx context.Context, v ir.IRValue) (bool, error) {
		out, err := fn(ctx, v)
		if err != nil {
			return false, err
		}
		return ir.Truthy(out), nil
	}}
}
