package querydoc

import (
	"context"
	"fmt"

	"github.com/roach88/minq/internal/engine"
	"github.com/roach88/minq/internal/ir"
)

// Result is the outcome of executing a document.
type Result struct {
	Values []ir.IRValue
	Groups *engine.GroupTable // nil unless the document has group_by
}

// Value renders the result: the group table when grouped, otherwise the
// sequence as an array.
func (r *Result) Value() ir.IRValue {
	if r.Groups != nil {
		return r.Groups.Value()
	}
	return ir.IRArray(r.Values)
}

// Execute builds and resolves the document against e.
func Execute(ctx context.Context, e *engine.Engine, d *Document) (*Result, error) {
	n, err := d.Build()
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", d.Name, err)
	}
	vals, err := e.Resolve(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", d.Name, err)
	}
	res := &Result{Values: vals}
	if d.GroupBy == nil {
		return res, nil
	}

	classify, err := d.classifier(ctx, e, vals)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", d.Name, err)
	}
	res.Groups, err = engine.GroupValues(ctx, vals, classify)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", d.Name, err)
	}
	return res, nil
}

func (d *Document) classifier(ctx context.Context, e *engine.Engine, vals []ir.IRValue) (engine.Classifier, error) {
	g := d.GroupBy
	switch {
	case g.Field != "":
		return engine.ByField(g.Field), nil
	case g.Index != nil:
		return engine.ByIndex(*g.Index), nil
	default:
		return e.ByAttr(ctx, vals, g.Attr)
	}
}
