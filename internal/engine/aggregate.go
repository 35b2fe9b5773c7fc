package engine

import (
	"context"
	"fmt"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
)

// join builds one row per primary element. Secondary streams are expected
// to be position-aligned with the primary; the output is as long as the
// shortest sequence.
func (x *execution) join(ctx context.Context, n queryir.Join) ([]ir.IRValue, error) {
	if len(n.Fields) == 0 {
		return nil, fmt.Errorf("join needs at least one field")
	}
	primary, err := x.resolve(ctx, n.Input)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(n.Fields))
	columns := make([][]ir.IRValue, len(n.Fields))
	size := len(primary)
	for i, f := range n.Fields {
		col, err := x.resolve(ctx, f.Node)
		if err != nil {
			return nil, err
		}
		names[i] = f.Name
		columns[i] = col
		size = min(size, len(col))
	}
	if size < len(primary) {
		x.logger.Debug("join truncated",
			"primary", len(primary),
			"rows", size,
		)
	}

	out := make([]ir.IRValue, size)
	for r := 0; r < size; r++ {
		vals := make([]ir.IRValue, len(columns))
		for c, col := range columns {
			vals[c] = col[r]
		}
		out[r] = ir.IRRow{Index: primary[r], Names: names, Values: vals}
	}
	return out, nil
}

// shared reads the split point's input once per execution.
func (x *execution) shared(ctx context.Context, n queryir.Shared) ([]ir.IRValue, error) {
	if n.Point == nil {
		return nil, fmt.Errorf("shared handle has no split point")
	}
	if n.Point.Count < 1 {
		return nil, fmt.Errorf("split count must be at least 1, got %d", n.Point.Count)
	}
	if cached, ok := x.splits[n.Point]; ok {
		return append([]ir.IRValue{}, cached...), nil
	}
	vals, err := x.resolve(ctx, n.Point.Input)
	if err != nil {
		return nil, err
	}
	x.splits[n.Point] = vals
	return append([]ir.IRValue{}, vals...), nil
}
