package engine

import (
	"context"
	"fmt"

	"github.com/emirpasic/gods/sets/hashset"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
)

// setOp resolves left then right and combines them. Membership is natural
// equality (ir.Key); within-side duplicates are kept.
func (x *execution) setOp(ctx context.Context, n queryir.SetOp) ([]ir.IRValue, error) {
	if !n.Op.Valid() {
		return nil, fmt.Errorf("unknown set operation %d", int(n.Op))
	}
	left, err := x.resolve(ctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := x.resolve(ctx, n.Right)
	if err != nil {
		return nil, err
	}
	return Combine(n.Op, left, right), nil
}

// Combine applies a set combinator to two resolved sequences.
//
//	Union:               left, then right elements not in left
//	Difference:          left elements not in right
//	Intersection:        left elements in right
//	SymmetricDifference: left not in right, then right not in left
func Combine(op queryir.SetOpKind, left, right []ir.IRValue) []ir.IRValue {
	inLeft := keySet(left)
	inRight := keySet(right)

	out := make([]ir.IRValue, 0, len(left)+len(right))
	switch op {
	case queryir.Union:
		out = append(out, left...)
		out = appendMissing(out, right, inLeft)
	case queryir.Difference:
		out = appendMissing(out, left, inRight)
	case queryir.Intersection:
		for _, v := range left {
			if inRight.Contains(ir.Key(v)) {
				out = append(out, v)
			}
		}
	case queryir.SymmetricDifference:
		out = appendMissing(out, left, inRight)
		out = appendMissing(out, right, inLeft)
	}
	return out
}

func keySet(vals []ir.IRValue) *hashset.Set {
	s := hashset.New()
	for _, v := range vals {
		s.Add(ir.Key(v))
	}
	return s
}

func appendMissing(out, vals []ir.IRValue, exclude *hashset.Set) []ir.IRValue {
	for _, v := range vals {
		if !exclude.Contains(ir.Key(v)) {
			out = append(out, v)
		}
	}
	return out
}
