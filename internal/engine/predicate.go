package engine

import (
	"context"
	"errors"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
)

// Program is a compiled predicate, ready to be applied to candidate
// batches.
type Program struct {
	pred queryir.Predicate
	bulk bool
}

// Compile checks p and decides whether it can run entirely on the bulk
// path.
//
// Compare and HasAttr leaves are bulk: one backend read covers the whole
// batch. Not and And are bulk when every child is. HasRelationship and Func
// always run per element.
func Compile(p queryir.Predicate) (*Program, error) {
	if verrs := queryir.ValidatePredicate(p); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, errors.Join(errs...)
	}
	return &Program{pred: p, bulk: bulkEligible(p)}, nil
}

// Bulk reports whether every leaf of the predicate is bulk-eligible.
func (p *Program) Bulk() bool {
	return p.bulk
}

// String renders the predicate.
func (p *Program) String() string {
	return queryir.FormatPredicate(p.pred)
}

func bulkEligible(p queryir.Predicate) bool {
	switch pred := p.(type) {
	case queryir.Compare, queryir.HasAttr:
		return true
	case queryir.Not:
		return bulkEligible(pred.Pred)
	case queryir.And:
		for _, c := range pred.Preds {
			if !bulkEligible(c) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// eval returns, for every candidate, whether the predicate holds.
func (x *execution) eval(ctx context.Context, prog *Program, cands []ir.IRValue) ([]bool, error) {
	active := make([]bool, len(cands))
	for i := range active {
		active[i] = true
	}
	return x.evalPred(ctx, prog.pred, cands, active)
}

// evalPred evaluates p for the active candidates only; inactive ones are
// false in the result.
func (x *execution) evalPred(ctx context.Context, p queryir.Predicate, cands []ir.IRValue, active []bool) ([]bool, error) {
	out := make([]bool, len(cands))
	switch pred := p.(type) {
	case queryir.Compare:
		vals, err := x.readAttr(ctx, pred.Attr, cands, active)
		if err != nil {
			return nil, err
		}
		for i, v := range cands {
			id, isNode := v.(ir.IRNode)
			if !active[i] || !isNode {
				continue
			}
			if actual, ok := vals[id]; ok {
				out[i] = compareValues(pred.Op, actual, pred.Value)
			}
		}
	case queryir.HasAttr:
		owners, err := x.attrOwners(ctx, pred.Attr, cands, active)
		if err != nil {
			return nil, err
		}
		for i, v := range cands {
			if id, isNode := v.(ir.IRNode); active[i] && isNode {
				out[i] = owners[id]
			}
		}
	case queryir.HasRelationship:
		for i, v := range cands {
			id, isNode := v.(ir.IRNode)
			if !active[i] || !isNode {
				continue
			}
			rel, err := x.backend.ListRelationship(ctx, []ir.IRNode{id}, pred.Kind)
			if err != nil {
				return nil, err
			}
			out[i] = len(rel) > 0
		}
	case queryir.Not:
		inner, err := x.evalPred(ctx, pred.Pred, cands, active)
		if err != nil {
			return nil, err
		}
		for i := range cands {
			out[i] = active[i] && !inner[i]
		}
	case queryir.And:
		cur := append([]bool{}, active...)
		for _, c := range pred.Preds {
			next, err := x.evalPred(ctx, c, cands, cur)
			if err != nil {
				return nil, err
			}
			cur = next
		}
		return cur, nil
	case queryir.Func:
		for i, v := range cands {
			if !active[i] {
				continue
			}
			ok, err := pred.Fn(ctx, v)
			if err != nil {
				return nil, &callableError{err: err}
			}
			out[i] = ok
		}
	}
	return out, nil
}

// readAttr reads attr for the active node candidates: one backend call for
// the batch on the bulk path, one per candidate otherwise.
func (x *execution) readAttr(ctx context.Context, attr string, cands []ir.IRValue, active []bool) (map[ir.IRNode]ir.IRValue, error) {
	if x.bulk {
		ids := activeNodes(cands, active)
		if len(ids) == 0 {
			return map[ir.IRNode]ir.IRValue{}, nil
		}
		return x.backend.ReadAttributeBulk(ctx, ids, attr)
	}
	out := make(map[ir.IRNode]ir.IRValue)
	for i, v := range cands {
		id, isNode := v.(ir.IRNode)
		if !active[i] || !isNode {
			continue
		}
		one, err := x.backend.ReadAttributeBulk(ctx, []ir.IRNode{id}, attr)
		if err != nil {
			return nil, err
		}
		if val, ok := one[id]; ok {
			out[id] = val
		}
	}
	return out, nil
}

func (x *execution) attrOwners(ctx context.Context, attr string, cands []ir.IRValue, active []bool) (map[ir.IRNode]bool, error) {
	out := make(map[ir.IRNode]bool)
	if x.bulk {
		ids := activeNodes(cands, active)
		if len(ids) == 0 {
			return out, nil
		}
		owners, err := x.backend.AttributeExistsBulk(ctx, ids, attr)
		if err != nil {
			return nil, err
		}
		for id := range owners {
			out[id] = true
		}
		return out, nil
	}
	for i, v := range cands {
		id, isNode := v.(ir.IRNode)
		if !active[i] || !isNode {
			continue
		}
		owners, err := x.backend.AttributeExistsBulk(ctx, []ir.IRNode{id}, attr)
		if err != nil {
			return nil, err
		}
		out[id] = owners.Has(id)
	}
	return out, nil
}

func activeNodes(cands []ir.IRValue, active []bool) []ir.IRNode {
	seen := make(map[ir.IRNode]bool)
	var out []ir.IRNode
	for i, v := range cands {
		if id, isNode := v.(ir.IRNode); active[i] && isNode && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// compareValues applies op. Ordering between values with no common order
// is false.
func compareValues(op queryir.CompareOp, actual, literal ir.IRValue) bool {
	switch op {
	case queryir.Eq:
		return ir.Equal(actual, literal)
	case queryir.Ne:
		return !ir.Equal(actual, literal)
	}
	c, ok := ir.Compare(actual, literal)
	if !ok {
		return false
	}
	switch op {
	case queryir.Lt:
		return c < 0
	case queryir.Le:
		return c <= 0
	case queryir.Gt:
		return c > 0
	case queryir.Ge:
		return c >= 0
	}
	return false
}
