package querydoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
)

// Build turns the document into a plan and validates it.
func (d *Document) Build() (queryir.Node, error) {
	if d.Self {
		return nil, fmt.Errorf("self: a top-level query has no enclosing pipeline")
	}
	n, err := buildPipeline("$", d.Pipeline, nil)
	if err != nil {
		return nil, err
	}
	if d.GroupBy != nil {
		if err := d.GroupBy.check(); err != nil {
			return nil, err
		}
	}
	if verrs := queryir.Validate(n); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, errors.Join(errs...)
	}
	return n, nil
}

// buildPipeline builds p. base is the enclosing pipeline's node for
// self-referencing sub-pipelines.
func buildPipeline(path string, p Pipeline, base queryir.Node) (queryir.Node, error) {
	var cur queryir.Node
	switch {
	case p.Self && p.From != nil:
		return nil, fmt.Errorf("%s: self and from are exclusive", path)
	case p.Self:
		if base == nil {
			return nil, fmt.Errorf("%s: self used outside a sub-pipeline", path)
		}
		cur = base
	case p.From != nil:
		n, err := buildFrom(path+".from", *p.From)
		if err != nil {
			return nil, err
		}
		cur = n
	default:
		return nil, fmt.Errorf("%s: a pipeline needs from or self", path)
	}

	for i, step := range p.Steps {
		n, err := buildStep(fmt.Sprintf("%s.steps[%d]", path, i), step, cur)
		if err != nil {
			return nil, err
		}
		cur = n
	}
	return cur, nil
}

func buildFrom(path string, f From) (queryir.Node, error) {
	set := 0
	for _, ok := range []bool{len(f.Type) > 0, len(f.Using) > 0, len(f.Values) > 0, f.Everything} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%s: exactly one of type, using, values or everything is required", path)
	}
	if f.Namespace != "" && (len(f.Using) > 0 || len(f.Values) > 0) {
		return nil, fmt.Errorf("%s: namespace applies to type and everything only", path)
	}

	switch {
	case len(f.Using) > 0:
		return queryir.Using(f.Using...), nil
	case len(f.Values) > 0:
		vals := make([]ir.IRValue, len(f.Values))
		for i, raw := range f.Values {
			v, err := ir.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("%s.values[%d]: %w", path, i, err)
			}
			vals[i] = v
		}
		return queryir.Source{Values: vals}, nil
	default:
		return queryir.TypeQuery{Types: queryir.Types(f.Type...), Namespace: scene.ParseNamespace(f.Namespace)}, nil
	}
}

func buildStep(path string, s Step, cur queryir.Node) (queryir.Node, error) {
	if n := s.count(); n != 1 {
		return nil, fmt.Errorf("%s: a step needs exactly one operator, got %d", path, n)
	}

	switch {
	case s.Like != nil:
		return queryir.Like{Input: cur, Pattern: s.Like.Pattern, Exact: s.Like.Exact}, nil
	case s.Only != nil:
		return queryir.Only{Input: cur, Types: queryir.Types(s.Only.Types...), Namespace: scene.ParseNamespace(s.Only.Namespace)}, nil
	case s.Where != nil, s.WhereNot != nil:
		spec, negate := s.Where, false
		if spec == nil {
			spec, negate = s.WhereNot, true
		}
		pred, err := buildPredicate(path+".where", *spec)
		if err != nil {
			return nil, err
		}
		return queryir.Where{Input: cur, Pred: pred, Negate: negate}, nil
	case s.Having != "":
		return queryir.Having{Input: cur, Attr: s.Having}, nil
	case s.Get != "":
		t, err := queryir.ParseTransform(string(s.Get))
		if err != nil {
			return nil, fmt.Errorf("%s.get: %w", path, err)
		}
		return queryir.Get{Input: cur, Transform: t}, nil
	case s.Append != "":
		t, err := queryir.ParseTransform(string(s.Append))
		if err != nil {
			return nil, fmt.Errorf("%s.append: %w", path, err)
		}
		return queryir.Append{Input: cur, Transform: t}, nil
	case s.Distinct:
		return queryir.Distinct{Input: cur}, nil
	case s.Short:
		return queryir.Foreach{Input: cur, Fn: shortName, Label: "short"}, nil
	case s.UUID:
		plugs := queryir.Get{Input: cur, Transform: queryir.AttributeOf{Attr: "uuid"}}
		return queryir.Get{Input: plugs, Transform: queryir.Values{}}, nil
	case len(s.Join) > 0:
		return buildJoin(path+".join", s.Join, cur)
	default:
		op, right := s.setOp()
		return buildSetOp(path+"."+setOpField(op), op, *right, cur)
	}
}

// count returns how many operators the step sets.
func (s Step) count() int {
	n := 0
	for _, ok := range []bool{
		s.Like != nil, s.Only != nil, s.Where != nil, s.WhereNot != nil,
		s.Having != "", s.Get != "", s.Append != "", s.Distinct, s.Short, s.UUID,
		s.Union != nil, s.Difference != nil, s.Intersection != nil, s.SymmetricDifference != nil,
		len(s.Join) > 0,
	} {
		if ok {
			n++
		}
	}
	return n
}

func (s Step) setOp() (queryir.SetOpKind, *Pipeline) {
	switch {
	case s.Union != nil:
		return queryir.Union, s.Union
	case s.Difference != nil:
		return queryir.Difference, s.Difference
	case s.Intersection != nil:
		return queryir.Intersection, s.Intersection
	default:
		return queryir.SymmetricDifference, s.SymmetricDifference
	}
}

func setOpField(op queryir.SetOpKind) string {
	switch op {
	case queryir.Difference:
		return "difference"
	case queryir.Intersection:
		return "intersection"
	case queryir.SymmetricDifference:
		return "symmetric_difference"
	default:
		return "union"
	}
}

func buildSetOp(path string, op queryir.SetOpKind, right Pipeline, cur queryir.Node) (queryir.Node, error) {
	left := cur
	var base queryir.Node
	if right.Self {
		parts := queryir.NewSplit(cur, 2)
		left, base = parts[0], parts[1]
	}
	r, err := buildPipeline(path, right, base)
	if err != nil {
		return nil, err
	}
	return queryir.SetOp{Op: op, Left: left, Right: r}, nil
}

// buildJoin splits cur among the primary and every self field, so they all
// read one execution.
func buildJoin(path string, fields []JoinSpec, cur queryir.Node) (queryir.Node, error) {
	self := 0
	for _, f := range fields {
		if f.Self {
			self++
		}
	}
	primary := cur
	var handles []queryir.Shared
	if self > 0 {
		handles = queryir.NewSplit(cur, self+1)
		primary = handles[0]
	}

	out := make([]queryir.JoinField, len(fields))
	next := 1
	for i, f := range fields {
		fp := fmt.Sprintf("%s[%d]", path, i)
		if f.As == "" {
			return nil, fmt.Errorf("%s: as is required", fp)
		}
		var base queryir.Node
		if f.Self {
			base = handles[next]
			next++
		}
		n, err := buildPipeline(fp, f.Pipeline, base)
		if err != nil {
			return nil, err
		}
		out[i] = queryir.JoinField{Name: f.As, Node: n}
	}
	return queryir.Join{Input: primary, Fields: out}, nil
}

func buildPredicate(path string, p PredicateSpec) (queryir.Predicate, error) {
	forms := 0
	for _, ok := range []bool{p.Attr != "" || p.Op != "", p.Has != "", p.HasAttr != "", p.Not != nil, len(p.And) > 0} {
		if ok {
			forms++
		}
	}
	if forms != 1 {
		return nil, fmt.Errorf("%s: a predicate needs exactly one of attr/op/value, has, has_attr, not or and", path)
	}

	switch {
	case p.Has != "":
		kind, err := scene.ParseRelationship(p.Has)
		if err != nil {
			return nil, fmt.Errorf("%s.has: %w", path, err)
		}
		return queryir.HasRelationship{Kind: kind}, nil
	case p.HasAttr != "":
		return queryir.HasAttr{Attr: p.HasAttr}, nil
	case p.Not != nil:
		inner, err := buildPredicate(path+".not", *p.Not)
		if err != nil {
			return nil, err
		}
		return queryir.Not{Pred: inner}, nil
	case len(p.And) > 0:
		preds := make([]queryir.Predicate, len(p.And))
		for i, c := range p.And {
			pred, err := buildPredicate(fmt.Sprintf("%s.and[%d]", path, i), c)
			if err != nil {
				return nil, err
			}
			preds[i] = pred
		}
		return queryir.And{Preds: preds}, nil
	default:
		op, err := queryir.ParseCompareOp(p.Op)
		if err != nil {
			return nil, fmt.Errorf("%s.op: %w", path, err)
		}
		v, err := ir.FromAny(p.Value)
		if err != nil {
			return nil, fmt.Errorf("%s.value: %w", path, err)
		}
		return queryir.Compare{Attr: p.Attr, Op: op, Value: v}, nil
	}
}

func (g *GroupBySpec) check() error {
	set := 0
	for _, ok := range []bool{g.Field != "", g.Index != nil, g.Attr != ""} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("$.group_by: exactly one of field, index or attr is required")
	}
	return nil
}

func shortName(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
	if n, ok := v.(ir.IRNode); ok {
		return ir.IRString(n.ShortName()), nil
	}
	return v, nil
}
