package minq

import (
	"context"
	"errors"
	"iter"

	"github.com/roach88/minq/internal/engine"
	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
)

// Validate reports structural problems in the plan without touching the
// backend.
func (st *Stream) Validate() error {
	verrs := queryir.Validate(st.node)
	if len(verrs) == 0 {
		return nil
	}
	errs := make([]error, len(verrs))
	for i, ve := range verrs {
		errs[i] = ve
	}
	return errors.Join(errs...)
}

// Execute resolves the stream. Each call re-queries the backend.
func (st *Stream) Execute(ctx context.Context) ([]ir.IRValue, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st.s.engine.Resolve(ctx, st.node)
}

// ExecuteAll resolves several streams in one execution, so split handles
// among them share their upstream.
func (s *Session) ExecuteAll(ctx context.Context, streams ...*Stream) ([][]ir.IRValue, error) {
	nodes := make([]queryir.Node, len(streams))
	for i, st := range streams {
		if err := st.Validate(); err != nil {
			return nil, err
		}
		nodes[i] = st.node
	}
	return s.engine.ResolveAll(ctx, nodes...)
}

// All resolves the stream on the first iteration step and yields its
// elements. A resolution error is yielded once, with a nil value.
func (st *Stream) All(ctx context.Context) iter.Seq2[ir.IRValue, error] {
	return func(yield func(ir.IRValue, error) bool) {
		vals, err := st.Execute(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, v := range vals {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Contains reports whether v is an element, by natural equality.
func (st *Stream) Contains(ctx context.Context, v ir.IRValue) (bool, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return false, err
	}
	key := ir.Key(v)
	for _, e := range vals {
		if ir.Key(e) == key {
			return true, nil
		}
	}
	return false, nil
}

// Any reports whether some element is truthy.
func (st *Stream) Any(ctx context.Context) (bool, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range vals {
		if ir.Truthy(v) {
			return true, nil
		}
	}
	return false, nil
}

// AllTrue reports whether every element is truthy; true for an empty
// stream.
func (st *Stream) AllTrue(ctx context.Context) (bool, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return false, err
	}
	for _, v := range vals {
		if !ir.Truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// First returns the first element, or false when the stream is empty.
func (st *Stream) First(ctx context.Context) (ir.IRValue, bool, error) {
	vals, err := st.Execute(ctx)
	if err != nil || len(vals) == 0 {
		return nil, false, err
	}
	return vals[0], true, nil
}

// Count returns the number of elements.
func (st *Stream) Count(ctx context.Context) (int, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(vals), nil
}

// Cache resolves the stream now and returns a stream over the snapshot.
// Later changes to the scene are not reflected in the returned stream.
func (st *Stream) Cache(ctx context.Context) (*Stream, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return st.then(queryir.Source{Values: vals}), nil
}

// ToMap converts a stream of join rows to index -> payload.
func (st *Stream) ToMap(ctx context.Context) (ir.RowMap, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return ir.RowMap{}, err
	}
	return ir.RowsToMap(vals)
}

// GroupBy resolves the stream and groups elements by classify.
func (st *Stream) GroupBy(ctx context.Context, classify engine.Classifier) (*engine.GroupTable, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return engine.GroupValues(ctx, vals, classify)
}

// GroupByField groups join rows by a named field ("index" for the row
// index).
func (st *Stream) GroupByField(ctx context.Context, name string) (*engine.GroupTable, error) {
	return st.GroupBy(ctx, engine.ByField(name))
}

// GroupByIndex groups join rows by joined field position.
func (st *Stream) GroupByIndex(ctx context.Context, i int) (*engine.GroupTable, error) {
	return st.GroupBy(ctx, engine.ByIndex(i))
}

// GroupByAttr groups nodes by an attribute value, read in one backend call.
// Nodes without the attribute group under null.
func (st *Stream) GroupByAttr(ctx context.Context, attr string) (*engine.GroupTable, error) {
	vals, err := st.Execute(ctx)
	if err != nil {
		return nil, err
	}
	classify, err := st.s.engine.ByAttr(ctx, vals, attr)
	if err != nil {
		return nil, err
	}
	return engine.GroupValues(ctx, vals, classify)
}
