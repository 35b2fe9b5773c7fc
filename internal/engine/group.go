package engine

import (
	"context"
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
)

// Group is one entry of a GroupTable.
type Group struct {
	Key     ir.IRValue
	Members []ir.IRValue
}

// GroupTable maps group keys to members. Keys keep first-seen order and
// members keep source order. Keys are compared by natural equality, so
// IRInt(1) and IRFloat(1) share a group.
type GroupTable struct {
	groups *linkedhashmap.Map // ir.Key(key) -> *Group
}

// NewGroupTable returns an empty table.
func NewGroupTable() *GroupTable {
	return &GroupTable{groups: linkedhashmap.New()}
}

// Add appends member to key's group, creating it on first sight.
func (t *GroupTable) Add(key, member ir.IRValue) {
	k := ir.Key(key)
	if g, ok := t.groups.Get(k); ok {
		grp := g.(*Group)
		grp.Members = append(grp.Members, member)
		return
	}
	t.groups.Put(k, &Group{Key: key, Members: []ir.IRValue{member}})
}

// Len returns the number of groups.
func (t *GroupTable) Len() int {
	return t.groups.Size()
}

// Keys returns the group keys in first-seen order.
func (t *GroupTable) Keys() []ir.IRValue {
	out := make([]ir.IRValue, 0, t.groups.Size())
	for _, g := range t.groups.Values() {
		out = append(out, g.(*Group).Key)
	}
	return out
}

// Get returns the members of key's group.
func (t *GroupTable) Get(key ir.IRValue) ([]ir.IRValue, bool) {
	g, ok := t.groups.Get(ir.Key(key))
	if !ok {
		return nil, false
	}
	return g.(*Group).Members, true
}

// Groups returns every group in key order.
func (t *GroupTable) Groups() []Group {
	out := make([]Group, 0, t.groups.Size())
	it := t.groups.Iterator()
	for it.Next() {
		out = append(out, *it.Value().(*Group))
	}
	return out
}

// Value renders the table as an array of {key, members} objects, the form
// used for golden output and JSON.
func (t *GroupTable) Value() ir.IRArray {
	out := make(ir.IRArray, 0, t.groups.Size())
	for _, g := range t.Groups() {
		out = append(out, ir.IRObject{
			"key":     g.Key,
			"members": ir.IRArray(g.Members),
		})
	}
	return out
}

// Classifier computes the group key of one element.
type Classifier func(ctx context.Context, v ir.IRValue) (ir.IRValue, error)

// GroupValues builds a table from values in one pass.
func GroupValues(ctx context.Context, values []ir.IRValue, classify Classifier) (*GroupTable, error) {
	t := NewGroupTable()
	for i, v := range values {
		key, err := classify(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("group by: element %d: %w", i, err)
		}
		if key == nil {
			key = ir.IRNull{}
		}
		t.Add(key, v)
	}
	return t, nil
}

// ByField classifies rows by a named field ("index" selects the row index).
func ByField(name string) Classifier {
	return func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		row, ok := v.(ir.IRRow)
		if !ok {
			return nil, fmt.Errorf("group by field %q: %T is not a row", name, v)
		}
		val, ok := row.Field(name)
		if !ok {
			return nil, fmt.Errorf("group by field %q: row has no such field", name)
		}
		return val, nil
	}
}

// ByIndex classifies rows by joined field position (0 is the first joined
// field).
func ByIndex(i int) Classifier {
	return func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		row, ok := v.(ir.IRRow)
		if !ok {
			return nil, fmt.Errorf("group by index %d: %T is not a row", i, v)
		}
		return row.At(i)
	}
}

// ByAttr classifies nodes by the value of an attribute. The attribute is
// read in one backend call before grouping; nodes without it group under
// null.
func (e *Engine) ByAttr(ctx context.Context, values []ir.IRValue, attr string) (Classifier, error) {
	ids := distinctNodes(values)
	vals := map[ir.IRNode]ir.IRValue{}
	if len(ids) > 0 {
		var err error
		vals, err = e.backend.ReadAttributeBulk(ctx, ids, attr)
		if err != nil {
			return nil, err
		}
	}
	return func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		id, ok := v.(ir.IRNode)
		if !ok {
			return nil, fmt.Errorf("group by attribute %q: %w", attr, ErrNotNode)
		}
		if val, ok := vals[id]; ok {
			return val, nil
		}
		return ir.IRNull{}, nil
	}, nil
}

// GroupBy resolves n and groups its elements.
func (e *Engine) GroupBy(ctx context.Context, n queryir.Node, classify Classifier) (*GroupTable, error) {
	vals, err := e.Resolve(ctx, n)
	if err != nil {
		return nil, err
	}
	return GroupValues(ctx, vals, classify)
}
