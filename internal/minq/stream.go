package minq

import (
	"context"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
)

// Stream is an inert, chainable query. Every method returns a new Stream;
// the receiver is never modified, so a Stream can be reused as the base of
// several queries.
type Stream struct {
	s    *Session
	node queryir.Node
}

// Node returns the plan this stream resolves.
func (st *Stream) Node() queryir.Node {
	return st.node
}

// Session returns the session the stream belongs to.
func (st *Stream) Session() *Session {
	return st.s
}

func (st *Stream) then(n queryir.Node) *Stream {
	return &Stream{s: st.s, node: n}
}

// Like keeps elements whose identifier contains a case-insensitive match
// of the regular expression pattern.
func (st *Stream) Like(pattern string) *Stream {
	return st.then(queryir.Like{Input: st.node, Pattern: pattern})
}

// LikeExact keeps elements whose whole identifier matches pattern.
func (st *Stream) LikeExact(pattern string) *Stream {
	return st.then(queryir.Like{Input: st.node, Pattern: pattern, Exact: true})
}

// Only keeps nodes of any of the given types.
func (st *Stream) Only(types ...queryir.TypeDesignator) *Stream {
	return st.then(queryir.Only{Input: st.node, Types: types})
}

// OnlyTypes is Only with raw type names.
func (st *Stream) OnlyTypes(names ...string) *Stream {
	return st.Only(queryir.Types(names...)...)
}

// OnlyIn keeps nodes in namespace ns and, when types are given, of one of
// those types. A leading ":" makes the namespace absolute.
func (st *Stream) OnlyIn(ns string, types ...queryir.TypeDesignator) *Stream {
	return st.then(queryir.Only{Input: st.node, Types: types, Namespace: scene.ParseNamespace(ns)})
}

// Where keeps elements for which p holds.
func (st *Stream) Where(p queryir.Predicate) *Stream {
	return st.then(queryir.Where{Input: st.node, Pred: p})
}

// WhereNot keeps elements for which p does not hold.
func (st *Stream) WhereNot(p queryir.Predicate) *Stream {
	return st.then(queryir.Where{Input: st.node, Pred: p, Negate: true})
}

// Having keeps nodes that carry attr, each once.
func (st *Stream) Having(attr string) *Stream {
	return st.then(queryir.Having{Input: st.node, Attr: attr})
}

// Get replaces every element by its transform.
func (st *Stream) Get(t queryir.Transform) *Stream {
	return st.then(queryir.Get{Input: st.node, Transform: t})
}

// Append keeps the stream and adds the transform's output after it.
func (st *Stream) Append(t queryir.Transform) *Stream {
	return st.then(queryir.Append{Input: st.node, Transform: t})
}

// Foreach maps every element through fn.
func (st *Stream) Foreach(label string, fn queryir.MapFunc) *Stream {
	return st.then(queryir.Foreach{Input: st.node, Fn: fn, Label: label})
}

// Short maps nodes to their names without namespace. Other values pass
// through unchanged.
func (st *Stream) Short() *Stream {
	return st.Foreach("short", func(_ context.Context, v ir.IRValue) (ir.IRValue, error) {
		if n, ok := v.(ir.IRNode); ok {
			return ir.IRString(n.ShortName()), nil
		}
		return v, nil
	})
}

// UUIDs maps nodes to their stable identifiers.
func (st *Stream) UUIDs() *Stream {
	return st.Get(Attr("uuid")).Get(Values)
}

// Distinct drops repeated elements, keeping the first occurrence.
func (st *Stream) Distinct() *Stream {
	return st.then(queryir.Distinct{Input: st.node})
}

// Split returns n streams that share one execution of st when they are
// resolved together (Session.ExecuteAll, or inside one Join or set
// operation). Resolved separately, each re-executes st.
func (st *Stream) Split(n int) []*Stream {
	handles := queryir.NewSplit(st.node, n)
	out := make([]*Stream, len(handles))
	for i, h := range handles {
		out[i] = st.then(h)
	}
	return out
}

// Field is one named secondary stream of a Join.
type Field struct {
	Name   string
	Stream *Stream
}

// As names a stream for Join.
func As(name string, s *Stream) Field {
	return Field{Name: name, Stream: s}
}

// Join builds one row per element of st with a named field per secondary
// stream, aligned by position. The output is as long as the shortest input.
func (st *Stream) Join(fields ...Field) *Stream {
	jf := make([]queryir.JoinField, len(fields))
	for i, f := range fields {
		var n queryir.Node
		if f.Stream != nil {
			n = f.Stream.node
		}
		jf[i] = queryir.JoinField{Name: f.Name, Node: n}
	}
	return st.then(queryir.Join{Input: st.node, Fields: jf})
}

func (st *Stream) setOp(op queryir.SetOpKind, other *Stream) *Stream {
	var right queryir.Node
	if other != nil {
		right = other.node
	}
	return st.then(queryir.SetOp{Op: op, Left: st.node, Right: right})
}

// Union is st followed by the elements of other not already in st.
func (st *Stream) Union(other *Stream) *Stream {
	return st.setOp(queryir.Union, other)
}

// Difference is the elements of st not in other.
func (st *Stream) Difference(other *Stream) *Stream {
	return st.setOp(queryir.Difference, other)
}

// Intersection is the elements of st also in other.
func (st *Stream) Intersection(other *Stream) *Stream {
	return st.setOp(queryir.Intersection, other)
}

// SymmetricDifference is the elements in exactly one of st and other.
func (st *Stream) SymmetricDifference(other *Stream) *Stream {
	return st.setOp(queryir.SymmetricDifference, other)
}

// Explain renders the plan as an indented tree.
func (st *Stream) Explain() string {
	return queryir.Format(st.node)
}

// String implements fmt.Stringer with the one-line operator description.
func (st *Stream) String() string {
	return queryir.Describe(st.node)
}
