package queryir

import (
	"context"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/scene"
)

// Node is one step of a query plan.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	queryNode() // Marker method - seals interface to this package
}

// Source is a leaf holding a static sequence of values.
type Source struct {
	Values []ir.IRValue
}

// TypeQuery is a leaf that enumerates scene nodes through the backend.
//
// Semantics:
//
//	every node whose type derives from any of Types (all nodes when Types
//	is empty), restricted to Namespace when it is set
//
// The result is in scene declaration order.
type TypeQuery struct {
	Types     []TypeDesignator
	Namespace scene.Namespace
}

// Like keeps elements whose identifier text matches Pattern.
//
// Matching is case-insensitive and uses general regular expression syntax.
// With Exact unset the pattern may match anywhere in the text; with Exact
// set it must match the whole text.
type Like struct {
	Input   Node
	Pattern string
	Exact   bool
}

// Only keeps node elements whose type derives from one of Types (OR) and
// that match Namespace (AND). It resolves with a single backend type query
// rather than a per-element test. Empty Types means any type.
type Only struct {
	Input     Node
	Types     []TypeDesignator
	Namespace scene.Namespace
}

// Where keeps elements for which Pred holds, or does not hold when Negate is
// set. Every element is tested, in upstream order.
type Where struct {
	Input  Node
	Pred   Predicate
	Negate bool
}

// Having keeps node elements that carry Attr and removes duplicates,
// keeping first-seen order.
type Having struct {
	Input Node
	Attr  string
}

// Get replaces each element with the result of Transform, concatenated in
// upstream order.
type Get struct {
	Input     Node
	Transform Transform
}

// Append is the upstream sequence followed by Get's output for the same
// upstream.
type Append struct {
	Input     Node
	Transform Transform
}

// MapFunc maps one element to another. It runs once per element.
type MapFunc func(ctx context.Context, v ir.IRValue) (ir.IRValue, error)

// Foreach applies Fn to every element in upstream order. Label names the
// function in rendered plans.
type Foreach struct {
	Input Node
	Fn    MapFunc
	Label string
}

// Distinct removes duplicate elements, keeping first-seen order.
type Distinct struct {
	Input Node
}

// JoinField is one named secondary stream of a Join.
type JoinField struct {
	Name string
	Node Node
}

// Join yields one ir.IRRow per element of Input, with one field per entry
// of Fields holding that position's secondary value. The output is as long
// as the shortest of the joined sequences.
type Join struct {
	Input  Node
	Fields []JoinField
}

// SplitPoint is an upstream node shared by Count handles.
// Build handles with NewSplit; compare SplitPoints by pointer.
type SplitPoint struct {
	Input Node
	Count int
}

// Shared is handle Index of a SplitPoint.
type Shared struct {
	Point *SplitPoint
	Index int
}

// NewSplit returns n handles over one shared execution of input. A count
// below one yields a single handle that fails validation and resolution.
func NewSplit(input Node, n int) []Shared {
	p := &SplitPoint{Input: input, Count: n}
	out := make([]Shared, max(n, 1))
	for i := range out {
		out[i] = Shared{Point: p, Index: i}
	}
	return out
}

// Using builds the leaf for a list of node identifiers.
//
// A name ending in a "*" namespace component ("chars:*", ":chars:*") stands
// for every node directly in that namespace and becomes a TypeQuery over all
// types. When any name is such a wildcard, the leaves are combined in order
// by union.
func Using(names ...string) Node {
	var leaves []Node
	var plain []string
	flush := func() {
		if len(plain) > 0 {
			leaves = append(leaves, Source{Values: ir.Nodes(plain...)})
			plain = nil
		}
	}
	for _, name := range names {
		if !scene.IsWildcard(name) {
			plain = append(plain, name)
			continue
		}
		flush()
		leaves = append(leaves, TypeQuery{Namespace: scene.ParseNamespace(name)})
	}
	flush()
	if len(leaves) == 0 {
		return Source{Values: ir.Nodes()}
	}
	out := leaves[0]
	for _, l := range leaves[1:] {
		out = SetOp{Op: Union, Left: out, Right: l}
	}
	return out
}

// SetOpKind selects the combinator of a SetOp.
type SetOpKind int

const (
	// Union is left, then right elements not in left.
	Union SetOpKind = iota + 1
	// Difference is left elements not in right.
	Difference
	// Intersection is left elements also in right.
	Intersection
	// SymmetricDifference is left elements not in right, then right
	// elements not in left.
	SymmetricDifference
)

var setOpNames = map[SetOpKind]string{
	Union:               "union",
	Difference:          "difference",
	Intersection:        "intersection",
	SymmetricDifference: "symmetric_difference",
}

var setOpSymbols = map[SetOpKind]string{
	Union:               "+",
	Difference:          "-",
	Intersection:        "&",
	SymmetricDifference: "^",
}

func (k SetOpKind) String() string {
	if s, ok := setOpNames[k]; ok {
		return s
	}
	return "unknown"
}

// Symbol is the operator spelling used in rendered plans.
func (k SetOpKind) Symbol() string {
	return setOpSymbols[k]
}

// Valid reports whether k is a defined combinator.
func (k SetOpKind) Valid() bool {
	_, ok := setOpNames[k]
	return ok
}

// SetOpKinds lists every combinator in declaration order.
func SetOpKinds() []SetOpKind {
	return []SetOpKind{Union, Difference, Intersection, SymmetricDifference}
}

// SetOp combines two streams. Element equality is ir.Key equality.
type SetOp struct {
	Op    SetOpKind
	Left  Node
	Right Node
}

func (Source) queryNode()    {}
func (TypeQuery) queryNode() {}
func (Like) queryNode()      {}
func (Only) queryNode()      {}
func (Where) queryNode()     {}
func (Having) queryNode()    {}
func (Get) queryNode()       {}
func (Append) queryNode()    {}
func (Foreach) queryNode()   {}
func (Distinct) queryNode()  {}
func (Join) queryNode()      {}
func (Shared) queryNode()    {}
func (SetOp) queryNode()     {}

// Stage is the capability a node exercises.
type Stage int

const (
	StageSource Stage = iota + 1
	StageFilter
	StageTransform
	StageAggregate
	StageSetOp
)

func (s Stage) String() string {
	switch s {
	case StageSource:
		return "source"
	case StageFilter:
		return "filter"
	case StageTransform:
		return "transform"
	case StageAggregate:
		return "aggregate"
	case StageSetOp:
		return "set-op"
	default:
		return "unknown"
	}
}

// StageOf classifies a node.
func StageOf(n Node) Stage {
	switch n.(type) {
	case Source, TypeQuery:
		return StageSource
	case Like, Only, Where, Having, Distinct:
		return StageFilter
	case Get, Append, Foreach:
		return StageTransform
	case Join, Shared:
		return StageAggregate
	case SetOp:
		return StageSetOp
	default:
		return 0
	}
}

// Inputs returns the direct upstream nodes of n in resolution order. For a
// Shared handle that is the split point's input.
func Inputs(n Node) []Node {
	switch node := n.(type) {
	case Like:
		return []Node{node.Input}
	case Only:
		return []Node{node.Input}
	case Where:
		return []Node{node.Input}
	case Having:
		return []Node{node.Input}
	case Get:
		return []Node{node.Input}
	case Append:
		return []Node{node.Input}
	case Foreach:
		return []Node{node.Input}
	case Distinct:
		return []Node{node.Input}
	case Join:
		out := []Node{node.Input}
		for _, f := range node.Fields {
			out = append(out, f.Node)
		}
		return out
	case Shared:
		if node.Point == nil {
			return nil
		}
		return []Node{node.Point.Input}
	case SetOp:
		return []Node{node.Left, node.Right}
	default:
		return nil
	}
}
