package queryir

import (
	"context"
	"fmt"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/scene"
)

// Predicate is a test applied to candidate elements by Where.
//
// This is a sealed interface - only types in this package implement it.
// A predicate is pure data; it is evaluated only when a Where node is
// resolved against a batch of candidates.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// CompareOp is the operator of a Compare predicate.
type CompareOp int

const (
	Eq CompareOp = iota + 1
	Ne
	Lt
	Le
	Gt
	Ge
)

var compareOpSymbols = map[CompareOp]string{
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
}

func (op CompareOp) String() string {
	if s, ok := compareOpSymbols[op]; ok {
		return s
	}
	return "?"
}

// Valid reports whether op is a defined operator.
func (op CompareOp) Valid() bool {
	_, ok := compareOpSymbols[op]
	return ok
}

// Ordering reports whether op needs an ordering rather than equality.
func (op CompareOp) Ordering() bool {
	return op == Lt || op == Le || op == Gt || op == Ge
}

// ParseCompareOp accepts the symbolic spelling ("==", ">", ...) or the
// mnemonic one ("eq", "gt", ...).
func ParseCompareOp(s string) (CompareOp, error) {
	switch s {
	case "==", "=", "eq":
		return Eq, nil
	case "!=", "ne":
		return Ne, nil
	case "<", "lt":
		return Lt, nil
	case "<=", "le":
		return Le, nil
	case ">", "gt":
		return Gt, nil
	case ">=", "ge":
		return Ge, nil
	}
	return 0, fmt.Errorf("unknown comparison operator %q", s)
}

// Compare tests a node's attribute against a literal.
//
// Semantics:
//
//	<candidate>.<Attr> <Op> <Value>
//
// Candidates that are not nodes, or that lack the attribute, do not match.
// Numbers compare numerically across ints and floats; ordering operators on
// values with no common ordering do not match.
type Compare struct {
	Attr  string
	Op    CompareOp
	Value ir.IRValue
}

// HasRelationship holds when expanding the candidate by Kind yields at least
// one node.
type HasRelationship struct {
	Kind scene.Relationship
}

// HasAttr holds when the candidate carries Attr.
type HasAttr struct {
	Attr string
}

// Not negates Pred.
type Not struct {
	Pred Predicate
}

// And holds when every predicate in Preds holds. Empty Preds always holds.
// Each predicate only sees the candidates the previous ones kept.
type And struct {
	Preds []Predicate
}

// PredicateFunc is an opaque per-element test.
type PredicateFunc func(ctx context.Context, v ir.IRValue) (bool, error)

// Func wraps a Go callable. It is always evaluated per element.
type Func struct {
	Fn    PredicateFunc
	Label string
}

func (Compare) predicateNode()         {}
func (HasRelationship) predicateNode() {}
func (HasAttr) predicateNode()         {}
func (Not) predicateNode()             {}
func (And) predicateNode()             {}
func (Func) predicateNode()            {}

// FormatPredicate renders p on one line, e.g. `tx > 50 and not(has(children))`.
func FormatPredicate(p Predicate) string {
	switch pred := p.(type) {
	case nil:
		return "<nil>"
	case Compare:
		return fmt.Sprintf("%s %s %s", pred.Attr, pred.Op, formatValue(pred.Value))
	case HasRelationship:
		return fmt.Sprintf("has(%s)", pred.Kind)
	case HasAttr:
		return fmt.Sprintf("has_attr(%s)", pred.Attr)
	case Not:
		return fmt.Sprintf("not(%s)", FormatPredicate(pred.Pred))
	case And:
		if len(pred.Preds) == 0 {
			return "true"
		}
		s := ""
		for i, c := range pred.Preds {
			if i > 0 {
				s += " and "
			}
			if _, nested := c.(And); nested {
				s += "(" + FormatPredicate(c) + ")"
			} else {
				s += FormatPredicate(c)
			}
		}
		return s
	case Func:
		return fmt.Sprintf("func(%s)", labelOr(pred.Label, "anonymous"))
	default:
		return fmt.Sprintf("%T", p)
	}
}

func formatValue(v ir.IRValue) string {
	if v == nil {
		return "null"
	}
	return ir.Format(v)
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
