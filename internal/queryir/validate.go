package queryir

import (
	"fmt"

	"github.com/roach88/minq/internal/ir"
)

// ValidationError is one structural problem in a plan.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate walks the plan and reports every structural problem it finds
// (does not fail-fast). A plan that validates can still fail at resolution
// time, e.g. on an unknown type or node.
//
// Paths start at "$" and name the edge taken at each step:
// "$.input.pred.preds[1]".
func Validate(n Node) []ValidationError {
	v := &validator{seen: make(map[*SplitPoint]bool)}
	v.node("$", n)
	return v.errs
}

// ValidatePredicate reports every structural problem in p. Paths start at
// "$".
func ValidatePredicate(p Predicate) []ValidationError {
	v := &validator{seen: make(map[*SplitPoint]bool)}
	v.predicate("$", p)
	return v.errs
}

type validator struct {
	errs []ValidationError
	seen map[*SplitPoint]bool
}

func (v *validator) add(path, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) node(path string, n Node) {
	switch node := n.(type) {
	case nil:
		v.add(path, "missing node")
	case Source:
		for i, val := range node.Values {
			if val == nil {
				v.add(fmt.Sprintf("%s.values[%d]", path, i), "nil value")
			}
		}
	case TypeQuery:
		v.designators(path, node.Types)
	case Like:
		if _, err := CompileLike(node.Pattern, node.Exact); err != nil {
			v.add(path, "%v", err)
		}
		v.node(path+".input", node.Input)
	case Only:
		if len(node.Types) == 0 && node.Namespace.IsZero() {
			v.add(path, "only needs at least one type or a namespace")
		}
		v.designators(path, node.Types)
		v.node(path+".input", node.Input)
	case Where:
		v.predicate(path+".pred", node.Pred)
		v.node(path+".input", node.Input)
	case Having:
		if node.Attr == "" {
			v.add(path, "having needs an attribute name")
		}
		v.node(path+".input", node.Input)
	case Get:
		v.transform(path, node.Transform)
		v.node(path+".input", node.Input)
	case Append:
		v.transform(path, node.Transform)
		v.node(path+".input", node.Input)
	case Foreach:
		if node.Fn == nil {
			v.add(path, "foreach needs a function")
		}
		v.node(path+".input", node.Input)
	case Distinct:
		v.node(path+".input", node.Input)
	case Join:
		v.join(path, node)
	case Shared:
		v.shared(path, node)
	case SetOp:
		if !node.Op.Valid() {
			v.add(path, "unknown set operation %d", int(node.Op))
		}
		v.node(path+".left", node.Left)
		v.node(path+".right", node.Right)
	default:
		v.add(path, "unknown node type %T", n)
	}
}

func (v *validator) designators(path string, ds []TypeDesignator) {
	for i, d := range ds {
		p := fmt.Sprintf("%s.types[%d]", path, i)
		switch td := d.(type) {
		case nil:
			v.add(p, "nil type designator")
		case TypeName:
			if td == "" {
				v.add(p, "empty type name")
			}
		case NamedType:
			if len(td.Types) == 0 {
				v.add(p, "named type %q covers no types", td.Name)
			}
			for _, t := range td.Types {
				if t == "" {
					v.add(p, "named type %q has an empty type name", td.Name)
				}
			}
		}
	}
}

func (v *validator) transform(path string, t Transform) {
	p := path + ".transform"
	switch tr := t.(type) {
	case nil:
		v.add(p, "missing transform")
	case Related:
		if !tr.Kind.Valid() {
			v.add(p, "unknown relationship %d", int(tr.Kind))
		}
	case AttributeOf:
		if tr.Attr == "" {
			v.add(p, "attribute transform needs a name")
		}
	}
}

func (v *validator) predicate(path string, p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.add(path, "missing predicate")
	case Compare:
		if pred.Attr == "" {
			v.add(path, "comparison needs an attribute name")
		}
		if !pred.Op.Valid() {
			v.add(path, "unknown comparison operator %d", int(pred.Op))
		}
		if pred.Value == nil {
			v.add(path, "comparison needs a value")
		} else if pred.Op.Ordering() && !orderable(pred.Value) {
			v.add(path, "operator %s cannot order %s", pred.Op, ir.Format(pred.Value))
		}
	case HasRelationship:
		if !pred.Kind.Valid() {
			v.add(path, "unknown relationship %d", int(pred.Kind))
		}
	case HasAttr:
		if pred.Attr == "" {
			v.add(path, "has_attr needs an attribute name")
		}
	case Not:
		v.predicate(path+".pred", pred.Pred)
	case And:
		for i, c := range pred.Preds {
			v.predicate(fmt.Sprintf("%s.preds[%d]", path, i), c)
		}
	case Func:
		if pred.Fn == nil {
			v.add(path, "func predicate needs a function")
		}
	default:
		v.add(path, "unknown predicate type %T", p)
	}
}

func orderable(val ir.IRValue) bool {
	switch val.(type) {
	case ir.IRInt, ir.IRFloat, ir.IRString, ir.IRNode, ir.IRPlug:
		return true
	}
	return false
}

func (v *validator) join(path string, j Join) {
	v.node(path+".input", j.Input)
	if len(j.Fields) == 0 {
		v.add(path, "join needs at least one field")
	}
	names := make(map[string]bool, len(j.Fields))
	for i, f := range j.Fields {
		p := fmt.Sprintf("%s.fields[%d]", path, i)
		switch {
		case f.Name == "":
			v.add(p, "join field needs a name")
		case f.Name == "index":
			v.add(p, `join field name "index" is reserved`)
		case names[f.Name]:
			v.add(p, "duplicate join field %q", f.Name)
		}
		names[f.Name] = true
		v.node(p, f.Node)
	}
}

func (v *validator) shared(path string, s Shared) {
	if s.Point == nil {
		v.add(path, "shared handle has no split point")
		return
	}
	if s.Point.Count < 1 {
		v.add(path, "split count must be at least 1, got %d", s.Point.Count)
		return
	}
	if s.Index < 0 || s.Index >= s.Point.Count {
		v.add(path, "shared handle %d out of range [0,%d)", s.Index, s.Point.Count)
	}
	if v.seen[s.Point] {
		return
	}
	v.seen[s.Point] = true
	v.node(path+".split", s.Point.Input)
}
