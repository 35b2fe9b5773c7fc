package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/minq/internal/scene"
)

// Transform designates what Get replaces each element with.
//
// This is a sealed interface - only types in this package implement it.
type Transform interface {
	transformNode() // Marker method - seals interface to this package
}

// Related expands each node into its relatives of Kind (1:N).
type Related struct {
	Kind scene.Relationship
}

// AttributeOf maps each node to its plug "node.Attr" (1:1). No backend call.
type AttributeOf struct {
	Attr string
}

// Values maps each plug to its current value (1:1), null when missing.
type Values struct{}

// NodeType maps each node to its type name (1:1).
type NodeType struct{}

func (Related) transformNode()     {}
func (AttributeOf) transformNode() {}
func (Values) transformNode()      {}
func (NodeType) transformNode()    {}

// FormatTransform renders t as used in plans and query documents.
func FormatTransform(t Transform) string {
	switch tr := t.(type) {
	case Related:
		return tr.Kind.String()
	case AttributeOf:
		return fmt.Sprintf("attribute(%s)", tr.Attr)
	case Values:
		return "values"
	case NodeType:
		return "node_type"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// ParseTransform accepts a relationship name, "values", "node_type" or
// "attribute(name)".
func ParseTransform(s string) (Transform, error) {
	switch s {
	case "values", "value":
		return Values{}, nil
	case "node_type", "type":
		return NodeType{}, nil
	}
	if rest, ok := strings.CutPrefix(s, "attribute("); ok {
		attr, ok := strings.CutSuffix(rest, ")")
		if !ok || attr == "" {
			return nil, fmt.Errorf("invalid transform %q: want attribute(name)", s)
		}
		return AttributeOf{Attr: attr}, nil
	}
	kind, err := scene.ParseRelationship(s)
	if err != nil {
		return nil, fmt.Errorf("invalid transform %q: %w", s, err)
	}
	return Related{Kind: kind}, nil
}

// TypeDesignator names one or more backend types.
//
// This is a sealed interface - only types in this package implement it.
type TypeDesignator interface {
	TypeNames() []string
	typeDesignator()
}

// TypeName is a raw backend type name.
type TypeName string

// NamedType is a named marker for a group of backend types, e.g. a
// "Lights" designator covering every light type.
type NamedType struct {
	Name  string
	Types []string
}

func (t TypeName) TypeNames() []string  { return []string{string(t)} }
func (t NamedType) TypeNames() []string { return t.Types }

func (TypeName) typeDesignator()  {}
func (NamedType) typeDesignator() {}

// Types wraps raw type names.
func Types(names ...string) []TypeDesignator {
	out := make([]TypeDesignator, len(names))
	for i, n := range names {
		out[i] = TypeName(n)
	}
	return out
}

// ResolveTypes flattens designators into backend type names, first-seen
// order, no duplicates.
func ResolveTypes(ds []TypeDesignator) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range ds {
		if d == nil {
			continue
		}
		for _, t := range d.TypeNames() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

func formatDesignators(ds []TypeDesignator) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		switch td := d.(type) {
		case TypeName:
			parts[i] = string(td)
		case NamedType:
			parts[i] = td.Name
		default:
			parts[i] = "<nil>"
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
