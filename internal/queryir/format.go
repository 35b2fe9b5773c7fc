package queryir

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// CompileLike builds the matcher for a Like node: case-insensitive, a
// substring search unless exact.
func CompileLike(pattern string, exact bool) (*regexp2.Regexp, error) {
	expr := pattern
	if exact {
		expr = `^(?:` + pattern + `)$`
	}
	re, err := regexp2.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Describe renders the operator of n on one line, without its inputs.
func Describe(n Node) string {
	switch node := n.(type) {
	case nil:
		return "<nil>"
	case Source:
		return fmt.Sprintf("source(%d values)", len(node.Values))
	case TypeQuery:
		if len(node.Types) == 0 {
			return "everything" + formatNamespace(node)
		}
		return "type_query " + formatDesignators(node.Types) + formatNamespace(node)
	case Like:
		if node.Exact {
			return fmt.Sprintf("like_exact(%q)", node.Pattern)
		}
		return fmt.Sprintf("like(%q)", node.Pattern)
	case Only:
		return "only " + formatDesignators(node.Types) + formatNamespace(node)
	case Where:
		name := "where"
		if node.Negate {
			name = "where_not"
		}
		return fmt.Sprintf("%s(%s)", name, FormatPredicate(node.Pred))
	case Having:
		return fmt.Sprintf("having(%s)", node.Attr)
	case Get:
		return fmt.Sprintf("get(%s)", FormatTransform(node.Transform))
	case Append:
		return fmt.Sprintf("append(%s)", FormatTransform(node.Transform))
	case Foreach:
		return fmt.Sprintf("foreach(%s)", labelOr(node.Label, "anonymous"))
	case Distinct:
		return "distinct"
	case Join:
		names := make([]string, len(node.Fields))
		for i, f := range node.Fields {
			names[i] = f.Name
		}
		return fmt.Sprintf("join(%s)", strings.Join(names, ", "))
	case Shared:
		if node.Point == nil {
			return "shared(<nil>)"
		}
		return fmt.Sprintf("shared(%d/%d)", node.Index, node.Point.Count)
	case SetOp:
		return node.Op.String()
	default:
		return fmt.Sprintf("%T", n)
	}
}

func formatNamespace(n Node) string {
	var ns string
	switch node := n.(type) {
	case TypeQuery:
		ns = node.Namespace.String()
	case Only:
		ns = node.Namespace.String()
	}
	if ns == "" {
		return ""
	}
	return fmt.Sprintf(" ns=%q", ns)
}

// Format renders the whole plan as an indented tree, one node per line,
// inputs below their consumer. A split point's input is printed once, at
// the first handle that reaches it.
//
//	like("top")
//	  type_query [camera]
func Format(n Node) string {
	p := &printer{splits: make(map[*SplitPoint]int)}
	p.node(n, 0, "")
	return strings.TrimSuffix(p.b.String(), "\n")
}

type printer struct {
	b      strings.Builder
	splits map[*SplitPoint]int
}

func (p *printer) line(depth int, label, text string) {
	p.b.WriteString(strings.Repeat("  ", depth))
	if label != "" {
		p.b.WriteString(label)
		p.b.WriteString(": ")
	}
	p.b.WriteString(text)
	p.b.WriteByte('\n')
}

func (p *printer) node(n Node, depth int, label string) {
	switch node := n.(type) {
	case Join:
		p.line(depth, label, Describe(n))
		p.node(node.Input, depth+1, "")
		for _, f := range node.Fields {
			p.node(f.Node, depth+1, f.Name)
		}
	case Shared:
		if node.Point == nil {
			p.line(depth, label, Describe(n))
			return
		}
		id, seen := p.splits[node.Point]
		if !seen {
			id = len(p.splits) + 1
			p.splits[node.Point] = id
		}
		p.line(depth, label, fmt.Sprintf("%s split#%d", Describe(n), id))
		if !seen {
			p.node(node.Point.Input, depth+1, "")
		}
	case SetOp:
		p.line(depth, label, fmt.Sprintf("%s (%s)", Describe(n), node.Op.Symbol()))
		p.node(node.Left, depth+1, "left")
		p.node(node.Right, depth+1, "right")
	default:
		p.line(depth, label, Describe(n))
		for _, in := range Inputs(n) {
			p.node(in, depth+1, "")
		}
	}
}
