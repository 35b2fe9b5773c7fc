package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/minq/internal/ir"
	"github.com/roach88/minq/internal/scene"
)

// UUIDAttr is the attribute every compiled node carries with its stable
// identity, unless the source sets it explicitly.
const UUIDAttr = "uuid"

// CompileScene turns a CUE value of the form
//
//	types: { locator: "transform" }
//	nodes: { persp: { type: "transform", parent: "", attrs: { ty: 10 } } }
//	connections: [{ from: "a.out", to: "b.in" }]
//
// into an ir.Scene. Nodes keep declaration order and must name their parent
// before themselves.
func CompileScene(v cue.Value) (*ir.Scene, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	types, err := parseTypes(v)
	if err != nil {
		return nil, err
	}
	sc := &ir.Scene{Types: types}
	h, err := scene.NewHierarchy(types)
	if err != nil {
		return nil, &CompileError{Field: "types", Message: err.Error(), Pos: v.LookupPath(cue.ParsePath("types")).Pos()}
	}

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if nodesVal.Exists() {
		iter, err := nodesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		declared := make(map[string]bool)
		for iter.Next() {
			n, err := parseNode(iter.Selector().Unquoted(), iter.Value())
			if err != nil {
				return nil, err
			}
			pos := iter.Value().Pos()
			if !h.Known(n.Type) {
				return nil, &CompileError{Field: "nodes." + n.Name + ".type", Message: fmt.Sprintf("unknown type %q", n.Type), Pos: pos}
			}
			if n.Parent != "" && !declared[n.Parent] {
				msg := fmt.Sprintf("parent %q is not declared", n.Parent)
				if n.Parent == n.Name || nodesVal.LookupPath(cue.MakePath(cue.Str(n.Parent))).Exists() {
					msg = fmt.Sprintf("parent %q must be declared before %q", n.Parent, n.Name)
				}
				return nil, &CompileError{Field: "nodes." + n.Name + ".parent", Message: msg, Pos: pos}
			}
			declared[n.Name] = true
			sc.Nodes = append(sc.Nodes, n)
		}
	}

	connsVal := v.LookupPath(cue.ParsePath("connections"))
	if connsVal.Exists() {
		list, err := connsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; list.Next(); i++ {
			c, err := parseConnection(list.Value(), i)
			if err != nil {
				return nil, err
			}
			for _, end := range []string{c.Source, c.Target} {
				if _, ok := sc.Node(end); !ok {
					return nil, &CompileError{
						Field:   fmt.Sprintf("connections[%d]", i),
						Message: fmt.Sprintf("unknown node %q", end),
						Pos:     list.Value().Pos(),
					}
				}
			}
			sc.Connections = append(sc.Connections, c)
		}
	}

	return sc, nil
}

func parseTypes(v cue.Value) (map[string]string, error) {
	out := map[string]string{}
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return out, nil
	}
	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		base, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "types." + iter.Selector().Unquoted(),
				Message: "base type must be a string",
				Pos:     iter.Value().Pos(),
			}
		}
		out[iter.Selector().Unquoted()] = base
	}
	return out, nil
}

func parseNode(name string, v cue.Value) (ir.SceneNode, error) {
	n := ir.SceneNode{Name: name, UUID: ir.NodeUUID(name)}
	field := "nodes." + name

	if err := checkNodeName(name); err != nil {
		return n, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return n, &CompileError{Field: field + ".type", Message: "type is required", Pos: v.Pos()}
	}
	typ, err := typeVal.String()
	if err != nil {
		return n, formatCUEError(err)
	}
	n.Type = typ

	if parentVal := v.LookupPath(cue.ParsePath("parent")); parentVal.Exists() {
		parent, err := parentVal.String()
		if err != nil {
			return n, formatCUEError(err)
		}
		n.Parent = parent
	}

	n.Attributes = map[string]ir.IRValue{}
	if attrsVal := v.LookupPath(cue.ParsePath("attrs")); attrsVal.Exists() {
		iter, err := attrsVal.Fields()
		if err != nil {
			return n, formatCUEError(err)
		}
		for iter.Next() {
			val, err := toIRValue(iter.Value())
			if err != nil {
				return n, err
			}
			n.Attributes[iter.Selector().Unquoted()] = val
		}
	}
	if _, ok := n.Attributes[UUIDAttr]; !ok {
		n.Attributes[UUIDAttr] = ir.IRString(n.UUID)
	}
	return n, nil
}

// checkNodeName rejects names that would be ambiguous as plugs or numbers.
func checkNodeName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("node name is empty")
	case strings.ContainsAny(name, ". \t\n"):
		return fmt.Errorf("node name %q contains a dot or whitespace", name)
	}
	if _, err := strconv.ParseFloat(name, 64); err == nil {
		return fmt.Errorf("node name %q looks like a number", name)
	}
	return nil
}

func parseConnection(v cue.Value, i int) (ir.Connection, error) {
	var c ir.Connection
	field := fmt.Sprintf("connections[%d]", i)

	ends := [2]string{}
	for j, key := range []string{"from", "to"} {
		endVal := v.LookupPath(cue.ParsePath(key))
		if !endVal.Exists() {
			return c, &CompileError{Field: field + "." + key, Message: key + " is required", Pos: v.Pos()}
		}
		s, err := endVal.String()
		if err != nil {
			return c, formatCUEError(err)
		}
		ends[j] = s
	}

	src, err := ir.ParsePlug(ends[0])
	if err != nil {
		return c, &CompileError{Field: field + ".from", Message: err.Error(), Pos: v.Pos()}
	}
	dst, err := ir.ParsePlug(ends[1])
	if err != nil {
		return c, &CompileError{Field: field + ".to", Message: err.Error(), Pos: v.Pos()}
	}
	return ir.Connection{
		Source: string(src.Node), SourceAttr: src.Attr,
		Target: string(dst.Node), TargetAttr: dst.Attr,
	}, nil
}

// toIRValue converts a concrete CUE value. Integers stay integers so that
// `35` and `35.0` remain distinguishable.
func toIRValue(v cue.Value) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.IncompleteKind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRFloat(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := ir.IRArray{}
		for iter.Next() {
			el, err := toIRValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, el)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := ir.IRObject{}
		for iter.Next() {
			el, err := toIRValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Selector().Unquoted()] = el
		}
		return out, nil
	default:
		return nil, &CompileError{Field: "attrs", Message: fmt.Sprintf("unsupported value kind %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}
