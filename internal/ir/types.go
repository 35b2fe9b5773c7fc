package ir

// Scene is a compiled scene graph: a type hierarchy extension, nodes in
// declaration order, and attribute connections.
type Scene struct {
	Types       map[string]string `json:"types"` // type name -> base type name
	Nodes       []SceneNode       `json:"nodes"`
	Connections []Connection      `json:"connections"`
}

// SceneNode is one node of a compiled scene.
type SceneNode struct {
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Parent     string             `json:"parent,omitempty"` // empty for roots
	UUID       string             `json:"uuid"`
	Attributes map[string]IRValue `json:"attributes"`
}

// Connection links a source plug to a destination plug.
type Connection struct {
	Source     string `json:"source"`
	SourceAttr string `json:"source_attr"`
	Target     string `json:"target"`
	TargetAttr string `json:"target_attr"`
}

// Object renders the scene as an IRObject for canonical hashing.
func (s *Scene) Object() IRObject {
	types := make(IRObject, len(s.Types))
	for k, v := range s.Types {
		types[k] = IRString(v)
	}
	nodes := make(IRArray, len(s.Nodes))
	for i, n := range s.Nodes {
		attrs := make(IRObject, len(n.Attributes))
		for k, v := range n.Attributes {
			attrs[k] = v
		}
		nodes[i] = IRObject{
			"name":       IRString(n.Name),
			"type":       IRString(n.Type),
			"parent":     IRString(n.Parent),
			"uuid":       IRString(n.UUID),
			"attributes": attrs,
		}
	}
	conns := make(IRArray, len(s.Connections))
	for i, c := range s.Connections {
		conns[i] = IRObject{
			"source":      IRString(c.Source),
			"source_attr": IRString(c.SourceAttr),
			"target":      IRString(c.Target),
			"target_attr": IRString(c.TargetAttr),
		}
	}
	return IRObject{
		"types":       types,
		"nodes":       nodes,
		"connections": conns,
	}
}

// Node returns the named node, if present.
func (s *Scene) Node(name string) (SceneNode, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return SceneNode{}, false
}
