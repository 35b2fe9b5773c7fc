package querysql

// Request is a sealed set of backend reads the SQL store issues. Each one maps
// to exactly one SQL statement, so one port call costs a bounded number of
// round trips regardless of batch size.
type Request interface {
	request()
}

// NodesByType selects nodes whose type derives from any of Types. Empty
// Types selects every node. Result columns: name.
type NodesByType struct {
	Types []string
}

// UnknownTypes selects the entries of Types with no node_types row.
// Result columns: value.
type UnknownTypes struct {
	Types []string
}

// NodesExist selects the entries of Nodes present in the scene.
// Result columns: name.
type NodesExist struct {
	Nodes []string
}

// ChildrenOf selects (parent, child) edges for a frontier of parents,
// children in declaration order.
type ChildrenOf struct {
	Parents []string
}

// ParentsOf selects (node, parent) edges for a frontier of nodes.
type ParentsOf struct {
	Nodes []string
}

// Direction picks which end of a connection anchors the frontier.
type Direction int

const (
	// Upstream follows connections from target to source.
	Upstream Direction = iota + 1
	// Downstream follows connections from source to target.
	Downstream
)

// ConnectionEdges selects (anchor, neighbour) pairs in connection order.
type ConnectionEdges struct {
	Nodes     []string
	Direction Direction
}

// AttributeValues selects (node, json value) for Attr on Nodes.
type AttributeValues struct {
	Nodes []string
	Attr  string
}

// AttributeOwners selects the Nodes that carry Attr. Result columns: node.
type AttributeOwners struct {
	Nodes []string
	Attr  string
}

// NodeTypes selects (name, type) for Nodes.
type NodeTypes struct {
	Nodes []string
}

func (NodesByType) request()     {}
func (UnknownTypes) request()    {}
func (NodesExist) request()      {}
func (ChildrenOf) request()      {}
func (ParentsOf) request()       {}
func (ConnectionEdges) request() {}
func (AttributeValues) request() {}
func (AttributeOwners) request() {}
func (NodeTypes) request()       {}
