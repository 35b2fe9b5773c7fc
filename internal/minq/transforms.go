package minq

import (
	"github.com/roach88/minq/internal/queryir"
	"github.com/roach88/minq/internal/scene"
)

// Relationship designators for Get, Append and Has.
var (
	Parents     = queryir.Related{Kind: scene.Parents}
	Children    = queryir.Related{Kind: scene.Children}
	AllChildren = queryir.Related{Kind: scene.AllChildren}
	AllParents  = queryir.Related{Kind: scene.AllParents}
	Connections = queryir.Related{Kind: scene.Connections}
	History     = queryir.Related{Kind: scene.History}
	Future      = queryir.Related{Kind: scene.Future}
)

// Values reads the value of every attribute plug.
var Values queryir.Transform = queryir.Values{}

// NodeType maps nodes to their type names.
var NodeType queryir.Transform = queryir.NodeType{}

// Attr maps nodes to the attribute plug "node.attr".
func Attr(name string) queryir.Transform {
	return queryir.AttributeOf{Attr: name}
}
