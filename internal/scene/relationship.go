package scene

import (
	"fmt"
	"strings"
)

// Relationship names a graph traversal.
type Relationship int

const (
	// Parents is the immediate DAG parent (zero or one per node).
	Parents Relationship = iota + 1
	// Children are the immediate DAG children in declaration order.
	Children
	// AllChildren are all DAG descendants, depth-first preorder.
	AllChildren
	// AllParents are all DAG ancestors, nearest first.
	AllParents
	// Connections are the nodes directly connected to this one: sources of
	// incoming connections first, then targets of outgoing ones, each once.
	Connections
	// History is everything upstream through incoming connections,
	// breadth-first, excluding the node itself.
	History
	// Future is everything downstream through outgoing connections,
	// breadth-first, excluding the node itself.
	Future
)

var relationshipNames = map[Relationship]string{
	Parents:     "parents",
	Children:    "children",
	AllChildren: "all_children",
	AllParents:  "all_parents",
	Connections: "connections",
	History:     "history",
	Future:      "future",
}

// String returns the snake_case name used in query documents.
func (r Relationship) String() string {
	if s, ok := relationshipNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Relationship(%d)", int(r))
}

// Valid reports whether r is one of the declared kinds.
func (r Relationship) Valid() bool {
	_, ok := relationshipNames[r]
	return ok
}

// Recursive reports whether the traversal follows more than one hop.
func (r Relationship) Recursive() bool {
	switch r {
	case AllChildren, AllParents, History, Future:
		return true
	}
	return false
}

// ParseRelationship accepts the snake_case name or its camelCase form
// ("all_children", "allChildren").
func ParseRelationship(s string) (Relationship, error) {
	norm := strings.ToLower(strings.ReplaceAll(s, "_", ""))
	for r, name := range relationshipNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown relationship %q", s)
}

// Relationships lists every kind in declaration order.
func Relationships() []Relationship {
	return []Relationship{Parents, Children, AllChildren, AllParents, Connections, History, Future}
}
