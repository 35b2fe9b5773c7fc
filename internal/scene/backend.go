package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/minq/internal/ir"
)

// Backend is the port through which queries read graph structure and
// attribute values. Implementations live in memscene (go-memdb) and store
// (SQLite).
//
// Contract shared by every implementation:
//   - Results are ordered. Type queries return scene declaration order;
//     relationship queries return the per-input results concatenated in input
//     order, duplicates across inputs preserved.
//   - Missing attributes are absent from bulk results, never errors.
//   - Unknown type names fail with ErrUnknownType; relationship queries on
//     identifiers that are not in the scene fail with ErrNodeNotFound.
//   - Bulk reads silently skip identifiers that are not in the scene.
type Backend interface {
	// QueryByType returns every node whose type derives from one of types
	// (all nodes when types is empty) and whose identifier matches ns.
	QueryByType(ctx context.Context, types []string, ns Namespace) ([]ir.IRNode, error)

	// ListRelationship expands every id by kind and concatenates the results.
	ListRelationship(ctx context.Context, ids []ir.IRNode, kind Relationship) ([]ir.IRNode, error)

	// ReadAttributeBulk reads attr on every id that has it.
	ReadAttributeBulk(ctx context.Context, ids []ir.IRNode, attr string) (map[ir.IRNode]ir.IRValue, error)

	// AttributeExistsBulk returns the subset of ids that carry attr.
	AttributeExistsBulk(ctx context.Context, ids []ir.IRNode, attr string) (NodeSet, error)

	// NodeTypeBulk classifies every id by its concrete type name.
	NodeTypeBulk(ctx context.Context, ids []ir.IRNode) (map[ir.IRNode]string, error)
}

// Mutator is implemented by backends that accept live edits between
// resolutions.
type Mutator interface {
	SetAttribute(name, attr string, v ir.IRValue) error
	DeleteNode(name string) error
}

// LiveBackend is a Backend that can also be edited.
type LiveBackend interface {
	Backend
	Mutator
}

// Sentinel errors returned (wrapped) by backends.
var (
	ErrUnknownType  = errors.New("unknown node type")
	ErrNodeNotFound = errors.New("node not found")
)

// IsNotFound reports whether err was caused by a missing node.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsUnknownType reports whether err was caused by an unknown type name.
func IsUnknownType(err error) bool {
	return errors.Is(err, ErrUnknownType)
}

// NotFound wraps ErrNodeNotFound with the offending identifier.
func NotFound(id ir.IRNode) error {
	return fmt.Errorf("%w: %q", ErrNodeNotFound, string(id))
}

// UnknownType wraps ErrUnknownType with the offending type name.
func UnknownType(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// NodeSet is an unordered set of identifiers.
type NodeSet map[ir.IRNode]struct{}

// NewNodeSet builds a set from identifiers.
func NewNodeSet(ids ...ir.IRNode) NodeSet {
	s := make(NodeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s NodeSet) Has(id ir.IRNode) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s NodeSet) Add(id ir.IRNode) {
	s[id] = struct{}{}
}
