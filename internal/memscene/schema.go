package memscene

import (
	"github.com/hashicorp/go-memdb"

	"github.com/roach88/minq/internal/ir"
)

const (
	tableNode       = "node"
	tableAttribute  = "attribute"
	tableConnection = "connection"

	indexID     = "id"
	indexParent = "parent"
	indexType   = "type"
	indexNode   = "node"
	indexSource = "source"
	indexTarget = "target"
)

// node rows carry Seq so reads can restore declaration order; memdb indexes
// iterate in key order.
type node struct {
	Name   string
	Type   string
	Parent string
	UUID   string
	Seq    int
}

type attribute struct {
	Node  string
	Name  string
	Value ir.IRValue
}

type connection struct {
	Seq        int
	Source     string
	SourceAttr string
	Target     string
	TargetAttr string
}

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableNode: {
			Name: tableNode,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Name"},
				},
				indexParent: {
					Name:         indexParent,
					Unique:       false,
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "Parent"},
				},
				indexType: {
					Name:    indexType,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "Type"},
				},
			},
		},
		tableAttribute: {
			Name: tableAttribute,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:   indexID,
					Unique: true,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "Node"},
							&memdb.StringFieldIndex{Field: "Name"},
						},
					},
				},
				indexNode: {
					Name:    indexNode,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "Node"},
				},
			},
		},
		tableConnection: {
			Name: tableConnection,
			Indexes: map[string]*memdb.IndexSchema{
				indexID: {
					Name:    indexID,
					Unique:  true,
					Indexer: &memdb.IntFieldIndex{Field: "Seq"},
				},
				indexSource: {
					Name:    indexSource,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "Source"},
				},
				indexTarget: {
					Name:    indexTarget,
					Unique:  false,
					Indexer: &memdb.StringFieldIndex{Field: "Target"},
				},
			},
		},
	},
}
