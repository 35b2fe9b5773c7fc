package querysql

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SQLCompiler compiles backend port requests to parameterized SQL for SQLite.
//
// Every query carries an ORDER BY so results are deterministic; nodes and
// connections order by their insertion seq, which is scene declaration order.
// Identifier batches are bound as ONE JSON array parameter and expanded with
// json_each, so request size never runs into SQLite's host parameter limit.
// Values are always parameterized, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a request to (sql, params).
func (c *SQLCompiler) Compile(r Request) (string, []any, error) {
	if r == nil {
		return "", nil, fmt.Errorf("cannot compile nil request")
	}

	switch req := r.(type) {
	case NodesByType:
		return c.compileNodesByType(req)
	case *NodesByType:
		return c.compileNodesByType(*req)
	case UnknownTypes:
		return c.compileUnknownTypes(req)
	case *UnknownTypes:
		return c.compileUnknownTypes(*req)
	case NodesExist:
		return c.compileNodesExist(req)
	case *NodesExist:
		return c.compileNodesExist(*req)
	case ChildrenOf:
		return c.compileChildrenOf(req)
	case *ChildrenOf:
		return c.compileChildrenOf(*req)
	case ParentsOf:
		return c.compileParentsOf(req)
	case *ParentsOf:
		return c.compileParentsOf(*req)
	case ConnectionEdges:
		return c.compileConnectionEdges(req)
	case *ConnectionEdges:
		return c.compileConnectionEdges(*req)
	case AttributeValues:
		return c.compileAttributeValues(req)
	case *AttributeValues:
		return c.compileAttributeValues(*req)
	case AttributeOwners:
		return c.compileAttributeOwners(req)
	case *AttributeOwners:
		return c.compileAttributeOwners(*req)
	case NodeTypes:
		return c.compileNodeTypes(req)
	case *NodeTypes:
		return c.compileNodeTypes(*req)
	default:
		return "", nil, fmt.Errorf("unsupported request type: %T", r)
	}
}

// compileNodesByType expands the requested types through the node_types
// hierarchy with a recursive CTE. An empty type list selects every node.
func (c *SQLCompiler) compileNodesByType(r NodesByType) (string, []any, error) {
	if len(r.Types) == 0 {
		return "SELECT n.name FROM nodes n ORDER BY n.seq ASC", nil, nil
	}
	list, err := jsonList(r.Types)
	if err != nil {
		return "", nil, err
	}
	sql := `WITH RECURSIVE derived(name) AS (` +
		`SELECT value FROM json_each(?) ` +
		`UNION ` +
		`SELECT t.name FROM node_types t JOIN derived d ON t.base = d.name` +
		`) ` +
		`SELECT n.name FROM nodes n WHERE n.type IN (SELECT name FROM derived) ` +
		`ORDER BY n.seq ASC`
	return sql, []any{list}, nil
}

func (c *SQLCompiler) compileUnknownTypes(r UnknownTypes) (string, []any, error) {
	list, err := jsonList(r.Types)
	if err != nil {
		return "", nil, err
	}
	sql := `SELECT j.value FROM json_each(?) j ` +
		`WHERE j.value NOT IN (SELECT name FROM node_types) ` +
		`ORDER BY j.key ASC`
	return sql, []any{list}, nil
}

func (c *SQLCompiler) compileNodesExist(r NodesExist) (string, []any, error) {
	return c.selectWhereIn("n.name", "nodes n", "n.name", "n.seq ASC", r.Nodes)
}

func (c *SQLCompiler) compileChildrenOf(r ChildrenOf) (string, []any, error) {
	return c.selectWhereIn("n.parent, n.name", "nodes n", "n.parent", "n.seq ASC", r.Parents)
}

func (c *SQLCompiler) compileParentsOf(r ParentsOf) (string, []any, error) {
	sql, params, err := c.selectWhereIn("n.name, n.parent", "nodes n", "n.name", "n.seq ASC", r.Nodes)
	if err != nil {
		return "", nil, err
	}
	// Roots have no parent row to report.
	sql = strings.Replace(sql, " ORDER BY", " AND n.parent IS NOT NULL ORDER BY", 1)
	return sql, params, nil
}

// compileConnectionEdges selects (anchor, neighbour) pairs. Upstream anchors
// on the target and reports sources; downstream anchors on the source and
// reports targets.
func (c *SQLCompiler) compileConnectionEdges(r ConnectionEdges) (string, []any, error) {
	switch r.Direction {
	case Upstream:
		return c.selectWhereIn("k.target, k.source", "connections k", "k.target", "k.seq ASC", r.Nodes)
	case Downstream:
		return c.selectWhereIn("k.source, k.target", "connections k", "k.source", "k.seq ASC", r.Nodes)
	default:
		return "", nil, fmt.Errorf("invalid connection direction %d", r.Direction)
	}
}

func (c *SQLCompiler) compileAttributeValues(r AttributeValues) (string, []any, error) {
	if r.Attr == "" {
		return "", nil, fmt.Errorf("attribute name is required")
	}
	list, err := jsonList(r.Nodes)
	if err != nil {
		return "", nil, err
	}
	sql := `SELECT a.node, a.value FROM attributes a ` +
		`WHERE a.name = ? AND a.node IN (SELECT value FROM json_each(?)) ` +
		`ORDER BY a.node COLLATE BINARY ASC`
	return sql, []any{r.Attr, list}, nil
}

func (c *SQLCompiler) compileAttributeOwners(r AttributeOwners) (string, []any, error) {
	if r.Attr == "" {
		return "", nil, fmt.Errorf("attribute name is required")
	}
	list, err := jsonList(r.Nodes)
	if err != nil {
		return "", nil, err
	}
	sql := `SELECT a.node FROM attributes a ` +
		`WHERE a.name = ? AND a.node IN (SELECT value FROM json_each(?)) ` +
		`ORDER BY a.node COLLATE BINARY ASC`
	return sql, []any{r.Attr, list}, nil
}

func (c *SQLCompiler) compileNodeTypes(r NodeTypes) (string, []any, error) {
	return c.selectWhereIn("n.name, n.type", "nodes n", "n.name", "n.seq ASC", r.Nodes)
}

// selectWhereIn builds SELECT cols FROM from WHERE key IN (json_each(?)) ORDER BY order.
func (c *SQLCompiler) selectWhereIn(cols, from, key, order string, ids []string) (string, []any, error) {
	list, err := jsonList(ids)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (SELECT value FROM json_each(?)) ORDER BY %s",
		cols, from, key, order)
	return sql, []any{list}, nil
}

// jsonList encodes ids as a JSON array parameter. A nil slice encodes as [].
func jsonList(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode identifier list: %w", err)
	}
	return string(b), nil
}
