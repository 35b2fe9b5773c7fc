// Package store provides a SQLite-backed scene backend.
//
// A scene is loaded in one transaction by LoadScene and then served through
// the scene.Backend port. Every port call compiles to a bounded number of
// SQL statements via internal/querysql: batch calls bind their node list as
// a single JSON array parameter, and recursive relationships issue one
// statement per hierarchy level for the whole frontier.
//
// # Ordering
//
// Nodes and connections carry a seq INTEGER assigned in declaration order.
// Every query orders by seq (or by node name with COLLATE BINARY for
// attribute reads), so results are identical across runs.
//
// # Mutation
//
// SetAttribute and DeleteNode implement scene.Mutator. Deletion relies on
// foreign key cascades to drop descendants, attributes and connections.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Required for cascading deletes
package store
