// Package scene defines the backend port that minq queries run against.
//
// The port is deliberately small: type enumeration, relationship expansion,
// bulk attribute reads, bulk attribute existence and bulk type
// classification. Every method takes a batch of identifiers so the engine can
// replace N per-element calls with one.
//
// Concrete backends:
//   - memscene: in-memory go-memdb tables, used by tests and the harness
//   - store: SQLite, used by the CLI for persisted scenes
//
// Instrument wraps any backend with prometheus counters; tests use it to
// assert how many port calls a query issues.
package scene
