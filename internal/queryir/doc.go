// Package queryir defines the inert query plan: a tree of stream nodes that
// describes a scene query without running it.
//
// A plan is built bottom-up. Every chaining step wraps the previous node in
// a new one, so plans are immutable values that can be shared, rendered and
// resolved any number of times. Nothing in this package talks to a backend;
// resolution lives in internal/engine.
//
//	[minq fluent API] → [queryir.Node tree] → [engine.Resolve] → [scene.Backend]
//
// SEALED INTERFACES:
//
// Node, Predicate, Transform and TypeDesignator are sealed with marker
// methods. Only types in this package implement them, so the engine's type
// switches are exhaustive:
//
//	switch n := node.(type) {
//	case Source:
//	    // static values
//	case TypeQuery:
//	    // backend type enumeration
//	case Like, Only, Where, Having, Distinct:
//	    // filters
//	...
//	}
//
// STAGES:
//
// Every node belongs to one stage kind (see StageOf): sources produce the
// initial sequence, filters keep a subsequence in upstream order, transforms
// map or expand elements, aggregates split and join streams, and set
// operations combine two streams.
//
// SPLIT POINTS:
//
// A SplitPoint marks an upstream node whose result is shared by several
// Shared handles. The pointer identity of the SplitPoint is the sharing
// key: handles built from the same SplitPoint read one execution of its
// input when they are resolved inside one execution context.
package queryir
