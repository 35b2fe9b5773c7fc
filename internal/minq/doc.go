// Package minq is the fluent query surface over a scene backend.
//
// A Stream is an inert description of a query. Chaining returns a new
// Stream and never touches the backend; terminals (Execute, All, Contains,
// Any, AllTrue, First, Count, GroupBy...) resolve the whole chain through
// the engine. Every terminal call re-queries the backend.
//
//	s := minq.NewSession(backend)
//	tall := s.Transforms().Where(minq.Item("ty").Gt(50))
//	nodes, err := tall.Execute(ctx)
//
// Streams built from different sessions must not be combined.
package minq
