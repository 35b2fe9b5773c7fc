// Package querydoc reads queries written as YAML documents and builds them
// into query plans.
//
// A document names a source and a list of steps, each a single-key mapping:
//
//	name: skinned-meshes
//	from: { type: [skinCluster] }
//	steps:
//	  - get: future
//	  - only: { types: [mesh] }
//	  - distinct: true
//
// Sub-pipelines (set operations and join fields) either start from their
// own source or, with "self: true", from the pipeline they are attached to.
// Self references of one step share a single execution of that pipeline.
package querydoc
