// Package engine resolves query plans against a scene backend.
//
// The engine is the only place where a queryir plan touches the backend.
// Resolution is a single-threaded depth-first walk: each stage fully
// materializes its sequence before its consumer runs, and every resolution
// re-issues its backend calls. Nothing is memoized between calls.
//
// EXECUTION CONTEXT:
//
// Each top-level Resolve or ResolveAll call creates one execution. The
// execution caches the result of every queryir.SplitPoint it resolves, keyed
// by pointer, so Shared handles of one split read a single upstream
// execution. The cache dies with the call.
//
// BULK REWRITE:
//
// Where filters compile their predicate into a Program. Attribute
// comparisons and attribute-existence tests read the attribute once for the
// whole candidate batch (one backend call) and compare in process. Opaque
// Go callables and relationship tests run per element. WithBulkRewrite(false)
// forces every leaf onto the per-element path; both paths select the same
// elements.
//
// ERRORS:
//
// Failures are wrapped once, at the innermost failing stage, in a
// *StageError naming the stage kind, the operator and the plan of the
// failing node. StageError unwraps to the original error, so
// errors.Is(err, scene.ErrUnknownType) still holds. Empty results (missing
// attributes, no relatives, no matching types) are never errors.
package engine
