// Package ir provides the value types shared by every minq package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - IRValue is sealed; the engine switches over a closed set of kinds
//   - Equality is defined once, by Key, and used for dedup, set algebra,
//     grouping and membership alike
//   - Integral floats equal ints (1 == 1.0); nodes never equal strings
//   - Canonical JSON is deterministic so results can be hashed and snapshotted
package ir
