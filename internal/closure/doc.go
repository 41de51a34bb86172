// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package closure computes the non-root entities a partition needs.
//
// Starting from the explicit roots of a partition (the seeds), Compute walks
// references depth first using an explicit stack and a visited set, so
// reference cycles and very deep chains are safe. Each reference is handled
// by one rule:
//
//   - a target absent from the store is dangling. It is recorded as an
//     entity.ReferenceError, logged, and skipped.
//   - a root-typed target that is not a seed is a boundary. It is neither
//     visited nor added to the closure.
//   - any other target is visited once and its references are walked in turn.
//
// The closure is the visited set minus the seeds. Because it is plain
// reachability under a fixed boundary, the result does not depend on the
// order in which attributes are examined.
//
// # Boundary
//
// A root-typed entity referenced from inside the partition but not planned
// as a seed is reported in Result.Boundary. The default pipeline leaves such
// references unresolved in the output. Callers that want a fully resolvable
// partition can promote the boundary into the seeds and recompute until the
// boundary is empty. References held by relationship records are left out of
// the boundary because the materializer prunes them.
package closure
