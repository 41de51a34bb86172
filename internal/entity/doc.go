// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package entity defines the logical graph the splitter operates on: typed,
// attributed records identified by a numeric id and linked by references.
//
// # Core Concepts
//
//   - Entity: an immutable record with an id, an upper-case type label and an
//     ordered list of named attributes.
//
//   - Value: a single attribute value. Scalars keep their lexical text so an
//     entity copied from one document into another is written back unchanged.
//     References and (possibly nested) lists are the edges of the graph.
//
//   - Store: the read-only view every stage of the splitter consumes. Stores are
//     populated by a loader, frozen, and then shared between concurrently running
//     partitions without further synchronization by callers.
//
//   - Set: an unordered id set with a deterministic Sorted view, used for root
//     sets, closures and membership.
package entity
