// Package step reads and writes ISO-10303-21 clear-text exchange files, the
// container format used for IFC models.
//
// Decode turns the DATA section into an inmemorystore.Store and keeps the
// HEADER section as a list of records so that it can be carried over into
// derived documents. Write serializes a header and an id-ordered entity list.
//
// # Ordering Contract
//
// Write requires entities in strictly ascending id order. Consumers of the
// files produced by the splitter resolve a reference only when its target has
// been declared at or before the point of first use, so the ordering is part
// of the output format rather than a side effect of iteration.
package step
