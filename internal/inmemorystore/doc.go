// Package inmemorystore provides the in-memory implementation of the
// entity.Store interface used by the splitter.
//
// # Lifecycle
//
// A Store is:
//  1. **Created** empty by a loader (or by tests).
//  2. **Populated** with Add while the source document is decoded.
//  3. **Frozen** once decoding completes. Freeze sorts the per-type indices and
//     rejects any further writes.
//  4. **Shared read-only** by the index builder and every concurrently running
//     partition.
//
// The materializer also uses a Store to collect the value copies of one
// partition before they are serialized.
//
// # Concurrency Model
//
// The store is write-once-read-many. A sync.RWMutex guards the maps so that
// reads stay cheap while the store is shared between partition workers.
package inmemorystore
