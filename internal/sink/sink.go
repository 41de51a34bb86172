// Package sink stores partition artifacts. Every artifact is staged first
// and becomes visible under its final name only on Commit, so an aborted or
// failed partition never leaves a partial file behind.
package sink

import (
	"context"
	"io"
)

// Artifact is one output document being written.
type Artifact interface {
	io.Writer

	// Commit publishes the artifact under its final name.
	Commit(ctx context.Context) error

	// Abort discards everything written so far. It is safe to call after a
	// failed Commit.
	Abort() error
}

// Sink creates artifacts.
type Sink interface {
	Create(ctx context.Context, name string) (Artifact, error)

	// Location returns where an artifact called name is published.
	Location(name string) string
}
