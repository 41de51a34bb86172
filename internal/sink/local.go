package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalDir writes artifacts into a directory through temp files renamed
// into place on Commit.
type LocalDir struct {
	Dir string
}

// NewLocalDir creates dir if needed.
func NewLocalDir(dir string) (*LocalDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &LocalDir{Dir: dir}, nil
}

// Location implements Sink.
func (d *LocalDir) Location(name string) string {
	return filepath.Join(d.Dir, name)
}

// Create implements Sink.
func (d *LocalDir) Create(_ context.Context, name string) (Artifact, error) {
	f, err := os.CreateTemp(d.Dir, "."+name+".partial-*")
	if err != nil {
		return nil, err
	}
	return &localArtifact{f: f, final: d.Location(name)}, nil
}

type localArtifact struct {
	f     *os.File
	final string
	done  bool
}

func (a *localArtifact) Write(p []byte) (int, error) {
	return a.f.Write(p)
}

func (a *localArtifact) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.f.Close(); err != nil {
		return err
	}
	if err := os.Rename(a.f.Name(), a.final); err != nil {
		return err
	}
	a.done = true
	return nil
}

func (a *localArtifact) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	closeErr := a.f.Close()
	if errors.Is(closeErr, os.ErrClosed) {
		closeErr = nil
	}
	if err := os.Remove(a.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}
