package orchestrator

import (
	"fmt"

	"github.com/specialistvlad/storeysplit/internal/entity"
)

// PreconditionError aborts a run before any artifact is written.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// PartitionWriteError reports that one partition's artifact could not be
// written. The artifact is discarded and the run continues.
type PartitionWriteError struct {
	ContainerID entity.ID
	Artifact    string
	Err         error
}

func (e *PartitionWriteError) Error() string {
	return fmt.Sprintf("write partition #%d to %s: %v", e.ContainerID, e.Artifact, e.Err)
}

func (e *PartitionWriteError) Unwrap() error { return e.Err }
