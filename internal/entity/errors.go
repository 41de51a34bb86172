package entity

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id is absent from a store.
var ErrNotFound = errors.New("entity not found")

// ReferenceError describes a reference that cannot be resolved within the
// scope being processed: either the target is absent from the store, or it is
// outside the set of entities selected for a partition.
type ReferenceError struct {
	From   ID
	To     ID
	Reason string
}

func (e *ReferenceError) Error() string {
	if e.From == 0 {
		return fmt.Sprintf("reference to #%d: %s", e.To, e.Reason)
	}
	return fmt.Sprintf("reference #%d -> #%d: %s", e.From, e.To, e.Reason)
}

// Is lets errors.Is(err, ErrNotFound) match dangling references.
func (e *ReferenceError) Is(target error) bool {
	return target == ErrNotFound && e.Reason == ReasonMissing
}

const (
	ReasonMissing    = "target not in store"
	ReasonOutOfScope = "target not in partition"
)
