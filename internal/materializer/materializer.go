// Package materializer copies the entities of one partition into a new store
// in ascending id order, ready for serialization.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/inmemorystore"
	"github.com/specialistvlad/storeysplit/internal/schema"
)

const ctxCheckEvery = 1024

// Options configures Materialize.
type Options struct {
	// Schema is the schema identifier of the output store.
	Schema string

	// Profile, when set together with PruneRelationships, identifies the
	// relationship records whose related lists may be trimmed.
	Profile            *schema.Profile
	PruneRelationships bool
}

// Result reports what was copied.
type Result struct {
	Store    *inmemorystore.Store
	Written  int
	Failed   int
	Pruned   int
	Failures []error
}

// Materialize copies every entity of roots ∪ closure from src. An entity
// that is missing from src, or that references an id which is not written,
// is logged and skipped; the rest of the partition is still copied. Skipping
// repeats until every reference in the output resolves within it.
//
// With PruneRelationships, relationship records lose the related ids that
// are not written. A record whose relating id is not written, or whose
// related list ends up empty, is dropped and counted as pruned.
func Materialize(ctx context.Context, src entity.Store, roots, closure entity.Set, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	ids := roots.Union(closure).Sorted()
	res := &Result{}

	fail := func(err error) {
		res.Failed++
		res.Failures = append(res.Failures, err)
		logger.Warn("Entity skipped.", "error", err)
	}

	dups := make(map[entity.ID]*entity.Entity, len(ids))
	written := entity.NewSet()
	for i, id := range ids {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ent, err := src.ByID(id)
		if err != nil {
			if !errors.Is(err, entity.ErrNotFound) {
				return nil, err
			}
			fail(&entity.ReferenceError{To: id, Reason: entity.ReasonMissing})
			continue
		}
		dups[id] = ent.Clone()
		written.Add(id)
	}

	// Dropping one entity can orphan the entities referencing it.
	for changed := true; changed; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed = false
		for _, id := range ids {
			if !written.Has(id) {
				continue
			}
			dup := dups[id]
			if opts.PruneRelationships && opts.Profile != nil {
				if rel, ok := opts.Profile.Relationship(dup.Type); ok && !prune(dup, rel, written) {
					written.Remove(id)
					res.Pruned++
					changed = true
					logger.Debug("Relationship dropped.", "id", id, "type", dup.Type)
					continue
				}
			}
			if ref, ok := firstOutside(dup, written); ok {
				written.Remove(id)
				changed = true
				fail(&entity.ReferenceError{From: id, To: ref, Reason: reason(src, ref)})
			}
		}
	}

	out := inmemorystore.New(opts.Schema)
	for _, id := range ids {
		if !written.Has(id) {
			continue
		}
		if err := out.Add(dups[id]); err != nil {
			return nil, fmt.Errorf("copy #%d: %w", id, err)
		}
		res.Written++
	}
	out.Freeze()
	res.Store = out
	return res, nil
}

func reason(src entity.Store, ref entity.ID) string {
	if _, err := src.ByID(ref); errors.Is(err, entity.ErrNotFound) {
		return entity.ReasonMissing
	}
	return entity.ReasonOutOfScope
}

func firstOutside(e *entity.Entity, keep entity.Set) (entity.ID, bool) {
	for _, ref := range e.Refs() {
		if !keep.Has(ref) {
			return ref, true
		}
	}
	return 0, false
}

// prune trims a relationship record in place and reports whether it should
// be kept.
func prune(e *entity.Entity, rel schema.Relationship, keep entity.Set) bool {
	for i := range e.Attributes {
		a := &e.Attributes[i]
		switch a.Name {
		case rel.Relating:
			for _, ref := range a.Value.Refs() {
				if !keep.Has(ref) {
					return false
				}
			}
		case rel.Related:
			if a.Value.Kind != entity.KindList {
				continue
			}
			a.Value.Items = slices.DeleteFunc(a.Value.Items, func(v entity.Value) bool {
				return v.Kind == entity.KindRef && !keep.Has(v.Ref)
			})
			if len(a.Value.Items) == 0 {
				return false
			}
		}
	}
	return true
}
