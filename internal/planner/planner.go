// Package planner decides which root entities make up each partition.
package planner

import (
	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/relindex"
)

// Options tunes Plan.
type Options struct {
	// KeepRelationships adds every indexed relationship record that
	// mentions one of the planned roots. The materializer prunes their
	// references to entities outside the partition.
	KeepRelationships bool
}

// Partition is the per-container work item. It is created, processed and
// discarded by one worker and never shared.
type Partition struct {
	ContainerID   entity.ID
	Label         string
	Members       []entity.ID
	ExplicitRoots entity.Set
	Closure       entity.Set
}

// Entities returns the ids of the explicit roots and the closure.
func (p *Partition) Entities() entity.Set {
	return p.ExplicitRoots.Union(p.Closure)
}

// Plan computes the explicit roots of a container: the ancestor chain, the
// container, its members, and each member's type, materials and property
// sets, plus the property sets the type itself lists. It does no I/O and
// does not touch the store.
func Plan(idx *relindex.Index, chain []entity.ID, container entity.ID, label string, opts Options) *Partition {
	members := idx.Members(container)

	roots := entity.NewSet(chain...)
	roots.Add(container)
	for _, m := range members {
		roots.Add(m)
		if t, ok := idx.TypeOf(m); ok {
			roots.Add(t)
			roots.AddAll(idx.TypePropertySetsOf(t)...)
		}
		roots.AddAll(idx.MaterialsOf(m)...)
		roots.AddAll(idx.PropertySetsOf(m)...)
	}

	if opts.KeepRelationships {
		for _, id := range roots.Sorted() {
			roots.AddAll(idx.RelationshipsOf(id)...)
		}
	}

	return &Partition{
		ContainerID:   container,
		Label:         label,
		Members:       append([]entity.ID(nil), members...),
		ExplicitRoots: roots,
		Closure:       entity.NewSet(),
	}
}
