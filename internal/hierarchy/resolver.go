// Package hierarchy resolves the chain of spatial ancestors (for IFC:
// project, site, building) that every partition must carry to be loadable
// on its own.
package hierarchy

import (
	"slices"
	"strings"

	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/relindex"
	"github.com/specialistvlad/storeysplit/internal/schema"
)

// Resolver answers ancestor-chain queries over a built index.
type Resolver struct {
	store   entity.Store
	idx     *relindex.Index
	profile *schema.Profile
}

// New creates a Resolver.
func New(store entity.Store, idx *relindex.Index, profile *schema.Profile) *Resolver {
	return &Resolver{store: store, idx: idx, profile: profile}
}

// Chain follows aggregation downward from the first hierarchy root entity
// through the profile's levels, taking the first child of each level type.
// A level with no matching child is skipped. The chain is empty when the
// store has no hierarchy root.
func (r *Resolver) Chain() []entity.ID {
	if r.profile.HierarchyRoot == "" {
		return nil
	}
	roots := r.store.OfType(r.profile.HierarchyRoot)
	if len(roots) == 0 {
		return nil
	}

	current := roots[0].ID
	chain := []entity.ID{current}
	for _, level := range r.profile.HierarchyLevels {
		if next, ok := r.firstChildOfType(current, level); ok {
			chain = append(chain, next)
			current = next
		}
	}
	return chain
}

func (r *Resolver) firstChildOfType(parent entity.ID, label string) (entity.ID, bool) {
	for _, child := range r.idx.ChildrenOf(parent) {
		e, err := r.store.ByID(child)
		if err != nil {
			continue
		}
		if strings.EqualFold(e.Type, label) {
			return child, true
		}
	}
	return 0, false
}

// ChainFor returns the ancestors of container from the top of the hierarchy
// down to, but excluding, the container itself. It walks the first
// encountered aggregation parent of each entity and falls back to Chain when
// the container has no parent at all.
func (r *Resolver) ChainFor(container entity.ID) []entity.ID {
	seen := entity.NewSet(container)
	var up []entity.ID
	for current := container; ; {
		parent, ok := r.idx.ParentOf(current)
		if !ok || seen.Has(parent) {
			break
		}
		seen.Add(parent)
		up = append(up, parent)
		current = parent
	}
	if len(up) == 0 {
		return r.Chain()
	}
	slices.Reverse(up)
	return up
}
