package closure

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/schema"
)

// ctxCheckEvery is how many entities are expanded between context checks.
const ctxCheckEvery = 1024

// Engine computes closures over one store. It is safe for concurrent use.
type Engine struct {
	store   entity.Store
	profile *schema.Profile

	// order, when set, permutes the references of an entity before they
	// are examined.
	order func(refs []entity.ID)
}

// Result is the outcome of one Compute call.
type Result struct {
	Closure  entity.Set
	Dangling []*entity.ReferenceError // sorted by From, then To
	Boundary entity.Set
}

// New creates an Engine.
func New(store entity.Store, profile *schema.Profile) *Engine {
	return &Engine{store: store, profile: profile}
}

// Compute returns the closure of seeds.
func (e *Engine) Compute(ctx context.Context, seeds entity.Set) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	res := &Result{Closure: entity.NewSet(), Boundary: entity.NewSet()}
	visited := entity.NewSet()
	seen := make(map[[2]entity.ID]struct{})
	dangling := func(from, to entity.ID) {
		key := [2]entity.ID{from, to}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		res.Dangling = append(res.Dangling, &entity.ReferenceError{From: from, To: to, Reason: entity.ReasonMissing})
	}

	var stack []*entity.Entity
	for _, id := range seeds.Sorted() {
		ent, err := e.store.ByID(id)
		if err != nil {
			if !errors.Is(err, entity.ErrNotFound) {
				return nil, err
			}
			dangling(0, id)
			continue
		}
		visited.Add(id)
		stack = append(stack, ent)
	}

	expanded := 0
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		expanded++
		if expanded%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		refs := current.Refs()
		if e.order != nil {
			e.order(refs)
		}
		_, isRelationship := e.profile.Relationship(current.Type)

		for _, ref := range refs {
			if visited.Has(ref) {
				continue
			}
			target, err := e.store.ByID(ref)
			if err != nil {
				if !errors.Is(err, entity.ErrNotFound) {
					return nil, err
				}
				dangling(current.ID, ref)
				continue
			}
			if e.profile.IsRoot(target.Type) {
				if !isRelationship {
					res.Boundary.Add(ref)
				}
				continue
			}
			visited.Add(ref)
			res.Closure.Add(ref)
			stack = append(stack, target)
		}
	}

	slices.SortFunc(res.Dangling, func(a, b *entity.ReferenceError) int {
		return cmp.Or(cmp.Compare(a.From, b.From), cmp.Compare(a.To, b.To))
	})
	for _, d := range res.Dangling {
		logger.Warn("Dangling reference skipped.", "error", d)
	}
	return res, nil
}
