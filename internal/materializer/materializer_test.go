package materializer

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/specialistvlad/storeysplit/internal/closure"
	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/planner"
	"github.com/specialistvlad/storeysplit/internal/relindex"
	"github.com/specialistvlad/storeysplit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(entities []*entity.Entity) []entity.ID {
	out := make([]entity.ID, len(entities))
	for i, e := range entities {
		out[i] = e.ID
	}
	return out
}

func TestMaterialize_AscendingValueCopies(t *testing.T) {
	f := testutil.NewTwoStoreys(t)
	store := f.Store()
	ctx := context.Background()

	idx, err := relindex.Build(ctx, store, f.Profile())
	require.NoError(t, err)
	p := planner.Plan(idx, f.H.Chain(), f.S1, "Level_1", planner.Options{})
	cl, err := closure.New(store, f.Profile()).Compute(ctx, p.ExplicitRoots)
	require.NoError(t, err)

	res, err := Materialize(ctx, store, p.ExplicitRoots, cl.Closure, Options{Schema: "IFC4"})
	require.NoError(t, err)

	want := p.ExplicitRoots.Union(cl.Closure).Sorted()
	got := ids(res.Store.All())
	assert.Equal(t, want, got)
	assert.True(t, slices.IsSorted(got))
	assert.Equal(t, len(want), res.Written)
	assert.Zero(t, res.Failed)
	assert.Equal(t, "IFC4", res.Store.Schema())

	copied, err := res.Store.ByID(f.E1)
	require.NoError(t, err)
	original, err := store.ByID(f.E1)
	require.NoError(t, err)
	assert.Equal(t, original, copied)
	assert.NotSame(t, original, copied)
}

func TestMaterialize_SkipsFailuresAndContinues(t *testing.T) {
	g := testutil.NewGraph(t)
	g.AddWithID(1, "IFCWALL", entity.Ref(2))
	g.AddWithID(2, "IFCLOCALPLACEMENT", entity.Ref(3))
	g.AddWithID(3, "IFCDOOR")
	g.AddWithID(4, "IFCCARTESIANPOINT", entity.List(entity.Real(0)))
	store := g.Store()

	buf := &testutil.SafeBuffer{}
	roots := entity.NewSet(1, 7)
	res, err := Materialize(testutil.LoggerContext(buf), store, roots, entity.NewSet(2, 4), Options{})
	require.NoError(t, err)

	// 2 references 3, which is outside; 1 then references the skipped 2.
	assert.Equal(t, []entity.ID{4}, ids(res.Store.All()))
	assert.Equal(t, 1, res.Written)
	assert.Equal(t, 3, res.Failed)
	require.Len(t, res.Failures, 3)

	assert.ErrorIs(t, res.Failures[0], entity.ErrNotFound)

	testCases := []struct {
		from, to entity.ID
	}{
		{from: 2, to: 3},
		{from: 1, to: 2},
	}
	for i, tc := range testCases {
		var refErr *entity.ReferenceError
		require.ErrorAs(t, res.Failures[i+1], &refErr)
		assert.Equal(t, tc.from, refErr.From)
		assert.Equal(t, tc.to, refErr.To)
		assert.Equal(t, entity.ReasonOutOfScope, refErr.Reason)
	}
	assert.Contains(t, buf.String(), "Entity skipped.")
	assertClosed(t, res.Store)
}

func TestMaterialize_SkipCascadesThroughChains(t *testing.T) {
	g := testutil.NewGraph(t)
	g.AddWithID(1, "IFCWALL", entity.Ref(2))
	g.AddWithID(2, "IFCLOCALPLACEMENT", entity.Ref(3))
	g.AddWithID(3, "IFCLOCALPLACEMENT", entity.Ref(8))
	g.AddWithID(5, "IFCCARTESIANPOINT", entity.List(entity.Real(0)))
	store := g.Store()

	res, err := Materialize(context.Background(), store, entity.NewSet(1), entity.NewSet(2, 3, 5), Options{})
	require.NoError(t, err)

	assert.Equal(t, []entity.ID{5}, ids(res.Store.All()))
	assert.Equal(t, 3, res.Failed)
	var refErr *entity.ReferenceError
	require.ErrorAs(t, res.Failures[0], &refErr)
	assert.Equal(t, entity.ID(3), refErr.From)
	assert.Equal(t, entity.ReasonMissing, refErr.Reason)
	assertClosed(t, res.Store)
}

// assertClosed checks that every reference in out resolves within out.
func assertClosed(t *testing.T, out entity.Store) {
	t.Helper()
	for _, e := range out.All() {
		for _, ref := range e.Refs() {
			_, err := out.ByID(ref)
			assert.NoError(t, err, "#%d -> #%d", e.ID, ref)
		}
	}
}

func TestMaterialize_TypedWall(t *testing.T) {
	for _, keep := range []bool{false, true} {
		t.Run(fmt.Sprintf("keep relationships %v", keep), func(t *testing.T) {
			f := testutil.NewTypedWall(t)
			store := f.Store()
			ctx := context.Background()

			idx, err := relindex.Build(ctx, store, f.Profile())
			require.NoError(t, err)
			p := planner.Plan(idx, f.H.Chain(), f.S1, "L1", planner.Options{KeepRelationships: keep})
			cl, err := closure.New(store, f.Profile()).Compute(ctx, p.ExplicitRoots)
			require.NoError(t, err)

			res, err := Materialize(ctx, store, p.ExplicitRoots, cl.Closure, Options{
				Schema:             "IFC4",
				Profile:            f.Profile(),
				PruneRelationships: keep,
			})
			require.NoError(t, err)

			assert.Zero(t, res.Failed)
			for _, id := range []entity.ID{f.Wall, f.T, f.P} {
				_, err := res.Store.ByID(id)
				assert.NoError(t, err, "#%d", id)
			}
			_, err = res.Store.ByID(f.DefinesType)
			assert.Equal(t, keep, err == nil)
			assertClosed(t, res.Store)
		})
	}
}

func TestMaterialize_RelationshipDroppedWithItsTarget(t *testing.T) {
	f := testutil.NewTypedWall(t)
	store := f.Store()
	ctx := context.Background()

	idx, err := relindex.Build(ctx, store, f.Profile())
	require.NoError(t, err)
	p := planner.Plan(idx, f.H.Chain(), f.S1, "L1", planner.Options{KeepRelationships: true})
	// Without its property set the type cannot be written.
	roots := p.ExplicitRoots.Union(entity.NewSet())
	roots.Remove(f.P)
	cl, err := closure.New(store, f.Profile()).Compute(ctx, roots)
	require.NoError(t, err)
	require.False(t, cl.Closure.Has(f.P))

	res, err := Materialize(ctx, store, roots, cl.Closure, Options{
		Schema:             "IFC4",
		Profile:            f.Profile(),
		PruneRelationships: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	var refErr *entity.ReferenceError
	require.ErrorAs(t, res.Failures[0], &refErr)
	assert.Equal(t, f.T, refErr.From)
	assert.Equal(t, f.P, refErr.To)

	assert.GreaterOrEqual(t, res.Pruned, 1)
	_, err = res.Store.ByID(f.DefinesType)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	_, err = res.Store.ByID(f.Wall)
	assert.NoError(t, err)
	assertClosed(t, res.Store)
}

func TestMaterialize_PruneRelationships(t *testing.T) {
	f := testutil.NewTwoStoreys(t)
	store := f.Store()
	ctx := context.Background()

	idx, err := relindex.Build(ctx, store, f.Profile())
	require.NoError(t, err)
	p := planner.Plan(idx, f.H.Chain(), f.S2, "Level_2", planner.Options{KeepRelationships: true})
	cl, err := closure.New(store, f.Profile()).Compute(ctx, p.ExplicitRoots)
	require.NoError(t, err)

	res, err := Materialize(ctx, store, p.ExplicitRoots, cl.Closure, Options{
		Schema:             "IFC4",
		Profile:            f.Profile(),
		PruneRelationships: true,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 1, res.Pruned, "M1 -> (E1, E2) has nothing left in S2")

	for _, e := range res.Store.OfType("IFCRELDEFINESBYTYPE") {
		related, ok := e.Attr("RelatedObjects")
		require.True(t, ok)
		assert.Equal(t, []entity.ID{f.E3}, related.Refs())
	}
	agg := res.Store.OfType("IFCRELAGGREGATES")
	require.NotEmpty(t, agg)
	for _, e := range agg {
		related, _ := e.Attr("RelatedObjects")
		assert.NotContains(t, related.Refs(), f.S1)
	}

	// The source store is untouched.
	for _, e := range store.OfType("IFCRELDEFINESBYTYPE") {
		related, _ := e.Attr("RelatedObjects")
		assert.Equal(t, []entity.ID{f.E1, f.E3}, related.Refs())
	}
}

func TestMaterialize_Cancelled(t *testing.T) {
	f := testutil.NewTwoStoreys(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Materialize(ctx, f.Store(), entity.NewSet(f.S1), entity.NewSet(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
