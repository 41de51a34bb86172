package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/inmemorystore"
	"github.com/specialistvlad/storeysplit/internal/schema"
	"github.com/specialistvlad/storeysplit/internal/step"
	"github.com/stretchr/testify/require"
)

// Profile loads the embedded default schema profile.
func Profile(t testing.TB) *schema.Profile {
	t.Helper()
	catalog, err := schema.Load(context.Background())
	require.NoError(t, err)
	p, ok := catalog.Profile(schema.DefaultProfile)
	require.True(t, ok)
	return p
}

// Graph builds small IFC-shaped entity graphs for tests. Ids are assigned
// sequentially from 1 in the order entities are added.
type Graph struct {
	t       testing.TB
	profile *schema.Profile
	store   *inmemorystore.Store
	next    entity.ID
}

// NewGraph starts an empty IFC4 graph named with the default profile.
func NewGraph(t testing.TB) *Graph {
	t.Helper()
	return &Graph{t: t, profile: Profile(t), store: inmemorystore.New("IFC4"), next: 1}
}

// Profile returns the profile used to name attributes.
func (g *Graph) Profile() *schema.Profile { return g.profile }

// Store freezes and returns the underlying store.
func (g *Graph) Store() *inmemorystore.Store {
	g.store.Freeze()
	return g.store
}

// Add appends an entity with positional values and returns its id.
func (g *Graph) Add(typ string, values ...entity.Value) entity.ID {
	g.t.Helper()
	id := g.next
	g.next++
	g.AddWithID(id, typ, values...)
	return id
}

// AddWithID inserts an entity under a fixed id. Later Add calls continue
// after the highest id seen.
func (g *Graph) AddWithID(id entity.ID, typ string, values ...entity.Value) {
	g.t.Helper()
	e := entity.New(id, typ)
	for i, v := range values {
		e.Attributes = append(e.Attributes, entity.Attribute{Name: g.profile.AttributeName(e.Type, i), Value: v})
	}
	require.NoError(g.t, g.store.Add(e))
	if id >= g.next {
		g.next = id + 1
	}
}

func (g *Graph) guid() entity.Value {
	return entity.String(fmt.Sprintf("guid-%04d", g.next))
}

func refOrNull(id entity.ID) entity.Value {
	if id == 0 {
		return entity.Null()
	}
	return entity.Ref(id)
}

// Placement adds a local placement chain (point, axis, placement) relative
// to relTo, which may be zero, and returns the placement id.
func (g *Graph) Placement(relTo entity.ID) entity.ID {
	pt := g.Add("IFCCARTESIANPOINT", entity.List(entity.Real(0), entity.Real(0), entity.Real(0)))
	axis := g.Add("IFCAXIS2PLACEMENT3D", entity.Ref(pt), entity.Null(), entity.Null())
	return g.Add("IFCLOCALPLACEMENT", refOrNull(relTo), entity.Ref(axis))
}

// Project adds an IFCPROJECT with a units assignment.
func (g *Graph) Project(name string) entity.ID {
	unit := g.Add("IFCSIUNIT", entity.Derived(), entity.Enum("LENGTHUNIT"), entity.Enum("MILLI"), entity.Enum("METRE"))
	units := g.Add("IFCUNITASSIGNMENT", entity.RefList(unit))
	return g.Add("IFCPROJECT", g.guid(), entity.Null(), entity.String(name), entity.Null(), entity.Null(),
		entity.Null(), entity.Null(), entity.List(), entity.Ref(units))
}

// Spatial adds a spatial structure element (site, building or storey) with
// its own placement relative to parentPlacement.
func (g *Graph) Spatial(typ, name string, parentPlacement entity.ID) (id, placement entity.ID) {
	placement = g.Placement(parentPlacement)
	nameVal := entity.Null()
	if name != "" {
		nameVal = entity.String(name)
	}
	id = g.Add(typ, g.guid(), entity.Null(), nameVal, entity.Null(), entity.Null(),
		entity.Ref(placement), entity.Null(), entity.Null(), entity.Enum("ELEMENT"))
	return id, placement
}

// Element adds a product placed relative to parentPlacement with a small
// polyline representation.
func (g *Graph) Element(typ, name string, parentPlacement entity.ID) entity.ID {
	placement := g.Placement(parentPlacement)
	p1 := g.Add("IFCCARTESIANPOINT", entity.List(entity.Real(0), entity.Real(0)))
	p2 := g.Add("IFCCARTESIANPOINT", entity.List(entity.Real(1000), entity.Real(0)))
	line := g.Add("IFCPOLYLINE", entity.RefList(p1, p2))
	rep := g.Add("IFCSHAPEREPRESENTATION", entity.Null(), entity.String("Axis"), entity.String("Curve2D"), entity.RefList(line))
	shape := g.Add("IFCPRODUCTDEFINITIONSHAPE", entity.Null(), entity.Null(), entity.RefList(rep))
	return g.Add(typ, g.guid(), entity.Null(), entity.String(name), entity.Null(), entity.Null(),
		entity.Ref(placement), entity.Ref(shape), entity.Null())
}

// Material adds an IFCMATERIAL.
func (g *Graph) Material(name string) entity.ID {
	return g.Add("IFCMATERIAL", entity.String(name))
}

// PropertySet adds a property set holding one single-value property.
func (g *Graph) PropertySet(name string) entity.ID {
	prop := g.Add("IFCPROPERTYSINGLEVALUE", entity.String("Reference"), entity.Null(),
		entity.Typed("IFCIDENTIFIER", entity.String(name)), entity.Null())
	return g.Add("IFCPROPERTYSET", g.guid(), entity.Null(), entity.String(name), entity.Null(), entity.RefList(prop))
}

// ElementType adds a type object, listing psets in HasPropertySets when given.
func (g *Graph) ElementType(typ, name string, psets ...entity.ID) entity.ID {
	if len(psets) == 0 {
		return g.Add(typ, g.guid(), entity.Null(), entity.String(name))
	}
	return g.Add(typ, g.guid(), entity.Null(), entity.String(name), entity.Null(), entity.Null(),
		entity.RefList(psets...))
}

// Aggregate adds an IFCRELAGGREGATES record.
func (g *Graph) Aggregate(parent entity.ID, children ...entity.ID) entity.ID {
	return g.Add("IFCRELAGGREGATES", g.guid(), entity.Null(), entity.Null(), entity.Null(),
		entity.Ref(parent), entity.RefList(children...))
}

// Contain adds an IFCRELCONTAINEDINSPATIALSTRUCTURE record.
func (g *Graph) Contain(container entity.ID, elements ...entity.ID) entity.ID {
	return g.Add("IFCRELCONTAINEDINSPATIALSTRUCTURE", g.guid(), entity.Null(), entity.Null(), entity.Null(),
		entity.RefList(elements...), entity.Ref(container))
}

// DefineType adds an IFCRELDEFINESBYTYPE record.
func (g *Graph) DefineType(typ entity.ID, elements ...entity.ID) entity.ID {
	return g.Add("IFCRELDEFINESBYTYPE", g.guid(), entity.Null(), entity.Null(), entity.Null(),
		entity.RefList(elements...), entity.Ref(typ))
}

// AssociateMaterial adds an IFCRELASSOCIATESMATERIAL record.
func (g *Graph) AssociateMaterial(material entity.ID, elements ...entity.ID) entity.ID {
	return g.Add("IFCRELASSOCIATESMATERIAL", g.guid(), entity.Null(), entity.Null(), entity.Null(),
		entity.RefList(elements...), entity.Ref(material))
}

// DefineProperties adds an IFCRELDEFINESBYPROPERTIES record.
func (g *Graph) DefineProperties(pset entity.ID, elements ...entity.ID) entity.ID {
	return g.Add("IFCRELDEFINESBYPROPERTIES", g.guid(), entity.Null(), entity.Null(), entity.Null(),
		entity.RefList(elements...), entity.Ref(pset))
}

// WriteFile serializes the graph into dir/name and returns the path.
func (g *Graph) WriteFile(dir, name string) string {
	g.t.Helper()
	store := g.Store()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(g.t, err)
	defer f.Close()
	require.NoError(g.t, step.Write(f, step.DefaultHeader(store.Schema()), store.All()))
	return path
}
