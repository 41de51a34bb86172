package testutil

import (
	"testing"

	"github.com/specialistvlad/storeysplit/internal/entity"
)

// Site holds the ids of a project → site → building hierarchy.
type Site struct {
	Project, Site, Building entity.ID
	BuildingPlacement       entity.ID
}

// Hierarchy adds a project, a site and a building linked by aggregation.
func (g *Graph) Hierarchy() Site {
	var h Site
	h.Project = g.Project("Project")
	var sitePlacement entity.ID
	h.Site, sitePlacement = g.Spatial("IFCSITE", "Site", 0)
	h.Building, h.BuildingPlacement = g.Spatial("IFCBUILDING", "Building", sitePlacement)
	g.Aggregate(h.Project, h.Site)
	g.Aggregate(h.Site, h.Building)
	return h
}

// Chain returns the hierarchy ids from the project down to the building.
func (s Site) Chain() []entity.ID {
	return []entity.ID{s.Project, s.Site, s.Building}
}

// TwoStoreys is two storeys sharing one material: S1 holds E1 and E2, S2
// holds E3, and all three are associated with M1. E1 and E3 share the wall
// type T1; E2 carries property set P1.
type TwoStoreys struct {
	*Graph
	H          Site
	S1, S2     entity.ID
	E1, E2, E3 entity.ID
	M1, T1, P1 entity.ID
}

// NewTwoStoreys builds the TwoStoreys fixture.
func NewTwoStoreys(t testing.TB) *TwoStoreys {
	t.Helper()
	g := NewGraph(t)
	f := &TwoStoreys{Graph: g, H: g.Hierarchy()}

	var p1, p2 entity.ID
	f.S1, p1 = g.Spatial("IFCBUILDINGSTOREY", "Level 1", f.H.BuildingPlacement)
	f.S2, p2 = g.Spatial("IFCBUILDINGSTOREY", "Level 2", f.H.BuildingPlacement)
	g.Aggregate(f.H.Building, f.S1, f.S2)

	f.E1 = g.Element("IFCWALL", "Wall 1", p1)
	f.E2 = g.Element("IFCSLAB", "Slab 1", p1)
	f.E3 = g.Element("IFCWALL", "Wall 3", p2)
	g.Contain(f.S1, f.E1, f.E2)
	g.Contain(f.S2, f.E3)

	f.M1 = g.Material("Concrete")
	g.AssociateMaterial(f.M1, f.E1, f.E2)
	g.AssociateMaterial(f.M1, f.E3)

	f.T1 = g.ElementType("IFCWALLTYPE", "Basic Wall")
	g.DefineType(f.T1, f.E1, f.E3)

	f.P1 = g.PropertySet("Pset_SlabCommon")
	g.DefineProperties(f.P1, f.E2)
	return f
}

// NoStoreys is a hierarchy with elements placed directly in the building.
func NoStoreys(t testing.TB) *Graph {
	t.Helper()
	g := NewGraph(t)
	h := g.Hierarchy()
	wall := g.Element("IFCWALL", "Wall", h.BuildingPlacement)
	g.Contain(h.Building, wall)
	return g
}

// DanglingRef is one storey whose element E1 references Missing, an id
// absent from the store, from an attribute list. E2 is a clean sibling.
type DanglingRef struct {
	*Graph
	H          Site
	S1, E1, E2 entity.ID
	Missing    entity.ID
}

// NewDanglingRef builds the DanglingRef fixture.
func NewDanglingRef(t testing.TB) *DanglingRef {
	t.Helper()
	g := NewGraph(t)
	f := &DanglingRef{Graph: g, H: g.Hierarchy(), Missing: 9999}

	var p1 entity.ID
	f.S1, p1 = g.Spatial("IFCBUILDINGSTOREY", "Ground", f.H.BuildingPlacement)
	g.Aggregate(f.H.Building, f.S1)

	placement := g.Placement(p1)
	f.E1 = g.Add("IFCBUILDINGELEMENTPROXY", g.guid(), entity.Null(), entity.String("Proxy"), entity.Null(),
		entity.Null(), entity.Ref(placement), entity.RefList(f.Missing), entity.Null())
	f.E2 = g.Element("IFCCOLUMN", "Column", p1)
	g.Contain(f.S1, f.E1, f.E2)
	return f
}

// TypedWall is one storey S1 holding a wall whose type T lists the property
// set P in HasPropertySets. No relationship record mentions P.
type TypedWall struct {
	*Graph
	H              Site
	S1, Wall, T, P entity.ID
	DefinesType    entity.ID
}

// NewTypedWall builds the TypedWall fixture.
func NewTypedWall(t testing.TB) *TypedWall {
	t.Helper()
	g := NewGraph(t)
	f := &TypedWall{Graph: g, H: g.Hierarchy()}

	var p1 entity.ID
	f.S1, p1 = g.Spatial("IFCBUILDINGSTOREY", "L1", f.H.BuildingPlacement)
	g.Aggregate(f.H.Building, f.S1)
	f.Wall = g.Element("IFCWALL", "Wall", p1)
	g.Contain(f.S1, f.Wall)

	f.P = g.PropertySet("Pset_WallCommon")
	f.T = g.ElementType("IFCWALLTYPE", "Basic Wall", f.P)
	f.DefinesType = g.DefineType(f.T, f.Wall)
	return f
}
