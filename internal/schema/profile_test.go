package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadBuiltin(t *testing.T) *Profile {
	t.Helper()
	c, err := Load(context.Background())
	require.NoError(t, err)
	p, ok := c.Profile(DefaultProfile)
	require.True(t, ok)
	return p
}

func TestBuiltinProfile_RootPredicate(t *testing.T) {
	p := loadBuiltin(t)

	testCases := []struct {
		label string
		root  bool
	}{
		{"IFCWALL", true},
		{"IfcWallStandardCase", true},
		{"IFCBUILDINGSTOREY", true},
		{"IFCWALLTYPE", true},
		{"IFCRELAGGREGATES", true},
		{"IFCPROPERTYSET", true},
		{"IFCCARTESIANPOINT", false},
		{"IFCLOCALPLACEMENT", false},
		{"IFCMATERIAL", false},
		{"IFCPROPERTYSINGLEVALUE", false},
		{"IFCOWNERHISTORY", false},
	}
	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			assert.Equal(t, tc.root, p.IsRoot(tc.label))
		})
	}
}

func TestBuiltinProfile_Structure(t *testing.T) {
	p := loadBuiltin(t)

	assert.True(t, p.IsContainer("IfcBuildingStorey"))
	assert.False(t, p.IsContainer("IFCBUILDING"))
	assert.Equal(t, "IFCPROJECT", p.HierarchyRoot)
	assert.Equal(t, []string{"IFCSITE", "IFCBUILDING"}, p.HierarchyLevels)
	assert.True(t, p.Supports("ifc4"))
	assert.Len(t, p.Relationships, 5)

	rel, ok := p.Relationship("IfcRelAggregates")
	require.True(t, ok)
	assert.Equal(t, KindAggregation, rel.Kind)
	assert.Equal(t, "RelatingObject", rel.Relating)

	assert.Equal(t, "RelatedElements", p.AttributeName("IFCRELCONTAINEDINSPATIALSTRUCTURE", 4))
	assert.Equal(t, "Name", p.AttributeName("IFCBUILDINGSTOREY", 2))
	assert.Equal(t, "Arg3", p.AttributeName("IFCCARTESIANPOINT", 3))
}

func TestBuiltinProfile_TypeObjects(t *testing.T) {
	p := loadBuiltin(t)

	assert.True(t, p.IsTypeObject("IfcWallType"))
	assert.True(t, p.IsTypeObject("IFCDOORSTYLE"))
	assert.False(t, p.IsTypeObject("IFCRELDEFINESBYTYPE"), "relationship records keep their own table")
	assert.False(t, p.IsTypeObject("IFCWALL"))

	assert.Equal(t, "HasPropertySets", p.TypePropertySets())
	assert.Equal(t, "HasPropertySets", p.AttributeName("IFCWALLTYPE", 5))
	assert.Equal(t, "Name", p.AttributeName("IFCSLABTYPE", 2))
	assert.Equal(t, "Arg9", p.AttributeName("IFCWALLTYPE", 9))
	assert.Equal(t, "RelatingType", p.AttributeName("IFCRELDEFINESBYTYPE", 5))
}

func TestNewProfile_Validation(t *testing.T) {
	base := ProfileSpec{
		Name:           "t",
		ContainerTypes: []string{"STOREY"},
		Attributes:     map[string][]string{"REL": {"A", "B"}},
	}

	_, err := NewProfile(ProfileSpec{Name: "t"})
	assert.ErrorContains(t, err, "at least one container type")

	spec := base
	spec.Relationships = []Relationship{{Entity: "REL", Kind: "bogus", Relating: "A", Related: "B"}}
	_, err = NewProfile(spec)
	assert.ErrorContains(t, err, "unknown kind")

	spec = base
	spec.Relationships = []Relationship{{Entity: "REL", Kind: KindType, Relating: "A", Related: "C"}}
	_, err = NewProfile(spec)
	assert.ErrorContains(t, err, "undeclared attribute \"C\"")

	spec = base
	spec.TypeObjectAttributes = []string{"Name"}
	spec.TypePropertySets = "Psets"
	_, err = NewProfile(spec)
	assert.ErrorContains(t, err, "undeclared attribute \"Psets\"")

	spec = base
	spec.Relationships = []Relationship{{Entity: "rel", Kind: KindType, Relating: "A", Related: "B"}}
	p, err := NewProfile(spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"REL"}, p.RelationshipTypes())
	assert.Equal(t, "Name", p.LabelAttribute)
}

func TestLoad_UserProfileExtendsBuiltin(t *testing.T) {
	dir := t.TempDir()
	src := `
profile "custom" {
  extends = "ifc"
  schemas = ["MYSCHEMA"]

  containers {
    types = concat(builtin.container_types, ["ifcspace"])
  }

  roots {
    types = distinct(concat(builtin.root_types, [upper("ifcmyextension")]))
  }
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "custom.hcl"), []byte(src), 0o644))

	c, err := Load(context.Background(), dir)
	require.NoError(t, err)

	p := c.ForSchema("myschema")
	require.Equal(t, "custom", p.Name)
	assert.True(t, p.IsContainer("IFCSPACE"))
	assert.True(t, p.IsContainer("IFCBUILDINGSTOREY"))
	assert.True(t, p.IsRoot("IFCMYEXTENSION"))
	assert.True(t, p.IsRoot("IFCWALL"))
	assert.Len(t, p.Relationships, 5, "relationships are inherited")

	assert.Equal(t, DefaultProfile, c.ForSchema("IFC2X3").Name)
	assert.Equal(t, DefaultProfile, c.ForSchema("UNKNOWN").Name)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.hcl")
	require.NoError(t, os.WriteFile(bad, []byte(`profile "x" {`), 0o644))
	_, err := Load(context.Background(), bad)
	assert.ErrorContains(t, err, "failed to parse profile file")

	unknown := filepath.Join(dir, "unknown.hcl")
	require.NoError(t, os.WriteFile(unknown, []byte(`profile "x" { extends = "nope" }`), 0o644))
	_, err = Load(context.Background(), unknown)
	assert.ErrorContains(t, err, "extends unknown profile \"nope\"")

	_, err = Load(context.Background(), filepath.Join(dir, "missing.hcl"))
	assert.ErrorContains(t, err, "error accessing profile path")
}
