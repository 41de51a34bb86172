package schema

import (
	"fmt"
	"slices"
	"strings"
)

// RelationKind classifies what a relationship record contributes to the index.
type RelationKind string

const (
	KindType        RelationKind = "type"
	KindMaterial    RelationKind = "material"
	KindPropertySet RelationKind = "property_set"
	KindContainment RelationKind = "containment"
	KindAggregation RelationKind = "aggregation"
)

func (k RelationKind) valid() bool {
	switch k {
	case KindType, KindMaterial, KindPropertySet, KindContainment, KindAggregation:
		return true
	}
	return false
}

// Relationship describes one relationship record type: the attribute naming
// the single relating entity and the attribute naming the related entities.
type Relationship struct {
	Entity   string
	Kind     RelationKind
	Relating string
	Related  string
}

// Profile is the resolved, immutable schema knowledge for one family of schemas.
type Profile struct {
	Name            string
	Schemas         []string
	ContainerTypes  []string
	LabelAttribute  string
	HierarchyRoot   string
	HierarchyLevels []string
	Relationships   []Relationship

	attributes   map[string][]string
	typeObjects  typeObjects
	rootTypes    map[string]struct{}
	rootPrefixes []string
	rootSuffixes []string
	containers   map[string]struct{}
	relByEntity  map[string]Relationship
}

// typeObjects recognizes type definitions, which share one attribute layout
// across all their subtypes.
type typeObjects struct {
	types        map[string]struct{}
	suffixes     []string
	attributes   []string
	propertySets string
}

// ProfileSpec is the unresolved form of a profile as written in a profile file.
type ProfileSpec struct {
	Name            string
	Schemas         []string
	ContainerTypes  []string
	LabelAttribute  string
	HierarchyRoot   string
	HierarchyLevels []string
	RootTypes       []string
	RootPrefixes    []string
	RootSuffixes    []string
	Relationships   []Relationship
	Attributes      map[string][]string

	// TypeObject* describe type definitions. Their property sets are
	// referenced from TypePropertySets rather than through relationship
	// records.
	TypeObjectTypes      []string
	TypeObjectSuffixes   []string
	TypeObjectAttributes []string
	TypePropertySets     string
}

// NewProfile validates spec and resolves it into a Profile.
func NewProfile(spec ProfileSpec) (*Profile, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("profile name must not be empty")
	}
	if len(spec.ContainerTypes) == 0 {
		return nil, fmt.Errorf("profile %q: at least one container type is required", spec.Name)
	}

	p := &Profile{
		Name:            spec.Name,
		Schemas:         upperAll(spec.Schemas),
		ContainerTypes:  upperAll(spec.ContainerTypes),
		LabelAttribute:  spec.LabelAttribute,
		HierarchyRoot:   strings.ToUpper(spec.HierarchyRoot),
		HierarchyLevels: upperAll(spec.HierarchyLevels),
		attributes:      make(map[string][]string, len(spec.Attributes)),
		rootTypes:       make(map[string]struct{}, len(spec.RootTypes)),
		rootPrefixes:    upperAll(spec.RootPrefixes),
		rootSuffixes:    upperAll(spec.RootSuffixes),
		containers:      make(map[string]struct{}, len(spec.ContainerTypes)),
		relByEntity:     make(map[string]Relationship, len(spec.Relationships)),
		typeObjects: typeObjects{
			types:        make(map[string]struct{}, len(spec.TypeObjectTypes)),
			suffixes:     upperAll(spec.TypeObjectSuffixes),
			attributes:   slices.Clone(spec.TypeObjectAttributes),
			propertySets: spec.TypePropertySets,
		},
	}
	if p.LabelAttribute == "" {
		p.LabelAttribute = "Name"
	}
	for label, names := range spec.Attributes {
		p.attributes[strings.ToUpper(label)] = slices.Clone(names)
	}
	for _, t := range spec.RootTypes {
		p.rootTypes[strings.ToUpper(t)] = struct{}{}
	}
	for _, t := range p.ContainerTypes {
		p.containers[t] = struct{}{}
	}
	for _, t := range spec.TypeObjectTypes {
		p.typeObjects.types[strings.ToUpper(t)] = struct{}{}
	}
	if spec.TypePropertySets != "" && !slices.Contains(spec.TypeObjectAttributes, spec.TypePropertySets) {
		return nil, fmt.Errorf("profile %q: type property sets refer to undeclared attribute %q", spec.Name, spec.TypePropertySets)
	}

	for _, rel := range spec.Relationships {
		rel.Entity = strings.ToUpper(rel.Entity)
		if !rel.Kind.valid() {
			return nil, fmt.Errorf("profile %q: relationship %s has unknown kind %q", spec.Name, rel.Entity, rel.Kind)
		}
		if rel.Relating == "" || rel.Related == "" {
			return nil, fmt.Errorf("profile %q: relationship %s needs both relating and related attributes", spec.Name, rel.Entity)
		}
		if _, dup := p.relByEntity[rel.Entity]; dup {
			return nil, fmt.Errorf("profile %q: relationship %s declared twice", spec.Name, rel.Entity)
		}
		names := p.attributes[rel.Entity]
		for _, attr := range []string{rel.Relating, rel.Related} {
			if !slices.Contains(names, attr) {
				return nil, fmt.Errorf("profile %q: relationship %s refers to undeclared attribute %q", spec.Name, rel.Entity, attr)
			}
		}
		p.relByEntity[rel.Entity] = rel
		p.Relationships = append(p.Relationships, rel)
	}
	return p, nil
}

// IsRoot reports whether entities of the given type are independently
// meaningful and therefore act as traversal boundaries.
func (p *Profile) IsRoot(label string) bool {
	label = strings.ToUpper(label)
	if _, ok := p.rootTypes[label]; ok {
		return true
	}
	for _, prefix := range p.rootPrefixes {
		if strings.HasPrefix(label, prefix) {
			return true
		}
	}
	for _, suffix := range p.rootSuffixes {
		if strings.HasSuffix(label, suffix) {
			return true
		}
	}
	return false
}

// IsContainer reports whether the label is one of the partition key types.
func (p *Profile) IsContainer(label string) bool {
	_, ok := p.containers[strings.ToUpper(label)]
	return ok
}

// Supports reports whether the profile declares the schema identifier.
func (p *Profile) Supports(schemaID string) bool {
	return slices.Contains(p.Schemas, strings.ToUpper(schemaID))
}

// IsTypeObject reports whether label is a type definition. Entities with
// their own attribute table are never type objects.
func (p *Profile) IsTypeObject(label string) bool {
	label = strings.ToUpper(label)
	if _, ok := p.attributes[label]; ok {
		return false
	}
	if _, ok := p.typeObjects.types[label]; ok {
		return true
	}
	for _, suffix := range p.typeObjects.suffixes {
		if strings.HasSuffix(label, suffix) {
			return true
		}
	}
	return false
}

// TypePropertySets returns the attribute of a type object listing its
// property sets, or "" when the profile declares none.
func (p *Profile) TypePropertySets() string {
	return p.typeObjects.propertySets
}

// AttributeName names the attribute at the given position of an entity type.
// Positions without a declared name are called Arg<index>.
func (p *Profile) AttributeName(label string, index int) string {
	names, ok := p.attributes[strings.ToUpper(label)]
	if !ok && p.IsTypeObject(label) {
		names = p.typeObjects.attributes
	}
	if index < len(names) {
		return names[index]
	}
	return fmt.Sprintf("Arg%d", index)
}

// Relationship returns the relationship definition for a record type.
func (p *Profile) Relationship(label string) (Relationship, bool) {
	rel, ok := p.relByEntity[strings.ToUpper(label)]
	return rel, ok
}

// RelationshipTypes returns the record types the index builder scans.
func (p *Profile) RelationshipTypes() []string {
	out := make([]string, len(p.Relationships))
	for i, rel := range p.Relationships {
		out[i] = rel.Entity
	}
	return out
}

// RootTypes returns the explicitly listed root types, sorted.
func (p *Profile) RootTypes() []string {
	out := make([]string, 0, len(p.rootTypes))
	for t := range p.rootTypes {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
