// Package relindex builds the read-only lookup maps the planner needs from
// the relationship records of a store: the type, materials and property sets
// assigned to each element, the members of each container, and the
// aggregation tree used to resolve the spatial hierarchy.
package relindex

import (
	"context"
	"slices"

	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/schema"
)

// Index is immutable once Build returns and safe for concurrent reads.
type Index struct {
	typeOf          map[entity.ID]entity.ID
	materialsOf     map[entity.ID][]entity.ID
	propertySetsOf  map[entity.ID][]entity.ID
	typePsets       map[entity.ID][]entity.ID
	containedIn     map[entity.ID][]entity.ID // sorted, unique
	parentOf        map[entity.ID]entity.ID
	childrenOf      map[entity.ID][]entity.ID
	relationshipsOf map[entity.ID][]entity.ID
	stats           Stats
}

// Stats counts what Build saw, for logging and reporting.
type Stats struct {
	Relationships int `yaml:"relationships"`
	Types         int `yaml:"types"`
	Materials     int `yaml:"materials"`
	PropertySets  int `yaml:"property_sets"`
	TypePsets     int `yaml:"type_property_sets"`
	Containment   int `yaml:"containment"`
	Aggregation   int `yaml:"aggregation"`
	Skipped       int `yaml:"skipped"`
}

// Build scans every relationship record declared by the profile once and fans
// each record out into one entry per related id. Records whose relating or
// related attribute is missing or holds no reference are skipped.
//
// When several type relationships claim the same element, or several
// aggregations claim the same child, the one with the lowest id wins.
func Build(ctx context.Context, store entity.Store, profile *schema.Profile) (*Index, error) {
	logger := ctxlog.FromContext(ctx)

	idx := &Index{
		typeOf:          make(map[entity.ID]entity.ID),
		materialsOf:     make(map[entity.ID][]entity.ID),
		propertySetsOf:  make(map[entity.ID][]entity.ID),
		typePsets:       make(map[entity.ID][]entity.ID),
		containedIn:     make(map[entity.ID][]entity.ID),
		parentOf:        make(map[entity.ID]entity.ID),
		childrenOf:      make(map[entity.ID][]entity.ID),
		relationshipsOf: make(map[entity.ID][]entity.ID),
	}
	members := make(map[entity.ID]entity.Set)

	for _, rel := range profile.Relationships {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, record := range store.OfType(rel.Entity) {
			relating, related, ok := endpoints(record, rel)
			if !ok {
				idx.stats.Skipped++
				logger.Debug("Relationship record skipped.", "id", record.ID, "type", record.Type)
				continue
			}
			idx.stats.Relationships++
			idx.relationshipsOf[relating] = appendUnique(idx.relationshipsOf[relating], record.ID)

			containerParent := false
			if rel.Kind == schema.KindAggregation {
				if parent, err := store.ByID(relating); err == nil {
					containerParent = profile.IsContainer(parent.Type)
				}
			}

			for _, id := range related {
				idx.relationshipsOf[id] = appendUnique(idx.relationshipsOf[id], record.ID)
				switch rel.Kind {
				case schema.KindType:
					if _, exists := idx.typeOf[id]; !exists {
						idx.typeOf[id] = relating
					}
					idx.stats.Types++
				case schema.KindMaterial:
					idx.materialsOf[id] = appendUnique(idx.materialsOf[id], relating)
					idx.stats.Materials++
				case schema.KindPropertySet:
					idx.propertySetsOf[id] = appendUnique(idx.propertySetsOf[id], relating)
					idx.stats.PropertySets++
				case schema.KindContainment:
					addMember(members, relating, id)
					idx.stats.Containment++
				case schema.KindAggregation:
					if _, exists := idx.parentOf[id]; !exists {
						idx.parentOf[id] = relating
					}
					idx.childrenOf[relating] = appendUnique(idx.childrenOf[relating], id)
					if containerParent {
						addMember(members, relating, id)
					}
					idx.stats.Aggregation++
				}
			}
		}
	}

	for container, set := range members {
		idx.containedIn[container] = set.Sorted()
	}
	idx.indexTypePropertySets(store, profile)

	logger.Debug("Relationship index built.",
		"relationships", idx.stats.Relationships,
		"skipped", idx.stats.Skipped,
		"containers", len(idx.containedIn),
	)
	return idx, nil
}

// indexTypePropertySets records the property sets a type object lists in its
// own attributes. They are owned by the type and no relationship record
// mentions them.
func (x *Index) indexTypePropertySets(store entity.Store, profile *schema.Profile) {
	attr := profile.TypePropertySets()
	if attr == "" {
		return
	}
	seen := entity.NewSet()
	for _, t := range x.typeOf {
		if seen.Has(t) {
			continue
		}
		seen.Add(t)
		typ, err := store.ByID(t)
		if err != nil || !profile.IsTypeObject(typ.Type) {
			continue
		}
		v, ok := typ.Attr(attr)
		if !ok {
			continue
		}
		if refs := v.Refs(); len(refs) > 0 {
			x.typePsets[t] = refs
			x.stats.TypePsets += len(refs)
		}
	}
}

// endpoints extracts the relating id and the related ids of a record.
func endpoints(record *entity.Entity, rel schema.Relationship) (entity.ID, []entity.ID, bool) {
	relatingVal, ok := record.Attr(rel.Relating)
	if !ok {
		return 0, nil, false
	}
	relatingRefs := relatingVal.Refs()
	if len(relatingRefs) == 0 {
		return 0, nil, false
	}
	relatedVal, ok := record.Attr(rel.Related)
	if !ok {
		return 0, nil, false
	}
	related := relatedVal.Refs()
	if len(related) == 0 {
		return 0, nil, false
	}
	return relatingRefs[0], related, true
}

func addMember(members map[entity.ID]entity.Set, container, id entity.ID) {
	set, ok := members[container]
	if !ok {
		set = entity.NewSet()
		members[container] = set
	}
	set.Add(id)
}

func appendUnique(ids []entity.ID, id entity.ID) []entity.ID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// TypeOf returns the type object assigned to an element.
func (x *Index) TypeOf(id entity.ID) (entity.ID, bool) {
	t, ok := x.typeOf[id]
	return t, ok
}

// MaterialsOf returns the materials associated with an element, in the order
// their relationships were encountered. The slice must not be modified.
func (x *Index) MaterialsOf(id entity.ID) []entity.ID {
	return x.materialsOf[id]
}

// PropertySetsOf returns the property definitions attached to an element.
// The slice must not be modified.
func (x *Index) PropertySetsOf(id entity.ID) []entity.ID {
	return x.propertySetsOf[id]
}

// TypePropertySetsOf returns the property sets a type object holds directly.
// The slice must not be modified.
func (x *Index) TypePropertySetsOf(typ entity.ID) []entity.ID {
	return x.typePsets[typ]
}

// Members returns the elements grouped under a container in ascending id
// order: direct spatial containment plus aggregation where the container is
// the parent. The slice must not be modified.
func (x *Index) Members(container entity.ID) []entity.ID {
	return x.containedIn[container]
}

// ParentOf returns the aggregation parent of an entity.
func (x *Index) ParentOf(id entity.ID) (entity.ID, bool) {
	p, ok := x.parentOf[id]
	return p, ok
}

// ChildrenOf returns the aggregation children of an entity.
func (x *Index) ChildrenOf(id entity.ID) []entity.ID {
	return x.childrenOf[id]
}

// RelationshipsOf returns the ids of indexed relationship records that
// mention the entity on either side.
func (x *Index) RelationshipsOf(id entity.ID) []entity.ID {
	return x.relationshipsOf[id]
}

// Stats returns the counters collected while building.
func (x *Index) Stats() Stats {
	return x.stats
}
