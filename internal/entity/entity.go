package entity

import (
	"strings"
)

// ID is the instance number of an entity, unique within a store.
type ID uint64

// Attribute is one named position of an entity's attribute list.
type Attribute struct {
	Name  string
	Value Value
}

// Entity is a typed, attributed record of the source graph. Entities are
// treated as immutable once added to a store; use Clone to obtain a copy that
// may be modified.
type Entity struct {
	ID         ID
	Type       string
	Attributes []Attribute
}

// New builds an entity with an upper-cased type label.
func New(id ID, typ string, attrs ...Attribute) *Entity {
	return &Entity{ID: id, Type: strings.ToUpper(typ), Attributes: attrs}
}

// Attr looks up an attribute by name.
func (e *Entity) Attr(name string) (Value, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// IsTypeOf reports whether the entity's type label equals marker, ignoring case.
func (e *Entity) IsTypeOf(marker string) bool {
	return strings.EqualFold(e.Type, marker)
}

// Refs returns all references held by the entity, in attribute order.
func (e *Entity) Refs() []ID {
	var out []ID
	for _, a := range e.Attributes {
		a.Value.walkRefs(func(id ID) { out = append(out, id) })
	}
	return out
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	attrs := make([]Attribute, len(e.Attributes))
	for i, a := range e.Attributes {
		attrs[i] = Attribute{Name: a.Name, Value: a.Value.Clone()}
	}
	return &Entity{ID: e.ID, Type: e.Type, Attributes: attrs}
}

// Store is the read-only view of a populated entity graph.
//
// Implementations must be safe for concurrent reads once populated.
type Store interface {
	// Schema returns the schema identifier declared by the source document.
	Schema() string

	// ByID returns the entity with the given id, or an error wrapping
	// ErrNotFound.
	ByID(id ID) (*Entity, error)

	// OfType returns all entities with the given type label in ascending id order.
	OfType(label string) []*Entity

	// All returns every entity in ascending id order.
	All() []*Entity

	// Len returns the number of entities held.
	Len() int
}
