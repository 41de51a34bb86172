package entity

import "slices"

// Set is an unordered set of entity ids.
type Set map[ID]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Add(id ID) { s[id] = struct{}{} }

func (s Set) Remove(id ID) { delete(s, id) }

func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// AddAll inserts every id from ids.
func (s Set) AddAll(ids ...ID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Union returns a new set holding the ids of s and o.
func (s Set) Union(o Set) Set {
	out := make(Set, len(s)+len(o))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range o {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the ids in ascending order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
