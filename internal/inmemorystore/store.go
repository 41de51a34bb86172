package inmemorystore

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/specialistvlad/storeysplit/internal/entity"
)

// ErrFrozen is returned by Add once the store has been frozen.
var ErrFrozen = errors.New("store is frozen")

// Store implements entity.Store using maps guarded by an RWMutex.
type Store struct {
	mu     sync.RWMutex
	schema string
	frozen bool

	entities map[entity.ID]*entity.Entity
	byType   map[string][]entity.ID // Key: upper-case type label
	order    []entity.ID
}

// New creates an empty store for the given schema identifier.
func New(schema string) *Store {
	return &Store{
		schema:   schema,
		entities: make(map[entity.ID]*entity.Entity),
		byType:   make(map[string][]entity.ID),
	}
}

// Add registers an entity. Ids must be unique within the store.
func (s *Store) Add(e *entity.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return ErrFrozen
	}
	if _, exists := s.entities[e.ID]; exists {
		return fmt.Errorf("duplicate entity id #%d", e.ID)
	}
	key := strings.ToUpper(e.Type)
	s.entities[e.ID] = e
	s.byType[key] = append(s.byType[key], e.ID)
	s.order = append(s.order, e.ID)
	return nil
}

// Freeze sorts the indices and makes the store read-only. Calling it more than
// once is harmless.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return
	}
	slices.Sort(s.order)
	for _, ids := range s.byType {
		slices.Sort(ids)
	}
	s.frozen = true
}

// Schema implements entity.Store.
func (s *Store) Schema() string {
	return s.schema
}

// ByID implements entity.Store.
func (s *Store) ByID(id entity.ID) (*entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("#%d: %w", id, entity.ErrNotFound)
	}
	return e, nil
}

// OfType implements entity.Store.
func (s *Store) OfType(label string) []*entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byType[strings.ToUpper(label)]
	if !s.frozen {
		ids = slices.Sorted(slices.Values(ids))
	}
	out := make([]*entity.Entity, len(ids))
	for i, id := range ids {
		out[i] = s.entities[id]
	}
	return out
}

// All implements entity.Store.
func (s *Store) All() []*entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order
	if !s.frozen {
		ids = slices.Sorted(slices.Values(ids))
	}
	out := make([]*entity.Entity, len(ids))
	for i, id := range ids {
		out[i] = s.entities[id]
	}
	return out
}

// Len implements entity.Store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Types returns the distinct type labels held, sorted.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.byType))
	for t := range s.byType {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
