package person

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when no person carries the requested id.
var ErrNotFound = errors.New("person not found")

// Store exposes person persistence for the service and HTTP layers.
type Store interface {
	// Create assigns the next id to a new person with the given name.
	Create(ctx context.Context, name string) (Person, error)
	List(ctx context.Context) ([]Person, error)
	FindByID(ctx context.Context, id int64) (Person, error)
}

// MemoryStore is the in-memory registry. It owns the id sequence and every
// person created through it; nothing is kept across restarts.
type MemoryStore struct {
	mu     sync.RWMutex
	lastID int64
	items  map[int64]Person
}

// NewMemoryStore returns a registry with one person created per name.
func NewMemoryStore(names []string) *MemoryStore {
	s := &MemoryStore{items: make(map[int64]Person, len(names))}
	for _, name := range names {
		s.insert(name)
	}
	return s
}

// Create never fails; the error is part of the Store contract only.
func (s *MemoryStore) Create(_ context.Context, name string) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(name), nil
}

// List returns a snapshot ordered by id. Callers should not rely on the order.
func (s *MemoryStore) List(_ context.Context) ([]Person, error) {
	s.mu.RLock()
	items := make([]Person, 0, len(s.items))
	for _, p := range s.items {
		items = append(items, p)
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

// FindByID looks up a person by identifier.
func (s *MemoryStore) FindByID(_ context.Context, id int64) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.items[id]; ok {
		return p, nil
	}
	return Person{}, ErrNotFound
}

// insert must be called with mu held for writing (or before s is shared).
func (s *MemoryStore) insert(name string) Person {
	s.lastID++
	p := Person{ID: s.lastID, Name: name}
	s.items[p.ID] = p
	return p
}
