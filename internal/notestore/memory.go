package notestore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory [Store] for tests and DB-less operation.
// It is safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*Record
	byName map[string]int64
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		byID:   make(map[int64]*Record),
		byName: make(map[string]int64),
	}
}

// StoreNotes inserts or updates the record for name and returns its ID.
func (s *MemoryStore) StoreNotes(_ context.Context, name, notes, category string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[name]; ok {
		rec := s.byID[id]
		rec.Notes = notes
		rec.Category = category
		return id, nil
	}

	id := s.nextID
	s.nextID++
	s.byID[id] = &Record{ID: id, Name: name, Notes: notes, Category: category}
	s.byName[name] = id
	return id, nil
}

// GetID looks up the record ID for a name.
func (s *MemoryStore) GetID(_ context.Context, name string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[name]
	return id, ok, nil
}

// GetNotes returns the full record for a name.
func (s *MemoryStore) GetNotes(_ context.Context, name string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[name]
	if !ok {
		return Record{}, false, nil
	}
	return *s.byID[id], true, nil
}

// GetByID returns the full record for an ID.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return Record{}, false, nil
	}
	return *rec, true, nil
}

// Edit replaces the name, notes, and category of the record with the given
// ID.
func (s *MemoryStore) Edit(_ context.Context, id int64, name, notes, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("notestore: record with id %d not found", id)
	}
	if rec.Name != name {
		delete(s.byName, rec.Name)
		s.byName[name] = id
	}
	rec.Name = name
	rec.Notes = notes
	rec.Category = category
	return nil
}
