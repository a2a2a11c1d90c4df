package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/graphloom/graphloom/pkg/store"
)

// Store is an in-memory GraphStore. It is the reference backend for tests
// and for callers that only need a transient graph.
type Store struct {
	mu            sync.RWMutex
	entities      map[string]*store.EntityRecord
	relationships map[string]*store.RelationshipRecord
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		entities:      make(map[string]*store.EntityRecord),
		relationships: make(map[string]*store.RelationshipRecord),
	}
}

func (s *Store) UpsertEntity(ctx context.Context, key string, record *store.EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[key] = record.Clone()
	return nil
}

func (s *Store) UpsertRelationship(ctx context.Context, key string, record *store.RelationshipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships[key] = record.Clone()
	return nil
}

func (s *Store) LoadEntities(ctx context.Context) ([]*store.EntityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*store.EntityRecord, 0, len(s.entities))
	for _, record := range s.entities {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (s *Store) LoadRelationships(ctx context.Context) ([]*store.RelationshipRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*store.RelationshipRecord, 0, len(s.relationships))
	for _, record := range s.relationships {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}
