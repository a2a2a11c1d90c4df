package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/graphloom/graphloom/pkg/store"
)

// Store is a GraphStore persisted to a single JSON file. Every upsert
// rewrites the file through a temp-file rename, so a crash mid-write never
// leaves a torn file behind.
type Store struct {
	path string

	mu    sync.Mutex
	state fileState
}

type fileState struct {
	Entities      map[string]*store.EntityRecord       `json:"entities"`
	Relationships map[string]*store.RelationshipRecord `json:"relationships"`
}

// Open loads the store file at path, creating empty state when the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		state: fileState{
			Entities:      make(map[string]*store.EntityRecord),
			Relationships: make(map[string]*store.RelationshipRecord),
		},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read graph store %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse graph store %s: %w", path, err)
	}
	if s.state.Entities == nil {
		s.state.Entities = make(map[string]*store.EntityRecord)
	}
	if s.state.Relationships == nil {
		s.state.Relationships = make(map[string]*store.RelationshipRecord)
	}
	return s, nil
}

func (s *Store) UpsertEntity(ctx context.Context, key string, record *store.EntityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, hadPrevious := s.state.Entities[key]
	s.state.Entities[key] = record.Clone()
	if err := s.persist(); err != nil {
		// Keep the in-memory state consistent with the file.
		if hadPrevious {
			s.state.Entities[key] = previous
		} else {
			delete(s.state.Entities, key)
		}
		return err
	}
	return nil
}

func (s *Store) UpsertRelationship(ctx context.Context, key string, record *store.RelationshipRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, hadPrevious := s.state.Relationships[key]
	s.state.Relationships[key] = record.Clone()
	if err := s.persist(); err != nil {
		if hadPrevious {
			s.state.Relationships[key] = previous
		} else {
			delete(s.state.Relationships, key)
		}
		return err
	}
	return nil
}

func (s *Store) LoadEntities(ctx context.Context) ([]*store.EntityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]*store.EntityRecord, 0, len(s.state.Entities))
	for _, record := range s.state.Entities {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (s *Store) LoadRelationships(ctx context.Context) ([]*store.RelationshipRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]*store.RelationshipRecord, 0, len(s.state.Relationships))
	for _, record := range s.state.Relationships {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (s *Store) persist() error {
	data, err := json.MarshalIndent(&s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".graph-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write graph store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close graph store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace graph store: %w", err)
	}
	return nil
}
