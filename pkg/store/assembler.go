package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/graphloom/graphloom/pkg/extract"
	"github.com/graphloom/graphloom/pkg/logger"
)

// ErrEmptyName rejects applies with a blank entity or relation name.
var ErrEmptyName = errors.New("name must not be empty")

// Assembler applies extraction results to a persisted graph with
// idempotent, provenance-preserving upserts. It keeps an in-memory index
// of both record kinds, loaded once from the store, and writes through on
// every apply; read-modify-write on a key is serialized with a per-key
// mutex so two documents introducing the same entity concurrently cannot
// lose an update.
type Assembler struct {
	store GraphStore

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	mu            sync.RWMutex
	entities      map[string]*EntityRecord
	relationships map[string]*RelationshipRecord
}

// NewAssembler creates an Assembler over a store and loads the existing
// graph into its index.
func NewAssembler(ctx context.Context, graphStore GraphStore) (*Assembler, error) {
	entities, err := graphStore.LoadEntities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	relationships, err := graphStore.LoadRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}

	a := &Assembler{
		store:         graphStore,
		locks:         make(map[string]*sync.Mutex),
		entities:      make(map[string]*EntityRecord, len(entities)),
		relationships: make(map[string]*RelationshipRecord, len(relationships)),
	}
	for _, record := range entities {
		a.entities[record.Key] = record.Clone()
	}
	for _, record := range relationships {
		a.relationships[record.Key] = record.Clone()
	}
	return a, nil
}

func (a *Assembler) keyLock(key string) *sync.Mutex {
	a.lockMu.Lock()
	defer a.lockMu.Unlock()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// ApplyEntity upserts one entity sighting. Applying the same (name,
// documentID) pair twice leaves the store unchanged after the first
// application except for the updated timestamp. Metadata is replaced
// last-writer-wins, not merged field by field.
//
// The store write is treated as atomic per record: the index is only
// updated after the store accepts the write, so a failure never leaves
// the record half applied.
func (a *Assembler) ApplyEntity(
	ctx context.Context,
	name string,
	entityType string,
	documentID string,
	metadata map[string]any,
) (*EntityRecord, error) {
	key := NormalizeKey(name)
	if key == "" {
		return nil, ErrEmptyName
	}

	l := a.keyLock(key)
	l.Lock()
	defer l.Unlock()

	a.mu.RLock()
	existing := a.entities[key]
	a.mu.RUnlock()

	now := time.Now().UTC()
	var next *EntityRecord
	if existing != nil {
		next = existing.Clone()
		if !slices.Contains(next.DocumentIDs, documentID) {
			next.DocumentIDs = append(next.DocumentIDs, documentID)
		}
		next.Metadata = cloneMetadata(metadata)
		next.UpdatedAt = now
	} else {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generate entity id: %w", err)
		}
		next = &EntityRecord{
			ID:          id,
			Key:         key,
			DisplayName: strings.TrimSpace(name),
			Type:        entityType,
			DocumentIDs: []string{documentID},
			Metadata:    cloneMetadata(metadata),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	if err := a.store.UpsertEntity(ctx, key, next); err != nil {
		return nil, fmt.Errorf("upsert entity %q: %w", key, err)
	}

	a.mu.Lock()
	a.entities[key] = next
	a.mu.Unlock()

	return next.Clone(), nil
}

// ApplyRelationship upserts one relationship sighting. Identity is the
// normalized (source, relation, target) triple; the write semantics match
// ApplyEntity.
func (a *Assembler) ApplyRelationship(
	ctx context.Context,
	source string,
	relation string,
	target string,
	documentID string,
	metadata map[string]any,
) (*RelationshipRecord, error) {
	sourceKey := NormalizeKey(source)
	relationKey := NormalizeKey(relation)
	targetKey := NormalizeKey(target)
	if sourceKey == "" || relationKey == "" || targetKey == "" {
		return nil, ErrEmptyName
	}
	key := RelationshipKey(sourceKey, relationKey, targetKey)

	l := a.keyLock(key)
	l.Lock()
	defer l.Unlock()

	a.mu.RLock()
	existing := a.relationships[key]
	a.mu.RUnlock()

	now := time.Now().UTC()
	var next *RelationshipRecord
	if existing != nil {
		next = existing.Clone()
		if !slices.Contains(next.DocumentIDs, documentID) {
			next.DocumentIDs = append(next.DocumentIDs, documentID)
		}
		next.Metadata = cloneMetadata(metadata)
		next.UpdatedAt = now
	} else {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("generate relationship id: %w", err)
		}
		next = &RelationshipRecord{
			ID:          id,
			Key:         key,
			SourceKey:   sourceKey,
			RelationKey: relationKey,
			TargetKey:   targetKey,
			DocumentIDs: []string{documentID},
			Metadata:    cloneMetadata(metadata),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	if err := a.store.UpsertRelationship(ctx, key, next); err != nil {
		return nil, fmt.Errorf("upsert relationship %q: %w", key, err)
	}

	a.mu.Lock()
	a.relationships[key] = next
	a.mu.Unlock()

	return next.Clone(), nil
}

// Find returns the entity stored under the normalized key of name.
func (a *Assembler) Find(name string) (*EntityRecord, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	record, ok := a.entities[NormalizeKey(name)]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// Search returns entities whose display name or type contains the query,
// case-insensitively, ordered by key.
func (a *Assembler) Search(query string) []*EntityRecord {
	q := strings.ToLower(strings.TrimSpace(query))

	a.mu.RLock()
	defer a.mu.RUnlock()

	var matches []*EntityRecord
	for _, record := range a.entities {
		if strings.Contains(strings.ToLower(record.DisplayName), q) ||
			strings.Contains(strings.ToLower(record.Type), q) {
			matches = append(matches, record.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })
	return matches
}

// RelationshipsOf returns every relationship touching the named entity,
// as source or target, ordered by key.
func (a *Assembler) RelationshipsOf(entityName string) []*RelationshipRecord {
	key := NormalizeKey(entityName)

	a.mu.RLock()
	defer a.mu.RUnlock()

	var matches []*RelationshipRecord
	for _, record := range a.relationships {
		if record.SourceKey == key || record.TargetKey == key {
			matches = append(matches, record.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })
	return matches
}

// ApplyFailure reports one record that could not be persisted.
type ApplyFailure struct {
	Kind string
	Key  string
	Err  error
}

// ApplyReport summarizes a batch apply: how many records committed and
// which failed. A failed record never aborts the rest of the batch.
type ApplyReport struct {
	EntityCount       int
	RelationshipCount int
	Failures          []ApplyFailure
}

// ApplyResult applies a merged extraction result for one document. Entity
// categories travel in record metadata; relationship context likewise.
func (a *Assembler) ApplyResult(ctx context.Context, documentID string, result *extract.Result) *ApplyReport {
	report := &ApplyReport{}
	if result == nil {
		return report
	}

	for _, entity := range result.Entities {
		metadata := map[string]any{}
		if entity.Category != "" {
			metadata["category"] = entity.Category
		}
		if _, err := a.ApplyEntity(ctx, entity.Name, entity.Type, documentID, metadata); err != nil {
			logger.Warn("entity write failed", "name", entity.Name, "err", err)
			report.Failures = append(report.Failures, ApplyFailure{
				Kind: "entity",
				Key:  NormalizeKey(entity.Name),
				Err:  err,
			})
			continue
		}
		report.EntityCount++
	}

	for _, rel := range result.Relationships {
		metadata := map[string]any{}
		if rel.Context != "" {
			metadata["context"] = rel.Context
		}
		if _, err := a.ApplyRelationship(ctx, rel.Source, rel.Relation, rel.Target, documentID, metadata); err != nil {
			logger.Warn("relationship write failed", "source", rel.Source, "target", rel.Target, "err", err)
			report.Failures = append(report.Failures, ApplyFailure{
				Kind: "relationship",
				Key:  RelationshipKey(NormalizeKey(rel.Source), NormalizeKey(rel.Relation), NormalizeKey(rel.Target)),
				Err:  err,
			})
			continue
		}
		report.RelationshipCount++
	}

	return report
}
