package store

import (
	"context"
	"strings"
	"time"

	"github.com/graphloom/graphloom/internal/util"
)

// EntityRecord is a persisted graph entity. Records are identified by
// their normalized key and never duplicated for the same key; every
// sighting from another document unions into DocumentIDs.
type EntityRecord struct {
	ID          string         `json:"id"`
	Key         string         `json:"key"`
	DisplayName string         `json:"display_name"`
	Type        string         `json:"type"`
	DocumentIDs []string       `json:"document_ids"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RelationshipRecord is a persisted graph edge. Identity is the
// (source, relation, target) key triple; the same source and target with
// a different relation label is a distinct record.
type RelationshipRecord struct {
	ID          string         `json:"id"`
	Key         string         `json:"key"`
	SourceKey   string         `json:"source_key"`
	RelationKey string         `json:"relation_key"`
	TargetKey   string         `json:"target_key"`
	DocumentIDs []string       `json:"document_ids"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// GraphStore is the persistence contract the assembler builds on. It is a
// naive keyed upsert plus load-all; the assembler performs its own
// idempotent merge logic on top, so even a flat key-value file satisfies
// it. Each upsert must be atomic per record.
type GraphStore interface {
	UpsertEntity(ctx context.Context, key string, record *EntityRecord) error
	UpsertRelationship(ctx context.Context, key string, record *RelationshipRecord) error
	LoadEntities(ctx context.Context) ([]*EntityRecord, error)
	LoadRelationships(ctx context.Context) ([]*RelationshipRecord, error)
}

// NormalizeKey derives the dedup identity for a name: lower-cased, trimmed,
// with inner whitespace runs collapsed.
func NormalizeKey(name string) string {
	return util.CollapseWhitespace(strings.ToLower(name))
}

// RelationshipKey builds the composite store key for an edge. The unit
// separator keeps names containing spaces or punctuation unambiguous.
func RelationshipKey(sourceKey, relationKey, targetKey string) string {
	return sourceKey + "\x1f" + relationKey + "\x1f" + targetKey
}

// Clone returns a deep copy, so callers and stores never alias the
// assembler's index.
func (r *EntityRecord) Clone() *EntityRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.DocumentIDs = append([]string(nil), r.DocumentIDs...)
	out.Metadata = cloneMetadata(r.Metadata)
	return &out
}

// Clone returns a deep copy of the record.
func (r *RelationshipRecord) Clone() *RelationshipRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.DocumentIDs = append([]string(nil), r.DocumentIDs...)
	out.Metadata = cloneMetadata(r.Metadata)
	return &out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
