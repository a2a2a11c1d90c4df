package pgxstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/graphloom/graphloom/pkg/store"
)

// Conn is the subset of pgx connection behavior the store needs; both
// *pgx.Conn and *pgxpool.Pool satisfy it.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a GraphStore backed by PostgreSQL. The assembler owns merge
// semantics; the tables are plain keyed rows with ON CONFLICT replace.
type Store struct {
	conn Conn
}

// New creates a Store over an existing connection or pool.
func New(conn Conn) *Store {
	return &Store{conn: conn}
}

const schema = `
CREATE TABLE IF NOT EXISTS graph_entities (
	key          TEXT PRIMARY KEY,
	id           TEXT NOT NULL,
	display_name TEXT NOT NULL,
	type         TEXT NOT NULL DEFAULT '',
	document_ids TEXT[] NOT NULL DEFAULT '{}',
	metadata     JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS graph_relationships (
	key          TEXT PRIMARY KEY,
	id           TEXT NOT NULL,
	source_key   TEXT NOT NULL,
	relation_key TEXT NOT NULL,
	target_key   TEXT NOT NULL,
	document_ids TEXT[] NOT NULL DEFAULT '{}',
	metadata     JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS graph_relationships_source_idx ON graph_relationships (source_key);
CREATE INDEX IF NOT EXISTS graph_relationships_target_idx ON graph_relationships (target_key);
`

// EnsureSchema creates the graph tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create graph schema: %w", err)
	}
	return nil
}

func (s *Store) UpsertEntity(ctx context.Context, key string, record *store.EntityRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode entity metadata: %w", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO graph_entities (key, id, display_name, type, document_ids, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			type         = EXCLUDED.type,
			document_ids = EXCLUDED.document_ids,
			metadata     = EXCLUDED.metadata,
			updated_at   = EXCLUDED.updated_at`,
		key,
		record.ID,
		record.DisplayName,
		record.Type,
		record.DocumentIDs,
		metadata,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert entity %q: %w", key, err)
	}
	return nil
}

func (s *Store) UpsertRelationship(ctx context.Context, key string, record *store.RelationshipRecord) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("encode relationship metadata: %w", err)
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO graph_relationships (key, id, source_key, relation_key, target_key, document_ids, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (key) DO UPDATE SET
			document_ids = EXCLUDED.document_ids,
			metadata     = EXCLUDED.metadata,
			updated_at   = EXCLUDED.updated_at`,
		key,
		record.ID,
		record.SourceKey,
		record.RelationKey,
		record.TargetKey,
		record.DocumentIDs,
		metadata,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert relationship %q: %w", key, err)
	}
	return nil
}

func (s *Store) LoadEntities(ctx context.Context) ([]*store.EntityRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT key, id, display_name, type, document_ids, metadata, created_at, updated_at
		FROM graph_entities
		ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	defer rows.Close()

	var records []*store.EntityRecord
	for rows.Next() {
		record := &store.EntityRecord{}
		var metadata []byte
		if err := rows.Scan(
			&record.Key,
			&record.ID,
			&record.DisplayName,
			&record.Type,
			&record.DocumentIDs,
			&metadata,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode entity metadata: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) LoadRelationships(ctx context.Context) ([]*store.RelationshipRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT key, id, source_key, relation_key, target_key, document_ids, metadata, created_at, updated_at
		FROM graph_relationships
		ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("load relationships: %w", err)
	}
	defer rows.Close()

	var records []*store.RelationshipRecord
	for rows.Next() {
		record := &store.RelationshipRecord{}
		var metadata []byte
		if err := rows.Scan(
			&record.Key,
			&record.ID,
			&record.SourceKey,
			&record.RelationKey,
			&record.TargetKey,
			&record.DocumentIDs,
			&metadata,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode relationship metadata: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
