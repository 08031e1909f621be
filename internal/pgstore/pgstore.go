// Package pgstore implements the board entity store on PostgreSQL.
// It honours the same contract as the Redis store in pkg/store, including
// the optimistic version check on CommitTransition, but publishes no events;
// boards over PostgreSQL rely on scheduled refreshes.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS lanes_entities (
    instance      TEXT   NOT NULL,
    id            TEXT   NOT NULL,
    seq           BIGSERIAL,
    pipeline      TEXT   NOT NULL,
    stage_id      TEXT   NOT NULL,
    title         TEXT   NOT NULL DEFAULT '',
    attributes    JSONB  NOT NULL DEFAULT '{}',
    version       BIGINT NOT NULL,
    updated_at_ms BIGINT NOT NULL,
    PRIMARY KEY (instance, id)
);
CREATE INDEX IF NOT EXISTS idx_lanes_entities_pipeline ON lanes_entities(instance, pipeline, seq);
`

const selectColumns = `id, pipeline, stage_id, title, attributes, version, updated_at_ms`

// Store is a PostgreSQL-backed store.Backend scoped to one instance.
type Store struct {
	pool     *pgxpool.Pool
	instance string
}

// Open connects to the database at dsn and applies the schema.
func Open(ctx context.Context, dsn, instance string) (*Store, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool, instance: instance}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the database schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaV1); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Put creates or replaces an entity. The stored version is the previous
// version plus one (1 for a new entity).
func (s *Store) Put(ctx context.Context, r store.Record) (store.Record, error) {
	if err := r.Validate(); err != nil {
		return store.Record{}, fmt.Errorf("invalid record: %w", err)
	}
	attrs, err := encodeAttributes(r.Attributes)
	if err != nil {
		return store.Record{}, err
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO lanes_entities (instance, id, pipeline, stage_id, title, attributes, version, updated_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, 1, $7)
		ON CONFLICT (instance, id) DO UPDATE SET
			pipeline = EXCLUDED.pipeline,
			stage_id = EXCLUDED.stage_id,
			title = EXCLUDED.title,
			attributes = EXCLUDED.attributes,
			version = lanes_entities.version + 1,
			updated_at_ms = EXCLUDED.updated_at_ms
		RETURNING `+selectColumns,
		s.instance, r.ID, r.Pipeline, r.StageID, r.Title, attrs, time.Now().UnixMilli(),
	)
	stored, err := scanRecord(row)
	if err != nil {
		return store.Record{}, fmt.Errorf("write entity: %w", err)
	}
	return stored, nil
}

// Get retrieves an entity by ID.
func (s *Store) Get(ctx context.Context, entityID string) (store.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM lanes_entities WHERE instance = $1 AND id = $2`,
		s.instance, entityID,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Record{}, fmt.Errorf("%w: %q", store.ErrNotFound, entityID)
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("read entity: %w", err)
	}
	return rec, nil
}

// List returns every entity of a pipeline in creation order.
func (s *Store) List(ctx context.Context, p pipeline.PipelineType) ([]store.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM lanes_entities WHERE instance = $1 AND pipeline = $2 ORDER BY seq`,
		s.instance, string(p),
	)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	records := []store.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return records, nil
}

// CommitTransition moves an entity to another stage in one conditional
// UPDATE. A version mismatch wraps pipeline.ErrConflict; an entity missing
// from req.Pipeline wraps store.ErrNotFound.
func (s *Store) CommitTransition(ctx context.Context, req pipeline.CommitRequest) (store.Record, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE lanes_entities
		SET stage_id = $4, version = version + 1, updated_at_ms = $6
		WHERE instance = $1 AND id = $2 AND pipeline = $3 AND ($5::bigint = 0 OR version = $5::bigint)
		RETURNING `+selectColumns,
		s.instance, req.EntityID, string(req.Pipeline), req.ToStageID, req.ExpectedVersion, time.Now().UnixMilli(),
	)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return store.Record{}, fmt.Errorf("commit transition: %w", err)
	}

	// No row updated: either the entity is gone or its version moved on
	var version int64
	err = s.pool.QueryRow(ctx,
		`SELECT version FROM lanes_entities WHERE instance = $1 AND id = $2 AND pipeline = $3`,
		s.instance, req.EntityID, string(req.Pipeline),
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Record{}, fmt.Errorf("%w: %q in pipeline %q", store.ErrNotFound, req.EntityID, req.Pipeline)
	}
	if err != nil {
		return store.Record{}, fmt.Errorf("commit transition: %w", err)
	}
	return store.Record{}, fmt.Errorf("%w: %q is at version %d, expected %d",
		pipeline.ErrConflict, req.EntityID, version, req.ExpectedVersion)
}

// Delete removes an entity.
func (s *Store) Delete(ctx context.Context, entityID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM lanes_entities WHERE instance = $1 AND id = $2`,
		s.instance, entityID,
	)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", store.ErrNotFound, entityID)
	}
	return nil
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if attrs == nil {
		attrs = map[string]string{}
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

func scanRecord(row pgx.Row) (store.Record, error) {
	var (
		rec   store.Record
		attrs []byte
	)
	if err := row.Scan(&rec.ID, &rec.Pipeline, &rec.StageID, &rec.Title, &attrs, &rec.Version, &rec.UpdatedAtMs); err != nil {
		return store.Record{}, err
	}
	rec.Attributes = map[string]string{}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
			return store.Record{}, fmt.Errorf("unmarshal attributes: %w", err)
		}
	}
	return rec, nil
}

var _ store.Backend = (*Store)(nil)
