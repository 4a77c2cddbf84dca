// Package postgres persists parsed maps to PostgreSQL. Entity origins are
// stored as pgvector vector(3) columns so nearby entities can be queried.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Load outcomes stored alongside the parser outcomes.
const (
	OutcomePending = "pending"
	OutcomeFailed  = "failed"
)

// Load is one ingestion of a map file.
type Load struct {
	ID         uuid.UUID
	Path       string
	Hash       string
	Version    float32
	Outcome    string
	Entities   int
	Primitives int
	Discarded  int
	Error      string
	CreatedAt  time.Time
}

// Store reads and writes map loads.
type Store struct {
	db DB
}

// NewStore creates a store on top of a pgx pool or connection.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS map_loads (
		id           UUID PRIMARY KEY,
		path         TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		version      REAL NOT NULL,
		outcome      TEXT NOT NULL,
		entities     INTEGER NOT NULL DEFAULT 0,
		primitives   INTEGER NOT NULL DEFAULT 0,
		discarded    INTEGER NOT NULL DEFAULT 0,
		error        TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS map_loads_hash_idx ON map_loads (content_hash)`,
	`CREATE TABLE IF NOT EXISTS map_entities (
		load_id      UUID NOT NULL REFERENCES map_loads(id) ON DELETE CASCADE,
		entity_index INTEGER NOT NULL,
		classname    TEXT NOT NULL,
		name         TEXT NOT NULL DEFAULT '',
		container    BOOLEAN NOT NULL,
		key_values   JSONB NOT NULL,
		primitives   JSONB NOT NULL,
		origin       vector(3),
		PRIMARY KEY (load_id, entity_index)
	)`,
	`CREATE INDEX IF NOT EXISTS map_entities_class_idx ON map_entities (load_id, classname)`,
}

// EnsureSchema creates the tables and the vector extension.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	log.Info().Msg("PostgreSQL schema ensured")
	return nil
}

// RecordLoad inserts or updates a load row.
func (s *Store) RecordLoad(ctx context.Context, l *Load) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO map_loads (id, path, content_hash, version, outcome, entities, primitives, discarded, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET outcome = EXCLUDED.outcome,
		    version = EXCLUDED.version,
		    entities = EXCLUDED.entities,
		    primitives = EXCLUDED.primitives,
		    discarded = EXCLUDED.discarded,
		    error = EXCLUDED.error
	`, l.ID, l.Path, l.Hash, l.Version, l.Outcome, l.Entities, l.Primitives, l.Discarded, l.Error)
	if err != nil {
		return fmt.Errorf("record load %s: %w", l.ID, err)
	}
	return nil
}

// FindLoadByHash returns the latest completed load of a file with the given content hash.
func (s *Store) FindLoadByHash(ctx context.Context, hash string) (*Load, bool, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, path, content_hash, version, outcome, entities, primitives, discarded, error, created_at
		FROM map_loads
		WHERE content_hash = $1 AND outcome = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`, hash)

	l, err := scanLoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find load by hash: %w", err)
	}
	return l, true, nil
}

// ListCompletedLoads returns every completed load, newest first.
func (s *Store) ListCompletedLoads(ctx context.Context) ([]*Load, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, path, content_hash, version, outcome, entities, primitives, discarded, error, created_at
		FROM map_loads
		WHERE outcome = 'completed'
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	defer rows.Close()

	var loads []*Load
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, fmt.Errorf("scan load: %w", err)
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

func scanLoad(row pgx.Row) (*Load, error) {
	var (
		l          Load
		entities   int32
		primitives int32
		discarded  int32
	)
	err := row.Scan(&l.ID, &l.Path, &l.Hash, &l.Version, &l.Outcome, &entities, &primitives, &discarded, &l.Error, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Entities, l.Primitives, l.Discarded = int(entities), int(primitives), int(discarded)
	return &l, nil
}
