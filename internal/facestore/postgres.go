package facestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgvector "github.com/pgvector/pgvector-go"
)

// schemaTemplate is the SQL DDL for the face_embeddings table. The vector
// dimension is baked into the column type at schema creation time, so
// changing it later requires a manual migration.
const schemaTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS face_embeddings (
    id        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    note_id   BIGINT NOT NULL REFERENCES face_notes(id) ON DELETE CASCADE,
    embedding vector(%d) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_face_embeddings_note_id
    ON face_embeddings (note_id);

CREATE INDEX IF NOT EXISTS idx_face_embeddings_embedding
    ON face_embeddings USING hnsw (embedding vector_l2_ops);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface. Connections must have pgvector types
// registered (see pgx support in github.com/pgvector/pgvector-go/pgx).
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database with the
// pgvector extension.
type PostgresStore struct {
	db         DB
	dimensions int
	tolerance  float64
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// PostgresOption configures a [PostgresStore].
type PostgresOption func(*PostgresStore)

// WithTolerance overrides [DefaultTolerance] for identity lookups.
func WithTolerance(t float64) PostgresOption {
	return func(s *PostgresStore) { s.tolerance = t }
}

// NewPostgresStore creates a new [PostgresStore]. dimensions must match the
// length of the encodings produced by the face recognition backend (128 for
// dlib-style encodings). The caller is responsible for calling
// [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB, dimensions int, opts ...PostgresOption) (*PostgresStore, error) {
	if dimensions <= 0 {
		return nil, errors.New("facestore: embedding dimensions must be positive")
	}
	s := &PostgresStore{db: db, dimensions: dimensions, tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate creates the vector extension, the face_embeddings table, and its
// indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(schemaTemplate, s.dimensions)); err != nil {
		return fmt.Errorf("facestore: migrate: %w", err)
	}
	return nil
}

// AddFace stores an embedding for the notestore record with the given ID.
func (s *PostgresStore) AddFace(ctx context.Context, id int64, encoding []float32) error {
	if len(encoding) != s.dimensions {
		return fmt.Errorf("facestore: encoding has %d dimensions, store expects %d", len(encoding), s.dimensions)
	}

	const query = `INSERT INTO face_embeddings (note_id, embedding) VALUES ($1, $2)`

	if _, err := s.db.Exec(ctx, query, id, pgvector.NewVector(encoding)); err != nil {
		return fmt.Errorf("facestore: add face for record %d: %w", id, err)
	}
	return nil
}

// Identify finds the stored embedding with the smallest Euclidean distance
// to encoding. found is false when the table is empty or the nearest
// neighbour is farther away than the tolerance.
func (s *PostgresStore) Identify(ctx context.Context, encoding []float32) (Match, bool, error) {
	if len(encoding) != s.dimensions {
		return Match{}, false, fmt.Errorf("facestore: encoding has %d dimensions, store expects %d", len(encoding), s.dimensions)
	}

	const query = `
		SELECT note_id, embedding <-> $1 AS distance
		FROM   face_embeddings
		ORDER  BY distance
		LIMIT  1`

	var m Match
	err := s.db.QueryRow(ctx, query, pgvector.NewVector(encoding)).Scan(&m.ID, &m.Distance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, false, nil
		}
		return Match{}, false, fmt.Errorf("facestore: identify: %w", err)
	}
	if m.Distance > s.tolerance {
		return Match{}, false, nil
	}
	return m, true, nil
}
