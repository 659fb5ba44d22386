package notestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the face_notes table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS face_notes (
    id       BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    name     TEXT NOT NULL UNIQUE,
    notes    TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT 'Other'
);
CREATE INDEX IF NOT EXISTS idx_face_notes_name ON face_notes(name);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// face_notes table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("notestore: migrate: %w", err)
	}
	return nil
}

// StoreNotes inserts or updates the record for name and returns its ID.
// Registering a name that already exists replaces its notes and category.
func (s *PostgresStore) StoreNotes(ctx context.Context, name, notes, category string) (int64, error) {
	const query = `
		INSERT INTO face_notes (name, notes, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET
			notes = EXCLUDED.notes,
			category = EXCLUDED.category
		RETURNING id`

	var id int64
	if err := s.db.QueryRow(ctx, query, name, notes, category).Scan(&id); err != nil {
		return 0, fmt.Errorf("notestore: store notes for %q: %w", name, err)
	}
	return id, nil
}

// GetID looks up the record ID for a name.
func (s *PostgresStore) GetID(ctx context.Context, name string) (int64, bool, error) {
	const query = `SELECT id FROM face_notes WHERE name = $1`

	var id int64
	err := s.db.QueryRow(ctx, query, name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("notestore: get id for %q: %w", name, err)
	}
	return id, true, nil
}

// GetNotes returns the full record for a name.
func (s *PostgresStore) GetNotes(ctx context.Context, name string) (Record, bool, error) {
	const query = `SELECT id, name, notes, category FROM face_notes WHERE name = $1`

	var rec Record
	err := s.db.QueryRow(ctx, query, name).Scan(&rec.ID, &rec.Name, &rec.Notes, &rec.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("notestore: get notes for %q: %w", name, err)
	}
	return rec, true, nil
}

// GetByID returns the full record for an ID.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (Record, bool, error) {
	const query = `SELECT id, name, notes, category FROM face_notes WHERE id = $1`

	var rec Record
	err := s.db.QueryRow(ctx, query, id).Scan(&rec.ID, &rec.Name, &rec.Notes, &rec.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("notestore: get record %d: %w", id, err)
	}
	return rec, true, nil
}

// Edit replaces the name, notes, and category of the record with the given
// ID.
func (s *PostgresStore) Edit(ctx context.Context, id int64, name, notes, category string) error {
	const query = `
		UPDATE face_notes SET name = $2, notes = $3, category = $4
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, id, name, notes, category)
	if err != nil {
		return fmt.Errorf("notestore: edit %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notestore: record with id %d not found", id)
	}
	return nil
}
