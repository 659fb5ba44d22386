// Package notestore persists the notes and category attached to each
// registered person. The face_notes table is the relational half of a
// registration; the embedding itself lives in the facestore.
package notestore

import "context"

// Record is one row of face_notes.
type Record struct {
	ID       int64
	Name     string
	Notes    string
	Category string
}

// Store is the face_notes persistence contract.
type Store interface {
	// StoreNotes inserts a new record and returns its ID. The name is
	// expected to be new; registering an existing name updates it instead.
	StoreNotes(ctx context.Context, name, notes, category string) (int64, error)

	// GetID looks up the record ID for a name. found is false when the
	// name is not registered.
	GetID(ctx context.Context, name string) (id int64, found bool, err error)

	// GetNotes returns the full record for a name. found is false when
	// the name is not registered.
	GetNotes(ctx context.Context, name string) (rec Record, found bool, err error)

	// GetByID returns the full record for an ID. found is false when no
	// record carries it.
	GetByID(ctx context.Context, id int64) (rec Record, found bool, err error)

	// Edit replaces the name, notes, and category of the record with the
	// given ID. Editing an unknown ID is an error.
	Edit(ctx context.Context, id int64, name, notes, category string) error
}
