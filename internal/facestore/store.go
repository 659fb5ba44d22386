// Package facestore persists face embeddings and answers nearest-neighbour
// identity lookups. Each embedding references a notestore record by ID, so a
// match resolves straight to a name, notes, and category.
package facestore

import "context"

// DefaultTolerance is the maximum Euclidean distance at which two face
// embeddings are considered the same person. Matches the threshold commonly
// used with 128-dimensional dlib encodings.
const DefaultTolerance = 0.6

// Match is the result of a successful nearest-neighbour lookup.
type Match struct {
	// ID of the notestore record the matched embedding belongs to.
	ID int64
	// Distance between the query embedding and the stored one.
	Distance float64
}

// Store is the face embedding persistence contract.
type Store interface {
	// AddFace stores an embedding for the notestore record with the given
	// ID. A record may have several embeddings; each call adds one.
	AddFace(ctx context.Context, id int64, encoding []float32) error

	// Identify finds the stored embedding closest to encoding. found is
	// false when no embedding lies within the store's tolerance.
	Identify(ctx context.Context, encoding []float32) (m Match, found bool, err error)
}
