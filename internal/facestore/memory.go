package facestore

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// MemoryStore is an in-memory [Store] for tests and DB-less operation. It
// performs an exact linear scan instead of an approximate index search, which
// is fine for the face counts a single installation sees. Safe for concurrent
// use.
type MemoryStore struct {
	mu        sync.Mutex
	tolerance float64
	faces     []memoryFace
}

type memoryFace struct {
	id       int64
	encoding []float32
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a [MemoryStore].
type MemoryOption func(*MemoryStore)

// WithMemoryTolerance overrides [DefaultTolerance] for identity lookups.
func WithMemoryTolerance(t float64) MemoryOption {
	return func(s *MemoryStore) { s.tolerance = t }
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddFace stores an embedding for the record with the given ID.
func (s *MemoryStore) AddFace(_ context.Context, id int64, encoding []float32) error {
	if len(encoding) == 0 {
		return fmt.Errorf("facestore: empty encoding for record %d", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.faces) > 0 && len(s.faces[0].encoding) != len(encoding) {
		return fmt.Errorf("facestore: encoding has %d dimensions, store expects %d",
			len(encoding), len(s.faces[0].encoding))
	}

	stored := make([]float32, len(encoding))
	copy(stored, encoding)
	s.faces = append(s.faces, memoryFace{id: id, encoding: stored})
	return nil
}

// Identify scans all stored embeddings and returns the closest one by
// Euclidean distance, if it lies within the tolerance.
func (s *MemoryStore) Identify(_ context.Context, encoding []float32) (Match, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := Match{Distance: math.Inf(1)}
	found := false
	for _, f := range s.faces {
		if len(f.encoding) != len(encoding) {
			return Match{}, false, fmt.Errorf("facestore: encoding has %d dimensions, store expects %d",
				len(encoding), len(f.encoding))
		}
		d := euclidean(f.encoding, encoding)
		if d < best.Distance {
			best = Match{ID: f.id, Distance: d}
			found = true
		}
	}
	if !found || best.Distance > s.tolerance {
		return Match{}, false, nil
	}
	return best, true, nil
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
