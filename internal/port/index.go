package port

import (
	"context"

	"helpdesk/internal/domain"
)

// VectorIndex is a persistent, named collection of embedded chunks.
// The collection's embedding dimension is established by the first
// successful upsert; the distance metric is fixed per backend and is
// part of the collection's identity.
type VectorIndex interface {
	// Upsert adds or overwrites entries by ID. Fails without writing
	// anything if any vector's dimension does not match the collection.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Query returns up to k nearest entries ordered by ascending
	// distance. An empty collection yields an empty result, not an
	// error.
	Query(ctx context.Context, vector []float32, k int) ([]QueryMatch, error)

	// Fetch returns up to limit entries in no particular order, for
	// inspection and export.
	Fetch(ctx context.Context, limit int) ([]domain.IndexEntry, error)

	// Delete removes entries by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Clear removes all entries. Clearing an empty collection succeeds.
	Clear(ctx context.Context) error

	// Count returns the number of entries in the collection.
	Count(ctx context.Context) (int, error)

	Close() error
}

// QueryMatch pairs an entry with its distance from the query vector.
type QueryMatch struct {
	Entry    domain.IndexEntry
	Distance float64
}
