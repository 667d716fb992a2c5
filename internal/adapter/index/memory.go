package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"helpdesk/internal/domain"
	"helpdesk/internal/port"
)

// MemoryIndex is a non-persistent vector index with the same semantics
// as BoltIndex. Useful for tests and local development; everything is
// lost on restart.
type MemoryIndex struct {
	mu        sync.RWMutex
	entries   map[string]domain.IndexEntry
	dimension int
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]domain.IndexEntry)}
}

func (s *MemoryIndex) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dimension := s.dimension
	if dimension == 0 {
		dimension = len(entries[0].Vector)
		if dimension == 0 {
			return fmt.Errorf("refusing to establish zero dimension: %w", domain.ErrIndex)
		}
	}
	for _, e := range entries {
		if len(e.Vector) != dimension {
			return fmt.Errorf("vector dimension mismatch for %q: expected %d, got %d: %w", e.ID, dimension, len(e.Vector), domain.ErrIndex)
		}
	}

	s.dimension = dimension
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

func (s *MemoryIndex) Query(ctx context.Context, vector []float32, k int) ([]port.QueryMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d: %w", s.dimension, len(vector), domain.ErrIndex)
	}

	matches := make([]port.QueryMatch, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, port.QueryMatch{Entry: e, Distance: l2Squared(vector, e.Vector)})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func (s *MemoryIndex) Fetch(ctx context.Context, limit int) ([]domain.IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	out := make([]domain.IndexEntry, 0, limit)
	for _, e := range s.entries {
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryIndex) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *MemoryIndex) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.IndexEntry)
	s.dimension = 0
	return nil
}

func (s *MemoryIndex) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryIndex) Close() error {
	return nil
}
