// Package index provides persistent vector-index backends behind the
// port.VectorIndex contract. Every backend fixes its distance metric
// per collection; a threshold tuned under one metric is meaningless
// under another.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"helpdesk/internal/domain"
	"helpdesk/internal/port"
)

// MetricL2Squared is the metric used by BoltIndex and MemoryIndex:
// squared Euclidean distance, ascending, non-negative.
const MetricL2Squared = "l2_squared"

var (
	bucketEntries = []byte("entries")
	keyMeta       = []byte("collection_meta")
)

// BoltIndex is a bbolt-backed vector index. One database file can
// host several collections; each lives in its own top-level bucket and
// is fully isolated from the others. Search is brute force over an
// in-memory cache, which is fine at knowledge-base scale.
type BoltIndex struct {
	db         *bbolt.DB
	collection []byte

	mu        sync.RWMutex
	entries   map[string]domain.IndexEntry
	dimension int // 0 until the first successful upsert
}

type collectionMeta struct {
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

type storedEntry struct {
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
}

// OpenBolt opens (or creates) the collection inside the database file
// at path and loads its entries into memory.
func OpenBolt(path, collection string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %v: %w", err, domain.ErrIndex)
	}

	idx := &BoltIndex{
		db:         db,
		collection: []byte(collection),
		entries:    make(map[string]domain.IndexEntry),
	}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *BoltIndex) init() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists(s.collection)
		if err != nil {
			return err
		}
		if _, err := root.CreateBucketIfNotExists(bucketEntries); err != nil {
			return err
		}

		if data := root.Get(keyMeta); data != nil {
			var meta collectionMeta
			if err := json.Unmarshal(data, &meta); err != nil {
				return fmt.Errorf("corrupt collection metadata: %v", err)
			}
			if meta.Metric != MetricL2Squared {
				return fmt.Errorf("collection %q was created with metric %q, this backend uses %q", s.collection, meta.Metric, MetricL2Squared)
			}
			s.dimension = meta.Dimension
		}

		return root.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			s.entries[string(k)] = domain.IndexEntry{
				ID:       string(k),
				Vector:   stored.Vector,
				Text:     stored.Text,
				Metadata: stored.Metadata,
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to load collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return nil
}

// Upsert overwrites entries by ID. All dimensions are validated before
// anything is written, so a mismatched batch leaves the collection
// untouched.
func (s *BoltIndex) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
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
			return fmt.Errorf("refusing to establish zero dimension for collection %q: %w", s.collection, domain.ErrIndex)
		}
	}
	for _, e := range entries {
		if len(e.Vector) != dimension {
			return fmt.Errorf("vector dimension mismatch for %q: expected %d, got %d: %w", e.ID, dimension, len(e.Vector), domain.ErrIndex)
		}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(s.collection)
		if s.dimension == 0 {
			meta, err := json.Marshal(collectionMeta{Dimension: dimension, Metric: MetricL2Squared})
			if err != nil {
				return err
			}
			if err := root.Put(keyMeta, meta); err != nil {
				return err
			}
		}

		b := root.Bucket(bucketEntries)
		for _, e := range entries {
			data, err := json.Marshal(storedEntry{Vector: e.Vector, Text: e.Text, Metadata: e.Metadata})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(e.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert into collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}

	s.dimension = dimension
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

// Query returns up to k nearest entries by ascending squared-L2
// distance. An empty collection yields an empty result.
func (s *BoltIndex) Query(ctx context.Context, vector []float32, k int) ([]port.QueryMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: collection %q holds %d-dimension vectors, got %d: %w", s.collection, s.dimension, len(vector), domain.ErrIndex)
	}

	matches := make([]port.QueryMatch, 0, len(s.entries))
	for _, e := range s.entries {
		matches = append(matches, port.QueryMatch{
			Entry:    e,
			Distance: l2Squared(vector, e.Vector),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Fetch returns up to limit entries in no particular order.
func (s *BoltIndex) Fetch(ctx context.Context, limit int) ([]domain.IndexEntry, error) {
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

// Delete removes entries by ID. Unknown IDs are ignored.
func (s *BoltIndex) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.collection).Bucket(bucketEntries)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete from collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}

	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

// Clear removes all entries and resets the collection's dimension, so
// a new embedding model can establish a fresh one. Idempotent.
func (s *BoltIndex) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(s.collection)
		if err := root.DeleteBucket(bucketEntries); err != nil {
			return err
		}
		if _, err := root.CreateBucket(bucketEntries); err != nil {
			return err
		}
		return root.Delete(keyMeta)
	})
	if err != nil {
		return fmt.Errorf("failed to clear collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}

	s.entries = make(map[string]domain.IndexEntry)
	s.dimension = 0
	return nil
}

// Count returns the number of entries in the collection.
func (s *BoltIndex) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *BoltIndex) Close() error {
	return s.db.Close()
}

// l2Squared is the squared Euclidean distance. The square root is
// monotonic, so it changes nothing for ranking and threshold tuning
// happens against this value directly.
func l2Squared(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
