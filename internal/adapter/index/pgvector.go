package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"helpdesk/internal/domain"
	"helpdesk/internal/port"
)

// MetricL2 is the metric used by PgIndex: Euclidean distance as
// computed by pgvector's <-> operator. Ascending, non-negative.
const MetricL2 = "l2"

var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// PgIndex is a Postgres+pgvector vector index. Each collection maps to
// its own table, so two collection names are fully isolated. Unlike
// BoltIndex, the dimension is part of the table definition and must be
// known up front (it comes from the embedder configuration).
type PgIndex struct {
	db         *sql.DB
	table      string
	collection string
	dimension  int
}

// OpenPg connects to Postgres and ensures the collection's table
// exists. The pgvector extension must already be installed.
func OpenPg(dsn, collection string, dimension int) (*PgIndex, error) {
	if !collectionNamePattern.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q: %w", collection, domain.ErrConfig)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("pgvector backend needs a positive embedding dimension, got %d: %w", dimension, domain.ErrConfig)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %v: %w", err, domain.ErrIndex)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	idx := &PgIndex{
		db:         db,
		table:      "kb_" + collection,
		collection: collection,
		dimension:  dimension,
	}
	if err := idx.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *PgIndex) ensureTable() error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id         text PRIMARY KEY,
  content    text NOT NULL,
  metadata   jsonb,
  embedding  vector(%d) NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING ivfflat (embedding vector_l2_ops) WITH (lists = 100);
`, s.table, s.dimension, s.table, s.table)
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create table for collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return nil
}

// Upsert overwrites entries by ID inside one transaction; a dimension
// mismatch anywhere in the batch rolls the whole batch back.
func (s *PgIndex) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch for %q: expected %d, got %d: %w", e.ID, s.dimension, len(e.Vector), domain.ErrIndex)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %v: %w", err, domain.ErrIndex)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
INSERT INTO %s (id, content, metadata, embedding, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (id) DO UPDATE SET
  content    = EXCLUDED.content,
  metadata   = EXCLUDED.metadata,
  embedding  = EXCLUDED.embedding,
  updated_at = now();
`, s.table)

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %q: %v: %w", e.ID, err, domain.ErrIndex)
		}
		if _, err := tx.ExecContext(ctx, stmt, e.ID, e.Text, meta, pgvector.NewVector(e.Vector)); err != nil {
			return fmt.Errorf("failed to upsert %q into collection %q: %v: %w", e.ID, s.collection, err, domain.ErrIndex)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert into collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return nil
}

// Query returns up to k nearest entries by ascending L2 distance.
func (s *PgIndex) Query(ctx context.Context, vector []float32, k int) ([]port.QueryMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: collection %q holds %d-dimension vectors, got %d: %w", s.collection, s.dimension, len(vector), domain.ErrIndex)
	}

	query := fmt.Sprintf(`
SELECT id, content, metadata, embedding, embedding <-> $1 AS distance
FROM %s
ORDER BY distance ASC
LIMIT $2;
`, s.table)

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query failed for collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	defer rows.Close()

	var matches []port.QueryMatch
	for rows.Next() {
		entry, distance, err := scanEntry(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result from collection %q: %v: %w", s.collection, err, domain.ErrIndex)
		}
		matches = append(matches, port.QueryMatch{Entry: entry, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed for collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return matches, nil
}

// Fetch returns up to limit entries in no particular order.
func (s *PgIndex) Fetch(ctx context.Context, limit int) ([]domain.IndexEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT id, content, metadata, embedding FROM %s LIMIT $1;`, s.table)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		entry, _, err := scanEntry(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry from collection %q: %v: %w", s.collection, err, domain.ErrIndex)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch failed for collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return entries, nil
}

// Delete removes entries by ID. Unknown IDs are ignored.
func (s *PgIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1);`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete from collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return nil
}

// Clear removes all entries. The table (and its dimension) stays.
func (s *PgIndex) Clear(ctx context.Context) error {
	stmt := fmt.Sprintf(`DELETE FROM %s;`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to clear collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return nil
}

// Count returns the number of entries in the collection.
func (s *PgIndex) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT count(*) FROM %s;`, s.table)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count failed for collection %q: %v: %w", s.collection, err, domain.ErrIndex)
	}
	return n, nil
}

func (s *PgIndex) Close() error {
	return s.db.Close()
}

func scanEntry(rows *sql.Rows, withDistance bool) (domain.IndexEntry, float64, error) {
	var (
		entry    domain.IndexEntry
		metaRaw  []byte
		vec      pgvector.Vector
		distance float64
	)
	var err error
	if withDistance {
		err = rows.Scan(&entry.ID, &entry.Text, &metaRaw, &vec, &distance)
	} else {
		err = rows.Scan(&entry.ID, &entry.Text, &metaRaw, &vec)
	}
	if err != nil {
		return domain.IndexEntry{}, 0, err
	}
	entry.Vector = vec.Slice()
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &entry.Metadata); err != nil {
			return domain.IndexEntry{}, 0, err
		}
	}
	return entry, distance, nil
}
