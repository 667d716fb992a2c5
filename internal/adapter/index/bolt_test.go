package index

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/domain"
)

func openTestIndex(t *testing.T, collection string) *BoltIndex {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenBolt(path, collection)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func entry(id string, vector ...float32) domain.IndexEntry {
	return domain.IndexEntry{ID: id, Vector: vector, Text: "text for " + id}
}

func TestBoltQueryOrdersByAscendingDistance(t *testing.T) {
	idx := openTestIndex(t, "kb")
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{
		entry("far", 10, 0),
		entry("near", 1, 0),
		entry("mid", 3, 0),
	}))

	matches, err := idx.Query(ctx, []float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "near", matches[0].Entry.ID)
	assert.Equal(t, "mid", matches[1].Entry.ID)
	assert.Equal(t, "far", matches[2].Entry.ID)
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
	}
}

func TestBoltQueryEmptyCollection(t *testing.T) {
	idx := openTestIndex(t, "kb")

	matches, err := idx.Query(context.Background(), []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestBoltQueryCapsAtCollectionSize(t *testing.T) {
	idx := openTestIndex(t, "kb")
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{
		entry("a", 1, 0),
		entry("b", 2, 0),
	}))

	matches, err := idx.Query(ctx, []float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestBoltUpsertOverwritesByID(t *testing.T) {
	idx := openTestIndex(t, "kb")
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 0)}))
	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{entry("a", 5, 0)}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := idx.Query(ctx, []float32{5, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, float64(0), matches[0].Distance)
}

func TestBoltUpsertDimensionMismatchLeavesIndexUntouched(t *testing.T) {
	idx := openTestIndex(t, "kb")
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 2)}))

	err := idx.Upsert(ctx, []domain.IndexEntry{
		entry("b", 3, 4),
		entry("c", 1, 2, 3),
	})
	assert.ErrorIs(t, err, domain.ErrIndex)

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed batch must not be partially applied")
}

func TestBoltQueryDimensionMismatch(t *testing.T) {
	idx := openTestIndex(t, "kb")
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 2)}))

	_, err := idx.Query(ctx, []float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, domain.ErrIndex)
}

func TestBoltClearResetsDimension(t *testing.T) {
	idx := openTestIndex(t, "kb")
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 2)}))
	require.NoError(t, idx.Clear(ctx))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A different dimension is accepted after a clear.
	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{entry("b", 1, 2, 3)}))

	// Clearing an already-empty collection is a no-op.
	require.NoError(t, idx.Clear(ctx))
	require.NoError(t, idx.Clear(ctx))
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	idx, err := OpenBolt(path, "kb")
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{
		{ID: "a", Vector: []float32{1, 0}, Text: "alpha", Metadata: map[string]string{"source": "a.txt"}},
	}))
	require.NoError(t, idx.Close())

	reopened, err := OpenBolt(path, "kb")
	require.NoError(t, err)
	defer reopened.Close()

	matches, err := reopened.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "alpha", matches[0].Entry.Text)
	assert.Equal(t, "a.txt", matches[0].Entry.Metadata["source"])

	// Dimension survives the reopen too.
	err = reopened.Upsert(ctx, []domain.IndexEntry{entry("b", 1, 2, 3)})
	assert.ErrorIs(t, err, domain.ErrIndex)
}

func TestBoltCollectionsAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	first, err := OpenBolt(path, "kb_one")
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 0)}))
	require.NoError(t, first.Close())

	second, err := OpenBolt(path, "kb_two")
	require.NoError(t, err)
	defer second.Close()

	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// A different dimension in another collection is fine.
	require.NoError(t, second.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 2, 3)}))
}

func TestBoltFetchAndDelete(t *testing.T) {
	idx := openTestIndex(t, "kb")
	ctx := context.Background()

	var entries []domain.IndexEntry
	for i := 0; i < 5; i++ {
		entries = append(entries, entry(fmt.Sprintf("e%d", i), float32(i), 0))
	}
	require.NoError(t, idx.Upsert(ctx, entries))

	fetched, err := idx.Fetch(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, fetched, 3)

	fetched, err = idx.Fetch(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, fetched, 5)

	require.NoError(t, idx.Delete(ctx, []string{"e0", "e1", "missing"}))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemoryIndexMatchesBoltSemantics(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{
		entry("near", 1, 0),
		entry("far", 9, 0),
	}))

	_, err := idx.Query(ctx, []float32{0}, 1)
	assert.ErrorIs(t, err, domain.ErrIndex)

	matches, err := idx.Query(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].Entry.ID)
	assert.Equal(t, float64(1), matches[0].Distance)

	require.NoError(t, idx.Clear(ctx))
	matches, err = idx.Query(ctx, []float32{0, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, idx.Upsert(ctx, []domain.IndexEntry{entry("a", 1, 2, 3)}))
}

func TestL2Squared(t *testing.T) {
	assert.Equal(t, float64(0), l2Squared([]float32{1, 2}, []float32{1, 2}))
	assert.Equal(t, float64(25), l2Squared([]float32{0, 0}, []float32{3, 4}))
}
