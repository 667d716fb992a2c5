package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"helpdesk/internal/domain"
	"helpdesk/internal/port"
)

// Retriever embeds a query, runs nearest-neighbor search, and keeps
// the results that pass the distance threshold.
type Retriever struct {
	embedder port.Embedder
	index    port.VectorIndex
	logger   *slog.Logger
}

func NewRetriever(embedder port.Embedder, index port.VectorIndex, logger *slog.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Search returns documents within threshold of the query, closest
// first. An empty result is not an error: it is the signal the
// escalation policy uses to open a ticket. An embedding failure is
// surfaced instead — a provider outage is not the same as "no
// relevant knowledge".
func (r *Retriever) Search(ctx context.Context, queryText string, k int, threshold float64) ([]domain.RetrievedDocument, error) {
	vectors, err := r.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query: %w", len(vectors), domain.ErrEmbedding)
	}

	matches, err := r.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]domain.RetrievedDocument, 0, len(matches))
	for _, m := range matches {
		if m.Distance > threshold {
			r.logger.Debug("result over threshold",
				"id", m.Entry.ID, "distance", m.Distance, "threshold", threshold)
			continue
		}
		docs = append(docs, domain.RetrievedDocument{
			Text:     m.Entry.Text,
			Distance: m.Distance,
		})
	}

	r.logger.Info("retrieval done",
		"query", queryText, "candidates", len(matches), "kept", len(docs), "threshold", threshold)
	return docs, nil
}
