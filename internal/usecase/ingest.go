package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"helpdesk/internal/adapter/fs"
	"helpdesk/internal/domain"
	"helpdesk/internal/port"
)

// IngestUseCase runs the ingestion path: source text is chunked,
// embedded, and upserted into the vector index. Chunk order is
// preserved end to end so IDs and vectors stay correctly paired.
type IngestUseCase struct {
	chunker  port.Chunker
	embedder port.Embedder
	index    port.VectorIndex
	walker   *fs.Walker
	logger   *slog.Logger
}

func NewIngestUseCase(
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	walker *fs.Walker,
	logger *slog.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		walker:   walker,
		logger:   logger,
	}
}

// IngestOptions carries per-call chunking parameters.
type IngestOptions struct {
	ChunkSize    int
	ChunkOverlap int
}

// ProgressFunc reports ingestion progress for interactive callers.
type ProgressFunc func(processed, total int, currentFile string)

// IngestReport summarizes one ingestion batch.
type IngestReport struct {
	BatchID        string
	FilesIngested  int
	ChunksUpserted int
	Errors         []string
}

// IngestPath ingests a file or a directory of knowledge-base files.
// Chunk ordinals run continuously across the batch, so re-ingesting
// the same sources with the same parameters overwrites the same IDs.
// A file whose embedding fails is skipped whole: nothing of it is
// upserted, and the failure lands in the report.
func (u *IngestUseCase) IngestPath(ctx context.Context, path string, opts IngestOptions, progress ProgressFunc) (*IngestReport, error) {
	files, err := u.walker.Walk(path)
	if err != nil {
		return nil, fmt.Errorf("failed to collect source files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no knowledge-base files found under %s", path)
	}

	report := &IngestReport{BatchID: uuid.NewString()}
	u.logger.Info("ingestion started", "batch_id", report.BatchID, "files", len(files))

	offset := 0
	for i, file := range files {
		if progress != nil {
			progress(i, len(files), file)
		}

		text, err := fs.ReadFile(file)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", file, err))
			continue
		}

		count, upserted, err := u.ingestDocument(ctx, filepath.Base(file), text, offset, opts)
		offset += count
		if err != nil {
			// Invalid chunking parameters doom the whole batch;
			// provider or index failures are per-document.
			if errors.Is(err, domain.ErrConfig) {
				return nil, err
			}
			u.logger.Error("document ingestion failed",
				"batch_id", report.BatchID, "source", file, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		report.FilesIngested++
		report.ChunksUpserted += upserted
	}
	if progress != nil {
		progress(len(files), len(files), "")
	}

	u.logger.Info("ingestion finished",
		"batch_id", report.BatchID,
		"files", report.FilesIngested,
		"chunks", report.ChunksUpserted,
		"errors", len(report.Errors))
	return report, nil
}

// IngestText ingests a single in-memory document. Exposed for the
// surrounding service, which may receive knowledge-base updates over
// the wire rather than from disk.
func (u *IngestUseCase) IngestText(ctx context.Context, source, text string, opts IngestOptions) (int, error) {
	_, upserted, err := u.ingestDocument(ctx, source, text, 0, opts)
	return upserted, err
}

// ingestDocument chunks, embeds, and upserts one document. Returns the
// number of chunks produced (for ordinal bookkeeping, even on failure)
// and the number actually upserted. An embedding failure aborts the
// document before anything reaches the index, so vectors and IDs can
// never end up mismatched.
func (u *IngestUseCase) ingestDocument(ctx context.Context, source, text string, offset int, opts IngestOptions) (int, int, error) {
	chunks, err := u.chunker.Split(text, opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return 0, 0, err
	}
	if len(chunks) == 0 {
		return 0, 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return len(chunks), 0, fmt.Errorf("embedding failed for %s: %w", source, err)
	}
	if len(vectors) != len(chunks) {
		return len(chunks), 0, fmt.Errorf("embedder returned %d vectors for %d chunks of %s: %w", len(vectors), len(chunks), source, domain.ErrEmbedding)
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{
			ID:       fmt.Sprintf("chunk_%d", offset+i+1),
			Vector:   vectors[i],
			Text:     c.Text,
			Metadata: map[string]string{"source": source},
		}
	}

	if err := u.index.Upsert(ctx, entries); err != nil {
		return len(chunks), 0, fmt.Errorf("index upsert failed for %s: %w", source, err)
	}
	return len(chunks), len(entries), nil
}
