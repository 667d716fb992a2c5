package port

import "helpdesk/internal/domain"

type Chunker interface {
	// Split splits text into chunks of at most chunkSize characters,
	// with overlap trailing characters repeated at the start of the
	// next chunk. Fails when overlap >= chunkSize.
	Split(text string, chunkSize, overlap int) ([]domain.Chunk, error)
}
