package domain

import "errors"

// Sentinel errors for the pipeline stages. Adapters wrap these with
// fmt.Errorf("...: %w", ...) so callers can branch with errors.Is
// without depending on adapter packages.
var (
	// ErrConfig marks invalid chunking or pipeline parameters. Fatal to
	// the call, never retried.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmbedding marks an embedding provider failure. The ingestion
	// batch is aborted; a query surfaces it to the caller rather than
	// degrading into escalation.
	ErrEmbedding = errors.New("embedding provider failure")

	// ErrIndex marks a vector index failure: dimension mismatch or
	// storage unavailable.
	ErrIndex = errors.New("vector index failure")

	// ErrGeneration marks a text-generation failure. Recovered locally
	// by the synthesizer's fallback message, never shown to users.
	ErrGeneration = errors.New("text generation failure")

	// ErrTicket marks a failed ticket-creation call. Surfaced, since
	// the question would otherwise be dropped silently.
	ErrTicket = errors.New("ticket service failure")
)
