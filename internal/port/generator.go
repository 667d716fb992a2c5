package port

import "context"

// Generator turns a prompt into natural-language text. Treated as
// opaque; no retries beyond the single attempt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
