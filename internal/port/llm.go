package port

import (
	"context"

	"kbdraft/internal/domain"
)

// LLM represents a chat model used to draft replies.
type LLM interface {
	// Generate produces a completion for the given prompts.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (GenerateResult, error)

	// Verify checks that the backing API is reachable and the key is valid.
	Verify(ctx context.Context) error

	// ModelName returns the configured model identifier.
	ModelName() string
}

// GenerateResult is the model output plus reported usage.
type GenerateResult struct {
	Text  string
	Model string
	Usage domain.TokenUsage
}
