package llm

import (
	"context"
	"fmt"

	"shared-menu/internal/config"
	"shared-menu/internal/shared"
)

// Request is a single JSON-mode generation call.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator generates a JSON object from a system and a user instruction.
// Implementations only guarantee syntactically valid JSON; callers validate
// the schema they asked for.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req Request) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// New builds the generator selected by cfg.TextGenProvider, throttled to
// cfg.TextGenRPM when set.
func New(ctx context.Context, cfg *config.Config) (TextGenerator, error) {
	var gen TextGenerator
	switch cfg.TextGenProvider {
	case config.ProviderOpenAI:
		gen = NewOpenAIClient(cfg)
	case config.ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("unknown text generation provider %q", cfg.TextGenProvider)
	}
	return NewRateLimited(gen, cfg.TextGenRPM), nil
}

// Close closes gen when it holds resources.
func Close(gen TextGenerator) error {
	if c, ok := gen.(Closer); ok {
		return c.Close()
	}
	return nil
}
