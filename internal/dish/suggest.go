package dish

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"shared-menu/internal/llm"
	"shared-menu/internal/logger"
	"shared-menu/internal/shared"
)

//go:embed suggest_prompt.md
var suggestPrompt string

const (
	suggesterName   = "IngredientSuggester"
	suggesterSystem = "You are a home cooking assistant. Always answer with a single JSON object and nothing else."
	defaultQuantity = "to taste"
)

var suggestTemplate = template.Must(template.New("suggest").Parse(suggestPrompt))

// Suggester asks the text generation service for the ingredients of a dish.
type Suggester struct {
	textGen llm.TextGenerator
	usage   shared.UsageRecorder
}

func NewSuggester(textGen llm.TextGenerator, usage shared.UsageRecorder) *Suggester {
	if usage == nil {
		usage = shared.DiscardUsage{}
	}
	return &Suggester{textGen: textGen, usage: usage}
}

// SuggestIngredients returns a cleaned ingredient list for a dish name.
func (s *Suggester) SuggestIngredients(ctx context.Context, name, description string) ([]Ingredient, error) {
	ingredients, meta, err := SuggestIngredients(ctx, s.textGen, name, description)
	if recErr := s.usage.RecordMeta(meta); recErr != nil {
		logger.Warn("failed to record %s usage: %v", meta.AgentName, recErr)
	}
	return ingredients, err
}

// SuggestIngredients runs a single suggestion request.
func SuggestIngredients(ctx context.Context, textGen llm.TextGenerator, name, description string) ([]Ingredient, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: suggesterName}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, meta, fmt.Errorf("dish name is required")
	}

	var buf bytes.Buffer
	if err := suggestTemplate.Execute(&buf, struct{ Name, Description string }{name, strings.TrimSpace(description)}); err != nil {
		return nil, meta, fmt.Errorf("failed to build suggestion prompt: %w", err)
	}

	resp, err := textGen.GenerateContent(ctx, llm.Request{
		System:      suggesterSystem,
		Prompt:      buf.String(),
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	ingredients, err := ParseIngredients(resp.Content)
	if err != nil {
		return nil, meta, err
	}
	return ingredients, meta, nil
}

// ParseIngredients decodes an {"ingredients": [...]} response. Entries
// without a name are dropped and missing quantities become "to taste".
func ParseIngredients(content string) ([]Ingredient, error) {
	var payload struct {
		Ingredients []Ingredient `json:"ingredients"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}

	seen := make(map[string]struct{}, len(payload.Ingredients))
	out := make([]Ingredient, 0, len(payload.Ingredients))
	for _, ing := range payload.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Quantity = strings.TrimSpace(ing.Quantity)
		if ing.Name == "" {
			continue
		}
		key := strings.ToLower(ing.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if ing.Quantity == "" {
			ing.Quantity = defaultQuantity
		}
		out = append(out, ing)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no ingredients in LLM response")
	}
	return out, nil
}
