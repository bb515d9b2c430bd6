package shopping

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"shared-menu/internal/dish"
	"shared-menu/internal/llm"
	"shared-menu/internal/shared"
)

//go:embed categorizer_prompt.md
var categorizerPrompt string

const (
	categorizerName   = "ShoppingListCategorizer"
	categorizerSystem = "You are a meticulous grocery planner. Group ingredients into the categories you are given. Always answer with a single JSON object and nothing else."
)

var categorizerTemplate = template.Must(template.New("categorizer").Parse(categorizerPrompt))

type dishIngredients struct {
	Dish        string            `json:"dish"`
	Ingredients []dish.Ingredient `json:"ingredients"`
}

// Categorize asks the text generation service to group the ingredients of
// dishes. Dishes without ingredients must be filtered out by the caller.
func Categorize(ctx context.Context, textGen llm.TextGenerator, dishes []dish.Dish) (Content, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: categorizerName}

	prompt, err := buildCategorizerPrompt(dishes)
	if err != nil {
		return Content{}, meta, err
	}

	resp, err := textGen.GenerateContent(ctx, llm.Request{
		System:      categorizerSystem,
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return Content{}, meta, fmt.Errorf("failed to get LLM response: %w", err)
	}
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)

	content, err := ParseContent(resp.Content)
	if err != nil {
		return Content{}, meta, err
	}
	return content, meta, nil
}

// ParseContent decodes and normalizes a {"groups": [...]} response.
func ParseContent(raw string) (Content, error) {
	var payload struct {
		Groups *[]Group `json:"groups"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Content{}, fmt.Errorf("failed to unmarshal LLM response: %w", err)
	}
	if payload.Groups == nil {
		return Content{}, fmt.Errorf("LLM response has no groups")
	}

	content := Content{Groups: *payload.Groups}.Normalize()
	if content.IsEmpty() {
		return Content{}, fmt.Errorf("LLM response has no ingredients")
	}
	return content, nil
}

func buildCategorizerPrompt(dishes []dish.Dish) (string, error) {
	input := make([]dishIngredients, 0, len(dishes))
	for _, d := range dishes {
		input = append(input, dishIngredients{Dish: d.Name, Ingredients: d.Ingredients})
	}
	encoded, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	var buf bytes.Buffer
	if err := categorizerTemplate.Execute(&buf, struct{ Dishes string }{string(encoded)}); err != nil {
		return "", fmt.Errorf("failed to build categorizer prompt: %w", err)
	}
	return buf.String(), nil
}
