package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a text generation request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Add accumulates another usage into u. The model of the latest call wins.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	if other.Model != "" {
		u.Model = other.Model
	}
	return u
}

// AgentMeta holds operational metadata for a single generation task,
// e.g. the shopping list categorizer or the ingredient suggester.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}

// UsageRecorder persists AgentMeta. metrics.Store satisfies it.
type UsageRecorder interface {
	RecordMeta(meta AgentMeta) error
}

// DiscardUsage is a UsageRecorder that drops everything.
type DiscardUsage struct{}

func (DiscardUsage) RecordMeta(AgentMeta) error { return nil }
