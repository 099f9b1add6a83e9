package metrics

import "log/slog"

// TokenUsage captures the tokens billed for one generated answer.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether the provider returned no usage data.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// LogValue groups the counts under one slog attribute.
func (u TokenUsage) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("prompt", u.PromptTokens),
		slog.Int("completion", u.CompletionTokens),
		slog.Int("total", u.TotalTokens),
	)
}
