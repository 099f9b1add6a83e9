package generator

import (
	"context"
	"strings"

	"github.com/yanqian/iso-insight/internal/domain/insight"
	"github.com/yanqian/iso-insight/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
	"github.com/yanqian/iso-insight/pkg/metrics"
)

// Temperature is fixed at zero for greedy, repeatable generation.
const Temperature float32 = 0

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// ChatGPTGenerator adapts the ChatGPT client to insight.Generator.
type ChatGPTGenerator struct {
	client chatClient
	model  string
}

// NewChatGPTGenerator constructs the adapter for a fixed model.
func NewChatGPTGenerator(client chatClient, model string) *ChatGPTGenerator {
	return &ChatGPTGenerator{client: client, model: model}
}

// Generate sends prompt as a single user message.
func (g *ChatGPTGenerator) Generate(ctx context.Context, prompt string) (insight.Generation, error) {
	resp, err := g.client.CreateChatCompletion(ctx, chatgpt.ChatCompletionRequest{
		Model:       g.model,
		Temperature: Temperature,
		Messages:    []chatgpt.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return insight.Generation{}, chatgpt.Classify(err, "chatgpt request failed")
	}
	if len(resp.Choices) == 0 {
		return insight.Generation{}, apperrors.Wrap(apperrors.CodeService, "chatgpt returned no choices", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return insight.Generation{}, apperrors.Wrap(apperrors.CodeService, "chatgpt response empty", nil)
	}
	return insight.Generation{
		Text: text,
		Usage: metrics.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

var _ insight.Generator = (*ChatGPTGenerator)(nil)
