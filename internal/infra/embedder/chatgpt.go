package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yanqian/iso-insight/internal/domain/insight"
	"github.com/yanqian/iso-insight/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error)
}

// ChatGPTEmbedder calls the OpenAI-compatible embeddings API.
type ChatGPTEmbedder struct {
	client         embeddingClient
	model          string
	maxBatchTokens int
	countTokens    TokenCounter
	logger         *slog.Logger
}

// NewChatGPTEmbedder constructs an embedder backed by the ChatGPT client.
// A nil counter falls back to EstimateTokens.
func NewChatGPTEmbedder(client embeddingClient, model string, maxBatchTokens int, counter TokenCounter, logger *slog.Logger) *ChatGPTEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	if counter == nil {
		counter = EstimateTokens
	}
	if maxBatchTokens <= 0 {
		maxBatchTokens = 200_000
	}
	return &ChatGPTEmbedder{
		client:         client,
		model:          strings.TrimSpace(model),
		maxBatchTokens: maxBatchTokens,
		countTokens:    counter,
		logger:         logger.With("component", "embedder.chatgpt"),
	}
}

// Model reports the embedding model identifier.
func (e *ChatGPTEmbedder) Model() string { return e.model }

// Embed requests embeddings for texts, splitting into batches under the token budget.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var (
		out         = make([][]float32, 0, len(texts))
		batch       []string
		batchTokens int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{
			Model: e.model,
			Input: batch,
		})
		if err != nil {
			return chatgpt.Classify(err, "embedding request failed")
		}
		if len(resp.Data) != len(batch) {
			e.logger.Warn("embedding result count mismatch", "expected", len(batch), "got", len(resp.Data))
			return apperrors.Wrap(apperrors.CodeService, fmt.Sprintf("embedding response returned %d vectors for %d inputs", len(resp.Data), len(batch)), nil)
		}
		ordered := make([][]float32, len(batch))
		for pos, item := range resp.Data {
			idx := item.Index
			if idx < 0 || idx >= len(batch) || ordered[idx] != nil {
				idx = pos
			}
			vec := make([]float32, len(item.Embedding))
			copy(vec, item.Embedding)
			ordered[idx] = vec
		}
		out = append(out, ordered...)
		batch = nil
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		tokens := e.countTokens(text)
		if tokens > e.maxBatchTokens {
			return nil, apperrors.Wrap(apperrors.CodeService, fmt.Sprintf("text too large for embedding request: tokens=%d", tokens), nil)
		}
		if batchTokens+tokens > e.maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, text)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	e.logger.Debug("embedded texts", "count", len(out), "model", e.model)
	return out, nil
}

var _ insight.Embedder = (*ChatGPTEmbedder)(nil)
