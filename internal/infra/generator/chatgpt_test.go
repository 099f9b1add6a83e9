package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/iso-insight/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

func TestGenerateUsesFixedModelAndTemperature(t *testing.T) {
	client := &stubChatClient{resp: completion(" an answer ")}
	client.resp.Usage = chatgpt.Usage{PromptTokens: 7, CompletionTokens: 2, TotalTokens: 9}
	gen := NewChatGPTGenerator(client, "gpt-3.5-turbo")

	out, err := gen.Generate(context.Background(), "composed prompt")
	require.NoError(t, err)
	require.Equal(t, "an answer", out.Text)
	require.Equal(t, 9, out.Usage.TotalTokens)

	require.Equal(t, "gpt-3.5-turbo", client.last.Model)
	require.Equal(t, float32(0), client.last.Temperature)
	require.Equal(t, []chatgpt.Message{{Role: "user", Content: "composed prompt"}}, client.last.Messages)
}

func TestGenerateClassifiesFailures(t *testing.T) {
	gen := NewChatGPTGenerator(&stubChatClient{err: &chatgpt.APIError{StatusCode: 401}}, "m")
	_, err := gen.Generate(context.Background(), "p")
	require.True(t, apperrors.IsCode(err, apperrors.CodeAuthentication))

	gen = NewChatGPTGenerator(&stubChatClient{err: &chatgpt.APIError{StatusCode: 503}}, "m")
	_, err = gen.Generate(context.Background(), "p")
	require.True(t, apperrors.IsCode(err, apperrors.CodeService))

	gen = NewChatGPTGenerator(&stubChatClient{}, "m")
	_, err = gen.Generate(context.Background(), "p")
	require.True(t, apperrors.IsCode(err, apperrors.CodeService))

	gen = NewChatGPTGenerator(&stubChatClient{resp: completion("   ")}, "m")
	_, err = gen.Generate(context.Background(), "p")
	require.True(t, apperrors.IsCode(err, apperrors.CodeService))
}

type stubChatClient struct {
	resp chatgpt.ChatCompletionResponse
	err  error
	last chatgpt.ChatCompletionRequest
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	s.last = req
	return s.resp, s.err
}

func completion(content string) chatgpt.ChatCompletionResponse {
	return chatgpt.ChatCompletionResponse{
		Choices: []struct {
			Message chatgpt.Message `json:"message"`
		}{
			{Message: chatgpt.Message{Role: "assistant", Content: content}},
		},
	}
}
