package embedder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/iso-insight/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

func TestChatGPTEmbedderBatchesByTokenBudget(t *testing.T) {
	client := &stubEmbeddingClient{}
	counter := func(text string) int { return len(text) }
	emb := NewChatGPTEmbedder(client, "text-embedding-ada-002", 5, counter, testLogger())

	vectors, err := emb.Embed(context.Background(), []string{"aaa", "bb", "cccc", "d"})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"aaa", "bb"}, {"cccc", "d"}}, client.batches)
	require.Len(t, vectors, 4)
	require.Equal(t, []float32{3}, vectors[0])
	require.Equal(t, []float32{1}, vectors[3])
}

func TestChatGPTEmbedderHonoursResponseIndex(t *testing.T) {
	client := &stubEmbeddingClient{reverse: true}
	emb := NewChatGPTEmbedder(client, "m", 100, nil, testLogger())

	vectors, err := emb.Embed(context.Background(), []string{"x", "yy", "zzz"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1}, {2}, {3}}, vectors)
}

func TestChatGPTEmbedderRejectsOversizedText(t *testing.T) {
	emb := NewChatGPTEmbedder(&stubEmbeddingClient{}, "m", 2, func(string) int { return 3 }, testLogger())
	_, err := emb.Embed(context.Background(), []string{"too big"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeService))
}

func TestChatGPTEmbedderClassifiesFailures(t *testing.T) {
	client := &stubEmbeddingClient{err: &chatgpt.APIError{StatusCode: 401, Body: "invalid key"}}
	emb := NewChatGPTEmbedder(client, "m", 100, nil, testLogger())
	_, err := emb.Embed(context.Background(), []string{"a"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeAuthentication))

	client.err = context.DeadlineExceeded
	_, err = emb.Embed(context.Background(), []string{"a"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeService))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChatGPTEmbedderRejectsShortResponse(t *testing.T) {
	client := &stubEmbeddingClient{drop: 1}
	emb := NewChatGPTEmbedder(client, "m", 100, nil, testLogger())
	_, err := emb.Embed(context.Background(), []string{"a", "b"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeService))
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	cache := newMapCache()
	cache.data[CacheKey("m", "known")] = []float32{9}
	next := &recordingEmbedder{}
	emb := NewCachedEmbedder(next, cache, "m", testLogger())

	vectors, err := emb.Embed(context.Background(), []string{"new", "known", "other"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{3}, {9}, {5}}, vectors)
	require.Equal(t, [][]string{{"new", "other"}}, next.calls)
	require.Contains(t, cache.data, CacheKey("m", "new"))

	vectors, err = emb.Embed(context.Background(), []string{"new", "other"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{3}, {5}}, vectors)
	require.Len(t, next.calls, 1)
}

func TestCachedEmbedderIgnoresCacheFailures(t *testing.T) {
	cache := newMapCache()
	cache.err = errors.New("cache down")
	next := &recordingEmbedder{}
	emb := NewCachedEmbedder(next, cache, "m", testLogger())

	vectors, err := emb.Embed(context.Background(), []string{"ab"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{2}}, vectors)
}

func TestCachedEmbedderPropagatesUpstreamError(t *testing.T) {
	upstream := apperrors.Wrap(apperrors.CodeService, "timeout", nil)
	emb := NewCachedEmbedder(&recordingEmbedder{err: upstream}, newMapCache(), "m", testLogger())
	_, err := emb.Embed(context.Background(), []string{"a"})
	require.Same(t, upstream, err)
}

func TestCachedEmbedderRejectsShortUpstreamWithoutCaching(t *testing.T) {
	cache := newMapCache()
	emb := NewCachedEmbedder(&recordingEmbedder{drop: 1}, cache, "m", testLogger())

	_, err := emb.Embed(context.Background(), []string{"a", "bb"})
	require.True(t, apperrors.IsCode(err, apperrors.CodeService))
	require.Empty(t, cache.data)
}

func TestCacheKeyNamespacesByModel(t *testing.T) {
	require.Equal(t, CacheKey("m", "t"), CacheKey("m", "t"))
	require.NotEqual(t, CacheKey("m1", "t"), CacheKey("m2", "t"))
	require.Len(t, CacheKey("m", "t"), 64)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, 3, EstimateTokens("a b c"))
	require.Equal(t, 5, EstimateTokens("abcdefghij"))
}

type stubEmbeddingClient struct {
	batches [][]string
	err     error
	reverse bool
	drop    int
}

func (s *stubEmbeddingClient) CreateEmbedding(_ context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error) {
	if s.err != nil {
		return chatgpt.EmbeddingResponse{}, s.err
	}
	inputs := req.Input.([]string)
	s.batches = append(s.batches, append([]string(nil), inputs...))
	var resp chatgpt.EmbeddingResponse
	for i, text := range inputs[:len(inputs)-s.drop] {
		item := struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}{Index: i, Embedding: []float32{float32(len(text))}}
		resp.Data = append(resp.Data, item)
	}
	if s.reverse {
		for i, j := 0, len(resp.Data)-1; i < j; i, j = i+1, j-1 {
			resp.Data[i], resp.Data[j] = resp.Data[j], resp.Data[i]
		}
	}
	return resp, nil
}

type recordingEmbedder struct {
	calls [][]string
	err   error
	drop  int
}

func (r *recordingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.calls = append(r.calls, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	if r.drop > 0 && r.drop <= len(out) {
		out = out[:len(out)-r.drop]
	}
	return out, nil
}

type mapCache struct {
	data map[string][]float32
	err  error
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]float32)}
}

func (m *mapCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	vec, ok := m.data[key]
	return vec, ok, nil
}

func (m *mapCache) Put(_ context.Context, key string, vector []float32) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = vector
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
