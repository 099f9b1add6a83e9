package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/yanqian/iso-insight/internal/domain/insight"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// Cache persists embeddings across restarts.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key string, vector []float32) error
}

// CachedEmbedder serves known texts from a Cache and embeds the rest through
// the wrapped embedder. Cache failures are logged and never returned.
type CachedEmbedder struct {
	next   insight.Embedder
	cache  Cache
	model  string
	logger *slog.Logger
}

// NewCachedEmbedder wraps next; model namespaces the cache keys.
func NewCachedEmbedder(next insight.Embedder, cache Cache, model string, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{
		next:   next,
		cache:  cache,
		model:  model,
		logger: logger.With("component", "embedder.cached"),
	}
}

// Embed implements insight.Embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var (
		missing    []string
		missingPos []int
	)
	for i, text := range texts {
		keys[i] = CacheKey(e.model, text)
		vec, ok, err := e.cache.Get(ctx, keys[i])
		if err != nil {
			e.logger.Warn("embedding cache read failed", "error", err)
		}
		if ok && len(vec) > 0 {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingPos = append(missingPos, i)
	}

	if len(missing) > 0 {
		vectors, err := e.next.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missing) {
			return nil, apperrors.Wrap(apperrors.CodeService, fmt.Sprintf("embedder returned %d vectors for %d inputs", len(vectors), len(missing)), nil)
		}
		for j, vec := range vectors {
			pos := missingPos[j]
			out[pos] = vec
			if err := e.cache.Put(ctx, keys[pos], vec); err != nil {
				e.logger.Warn("embedding cache write failed", "error", err)
			}
		}
	}
	e.logger.Debug("embedding cache lookup", "requested", len(texts), "misses", len(missing))
	return out, nil
}

// CacheKey derives a stable key for model and text.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
