package insight

import (
	"context"
	"fmt"

	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// Index is the read-only similarity index over the startup corpus.
type Index struct {
	store VectorStore
	size  int
	dim   int
}

// BuildIndex embeds every document in one batch and loads the pairs into store.
func BuildIndex(ctx context.Context, docs []Document, embedder Embedder, store VectorStore) (*Index, error) {
	if len(docs) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeLoad, "corpus contains no documents", nil)
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(docs) {
		return nil, apperrors.Wrap(apperrors.CodeIndex, fmt.Sprintf("expected %d embeddings, got %d", len(docs), len(vectors)), nil)
	}

	dim := len(vectors[0])
	entries := make([]IndexedDocument, len(docs))
	for i, vec := range vectors {
		if len(vec) == 0 || len(vec) != dim {
			return nil, apperrors.Wrap(apperrors.CodeIndex, fmt.Sprintf("document row %d has embedding dimension %d, want %d", docs[i].Row, len(vec), dim), nil)
		}
		entries[i] = IndexedDocument{Document: docs[i], Embedding: vec}
	}
	if err := store.Replace(ctx, entries); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIndex, "failed to load vector store", err)
	}
	return &Index{store: store, size: len(entries), dim: dim}, nil
}

// Len reports how many documents are indexed.
func (i *Index) Len() int { return i.size }

// Dimension reports the embedding dimension shared by every entry.
func (i *Index) Dimension() int { return i.dim }

// Search returns up to k documents nearest to embedding, nearest first.
func (i *Index) Search(ctx context.Context, embedding []float32, k int) ([]Document, error) {
	if i == nil || i.store == nil {
		return nil, apperrors.Wrap(apperrors.CodeIndex, "similarity index is not available", nil)
	}
	if k <= 0 {
		return nil, apperrors.Wrap(apperrors.CodeIndex, "k must be positive", nil)
	}
	if len(embedding) != i.dim {
		return nil, apperrors.Wrap(apperrors.CodeIndex, fmt.Sprintf("query embedding dimension %d, want %d", len(embedding), i.dim), nil)
	}
	if k > i.size {
		k = i.size
	}
	docs, err := i.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIndex, "similarity search failed", err)
	}
	return docs, nil
}
