package insight

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

// DefaultTopK is how many excerpts ground each answer.
const DefaultTopK = 3

// Retriever finds the corpus excerpts most relevant to a question.
type Retriever struct {
	embedder Embedder
	index    *Index
	topK     int
}

// NewRetriever constructs a Retriever; non-positive topK falls back to DefaultTopK.
func NewRetriever(embedder Embedder, index *Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

// Retrieve embeds query and returns the content of the nearest documents.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]string, error) {
	if r.index == nil {
		return nil, apperrors.Wrap(apperrors.CodeIndex, "similarity index is not available", nil)
	}
	vectors, err := r.embedder.Embed(ctx, []string{strings.TrimSpace(query)})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeService, "embedding response empty", errors.New("no query vector"))
	}
	docs, err := r.index.Search(ctx, vectors[0], r.topK)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.Content
	}
	return out, nil
}
