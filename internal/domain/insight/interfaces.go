package insight

import (
	"context"

	"github.com/yanqian/iso-insight/pkg/metrics"
)

// Embedder produces one embedding per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator turns a composed prompt into answer text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// Generation is the raw output of a Generator call.
type Generation struct {
	Text  string
	Usage metrics.TokenUsage
}

// VectorStore holds the indexed corpus and answers nearest neighbour queries.
// Search must order results nearest first and break distance ties by
// ascending Document.Row.
type VectorStore interface {
	Replace(ctx context.Context, docs []IndexedDocument) error
	Search(ctx context.Context, embedding []float32, k int) ([]Document, error)
}

// Assistant answers a single question end to end.
type Assistant interface {
	Answer(ctx context.Context, question string) (Answer, error)
}
