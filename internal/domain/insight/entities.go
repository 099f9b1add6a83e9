package insight

import (
	"time"

	"github.com/yanqian/iso-insight/pkg/metrics"
)

// Document is one corpus row rendered as retrievable text.
type Document struct {
	Row     int    `json:"row"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

// IndexedDocument pairs a document with its embedding.
type IndexedDocument struct {
	Document  Document
	Embedding []float32
}

// Answer is returned to the presentation layer.
type Answer struct {
	Question   string              `json:"question"`
	Text       string              `json:"text"`
	Context    []string            `json:"context"`
	DurationMs int64               `json:"durationMs"`
	AnsweredAt time.Time           `json:"answeredAt"`
	TokenUsage *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}
