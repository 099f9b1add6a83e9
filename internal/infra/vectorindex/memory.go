package vectorindex

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/iso-insight/internal/domain/insight"
)

// Memory is an exact, brute-force L2 index held in process memory.
type Memory struct {
	mu      sync.RWMutex
	entries []insight.IndexedDocument
}

// NewMemory constructs an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{}
}

// Replace implements insight.VectorStore.
func (m *Memory) Replace(_ context.Context, docs []insight.IndexedDocument) error {
	entries := make([]insight.IndexedDocument, len(docs))
	for i, doc := range docs {
		entries[i] = insight.IndexedDocument{
			Document:  doc.Document,
			Embedding: append([]float32(nil), doc.Embedding...),
		}
	}
	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

// Search implements insight.VectorStore.
func (m *Memory) Search(_ context.Context, embedding []float32, k int) ([]insight.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		doc      insight.Document
		distance float64
	}
	results := make([]scored, len(m.entries))
	for i, entry := range m.entries {
		results[i] = scored{doc: entry.Document, distance: squaredL2(embedding, entry.Embedding)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].distance == results[j].distance {
			return results[i].doc.Row < results[j].doc.Row
		}
		return results[i].distance < results[j].distance
	})
	if k > len(results) {
		k = len(results)
	}
	out := make([]insight.Document, k)
	for i := 0; i < k; i++ {
		out[i] = results[i].doc
	}
	return out, nil
}

func squaredL2(a, b []float32) float64 {
	length := len(a)
	if len(b) < length {
		length = len(b)
	}
	var sum float64
	for i := 0; i < length; i++ {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return sum
}

var _ insight.VectorStore = (*Memory)(nil)
