package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/iso-insight/internal/domain/insight"
)

func TestMemorySearchOrdersNearestFirst(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Replace(context.Background(), []insight.IndexedDocument{
		{Document: insight.Document{Row: 0, Content: "far"}, Embedding: []float32{10, 10}},
		{Document: insight.Document{Row: 1, Content: "near"}, Embedding: []float32{1, 0}},
		{Document: insight.Document{Row: 2, Content: "mid"}, Embedding: []float32{3, 3}},
	}))

	got, err := store.Search(context.Background(), []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"near", "mid"}, contents(got))
}

func TestMemorySearchBreaksTiesByRow(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Replace(context.Background(), []insight.IndexedDocument{
		{Document: insight.Document{Row: 2, Content: "c"}, Embedding: []float32{1}},
		{Document: insight.Document{Row: 0, Content: "a"}, Embedding: []float32{-1}},
		{Document: insight.Document{Row: 1, Content: "b"}, Embedding: []float32{1}},
	}))

	for i := 0; i < 5; i++ {
		got, err := store.Search(context.Background(), []float32{0}, 3)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "c"}, contents(got))
	}
}

func TestMemorySearchReturnsAllWhenKExceedsSize(t *testing.T) {
	store := NewMemory()
	require.NoError(t, store.Replace(context.Background(), []insight.IndexedDocument{
		{Document: insight.Document{Row: 0, Content: "only"}, Embedding: []float32{1}},
	}))

	got, err := store.Search(context.Background(), []float32{0}, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"only"}, contents(got))
}

func TestMemoryReplaceCopiesEmbeddings(t *testing.T) {
	vec := []float32{1, 1}
	store := NewMemory()
	require.NoError(t, store.Replace(context.Background(), []insight.IndexedDocument{
		{Document: insight.Document{Row: 0, Content: "x"}, Embedding: vec},
		{Document: insight.Document{Row: 1, Content: "y"}, Embedding: []float32{2, 2}},
	}))
	vec[0], vec[1] = 100, 100

	got, err := store.Search(context.Background(), []float32{0, 0}, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, contents(got))
}

func contents(docs []insight.Document) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		out[i] = doc.Content
	}
	return out
}
