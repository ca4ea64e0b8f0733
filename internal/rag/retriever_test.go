package rag

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

// memoryIndexStore 内存索引存储，仅测试用
type memoryIndexStore struct {
	mu   sync.Mutex
	data map[string]*SerializedIndex
}

func newMemoryIndexStore() *memoryIndexStore {
	return &memoryIndexStore{data: make(map[string]*SerializedIndex)}
}

func (s *memoryIndexStore) Load(ctx context.Context, name string) (*SerializedIndex, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.data[name]
	if !ok {
		return nil, false, nil
	}
	return index, true, nil
}

func (s *memoryIndexStore) Save(ctx context.Context, index *SerializedIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[index.Name] = index
	return nil
}

// stubEmbedder 预置向量映射的嵌入器，仅测试用
type stubEmbedder struct {
	vectors map[string][]float32
	dims    int
}

func newStubEmbedder(dims int) *stubEmbedder {
	return &stubEmbedder{vectors: make(map[string][]float32), dims: dims}
}

func (e *stubEmbedder) register(text string, vector []float32) {
	e.vectors[text] = vector
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	v := make([]float32, e.dims)
	v[0] = 1
	return v, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int { return e.dims }
func (e *stubEmbedder) Model() string   { return "stub" }

func saveIndex(t *testing.T, store IndexStore, name string, entries []IndexEntry) {
	t.Helper()

	index := NewIndex(MetricCosine)
	require.NoError(t, index.Add(entries))
	data, err := index.Serialize()
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), &SerializedIndex{
		Name:       name,
		Data:       data,
		EntryCount: index.Len(),
		Dimensions: index.Dimensions(),
	}))
}

func TestRetriever_IndexNotFound(t *testing.T) {
	retriever := NewRetriever(newMemoryIndexStore(), newStubEmbedder(2), zap.NewNop())

	_, err := retriever.Retrieve(context.Background(), "missing", "query", 4)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeIndexNotFound))
}

func TestRetriever_EmptyIndex(t *testing.T) {
	store := newMemoryIndexStore()
	saveIndex(t, store, "empty", nil)

	retriever := NewRetriever(store, newStubEmbedder(2), zap.NewNop())

	_, err := retriever.Retrieve(context.Background(), "empty", "query", 4)
	assert.ErrorIs(t, err, ErrEmptyIndex)
}

func TestRetriever_ReturnsMostSimilarChunks(t *testing.T) {
	store := newMemoryIndexStore()
	saveIndex(t, store, "faq", []IndexEntry{
		{Chunk: "pricing details", Vector: []float32{1, 0}},
		{Chunk: "support hours", Vector: []float32{0, 1}},
		{Chunk: "pricing tiers", Vector: []float32{0.9, 0.1}},
	})

	embedder := newStubEmbedder(2)
	embedder.register("how much does it cost", []float32{1, 0})

	retriever := NewRetriever(store, embedder, zap.NewNop())

	results, err := retriever.Retrieve(context.Background(), "faq", "how much does it cost", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pricing details", results[0].Chunk)
	assert.Equal(t, "pricing tiers", results[1].Chunk)
}

func TestRetriever_CorruptedIndex(t *testing.T) {
	store := newMemoryIndexStore()
	require.NoError(t, store.Save(context.Background(), &SerializedIndex{
		Name: "broken",
		Data: []byte("garbage"),
	}))

	retriever := NewRetriever(store, newStubEmbedder(2), zap.NewNop())

	_, err := retriever.Retrieve(context.Background(), "broken", "query", 4)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeIndexCorrupted))
}
