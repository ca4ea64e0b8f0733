package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
	"github.com/crmhub/docquery-go/internal/rag"
)

// fakeIndexStore 内存索引存储，仅测试用
type fakeIndexStore struct {
	mu   sync.Mutex
	data map[string]*rag.SerializedIndex
}

func newFakeIndexStore() *fakeIndexStore {
	return &fakeIndexStore{data: make(map[string]*rag.SerializedIndex)}
}

func (s *fakeIndexStore) Load(ctx context.Context, name string) (*rag.SerializedIndex, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.data[name]
	if !ok {
		return nil, false, nil
	}
	return index, true, nil
}

func (s *fakeIndexStore) Save(ctx context.Context, index *rag.SerializedIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[index.Name] = index
	return nil
}

// fakeEmbedder 确定性嵌入器，仅测试用
type fakeEmbedder struct {
	dims int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dims)
	for i, r := range text {
		v[i%e.dims] += float32(r % 13)
	}
	v[0] += 1
	return v, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *fakeEmbedder) Dimensions() int { return e.dims }
func (e *fakeEmbedder) Model() string   { return "fake" }

func newTestIngestionService(store rag.IndexStore) *IngestionService {
	return NewIngestionService(
		rag.NewParserManager(),
		rag.NewChunker(40, 8),
		&fakeEmbedder{dims: 8},
		store,
		nil, // redis
		nil, // archive
		nil, // producer
		NewMetricsService(),
	)
}

func TestIngestionService_CreatesNewIndex(t *testing.T) {
	store := newFakeIndexStore()
	service := newTestIngestionService(store)

	text := strings.Repeat("Customer contract details and renewal terms. ", 5)
	result, err := service.Ingest(context.Background(), &IngestRequest{
		IndexName: "contracts",
		Filename:  "contract.txt",
		Filetype:  "txt",
		Reader:    strings.NewReader(text),
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Greater(t, result.Chunks, 1)
	assert.Equal(t, result.Chunks, result.TotalEntries)
	assert.Equal(t, 8, result.Dimensions)

	// 持久化快照可以完整还原
	saved, found, err := store.Load(context.Background(), "contracts")
	require.NoError(t, err)
	require.True(t, found)
	index, err := rag.DeserializeIndex(saved.Data)
	require.NoError(t, err)
	assert.Equal(t, result.TotalEntries, index.Len())
}

func TestIngestionService_AppendsToExistingIndex(t *testing.T) {
	store := newFakeIndexStore()
	service := newTestIngestionService(store)

	first, err := service.Ingest(context.Background(), &IngestRequest{
		IndexName: "kb",
		Filename:  "a.txt",
		Filetype:  "txt",
		Reader:    strings.NewReader(strings.Repeat("First document sentences here. ", 4)),
	})
	require.NoError(t, err)

	second, err := service.Ingest(context.Background(), &IngestRequest{
		IndexName: "kb",
		Filename:  "b.txt",
		Filetype:  "txt",
		Reader:    strings.NewReader(strings.Repeat("Second document other sentences. ", 4)),
	})
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.TotalEntries+second.Chunks, second.TotalEntries)
}

func TestIngestionService_ConcurrentIngestSameIndex(t *testing.T) {
	store := newFakeIndexStore()
	service := newTestIngestionService(store)

	texts := []string{
		strings.Repeat("Alpha document content sentences. ", 4),
		strings.Repeat("Beta document content sentences!! ", 4),
		strings.Repeat("Gamma document content sentences? ", 4),
		strings.Repeat("Delta document content sentences.. ", 4),
	}

	var wg sync.WaitGroup
	chunkCounts := make([]int, len(texts))
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			result, err := service.Ingest(context.Background(), &IngestRequest{
				IndexName: "shared",
				Filename:  "doc.txt",
				Filetype:  "txt",
				Reader:    strings.NewReader(text),
			})
			assert.NoError(t, err)
			if result != nil {
				chunkCounts[i] = result.Chunks
			}
		}(i, text)
	}
	wg.Wait()

	// 并发摄入不丢失entry：最终数量为所有批次之和
	var want int
	for _, n := range chunkCounts {
		want += n
	}
	saved, found, err := store.Load(context.Background(), "shared")
	require.NoError(t, err)
	require.True(t, found)
	index, err := rag.DeserializeIndex(saved.Data)
	require.NoError(t, err)
	assert.Equal(t, want, index.Len())
}

func TestIngestionService_UnreadableDocument(t *testing.T) {
	service := newTestIngestionService(newFakeIndexStore())

	_, err := service.Ingest(context.Background(), &IngestRequest{
		IndexName: "contracts",
		Filename:  "broken.pdf",
		Filetype:  "pdf",
		Reader:    strings.NewReader("not actually a pdf"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnreadableDocument))
}

func TestIngestionService_EmptyIndexName(t *testing.T) {
	service := newTestIngestionService(newFakeIndexStore())

	_, err := service.Ingest(context.Background(), &IngestRequest{
		IndexName: "  ",
		Filetype:  "txt",
		Reader:    strings.NewReader("content"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed))
}

func TestIngestionService_WhitespaceOnlyDocument(t *testing.T) {
	service := newTestIngestionService(newFakeIndexStore())

	_, err := service.Ingest(context.Background(), &IngestRequest{
		IndexName: "contracts",
		Filetype:  "txt",
		Reader:    strings.NewReader("   \n\t  "),
	})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnreadableDocument))
}

func TestIngestionService_StatusForExistingIndex(t *testing.T) {
	store := newFakeIndexStore()
	service := newTestIngestionService(store)

	_, err := service.Ingest(context.Background(), &IngestRequest{
		IndexName: "contracts",
		Filetype:  "txt",
		Reader:    strings.NewReader(strings.Repeat("Some contract text here. ", 4)),
	})
	require.NoError(t, err)

	status, err := service.Status(context.Background(), "contracts")
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, IndexStatusCompleted, status.Status)
	assert.Greater(t, status.EntryCount, 0)
	assert.Equal(t, 8, status.Dimensions)
}

func TestIngestionService_StatusForMissingIndex(t *testing.T) {
	service := newTestIngestionService(newFakeIndexStore())

	status, err := service.Status(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, status.Exists)
	assert.Equal(t, "unknown", status.Status)
}
