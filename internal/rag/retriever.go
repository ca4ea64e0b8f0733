package rag

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

// ErrEmptyIndex 索引存在但没有任何entry
// 不是硬错误：调用方应将其转为"没有相关答案"的正常结果
var ErrEmptyIndex = errors.New("index has no entries")

// Retriever 只读检索器：加载命名索引，向量化查询，返回最相似的chunk
type Retriever struct {
	store    IndexStore
	embedder Embedder
	logger   *zap.Logger
}

// NewRetriever 创建检索器
func NewRetriever(store IndexStore, embedder Embedder, logger *zap.Logger) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve 对命名索引执行top-k相似检索
// 索引不存在返回INDEX_NOT_FOUND，索引为空返回ErrEmptyIndex
func (r *Retriever) Retrieve(ctx context.Context, name, query string, k int) ([]SearchResult, error) {
	serialized, found, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewIndexNotFoundError(name)
	}

	index, err := DeserializeIndex(serialized.Data)
	if err != nil {
		return nil, err
	}
	if index.Len() == 0 {
		return nil, ErrEmptyIndex
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := index.Search(vector, k)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Retrieved similar chunks",
		zap.String("index", name),
		zap.Int("requested", k),
		zap.Int("returned", len(results)))

	return results, nil
}
