package rag

import (
	"context"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

// Embedder 定义文本向量化接口
// 同一个索引生命周期内必须使用同一个模型，否则维度不一致
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
}

var embeddingDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder 使用OpenAI Embedding API
// 客户端由外部注入，进程启动时构造一次，跨请求复用
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIEmbedder 创建OpenAI嵌入向量生成器
func NewOpenAIEmbedder(client *openai.Client, model string) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}

	dims, ok := embeddingDimensions[model]
	if !ok {
		dims = 1536
	}

	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: dims,
	}
}

// Embed 将单条文本转为向量
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch 批量向量化，结果与输入顺序一致
// 提供商错误不在此处重试，直接包装为EMBEDDING_PROVIDER_ERROR向上传递
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, apperrors.NewValidationError("cannot embed empty text")
		}
	}
	if e.client == nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingProvider, "openai client not initialized")
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingProvider, "embedding request failed").WithCause(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingProvider, "embedding response incomplete")
	}

	// 按Index还原输入顺序
	data := make([]openai.Embedding, len(resp.Data))
	copy(data, resp.Data)
	sort.Slice(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})

	vectors := make([][]float32, len(data))
	for i, item := range data {
		if len(item.Embedding) != e.dimensions {
			return nil, apperrors.NewExternalError(apperrors.ErrCodeEmbeddingProvider, "embedding response has unexpected dimensions")
		}
		vector := make([]float32, len(item.Embedding))
		copy(vector, item.Embedding)
		vectors[i] = vector
	}
	return vectors, nil
}

// Dimensions 返回向量维度
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Model 返回固定的模型标识
func (e *OpenAIEmbedder) Model() string {
	return e.model
}
