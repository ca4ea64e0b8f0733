package rag

import (
	"bytes"
	"encoding/gob"
	"math"
	"sort"

	apperrors "github.com/crmhub/docquery-go/internal/errors"
)

// Metric 向量比较度量
type Metric string

const (
	// MetricCosine 余弦相似度，全仓库统一约定：相似度降序为"更相关"
	MetricCosine Metric = "cosine"
)

// IndexEntry (chunk, embedding)对，向量索引的存储单元
type IndexEntry struct {
	Chunk  string
	Vector []float32
}

// SearchResult 检索结果，Score为余弦相似度
type SearchResult struct {
	Chunk string
	Score float32
}

// VectorIndex 内存向量索引，暴力线性扫描
// 所有entry的向量维度一致，首次Add确定维度
type VectorIndex struct {
	metric     Metric
	dimensions int
	entries    []IndexEntry
}

// NewIndex 创建空索引
func NewIndex(metric Metric) *VectorIndex {
	if metric == "" {
		metric = MetricCosine
	}
	return &VectorIndex{metric: metric}
}

// Len 返回entry数量
func (x *VectorIndex) Len() int {
	return len(x.entries)
}

// Dimensions 返回已确定的向量维度，空索引为0
func (x *VectorIndex) Dimensions() int {
	return x.dimensions
}

// Metric 返回比较度量
func (x *VectorIndex) Metric() Metric {
	return x.metric
}

// Entries 返回entry快照
func (x *VectorIndex) Entries() []IndexEntry {
	out := make([]IndexEntry, len(x.entries))
	copy(out, x.entries)
	return out
}

// Add 追加entry，全量校验通过后才提交，失败时索引保持不变
// 任一entry维度与索引已确定维度不一致时返回DIMENSION_MISMATCH
func (x *VectorIndex) Add(entries []IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	dims := x.dimensions
	for _, entry := range entries {
		if len(entry.Vector) == 0 {
			return apperrors.NewDimensionMismatchError(dims, 0)
		}
		if dims == 0 {
			dims = len(entry.Vector)
			continue
		}
		if len(entry.Vector) != dims {
			return apperrors.NewDimensionMismatchError(dims, len(entry.Vector))
		}
	}

	x.dimensions = dims
	x.entries = append(x.entries, entries...)
	return nil
}

// Search 返回与query最相似的至多k个entry，相似度降序
// 相似度相同的按插入顺序返回。空索引返回空结果而不是错误
func (x *VectorIndex) Search(query []float32, k int) ([]SearchResult, error) {
	if len(x.entries) == 0 {
		return nil, nil
	}
	if len(query) != x.dimensions {
		return nil, apperrors.NewDimensionMismatchError(x.dimensions, len(query))
	}
	if k <= 0 {
		return nil, nil
	}

	results := make([]SearchResult, 0, len(x.entries))
	for _, entry := range x.entries {
		results = append(results, SearchResult{
			Chunk: entry.Chunk,
			Score: CosineSimilarity(query, entry.Vector),
		})
	}

	// 稳定排序保证同分结果维持插入顺序
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// indexSnapshot gob序列化用的索引快照
type indexSnapshot struct {
	Metric     Metric
	Dimensions int
	Entries    []IndexEntry
}

// Serialize 序列化为二进制快照，与DeserializeIndex构成无损往返
func (x *VectorIndex) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	snapshot := indexSnapshot{
		Metric:     x.metric,
		Dimensions: x.dimensions,
		Entries:    x.entries,
	}
	if err := gob.NewEncoder(&buf).Encode(snapshot); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeIndexCorrupted, "failed to serialize index").WithCause(err)
	}
	return buf.Bytes(), nil
}

// DeserializeIndex 从二进制快照还原索引，保持entry顺序与度量
func DeserializeIndex(data []byte) (*VectorIndex, error) {
	var snapshot indexSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snapshot); err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeIndexCorrupted, "failed to deserialize index").WithCause(err)
	}
	return &VectorIndex{
		metric:     snapshot.Metric,
		dimensions: snapshot.Dimensions,
		entries:    snapshot.Entries,
	}, nil
}

// CosineSimilarity 计算余弦相似度，取值[-1, 1]
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float32
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
