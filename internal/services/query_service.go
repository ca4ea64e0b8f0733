package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crmhub/docquery-go/internal/config"
	apperrors "github.com/crmhub/docquery-go/internal/errors"
	"github.com/crmhub/docquery-go/internal/logger"
	"github.com/crmhub/docquery-go/internal/rag"
)

// 查询结果类型
const (
	OutcomeAnswered           = "answered"
	OutcomeNoRelevantAnswers  = "no_relevant_answers"
	NoRelevantAnswersFallback = "No relevant answers found."
)

// QueryRequest 检索增强查询请求
type QueryRequest struct {
	TenantID  string
	Phone     string
	IndexName string
	Query     string
	TopK      int
}

// QueryOutcome 查询结果
// 空索引不是错误：Kind为no_relevant_answers，Answer为固定兜底文案
type QueryOutcome struct {
	Kind       string   `json:"kind"`
	Answer     string   `json:"answer"`
	ChunksUsed int      `json:"chunks_used"`
	Sources    []string `json:"sources,omitempty"`
}

// QueryService 检索增强查询服务
// 编排画像查询、向量检索和回答生成
type QueryService struct {
	retriever *rag.Retriever
	composer  *rag.AnswerComposer
	profiles  *ProfileService
	ingestion *IngestionService
	metrics   *MetricsService
}

// NewQueryService 创建查询服务
func NewQueryService(
	retriever *rag.Retriever,
	composer *rag.AnswerComposer,
	profiles *ProfileService,
	ingestion *IngestionService,
	metrics *MetricsService,
) *QueryService {
	return &QueryService{
		retriever: retriever,
		composer:  composer,
		profiles:  profiles,
		ingestion: ingestion,
		metrics:   metrics,
	}
}

// Query 执行一次检索增强查询
// 索引不存在返回INDEX_NOT_FOUND，索引为空返回兜底结果而不是错误
func (s *QueryService) Query(ctx context.Context, req *QueryRequest) (*QueryOutcome, error) {
	start := time.Now()

	outcome, err := s.query(ctx, req)
	if err != nil {
		s.metrics.RecordQuery("error", time.Since(start))
		s.ingestion.audit("query", req.IndexName, req.TenantID, "error", err.Error())
		return nil, err
	}

	s.metrics.RecordQuery(outcome.Kind, time.Since(start))
	s.ingestion.audit("query", req.IndexName, req.TenantID, outcome.Kind, "")
	return outcome, nil
}

func (s *QueryService) query(ctx context.Context, req *QueryRequest) (*QueryOutcome, error) {
	if strings.TrimSpace(req.IndexName) == "" {
		return nil, apperrors.NewValidationError("index name is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 4
		if cfg := config.GetAppConfig(); cfg != nil && cfg.Rag.TopK > 0 {
			topK = cfg.Rag.TopK
		}
	}

	profileJSON, err := s.profiles.LookupJSON(ctx, req.TenantID, req.Phone)
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.Retrieve(ctx, req.IndexName, req.Query, topK)
	if err != nil {
		if errors.Is(err, rag.ErrEmptyIndex) {
			logger.Info("Query against empty index",
				zap.String("index", req.IndexName),
				zap.String("tenant_id", req.TenantID))
			return &QueryOutcome{
				Kind:   OutcomeNoRelevantAnswers,
				Answer: NoRelevantAnswersFallback,
			}, nil
		}
		return nil, err
	}
	if len(results) == 0 {
		return &QueryOutcome{
			Kind:   OutcomeNoRelevantAnswers,
			Answer: NoRelevantAnswersFallback,
		}, nil
	}

	chunks := make([]string, len(results))
	for i, r := range results {
		chunks[i] = r.Chunk
	}

	answer, err := s.composer.Compose(ctx, chunks, req.Query, profileJSON)
	if err != nil {
		return nil, err
	}

	logger.Info("Query answered",
		zap.String("index", req.IndexName),
		zap.String("tenant_id", req.TenantID),
		zap.Int("chunks_used", len(chunks)))

	return &QueryOutcome{
		Kind:       OutcomeAnswered,
		Answer:     answer,
		ChunksUsed: len(chunks),
		Sources:    chunks,
	}, nil
}
