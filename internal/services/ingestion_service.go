package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crmhub/docquery-go/internal/cache"
	"github.com/crmhub/docquery-go/internal/config"
	apperrors "github.com/crmhub/docquery-go/internal/errors"
	"github.com/crmhub/docquery-go/internal/events"
	"github.com/crmhub/docquery-go/internal/logger"
	"github.com/crmhub/docquery-go/internal/rag"
	"github.com/crmhub/docquery-go/internal/storage"
)

// 索引处理状态
const (
	IndexStatusProcessing = "processing"
	IndexStatusCompleted  = "completed"
	IndexStatusFailed     = "failed"
)

// IngestRequest 文档摄入请求
type IngestRequest struct {
	IndexName string
	Filename  string
	Filetype  string
	Reader    io.Reader
	Raw       []byte
}

// IngestResult 文档摄入结果
type IngestResult struct {
	IndexName    string `json:"index_name"`
	Created      bool   `json:"created"`
	Chunks       int    `json:"chunks"`
	TotalEntries int    `json:"total_entries"`
	Dimensions   int    `json:"dimensions"`
}

// IndexStatus 索引当前状态快照
type IndexStatus struct {
	IndexName  string `json:"index_name"`
	Status     string `json:"status"`
	EntryCount int    `json:"entry_count"`
	Dimensions int    `json:"dimensions"`
	Exists     bool   `json:"exists"`
}

// IngestionService 文档摄入服务
// 对同一索引名的摄入在load-add-save全程持有该名称的互斥锁，
// 防止并发摄入时相互覆盖丢失entry。不同名称互不阻塞
type IngestionService struct {
	parser   *rag.ParserManager
	chunker  *rag.Chunker
	embedder rag.Embedder
	store    rag.IndexStore
	cache    *cache.RedisService
	archive  *storage.ObjectStorage
	producer *events.Producer
	metrics  *MetricsService

	indexLocks sync.Map // name -> *sync.Mutex
}

// NewIngestionService 创建文档摄入服务
func NewIngestionService(
	parser *rag.ParserManager,
	chunker *rag.Chunker,
	embedder rag.Embedder,
	store rag.IndexStore,
	cacheService *cache.RedisService,
	archive *storage.ObjectStorage,
	producer *events.Producer,
	metrics *MetricsService,
) *IngestionService {
	return &IngestionService{
		parser:   parser,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		cache:    cacheService,
		archive:  archive,
		producer: producer,
		metrics:  metrics,
	}
}

func (s *IngestionService) lockFor(name string) *sync.Mutex {
	mu, _ := s.indexLocks.LoadOrStore(name, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func indexStatusKey(name string) string {
	return fmt.Sprintf("rag:index:status:%s", name)
}

// Ingest 将一个文档摄入命名索引
// 索引不存在时创建，已存在时追加entry并整体重写快照
func (s *IngestionService) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	start := time.Now()

	result, err := s.ingest(ctx, req)
	if err != nil {
		s.metrics.RecordIngest("error", time.Since(start))
		s.setStatus(ctx, req.IndexName, IndexStatusFailed)
		s.audit("ingest", req.IndexName, "", "error", err.Error())
		return nil, err
	}

	s.metrics.RecordIngest("success", time.Since(start))
	s.metrics.SetIndexEntries(result.IndexName, result.TotalEntries)
	s.setStatus(ctx, req.IndexName, IndexStatusCompleted)
	s.audit("ingest", req.IndexName, "", "success",
		fmt.Sprintf("chunks=%d total=%d", result.Chunks, result.TotalEntries))
	return result, nil
}

func (s *IngestionService) ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if strings.TrimSpace(req.IndexName) == "" {
		return nil, apperrors.NewValidationError("index name is required")
	}

	s.setStatus(ctx, req.IndexName, IndexStatusProcessing)

	text, err := s.parser.Parse(req.Reader, req.Filetype)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewUnreadableDocumentError(req.Filetype, nil).
			WithDetails("document contains no extractable text")
	}

	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, apperrors.NewUnreadableDocumentError(req.Filetype, nil).
			WithDetails("document produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := make([]rag.IndexEntry, len(chunks))
	for i := range chunks {
		entries[i] = rag.IndexEntry{Chunk: chunks[i].Text, Vector: vectors[i]}
	}

	// 同名索引的读改写必须串行，避免并发摄入互相覆盖
	mu := s.lockFor(req.IndexName)
	mu.Lock()
	defer mu.Unlock()

	serialized, found, err := s.store.Load(ctx, req.IndexName)
	if err != nil {
		return nil, err
	}

	var index *rag.VectorIndex
	if found {
		index, err = rag.DeserializeIndex(serialized.Data)
		if err != nil {
			return nil, err
		}
	} else {
		index = rag.NewIndex(rag.MetricCosine)
	}

	if err := index.Add(entries); err != nil {
		return nil, err
	}

	data, err := index.Serialize()
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, &rag.SerializedIndex{
		Name:       req.IndexName,
		Data:       data,
		EntryCount: index.Len(),
		Dimensions: index.Dimensions(),
	}); err != nil {
		return nil, err
	}

	s.archiveRaw(ctx, req)

	logger.Info("Document ingested",
		zap.String("index", req.IndexName),
		zap.String("filename", req.Filename),
		zap.Int("chunks", len(chunks)),
		zap.Int("total_entries", index.Len()))

	return &IngestResult{
		IndexName:    req.IndexName,
		Created:      !found,
		Chunks:       len(chunks),
		TotalEntries: index.Len(),
		Dimensions:   index.Dimensions(),
	}, nil
}

// archiveRaw 原始文档归档到对象存储，失败仅记录日志不影响摄入
func (s *IngestionService) archiveRaw(ctx context.Context, req *IngestRequest) {
	cfg := config.GetAppConfig()
	if s.archive == nil || cfg == nil || !cfg.FileUpload.ArchiveRaw || len(req.Raw) == 0 {
		return
	}

	objectName := fmt.Sprintf("%s/%d_%s", req.IndexName, time.Now().UnixNano(), req.Filename)
	if _, err := s.archive.UploadRaw(ctx, objectName, req.Raw, "application/octet-stream"); err != nil {
		logger.Warn("Failed to archive raw document",
			zap.String("index", req.IndexName),
			zap.String("filename", req.Filename),
			zap.Error(err))
	}
}

// Status 返回命名索引的处理状态和规模
func (s *IngestionService) Status(ctx context.Context, name string) (*IndexStatus, error) {
	status := &IndexStatus{IndexName: name, Status: "unknown"}

	if s.cache != nil {
		var cached string
		if found, err := s.cache.GetCache(ctx, indexStatusKey(name), &cached); err == nil && found {
			status.Status = cached
		}
	}

	serialized, found, err := s.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if found {
		status.Exists = true
		status.EntryCount = serialized.EntryCount
		status.Dimensions = serialized.Dimensions
		if status.Status == "unknown" {
			status.Status = IndexStatusCompleted
		}
	}

	return status, nil
}

func (s *IngestionService) setStatus(ctx context.Context, name, value string) {
	if s.cache == nil {
		return
	}
	cfg := config.GetAppConfig()
	ttl := 24 * time.Hour
	if cfg != nil && cfg.Redis.TTL > 0 {
		ttl = time.Duration(cfg.Redis.TTL) * time.Second
	}
	if err := s.cache.SetCache(ctx, indexStatusKey(name), value, ttl); err != nil {
		logger.Warn("Failed to cache index status",
			zap.String("index", name),
			zap.Error(err))
	}
}

func (s *IngestionService) audit(operation, indexName, tenantID, outcome, detail string) {
	if s.producer == nil {
		return
	}
	if err := s.producer.SendAuditEvent(&events.AuditEvent{
		Operation: operation,
		IndexName: indexName,
		TenantID:  tenantID,
		Outcome:   outcome,
		Detail:    detail,
		Timestamp: time.Now(),
	}); err != nil {
		logger.Warn("Failed to send audit event", zap.Error(err))
	}
}
