package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/crmhub/docquery-go/internal/config"
	"github.com/crmhub/docquery-go/internal/di"
	"github.com/crmhub/docquery-go/internal/logger"
	"github.com/crmhub/docquery-go/internal/services"
)

var validate = validator.New()

// RagController 文档索引与查询控制器
type RagController struct {
	BaseController
	ingestion *services.IngestionService
	queries   *services.QueryService
}

// Prepare 从DI容器解析服务依赖
func (c *RagController) Prepare() {
	if c.ingestion != nil && c.queries != nil {
		return
	}
	err := di.Invoke(func(ingestion *services.IngestionService, queries *services.QueryService) {
		c.ingestion = ingestion
		c.queries = queries
	})
	if err != nil {
		logger.Error("Failed to resolve rag services", zap.Error(err))
	}
}

// queryRequest 查询请求体
type queryRequest struct {
	IndexName string `json:"index_name" validate:"required,max=200"`
	Query     string `json:"query" validate:"required"`
	Phone     string `json:"phone" validate:"required,max=32"`
	TopK      int    `json:"top_k" validate:"omitempty,min=1,max=50"`
}

// Ingest 上传并摄入文档
// POST /api/rag/indexes/:name/ingest
func (c *RagController) Ingest() {
	if c.ingestion == nil {
		c.JSONError(http.StatusInternalServerError, "ingestion service not available")
		return
	}

	indexName := strings.TrimSpace(c.Ctx.Input.Param(":name"))
	if indexName == "" {
		c.JSONError(http.StatusBadRequest, "index name is required")
		return
	}

	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	cfg := config.GetAppConfig()
	if cfg != nil && cfg.FileUpload.MaxSize > 0 && header.Size > cfg.FileUpload.MaxSize {
		c.JSONError(http.StatusRequestEntityTooLarge, "file exceeds maximum allowed size")
		return
	}

	filetype := strings.TrimSpace(c.GetString("filetype"))
	if filetype == "" {
		filetype = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	}
	filetype = strings.ToLower(filetype)

	if cfg != nil && len(cfg.FileUpload.AllowedTypes) > 0 && !containsType(cfg.FileUpload.AllowedTypes, filetype) {
		c.JSONError(http.StatusBadRequest, "unsupported file type: "+filetype)
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	result, err := c.ingestion.Ingest(c.Ctx.Request.Context(), &services.IngestRequest{
		IndexName: indexName,
		Filename:  header.Filename,
		Filetype:  filetype,
		Reader:    bytes.NewReader(raw),
		Raw:       raw,
	})
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(result)
}

// Query 检索增强查询
// POST /api/rag/query
func (c *RagController) Query() {
	if c.queries == nil {
		c.JSONError(http.StatusInternalServerError, "query service not available")
		return
	}

	tenantID, ok := c.getTenantID()
	if !ok {
		return
	}

	var req queryRequest
	if err := json.Unmarshal(c.Ctx.Input.RequestBody, &req); err != nil {
		c.JSONError(http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		c.JSONError(http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := c.queries.Query(c.Ctx.Request.Context(), &services.QueryRequest{
		TenantID:  tenantID,
		Phone:     req.Phone,
		IndexName: req.IndexName,
		Query:     req.Query,
		TopK:      req.TopK,
	})
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(outcome)
}

// Status 查询索引状态
// GET /api/rag/indexes/:name/status
func (c *RagController) Status() {
	if c.ingestion == nil {
		c.JSONError(http.StatusInternalServerError, "ingestion service not available")
		return
	}

	indexName := strings.TrimSpace(c.Ctx.Input.Param(":name"))
	if indexName == "" {
		c.JSONError(http.StatusBadRequest, "index name is required")
		return
	}

	status, err := c.ingestion.Status(c.Ctx.Request.Context(), indexName)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(status)
}

func containsType(allowed []string, filetype string) bool {
	for _, t := range allowed {
		if strings.EqualFold(t, filetype) {
			return true
		}
	}
	return false
}
