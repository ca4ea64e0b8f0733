package di

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/dig"
	"gorm.io/gorm"

	"github.com/crmhub/docquery-go/internal/cache"
	"github.com/crmhub/docquery-go/internal/config"
	"github.com/crmhub/docquery-go/internal/database"
	"github.com/crmhub/docquery-go/internal/events"
	"github.com/crmhub/docquery-go/internal/logger"
	"github.com/crmhub/docquery-go/internal/rag"
	"github.com/crmhub/docquery-go/internal/services"
	"github.com/crmhub/docquery-go/internal/storage"
)

// RegisterProviders 注册所有依赖提供者
// 必须在config、数据库和可选中间件初始化之后调用
func RegisterProviders(container *dig.Container, archive *storage.ObjectStorage, producer *events.Producer) error {
	// 注册配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 注册数据库
	if err := container.Provide(func() (*gorm.DB, error) {
		if database.DB == nil {
			return nil, fmt.Errorf("database not initialized")
		}
		return database.DB, nil
	}); err != nil {
		return err
	}

	// 注册Redis客户端（可选，未初始化时为nil）
	if err := container.Provide(func() *redis.Client {
		return database.RedisClient
	}); err != nil {
		return err
	}

	if err := container.Provide(cache.NewRedisService); err != nil {
		return err
	}

	// 注册OpenAI客户端，进程内构造一次，跨请求复用
	if err := container.Provide(func(cfg *config.Config) *openai.Client {
		clientConfig := openai.DefaultConfig(cfg.AI.OpenAIAPIKey)
		if cfg.AI.TimeoutSeconds > 0 {
			clientConfig.HTTPClient = &http.Client{
				Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			}
		}
		return openai.NewClientWithConfig(clientConfig)
	}); err != nil {
		return err
	}

	// 注册RAG组件
	if err := container.Provide(rag.NewParserManager); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config) *rag.Chunker {
		return rag.NewChunker(cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(client *openai.Client, cfg *config.Config) rag.Embedder {
		return rag.NewOpenAIEmbedder(client, cfg.AI.EmbeddingModel)
	}); err != nil {
		return err
	}

	if err := container.Provide(func(client *openai.Client, cfg *config.Config) *rag.AnswerComposer {
		return rag.NewAnswerComposer(client, cfg.AI.CompletionModel,
			float32(cfg.AI.Temperature), cfg.AI.MaxTokens)
	}); err != nil {
		return err
	}

	// 索引存储按配置选择数据库或对象存储实现
	if err := container.Provide(func(cfg *config.Config, db *gorm.DB) (rag.IndexStore, error) {
		switch cfg.Rag.IndexStore.Provider {
		case "minio":
			if archive == nil {
				return nil, fmt.Errorf("index store provider is minio but object storage is not initialized")
			}
			return rag.NewObjectIndexStore(archive.Client(), archive.Bucket(),
				cfg.Rag.IndexStore.Storage.BasePath), nil
		default:
			return rag.NewDatabaseIndexStore(db), nil
		}
	}); err != nil {
		return err
	}

	if err := container.Provide(func(store rag.IndexStore, embedder rag.Embedder) *rag.Retriever {
		return rag.NewRetriever(store, embedder, logger.GetLogger())
	}); err != nil {
		return err
	}

	// 注册对象存储与事件生产者（可选，未启用时为nil）
	if err := container.Provide(func() *storage.ObjectStorage {
		return archive
	}); err != nil {
		return err
	}

	if err := container.Provide(func() *events.Producer {
		return producer
	}); err != nil {
		return err
	}

	// 注册服务
	if err := container.Provide(services.NewMetricsService); err != nil {
		return err
	}

	if err := container.Provide(services.NewIngestionService); err != nil {
		return err
	}

	if err := container.Provide(services.NewProfileService); err != nil {
		return err
	}

	if err := container.Provide(services.NewQueryService); err != nil {
		return err
	}

	return nil
}
