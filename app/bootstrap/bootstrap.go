package bootstrap

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/crmhub/docquery-go/internal/config"
	"github.com/crmhub/docquery-go/internal/database"
	"github.com/crmhub/docquery-go/internal/di"
	"github.com/crmhub/docquery-go/internal/events"
	"github.com/crmhub/docquery-go/internal/logger"
	"github.com/crmhub/docquery-go/internal/storage"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

// Init bootstraps configuration, logger, database connections and other shared
// infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}

	app := &App{}
	cfg := config.GetAppConfig()

	// Initialize database.
	if _, err := database.InitDB(); err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return database.CloseDB()
	})

	// Initialize Redis (optional). Failure shouldn't block the app.
	if _, err := database.InitRedis(); err != nil {
		logger.Warn("Failed to initialize Redis", zap.Error(err))
	} else {
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			return database.CloseRedis()
		})
	}

	// Initialize object storage when the index store or raw archive needs it.
	var archive *storage.ObjectStorage
	if cfg.Rag.IndexStore.Provider == "minio" || cfg.FileUpload.ArchiveRaw {
		var err error
		archive, err = storage.NewObjectStorage(cfg.Rag.IndexStore.Storage)
		if err != nil {
			if cfg.Rag.IndexStore.Provider == "minio" {
				// 索引存储依赖MinIO时初始化失败是致命错误
				return nil, err
			}
			logger.Warn("Failed to initialize object storage, raw archiving disabled", zap.Error(err))
			archive = nil
		}
	}

	// Initialize Kafka producer (optional). Failure shouldn't block the app.
	var producer *events.Producer
	if cfg.Events.Enabled {
		var err error
		producer, err = events.NewProducer(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			logger.Warn("Failed to initialize Kafka producer", zap.Error(err))
			producer = nil
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				return producer.Close()
			})
		}
	}

	// Wire the dependency injection container.
	container := di.InitContainer()
	if err := di.RegisterProviders(container, archive, producer); err != nil {
		return nil, err
	}

	logger.Info("Application bootstrapped",
		zap.String("env", cfg.Server.Env),
		zap.String("index_store", cfg.Rag.IndexStore.Provider),
		zap.Bool("events_enabled", producer != nil))

	return app, nil
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
