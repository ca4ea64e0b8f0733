package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/crmhub/docquery-go/app/controllers"
	"github.com/crmhub/docquery-go/app/middleware"
	"github.com/crmhub/docquery-go/internal/config"
)

// Init registers all routes. Must be called after config is loaded.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	// 文档索引与查询路由
	// 注意：具体路由必须在参数路由之前注册
	ragController := &controllers.RagController{}
	web.Router("/api/rag/query", ragController, "post:Query")
	web.Router("/api/rag/indexes/:name/ingest", ragController, "post:Ingest")
	web.Router("/api/rag/indexes/:name/status", ragController, "get:Status")

	if cfg := config.GetAppConfig(); cfg != nil && cfg.Prometheus.Enabled {
		web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")
	}
}
