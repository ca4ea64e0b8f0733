package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/crmhub/docquery-go/app/bootstrap"
	"github.com/crmhub/docquery-go/app/router"
	"github.com/crmhub/docquery-go/internal/config"
	"github.com/crmhub/docquery-go/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()
	bootstrap.SetGlobalApp(app)

	router.Init()

	// 配置Beego全局设置
	web.BConfig.AppName = "Document Query Service"
	web.BConfig.CopyRequestBody = true

	if port, err := strconv.Atoi(config.GetAppConfig().Server.Port); err == nil {
		web.BConfig.Listen.HTTPPort = port
	}

	logger.Info("🚀 Starting Document Query Service",
		zap.Int("port", web.BConfig.Listen.HTTPPort))
	web.Run()
}
