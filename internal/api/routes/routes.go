// internal/api/routes/routes.go
// Gin 路由註冊

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mail-dispatch/internal/api/handlers"
	"mail-dispatch/internal/api/middlewares"
	"mail-dispatch/internal/config"
	"mail-dispatch/internal/metrics"
	"mail-dispatch/internal/services"
	"mail-dispatch/internal/templates"
	"mail-dispatch/internal/worker"
)

// Dependencies 路由依賴
type Dependencies struct {
	Config       *config.Config
	Dispatcher   *worker.Dispatcher
	KeyDBService *services.KeyDBService // 未啟用時為 nil
	Metrics      *metrics.Metrics
}

// RegisterRoutes 註冊所有路由
func RegisterRoutes(router *gin.Engine, deps *Dependencies) {
	// 避免 nil 指標被包成非 nil interface
	var (
		pinger handlers.Pinger
		store  handlers.IdempotencyStore
	)
	if deps.KeyDBService != nil {
		pinger = deps.KeyDBService
		store = deps.KeyDBService
	}

	// 初始化 Handlers
	healthHandler := handlers.NewHealthHandler(deps.Config, pinger, deps.Dispatcher)
	mailHandler := handlers.NewMailHandler(deps.Config, deps.Dispatcher, store, deps.Metrics)

	// 公開路由
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))

	// 通知寄送 (設定 JWT_SECRET 時需認證)
	send := router.Group("/send")
	if deps.Config.AuthEnabled() {
		send.Use(middlewares.JWTAuth(deps.Config))
		send.Use(middlewares.RequirePermission("send"))
	}
	for _, id := range templates.IDs() {
		send.POST("/"+string(id), mailHandler.Send(id))
	}
}
