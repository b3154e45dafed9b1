// internal/api/handlers/health_handler.go
// 健康檢查 Handler

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mail-dispatch/internal/config"
)

// Pinger 可檢查連線的外部服務
type Pinger interface {
	Ping(ctx context.Context) bool
}

// DispatchStats dispatcher 狀態
type DispatchStats interface {
	QueueDepth() int
	ActiveJobs() int
}

// HealthHandler 健康檢查 Handler
type HealthHandler struct {
	cfg        *config.Config
	keydb      Pinger
	dispatcher DispatchStats
}

// NewHealthHandler 建立 Health Handler
// keydb 為 nil 表示未啟用
func NewHealthHandler(cfg *config.Config, keydb Pinger, dispatcher DispatchStats) *HealthHandler {
	return &HealthHandler{
		cfg:        cfg,
		keydb:      keydb,
		dispatcher: dispatcher,
	}
}

// Root 服務狀態
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": h.cfg.ServiceName,
	})
}

// Health 健康檢查
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := gin.H{
		"keydb":    "disabled",
		"delivery": h.cfg.DeliveryProvider,
	}
	response := gin.H{
		"status":   "healthy",
		"service":  h.cfg.ServiceName,
		"services": services,
		"dispatcher": gin.H{
			"queue_depth": h.dispatcher.QueueDepth(),
			"active_jobs": h.dispatcher.ActiveJobs(),
		},
	}

	// 檢查 KeyDB
	if h.keydb != nil {
		services["keydb"] = "ok"
		if !h.keydb.Ping(ctx) {
			services["keydb"] = "error"
			response["status"] = "degraded"
		}
	}

	// 回應
	statusCode := http.StatusOK
	if response["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
