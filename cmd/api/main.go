// cmd/api/main.go
// Gin RESTful API 入口

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"mail-dispatch/internal/api/routes"
	"mail-dispatch/internal/config"
	"mail-dispatch/internal/metrics"
	"mail-dispatch/internal/services"
	"mail-dispatch/internal/worker"
)

func main() {
	log.Println("Starting Mail Dispatch API Server...")

	// 載入設定
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: configuration incomplete: %v", err)
	}

	// 初始化 KeyDB (選用，供 Idempotency-Key 使用)
	var keydbService *services.KeyDBService
	if cfg.IdempotencyEnabled() {
		var err error
		keydbService, err = services.NewKeyDBService(cfg)
		if err != nil {
			log.Printf("Warning: %v, idempotency keys disabled", err)
		} else {
			defer keydbService.Close()
			log.Println("KeyDB connected successfully")
		}
	}

	// 初始化郵件服務
	mailRouter := services.NewDefaultMailRouter(cfg)
	if err := mailRouter.ValidateConfiguration(); err != nil {
		log.Printf("Warning: %v", err)
	}
	log.Printf("Delivery provider: %s", mailRouter.Name())

	// 初始化 Dispatcher
	m := metrics.New()
	var dispatcher *worker.Dispatcher
	dispatcher = worker.NewDispatcher(cfg, mailRouter, func(r worker.Result) {
		m.RecordDispatch(r.Job.TemplateID, r.Provider, r.Err, r.Duration)
		m.SetQueueDepth(dispatcher.QueueDepth())
	})
	dispatcher.Start()

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// 註冊路由
	routes.RegisterRoutes(router, &routes.Dependencies{
		Config:       cfg,
		Dispatcher:   dispatcher,
		KeyDBService: keydbService,
		Metrics:      m,
	})

	// 建立 HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// 優雅關機
	go func() {
		log.Printf("API Server listening on port %s", cfg.APIPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down API server...")

	// 優雅關閉：先停止接收請求，再等待背景派送完成
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := dispatcher.GracefulShutdown(ctx); err != nil {
		log.Printf("Dispatcher did not drain in time: %v", err)
	}

	log.Println("API Server stopped")
}
