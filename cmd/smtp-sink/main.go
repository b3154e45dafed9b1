// cmd/smtp-sink/main.go
// SMTP Sink 入口程式
// 本機開發時接收 DELIVERY_PROVIDER=smtp 寄出的郵件，記錄並可輸出 HTML 供預覽

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/smtp"
)

func main() {
	log.Println("========================================")
	log.Println("    Mail Dispatch - SMTP Sink")
	log.Println("========================================")

	// 載入設定
	cfg := config.Load()
	if cfg.Env == "production" {
		log.Println("Warning: the SMTP sink is meant for local development only")
	}

	// 建立 SMTP 伺服器
	smtpServer := smtp.NewServer(cfg)

	// 啟動 SMTP 伺服器 (非同步)
	go func() {
		if err := smtpServer.Start(); err != nil {
			log.Fatalf("SMTP sink error: %v", err)
		}
	}()

	if cfg.SMTPSinkOutputDir != "" {
		log.Printf("Rendered HTML will be written to %s", cfg.SMTPSinkOutputDir)
	}
	log.Println("Press Ctrl+C to stop")

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 優雅關機
	if err := smtpServer.Shutdown(); err != nil {
		log.Printf("Error while stopping SMTP sink: %v", err)
	}

	log.Printf("SMTP sink stopped (%d messages received)", smtpServer.Inbox().Len())
}
