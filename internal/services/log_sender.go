// internal/services/log_sender.go
// 開發用發送服務 - 只寫 log，不連線任何供應商

package services

import (
	"context"
	"log"

	"mail-dispatch/internal/models"
	"mail-dispatch/pkg/redact"
)

// LogSender 實作 MailSender interface
type LogSender struct{}

// NewLogSender 建立開發用發送服務
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Name 回傳服務名稱
func (s *LogSender) Name() string {
	return "Log"
}

// SendMail 將郵件摘要寫入 log
func (s *LogSender) SendMail(ctx context.Context, job *models.DispatchJob) error {
	if err := ctx.Err(); err != nil {
		return &DeliveryError{Provider: s.Name(), Err: err}
	}

	log.Printf("[Log Sender] dispatch %s template=%s subject=%q to=%s html=%d bytes",
		job.ID, job.TemplateID, job.Subject, redact.Emails(job.ToAddresses), len(job.HTML))
	return nil
}
