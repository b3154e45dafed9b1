// internal/services/mail_router.go
// 郵件路由服務 - 根據設定選擇郵件發送服務

package services

import (
	"context"
	"fmt"
	"log"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/models"
)

// MailRouter 郵件路由服務
// 根據 DELIVERY_PROVIDER 選擇 SendGrid、SMTP Relay 或 Log
type MailRouter struct {
	provider string
	senders  map[string]MailSender
}

// NewMailRouter 建立郵件路由服務
func NewMailRouter(cfg *config.Config, sendgridService, smtpService, logSender MailSender) *MailRouter {
	return &MailRouter{
		provider: cfg.DeliveryProvider,
		senders: map[string]MailSender{
			config.ProviderSendGrid: sendgridService,
			config.ProviderSMTP:     smtpService,
			config.ProviderLog:      logSender,
		},
	}
}

// NewDefaultMailRouter 以設定建立所有發送服務
func NewDefaultMailRouter(cfg *config.Config) *MailRouter {
	return NewMailRouter(cfg, NewSendGridService(cfg), NewSMTPRelayService(cfg), NewLogSender())
}

// Route 回傳目前設定的郵件服務
func (r *MailRouter) Route() (MailSender, error) {
	sender := r.senders[r.provider]
	if sender == nil {
		return nil, fmt.Errorf("delivery provider %q is not configured", r.provider)
	}
	return sender, nil
}

// SendMail 發送郵件 (自動路由到對應服務)
func (r *MailRouter) SendMail(ctx context.Context, job *models.DispatchJob) error {
	sender, err := r.Route()
	if err != nil {
		return &DeliveryError{Provider: r.provider, Err: err}
	}
	log.Printf("[MailRouter] using %s for dispatch %s", sender.Name(), job.ID)
	return sender.SendMail(ctx, job)
}

// Name 回傳實際使用的服務名稱
func (r *MailRouter) Name() string {
	if sender, err := r.Route(); err == nil {
		return sender.Name()
	}
	return "MailRouter"
}

// ValidateConfiguration 驗證郵件服務設定
func (r *MailRouter) ValidateConfiguration() error {
	if _, err := r.Route(); err != nil {
		return err
	}
	if sg, ok := r.senders[r.provider].(*SendGridService); ok && !sg.IsConfigured() {
		return fmt.Errorf("SendGrid API key or sender address is not configured")
	}
	return nil
}
