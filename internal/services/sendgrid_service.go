// internal/services/sendgrid_service.go
// SendGrid 郵件發送服務

package services

import (
	"context"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/models"
	"mail-dispatch/pkg/redact"
)

const sendGridMailSendEndpoint = "/v3/mail/send"

// SendGridService SendGrid 郵件發送服務
// 實作 MailSender interface
type SendGridService struct {
	cfg *config.Config
}

// NewSendGridService 建立 SendGrid 服務
func NewSendGridService(cfg *config.Config) *SendGridService {
	return &SendGridService{cfg: cfg}
}

// Name 回傳服務名稱
func (s *SendGridService) Name() string {
	return "SendGrid"
}

// IsConfigured 檢查 SendGrid 是否已設定
func (s *SendGridService) IsConfigured() bool {
	return s.cfg.SendGridAPIKey != "" && s.cfg.SendGridFromEmail != ""
}

// SendMail 發送郵件 (使用 SendGrid API)
func (s *SendGridService) SendMail(ctx context.Context, job *models.DispatchJob) error {
	message := s.buildMessage(job)

	// 每次發送建立獨立 request，避免並行時共用 Body
	request := sendgrid.GetRequest(s.cfg.SendGridAPIKey, sendGridMailSendEndpoint, s.cfg.SendGridHost)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return &DeliveryError{Provider: s.Name(), Err: err}
	}

	log.Printf("[SendGrid] response status %d for dispatch %s (to: %s)",
		response.StatusCode, job.ID, redact.Emails(job.ToAddresses))

	// 檢查回應狀態 (2xx 表示成功)
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return &DeliveryError{
			Provider:   s.Name(),
			StatusCode: response.StatusCode,
			Detail:     response.Body,
		}
	}

	return nil
}

// buildMessage 建立 SendGrid 郵件：單一 personalization 包含所有收件人
func (s *SendGridService) buildMessage(job *models.DispatchJob) *mail.SGMailV3 {
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.cfg.SendGridFromName, s.cfg.SendGridFromEmail))
	message.Subject = job.Subject

	personalization := mail.NewPersonalization()
	for _, addr := range job.ToAddresses {
		personalization.AddTos(mail.NewEmail("", addr))
	}
	message.AddPersonalizations(personalization)

	message.AddContent(mail.NewContent("text/html", job.HTML))
	return message
}
