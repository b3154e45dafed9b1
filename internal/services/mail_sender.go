// internal/services/mail_sender.go
// 郵件發送服務共用介面

package services

import (
	"context"
	"fmt"

	"mail-dispatch/internal/models"
)

// MailSender 郵件發送服務介面
// 所有郵件發送服務（SendGrid、SMTP Relay 等）都需實作此介面
type MailSender interface {
	// SendMail 發送郵件，每次呼叫最多嘗試一次
	SendMail(ctx context.Context, job *models.DispatchJob) error

	// Name 回傳服務名稱，用於 logging 與 metrics
	Name() string
}

// DeliveryError 寄送失敗 (供應商拒絕或無法連線)
type DeliveryError struct {
	Provider   string
	StatusCode int    // 供應商回應碼，連線失敗時為 0
	Detail     string // 供應商回應內容
	Err        error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s delivery rejected (status %d): %s", e.Provider, e.StatusCode, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s delivery failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s delivery failed: %s", e.Provider, e.Detail)
	}
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
