// internal/models/mail.go
// 郵件派送資料模型

package models

import (
	"time"

	"github.com/google/uuid"
)

// DispatchStatus 派送結果
type DispatchStatus string

const (
	DispatchStatusAccepted  DispatchStatus = "accepted"
	DispatchStatusDuplicate DispatchStatus = "duplicate"
	DispatchStatusSent      DispatchStatus = "sent"
	DispatchStatusFailed    DispatchStatus = "failed"
)

// DispatchJob 背景派送工作
// 只存在於 dispatcher 的記憶體佇列中，不做持久化
type DispatchJob struct {
	ID             string    `json:"dispatch_id"`
	TemplateID     string    `json:"template"`
	ToAddresses    []string  `json:"to"`
	Subject        string    `json:"subject"`
	HTML           string    `json:"html"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	ClientID       string    `json:"client_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewDispatchJob 建立派送工作並產生 ID
func NewDispatchJob(templateID string, to []string, subject, html string) *DispatchJob {
	recipients := make([]string, len(to))
	copy(recipients, to)

	return &DispatchJob{
		ID:          uuid.New().String(),
		TemplateID:  templateID,
		ToAddresses: recipients,
		Subject:     subject,
		HTML:        html,
		CreatedAt:   time.Now().UTC(),
	}
}
