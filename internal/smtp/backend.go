// internal/smtp/backend.go
// SMTP Backend 介面實作 - 處理 SMTP 連線並建立 Session

package smtp

import (
	"log"

	gosmtp "github.com/emersion/go-smtp"

	"mail-dispatch/internal/config"
)

// Backend 實作 smtp.Backend 介面
// 負責處理 SMTP 連線並建立 Session
type Backend struct {
	cfg   *config.Config // 應用程式設定
	inbox *Inbox         // 收件匣
}

// NewBackend 建立 SMTP Backend
func NewBackend(cfg *config.Config, inbox *Inbox) *Backend {
	return &Backend{
		cfg:   cfg,
		inbox: inbox,
	}
}

// NewSession 建立新的 SMTP Session
// 實作 smtp.Backend 介面
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	log.Printf("[SMTP] new connection from %s", c.Hostname())

	return NewSession(b.cfg, b.inbox), nil
}
