// internal/smtp/server.go
// SMTP Sink Server - 本機開發時接收 SMTP Relay 寄出的郵件

package smtp

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	gosmtp "github.com/emersion/go-smtp"

	"mail-dispatch/internal/config"
)

// Server SMTP 伺服器
type Server struct {
	cfg        *config.Config
	inbox      *Inbox
	smtpServer *gosmtp.Server
}

// NewServer 建立 SMTP 伺服器
func NewServer(cfg *config.Config) *Server {
	inbox := NewInbox(cfg.SMTPSinkMaxMessages)

	srv := gosmtp.NewServer(NewBackend(cfg, inbox))
	srv.Addr = fmt.Sprintf(":%s", cfg.SMTPSinkPort)
	srv.Domain = "mail-dispatch.local"
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxMessageBytes = int64(cfg.SMTPSinkMaxMessageMB) * 1024 * 1024
	srv.MaxRecipients = 50
	srv.AllowInsecureAuth = true // 僅供本機開發

	return &Server{
		cfg:        cfg,
		inbox:      inbox,
		smtpServer: srv,
	}
}

// Inbox 回傳收件匣
func (s *Server) Inbox() *Inbox {
	return s.inbox
}

// Start 啟動 SMTP 伺服器 (阻塞式)
func (s *Server) Start() error {
	s.logSettings()

	if err := s.smtpServer.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
		return fmt.Errorf("SMTP server error: %w", err)
	}
	return nil
}

// Serve 在指定的 listener 上提供服務 (阻塞式)
func (s *Server) Serve(l net.Listener) error {
	s.logSettings()

	if err := s.smtpServer.Serve(l); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
		return fmt.Errorf("SMTP server error: %w", err)
	}
	return nil
}

func (s *Server) logSettings() {
	log.Printf("[SMTP] sink listening on %s (auth required: %v, max message: %d MB)",
		s.smtpServer.Addr, s.cfg.SMTPSinkAuthRequired, s.cfg.SMTPSinkMaxMessageMB)

	if len(s.cfg.SMTPSinkAllowedDomains) > 0 {
		log.Printf("[SMTP] allowed recipient domains: %v", s.cfg.SMTPSinkAllowedDomains)
	}
}

// Shutdown 優雅關機
func (s *Server) Shutdown() error {
	log.Println("[SMTP] shutting down sink...")
	return s.smtpServer.Close()
}
