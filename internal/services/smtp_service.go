// internal/services/smtp_service.go
// SMTP Relay 郵件發送服務 (本機開發可接 MailHog 等 SMTP 伺服器)

package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/models"
	"mail-dispatch/pkg/redact"
)

// SMTPRelayService 透過 SMTP 伺服器轉寄郵件
// 實作 MailSender interface
type SMTPRelayService struct {
	cfg *config.Config
}

// NewSMTPRelayService 建立 SMTP Relay 服務
func NewSMTPRelayService(cfg *config.Config) *SMTPRelayService {
	return &SMTPRelayService{cfg: cfg}
}

// Name 回傳服務名稱
func (s *SMTPRelayService) Name() string {
	return "SMTP Relay"
}

// SendMail 發送郵件 (使用 SMTP)
// 連線、交談與傳送都受 ctx 限制，逾時或取消時關閉連線中止本次嘗試
func (s *SMTPRelayService) SendMail(ctx context.Context, job *models.DispatchJob) error {
	var buf bytes.Buffer
	if err := s.writeMessage(&buf, job); err != nil {
		return fmt.Errorf("failed to build MIME message: %w", err)
	}

	if err := s.relay(ctx, job.ToAddresses, &buf); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &DeliveryError{Provider: s.Name(), Err: ctxErr}
		}
		return s.deliveryError(err)
	}

	log.Printf("[SMTP] relayed dispatch %s via %s (to: %s)",
		job.ID, s.cfg.SMTPRelayAddr, redact.Emails(job.ToAddresses))
	return nil
}

// relay 建立連線並送出單一郵件
func (s *SMTPRelayService) relay(ctx context.Context, to []string, r io.Reader) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.SMTPRelayAddr)
	if err != nil {
		return err
	}

	// ctx 結束時關閉連線，進行中的讀寫立即返回
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var client *gosmtp.Client
	if s.cfg.SMTPRelayStartTLS {
		host, _, _ := net.SplitHostPort(s.cfg.SMTPRelayAddr)
		client, err = gosmtp.NewClientStartTLS(conn, &tls.Config{ServerName: host})
		if err != nil {
			return err
		}
	} else {
		client = gosmtp.NewClient(conn)
	}
	defer client.Close()

	if s.cfg.SMTPRelayUsername != "" {
		auth := sasl.NewPlainClient("", s.cfg.SMTPRelayUsername, s.cfg.SMTPRelayPassword)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.SendMail(s.cfg.SendGridFromEmail, to, r); err != nil {
		return err
	}

	// DATA 已被接受即視為送達，QUIT 失敗不影響結果
	if err := client.Quit(); err != nil {
		log.Printf("[SMTP] Warning: QUIT failed: %v", err)
	}
	return nil
}

// writeMessage 組成單一 HTML 內容的 MIME 郵件
func (s *SMTPRelayService) writeMessage(w io.Writer, job *models.DispatchJob) error {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: s.cfg.SendGridFromName, Address: s.cfg.SendGridFromEmail}})

	to := make([]*mail.Address, len(job.ToAddresses))
	for i, addr := range job.ToAddresses {
		to[i] = &mail.Address{Address: addr}
	}
	h.SetAddressList("To", to)
	h.SetSubject(job.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return err
	}
	h.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	h.Set("Content-Transfer-Encoding", "quoted-printable")

	body, err := mail.CreateSingleInlineWriter(w, h)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(body, job.HTML); err != nil {
		body.Close()
		return err
	}
	return body.Close()
}

// deliveryError 將 SMTP 回應碼帶入 DeliveryError
func (s *SMTPRelayService) deliveryError(err error) error {
	var smtpErr *gosmtp.SMTPError
	if errors.As(err, &smtpErr) {
		return &DeliveryError{
			Provider:   s.Name(),
			StatusCode: smtpErr.Code,
			Detail:     smtpErr.Message,
			Err:        err,
		}
	}
	return &DeliveryError{Provider: s.Name(), Err: err}
}
