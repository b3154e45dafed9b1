// internal/smtp/session.go
// SMTP Session 處理 - 接收郵件並解析 MIME 格式

package smtp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"mail-dispatch/internal/config"
	"mail-dispatch/pkg/redact"
)

var errInvalidCredentials = errors.New("invalid credentials")

// Session 實作 smtp.Session 與 smtp.AuthSession 介面
// 處理單一 SMTP 連線的郵件接收
type Session struct {
	cfg   *config.Config
	inbox *Inbox

	authenticated bool
	from          string   // 寄件者地址
	to            []string // 收件者地址列表
}

// NewSession 建立新的 Session
func NewSession(cfg *config.Config, inbox *Inbox) *Session {
	return &Session{
		cfg:   cfg,
		inbox: inbox,
		to:    make([]string, 0),
	}
}

// AuthMechanisms 支援的認證方式
func (s *Session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

// Auth 處理 PLAIN 認證
// 帳密與 SMTP Relay 設定相同，本機開發時 relay 與 sink 共用一組
func (s *Session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, &gosmtp.SMTPError{
			Code:         504,
			EnhancedCode: gosmtp.EnhancedCode{5, 5, 4},
			Message:      "unsupported authentication mechanism",
		}
	}

	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.cfg.SMTPRelayUsername || password != s.cfg.SMTPRelayPassword {
			log.Printf("[SMTP] authentication failed for %q", username)
			return errInvalidCredentials
		}
		s.authenticated = true
		return nil
	}), nil
}

// Mail 處理 MAIL FROM 指令
func (s *Session) Mail(from string, opts *gosmtp.MailOptions) error {
	if s.cfg.SMTPSinkAuthRequired && !s.authenticated {
		return gosmtp.ErrAuthRequired
	}

	s.from = cleanEmail(from)
	return nil
}

// Rcpt 處理 RCPT TO 指令
// 設定 SMTPSinkAllowedDomains 時只接受這些網域的收件者
func (s *Session) Rcpt(to string, opts *gosmtp.RcptOptions) error {
	to = cleanEmail(to)

	if !domainAllowed(to, s.cfg.SMTPSinkAllowedDomains) {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "recipient domain not allowed",
		}
	}

	s.to = append(s.to, to)
	return nil
}

// Data 處理 DATA 指令，接收郵件內容
func (s *Session) Data(r io.Reader) error {
	// 讀取完整的郵件內容 (多讀 1 byte 用來判斷是否超過上限)
	maxSizeBytes := int64(s.cfg.SMTPSinkMaxMessageMB) * 1024 * 1024
	if maxSizeBytes > 0 {
		r = io.LimitReader(r, maxSizeBytes+1)
	}
	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(r)
	if err != nil {
		return fmt.Errorf("failed to read mail data: %w", err)
	}
	if maxSizeBytes > 0 && size > maxSizeBytes {
		return &gosmtp.SMTPError{
			Code:         552,
			EnhancedCode: gosmtp.EnhancedCode{5, 3, 4},
			Message:      fmt.Sprintf("message too large (max: %d bytes)", maxSizeBytes),
		}
	}

	msg := s.parseMessage(buf.Bytes())
	msg.Size = size

	if s.cfg.SMTPSinkOutputDir != "" && msg.HTML != "" {
		path, err := s.saveHTML(msg)
		if err != nil {
			log.Printf("[SMTP] failed to save %s: %v", msg.ID, err)
		} else {
			log.Printf("[SMTP] saved %s -> %s", msg.ID, path)
		}
	}

	s.inbox.Add(msg)

	log.Printf("[SMTP] received %q from %s (to: %s, %d bytes)",
		msg.Subject, redact.Email(msg.From), redact.Emails(msg.To), size)
	return nil
}

// parseMessage 解析 MIME 郵件
// 信封 (MAIL FROM / RCPT TO) 優先於標頭
func (s *Session) parseMessage(raw []byte) Message {
	msg := Message{
		ID:         uuid.New().String(),
		From:       s.from,
		To:         append([]string(nil), s.to...),
		ReceivedAt: time.Now().UTC(),
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// 無法解析時保留原始內容
		msg.Subject = "(No Subject)"
		msg.Text = string(raw)
		return msg
	}
	defer mr.Close()

	msg.Subject, _ = mr.Header.Subject()
	if msg.From == "" {
		if addrs, err := mr.Header.AddressList("From"); err == nil && len(addrs) > 0 {
			msg.From = addrs[0].Address
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[SMTP] failed to parse part: %v", err)
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		content, _ := io.ReadAll(part.Body)

		switch {
		case strings.HasPrefix(contentType, "text/html"):
			msg.HTML = string(content)
		case strings.HasPrefix(contentType, "text/plain"):
			msg.Text = string(content)
		}
	}

	return msg
}

// saveHTML 將 HTML 內容寫到 SMTPSinkOutputDir/YYYY/MM/DD/<id>.html
func (s *Session) saveHTML(msg Message) (string, error) {
	storagePath := filepath.Join(
		s.cfg.SMTPSinkOutputDir,
		msg.ReceivedAt.Format("2006/01/02"),
		msg.ID+".html",
	)

	if err := os.MkdirAll(filepath.Dir(storagePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(storagePath, []byte(msg.HTML), 0644); err != nil {
		return "", fmt.Errorf("failed to write message file: %w", err)
	}
	return storagePath, nil
}

// Reset 重置 Session 狀態
func (s *Session) Reset() {
	s.from = ""
	s.to = make([]string, 0)
}

// Logout 處理 QUIT 指令
func (s *Session) Logout() error {
	return nil
}

// domainAllowed 檢查地址網域 (空白清單表示允許全部)
func domainAllowed(addr string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}

	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(addr[at+1:])
	for _, d := range domains {
		if domain == strings.ToLower(strings.TrimPrefix(d, "@")) {
			return true
		}
	}
	return false
}

// cleanEmail 清理郵件地址 (移除角括號)
func cleanEmail(email string) string {
	email = strings.TrimSpace(email)
	email = strings.TrimPrefix(email, "<")
	email = strings.TrimSuffix(email, ">")
	return email
}
