// internal/smtp/inbox.go
// 收件匣 - 保存最近收到的郵件供開發檢視

package smtp

import (
	"sync"
	"time"
)

// Message 收到的郵件
type Message struct {
	ID         string
	From       string
	To         []string
	Subject    string
	HTML       string
	Text       string
	Size       int64
	ReceivedAt time.Time
}

// Inbox 固定容量的郵件清單，超過容量時丟棄最舊的郵件
type Inbox struct {
	mu       sync.RWMutex
	limit    int
	messages []Message
}

// NewInbox 建立收件匣
func NewInbox(limit int) *Inbox {
	if limit < 1 {
		limit = 1
	}
	return &Inbox{limit: limit}
}

// Add 加入郵件
func (i *Inbox) Add(msg Message) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.messages = append(i.messages, msg)
	if over := len(i.messages) - i.limit; over > 0 {
		i.messages = append([]Message(nil), i.messages[over:]...)
	}
}

// Messages 回傳郵件複本 (由舊到新)
func (i *Inbox) Messages() []Message {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]Message(nil), i.messages...)
}

// Len 目前郵件數
func (i *Inbox) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.messages)
}
