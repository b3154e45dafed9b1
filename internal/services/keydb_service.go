// internal/services/keydb_service.go
// KeyDB 冪等鍵服務

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mail-dispatch/internal/config"
)

// KeyDBService KeyDB 服務
// 以 Idempotency-Key 對應 dispatch ID，避免同一請求重複寄送
type KeyDBService struct {
	cfg    *config.Config
	client *redis.Client
}

// NewKeyDBService 建立 KeyDB 服務
func NewKeyDBService(cfg *config.Config) (*KeyDBService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.KeyDBURL,
		Password: cfg.KeyDBPassword,
		DB:       0,
	})

	// 測試連接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to KeyDB: %w", err)
	}

	return &KeyDBService{
		cfg:    cfg,
		client: client,
	}, nil
}

func idempotencyKey(templateID, key string) string {
	return fmt.Sprintf("notify:idempotency:%s:%s", templateID, key)
}

// Reserve 保留冪等鍵
// 首次保留回傳 (dispatchID, true)；已存在則回傳既有的 dispatch ID 與 false
func (s *KeyDBService) Reserve(ctx context.Context, templateID, key, dispatchID string) (string, bool, error) {
	redisKey := idempotencyKey(templateID, key)

	ok, err := s.client.SetNX(ctx, redisKey, dispatchID, s.cfg.IdempotencyTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	if ok {
		return dispatchID, true, nil
	}

	existing, err := s.client.Get(ctx, redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// 剛好過期，重新保留
			return s.Reserve(ctx, templateID, key, dispatchID)
		}
		return "", false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return existing, false, nil
}

// Release 釋放冪等鍵 (派送排程失敗時使用)
// 只刪除仍屬於 dispatchID 的鍵
func (s *KeyDBService) Release(ctx context.Context, templateID, key, dispatchID string) error {
	redisKey := idempotencyKey(templateID, key)

	current, err := s.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if current != dispatchID {
		return nil
	}
	return s.client.Del(ctx, redisKey).Err()
}

// Ping 檢查連接
func (s *KeyDBService) Ping(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

// Close 關閉連接
func (s *KeyDBService) Close() error {
	return s.client.Close()
}
