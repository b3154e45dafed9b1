// internal/services/token_service.go
// Client Token 簽發服務 - 產生 /send 使用的 JWT

package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mail-dispatch/internal/config"
)

// TokenIssuer JWT iss
const TokenIssuer = "mail-dispatch"

// TokenRequest 簽發參數
type TokenRequest struct {
	ClientID    string
	ClientName  string
	Permissions []string
	TTL         time.Duration // 0 表示永久有效
}

// TokenService Token 簽發服務
// Token 不落地儲存，驗證只依賴 JWT_SECRET
type TokenService struct {
	cfg *config.Config
}

// NewTokenService 建立 Token 服務
func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{cfg: cfg}
}

// Issue 簽發 HS256 JWT
func (s *TokenService) Issue(req TokenRequest) (string, error) {
	if s.cfg.JWTSecret == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	if req.ClientID == "" {
		return "", errors.New("client id is required")
	}

	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = []string{"send"}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":         TokenIssuer,
		"sub":         uuid.New().String(),
		"iat":         now.Unix(),
		"client_id":   req.ClientID,
		"permissions": permissions,
	}
	if req.ClientName != "" {
		claims["client_name"] = req.ClientName
	}
	if req.TTL > 0 {
		claims["exp"] = now.Add(req.TTL).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
