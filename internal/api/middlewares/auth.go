// internal/api/middlewares/auth.go
// JWT 認證中介軟體

package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"mail-dispatch/internal/config"
)

// PermissionAdmin 擁有所有權限
const PermissionAdmin = "admin"

// JWTAuth JWT 認證中介軟體
// 只驗證簽章、有效期限與 client_id，不查詢任何儲存
func JWTAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 取得 Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing_token", "Authorization header is required")
			return
		}

		// 解析 Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortUnauthorized(c, "invalid_token_format", "Authorization header must be Bearer token")
			return
		}

		// 解析 JWT Token
		token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(token *jwt.Token) (interface{}, error) {
			// 確認簽名方法
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid_token", "Invalid or expired token")
			return
		}

		// 取得 Claims
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid_claims", "Invalid token claims")
			return
		}

		// 取得 client_id
		clientID, ok := claims["client_id"].(string)
		if !ok || clientID == "" {
			abortUnauthorized(c, "invalid_client", "Token missing client_id")
			return
		}

		// 設定 context
		c.Set("client_id", clientID)
		c.Set("permissions", claims["permissions"])

		c.Next()
	}
}

// RequirePermission 權限檢查中介軟體
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		permsInterface, exists := c.Get("permissions")
		if !exists {
			abortForbidden(c, "no_permissions", "No permissions found")
			return
		}

		// 轉換權限列表
		var permissions []string
		switch v := permsInterface.(type) {
		case []interface{}:
			for _, p := range v {
				if s, ok := p.(string); ok {
					permissions = append(permissions, s)
				}
			}
		case []string:
			permissions = v
		case string:
			permissions = strings.Fields(v)
		}

		// 檢查權限
		hasPermission := false
		for _, p := range permissions {
			if p == permission || p == PermissionAdmin {
				hasPermission = true
				break
			}
		}

		if !hasPermission {
			abortForbidden(c, "permission_denied", "You don't have permission to access this resource")
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}

func abortForbidden(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error":   code,
		"message": message,
	})
}
