// internal/config/config.go
// 設定模組 - 載入環境變數

package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// 寄送管道
const (
	ProviderSendGrid = "sendgrid"
	ProviderSMTP     = "smtp"
	ProviderLog      = "log"
)

// Config 應用程式設定
// 啟動時建立一次，之後只讀
type Config struct {
	// 環境
	Env         string
	APIPort     string
	ServiceName string

	// 公司資訊 (簽名檔)
	CompanyName string

	// 寄送管道
	DeliveryProvider string
	SendTimeout      time.Duration

	// SendGrid
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SendGridHost      string

	// SMTP Relay
	SMTPRelayAddr     string
	SMTPRelayUsername string
	SMTPRelayPassword string
	SMTPRelayStartTLS bool

	// SMTP Sink (本機開發用的收件伺服器)
	SMTPSinkPort           string
	SMTPSinkMaxMessageMB   int
	SMTPSinkMaxMessages    int
	SMTPSinkAuthRequired   bool
	SMTPSinkAllowedDomains []string // 允許的收件網域 (空白表示允許全部)
	SMTPSinkOutputDir      string

	// Dispatcher
	DispatchWorkers   int
	DispatchQueueSize int
	ShutdownTimeout   time.Duration

	// KeyDB (冪等鍵)
	KeyDBURL       string
	KeyDBPassword  string
	IdempotencyTTL time.Duration

	// JWT
	JWTSecret string
}

// Load 載入設定
func Load() *Config {
	// 嘗試載入 .env 檔案 (開發環境)
	_ = godotenv.Load()

	return &Config{
		// 環境
		Env:         getEnv("APP_ENV", "development"),
		APIPort:     getEnv("API_PORT", "8000"),
		ServiceName: getEnv("SERVICE_NAME", "Real-World Email Service"),

		CompanyName: getEnv("COMPANY_NAME", "Your Company"),

		// 寄送管道
		DeliveryProvider: strings.ToLower(getEnv("DELIVERY_PROVIDER", ProviderSendGrid)),
		SendTimeout:      time.Duration(getEnvAsInt("SEND_TIMEOUT_SECONDS", 30)) * time.Second,

		// SendGrid (舊版部署使用 SENGRID_API_KEY)
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", getEnv("SENGRID_API_KEY", "")),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", ""),
		SendGridHost:      getEnv("SENDGRID_HOST", "https://api.sendgrid.com"),

		// SMTP Relay
		SMTPRelayAddr:     getEnv("SMTP_RELAY_ADDR", "localhost:1025"),
		SMTPRelayUsername: getEnv("SMTP_RELAY_USERNAME", ""),
		SMTPRelayPassword: getEnv("SMTP_RELAY_PASSWORD", ""),
		SMTPRelayStartTLS: getEnvAsBool("SMTP_RELAY_STARTTLS", false),

		// SMTP Sink
		SMTPSinkPort:           getEnv("SMTP_SINK_PORT", "1025"),
		SMTPSinkMaxMessageMB:   getEnvAsInt("SMTP_SINK_MAX_MESSAGE_SIZE_MB", 25),
		SMTPSinkMaxMessages:    getEnvAsInt("SMTP_SINK_MAX_MESSAGES", 100),
		SMTPSinkAuthRequired:   getEnvAsBool("SMTP_SINK_AUTH_REQUIRED", false),
		SMTPSinkAllowedDomains: getEnvAsSlice("SMTP_SINK_ALLOWED_DOMAINS", []string{}),
		SMTPSinkOutputDir:      getEnv("SMTP_SINK_OUTPUT_DIR", ""),

		// Dispatcher
		DispatchWorkers:   getEnvAsInt("DISPATCH_WORKERS", 4),
		DispatchQueueSize: getEnvAsInt("DISPATCH_QUEUE_SIZE", 100),
		ShutdownTimeout:   time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,

		// KeyDB
		KeyDBURL:       getEnv("KEYDB_URL", ""),
		KeyDBPassword:  getEnv("KEYDB_PASSWORD", ""),
		IdempotencyTTL: time.Duration(getEnvAsInt("IDEMPOTENCY_TTL_HOURS", 24)) * time.Hour,

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),
	}
}

// AuthEnabled 是否啟用 JWT 認證
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// IdempotencyEnabled 是否啟用冪等鍵 (需要 KeyDB)
func (c *Config) IdempotencyEnabled() bool {
	return c.KeyDBURL != ""
}

// Validate 檢查寄送管道所需設定
func (c *Config) Validate() error {
	var errs []error

	switch c.DeliveryProvider {
	case ProviderSendGrid:
		if c.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is not set"))
		}
		if c.SendGridFromEmail == "" {
			errs = append(errs, errors.New("SENDGRID_FROM_EMAIL is not set"))
		}
	case ProviderSMTP:
		if c.SMTPRelayAddr == "" {
			errs = append(errs, errors.New("SMTP_RELAY_ADDR is not set"))
		}
		if c.SendGridFromEmail == "" {
			errs = append(errs, errors.New("SENDGRID_FROM_EMAIL is not set"))
		}
	case ProviderLog:
	default:
		errs = append(errs, errors.New("unknown DELIVERY_PROVIDER: "+c.DeliveryProvider))
	}

	if c.DispatchWorkers < 1 {
		errs = append(errs, errors.New("DISPATCH_WORKERS must be at least 1"))
	}
	if c.DispatchQueueSize < 1 {
		errs = append(errs, errors.New("DISPATCH_QUEUE_SIZE must be at least 1"))
	}

	return errors.Join(errs...)
}

// getEnv 取得環境變數，若不存在則回傳預設值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 取得環境變數並轉換為整數
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool 取得環境變數並轉換為布林值
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvAsSlice 取得環境變數並轉換為字串切片 (以逗號分隔)
func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}
