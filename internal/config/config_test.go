package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "API_PORT", "SERVICE_NAME", "COMPANY_NAME", "DELIVERY_PROVIDER",
		"SENDGRID_API_KEY", "SENGRID_API_KEY", "SENDGRID_FROM_EMAIL", "SENDGRID_HOST",
		"DISPATCH_WORKERS", "DISPATCH_QUEUE_SIZE", "SEND_TIMEOUT_SECONDS",
		"KEYDB_URL", "JWT_SECRET", "IDEMPOTENCY_TTL_HOURS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8000", cfg.APIPort)
	assert.Equal(t, "Real-World Email Service", cfg.ServiceName)
	assert.Equal(t, "Your Company", cfg.CompanyName)
	assert.Equal(t, ProviderSendGrid, cfg.DeliveryProvider)
	assert.Equal(t, "https://api.sendgrid.com", cfg.SendGridHost)
	assert.Equal(t, 30*time.Second, cfg.SendTimeout)
	assert.Equal(t, 4, cfg.DispatchWorkers)
	assert.Equal(t, 100, cfg.DispatchQueueSize)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.False(t, cfg.AuthEnabled())
	assert.False(t, cfg.IdempotencyEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("COMPANY_NAME", "Acme Corp")
	t.Setenv("SENDGRID_API_KEY", "SG.test")
	t.Setenv("SENDGRID_FROM_EMAIL", "noreply@acme.test")
	t.Setenv("DELIVERY_PROVIDER", "SMTP")
	t.Setenv("DISPATCH_WORKERS", "8")
	t.Setenv("SEND_TIMEOUT_SECONDS", "5")
	t.Setenv("KEYDB_URL", "localhost:6379")
	t.Setenv("JWT_SECRET", "secret")

	cfg := Load()

	assert.Equal(t, "Acme Corp", cfg.CompanyName)
	assert.Equal(t, "SG.test", cfg.SendGridAPIKey)
	assert.Equal(t, "noreply@acme.test", cfg.SendGridFromEmail)
	assert.Equal(t, ProviderSMTP, cfg.DeliveryProvider)
	assert.Equal(t, 8, cfg.DispatchWorkers)
	assert.Equal(t, 5*time.Second, cfg.SendTimeout)
	assert.True(t, cfg.AuthEnabled())
	assert.True(t, cfg.IdempotencyEnabled())
}

func TestLoad_LegacyAPIKeyName(t *testing.T) {
	t.Setenv("SENDGRID_API_KEY", "")
	t.Setenv("SENGRID_API_KEY", "SG.legacy")

	cfg := Load()
	assert.Equal(t, "SG.legacy", cfg.SendGridAPIKey)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("DISPATCH_QUEUE_SIZE", "many")

	cfg := Load()
	assert.Equal(t, 100, cfg.DispatchQueueSize)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		DeliveryProvider:  ProviderSendGrid,
		SendGridAPIKey:    "SG.key",
		SendGridFromEmail: "noreply@acme.test",
		DispatchWorkers:   1,
		DispatchQueueSize: 1,
	}
	require.NoError(t, valid.Validate())

	missingKey := *valid
	missingKey.SendGridAPIKey = ""
	assert.ErrorContains(t, missingKey.Validate(), "SENDGRID_API_KEY")

	logOnly := &Config{DeliveryProvider: ProviderLog, DispatchWorkers: 1, DispatchQueueSize: 1}
	assert.NoError(t, logOnly.Validate())

	unknown := *valid
	unknown.DeliveryProvider = "pigeon"
	assert.ErrorContains(t, unknown.Validate(), "unknown DELIVERY_PROVIDER")

	noWorkers := *valid
	noWorkers.DispatchWorkers = 0
	assert.ErrorContains(t, noWorkers.Validate(), "DISPATCH_WORKERS")
}

func TestLoad_SMTPSink(t *testing.T) {
	t.Setenv("SMTP_SINK_PORT", "")
	t.Setenv("SMTP_SINK_AUTH_REQUIRED", "yes")
	t.Setenv("SMTP_SINK_ALLOWED_DOMAINS", " acme.test, ,example.com ")
	t.Setenv("SMTP_RELAY_STARTTLS", "true")

	cfg := Load()

	assert.Equal(t, "1025", cfg.SMTPSinkPort)
	assert.Equal(t, 25, cfg.SMTPSinkMaxMessageMB)
	assert.True(t, cfg.SMTPSinkAuthRequired)
	assert.Equal(t, []string{"acme.test", "example.com"}, cfg.SMTPSinkAllowedDomains)
	assert.True(t, cfg.SMTPRelayStartTLS)
}
