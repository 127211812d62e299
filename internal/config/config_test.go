package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_SERVICE", "HTTP_ADDR", "AUTH_ACCESS_TOKEN_TTL", "SMS_PROVIDER",
		"SMS_TIMEOUT", "SMS_DESTINATION", "RATE_LIMIT_ENABLED", "RATE_LIMIT_TOKEN_RATE",
		"ENVIRONMENT", "LOG_LEVEL", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_PROTOCOL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "orderdesk", cfg.AppName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "africastalking", cfg.SMS.Provider)
	assert.Equal(t, 10*time.Second, cfg.SMS.Timeout)
	assert.Equal(t, "+254704205757", cfg.SMS.Destination)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 0.5, cfg.RateLimit.TokenRate)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "grpc", cfg.Observability.OTLPProtocol)
	assert.False(t, cfg.Observability.OTLPEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SMS_PROVIDER", " LOG ")
	t.Setenv("SMS_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_ENABLED", "yes")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "not-a-duration")
	t.Setenv("ENVIRONMENT", "Production")
	t.Setenv("OTEL_ENABLED", "")

	cfg := Load()

	assert.Equal(t, "log", cfg.SMS.Provider)
	assert.Equal(t, 3*time.Second, cfg.SMS.Timeout)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2, cfg.RateLimit.RedisDB)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Observability.OTLPEnabled)
}

func TestNotificationConfigDefaultsWithoutFile(t *testing.T) {
	cfg := Config{SMS: SMSConfig{
		Destination: "+254700000000",
		ConfigPath:  filepath.Join(t.TempDir(), "missing.yml"),
	}}

	holder, err := NewNotificationConfigHolder(cfg, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "+254700000000", got.Destination)
	assert.Equal(t, DefaultOrderPlacedTemplate, got.OrderPlacedTemplate)
}

func TestNotificationConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notification.yml")
	content := "sms:\n  destination: \"+254711111111\"\n  orderPlacedTemplate: \"Hi {{.CustomerName}}, {{.Item}} is on its way.\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewNotificationConfigHolder(Config{SMS: SMSConfig{
		Destination: "+254700000000",
		ConfigPath:  path,
	}}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, "+254711111111", got.Destination)
	assert.Equal(t, "Hi {{.CustomerName}}, {{.Item}} is on its way.", got.OrderPlacedTemplate)
}

func TestNotificationConfigRejectsBrokenTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notification.yml")
	require.NoError(t, os.WriteFile(path, []byte("sms:\n  orderPlacedTemplate: \"Dear {{.CustomerName\"\n"), 0o600))

	_, err := NewNotificationConfigHolder(Config{SMS: SMSConfig{
		Destination: "+254700000000",
		ConfigPath:  path,
	}}, zap.NewNop())
	assert.Error(t, err)
}

func TestStaticNotificationConfigHolder(t *testing.T) {
	_, err := NewStaticNotificationConfigHolder(NotificationConfig{})
	assert.Error(t, err)

	holder, err := NewStaticNotificationConfigHolder(NotificationConfig{
		Destination:         "+1",
		OrderPlacedTemplate: DefaultOrderPlacedTemplate,
	})
	require.NoError(t, err)
	assert.Equal(t, "+1", holder.Get().Destination)
}
