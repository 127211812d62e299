package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMetricsEnabled  bool

	Auth          AuthConfig
	SMS           SMSConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
}

// ObservabilityConfig configures logs, traces and OTLP metrics export.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string

	OTLPEnabled  bool
	OTLPEndpoint string
	OTLPProtocol string
	SampleRatio  float64
}

type AuthConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// SMSConfig configures the outbound notification gateway.
type SMSConfig struct {
	Provider    string
	Username    string
	APIKey      string
	SenderID    string
	Endpoint    string
	Timeout     time.Duration
	Destination string
	ConfigPath  string
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TokenRate  float64
	TokenBurst int

	SlugLockTTL time.Duration
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewNotificationConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "orderdesk"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "orderdesk"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBMetricsEnabled:  getenvBool("DATABASE_METRICS_ENABLED", true),
		Auth: AuthConfig{
			AccessTokenTTL:  getenvDuration("AUTH_ACCESS_TOKEN_TTL", 5*time.Minute),
			RefreshTokenTTL: getenvDuration("AUTH_REFRESH_TOKEN_TTL", 24*time.Hour),
		},
		SMS: SMSConfig{
			Provider:    strings.ToLower(strings.TrimSpace(getenv("SMS_PROVIDER", "africastalking"))),
			Username:    strings.TrimSpace(getenv("AFRICAS_TALKING_USERNAME", "sandbox")),
			APIKey:      strings.TrimSpace(getenv("AFRICAS_TALKING_API_KEY", "")),
			SenderID:    strings.TrimSpace(getenv("AFRICAS_TALKING_SENDER_ID", "")),
			Endpoint:    strings.TrimSpace(getenv("AFRICAS_TALKING_ENDPOINT", "")),
			Timeout:     getenvDuration("SMS_TIMEOUT", 10*time.Second),
			Destination: strings.TrimSpace(getenv("SMS_DESTINATION", "+254704205757")),
			ConfigPath:  strings.TrimSpace(getenv("NOTIFICATION_CONFIG_PATH", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			RedisDB:       getenvInt("REDIS_DB", 0),
			TokenRate:     getenvFloat("RATE_LIMIT_TOKEN_RATE", 0.5),
			TokenBurst:    getenvInt("RATE_LIMIT_TOKEN_BURST", 10),
			SlugLockTTL:   getenvDuration("RATE_LIMIT_SLUG_LOCK_TTL", 5*time.Second),
		},
	}
	cfg.Observability = ObservabilityConfig{
		LogLevel:     strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:    strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OTLPEnabled:  getenvBool("OTEL_ENABLED", cfg.IsProduction()),
		OTLPEndpoint: strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol: strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		SampleRatio:  getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
