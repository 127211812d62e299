package observability

import (
	"strings"

	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/observability/tracing"
)

// Config is the view of the service configuration shared by the logger,
// tracer and meter providers.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	config.ObservabilityConfig
}

func NewConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "orderdesk"
	}
	return Config{
		ServiceName:         name,
		Environment:         strings.TrimSpace(cfg.Environment),
		Version:             strings.TrimSpace(cfg.AppVersion),
		ObservabilityConfig: cfg.Observability,
	}
}

// Debug is true for debug logging or any non-deployed environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c Config) logger() logger.Config {
	return logger.Config{
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Version:     c.Version,
		Level:       c.LogLevel,
		Format:      c.LogFormat,
		Debug:       c.Debug(),
	}
}

func (c Config) tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OTLPEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OTLPProtocol,
		SamplingRatio:    c.SampleRatio,
	}
}

func (c Config) metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OTLPEnabled,
		ExporterEndpoint: c.OTLPEndpoint,
		ExporterProtocol: c.OTLPProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
