package logger

import (
	"context"
	"fmt"
	"strings"

	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the process logger.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	// Debug disables sampling and adds stack traces to error entries.
	Debug bool
}

// New builds the process logger, installs it as the zap global and flushes
// it on shutdown.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if name := strings.TrimSpace(cfg.Level); name != "" {
		if err := level.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", name, err)
		}
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	zapCfg.Encoding = "json"
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.DisableStacktrace = !cfg.Debug
	if cfg.Debug {
		zapCfg.Sampling = nil
	}
	zapCfg.InitialFields = map[string]any{
		"service": cfg.ServiceName,
		"env":     cfg.Environment,
		"version": cfg.Version,
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)

	if lc != nil {
		lc.Append(fx.StopHook(func() {
			_ = log.Sync()
		}))
	}
	return log, nil
}

// FromContext returns the global logger with the request's correlation fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext adds whichever of request id, actor, client ip, order slug and
// trace ids ctx carries.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}

	fields := make([]zap.Field, 0, 7)
	add := func(key, value string) {
		if value != "" {
			fields = append(fields, zap.String(key, value))
		}
	}

	add("request_id", obscontext.RequestIDFromContext(ctx))
	actorType, actorID := obscontext.ActorFromContext(ctx)
	add("actor_type", actorType)
	add("actor_id", actorID)
	add("client_ip", obscontext.ClientIPFromContext(ctx))
	add("order_slug", obscontext.OrderSlugFromContext(ctx))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		add("trace_id", sc.TraceID().String())
		add("span_id", sc.SpanID().String())
	}

	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
