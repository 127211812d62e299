package observability

import (
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module provides the zap logger, the OTel tracer and meter providers, the
// service metrics and the prometheus registry served on /metrics.
var Module = fx.Module("observability",
	fx.Provide(NewConfig),
	fx.Provide(
		fx.Private,
		Config.logger,
		Config.tracing,
		Config.metrics,
	),
	fx.Provide(
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewRegistry,
		metrics.NewHTTPMetrics,
	),
	// the tracer provider registers itself globally and has no direct consumer
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
