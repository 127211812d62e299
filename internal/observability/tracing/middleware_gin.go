package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span named after the matched route. Actor and
// order slug are attached after the handler has run, since authentication
// and order lookup happen downstream.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("orderdesk/http")
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(SafeAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("request_id", obscontext.RequestIDFromContext(ctx)),
			)...),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(SafeAttributes(requestAttributes(c, status)...)...)
		if status < http.StatusInternalServerError {
			return
		}
		if last := c.Errors.Last(); last != nil {
			span.RecordError(SafeError(last.Err))
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

func requestAttributes(c *gin.Context, status int) []attribute.KeyValue {
	ctx := c.Request.Context()
	attrs := []attribute.KeyValue{attribute.Int("http.status_code", status)}
	if actorType, actorID := obscontext.ActorFromContext(ctx); actorID != "" {
		attrs = append(attrs,
			attribute.String("actor.type", actorType),
			attribute.String("actor.id", actorID),
		)
	}
	if slug := obscontext.OrderSlugFromContext(ctx); slug != "" {
		attrs = append(attrs, attribute.String("order.slug", slug))
	}
	return attrs
}
