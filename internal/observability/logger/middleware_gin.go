package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps a handler error to an (error_type, error_code) pair.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware assigns the request id and writes one http_request line per
// request once the handler chain has finished.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithClientIP(ctx, c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, errorFields(cfg, last.Err)...)
		}

		// c.Request carries the actor and order slug set by handlers
		if ce := FromContext(c.Request.Context()).Check(levelFor(route, status), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func errorFields(cfg MiddlewareConfig, err error) []zap.Field {
	var errorType, errorCode string
	if cfg.ErrorClassifier != nil {
		errorType, errorCode = cfg.ErrorClassifier(err)
	}
	fields := []zap.Field{
		zap.String("error_type", errorType),
		zap.String("error_code", errorCode),
	}
	if cfg.Debug {
		fields = append(fields, zap.Stack("stack"))
	}
	return fields
}

// levelFor keeps probes out of info logs and surfaces server errors.
func levelFor(route string, status int) zapcore.Level {
	switch {
	case route == "/health" || route == "/metrics":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
