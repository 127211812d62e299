package server

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	contextUserIDKey = "user_id"
	bearerPrefix     = "bearer "
)

// TokenLimiter throttles token requests per client IP.
type TokenLimiter interface {
	AllowTokenRequest(ctx context.Context, clientIP string) (ratelimit.Decision, error)
}

// AuthRequired rejects requests without a valid access token before any
// body is read.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		raw := strings.TrimSpace(header[len(bearerPrefix):])
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, user.ID.String())
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), "user", user.ID.String()))
		c.Next()
	}
}

// TokenRateLimit throttles the token endpoint per client IP.
func (s *Server) TokenRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.tokenLimiter == nil {
			c.Next()
			return
		}

		res, err := s.tokenLimiter.AllowTokenRequest(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("token rate limit check failed", zap.Error(err))
		}
		if err != nil || res.Allowed {
			c.Next()
			return
		}

		wait := int(math.Ceil(res.RetryAfter.Seconds()))
		if wait < 1 {
			wait = 1
		}
		c.Header("Retry-After", strconv.Itoa(wait))
		AbortWithError(c, &DetailError{
			Status: http.StatusTooManyRequests,
			Detail: fmt.Sprintf("Request was throttled. Expected available in %d seconds.", wait),
		})
	}
}
