package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/observability/logger"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	msgNotAuthenticated   = "Authentication credentials were not provided."
	msgTokenNotValid      = "Given token not valid for any token type"
	msgRefreshNotValid    = "Token is invalid or expired"
	msgNoActiveAccount    = "No active account found with the given credentials"
	msgNotFound           = "Not found."
	msgJSONParse          = "JSON parse error"
	msgSlugUnavailable    = "Could not assign a unique slug, please retry."
	msgInternal           = "internal server error"
	msgServiceUnavailable = "service unavailable"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrJSONParse          = errors.New("json_parse_error")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// DetailError carries a client-facing message for a specific status.
type DetailError struct {
	Status int
	Detail string
	Err    error
}

func (e *DetailError) Error() string {
	return e.Detail
}

func (e *DetailError) Unwrap() error {
	return e.Err
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed",
				zap.String("route", c.FullPath()),
				zap.Error(lastErr.Err),
			)
		}
		if status == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", `Bearer realm="api"`)
		}
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, any) {
	if err == nil {
		return http.StatusInternalServerError, detailResponse{Detail: msgInternal}
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return http.StatusBadRequest, fieldErrs
	}

	var detailErr *DetailError
	if errors.As(err, &detailErr) {
		return detailErr.Status, detailResponse{Detail: detailErr.Detail}
	}

	switch {
	case errors.Is(err, ErrJSONParse):
		return http.StatusBadRequest, detailResponse{Detail: msgJSONParse}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, detailResponse{Detail: msgNotAuthenticated}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, detailResponse{Detail: msgNoActiveAccount}
	case isTokenError(err):
		return http.StatusUnauthorized, detailResponse{Detail: msgTokenNotValid}
	case isNotFoundError(err):
		return http.StatusNotFound, detailResponse{Detail: msgNotFound}
	case errors.Is(err, orderdomain.ErrSlugUnavailable):
		return http.StatusConflict, detailResponse{Detail: msgSlugUnavailable}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, detailResponse{Detail: msgServiceUnavailable}
	default:
		return http.StatusInternalServerError, detailResponse{Detail: msgInternal}
	}
}

func isTokenError(err error) bool {
	switch {
	case errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired),
		errors.Is(err, authdomain.ErrTokenRevoked),
		errors.Is(err, authdomain.ErrTokenNotFound),
		errors.Is(err, authdomain.ErrUserInactive):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the error type and code logged with a request.
func classifyErrorForLog(err error) (string, string) {
	status, _ := mapError(err)
	switch {
	case status == http.StatusBadRequest:
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			return "validation_error", "invalid_fields"
		}
		var detailErr *DetailError
		if errors.As(err, &detailErr) {
			return "delivery_error", "notification_failed"
		}
		return "invalid_request", "json_parse_error"
	case status == http.StatusUnauthorized:
		return "unauthorized", "not_authenticated"
	case status == http.StatusNotFound:
		return "not_found", "not_found"
	case status == http.StatusConflict:
		return "conflict", "slug_unavailable"
	case status == http.StatusTooManyRequests:
		return "rate_limited", "throttled"
	case status == http.StatusServiceUnavailable:
		return "unavailable", "service_unavailable"
	default:
		return "internal_error", "internal"
	}
}
