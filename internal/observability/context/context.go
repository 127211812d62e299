package context

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	actorTypeKey ctxKey = "actor_type"
	actorIDKey   ctxKey = "actor_id"
	clientIPKey  ctxKey = "client_ip"
	orderSlugKey ctxKey = "order_slug"
)

// WithRequestID stores the request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithActor records who is acting on the request, e.g. ("user", "1234").
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, actorTypeKey, strings.TrimSpace(actorType))
	return context.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
}

func ActorFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, actorTypeKey), stringValue(ctx, actorIDKey)
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, strings.TrimSpace(ip))
}

func ClientIPFromContext(ctx context.Context) string {
	return stringValue(ctx, clientIPKey)
}

// WithOrderSlug tags the request with the order it created or read.
func WithOrderSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, orderSlugKey, strings.TrimSpace(slug))
}

func OrderSlugFromContext(ctx context.Context) string {
	return stringValue(ctx, orderSlugKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
