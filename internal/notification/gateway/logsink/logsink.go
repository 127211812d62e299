// Package logsink is a development gateway that logs messages instead of
// sending them.
package logsink

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/orderdesk/internal/notification/domain"
	"go.uber.org/zap"
)

const ProviderName = "log"

type Gateway struct {
	log *zap.Logger
}

func New(log *zap.Logger) *Gateway {
	return &Gateway{log: log.Named("sms.logsink")}
}

func (g *Gateway) Name() string {
	return ProviderName
}

func (g *Gateway) Send(_ context.Context, destination, body string) (domain.Receipt, error) {
	id := ulid.Make().String()
	g.log.Info("sms not sent, logging only",
		zap.String("message_id", id),
		zap.String("destination", destination),
		zap.String("body", body),
	)
	return domain.Receipt{
		MessageID: id,
		Status:    "Logged",
		Raw:       map[string]any{"message_id": id},
	}, nil
}

var _ domain.Gateway = (*Gateway)(nil)
