package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/notification/domain"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Gateway domain.Gateway
	Config  *config.NotificationConfigHolder

	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	gateway domain.Gateway
	config  *config.NotificationConfigHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		gateway: p.Gateway,
		config:  p.Config,
		metrics: p.Metrics,
	}
}

func (s *Service) NotifyOrderPlaced(ctx context.Context, order orderdomain.Order) error {
	if order.Customer == nil {
		return errors.New("order customer not loaded")
	}

	cfg := s.config.Get()
	body, err := render(cfg.OrderPlacedTemplate, domain.OrderPlacedMessage{
		CustomerName: order.Customer.Name,
		CustomerCode: order.Customer.Code,
		Item:         order.Item,
		Amount:       order.Amount.StringFixed(orderdomain.AmountDecimalPlaces),
		Slug:         order.Slug,
		OrderID:      order.ID.String(),
	})
	if err != nil {
		return err
	}

	provider := s.gateway.Name()
	ctx, span := otel.Tracer("orderdesk/notification").Start(ctx, "sms.send")
	receipt, sendErr := s.gateway.Send(ctx, cfg.Destination, body)

	now := s.clock.Now()
	record := &domain.Notification{
		ID:          s.genID.Generate(),
		Reference:   ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		OrderID:     order.ID,
		Destination: cfg.Destination,
		Body:        body,
		Provider:    provider,
		Status:      domain.StatusSent,
		Response:    datatypes.JSONMap{},
		CreatedAt:   now,
	}

	if sendErr != nil {
		record.Status = domain.StatusFailed
		record.Error = sendErr.Error()
		var de *domain.DeliveryError
		if errors.As(sendErr, &de) && de.Raw != nil {
			record.Response = datatypes.JSONMap(de.Raw)
		}
		span.RecordError(tracing.SafeError(sendErr))
		span.SetStatus(codes.Error, "sms delivery failed")
	} else {
		record.ProviderMessageID = receipt.MessageID
		if receipt.Raw != nil {
			record.Response = datatypes.JSONMap(receipt.Raw)
		}
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("notification.provider", provider),
		attribute.String("notification.status", string(record.Status)),
		attribute.String("order.slug", order.Slug),
	)...)
	span.End()

	s.metrics.RecordNotification(ctx, provider, string(record.Status))

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		// the message outcome stands even if the audit row is lost
		s.log.Error("failed to record notification",
			zap.String("order_id", order.ID.String()),
			zap.String("reference", record.Reference),
			zap.Error(err),
		)
	}

	if sendErr != nil {
		s.log.Warn("order notification failed",
			zap.String("order_id", order.ID.String()),
			zap.String("provider", provider),
			zap.String("reference", record.Reference),
			zap.Error(sendErr),
		)
		return sendErr
	}

	s.log.Info("order notification sent",
		zap.String("order_id", order.ID.String()),
		zap.String("provider", provider),
		zap.String("provider_message_id", receipt.MessageID),
	)
	return nil
}

func render(source string, data domain.OrderPlacedMessage) (string, error) {
	tmpl, err := template.New("order_placed").Option("missingkey=error").Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse message template: %w", err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render message template: %w", err)
	}
	return sb.String(), nil
}
