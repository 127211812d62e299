package notification

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/notification/domain"
	"github.com/smallbiznis/orderdesk/internal/notification/gateway/africastalking"
	"github.com/smallbiznis/orderdesk/internal/notification/gateway/logsink"
	"github.com/smallbiznis/orderdesk/internal/notification/repository"
	"github.com/smallbiznis/orderdesk/internal/notification/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification.service",
	fx.Provide(NewGateway),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

// NewGateway picks the SMS provider from configuration. Without an api key
// outside production messages are only logged.
func NewGateway(cfg config.Config, log *zap.Logger) (domain.Gateway, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.SMS.Provider))
	if provider == logsink.ProviderName || (cfg.SMS.APIKey == "" && !cfg.IsProduction()) {
		log.Warn("sms provider is log only, messages will not be delivered")
		return logsink.New(log), nil
	}

	switch provider {
	case africastalking.ProviderName, "":
		client, err := africastalking.New(africastalking.Config{
			Username: cfg.SMS.Username,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
			Endpoint: cfg.SMS.Endpoint,
			Timeout:  cfg.SMS.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", provider)
	}
}
