package config

import (
	"errors"
	"io/fs"
	"strings"
	"sync/atomic"
	"text/template"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const DefaultOrderPlacedTemplate = "Dear {{.CustomerName}}, your order for {{.Item}} has been successfully placed."

// NotificationConfig is the hot-reloadable part of the SMS setup.
type NotificationConfig struct {
	Destination         string `mapstructure:"destination"`
	OrderPlacedTemplate string `mapstructure:"orderPlacedTemplate"`
}

type NotificationConfigHolder struct {
	current atomic.Value // holds NotificationConfig
}

// NewStaticNotificationConfigHolder returns a holder that never reloads.
func NewStaticNotificationConfigHolder(cfg NotificationConfig) (*NotificationConfigHolder, error) {
	if err := validateNotificationConfig(cfg); err != nil {
		return nil, err
	}
	holder := &NotificationConfigHolder{}
	holder.current.Store(cfg)
	return holder, nil
}

// NewNotificationConfigHolder reads notification.yml when present and
// watches it for changes. Environment values are the defaults.
func NewNotificationConfigHolder(cfg Config, log *zap.Logger) (*NotificationConfigHolder, error) {
	log = log.Named("notification.config")
	defaults := NotificationConfig{
		Destination:         cfg.SMS.Destination,
		OrderPlacedTemplate: DefaultOrderPlacedTemplate,
	}

	v := viper.New()
	if cfg.SMS.ConfigPath != "" {
		v.SetConfigFile(cfg.SMS.ConfigPath)
	} else {
		v.SetConfigName("notification")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/orderdesk")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("sms.destination", defaults.Destination)
	v.SetDefault("sms.orderPlacedTemplate", defaults.OrderPlacedTemplate)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		log.Debug("no notification config file, using defaults")
		found = false
	}

	var current NotificationConfig
	if err := v.UnmarshalKey("sms", &current); err != nil {
		return nil, err
	}
	if err := validateNotificationConfig(current); err != nil {
		return nil, err
	}

	holder := &NotificationConfigHolder{}
	holder.current.Store(current)

	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NotificationConfig
		if err := v.UnmarshalKey("sms", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateNotificationConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *NotificationConfigHolder) Get() NotificationConfig {
	return h.current.Load().(NotificationConfig)
}

func validateNotificationConfig(cfg NotificationConfig) error {
	if strings.TrimSpace(cfg.Destination) == "" {
		return errors.New("sms.destination cannot be empty")
	}
	if strings.TrimSpace(cfg.OrderPlacedTemplate) == "" {
		return errors.New("sms.orderPlacedTemplate cannot be empty")
	}
	if _, err := template.New("order_placed").Option("missingkey=error").Parse(cfg.OrderPlacedTemplate); err != nil {
		return err
	}
	return nil
}
