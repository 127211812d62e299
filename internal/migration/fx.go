package migration

import (
	"github.com/smallbiznis/orderdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		log = log.Named("migration")
		if cfg.DBType != "postgres" {
			log.Info("applying schema from models", zap.String("type", cfg.DBType))
			return AutoMigrate(conn)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		log.Info("applying versioned migrations")
		return RunMigrations(sqlDB)
	}),
)
