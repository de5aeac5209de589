package store

import (
	"context"
	"log/slog"

	"github.com/smarthunt/realtime-service/config"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("store",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
			return Open(cfg.Database.DSN, logger)
		},
		NewStore,
	),
	fx.Invoke(func(lc fx.Lifecycle, db *gorm.DB) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		})
	}),
)
