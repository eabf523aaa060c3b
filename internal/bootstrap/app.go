package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"filterpanel/internal/bootstrap/config"
	"filterpanel/internal/bootstrap/logging"
	"filterpanel/internal/errs"
	"filterpanel/internal/infrastructure/persistence/rdb"
)

// App owns the process-wide handles: config, logger and the store.
type App struct {
	Config config.Config
	DB     *gorm.DB
	Logger *slog.Logger
}

// InitSchema creates the tables and indexes if they are missing.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	if err := rdb.Migrate(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), a.DB); err != nil {
		return errs.Wrap(err, "migrate schema")
	}
	return nil
}

func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}

	if err := sqlDB.Close(); err != nil {
		return errs.Wrap(err, "close sql db")
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), "database connection closed")
	return nil
}
