package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"filterpanel/internal/bootstrap/config"
	"filterpanel/internal/bootstrap/database"
	"filterpanel/internal/bootstrap/logging"
	rdbrepo "filterpanel/internal/infrastructure/persistence/rdb/repository"
	rdbuow "filterpanel/internal/infrastructure/persistence/rdb/uow"
	"filterpanel/internal/interfaces/httpapi"
	"filterpanel/internal/ports"
	"filterpanel/internal/usecase/inventory"
)

// logSink is where the configured logger writes.
var logSink io.Writer = os.Stderr

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			rdbrepo.NewInventoryRepository,
			fx.As(new(ports.FabricRepository)),
			fx.As(new(ports.AnomalyRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			rdbuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(inventory.NewService),
	fx.Provide(provideHTTPHandler),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLogger(cfg config.Config) (*slog.Logger, error) {
	logger, err := logging.New(logSink, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return logger.With(slog.String("app", cfg.App.Name), slog.String("env", cfg.App.Env)), nil
}

func provideDatabase(ctx context.Context, cfg config.Config, logger *slog.Logger) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(logging.WithLogger(ctx, logger), slog.String("component", "bootstrap.fx"))

	return database.Open(logCtx, cfg.Database)
}

func provideApp(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB, logger *slog.Logger) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return app.Close(logging.WithLogger(ctx, logger))
		},
	})

	return app
}

func provideHTTPHandler(cfg config.Config, svc *inventory.Service, logger *slog.Logger) http.Handler {
	return httpapi.NewHandler(svc, httpapi.Options{
		Environment: cfg.App.Env,
		StaticDir:   cfg.Server.StaticDir,
		Logger:      logger,
	})
}
