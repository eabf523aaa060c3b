package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filterpanel/internal/bootstrap/logging"
	"filterpanel/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the inventory HTTP API and the panel frontend",
	RunE: withApp(func(cmd *cobra.Command, deps appDeps) error {
		ctx := cmd.Context()
		cfg := deps.App.Config

		// A failed migration is logged; the server still listens.
		if err := deps.App.InitSchema(ctx); err != nil {
			logging.Error(ctx, "schema initialization failed, serving anyway", slog.Any("err", errs.Loggable(err)))
		}

		server := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           deps.Handler,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.Server.WriteTimeout,
		}

		sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server started",
				slog.String("addr", server.Addr),
				slog.String("env", cfg.App.Env),
				slog.String("static_dir", cfg.Server.StaticDir),
			)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error(ctx, "http server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve http")
			}
			return nil
		case <-sigCtx.Done():
		}

		logging.Info(ctx, "shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		logging.Info(ctx, "http server stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
