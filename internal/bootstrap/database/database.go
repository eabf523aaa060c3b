package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"filterpanel/internal/bootstrap/config"
	"filterpanel/internal/bootstrap/logging"
	"filterpanel/internal/errs"
)

func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.database"))
	gormCfg := gormConfig(logCtx)

	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case config.DriverSQLite, "sqlite3":
		if err := ensureSQLiteDirectory(logCtx, cfg.URL); err != nil {
			return nil, errs.Wrap(err, "ensure sqlite directory")
		}
		db, err = gorm.Open(gormsqlite.Open(cfg.URL), gormCfg)
		if err != nil {
			return nil, errs.Wrap(err, "open sqlite db")
		}
		logging.Info(logCtx, "database opened", slog.String("driver", config.DriverSQLite), slog.String("dsn", cfg.URL))
	case config.DriverPostgres:
		dsn, err := PostgresDSN(cfg.URL, cfg.RequireTLS)
		if err != nil {
			return nil, errs.Wrap(err, "build postgres dsn")
		}
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, errs.Wrap(err, "open postgres db")
		}
		logging.Info(logCtx, "database opened",
			slog.String("driver", config.DriverPostgres),
			slog.String("dsn", redact(dsn)),
			slog.Bool("require_tls", cfg.RequireTLS),
		)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errs.Wrap(err, "get sql db")
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// gormConfig keeps driver errors untranslated so the repository can read
// constraint names, and sends gorm's warnings through the context logger.
func gormConfig(ctx context.Context) *gorm.Config {
	sink := slog.NewLogLogger(logging.Logger(ctx).Handler(), slog.LevelWarn)
	return &gorm.Config{
		Logger: gormlogger.New(sink, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// PostgresDSN sets sslmode from requireTLS unless the URL already names one.
// "require" encrypts without verifying the server certificate.
func PostgresDSN(raw string, requireTLS bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", errs.Wrap(err, "parse database url")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("database url %q is not a postgres url", redact(raw))
	}

	q := u.Query()
	if q.Get("sslmode") == "" {
		if requireTLS {
			q.Set("sslmode", "require")
		} else {
			q.Set("sslmode", "disable")
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func ensureSQLiteDirectory(ctx context.Context, dsn string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	candidate := strings.TrimSpace(dsn)
	if candidate == "" || strings.Contains(candidate, ":memory:") {
		return nil
	}

	if strings.HasPrefix(strings.ToLower(candidate), "file:") {
		candidate = candidate[len("file:"):]
	}
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(err, "create sqlite directory %q", dir)
	}

	logging.Debug(ctx, "sqlite directory ensured", slog.String("dir", dir))
	return nil
}
