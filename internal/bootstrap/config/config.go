package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"filterpanel/internal/bootstrap/logging"
	"filterpanel/internal/errs"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	RequireTLS      bool          `mapstructure:"require_tls"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	StaticDir       string        `mapstructure:"static_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}

// Load reads .env (if present), the optional config file and the environment.
// Environment variables win over the file.
func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	if err := godotenv.Load(); err == nil {
		logging.Info(logCtx, "loaded .env file")
	}

	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return Config{}, errs.Wrap(err, "bind env")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Debug(logCtx, "config file not found, using defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	cfg.Database.URL = strings.TrimSpace(cfg.Database.URL)
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = InferDriver(cfg.Database.URL)
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	if !v.IsSet("database.require_tls") {
		cfg.Database.RequireTLS = cfg.App.IsProduction()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errs.Wrap(err, "validate config")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("database_require_tls", cfg.Database.RequireTLS),
		slog.Int("port", cfg.Server.Port),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", c.Log.Format)
	}
	return nil
}

// InferDriver picks postgres for postgres URLs and sqlite for anything else.
func InferDriver(dsn string) string {
	u, err := url.Parse(dsn)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "postgres", "postgresql":
			return DriverPostgres
		}
	}
	return DriverSQLite
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "filterpanel")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("database.driver", "")
	v.SetDefault("database.url", "data/filterpanel.sqlite")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.static_dir", "public")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// bindEnv maps the deployment variables (DATABASE_URL, PORT, NODE_ENV...) onto config keys.
func bindEnv(v *viper.Viper) error {
	bindings := [][]string{
		{"app.name", "APP_NAME"},
		{"app.env", "APP_ENV", "NODE_ENV"},
		{"database.driver", "DATABASE_DRIVER"},
		{"database.url", "DATABASE_URL"},
		{"database.require_tls", "DATABASE_REQUIRE_TLS"},
		{"database.max_open_conns", "DATABASE_MAX_OPEN_CONNS"},
		{"database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS"},
		{"database.conn_max_lifetime", "DATABASE_CONN_MAX_LIFETIME"},
		{"server.port", "PORT"},
		{"server.static_dir", "STATIC_DIR"},
		{"server.read_timeout", "SERVER_READ_TIMEOUT"},
		{"server.write_timeout", "SERVER_WRITE_TIMEOUT"},
		{"server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT"},
		{"log.level", "LOG_LEVEL"},
		{"log.format", "LOG_FORMAT"},
	}
	for _, binding := range bindings {
		if err := v.BindEnv(binding...); err != nil {
			return errs.Wrapf(err, "bind %s", binding[0])
		}
	}
	return nil
}
