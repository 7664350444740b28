package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var Module = fx.Provide(NewConfig)

type (
	Config struct {
		Host        string `mapstructure:"HOST"`
		Port        string `mapstructure:"PORT"`
		GRPCPort    string `mapstructure:"GRPC_PORT"`
		Environment string `mapstructure:"ENVIRONMENT"`
		LogLevel    string `mapstructure:"LOG_LEVEL"`

		DBDriver   string `mapstructure:"DB_DRIVER"`
		DBPath     string `mapstructure:"DB_PATH"`
		DBHost     string `mapstructure:"DB_HOST"`
		DBPort     string `mapstructure:"DB_PORT"`
		DBUser     string `mapstructure:"DB_USER"`
		DBPassword string `mapstructure:"DB_PASSWORD"`
		DBName     string `mapstructure:"DB_NAME"`
		DBSSLMode  string `mapstructure:"DB_SSL_MODE"`

		CacheEnabled bool          `mapstructure:"CACHE_ENABLED"`
		CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

		CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
		SyncBodyLimit string   `mapstructure:"SYNC_BODY_LIMIT"`
		RateLimit     float64  `mapstructure:"RATE_LIMIT"`
	}
)

var defaults = map[string]interface{}{
	"HOST":            "0.0.0.0",
	"PORT":            "1323",
	"GRPC_PORT":       "9000",
	"ENVIRONMENT":     "prod",
	"LOG_LEVEL":       "info",
	"DB_DRIVER":       DriverSQLite,
	"DB_PATH":         "bookmarks.db",
	"DB_HOST":         "0.0.0.0",
	"DB_PORT":         "5432",
	"DB_USER":         "user",
	"DB_PASSWORD":     "password",
	"DB_NAME":         "db",
	"DB_SSL_MODE":     sslModeDisable,
	"CACHE_ENABLED":   true,
	"CACHE_TTL":       24 * time.Hour,
	"CORS_ORIGINS":    []string{"*"},
	"SYNC_BODY_LIMIT": "10M",
	"RATE_LIMIT":      20.0,
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BOOKMARKSYNC")

	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// IsDev reports whether verbose, human readable output is wanted.
func (c *Config) IsDev() bool {
	return c.Environment == "dev" || c.LogLevel == "debug"
}

func validate(cfg *Config) error {
	if cfg.DBDriver != DriverSQLite && cfg.DBDriver != DriverPostgres {
		return errors.New(fmt.Sprintf("DB driver is invalid: %s", cfg.DBDriver))
	}
	if cfg.DBDriver == DriverSQLite && cfg.DBPath == "" {
		return errors.New("DB path is required for sqlite")
	}
	if cfg.CacheEnabled && cfg.CacheTTL <= 0 {
		return errors.New(fmt.Sprintf("cache TTL must be positive: %s", cfg.CacheTTL))
	}
	if cfg.RateLimit < 0 {
		return errors.New(fmt.Sprintf("rate limit must not be negative: %v", cfg.RateLimit))
	}

	validSSLValues := []string{sslModeDisable, sslModeRequire}
	for _, validValue := range validSSLValues {
		if cfg.DBSSLMode == validValue {
			return nil
		}
	}
	return errors.New(fmt.Sprintf("DB SSL mode is invalid: %s", cfg.DBSSLMode))
}
