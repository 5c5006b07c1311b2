// internal/config/config.go
//
// Application configuration.
//
// Sources, lowest precedence first:
//   - built-in defaults
//   - config.yaml from the search paths; when it has a top-level section named
//     after `env` (e.g. "development", "test"), that section overrides the rest
//   - LANGMAN_* environment variables (dots become underscores, so
//     LANGMAN_GAMES_DSN sets games.dsn)
//
// Any string value written as "env:NAME" is replaced by $NAME.

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server reads.
type Config struct {
	Env          string        `mapstructure:"env"`
	Port         string        `mapstructure:"port"`
	LogLevel     string        `mapstructure:"log_level"`
	ClientOrigin string        `mapstructure:"client_origin"`
	JWTSecret    string        `mapstructure:"jwt_secret_key"`
	TokenTTL     time.Duration `mapstructure:"jwt_access_token_expires"`

	Games GamesConfig    `mapstructure:"games"`
	Usage UsageConfig    `mapstructure:"usage"`
	Auth  DatabaseConfig `mapstructure:"auth"`
}

// DatabaseConfig names a driver and its data source.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// GamesConfig configures the game/player store.
type GamesConfig struct {
	DatabaseConfig `mapstructure:",squash"`
	MaxRetries     int `mapstructure:"max_retries"`
}

// UsageConfig configures the phrase bank.
type UsageConfig struct {
	DatabaseConfig `mapstructure:",squash"`
	SeedFile       string `mapstructure:"seed_file"`
}

// Driver names accepted in configuration.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "5175")
	v.SetDefault("log_level", "info")
	v.SetDefault("client_origin", "http://localhost:5173")
	v.SetDefault("jwt_secret_key", "")
	v.SetDefault("jwt_access_token_expires", "24h")

	v.SetDefault("games.driver", DriverSQLite)
	v.SetDefault("games.dsn", "./data/games.db")
	v.SetDefault("games.max_retries", 3)

	v.SetDefault("usage.driver", DriverSQLite)
	v.SetDefault("usage.dsn", "./data/usages.db")
	v.SetDefault("usage.seed_file", "")

	v.SetDefault("auth.driver", DriverSQLite)
	v.SetDefault("auth.dsn", "./data/auth.db")
}

// Load reads configuration. paths are searched for config.yaml; with none
// given, "./config" and "." are used. A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("langman")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if env := v.GetString("env"); v.IsSet(env) {
		if section, ok := v.Get(env).(map[string]any); ok {
			if err := v.MergeConfigMap(section); err != nil {
				return nil, fmt.Errorf("merge %s section: %w", env, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.resolveEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveEnv replaces "env:NAME" values with the named environment variable.
func (c *Config) resolveEnv() error {
	fields := []*string{
		&c.Port, &c.LogLevel, &c.ClientOrigin, &c.JWTSecret,
		&c.Games.DSN, &c.Usage.DSN, &c.Usage.SeedFile, &c.Auth.DSN,
	}
	for _, f := range fields {
		name, ok := strings.CutPrefix(*f, "env:")
		if !ok {
			continue
		}
		val, set := os.LookupEnv(name)
		if !set {
			return fmt.Errorf("config: environment variable %s is not set", name)
		}
		*f = val
	}
	return nil
}

// Validate checks required settings and known drivers.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("config: jwt_secret_key is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("config: jwt_access_token_expires must be positive, got %s", c.TokenTTL)
	}
	if c.Games.MaxRetries <= 0 {
		return fmt.Errorf("config: games.max_retries must be positive, got %d", c.Games.MaxRetries)
	}
	for name, d := range map[string]string{
		"games": c.Games.Driver,
		"usage": c.Usage.Driver,
		"auth":  c.Auth.Driver,
	} {
		switch d {
		case DriverMemory, DriverSQLite, "sqlite3", DriverPostgres:
		default:
			return fmt.Errorf("config: %s.driver %q is not one of memory, sqlite, postgres", name, d)
		}
	}
	return nil
}

// IsProduction reports whether env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
