// Package config loads drivesweep settings from defaults, an optional yaml file and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "DRIVESWEEP"
	configFileName = "drivesweep"

	ModeRelease = "release"
	ModeDev     = "dev"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all runtime settings.
type Config struct {
	Mode     string         `mapstructure:"mode"`
	Debug    bool           `mapstructure:"debug"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Google   GoogleConfig   `mapstructure:"google"`
	Session  SessionConfig  `mapstructure:"session"`
	Frontend FrontendConfig `mapstructure:"frontend"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	Bulk     BulkConfig     `mapstructure:"bulk"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port for the listener.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	MaxAge       time.Duration `mapstructure:"max_age"`
}

type FrontendConfig struct {
	SuccessURL string `mapstructure:"success_url"`
	ErrorURL   string `mapstructure:"error_url"`
}

type CleanupConfig struct {
	UnusedAfter        time.Duration `mapstructure:"unused_after"`
	LargeMinSize       int64         `mapstructure:"large_min_size"`
	StaleModifiedAfter time.Duration `mapstructure:"stale_modified_after"`
}

type BulkConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

// SetDefaults registers every key so env overrides resolve even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", ModeDev)
	v.SetDefault("debug", false)

	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 4000)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "drivesweep.db")
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("google.redirect_url", "http://localhost:4000/auth/google/callback")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.max_age", 24*time.Hour)

	v.SetDefault("frontend.success_url", "http://localhost:3000/auth/success")
	v.SetDefault("frontend.error_url", "http://localhost:3000/auth/error")

	v.SetDefault("cleanup.unused_after", 365*24*time.Hour)
	v.SetDefault("cleanup.large_min_size", int64(100*1024*1024))
	v.SetDefault("cleanup.stale_modified_after", 30*24*time.Hour)

	v.SetDefault("bulk.concurrency", 1)
	v.SetDefault("bulk.call_timeout", 30*time.Second)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", 5*time.Minute)
}

// New returns a viper instance wired for drivesweep: defaults, env and config search paths.
func New(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.drivesweep")
	}
	return v
}

// Load reads the config file (if any) and decodes everything into a Config.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("📄 Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Cleanup.UnusedAfter <= 0 {
		return fmt.Errorf("cleanup.unused_after must be positive")
	}
	if c.Bulk.Concurrency < 1 {
		c.Bulk.Concurrency = 1
	}
	if c.Bulk.CallTimeout <= 0 {
		return fmt.Errorf("bulk.call_timeout must be positive")
	}
	return nil
}

// IsRelease reports whether the service runs in release mode.
func (c *Config) IsRelease() bool {
	return c.Mode == ModeRelease
}
