package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for weatherd.
type Config struct {
	ListenAddr string         `mapstructure:"listen_addr"`
	LogFormat  string         `mapstructure:"log_format"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Upstream   UpstreamConfig `mapstructure:"upstream"`
	Refresh    RefreshConfig  `mapstructure:"refresh"`
}

// StorageConfig defines the database backend.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite", "postgres" or "memory"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// UpstreamConfig holds the third-party API credentials and per-call limits.
// The base URLs exist so tests can point clients at fake servers.
type UpstreamConfig struct {
	OpenWeatherAPIKey string        `mapstructure:"openweather_api_key"`
	GoogleMapsAPIKey  string        `mapstructure:"google_maps_api_key"`
	YouTubeAPIKey     string        `mapstructure:"youtube_api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ForecastDays      int           `mapstructure:"forecast_days"`

	OpenWeatherBaseURL string `mapstructure:"openweather_base_url"`
	GoogleMapsBaseURL  string `mapstructure:"google_maps_base_url"`
	YouTubeBaseURL     string `mapstructure:"youtube_base_url"`
	NominatimBaseURL   string `mapstructure:"nominatim_base_url"`
}

// RefreshConfig controls background re-fetching of stored queries.
type RefreshConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// Load reads configuration from flag path, env vars, then default file paths.
// Precedence: flag → $WEATHERD_CONFIG env → ~/.config/weatherd/config.yaml → /etc/weatherd/config.yaml
// A .env file in the working directory is loaded first so API keys can live
// beside the binary during development.
func Load(configPath string) (*Config, error) {
	// Keys may come from a .env file beside the binary.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_format", "json")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "weather.db")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.forecast_days", 5)
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.interval", 30*time.Minute)
	v.SetDefault("refresh.max_age", time.Hour)

	// Env var support (WEATHERD_STORAGE_DRIVER, etc.).
	v.SetEnvPrefix("WEATHERD")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv("WEATHERD_CONFIG"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "weatherd"))
		}
		v.AddConfigPath("/etc/weatherd")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		// Warn if config file is world-readable; it may hold API keys.
		if cfgPath := v.ConfigFileUsed(); cfgPath != "" {
			if info, err := os.Stat(cfgPath); err == nil {
				perm := info.Mode().Perm()
				if perm&0004 != 0 {
					slog.Warn("config file is world-readable", "path", cfgPath, "permissions", fmt.Sprintf("%04o", perm))
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Viper's AutomaticEnv does not map env vars onto nested struct fields
	// that are absent from the file, so the credential keys are wired
	// explicitly. The unprefixed names are the ones .env files usually carry.
	applyEnv(&cfg.Upstream.OpenWeatherAPIKey, "WEATHERD_OPENWEATHER_API_KEY", "OPENWEATHER_API_KEY")
	applyEnv(&cfg.Upstream.GoogleMapsAPIKey, "WEATHERD_GOOGLE_MAPS_API_KEY", "GOOGLE_MAPS_API_KEY")
	applyEnv(&cfg.Upstream.YouTubeAPIKey, "WEATHERD_YOUTUBE_API_KEY", "YOUTUBE_API_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func applyEnv(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

// Validate checks that the configuration is complete and correct.
func (c *Config) Validate() error {
	if c.Upstream.OpenWeatherAPIKey == "" {
		return fmt.Errorf("upstream.openweather_api_key is required")
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Upstream.ForecastDays <= 0 || c.Upstream.ForecastDays > 5 {
		return fmt.Errorf("upstream.forecast_days must be between 1 and 5")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite driver")
		}
		dir := filepath.Dir(c.Storage.SQLite.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("creating storage directory %q: %w", dir, err)
			}
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver must be 'sqlite', 'postgres' or 'memory', got %q", c.Storage.Driver)
	}

	if c.Refresh.Enabled {
		if c.Refresh.Interval <= 0 {
			return fmt.Errorf("refresh.interval must be positive")
		}
		if c.Refresh.MaxAge <= 0 {
			return fmt.Errorf("refresh.max_age must be positive")
		}
	}

	// Validate listen_addr.
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen_addr %q is not a valid address: %w", c.ListenAddr, err)
	}

	return nil
}

// DSN returns the appropriate DSN for the configured storage driver.
func (c *Config) DSN() string {
	switch c.Storage.Driver {
	case "sqlite":
		return c.Storage.SQLite.Path
	case "postgres":
		return c.Storage.Postgres.DSN
	default:
		return ""
	}
}
