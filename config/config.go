package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DataPaths holds data directory and file path configuration.
// These paths can be overridden via environment variables.
type DataPaths struct {
	// DataDir is the base data directory (CROSSWALK_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file path (CROSSWALK_SQLITE_PATH, default: ${DataDir}/crosswalk.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LogConfig controls the zap logger built at startup
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// APIConfig controls the HTTP surface
type APIConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// StorageConfig controls the SQLite connection pools
type StorageConfig struct {
	ReadPoolSize    int           `mapstructure:"read_pool_size"`
	BusyTimeoutMS   int           `mapstructure:"busy_timeout_ms"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
}

// Config holds all configuration for the crosswalk service
type Config struct {
	DataPaths DataPaths     `mapstructure:"data_paths"`
	Log       LogConfig     `mapstructure:"log"`
	API       APIConfig     `mapstructure:"api"`
	Storage   StorageConfig `mapstructure:"storage"`
}

// Addr returns the host:port the API listens on
func (a APIConfig) Addr() string {
	return net.JoinHostPort(a.Host, fmt.Sprintf("%d", a.Port))
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("data_paths.data_dir", "./data")
	viper.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")

	viper.SetDefault("api.host", "127.0.0.1")
	viper.SetDefault("api.port", 8081)
	viper.SetDefault("api.read_timeout", 15*time.Second)
	viper.SetDefault("api.write_timeout", 30*time.Second)
	viper.SetDefault("api.metrics_enabled", true)
	viper.SetDefault("api.allowed_origins", []string{})
	viper.SetDefault("api.max_body_bytes", 1<<20) // 1MB

	viper.SetDefault("storage.read_pool_size", 10)
	viper.SetDefault("storage.busy_timeout_ms", 5000)
	viper.SetDefault("storage.metrics_interval", 15*time.Second)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv() {
	viper.SetEnvPrefix("CROSSWALK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicit bindings give the path settings shorter env var names
	_ = viper.BindEnv("data_paths.data_dir", "CROSSWALK_DATA_DIR")
	_ = viper.BindEnv("data_paths.sqlite_path", "CROSSWALK_SQLITE_PATH")
}

// LoadConfig reads config.yaml (from . or ./config), environment variables and
// defaults, in increasing order of precedence: defaults, file, environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and env vars only
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	config.ResolveDataPaths()
	return &config, nil
}

// ResolveDataPaths derives SQLitePath from DataDir when it is not explicitly set
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "crosswalk.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		// Relative to the working directory, not data_dir
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}

	c.DataPaths.DataDir = dataDir
}

// GetDataDir returns the resolved base data directory
func (c *Config) GetDataDir() string {
	if c.DataPaths.DataDir == "" {
		return "./data"
	}
	return c.DataPaths.DataDir
}

// GetSQLitePath returns the resolved SQLite database path
func (c *Config) GetSQLitePath() string {
	if c.DataPaths.SQLitePath == "" {
		return filepath.Join(c.GetDataDir(), "crosswalk.db")
	}
	return c.DataPaths.SQLitePath
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validateConfig validates the configuration for correctness
func validateConfig(config *Config) error {
	if config.API.Port < 1 || config.API.Port > 65535 {
		return fmt.Errorf("invalid api.port %d: must be between 1 and 65535", config.API.Port)
	}
	if strings.TrimSpace(config.API.Host) == "" {
		return fmt.Errorf("api.host cannot be empty")
	}
	if config.API.ReadTimeout <= 0 || config.API.WriteTimeout <= 0 {
		return fmt.Errorf("api.read_timeout and api.write_timeout must be positive")
	}
	if config.API.MaxBodyBytes <= 0 {
		return fmt.Errorf("api.max_body_bytes must be positive")
	}

	if !validLogLevels[strings.ToLower(config.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", config.Log.Level)
	}
	switch strings.ToLower(config.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log.format %q: must be console or json", config.Log.Format)
	}

	if config.Storage.ReadPoolSize < 1 || config.Storage.ReadPoolSize > 100 {
		return fmt.Errorf("invalid storage.read_pool_size %d: must be between 1 and 100", config.Storage.ReadPoolSize)
	}
	if config.Storage.BusyTimeoutMS < 0 {
		return fmt.Errorf("storage.busy_timeout_ms cannot be negative")
	}
	if config.Storage.MetricsInterval < 0 {
		return fmt.Errorf("storage.metrics_interval cannot be negative")
	}
	return nil
}
