// Package config handles configuration loading for the DCA dashboard.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Workbook WorkbookConfig `mapstructure:"workbook" yaml:"workbook"`
	Rainfall RainfallConfig `mapstructure:"rainfall" yaml:"rainfall"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Refresh  RefreshConfig  `mapstructure:"refresh"  yaml:"refresh"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// WorkbookConfig locates the DCA price workbook.
type WorkbookConfig struct {
	Path      string `mapstructure:"path"       yaml:"path"`
	Sheet     string `mapstructure:"sheet"      yaml:"sheet"`
	AllowGaps bool   `mapstructure:"allow_gaps" yaml:"allow_gaps"`
}

// RainfallConfig holds the IMD scrape settings.
type RainfallConfig struct {
	URL        string `mapstructure:"url"         yaml:"url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// CacheConfig holds memoization settings.
type CacheConfig struct {
	TTLSec int `mapstructure:"ttl_sec" yaml:"ttl_sec"` // seconds
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// RefreshConfig holds the background refresh schedule.
type RefreshConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Cron    string `mapstructure:"cron"    yaml:"cron"`
}

// RecorderConfig holds snapshot persistence settings.
type RecorderConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "none" or "sqlite"
	Path   string `mapstructure:"path"   yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.dcadash/config.yaml (home directory)
//  3. /etc/dcadash/config.yaml (system)
//
// Environment variables override config file values.
// Format: DCADASH_<SECTION>_<KEY>, e.g., DCADASH_WORKBOOK_PATH
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".dcadash"))
	v.AddConfigPath("/etc/dcadash")

	v.SetEnvPrefix("DCADASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("DCADASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Workbook defaults
	v.SetDefault("workbook.path", "./data/DCA_prices.xlsx")
	v.SetDefault("workbook.sheet", "State_Consolidated_TimeSeries")
	v.SetDefault("workbook.allow_gaps", false)

	// Rainfall defaults
	v.SetDefault("rainfall.url", "https://mausam.imd.gov.in/responsive/rainfallinformation.php")
	v.SetDefault("rainfall.timeout_sec", 20)

	// Cache defaults
	v.SetDefault("cache.ttl_sec", 300) // 5 minutes

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Refresh defaults: warm the caches every weekday evening IST
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.cron", "0 18 * * MON-FRI")

	// Recorder defaults
	v.SetDefault("recorder.driver", "none")
	v.SetDefault("recorder.path", "./data/snapshots.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
