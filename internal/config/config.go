// Package config provides configuration management for the hunter.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable viper consults.
const EnvPrefix = "HUNTER"

// ErrMissingAPIKey is returned when a command that talks to the remote API
// starts without a key.
var ErrMissingAPIKey = errors.New("youtube api key is required (set YOUTUBE_API_KEY)")

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	YouTube  YouTubeConfig
	Hunter   HunterConfig
	Filter   FilterConfig
	Scoring  ScoringConfig
	Database DatabaseConfig
	Quota    QuotaConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

// YouTubeConfig contains remote API access settings.
type YouTubeConfig struct {
	APIKey            string
	Endpoint          string
	RegionCode        string
	RelevanceLanguage string
	RateLimitDelay    time.Duration
	RequestTimeout    time.Duration
}

// HunterConfig contains run-level acquisition settings.
type HunterConfig struct {
	TargetCount    int
	BufferFactor   int
	ItemDelay      time.Duration
	ClearBeforeRun bool
}

// FilterConfig contains the qualification thresholds. MaxViewSubRatio of zero
// disables the views-to-subscribers dimension.
type FilterConfig struct {
	MinViews        int64
	MaxViews        int64
	MaxDaysAgo      int
	MaxSubscribers  int64
	MaxViewSubRatio float64
}

// ScoringConfig contains audience-region scoring settings.
type ScoringConfig struct {
	TargetRegion     string
	TargetLanguage   string
	PassThreshold    float64
	DetectorDisabled bool
}

// DatabaseConfig contains the local store settings.
type DatabaseConfig struct {
	Path                 string
	BusyTimeout          time.Duration
	MaxRetries           int
	RetryInitialInterval time.Duration
}

// QuotaConfig contains the local daily quota budget.
type QuotaConfig struct {
	Enabled          bool
	DailyLimit       int
	ThresholdPercent int
}

// ServerConfig contains HTTP server configuration for the read-only view.
// An empty APIKeys list leaves the API open.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	APIKeys         []string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from .env, the default config file locations and
// environment variables.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// working directory and ./config for config.yaml.
func LoadFrom(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("youtube.apikey", EnvPrefix+"_YOUTUBE_APIKEY", "YOUTUBE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind api key: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings every command depends on. The API key is checked
// separately by RequireAPIKey since read-only commands run without one.
func (c *Config) Validate() error {
	f := c.Filter
	switch {
	case f.MinViews < 0 || f.MaxViews < 0 || f.MaxSubscribers < 0 || f.MaxDaysAgo < 0:
		return fmt.Errorf("filter thresholds must not be negative")
	case f.MinViews > f.MaxViews:
		return fmt.Errorf("filter.minviews (%d) exceeds filter.maxviews (%d)", f.MinViews, f.MaxViews)
	case f.MaxViewSubRatio < 0:
		return fmt.Errorf("filter.maxviewsubratio must not be negative")
	}
	if c.Hunter.TargetCount <= 0 {
		return fmt.Errorf("hunter.targetcount must be positive, got %d", c.Hunter.TargetCount)
	}
	if c.Hunter.BufferFactor <= 0 {
		return fmt.Errorf("hunter.bufferfactor must be positive, got %d", c.Hunter.BufferFactor)
	}
	if c.Scoring.PassThreshold <= 0 || c.Scoring.PassThreshold > 1 {
		return fmt.Errorf("scoring.passthreshold must be in (0, 1], got %v", c.Scoring.PassThreshold)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

// RequireAPIKey fails with ErrMissingAPIKey when no key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.YouTube.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func setDefaults() {
	// YouTube
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.endpoint", "")
	viper.SetDefault("youtube.regioncode", "US")
	viper.SetDefault("youtube.relevancelanguage", "en")
	viper.SetDefault("youtube.ratelimitdelay", 2*time.Second)
	viper.SetDefault("youtube.requesttimeout", 30*time.Second)

	// Hunter
	viper.SetDefault("hunter.targetcount", 100)
	viper.SetDefault("hunter.bufferfactor", 3)
	viper.SetDefault("hunter.itemdelay", 2*time.Second)
	viper.SetDefault("hunter.clearbeforerun", true)

	// Filter
	viper.SetDefault("filter.minviews", 5000)
	viper.SetDefault("filter.maxviews", 50000)
	viper.SetDefault("filter.maxdaysago", 21)
	viper.SetDefault("filter.maxsubscribers", 30000)
	viper.SetDefault("filter.maxviewsubratio", 0)

	// Scoring
	viper.SetDefault("scoring.targetregion", "US")
	viper.SetDefault("scoring.targetlanguage", "en")
	viper.SetDefault("scoring.passthreshold", 0.70)
	viper.SetDefault("scoring.detectordisabled", false)

	// Database
	viper.SetDefault("database.path", "data/hunter.db")
	viper.SetDefault("database.busytimeout", 10*time.Second)
	viper.SetDefault("database.maxretries", 3)
	viper.SetDefault("database.retryinitialinterval", 500*time.Millisecond)

	// Quota
	viper.SetDefault("quota.enabled", true)
	viper.SetDefault("quota.dailylimit", 10000)
	viper.SetDefault("quota.thresholdpercent", 90)

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.apikeys", []string{})

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
