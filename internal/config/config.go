package config

import (
	"fmt"
	"slices"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// JobsConfig enables consuming forecast requests from the publisher's broker.
// Responses go back through the publisher.
type JobsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ConsumerGroup string `mapstructure:"consumer_group"` // Shared by all forecaster instances
	ConsumerID    string `mapstructure:"consumer_id"`    // Unique per instance (default: hostname)
}

// AuthConfig represents API key authentication for the /v1 routes
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"` // HTTP server port
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"` // Max request body in bytes
}

// MinTrials is the smallest Monte Carlo trial count accepted from configuration.
const MinTrials = 1000

// ForecastConfig holds the engine defaults applied to every run
type ForecastConfig struct {
	Horizon    int     `mapstructure:"horizon"`    // Quarters to forecast
	Confidence float64 `mapstructure:"confidence"` // Interval confidence level in (0,1)
	Trials     int     `mapstructure:"trials"`     // Monte Carlo trials per key
	Seed       uint64  `mapstructure:"seed"`       // Base seed for interval simulation
	Workers    int     `mapstructure:"workers"`    // Keys processed in parallel

	SeasonalPeriod int     `mapstructure:"seasonal_period"`
	Trend          string  `mapstructure:"trend"`    // none, additive
	Seasonal       string  `mapstructure:"seasonal"` // none, additive, multiplicative
	Optimize       bool    `mapstructure:"optimize"`
	Alpha          float64 `mapstructure:"alpha"`
	Beta           float64 `mapstructure:"beta"`
	Gamma          float64 `mapstructure:"gamma"`

	// MetricOverrides replaces trend/seasonal form per metric name.
	// Keys are matched case-insensitively.
	MetricOverrides map[string]SmoothingOverride `mapstructure:"metric_overrides"`

	CacheSize int `mapstructure:"cache_size"` // Fitted models kept in the LRU cache; 0 disables

	ShockDetector  string  `mapstructure:"shock_detector"`  // zscore, iqr or none
	ShockThreshold float64 `mapstructure:"shock_threshold"` // Std deviations (zscore) or IQR multiplier (iqr)
}

// SmoothingOverride changes the smoothing form for one metric. Empty fields keep the default.
type SmoothingOverride struct {
	Trend    string `mapstructure:"trend"`
	Seasonal string `mapstructure:"seasonal"`
}

// PublisherConfig represents where finished result bundles are published
type PublisherConfig struct {
	Type          string `mapstructure:"type"`           // none (default), memory, nats, redis, kafka
	URL           string `mapstructure:"url"`            // e.g., nats://localhost:4222, redis://localhost:6379
	Username      string `mapstructure:"username"`       // Optional authentication
	Password      string `mapstructure:"password"`       // Optional authentication
	SubjectPrefix string `mapstructure:"subject_prefix"` // Prefix for subjects/topics (default: "seasoncast")
	Compress      bool   `mapstructure:"compress"`       // Snappy-compress payloads

	// Redis-specific options
	RedisDB     int    `mapstructure:"redis_db"`
	RedisStream string `mapstructure:"redis_stream"` // Stream name prefix (default: "seasoncast")

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, RFC3339Nano, DateTime, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}
	if err := c.Publisher.Validate(); err != nil {
		return fmt.Errorf("publisher config: %w", err)
	}
	if c.Jobs.Enabled {
		if c.Publisher.Type == "" || c.Publisher.Type == "none" {
			return fmt.Errorf("jobs config: a publisher broker is required when jobs are enabled")
		}
		if c.Jobs.ConsumerGroup == "" {
			return fmt.Errorf("jobs config: consumer_group is required")
		}
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth config: api_keys required when auth is enabled")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

var (
	trendKinds    = []string{"none", "add", "additive"}
	seasonalKinds = []string{"none", "add", "additive", "mul", "multiplicative"}
)

// Validate validates forecast defaults
func (c *ForecastConfig) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("horizon must be at least 1, got %d", c.Horizon)
	}
	if !(c.Confidence > 0 && c.Confidence < 1) {
		return fmt.Errorf("confidence must be in (0,1), got %v", c.Confidence)
	}
	if c.Trials < MinTrials {
		return fmt.Errorf("trials must be at least %d, got %d", MinTrials, c.Trials)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.SeasonalPeriod < 1 {
		return fmt.Errorf("seasonal_period must be positive, got %d", c.SeasonalPeriod)
	}
	if !slices.Contains(trendKinds, c.Trend) {
		return fmt.Errorf("trend must be one of %v, got %q", trendKinds, c.Trend)
	}
	if !slices.Contains(seasonalKinds, c.Seasonal) {
		return fmt.Errorf("seasonal must be one of %v, got %q", seasonalKinds, c.Seasonal)
	}
	for metric, o := range c.MetricOverrides {
		if o.Trend != "" && !slices.Contains(trendKinds, o.Trend) {
			return fmt.Errorf("metric_overrides[%s].trend: unknown value %q", metric, o.Trend)
		}
		if o.Seasonal != "" && !slices.Contains(seasonalKinds, o.Seasonal) {
			return fmt.Errorf("metric_overrides[%s].seasonal: unknown value %q", metric, o.Seasonal)
		}
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}
	if !slices.Contains([]string{"none", "zscore", "iqr"}, c.ShockDetector) {
		return fmt.Errorf("shock_detector must be one of: none, zscore, iqr")
	}
	if c.ShockDetector != "none" && c.ShockThreshold <= 0 {
		return fmt.Errorf("shock_threshold must be positive, got %v", c.ShockThreshold)
	}
	return nil
}

// Validate validates publisher configuration
func (c *PublisherConfig) Validate() error {
	switch c.Type {
	case "", "none", "memory":
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("publisher.url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 && c.URL == "" {
			return fmt.Errorf("publisher.kafka_brokers or publisher.url is required for kafka")
		}
	default:
		return fmt.Errorf("publisher.type must be one of: none, memory, nats, redis, kafka")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Level) {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if !slices.Contains([]string{"json", "console"}, c.Format) {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}
	return nil
}
