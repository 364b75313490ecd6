package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SEASONCAST_FORECAST_HORIZON.
const EnvPrefix = "SEASONCAST"

// Load loads configuration from file, defaults and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/seasoncast")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return parseConfig(v)
}

// setDefaults mirrors DefaultConfig so a missing file still yields a valid config
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	v.SetDefault("forecast.horizon", d.Forecast.Horizon)
	v.SetDefault("forecast.confidence", d.Forecast.Confidence)
	v.SetDefault("forecast.trials", d.Forecast.Trials)
	v.SetDefault("forecast.seed", d.Forecast.Seed)
	v.SetDefault("forecast.workers", d.Forecast.Workers)
	v.SetDefault("forecast.seasonal_period", d.Forecast.SeasonalPeriod)
	v.SetDefault("forecast.trend", d.Forecast.Trend)
	v.SetDefault("forecast.seasonal", d.Forecast.Seasonal)
	v.SetDefault("forecast.optimize", d.Forecast.Optimize)
	v.SetDefault("forecast.alpha", d.Forecast.Alpha)
	v.SetDefault("forecast.beta", d.Forecast.Beta)
	v.SetDefault("forecast.gamma", d.Forecast.Gamma)
	v.SetDefault("forecast.cache_size", d.Forecast.CacheSize)
	v.SetDefault("forecast.shock_detector", d.Forecast.ShockDetector)
	v.SetDefault("forecast.shock_threshold", d.Forecast.ShockThreshold)
	v.SetDefault("forecast.metric_overrides", map[string]interface{}{
		"net income": map[string]interface{}{"seasonal": "additive"},
	})

	v.SetDefault("publisher.type", d.Publisher.Type)
	v.SetDefault("publisher.subject_prefix", d.Publisher.SubjectPrefix)

	v.SetDefault("jobs.enabled", d.Jobs.Enabled)
	v.SetDefault("jobs.consumer_group", d.Jobs.ConsumerGroup)

	v.SetDefault("auth.enabled", d.Auth.Enabled)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
	v.SetDefault("logging.time_format", d.Logging.TimeFormat)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			BodyLimit:    8 << 20,
		},
		Forecast: ForecastConfig{
			Horizon:        8,
			Confidence:     0.95,
			Trials:         5000,
			Seed:           42,
			Workers:        4,
			SeasonalPeriod: 4,
			Trend:          "additive",
			Seasonal:       "multiplicative",
			Optimize:       true,
			Alpha:          0.3,
			Beta:           0.1,
			Gamma:          0.1,
			MetricOverrides: map[string]SmoothingOverride{
				"net income": {Seasonal: "additive"},
			},
			CacheSize:      256,
			ShockDetector:  "zscore",
			ShockThreshold: 3,
		},
		Publisher: PublisherConfig{
			Type:          "none",
			SubjectPrefix: "seasoncast",
		},
		Jobs: JobsConfig{
			ConsumerGroup: "seasoncast-forecasters",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
			TimeFormat: "RFC3339",
		},
	}
}
