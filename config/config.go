package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Import    ImportConfig
	Matching  MatchingConfig
	Pricing   PricingConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig holds persistence configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ImportConfig holds CSV import configuration
type ImportConfig struct {
	MaxWarningSamples int    `mapstructure:"max_warning_samples"`
	DefaultCurrency   string `mapstructure:"default_currency"`
}

// MatchingConfig holds matcher thresholds and tuning
type MatchingConfig struct {
	AutoThreshold      float64 `mapstructure:"auto_threshold"`
	ReviewThreshold    float64 `mapstructure:"review_threshold"`
	Workers            int     `mapstructure:"workers"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// PricingConfig holds recommendation policy parameters
type PricingConfig struct {
	MinMarginFraction  float64 `mapstructure:"min_margin_fraction"`
	Workers            int     `mapstructure:"workers"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("store.path", "pricelens.db")

	v.SetDefault("import.max_warning_samples", 10)
	v.SetDefault("import.default_currency", "USD")

	v.SetDefault("matching.auto_threshold", 0.85)
	v.SetDefault("matching.review_threshold", 0.40)
	v.SetDefault("matching.workers", 4)
	v.SetDefault("matching.enable_debug_logging", false)

	v.SetDefault("pricing.min_margin_fraction", 0.15)
	v.SetDefault("pricing.workers", 4)
	v.SetDefault("pricing.enable_debug_logging", false)

	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Store.Path == "" {
		return fmt.Errorf("store path is required (set PRICELENS_STORE_PATH)")
	}

	m := config.Matching
	if m.AutoThreshold <= 0 || m.AutoThreshold > 1 {
		return fmt.Errorf("matching auto threshold must be in (0,1], got: %v", m.AutoThreshold)
	}
	if m.ReviewThreshold <= 0 || m.ReviewThreshold > 1 {
		return fmt.Errorf("matching review threshold must be in (0,1], got: %v", m.ReviewThreshold)
	}
	if m.ReviewThreshold > m.AutoThreshold {
		return fmt.Errorf("matching review threshold (%v) must not exceed auto threshold (%v)", m.ReviewThreshold, m.AutoThreshold)
	}

	if f := config.Pricing.MinMarginFraction; f < 0 || f >= 1 {
		return fmt.Errorf("pricing min margin fraction must be in [0,1), got: %v", f)
	}

	return nil
}
