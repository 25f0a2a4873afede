package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Places    PlacesConfig
	Shopping  ShoppingConfig
	Matcher   MatcherConfig
	GenAI     GenAIConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
	Pipeline  PipelineConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// PlacesConfig holds place-search provider configuration
type PlacesConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	RadiusMeters int           `mapstructure:"radius_meters"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// ShoppingConfig holds shopping-data provider configuration
type ShoppingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	// RequestsPerMinute caps outbound calls; ItemDelay spaces per-item searches.
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	ItemDelay         time.Duration `mapstructure:"item_delay"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// MatcherConfig holds matcher subservice configuration
type MatcherConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	TieDelta            float64       `mapstructure:"tie_delta"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// GenAIConfig holds generative-text provider configuration
type GenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AnalyticsConfig holds the persistence sink configuration
type AnalyticsConfig struct {
	DBPath    string        `mapstructure:"db_path"`
	Retention time.Duration `mapstructure:"retention"`
}

// PipelineConfig holds end-to-end pipeline budgets
type PipelineConfig struct {
	OverallTimeout     time.Duration `mapstructure:"overall_timeout"`
	EnableDebugLogging bool          `mapstructure:"enable_debug_logging"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricecart/")

	v.SetEnvPrefix("PRICECART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
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
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Secrets default empty so env-only values survive Unmarshal
	v.SetDefault("places.api_key", "")
	v.SetDefault("shopping.api_key", "")
	v.SetDefault("genai.api_key", "")
	v.SetDefault("cache.redis_url", "")

	// Places defaults
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.radius_meters", 8000)
	v.SetDefault("places.timeout", "10s")

	// Shopping provider defaults
	v.SetDefault("shopping.base_url", "https://api.hasdata.com/scrape/google/shopping")
	v.SetDefault("shopping.requests_per_minute", 30)
	v.SetDefault("shopping.item_delay", "750ms")
	v.SetDefault("shopping.timeout", "30s")

	// Matcher subservice defaults
	v.SetDefault("matcher.base_url", "http://localhost:8000")
	v.SetDefault("matcher.confidence_threshold", 0.55)
	v.SetDefault("matcher.tie_delta", 0.05)
	v.SetDefault("matcher.timeout", "15s")

	// Generative provider defaults
	v.SetDefault("genai.base_url", "https://api.openai.com/v1")
	v.SetDefault("genai.model", "gpt-4o-mini")
	v.SetDefault("genai.timeout", "20s")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "24h")

	// Analytics defaults
	v.SetDefault("analytics.db_path", "data/pricecart.db")
	v.SetDefault("analytics.retention", "720h")

	// Pipeline defaults
	v.SetDefault("pipeline.overall_timeout", "120s")
	v.SetDefault("pipeline.enable_debug_logging", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Shopping.APIKey == "" {
		return fmt.Errorf("shopping provider API key is required (set PRICECART_SHOPPING_API_KEY)")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Matcher.ConfidenceThreshold < 0 || config.Matcher.ConfidenceThreshold > 1 {
		return fmt.Errorf("matcher confidence threshold must be in [0,1], got: %f", config.Matcher.ConfidenceThreshold)
	}

	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive, got: %s", config.Cache.TTL)
	}

	return nil
}
