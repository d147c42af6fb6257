package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mailbox-auditor/")
	v.AddConfigPath("$HOME/.mailbox-auditor")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAILBOX_AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Gmail defaults
	v.SetDefault("gmail.credentials_path", "credentials.json")
	v.SetDefault("gmail.token_path", "token.json")
	v.SetDefault("gmail.query", "-label:trash")
	v.SetDefault("gmail.page_size", 500)
	v.SetDefault("gmail.rate_limit", 10.0)
	v.SetDefault("gmail.rate_burst", 5)
	v.SetDefault("gmail.breaker_threshold", 5)
	v.SetDefault("gmail.breaker_timeout", "30s")

	// Audit defaults
	v.SetDefault("audit.max_messages", 2000)
	v.SetDefault("audit.refresh_unread", false)

	// Collector defaults
	v.SetDefault("collector.workers", 8)
	v.SetDefault("collector.max_attempts", 3)
	v.SetDefault("collector.initial_backoff", "100ms")
	v.SetDefault("collector.max_backoff", "5s")

	// Cache defaults
	v.SetDefault("cache.type", "file")
	v.SetDefault("cache.path", "data/email_cache.json")

	// Metrics defaults
	v.SetDefault("metrics.volume_cap", 100)
	v.SetDefault("metrics.unread_weight", 0.7)
	v.SetDefault("metrics.volume_weight", 0.3)
	v.SetDefault("metrics.distinct_open_signal", false)

	// Cluster defaults
	v.SetDefault("cluster.count", 5)
	v.SetDefault("cluster.max_iterations", 100)
	v.SetDefault("cluster.seed", 42)

	// Report defaults
	v.SetDefault("report.top_senders", 20)
	v.SetDefault("report.csv_path", "data/noise_report.csv")
	v.SetDefault("report.dataset_path", "")
	v.SetDefault("report.protected_domains", []string{})
	v.SetDefault("report.min_cleanup_volume", 5)
	v.SetDefault("report.baseline_enabled", false)
	v.SetDefault("report.baseline.total_messages", 0)
	v.SetDefault("report.baseline.unread_rate", 0.0)
	v.SetDefault("report.baseline.avg_open_rate", 0.0)
	v.SetDefault("report.baseline.never_opened_senders", 0)
	v.SetDefault("report.baseline.top_sender_volume", 0)

	// Annotator defaults
	v.SetDefault("annotator.enabled", false)
	v.SetDefault("annotator.provider", "openai")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 500)
	v.SetDefault("bedrock.temperature", 0.2)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_prompt_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 500)
	v.SetDefault("gemini.temperature", 0.2)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_prompt_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_prompt_size", 4096)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
