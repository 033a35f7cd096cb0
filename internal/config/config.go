package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Env string `mapstructure:"env"`

	// API
	APIURL      string        `mapstructure:"api_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second
	RateBurst   int           `mapstructure:"rate_burst"`
	MaxRetries  int           `mapstructure:"max_retries"`

	// Views
	DebounceDelay   time.Duration `mapstructure:"debounce_delay"`
	CommentPageSize int           `mapstructure:"comment_page_size"`
	BlogPageSize    int           `mapstructure:"blog_page_size"`
	ProductPageSize int           `mapstructure:"product_page_size"`

	// Response cache (disabled when RedisURL is empty)
	RedisURL string        `mapstructure:"redis_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Session
	KeyringService string `mapstructure:"keyring_service"`

	// Development
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

const envPrefix = "DEVSTUDIO"

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("rate_limit", 10.0)
	v.SetDefault("rate_burst", 20)
	v.SetDefault("max_retries", 3)

	v.SetDefault("debounce_delay", 500*time.Millisecond)
	v.SetDefault("comment_page_size", 10)
	v.SetDefault("blog_page_size", 9)
	v.SetDefault("product_page_size", 9)

	v.SetDefault("redis_url", "")
	v.SetDefault("cache_ttl", 5*time.Minute)

	v.SetDefault("keyring_service", "devstudio-cli")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// LoadConfig reads, in increasing priority: defaults, the optional config
// file at path, a .env file in the working directory and DEVSTUDIO_*
// environment variables.
func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables still apply without it
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		path = os.ExpandEnv(path)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return config, nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "api_url must be an absolute URL")
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, "http_timeout must be positive")
	}
	if c.RateLimit <= 0 {
		errs = append(errs, "rate_limit must be positive")
	}
	if c.RateBurst < 1 {
		errs = append(errs, "rate_burst must be at least 1")
	}
	if c.MaxRetries < 0 {
		errs = append(errs, "max_retries must not be negative")
	}
	if c.DebounceDelay < 0 {
		errs = append(errs, "debounce_delay must not be negative")
	}
	for name, size := range map[string]int{
		"comment_page_size": c.CommentPageSize,
		"blog_page_size":    c.BlogPageSize,
		"product_page_size": c.ProductPageSize,
	} {
		if size < 1 || size > 100 {
			errs = append(errs, fmt.Sprintf("%s must be between 1 and 100", name))
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("log_level must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errs = append(errs, fmt.Sprintf("log_format must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if c.KeyringService == "" {
		errs = append(errs, "keyring_service must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// CacheEnabled reports whether API responses may be cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != "" && c.CacheTTL > 0
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
