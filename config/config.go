package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Target site
	BaseURL    string `yaml:"base_url"`
	CookieName string `yaml:"cookie_name"`
	Session    string `yaml:"-"`       // credential; env or flag only, never from a file
	Fetcher    string `yaml:"fetcher"` // "static", "headless"

	// HTTP
	InsecureTLS  bool          `yaml:"insecure_tls"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Scan
	Workers           int           `yaml:"workers"`
	DiscoveryAttempts int           `yaml:"discovery_attempts"`
	DiscoveryBackoff  time.Duration `yaml:"discovery_backoff"`
	RangeMargin       int           `yaml:"range_margin"`
	FixedStart        int           `yaml:"fixed_start"`

	// Politeness
	RespectRobots bool    `yaml:"respect_robots"`
	DelayProfile  string  `yaml:"delay_profile"` // "off", "cautious", "normal", "aggressive"
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
	ProxyFile     string  `yaml:"proxy_file"`

	// HTTP server
	HTTPPort       string   `yaml:"http_port"`
	APIKey         string   `yaml:"-"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // "text", "json"
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://dbg.shopreview.co.kr/usr",
		CookieName:        "PHPSESSID",
		Fetcher:           "static",
		InsecureTLS:       true,
		FetchTimeout:      10 * time.Second,
		Workers:           4,
		DiscoveryAttempts: 3,
		DiscoveryBackoff:  3 * time.Second,
		RangeMargin:       100,
		RespectRobots:     false,
		DelayProfile:      "off",
		RatePerSecond:     8,
		RateBurst:         4,
		HTTPPort:          "8080",
		AllowedOrigins:    []string{"*"},
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LoadFile overlays a YAML config file onto c. Keys missing from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads .env file (if present) then overrides config from environment variables.
func (c *Config) LoadFromEnv() {
	// Auto-load .env file; silently ignored if missing
	_ = godotenv.Load()

	if v := os.Getenv("SCOUT_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SCOUT_COOKIE_NAME"); v != "" {
		c.CookieName = v
	}
	if v := os.Getenv("SCOUT_SESSION"); v != "" {
		c.Session = v
	}
	if v := os.Getenv("SCOUT_FETCHER"); v != "" {
		c.Fetcher = v
	}
	if v := os.Getenv("SCOUT_INSECURE_TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.InsecureTLS = b
		}
	}
	if v := os.Getenv("SCOUT_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.FetchTimeout = d
		}
	}
	if v := os.Getenv("SCOUT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("SCOUT_DISCOVERY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DiscoveryAttempts = n
		}
	}
	if v := os.Getenv("SCOUT_DISCOVERY_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DiscoveryBackoff = d
		}
	}
	if v := os.Getenv("SCOUT_RANGE_MARGIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RangeMargin = n
		}
	}
	if v := os.Getenv("SCOUT_FIXED_START"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FixedStart = n
		}
	}
	if v := os.Getenv("SCOUT_RESPECT_ROBOTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.RespectRobots = b
		}
	}
	if v := os.Getenv("SCOUT_DELAY_PROFILE"); v != "" {
		c.DelayProfile = v
	}
	if v := os.Getenv("SCOUT_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("SCOUT_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("SCOUT_PROXIES"); v != "" {
		c.ProxyFile = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.HTTPPort = v
	}
	if v := os.Getenv("SCOUT_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("SCOUT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SCOUT_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

// Validate rejects settings the scanner cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url must not be empty"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout))
	}
	if c.DiscoveryAttempts < 1 {
		errs = append(errs, fmt.Errorf("discovery_attempts must be at least 1, got %d", c.DiscoveryAttempts))
	}
	if c.RangeMargin < 0 {
		errs = append(errs, fmt.Errorf("range_margin must not be negative, got %d", c.RangeMargin))
	}
	switch c.Fetcher {
	case "static", "headless":
	default:
		errs = append(errs, fmt.Errorf("fetcher must be static or headless, got %q", c.Fetcher))
	}
	return errors.Join(errs...)
}
