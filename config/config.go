// Package config holds process configuration for the reservation bot.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds client and bot configuration.
type Config struct {
	BaseURL  string
	Proxy    string
	BotToken string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string

	// ReleaseOffsets are the seconds-of-day at which the site releases new
	// bookable slots; the availability cache shortens its expiry right
	// after each of them.
	ReleaseOffsets []int

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns defaults for the KIT reservation site.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://raumbuchung.bibliothek.kit.edu/sitzplatzreservierung/",
		Timeout:        15 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; rv:78.0) Gecko/20100101 Firefox/78.0",
		AcceptLanguage: "de_DE,en;q=0.5",
		ReleaseOffsets: []int{43200, 43260, 43320},
		Verbose:        false,
	}
}

// Load builds a Config from the environment, reading a .env file first when
// one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v, ok := EnvString("BASE_URL"); ok {
		cfg.BaseURL = v
	}
	if v, ok := EnvString("PROXY"); ok {
		cfg.Proxy = v
	}
	if v, ok := EnvString("BOT_TOKEN"); ok {
		cfg.BotToken = v
	}
	if v, ok := EnvString("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	} else if host, ok := EnvString("REDIS_HOST"); ok {
		port := "6379"
		if p, ok := EnvString("REDIS_PORT"); ok {
			port = p
		}
		cfg.RedisAddr = host + ":" + port
	}
	if v, ok := EnvString("REDIS_PASSWORD"); ok {
		cfg.RedisPassword = v
	}
	if v, ok, err := EnvInt("REDIS_DB"); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	} else if ok {
		cfg.RedisDB = v
	}
	if v, ok := EnvString("HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v, ok := EnvString("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := EnvString("VERBOSE"); ok {
		cfg.Verbose = v == "1" || v == "true"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.Proxy != "" {
		proxyURL, err := url.Parse(c.Proxy)
		if err != nil || proxyURL.Host == "" {
			return fmt.Errorf("invalid proxy URL %q", c.Proxy)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("redis db cannot be negative")
	}
	for _, offset := range c.ReleaseOffsets {
		if offset < 0 || offset >= 24*60*60 {
			return fmt.Errorf("release offset %d outside a day", offset)
		}
	}
	return nil
}

// EnvString reads a non-empty environment variable.
func EnvString(key string) (string, bool) {
	value := os.Getenv(key)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}
	return parsed, true, nil
}
