package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds API, dataset, auth, and scraper configuration.
type Config struct {
	// API server.
	ListenAddr     string
	MetricsAddr    string
	AllowedOrigins []string

	// Dataset.
	DataFile string
	CacheTTL time.Duration

	// Pagination bounds enforced at the HTTP boundary.
	DefaultPageLimit int
	MaxPageLimit     int

	// Auth.
	JWTSecret     string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration

	// Scraper.
	BaseURL          string
	MaxPages         int
	Parallelism      int
	Delay            time.Duration
	RandomDelay      time.Duration
	Timeout          time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	ScrapeTimeout    time.Duration
	UserAgent        string
	RespectRobotsTxt bool

	Verbose bool
}

// DefaultConfig returns conservative defaults for the demo target.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ":8000",
		MetricsAddr:      "",
		AllowedOrigins:   []string{"*"},
		DataFile:         "data/books.csv",
		CacheTTL:         600 * time.Second,
		DefaultPageLimit: 100,
		MaxPageLimit:     1000,
		JWTSecret:        "change-this-secret-key-in-production",
		AccessExpiry:     30 * time.Minute,
		RefreshExpiry:    7 * 24 * time.Hour,
		BaseURL:          "https://books.toscrape.com",
		MaxPages:         50,
		Parallelism:      16,
		Delay:            0,
		RandomDelay:      0,
		Timeout:          10 * time.Second,
		MaxRetries:       2,
		RetryBackoff:     200 * time.Millisecond,
		RetryBackoffMax:  2 * time.Second,
		ScrapeTimeout:    5 * time.Minute,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.DataFile == "" {
		return fmt.Errorf("data file cannot be empty")
	}
	if ext := fileExt(c.DataFile); ext != "csv" && ext != "json" && ext != "jsonl" {
		return fmt.Errorf("data file must be .csv, .json, or .jsonl")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.DefaultPageLimit <= 0 {
		return fmt.Errorf("default page limit must be positive")
	}
	if c.MaxPageLimit < c.DefaultPageLimit {
		return fmt.Errorf("max page limit (%d) cannot be below default page limit (%d)", c.MaxPageLimit, c.DefaultPageLimit)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret cannot be empty")
	}
	if c.AccessExpiry <= 0 {
		return fmt.Errorf("access token expiry must be positive")
	}
	if c.RefreshExpiry <= 0 {
		return fmt.Errorf("refresh token expiry must be positive")
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("scrape timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

func fileExt(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx+1:])
}
