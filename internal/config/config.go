package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Scraper   ScraperConfig
	Browser   BrowserConfig
	Session   SessionConfig
	Output    OutputConfig
	Goodreads GoodreadsConfig
	Database  DatabaseConfig
	Events    EventsConfig
	Status    StatusConfig
	Logging   LoggingConfig
}

type ScraperConfig struct {
	PacingMin   time.Duration
	PacingMax   time.Duration
	MaxAttempts int
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	UserAgents     []string
}

type SessionConfig struct {
	StateFile    string
	LoginTimeout time.Duration
}

type OutputConfig struct {
	RecordsFile  string
	FailuresFile string
}

type GoodreadsConfig struct {
	// Match selects the search-result matching strategy:
	// exact-first, exact, fuzzy, first.
	Match          string
	FuzzyThreshold float64
}

type DatabaseConfig struct {
	// URL enables the Postgres mirror sink when non-empty.
	URL string
}

type EventsConfig struct {
	// RedisAddr enables outcome event publishing when non-empty.
	RedisAddr string
	Stream    string
}

type StatusConfig struct {
	// Addr enables the HTTP status server when non-empty.
	Addr string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Scraper: ScraperConfig{
			PacingMin:   getDurationOrDefault("SCRAPER_PACING_MIN", 5*time.Second),
			PacingMax:   getDurationOrDefault("SCRAPER_PACING_MAX", 10*time.Second),
			MaxAttempts: getIntOrDefault("SCRAPER_MAX_ATTEMPTS", 3),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/New_York"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			UserAgents:     getStringSliceOrDefault("BROWSER_USER_AGENTS", defaultUserAgents()),
		},
		Session: SessionConfig{
			StateFile:    getEnvOrDefault("SESSION_STATE_FILE", "amazon_session.json"),
			LoginTimeout: getDurationOrDefault("SESSION_LOGIN_TIMEOUT", 5*time.Minute),
		},
		Output: OutputConfig{
			RecordsFile:  getEnvOrDefault("OUTPUT_RECORDS_FILE", "scraped_amazon_data.csv"),
			FailuresFile: getEnvOrDefault("OUTPUT_FAILURES_FILE", "failed_urls.csv"),
		},
		Goodreads: GoodreadsConfig{
			Match:          getEnvOrDefault("GOODREADS_MATCH", "exact-first"),
			FuzzyThreshold: getFloatOrDefault("GOODREADS_FUZZY_THRESHOLD", 0.93),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Events: EventsConfig{
			RedisAddr: getEnvOrDefault("REDIS_ADDR", ""),
			Stream:    getEnvOrDefault("EVENTS_STREAM", "stream:book_scrapes"),
		},
		Status: StatusConfig{
			Addr: getEnvOrDefault("STATUS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxAttempts < 1 {
		return fmt.Errorf("SCRAPER_MAX_ATTEMPTS must be at least 1")
	}

	if c.Scraper.PacingMin > c.Scraper.PacingMax {
		return fmt.Errorf("SCRAPER_PACING_MIN cannot be greater than SCRAPER_PACING_MAX")
	}

	if len(c.Browser.UserAgents) == 0 {
		return fmt.Errorf("BROWSER_USER_AGENTS must not be empty")
	}

	switch c.Goodreads.Match {
	case "exact-first", "exact", "fuzzy", "first":
	default:
		return fmt.Errorf("GOODREADS_MATCH must be one of exact-first, exact, fuzzy, first")
	}

	if c.Goodreads.FuzzyThreshold <= 0 || c.Goodreads.FuzzyThreshold > 1 {
		return fmt.Errorf("GOODREADS_FUZZY_THRESHOLD must be in (0, 1]")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}
