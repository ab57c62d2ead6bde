package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultListingsURL = "https://www.olx.pl/elektronika/telefony/smartfony-telefony-komorkowe/iphone/?search%5Border%5D=created_at:desc"

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	ListingsURL            string `mapstructure:"LISTINGS_URL"`
	MaxListings            int    `mapstructure:"MAX_LISTINGS"`
	CheckIntervalSeconds   int    `mapstructure:"CHECK_INTERVAL_SECONDS"` // replaces the stored interval on every start
	PageLoadTimeoutSeconds int    `mapstructure:"PAGE_LOAD_TIMEOUT_SECONDS"`
	ScrollDelayMS          int    `mapstructure:"SCROLL_DELAY_MS"`
	Fetcher                string `mapstructure:"FETCHER"` // "chromedp" or "http"
	ChromeBin              string `mapstructure:"CHROME_BIN"`
	UserAgent              string `mapstructure:"USER_AGENT"`

	StateBackend string `mapstructure:"STATE_BACKEND"` // "file", "redis" or "postgres"
	StateDir     string `mapstructure:"STATE_DIR"`

	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	TelegramToken    string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `mapstructure:"TELEGRAM_CHAT_ID"`
	TelegramCommands bool   `mapstructure:"TELEGRAM_COMMANDS"`

	FiltersSeedFile    string `mapstructure:"FILTERS_SEED_FILE"`
	AutoStart          bool   `mapstructure:"AUTO_START"`
	StopTimeoutSeconds int    `mapstructure:"STOP_TIMEOUT_SECONDS"`
}

var defaults = map[string]any{
	"SERVER_PORT": "8080",
	"LOG_LEVEL":   "info",
	"LOG_FORMAT":  "json",

	"LISTINGS_URL":              defaultListingsURL,
	"MAX_LISTINGS":              30,
	"CHECK_INTERVAL_SECONDS":    120,
	"PAGE_LOAD_TIMEOUT_SECONDS": 60,
	"SCROLL_DELAY_MS":           2000,
	"FETCHER":                   "chromedp",
	"CHROME_BIN":                "",
	"USER_AGENT":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

	"STATE_BACKEND": "file",
	"STATE_DIR":     ".",

	"POSTGRES_HOST":     "localhost",
	"POSTGRES_PORT":     "5432",
	"POSTGRES_USER":     "user",
	"POSTGRES_PASSWORD": "password",
	"POSTGRES_DB":       "watcher",

	"REDIS_ADDR":     "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"TELEGRAM_BOT_TOKEN": "",
	"TELEGRAM_CHAT_ID":   0,
	"TELEGRAM_COMMANDS":  true,

	"FILTERS_SEED_FILE":    "",
	"AUTO_START":           false,
	"STOP_TIMEOUT_SECONDS": 5,
}

// Load reads configuration from the .env file in the working directory, if
// any, and from environment variables.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads configuration from the given env file and environment
// variables. Environment variables take precedence. A missing file is not an error.
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = v.ReadInConfig()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Fetcher = strings.ToLower(cfg.Fetcher)
	cfg.StateBackend = strings.ToLower(cfg.StateBackend)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the watcher cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ListingsURL == "" {
		errs = append(errs, errors.New("LISTINGS_URL must not be empty"))
	}
	if c.MaxListings <= 0 {
		errs = append(errs, fmt.Errorf("MAX_LISTINGS must be positive, got %d", c.MaxListings))
	}
	if c.CheckIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("CHECK_INTERVAL_SECONDS must be positive, got %d", c.CheckIntervalSeconds))
	}
	if c.PageLoadTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_LOAD_TIMEOUT_SECONDS must be positive, got %d", c.PageLoadTimeoutSeconds))
	}
	switch c.Fetcher {
	case "chromedp", "http":
	default:
		errs = append(errs, fmt.Errorf("unsupported FETCHER %q", c.Fetcher))
	}
	switch c.StateBackend {
	case "file", "redis", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported STATE_BACKEND %q", c.StateBackend))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set"))
	}
	return errors.Join(errs...)
}

// PostgresURL returns the pgx connection string.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

// PageLoadTimeout returns the page load timeout as a duration.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutSeconds) * time.Second
}

// ScrollDelay returns the settle delay after scrolling as a duration.
func (c *Config) ScrollDelay() time.Duration {
	return time.Duration(c.ScrollDelayMS) * time.Millisecond
}

// StopTimeout returns how long Stop waits for the scrape loop to exit.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}
