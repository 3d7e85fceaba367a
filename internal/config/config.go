// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a
// .env file) and validates them for the server or the developer CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/garyellow/buscacursos-bot-go/internal/buildinfo"
	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/r2client"
	"github.com/garyellow/buscacursos-bot-go/internal/render"
	"github.com/garyellow/buscacursos-bot-go/internal/storage"
)

// Defaults
const (
	DefaultCatalogBaseURL  = "http://buscacursos.uc.cl"
	DefaultPageSize        = 5
	DefaultPort            = "10000"
	DefaultOutboundRateRPS = 25.0
	DefaultSessionTTL      = 168 * time.Hour
	DefaultBotName         = "buscacursos-bot"
	DefaultBotLicense      = "MIT"
	DefaultBotRepository   = "https://github.com/garyellow/buscacursos-bot-go"
)

// visibleTokenChars is how many trailing token characters survive masking.
const visibleTokenChars = 5

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// ServerMode requires at least one configured transport.
	ServerMode ValidationMode = iota
	// CLIMode only needs the catalog and session settings.
	CLIMode
)

// now is replaced in tests.
var now = time.Now

// Config holds all application configuration
type Config struct {
	// Catalog
	Period         course.Period
	PageSize       int
	CatalogBaseURL string
	CatalogTimeout time.Duration

	// Telegram
	TelegramToken string
	TelegramDebug bool
	WebhookURL    string // Public base URL; empty selects long polling

	// LINE
	LineChannelToken  string
	LineChannelSecret string

	// Server
	Port            string
	LogLevel        string
	WebhookTimeout  time.Duration
	ShutdownTimeout time.Duration
	OutboundRateRPS float64
	MetricsUsername string // Basic auth for /metrics; empty leaves it open
	MetricsPassword string

	// Sessions
	SessionBackend string
	SessionTTL     time.Duration
	DataDir        string
	RedisURL       string
	S3             r2client.Config
	S3Prefix       string

	// Observability
	SentryToken         string
	SentryHost          string
	SentryEnvironment   string
	BetterstackToken    string
	BetterstackEndpoint string

	// About page
	About render.Info
}

// Load reads configuration for the server.
func Load() (*Config, error) {
	return LoadForMode(ServerMode)
}

// LoadForMode reads configuration from environment variables and validates
// it for mode. It attempts to load a .env file first.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	current := course.CurrentPeriod(now())

	cfg := &Config{
		Period: course.Period{
			Year: getIntEnv(EnvPeriodYear, current.Year),
			Term: getIntEnv(EnvPeriodTerm, current.Term),
		},
		PageSize:       getIntEnv(EnvPaginationSize, DefaultPageSize),
		CatalogBaseURL: getEnv(EnvCatalogBaseURL, DefaultCatalogBaseURL),
		CatalogTimeout: getDurationEnv(EnvCatalogTimeout, CatalogRequest),

		TelegramToken: getEnv(EnvTelegramToken, ""),
		TelegramDebug: getBoolEnv(EnvTelegramDebug, false),
		WebhookURL:    strings.TrimRight(getEnv(EnvWebhookURL, ""), "/"),

		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		Port:            getEnv(EnvPort, DefaultPort),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		WebhookTimeout:  getDurationEnv(EnvWebhookTimeout, WebhookProcessing),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		OutboundRateRPS: getFloatEnv(EnvOutboundRateRPS, DefaultOutboundRateRPS),
		MetricsUsername: getEnv(EnvMetricsUsername, ""),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		SessionBackend: strings.ToLower(getEnv(EnvSessionBackend, storage.BackendMemory)),
		SessionTTL:     getDurationEnv(EnvSessionTTL, DefaultSessionTTL),
		DataDir:        getEnv(EnvDataDir, getDefaultDataDir()),
		RedisURL:       getEnv(EnvRedisURL, ""),
		S3: r2client.Config{
			Endpoint:    getEnv(EnvS3Endpoint, ""),
			AccessKeyID: getEnv(EnvS3AccessKeyID, ""),
			SecretKey:   getEnv(EnvS3SecretAccessKey, ""),
			BucketName:  getEnv(EnvS3Bucket, ""),
			Region:      getEnv(EnvS3Region, ""),
		},
		S3Prefix: getEnv(EnvS3Prefix, ""),

		SentryToken:         getEnv(EnvSentryToken, ""),
		SentryHost:          getEnv(EnvSentryHost, ""),
		SentryEnvironment:   getEnv(EnvSentryEnvironment, "production"),
		BetterstackToken:    getEnv(EnvBetterstackToken, ""),
		BetterstackEndpoint: getEnv(EnvBetterstackEndpoint, ""),

		About: render.Info{
			Name:       getEnv(EnvBotName, DefaultBotName),
			Version:    version(),
			License:    getEnv(EnvBotLicense, DefaultBotLicense),
			Repository: getEnv(EnvBotRepository, DefaultBotRepository),
			Author: render.Author{
				Name:     getEnv(EnvBotAuthorName, ""),
				Email:    getEnv(EnvBotAuthorEmail, ""),
				URL:      getEnv(EnvBotAuthorURL, ""),
				Username: getEnv(EnvBotAuthorUsername, ""),
				PayPal:   getEnv(EnvBotDonatePayPal, ""),
				BTC:      getEnv(EnvBotDonateBTC, ""),
				ETH:      getEnv(EnvBotDonateETH, ""),
			},
		},
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for server mode.
func (c *Config) Validate() error {
	return c.ValidateForMode(ServerMode)
}

// ValidateForMode reports every invalid setting at once.
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if err := c.Period.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%s/%s: %w", EnvPeriodYear, EnvPeriodTerm, err))
	}
	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", EnvPaginationSize, c.PageSize))
	}
	if err := validateURL(c.CatalogBaseURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvCatalogBaseURL, err))
	}
	if c.CatalogTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvCatalogTimeout, c.CatalogTimeout))
	}

	errs = append(errs, c.validateSessions()...)

	if mode == ServerMode {
		errs = append(errs, c.validateServer()...)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Config) validateSessions() []error {
	var errs []error
	switch c.SessionBackend {
	case storage.BackendMemory:
	case storage.BackendSQLite:
		if c.DataDir == "" {
			errs = append(errs, fmt.Errorf("%s is required for the sqlite session backend", EnvDataDir))
		}
	case storage.BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, fmt.Errorf("%s is required for the redis session backend", EnvRedisURL))
		}
	case storage.BackendS3:
		if err := c.S3.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("s3 session backend: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("%s must be one of memory, sqlite, redis, s3; got %q", EnvSessionBackend, c.SessionBackend))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvSessionTTL, c.SessionTTL))
	}
	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if !c.HasTelegram() && !c.HasLINE() {
		errs = append(errs, fmt.Errorf("at least one transport is required: set %s or %s and %s",
			EnvTelegramToken, EnvLineChannelAccessToken, EnvLineChannelSecret))
	}
	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvLineChannelAccessToken, EnvLineChannelSecret))
	}
	if c.WebhookURL != "" {
		if err := validateURL(c.WebhookURL); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvWebhookURL, err))
		}
	}
	if c.Port == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvPort))
	}
	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvWebhookTimeout, c.WebhookTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
	}
	if c.OutboundRateRPS <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvOutboundRateRPS, c.OutboundRateRPS))
	}
	if (c.MetricsUsername == "") != (c.MetricsPassword == "") {
		errs = append(errs, fmt.Errorf("%s and %s must be set together", EnvMetricsUsername, EnvMetricsPassword))
	}
	if c.SentryToken != "" && c.SentryHost == "" {
		errs = append(errs, fmt.Errorf("%s is required when %s is set", EnvSentryHost, EnvSentryToken))
	}

	return errs
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host is missing in %q", raw)
	}
	return nil
}

// HasTelegram reports whether the Telegram transport is configured.
func (c *Config) HasTelegram() bool {
	return c.TelegramToken != ""
}

// HasLINE reports whether the LINE transport is configured.
func (c *Config) HasLINE() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// MetricsAuthEnabled reports whether /metrics requires basic auth.
func (c *Config) MetricsAuthEnabled() bool {
	return c.MetricsUsername != "" && c.MetricsPassword != ""
}

// StorageConfig maps the session settings to the storage layer.
func (c *Config) StorageConfig() storage.Config {
	cfg := storage.Config{
		Backend:  c.SessionBackend,
		DataDir:  c.DataDir,
		RedisURL: c.RedisURL,
		TTL:      c.SessionTTL,
		S3:       c.S3,
	}
	if c.SessionBackend == storage.BackendS3 {
		cfg.Prefix = c.S3Prefix
	}
	return cfg
}

// MaskedTelegramToken hides all but the last characters of the bot token.
func (c *Config) MaskedTelegramToken() string {
	return MaskToken(c.TelegramToken)
}

// MaskToken replaces every character but the last five with '*'.
func MaskToken(token string) string {
	if len(token) <= visibleTokenChars {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-visibleTokenChars) + token[len(token)-visibleTokenChars:]
}

// LogValue implements slog.LogValuer. Secrets are masked or omitted.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("period", c.Period.String()),
		slog.Int("page_size", c.PageSize),
		slog.String("catalog_base_url", c.CatalogBaseURL),
		slog.Duration("catalog_timeout", c.CatalogTimeout),
		slog.String("telegram_token", c.MaskedTelegramToken()),
		slog.String("webhook_url", c.WebhookURL),
		slog.Bool("line", c.HasLINE()),
		slog.String("port", c.Port),
		slog.String("log_level", c.LogLevel),
		slog.String("session_backend", c.SessionBackend),
		slog.Duration("session_ttl", c.SessionTTL),
		slog.Float64("outbound_rate_rps", c.OutboundRateRPS),
		slog.Bool("metrics_auth", c.MetricsAuthEnabled()),
		slog.Bool("sentry", c.SentryToken != ""),
		slog.Bool("betterstack", c.BetterstackToken != ""),
	)
}

func version() string {
	if buildinfo.Version != "" {
		return buildinfo.Version
	}
	return "dev"
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
