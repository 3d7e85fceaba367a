package config

// Environment variable keys.
//
//nolint:gosec,revive // Keys are not credentials and do not need per-const comments.
const (
	// Catalog
	EnvPeriodYear     = "PERIOD_YEAR"
	EnvPeriodTerm     = "PERIOD_TERM"
	EnvPaginationSize = "PAGINATION_SIZE"
	EnvCatalogBaseURL = "CATALOG_BASE_URL"
	EnvCatalogTimeout = "CATALOG_TIMEOUT"

	// Telegram
	EnvTelegramToken = "TELEGRAM_TOKEN"
	EnvTelegramDebug = "TELEGRAM_DEBUG"
	EnvWebhookURL    = "WEBHOOK_URL"

	// LINE
	EnvLineChannelAccessToken = "LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "LINE_CHANNEL_SECRET"

	// Server
	EnvPort            = "PORT"
	EnvLogLevel        = "LOG_LEVEL"
	EnvWebhookTimeout  = "WEBHOOK_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvOutboundRateRPS = "OUTBOUND_RATE_RPS"
	EnvMetricsUsername = "METRICS_USERNAME"
	EnvMetricsPassword = "METRICS_PASSWORD"

	// Sessions
	EnvSessionBackend    = "SESSION_BACKEND"
	EnvSessionTTL        = "SESSION_TTL"
	EnvDataDir           = "DATA_DIR"
	EnvRedisURL          = "REDIS_URL"
	EnvS3Endpoint        = "S3_ENDPOINT"
	EnvS3AccessKeyID     = "S3_ACCESS_KEY_ID"
	EnvS3SecretAccessKey = "S3_SECRET_ACCESS_KEY"
	EnvS3Bucket          = "S3_BUCKET"
	EnvS3Region          = "S3_REGION"
	EnvS3Prefix          = "S3_PREFIX"

	// Observability
	EnvSentryToken         = "SENTRY_TOKEN"
	EnvSentryHost          = "SENTRY_HOST"
	EnvSentryEnvironment   = "SENTRY_ENVIRONMENT"
	EnvBetterstackToken    = "BETTERSTACK_TOKEN"
	EnvBetterstackEndpoint = "BETTERSTACK_ENDPOINT"

	// About page
	EnvBotName           = "BOT_NAME"
	EnvBotLicense        = "BOT_LICENSE"
	EnvBotRepository     = "BOT_REPOSITORY"
	EnvBotAuthorName     = "BOT_AUTHOR_NAME"
	EnvBotAuthorEmail    = "BOT_AUTHOR_EMAIL"
	EnvBotAuthorURL      = "BOT_AUTHOR_URL"
	EnvBotAuthorUsername = "BOT_AUTHOR_USERNAME"
	EnvBotDonatePayPal   = "BOT_DONATE_PAYPAL"
	EnvBotDonateBTC      = "BOT_DONATE_BTC"
	EnvBotDonateETH      = "BOT_DONATE_ETH"
)
