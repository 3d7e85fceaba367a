package config

import "time"

// Processing timeouts
const (
	// WebhookProcessing bounds one inbound update: session load, an optional
	// catalog search, session save and the outbound replies.
	// LINE shows its loading animation for up to 60s.
	WebhookProcessing = 60 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout. Update payloads are small.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout. Webhooks are
	// acknowledged before processing, so only /metrics writes large bodies.
	WebhookHTTPWrite = 30 * time.Second

	// WebhookHTTPIdle is the keep-alive idle timeout.
	WebhookHTTPIdle = 120 * time.Second
)

// Catalog timeouts
const (
	// CatalogRequest is the default timeout of one buscacursos request.
	// The site is slow during enrollment weeks.
	CatalogRequest = 30 * time.Second
)

// Transport timeouts
const (
	// TransportCall bounds a single outbound Bot API call (send, edit, typing).
	TransportCall = 15 * time.Second

	// TelegramPollTimeout is the long polling timeout of getUpdates.
	TelegramPollTimeout = 60 * time.Second
)

// Health checks
const (
	// ReadinessCheck bounds the session store ping behind /ready.
	ReadinessCheck = 3 * time.Second
)

// Graceful shutdown
const (
	// GracefulShutdown lets in-flight updates finish before the process exits.
	GracefulShutdown = 30 * time.Second
)
