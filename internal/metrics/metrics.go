package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. The Record methods are no-ops on a
// nil *Metrics, so collaborators may treat metrics as optional.
type Metrics struct {
	// Catalog metrics
	CatalogRequestsTotal   *prometheus.CounterVec
	CatalogDurationSeconds *prometheus.HistogramVec
	CatalogResultsCount    prometheus.Histogram

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// Conversation metrics
	TurnsTotal             *prometheus.CounterVec
	SessionStoreOpsTotal   *prometheus.CounterVec
	SessionLockWaitSeconds prometheus.Histogram

	// Outbound messaging metrics
	OutboundMessagesTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterWaitDuration *prometheus.HistogramVec
	RateLimiterDropped      *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Catalog metrics
		CatalogRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_catalog_requests_total",
				Help: "Total number of catalog searches by query kind and status",
			},
			[]string{"kind", "status"}, // status: success, empty, error
		),

		CatalogDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "buscacursos_catalog_duration_seconds",
				Help:    "Catalog search duration in seconds by query kind",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"kind"}, // kind: registration_number, code, code_section, name
		),

		CatalogResultsCount: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "buscacursos_catalog_results",
				Help:    "Number of records returned per catalog search",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),

		// Singleflight metrics
		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_singleflight_dedup_total",
				Help: "Total number of catalog searches that shared an in-flight request",
			},
			[]string{"kind"},
		),

		// Webhook metrics
		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "buscacursos_webhook_duration_seconds",
				Help:    "Update processing duration in seconds by channel and event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"channel", "event_type"}, // channel: telegram, line
		),

		WebhookRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_webhook_requests_total",
				Help: "Total number of processed updates by channel, event type and status",
			},
			[]string{"channel", "event_type", "status"}, // event_type: command, text, navigation
		),

		// Conversation metrics
		TurnsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_turns_total",
				Help: "Total number of conversation turns by resolved action",
			},
			[]string{"action"},
		),

		SessionStoreOpsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_session_store_ops_total",
				Help: "Total number of session store operations by backend, op and status",
			},
			[]string{"backend", "op", "status"}, // op: get, put, ping
		),

		SessionLockWaitSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "buscacursos_session_lock_wait_seconds",
				Help:    "Time spent waiting for the per-conversation lock",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
		),

		// Outbound messaging metrics
		OutboundMessagesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_outbound_messages_total",
				Help: "Total number of messages sent to chat platforms by channel and status",
			},
			[]string{"channel", "status"},
		),

		// HTTP metrics
		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: timeout, invalid_signature, bad_request
		),

		// Rate limiter metrics
		RateLimiterWaitDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "buscacursos_rate_limiter_wait_duration_seconds",
				Help:    "Time spent waiting for rate limiter token by limiter type",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5}, // 1ms to 5s
			},
			[]string{"limiter_type"},
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "buscacursos_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"},
		),
	}

	return m
}

// RecordCatalogRequest records a catalog search with status
func (m *Metrics) RecordCatalogRequest(kind, status string, duration float64) {
	if m == nil {
		return
	}
	m.CatalogRequestsTotal.WithLabelValues(kind, status).Inc()
	m.CatalogDurationSeconds.WithLabelValues(kind).Observe(duration)
}

// RecordCatalogResults records the size of a search result
func (m *Metrics) RecordCatalogResults(count int) {
	if m == nil {
		return
	}
	m.CatalogResultsCount.Observe(float64(count))
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(kind string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(kind).Inc()
}

// RecordWebhook records a processed update
func (m *Metrics) RecordWebhook(channel, eventType, status string, duration float64) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(channel, eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(channel, eventType).Observe(duration)
}

// RecordTurn records a conversation turn
func (m *Metrics) RecordTurn(action string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(action).Inc()
}

// RecordSessionStoreOp records a session store operation
func (m *Metrics) RecordSessionStoreOp(backend, op, status string) {
	if m == nil {
		return
	}
	m.SessionStoreOpsTotal.WithLabelValues(backend, op, status).Inc()
}

// RecordSessionLockWait records time spent waiting for a conversation lock
func (m *Metrics) RecordSessionLockWait(duration float64) {
	if m == nil {
		return
	}
	m.SessionLockWaitSeconds.Observe(duration)
}

// RecordOutboundMessage records a message sent to a chat platform
func (m *Metrics) RecordOutboundMessage(channel, status string) {
	if m == nil {
		return
	}
	m.OutboundMessagesTotal.WithLabelValues(channel, status).Inc()
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	if m == nil {
		return
	}
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordRateLimiterWait records time spent waiting for rate limiter
func (m *Metrics) RecordRateLimiterWait(limiterType string, duration float64) {
	if m == nil {
		return
	}
	m.RateLimiterWaitDuration.WithLabelValues(limiterType).Observe(duration)
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}
