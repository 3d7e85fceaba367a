// Package webhook is the LINE transport: it verifies and parses webhook
// requests, hands the events to the dialogue processor and answers them
// with the Messaging API reply endpoint.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/config"
	"github.com/garyellow/buscacursos-bot-go/internal/ctxutil"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/ratelimit"
)

// maxEventsPerWebhook bounds the events processed from one request.
const maxEventsPerWebhook = 100

// userPruneInterval is how often idle per-user limiters are forgotten.
const userPruneInterval = 5 * time.Minute

// Processor runs dialogue turns. *bot.Processor implements it.
type Processor interface {
	Handle(ctx context.Context, upd bot.Update) []bot.Reply
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	client        *messaging_api.MessagingApiAPI
	processor     Processor
	limiter       *ratelimit.Outbound
	users         *userLimiter
	logger        *logger.Logger
	metrics       *metrics.Metrics
	timeout       time.Duration
	wg            sync.WaitGroup
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string
	Endpoint      string // Messaging API base URL; the LINE default when empty
	Processor     Processor
	Limiter       *ratelimit.Outbound
	Logger        *logger.Logger
	Metrics       *metrics.Metrics
	Timeout       time.Duration // Per event; defaults to config.WebhookProcessing
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	opts := []messaging_api.MessagingApiAPIOption{
		messaging_api.WithHTTPClient(&http.Client{Timeout: config.TransportCall}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(cfg.Endpoint))
	}
	client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.WebhookProcessing
	}

	return &Handler{
		channelSecret: cfg.ChannelSecret,
		client:        client,
		processor:     cfg.Processor,
		limiter:       cfg.Limiter,
		users:         newUserLimiter(userBurst, userRefillPerSec, cfg.Metrics),
		logger:        cfg.Logger.WithModule(Channel),
		metrics:       cfg.Metrics,
		timeout:       timeout,
	}, nil
}

// Run forgets idle per-user limiters until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	h.users.run(ctx, userPruneInterval)
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.WarnContext(ctx, "Invalid webhook signature")
			h.metrics.RecordHTTPError("invalid_signature", Channel)
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).ErrorContext(ctx, "Failed to parse webhook request")
			h.metrics.RecordHTTPError("bad_request", Channel)
			c.Status(http.StatusBadRequest)
		}
		return
	}

	// LINE expects the acknowledgement before replies are sent.
	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > maxEventsPerWebhook {
		h.logger.WithField("event_count", len(events)).
			WithField("limit", maxEventsPerWebhook).
			WarnContext(ctx, "Too many events in webhook batch; truncating")
		events = events[:maxEventsPerWebhook]
	}

	base := ctxutil.WithChannel(ctxutil.PreserveTracing(ctx), Channel)
	for _, event := range events {
		h.Dispatch(base, event)
	}
}

// Dispatch processes event on its own goroutine. Processing is detached
// from ctx cancellation and bounded by the per-event timeout.
func (h *Handler) Dispatch(ctx context.Context, event webhook.EventInterface) {
	in, ok := convert(event)
	if !ok {
		h.logger.DebugContext(ctx, "Unsupported event", "type", event.GetType())
		return
	}

	ctx = ctxutil.PreserveTracing(ctx)
	ctx = ctxutil.WithChannel(ctx, Channel)
	ctx = ctxutil.WithConversationID(ctx, in.update.ConversationID)
	if in.eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, in.eventID)
	}
	if in.update.User.ID != "" {
		ctx = ctxutil.WithUserID(ctx, in.update.User.ID)
	}

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).ErrorContext(ctx, "Panic in async event processing")
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		h.processEvent(ctx, in)
	})
}

// processEvent runs one turn and replies to it.
func (h *Handler) processEvent(ctx context.Context, in incoming) {
	start := time.Now()
	kind := in.update.Kind.String()

	log := h.logger.WithField("event_type", in.eventType)
	if in.redelivery {
		log = log.WithField("is_redelivery", true)
	}

	if in.invalid != nil {
		log.WithError(in.invalid).DebugContext(ctx, "Postback ignored")
		h.metrics.RecordWebhook(Channel, kind, "invalid", time.Since(start).Seconds())
		return
	}
	if !h.users.Allow(in.update.User.ID) {
		log.WarnContext(ctx, "User rate limit exceeded; event dropped")
		h.metrics.RecordWebhook(Channel, kind, "rate_limited", time.Since(start).Seconds())
		return
	}
	if in.personal {
		h.showLoading(ctx, in.chatID)
	}

	replies := h.processor.Handle(ctx, in.update)

	status := "success"
	if err := h.reply(ctx, in.replyToken, replies); err != nil {
		status = "reply_error"
		log.WithError(err).ErrorContext(ctx, "Failed to send reply")
	}

	h.metrics.RecordWebhook(Channel, kind, status, time.Since(start).Seconds())
	log.WithField("replies", len(replies)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		InfoContext(ctx, "Event processed")
}

// Shutdown waits for all in-flight events to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
