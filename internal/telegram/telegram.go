// Package telegram is the Telegram transport: it receives updates through a
// webhook or long polling, hands them to the dialogue processor and sends
// the replies back through the Bot API.
package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/config"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/ratelimit"
)

// Channel is the transport name used in conversation ids, logs and metrics.
const Channel = "telegram"

// Processor runs dialogue turns. *bot.Processor implements it.
type Processor interface {
	Handle(ctx context.Context, upd bot.Update) []bot.Reply
}

// Transport connects a Telegram bot to a Processor.
type Transport struct {
	api         *tgbotapi.BotAPI
	processor   Processor
	limiter     *ratelimit.Outbound
	logger      *logger.Logger
	metrics     *metrics.Metrics
	timeout     time.Duration
	pollTimeout time.Duration
	wg          sync.WaitGroup
}

// Config holds the collaborators of a Transport.
type Config struct {
	API         *tgbotapi.BotAPI
	Processor   Processor // Must render Markdown
	Limiter     *ratelimit.Outbound
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	Timeout     time.Duration // Per update; defaults to config.WebhookProcessing
	PollTimeout time.Duration // getUpdates long polling; defaults to config.TelegramPollTimeout
}

// New creates a transport.
func New(cfg Config) *Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.WebhookProcessing
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = config.TelegramPollTimeout
	}

	return &Transport{
		api:         cfg.API,
		processor:   cfg.Processor,
		limiter:     cfg.Limiter,
		logger:      cfg.Logger.WithModule(Channel),
		metrics:     cfg.Metrics,
		timeout:     timeout,
		pollTimeout: pollTimeout,
	}
}

// NewBotAPI connects to the Bot API at endpoint (tgbotapi.APIEndpoint when
// empty) and fetches the bot identity.
func NewBotAPI(token, endpoint string, debug bool) (*tgbotapi.BotAPI, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := &http.Client{Timeout: config.TelegramPollTimeout + config.TransportCall}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot api: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// ConversationID returns the session key of a chat.
func ConversationID(chatID int64) string {
	return fmt.Sprintf("%s:%d", Channel, chatID)
}

// WebhookPath returns the route Telegram posts updates to. The path embeds a
// digest of the bot token so only Telegram knows it.
func (t *Transport) WebhookPath() string {
	sum := sha256.Sum256([]byte(t.api.Token))
	return "/telegram/" + hex.EncodeToString(sum[:16])
}

// BotName returns the bot's username.
func (t *Transport) BotName() string {
	return t.api.Self.UserName
}

// Shutdown waits for all in-flight updates to complete.
// It returns an error if the context is canceled before completion.
func (t *Transport) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		t.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
