package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/ctxutil"
)

// pollRetryDelay is the pause after a failed getUpdates call.
const pollRetryDelay = 3 * time.Second

// allowedUpdates limits delivery to the update types the bot handles.
var allowedUpdates = []string{"message", "callback_query"}

// HandleWebhook is the Gin handler for the webhook route. It acknowledges
// the update before processing it.
func (t *Transport) HandleWebhook(c *gin.Context) {
	update, err := t.api.HandleUpdate(c.Request)
	if err != nil {
		t.logger.WithError(err).WarnContext(c.Request.Context(), "Invalid webhook update")
		t.metrics.RecordHTTPError("bad_request", Channel)
		c.Status(http.StatusBadRequest)
		return
	}

	c.Status(http.StatusOK)
	t.Dispatch(ctxutil.PreserveTracing(c.Request.Context()), *update)
}

// SetWebhook registers baseURL + WebhookPath with Telegram.
func (t *Transport) SetWebhook(baseURL string) error {
	wh, err := tgbotapi.NewWebhook(baseURL + t.WebhookPath())
	if err != nil {
		return fmt.Errorf("telegram: webhook url: %w", err)
	}
	wh.AllowedUpdates = allowedUpdates
	if _, err := t.api.Request(wh); err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}
	return nil
}

// Poll receives updates with getUpdates until ctx is done. Any registered
// webhook is removed first, since Telegram refuses to mix both modes.
func (t *Transport) Poll(ctx context.Context) error {
	if _, err := t.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("telegram: delete webhook: %w", err)
	}

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(t.pollTimeout.Seconds())
	cfg.AllowedUpdates = allowedUpdates

	t.logger.InfoContext(ctx, "Polling for updates", "bot", t.BotName())
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := t.api.GetUpdates(cfg)
		if err != nil {
			t.logger.WithError(err).WarnContext(ctx, "Failed to get updates")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID < cfg.Offset {
				continue
			}
			cfg.Offset = u.UpdateID + 1
			t.Dispatch(ctx, u)
		}
	}
}

// Dispatch processes u on its own goroutine. Processing is detached from
// ctx cancellation and bounded by the per-update timeout.
func (t *Transport) Dispatch(ctx context.Context, u tgbotapi.Update) {
	in, ok := convert(u)
	if !ok {
		t.logger.DebugContext(ctx, "Unsupported update", "update_id", u.UpdateID)
		return
	}

	ctx = ctxutil.PreserveTracing(ctx)
	ctx = ctxutil.WithChannel(ctx, Channel)
	ctx = ctxutil.WithRequestID(ctx, strconv.Itoa(u.UpdateID))
	ctx = ctxutil.WithConversationID(ctx, in.update.ConversationID)

	t.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				t.logger.WithField("panic", r).ErrorContext(ctx, "Panic in update processing")
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		t.process(ctx, in)
	})
}

// process runs one turn and sends its replies.
func (t *Transport) process(ctx context.Context, in incoming) {
	start := time.Now()
	kind := in.update.Kind.String()
	log := t.logger

	if in.callbackID != "" {
		t.answerCallback(ctx, in.callbackID)
	}
	if in.invalid != nil {
		log.WithError(in.invalid).DebugContext(ctx, "Callback ignored")
		t.metrics.RecordWebhook(Channel, kind, "invalid", time.Since(start).Seconds())
		return
	}
	if in.update.Kind != bot.KindAction {
		t.sendTyping(ctx, in.chatID)
	}

	replies := t.processor.Handle(ctx, in.update)

	status := "success"
	for _, r := range replies {
		if err := t.deliver(ctx, in, r); err != nil {
			status = "reply_error"
			log.WithError(err).WithField("template", r.Template).ErrorContext(ctx, "Failed to send reply")
		}
	}

	t.metrics.RecordWebhook(Channel, kind, status, time.Since(start).Seconds())
	log.WithField("replies", len(replies)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		InfoContext(ctx, "Update processed")
}
