package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/buscacursos-bot-go/internal/ctxutil"
)

// contextFields lists the tracing values copied from the context onto records.
var contextFields = []struct {
	key string
	get func(context.Context) string
}{
	{"channel", ctxutil.GetChannel},
	{"conversation_id", ctxutil.GetConversationID},
	{"user_id", ctxutil.GetUserID},
	{"request_id", func(ctx context.Context) string {
		id, _ := ctxutil.GetRequestID(ctx)
		return id
	}},
}

// ContextHandler adds the tracing values carried in the context (see ctxutil)
// to every record. Empty values are skipped.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, f := range contextFields {
		if v := f.get(ctx); v != "" {
			r.AddAttrs(slog.String(f.key, v))
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
