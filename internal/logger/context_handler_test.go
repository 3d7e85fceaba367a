package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/buscacursos-bot-go/internal/ctxutil"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
	return entry
}

func TestContextHandler_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  func(context.Context) context.Context
		want map[string]string
	}{
		{
			name: "all values",
			ctx: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithChannel(ctx, "telegram")
				ctx = ctxutil.WithConversationID(ctx, "telegram:67890")
				ctx = ctxutil.WithUserID(ctx, "42")
				return ctxutil.WithRequestID(ctx, "update-7")
			},
			want: map[string]string{
				"channel":         "telegram",
				"conversation_id": "telegram:67890",
				"user_id":         "42",
				"request_id":      "update-7",
			},
		},
		{
			name: "empty values skipped",
			ctx: func(ctx context.Context) context.Context {
				ctx = ctxutil.WithUserID(ctx, "")
				return ctxutil.WithConversationID(ctx, "line:C12345")
			},
			want: map[string]string{"conversation_id": "line:C12345"},
		},
		{
			name: "bare context",
			ctx:  func(ctx context.Context) context.Context { return ctx },
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil)))
			log.InfoContext(tt.ctx(context.Background()), "hello")

			entry := decodeLine(t, &buf)
			for _, f := range contextFields {
				want, ok := tt.want[f.key]
				if !ok {
					assert.NotContains(t, entry, f.key)
					continue
				}
				assert.Equal(t, want, entry[f.key])
			}
		})
	}
}

func TestContextHandler_Enabled(t *testing.T) {
	t.Parallel()
	h := NewContextHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestContextHandler_AttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).
		With("module", "bot").
		WithGroup("turn")

	ctx := ctxutil.WithUserID(context.Background(), "7")
	log.InfoContext(ctx, "done", "status", "success")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "bot", entry["module"])
	turn, ok := entry["turn"].(map[string]any)
	require.True(t, ok, "group missing: %v", entry)
	assert.Equal(t, "success", turn["status"])
	assert.Equal(t, "7", turn["user_id"])
}
