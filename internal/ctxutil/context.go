// Package ctxutil carries per-turn tracing values through a context.
package ctxutil

import "context"

type key int

const (
	userIDKey key = iota
	conversationIDKey
	requestIDKey
	channelKey
)

func value(ctx context.Context, k key) string {
	s, _ := ctx.Value(k).(string)
	return s
}

// WithUserID stores the chat platform's sender identifier.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the sender identifier, or "".
func GetUserID(ctx context.Context) string {
	return value(ctx, userIDKey)
}

// WithConversationID stores the transport-prefixed conversation id
// ("telegram:42", "line:U123", "cli:local").
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// GetConversationID returns the conversation id, or "".
func GetConversationID(ctx context.Context) string {
	return value(ctx, conversationIDKey)
}

// WithRequestID stores the id of the inbound update or HTTP request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request id and whether a non-empty one was set.
func GetRequestID(ctx context.Context) (string, bool) {
	id := value(ctx, requestIDKey)
	return id, id != ""
}

// WithChannel stores the transport name ("telegram", "line", "cli").
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

// GetChannel returns the transport name, or "".
func GetChannel(ctx context.Context) string {
	return value(ctx, channelKey)
}

// PreserveTracing returns a context free of ctx's deadline and cancellation
// that still carries its tracing values. Updates handled after the webhook
// response is written run under it.
func PreserveTracing(ctx context.Context) context.Context {
	out := context.Background()
	for _, k := range []key{userIDKey, conversationIDKey, requestIDKey, channelKey} {
		if v := value(ctx, k); v != "" {
			out = context.WithValue(out, k, v)
		}
	}
	return out
}
