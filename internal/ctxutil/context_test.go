package ctxutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetConversationID(ctx))
	assert.Empty(t, GetChannel(ctx))
	_, ok := GetRequestID(ctx)
	assert.False(t, ok)

	ctx = WithUserID(ctx, "42")
	ctx = WithConversationID(ctx, "telegram:42")
	ctx = WithRequestID(ctx, "update-9")
	ctx = WithChannel(ctx, "telegram")

	assert.Equal(t, "42", GetUserID(ctx))
	assert.Equal(t, "telegram:42", GetConversationID(ctx))
	assert.Equal(t, "telegram", GetChannel(ctx))
	id, ok := GetRequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "update-9", id)
}

func TestGetRequestID_Empty(t *testing.T) {
	t.Parallel()
	_, ok := GetRequestID(WithRequestID(context.Background(), ""))
	assert.False(t, ok)
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Minute)
	parent = WithConversationID(WithUserID(parent, "U1"), "line:U1")
	parent = WithChannel(WithRequestID(parent, "evt-1"), "line")

	detached := PreserveTracing(parent)
	cancel()

	assert.Error(t, parent.Err())
	assert.NoError(t, detached.Err(), "detached context is not cancelled with its parent")
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)

	assert.Equal(t, "U1", GetUserID(detached))
	assert.Equal(t, "line:U1", GetConversationID(detached))
	assert.Equal(t, "line", GetChannel(detached))
	id, _ := GetRequestID(detached)
	assert.Equal(t, "evt-1", id)
}

func TestPreserveTracing_SkipsUnset(t *testing.T) {
	t.Parallel()
	detached := PreserveTracing(WithChannel(context.Background(), "cli"))
	assert.Equal(t, "cli", GetChannel(detached))
	assert.Empty(t, GetUserID(detached))
}
