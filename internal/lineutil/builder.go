// Package lineutil builds LINE Messaging API messages: plain text replies
// with quick reply buttons.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// QuickReplyItem is one quick reply button.
type QuickReplyItem struct {
	ImageURL string // Optional icon
	Action   Action
}

// NewTextMessage creates a text message, truncated to the API limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: TruncateRunes(text, MaxTextMessageLength),
	}
}

// NewTextMessageWithQuickReply creates a text message carrying quick reply
// buttons. Without items no quick reply is attached.
func NewTextMessageWithQuickReply(text string, items []QuickReplyItem) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	if len(items) > 0 {
		msg.QuickReply = NewQuickReply(items)
	}
	return msg
}

// NewQuickReply creates a quick reply. Items past the API limit are dropped.
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}

	quickReplyItems := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		quickReplyItems[i] = messaging_api.QuickReplyItem{
			ImageUrl: item.ImageURL,
			Action:   item.Action,
		}
	}

	return &messaging_api.QuickReply{Items: quickReplyItems}
}

// NewPostbackAction creates a postback action. The label is shortened to the
// quick reply limit.
func NewPostbackAction(label, data string) Action {
	return &messaging_api.PostbackAction{
		Label: TruncateRunes(label, MaxQuickReplyLabel),
		Data:  data,
	}
}

// NewPostbackActionWithDisplayText creates a postback action that also posts
// displayText in the chat as the user's message.
func NewPostbackActionWithDisplayText(label, displayText, data string) Action {
	return &messaging_api.PostbackAction{
		Label:       TruncateRunes(label, MaxQuickReplyLabel),
		DisplayText: TruncateRunes(displayText, MaxPostbackDisplayText),
		Data:        data,
	}
}

// TruncateRunes shortens text to at most maxRunes runes, ending in "..."
// when cut.
func TruncateRunes(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// LoadingSeconds clamps seconds to the loading animation bounds and rounds
// it down to a multiple of 5.
func LoadingSeconds(seconds int) int32 {
	seconds = min(max(seconds, MinLoadingSeconds), MaxLoadingSeconds)
	return int32(seconds - seconds%5)
}
