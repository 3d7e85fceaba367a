package webhook

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// Channel is the transport name used in conversation ids, logs and metrics.
const Channel = "line"

// chatID returns the id of the chat an event happened in: the user for
// personal chats, otherwise the group or room.
func chatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

// senderID returns the user behind an event, which LINE omits for group
// members who have not added the bot.
func senderID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func isPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}

// ConversationID returns the session key of a chat.
func ConversationID(chatID string) string {
	return Channel + ":" + chatID
}
