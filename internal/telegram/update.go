package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
)

// incoming is a Telegram update translated for the processor, plus what is
// needed to answer it.
type incoming struct {
	update     bot.Update
	chatID     int64
	messageID  int    // Message holding the pressed button
	callbackID string // Non-empty for callback queries
	invalid    error  // Undecodable callback payload
}

// convert translates u. ok is false for updates the bot does not handle
// (edits, channel posts, media, inline queries).
func convert(u tgbotapi.Update) (in incoming, ok bool) {
	switch {
	case u.Message != nil:
		return convertMessage(u.Message)
	case u.CallbackQuery != nil:
		return convertCallback(u.CallbackQuery)
	default:
		return incoming{}, false
	}
}

func convertMessage(m *tgbotapi.Message) (incoming, bool) {
	if m.Chat == nil || m.Text == "" {
		return incoming{}, false
	}

	in := incoming{
		chatID: m.Chat.ID,
		update: bot.Update{
			ConversationID: ConversationID(m.Chat.ID),
			User:           user(m.From),
		},
	}

	if m.IsCommand() {
		in.update.Kind = bot.KindCommand
		in.update.Command = m.Command()
		in.update.Args = strings.Fields(m.CommandArguments())
		return in, true
	}

	in.update.Kind = bot.KindText
	in.update.Text = m.Text
	return in, true
}

func convertCallback(q *tgbotapi.CallbackQuery) (incoming, bool) {
	// Callbacks from inline-mode messages carry no chat.
	if q.Message == nil || q.Message.Chat == nil {
		return incoming{}, false
	}

	in := incoming{
		chatID:     q.Message.Chat.ID,
		messageID:  q.Message.MessageID,
		callbackID: q.ID,
		update: bot.Update{
			ConversationID: ConversationID(q.Message.Chat.ID),
			Kind:           bot.KindAction,
			User:           user(q.From),
		},
	}

	action, err := bot.DecodeAction(q.Data)
	if err != nil {
		in.invalid = err
		return in, true
	}
	in.update.Action = action
	return in, true
}

func user(u *tgbotapi.User) bot.User {
	if u == nil {
		return bot.User{}
	}
	return bot.User{
		ID:        strconv.FormatInt(u.ID, 10),
		FirstName: u.FirstName,
		Username:  u.UserName,
	}
}
