package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
)

// notModified is the Bot API description of an edit that changes nothing,
// which happens when the same page button is pressed twice.
const notModified = "message is not modified"

// deliver sends one reply. Edit replies replace the message holding the
// pressed button; without one they are sent as new messages.
func (t *Transport) deliver(ctx context.Context, in incoming, r bot.Reply) error {
	markup, hasButtons := keyboard(r.Buttons)

	if r.Edit && in.messageID != 0 {
		edit := tgbotapi.NewEditMessageText(in.chatID, in.messageID, r.Text)
		edit.ParseMode = tgbotapi.ModeMarkdown
		edit.DisableWebPagePreview = true
		if hasButtons {
			edit.ReplyMarkup = &markup
		}
		err := t.call(ctx, edit)
		if err != nil && strings.Contains(err.Error(), notModified) {
			return nil
		}
		return err
	}

	msg := tgbotapi.NewMessage(in.chatID, r.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	switch {
	case hasButtons:
		msg.ReplyMarkup = markup
	case r.HideKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}
	return t.call(ctx, msg)
}

// keyboard converts button rows to an inline keyboard.
func keyboard(rows [][]bot.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action.Encode()))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...), true
}

// sendTyping shows the "typing..." status while the turn runs.
func (t *Transport) sendTyping(ctx context.Context, chatID int64) {
	if err := t.call(ctx, tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		t.logger.WithError(err).WarnContext(ctx, "Failed to send chat action")
	}
}

// answerCallback stops the loading spinner of a pressed button.
func (t *Transport) answerCallback(ctx context.Context, id string) {
	if err := t.call(ctx, tgbotapi.NewCallback(id, "")); err != nil {
		t.logger.WithError(err).WarnContext(ctx, "Failed to answer callback query")
	}
}

// call performs one Bot API request behind the outbound limiter.
func (t *Transport) call(ctx context.Context, c tgbotapi.Chattable) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			t.metrics.RecordOutboundMessage(Channel, "dropped")
			return err
		}
	}

	if _, err := t.api.Request(c); err != nil {
		t.metrics.RecordOutboundMessage(Channel, "error")
		return err
	}
	t.metrics.RecordOutboundMessage(Channel, "success")
	return nil
}
