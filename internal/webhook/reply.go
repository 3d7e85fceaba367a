package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/lineutil"
)

// errNoReplyToken is returned for events that cannot be replied to.
var errNoReplyToken = errors.New("webhook: event has no reply token")

// loadingSeconds is how long the loading animation runs at most; it stops
// as soon as the reply arrives.
const loadingSeconds = 20

// reply sends the replies of a turn in one Messaging API call. LINE has no
// message editing, so edit replies are sent as new messages.
func (h *Handler) reply(ctx context.Context, token string, replies []bot.Reply) error {
	if len(replies) == 0 {
		return nil
	}
	if token == "" {
		return errNoReplyToken
	}

	messages := buildMessages(replies)
	if len(replies) > len(messages) {
		h.logger.WithField("replies", len(replies)).
			WithField("limit", lineutil.MaxMessagesPerReply).
			WarnContext(ctx, "Too many replies; truncating")
	}

	if err := h.wait(ctx); err != nil {
		return err
	}
	if _, err := h.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: token,
		Messages:   messages,
	}); err != nil {
		h.metrics.RecordOutboundMessage(Channel, "error")
		return fmt.Errorf("reply message: %w", err)
	}
	h.metrics.RecordOutboundMessage(Channel, "success")
	return nil
}

// showLoading starts the loading animation of a personal chat.
func (h *Handler) showLoading(ctx context.Context, chatID string) {
	if err := h.wait(ctx); err != nil {
		return
	}
	if _, err := h.client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: lineutil.LoadingSeconds(loadingSeconds),
	}); err != nil {
		h.metrics.RecordOutboundMessage(Channel, "error")
		h.logger.WithError(err).WarnContext(ctx, "Failed to show loading animation")
		return
	}
	h.metrics.RecordOutboundMessage(Channel, "success")
}

func (h *Handler) wait(ctx context.Context) error {
	if h.limiter == nil {
		return nil
	}
	if err := h.limiter.Wait(ctx); err != nil {
		h.metrics.RecordOutboundMessage(Channel, "dropped")
		return err
	}
	return nil
}

// buildMessages converts replies to text messages, keeping the first
// lineutil.MaxMessagesPerReply.
func buildMessages(replies []bot.Reply) []messaging_api.MessageInterface {
	if len(replies) > lineutil.MaxMessagesPerReply {
		replies = replies[:lineutil.MaxMessagesPerReply]
	}
	messages := make([]messaging_api.MessageInterface, 0, len(replies))
	for _, r := range replies {
		messages = append(messages, lineutil.NewTextMessageWithQuickReply(r.Text, quickReplyItems(r.Buttons)))
	}
	return messages
}

// quickReplyItems flattens button rows into quick reply postbacks. Command
// buttons echo their label in the chat so the history reads naturally.
func quickReplyItems(rows [][]bot.Button) []lineutil.QuickReplyItem {
	var items []lineutil.QuickReplyItem
	for _, row := range rows {
		for _, b := range row {
			data := b.Action.Encode()
			var action lineutil.Action
			if b.Action.Type == bot.ActionCommand {
				action = lineutil.NewPostbackActionWithDisplayText(b.Label, b.Label, data)
			} else {
				action = lineutil.NewPostbackAction(b.Label, data)
			}
			items = append(items, lineutil.QuickReplyItem{Action: action})
		}
	}
	return items
}
