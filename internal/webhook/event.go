package webhook

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/command"
)

// startCommand greets users who add the bot or invite it to a chat.
const startCommand = "start"

// incoming is a LINE event translated for the processor, plus what is
// needed to answer it.
type incoming struct {
	update     bot.Update
	eventType  string
	eventID    string
	replyToken string
	chatID     string
	personal   bool  // One-to-one chat with the user
	redelivery bool  // LINE is resending an event it could not deliver
	invalid    error // Undecodable postback payload
}

// convert translates event. ok is false for events the bot does not
// handle: media messages, unfollows, unaddressed group chatter.
func convert(event webhook.EventInterface) (in incoming, ok bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		text, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			return incoming{}, false
		}
		in = newIncoming("message", e.Source, e.ReplyToken, e.WebhookEventId, e.DeliveryContext)
		return convertText(in, text)

	case webhook.PostbackEvent:
		if e.Postback == nil {
			return incoming{}, false
		}
		in = newIncoming("postback", e.Source, e.ReplyToken, e.WebhookEventId, e.DeliveryContext)
		in.update.Kind = bot.KindAction
		action, err := bot.DecodeAction(e.Postback.Data)
		if err != nil {
			in.invalid = err
			return in, in.chatID != ""
		}
		in.update.Action = action
		return in, in.chatID != ""

	case webhook.FollowEvent:
		in = newIncoming("follow", e.Source, e.ReplyToken, e.WebhookEventId, e.DeliveryContext)
		return asStart(in), in.chatID != ""

	case webhook.JoinEvent:
		in = newIncoming("join", e.Source, e.ReplyToken, e.WebhookEventId, e.DeliveryContext)
		return asStart(in), in.chatID != ""

	default:
		return incoming{}, false
	}
}

func newIncoming(eventType string, source webhook.SourceInterface, replyToken, eventID string, dc *webhook.DeliveryContext) incoming {
	id := chatID(source)
	in := incoming{
		eventType:  eventType,
		eventID:    eventID,
		replyToken: replyToken,
		chatID:     id,
		personal:   isPersonalChat(source),
		update: bot.Update{
			ConversationID: ConversationID(id),
			User:           bot.User{ID: senderID(source)},
		},
	}
	if dc != nil {
		in.redelivery = dc.IsRedelivery
	}
	return in
}

// convertText handles a text message. Commands are accepted in every chat;
// free text in groups and rooms only when it mentions the bot.
func convertText(in incoming, msg webhook.TextMessageContent) (incoming, bool) {
	if in.chatID == "" {
		return incoming{}, false
	}

	text, mentioned := stripBotMention(msg.Text, msg.Mention)
	if name, args, ok := command.Parse(text); ok {
		in.update.Kind = bot.KindCommand
		in.update.Command = name
		in.update.Args = args
		return in, true
	}

	if !in.personal && !mentioned {
		return incoming{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return asStart(in), true
	}
	in.update.Kind = bot.KindText
	in.update.Text = text
	return in, true
}

func asStart(in incoming) incoming {
	in.update.Kind = bot.KindCommand
	in.update.Command = startCommand
	return in
}
