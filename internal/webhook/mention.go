package webhook

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// stripBotMention removes every mention of the bot from text. mentioned
// reports whether there was one. LINE indexes mentions in runes.
func stripBotMention(text string, mention *webhook.Mention) (stripped string, mentioned bool) {
	if mention == nil {
		return text, false
	}

	type span struct{ start, end int }
	var spans []span
	for _, m := range mention.Mentionees {
		var u webhook.UserMentionee
		switch v := m.(type) {
		case webhook.UserMentionee:
			u = v
		case *webhook.UserMentionee:
			u = *v
		default:
			continue
		}
		if u.IsSelf {
			spans = append(spans, span{int(u.Index), int(u.Index + u.Length)})
		}
	}
	if len(spans) == 0 {
		return text, false
	}

	// Cut from the end so earlier indexes stay valid.
	slices.SortFunc(spans, func(a, b span) int { return b.start - a.start })

	runes := []rune(text)
	for _, s := range spans {
		start := max(s.start, 0)
		end := min(s.end, len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}

	return strings.Join(strings.Fields(string(runes)), " "), true
}
