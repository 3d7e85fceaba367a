package lineutil

// LINE API limits (rune counts).
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength   = 5000 // Text message content
	MaxPostbackData        = 300  // Postback action data
	MaxPostbackDisplayText = 300  // Postback action display text
	MaxQuickReplyItemCount = 13   // Items in a quick reply
	MaxQuickReplyLabel     = 20   // Quick reply action label
	MaxMessagesPerReply    = 5    // Messages per reply request
)

// Loading animation bounds, in seconds. Values must be multiples of 5.
const (
	MinLoadingSeconds = 5
	MaxLoadingSeconds = 60
)
