// Package bot is the dialogue processor: it turns transport-neutral updates
// into replies, keeping per-conversation state in a session.Store.
package bot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/render"
)

// Kind is the kind of an inbound update.
type Kind uint8

// Update kinds.
const (
	KindCommand Kind = iota + 1 // "/name args..."
	KindText                    // Free text
	KindAction                  // Button press (callback query, postback)
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindText:
		return "text"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// User is the sender of an update.
type User struct {
	ID        string
	FirstName string
	Username  string
}

// Update is one inbound event, already decoded by a transport.
type Update struct {
	ConversationID string
	Kind           Kind
	Command        string   // KindCommand
	Args           []string // KindCommand
	Text           string   // KindText
	Action         Action   // KindAction
	User           User
}

// input returns the raw user input for logs.
func (u Update) input() string {
	switch u.Kind {
	case KindCommand:
		return strings.TrimSpace("/" + u.Command + " " + strings.Join(u.Args, " "))
	case KindText:
		return u.Text
	case KindAction:
		return u.Action.Encode()
	default:
		return ""
	}
}

// Button is an inline button.
type Button struct {
	Label  string
	Action Action
}

// Reply is one outbound message.
type Reply struct {
	Template     string     // Template key the text was rendered from
	Data         any        // Template data
	Text         string     // Rendered text in the processor's format
	Buttons      [][]Button // Rows of inline buttons
	Edit         bool       // Replace the message the pressed button belongs to
	HideKeyboard bool       // Remove any custom reply keyboard
}

// buttonsPerRow is the number of course buttons per keyboard row.
const buttonsPerRow = 2

// courseCommand returns the command that queries one section.
func courseCommand(r course.Record) string {
	return fmt.Sprintf("course_%s_%s", r.Code, r.Section)
}

// foundButtons builds the keyboard of a result page: one button per course,
// buttonsPerRow per row, then the navigation row.
func foundButtons(r *render.Renderer, data render.FoundData) [][]Button {
	courses := make([]Button, 0, len(data.Courses))
	for _, rec := range data.Courses {
		courses = append(courses, Button{Label: rec.Label(), Action: Command(courseCommand(rec))})
	}

	var rows [][]Button
	for row := range slices.Chunk(courses, buttonsPerRow) {
		rows = append(rows, row)
	}

	var nav []Button
	if data.Paging.CanGoBack() {
		nav = append(nav, Button{Label: r.Label(render.LabelBack), Action: GoToPage(data.Paging.Back())})
	}
	if data.Paging.CanGoForward() {
		nav = append(nav, Button{Label: r.Label(render.LabelNext), Action: GoToPage(data.Paging.Next())})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return rows
}
