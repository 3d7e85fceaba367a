package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/buscacursos-bot-go/internal/bot"
	"github.com/garyellow/buscacursos-bot-go/internal/command"
	"github.com/garyellow/buscacursos-bot-go/internal/render"
	"github.com/garyellow/buscacursos-bot-go/internal/session"
)

// chatConversationID is the session key of the terminal conversation.
const chatConversationID = "cli:local"

const chatHelp = `Type commands as in the bot (/start, /course IIC2233) or answers to its questions.
:next, :back   show the next or previous page
:go N          show page N
:N             press button N of the last reply
:quit          leave`

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot on the terminal",
		Long:  "Chat runs the bot conversation against stdin and stdout with an in-memory session.\n\n" + chatHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load(cmd)
			if err != nil {
				return err
			}

			renderer, err := render.New(render.Plain)
			if err != nil {
				return err
			}
			processor := bot.NewProcessor(bot.ProcessorConfig{
				Matcher:  e.matcher,
				Searcher: e.searcher,
				Store:    session.NewMemoryStore(),
				Renderer: renderer,
				Info:     e.cfg.About,
				PageSize: e.cfg.PageSize,
				Logger:   e.logger,
			})

			c := &chat{
				processor: processor,
				renderer:  renderer,
				out:       cmd.OutOrStdout(),
				user:      bot.User{ID: "local", FirstName: os.Getenv("USER")},
			}
			return c.run(cmd, cmd.InOrStdin())
		},
	}
}

// chat is one terminal conversation.
type chat struct {
	processor *bot.Processor
	renderer  *render.Renderer
	out       io.Writer
	user      bot.User
	buttons   []bot.Button // Of the last reply, in display order
}

func (c *chat) run(cmd *cobra.Command, in io.Reader) error {
	_, _ = fmt.Fprintln(c.out, chatHelp)

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(c.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ":quit" {
			return nil
		}

		upd, err := c.update(line)
		if err != nil {
			_, _ = fmt.Fprintln(c.out, err)
			continue
		}
		c.show(c.processor.Handle(cmd.Context(), upd))
	}
}

// update translates a typed line.
func (c *chat) update(line string) (bot.Update, error) {
	upd := bot.Update{ConversationID: chatConversationID, User: c.user}

	if name, args, ok := command.Parse(line); ok {
		upd.Kind = bot.KindCommand
		upd.Command = name
		upd.Args = args
		return upd, nil
	}
	if !strings.HasPrefix(line, ":") {
		upd.Kind = bot.KindText
		upd.Text = line
		return upd, nil
	}

	action, err := c.action(strings.Fields(line[1:]))
	if err != nil {
		return bot.Update{}, err
	}
	upd.Kind = bot.KindAction
	upd.Action = action
	return upd, nil
}

// action resolves a ":" instruction against the buttons of the last reply.
func (c *chat) action(fields []string) (bot.Action, error) {
	if len(fields) == 0 {
		return bot.Action{}, fmt.Errorf("empty instruction; try :next")
	}

	switch fields[0] {
	case "next", "back":
		label := c.renderer.Label(render.LabelNext)
		if fields[0] == "back" {
			label = c.renderer.Label(render.LabelBack)
		}
		for _, b := range c.buttons {
			if b.Label == label {
				return b.Action, nil
			}
		}
		return bot.Action{}, fmt.Errorf("no %s page", fields[0])

	case "go":
		if len(fields) != 2 {
			return bot.Action{}, fmt.Errorf("usage: :go N")
		}
		page, err := strconv.Atoi(fields[1])
		if err != nil || page < 1 {
			return bot.Action{}, fmt.Errorf("invalid page %q", fields[1])
		}
		return bot.GoToPage(page - 1), nil
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return bot.Action{}, fmt.Errorf("unknown instruction %q", ":"+fields[0])
	}
	if n < 1 || n > len(c.buttons) {
		return bot.Action{}, fmt.Errorf("no button %d", n)
	}
	return c.buttons[n-1].Action, nil
}

// show prints replies and numbers their buttons.
func (c *chat) show(replies []bot.Reply) {
	for _, r := range replies {
		_, _ = fmt.Fprintln(c.out, r.Text)

		if len(r.Buttons) == 0 && !r.HideKeyboard {
			continue
		}
		c.buttons = c.buttons[:0]
		for _, row := range r.Buttons {
			labels := make([]string, 0, len(row))
			for _, b := range row {
				c.buttons = append(c.buttons, b)
				labels = append(labels, fmt.Sprintf("[%d] %s", len(c.buttons), b.Label))
			}
			_, _ = fmt.Fprintln(c.out, strings.Join(labels, "  "))
		}
	}
}
