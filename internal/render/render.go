// Package render turns reply template keys and their data into message text.
//
// Templates are Spanish and come in two formats: Markdown for Telegram
// (legacy Markdown parse mode) and Plain for transports without markup.
package render

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/paging"
)

// Template keys.
const (
	TemplateStart                = "start"
	TemplateAbout                = "about"
	TemplateCancel               = "cancel"
	TemplateCoursesAsk           = "courses.ask"
	TemplateCoursesError         = "courses.error"
	TemplateCoursesFound         = "courses.found"
	TemplateClassroomUnavailable = "classroom.unavailable"
)

// Label keys.
const (
	LabelBack = "menu.back"
	LabelNext = "menu.next"
)

var labels = map[string]string{
	LabelBack: "◀️ Volver",
	LabelNext: "▶️ Ver más",
}

// Format selects the markup of rendered text.
type Format int

const (
	Markdown Format = iota
	Plain
)

func (f Format) String() string {
	if f == Plain {
		return "plain"
	}
	return "markdown"
}

//go:embed templates/*.tmpl templates/commands.txt
var templateFS embed.FS

// StartData feeds the start template.
type StartData struct {
	FirstName string
}

// Info is the project metadata shown by the about template.
type Info struct {
	Name       string
	Version    string
	License    string
	Repository string
	Author     Author
}

// Author holds contact and donation details.
type Author struct {
	Name     string
	Email    string
	URL      string
	Username string
	PayPal   string
	BTC      string
	ETH      string
}

// FoundData feeds the courses.found template: one page of results.
type FoundData struct {
	Period  course.Period
	Paging  paging.Paging
	Courses []course.Record
}

// Renderer renders templates in one format. It is safe for concurrent use.
type Renderer struct {
	format    Format
	templates *template.Template
}

// New parses the embedded templates for format.
func New(format Format) (*Renderer, error) {
	commands, err := loadCommands()
	if err != nil {
		return nil, err
	}

	funcs := template.FuncMap{
		"esc":      escaper(format),
		"bold":     wrapper(format, "*"),
		"code":     wrapper(format, "`"),
		"cmd":      commandLink(format),
		"inc":      func(i int) int { return i + 1 },
		"commands": func() []string { return commands },
	}

	tmpl, err := template.New("").Funcs(funcs).Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}

	return &Renderer{format: format, templates: tmpl}, nil
}

// MustNew is like New but panics on error. The templates are embedded, so an
// error here is a build defect.
func MustNew(format Format) *Renderer {
	r, err := New(format)
	if err != nil {
		panic(err)
	}
	return r
}

// Format returns the markup the renderer produces.
func (r *Renderer) Format() Format {
	return r.format
}

// Render executes the template named key with data.
func (r *Renderer) Render(key string, data any) (string, error) {
	tmpl := r.templates.Lookup(key + ".tmpl")
	if tmpl == nil {
		return "", fmt.Errorf("render: unknown template %q", key)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: execute %q: %w", key, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Label returns the button label for key, or key itself when unknown.
func (r *Renderer) Label(key string) string {
	if label, ok := labels[key]; ok {
		return label
	}
	return key
}

// Commands returns the command list shown by the start template.
func Commands() ([]string, error) {
	return loadCommands()
}

func loadCommands() ([]string, error) {
	data, err := templateFS.ReadFile("templates/commands.txt")
	if err != nil {
		return nil, fmt.Errorf("render: read commands: %w", err)
	}

	var commands []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			commands = append(commands, line)
		}
	}
	return commands, sc.Err()
}

func escaper(format Format) func(string) string {
	if format == Plain {
		return func(s string) string { return s }
	}
	return func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }
}

// wrapper surrounds text with an entity marker in Markdown. Legacy Markdown
// has no escapes inside entities, so the marker itself is dropped from s.
func wrapper(format Format, marker string) func(string) string {
	return func(s string) string {
		if format == Plain {
			return s
		}
		return marker + strings.ReplaceAll(s, marker, "") + marker
	}
}

// commandLink renders a tappable "/name" command.
func commandLink(format Format) func(string) string {
	esc := escaper(format)
	return func(name string) string {
		return "/" + esc(name)
	}
}
