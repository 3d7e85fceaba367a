// Package command resolves chat commands into typed intents.
//
// Commands are matched against a priority-ordered table; the first match
// wins. Commands that embed their argument in the name (course_IIC2233_2)
// are ordered most-specific first, because the shorter shapes are prefixes
// of the longer ones.
package command

import (
	"regexp"
	"slices"
	"strings"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
)

// Action is the kind of work a resolved command asks for.
type Action uint8

// Resolved actions.
const (
	ActionNone          Action = iota // No command matched; ignored
	ActionStart                       // Greeting and command list
	ActionAbout                       // Project information
	ActionCancel                      // Stop the pending dialogue
	ActionAskCourse                   // Ask for a free-text course answer
	ActionCourseQuery                 // Run a course query
	ActionUnimplemented               // Placeholder feature (classroom lookup)
)

// String returns the label used in logs and metrics.
func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionAbout:
		return "about"
	case ActionCancel:
		return "cancel"
	case ActionAskCourse:
		return "ask_course"
	case ActionCourseQuery:
		return "course_query"
	case ActionUnimplemented:
		return "unimplemented"
	default:
		return "none"
	}
}

// Intent is the result of resolving a command.
type Intent struct {
	Action  Action
	Query   course.Query // Set for ActionCourseQuery
	Command string       // Name of the command matcher that fired
}

// Recognized reports whether a command matched.
func (i Intent) Recognized() bool {
	return i.Action != ActionNone
}

// Command priorities (1=highest).
const (
	PriorityStart              = 1
	PriorityHelp               = 2
	PriorityAbout              = 3
	PriorityCancel             = 4
	PriorityCourse             = 5 // course, curso, buscacursos
	PriorityCourseCodeSection  = 6 // course_IIC2233_2
	PriorityCourseCode         = 7 // course_IIC2233
	PriorityCourseRegistration = 8 // course_10726
	PriorityClassroom          = 9 // sala, sala_B12
)

var (
	startRegex             = regexp.MustCompile(`(?i)^start$`)
	helpRegex              = regexp.MustCompile(`(?i)^(help|ayuda)`)
	aboutRegex             = regexp.MustCompile(`(?i)^(about|acerca)`)
	cancelRegex            = regexp.MustCompile(`(?i)^(cancel|cancelar)`)
	courseRegex            = regexp.MustCompile(`(?i)^(course|curso|buscacursos)$`)
	courseCodeSectionRegex = regexp.MustCompile(`(?i)^(?:course|curso)_([a-z]{1,3}\d+)_(\d+)$`)
	courseCodeRegex        = regexp.MustCompile(`(?i)^(?:course|curso)_([a-z]{1,3}\d+)$`)
	courseNRCRegex         = regexp.MustCompile(`(?i)^(?:course|curso)_(\d+)$`)
	classroomRegex         = regexp.MustCompile(`(?i)^(classroom|place|sala)(_.+)?$`)
)

// commandMatcher is one typed entry of the command table.
type commandMatcher struct {
	name     string
	pattern  *regexp.Regexp
	priority int
	resolve  func(groups, args []string) Intent
}

// Resolver maps command names to intents.
type Resolver struct {
	matcher  *course.Matcher
	commands []commandMatcher
}

// NewResolver creates a resolver that classifies command arguments with matcher.
func NewResolver(matcher *course.Matcher) *Resolver {
	r := &Resolver{matcher: matcher}
	r.initializeCommands()
	return r
}

func (r *Resolver) initializeCommands() {
	period := r.matcher.Period()

	r.commands = []commandMatcher{
		{
			name:     "start",
			pattern:  startRegex,
			priority: PriorityStart,
			resolve:  simple(ActionStart),
		},
		{
			name:     "help",
			pattern:  helpRegex,
			priority: PriorityHelp,
			resolve:  simple(ActionStart),
		},
		{
			name:     "about",
			pattern:  aboutRegex,
			priority: PriorityAbout,
			resolve:  simple(ActionAbout),
		},
		{
			name:     "cancel",
			pattern:  cancelRegex,
			priority: PriorityCancel,
			resolve:  simple(ActionCancel),
		},
		{
			name:     "course",
			pattern:  courseRegex,
			priority: PriorityCourse,
			resolve: func(_, args []string) Intent {
				answer := strings.Join(args, " ")
				if strings.TrimSpace(answer) == "" {
					return Intent{Action: ActionAskCourse}
				}
				return Intent{Action: ActionCourseQuery, Query: r.matcher.Match(answer)}
			},
		},
		{
			name:     "course_code_section",
			pattern:  courseCodeSectionRegex,
			priority: PriorityCourseCodeSection,
			resolve: func(g, _ []string) Intent {
				return Intent{Action: ActionCourseQuery, Query: course.ByCodeAndSection(period, g[1], g[2])}
			},
		},
		{
			name:     "course_code",
			pattern:  courseCodeRegex,
			priority: PriorityCourseCode,
			resolve: func(g, _ []string) Intent {
				return Intent{Action: ActionCourseQuery, Query: course.ByCode(period, g[1])}
			},
		},
		{
			name:     "course_nrc",
			pattern:  courseNRCRegex,
			priority: PriorityCourseRegistration,
			resolve: func(g, _ []string) Intent {
				return Intent{Action: ActionCourseQuery, Query: course.ByRegistrationNumber(period, g[1])}
			},
		},
		{
			name:     "classroom",
			pattern:  classroomRegex,
			priority: PriorityClassroom,
			resolve:  simple(ActionUnimplemented),
		},
	}

	// Sort by priority (lower number = higher priority)
	slices.SortFunc(r.commands, func(a, b commandMatcher) int {
		return a.priority - b.priority
	})
}

func simple(action Action) func(groups, args []string) Intent {
	return func(_, _ []string) Intent {
		return Intent{Action: action}
	}
}

// Resolve maps a command name and its arguments to an intent.
// The name may carry a leading slash and a "@botname" suffix.
// Unmatched commands resolve to ActionNone.
func (r *Resolver) Resolve(name string, args []string) Intent {
	name = Normalize(name)
	if name == "" {
		return Intent{}
	}

	for _, cmd := range r.commands {
		if groups := cmd.pattern.FindStringSubmatch(name); groups != nil {
			intent := cmd.resolve(groups, args)
			intent.Command = cmd.name
			return intent
		}
	}

	return Intent{}
}

// Normalize strips the leading slash and any "@botname" suffix of a command name.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return name
}

// Parse splits a "/command arg1 arg2" text into name and arguments.
// ok is false when text is not a command.
func Parse(text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name = Normalize(fields[0])
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}
