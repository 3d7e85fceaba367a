package command

import (
	"testing"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
)

var testPeriod = course.Period{Year: 2017, Term: 2}

func newTestResolver() *Resolver {
	return NewResolver(course.NewMatcher(testPeriod))
}

func TestResolve(t *testing.T) {
	t.Parallel()
	r := newTestResolver()

	tests := []struct {
		name       string
		command    string
		args       []string
		wantAction Action
		wantQuery  course.Query
		wantName   string
	}{
		{"start", "start", nil, ActionStart, course.Query{}, "start"},
		{"start with slash and bot name", "/start@BuscacursosBot", nil, ActionStart, course.Query{}, "start"},
		{"help", "help", nil, ActionStart, course.Query{}, "help"},
		{"ayuda", "ayuda", nil, ActionStart, course.Query{}, "help"},
		{"about", "about", nil, ActionAbout, course.Query{}, "about"},
		{"acerca", "acerca", nil, ActionAbout, course.Query{}, "about"},
		{"cancel", "cancel", nil, ActionCancel, course.Query{}, "cancel"},
		{"cancelar", "cancelar", nil, ActionCancel, course.Query{}, "cancel"},
		{"bare course", "course", nil, ActionAskCourse, course.Query{}, "course"},
		{"bare curso with blank args", "curso", []string{" "}, ActionAskCourse, course.Query{}, "course"},
		{"bare buscacursos", "buscacursos", nil, ActionAskCourse, course.Query{}, "course"},
		{
			"course with code arg", "course", []string{"iic2233"},
			ActionCourseQuery, course.ByCode(testPeriod, "IIC2233"), "course",
		},
		{
			"course with code and section args", "course", []string{"iic2233", "2"},
			ActionCourseQuery, course.ByCodeAndSection(testPeriod, "IIC2233", "2"), "course",
		},
		{
			"course with name args", "curso", []string{"calculo", "ii"},
			ActionCourseQuery, course.ByName(testPeriod, "CALCULO II"), "course",
		},
		{
			"embedded code and section", "course_IIC2233_2", nil,
			ActionCourseQuery, course.ByCodeAndSection(testPeriod, "IIC2233", "2"), "course_code_section",
		},
		{
			"embedded lowercase code and section", "curso_iic2233_12", nil,
			ActionCourseQuery, course.ByCodeAndSection(testPeriod, "IIC2233", "12"), "course_code_section",
		},
		{
			"embedded code", "course_IIC2233", nil,
			ActionCourseQuery, course.ByCode(testPeriod, "IIC2233"), "course_code",
		},
		{
			"embedded nrc", "course_1007", nil,
			ActionCourseQuery, course.ByRegistrationNumber(testPeriod, "1007"), "course_nrc",
		},
		{"classroom", "classroom", nil, ActionUnimplemented, course.Query{}, "classroom"},
		{"sala with suffix", "sala_B12", nil, ActionUnimplemented, course.Query{}, "classroom"},
		{"place", "place", nil, ActionUnimplemented, course.Query{}, "classroom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := r.Resolve(tt.command, tt.args)
			if got.Action != tt.wantAction {
				t.Fatalf("Resolve(%q).Action = %v, want %v", tt.command, got.Action, tt.wantAction)
			}
			if got.Query != tt.wantQuery {
				t.Errorf("Resolve(%q).Query = %+v, want %+v", tt.command, got.Query, tt.wantQuery)
			}
			if got.Command != tt.wantName {
				t.Errorf("Resolve(%q).Command = %q, want %q", tt.command, got.Command, tt.wantName)
			}
		})
	}
}

// course_IIC2233_2 must never be classified as the bare code form.
func TestResolve_MostSpecificEmbeddedFormWins(t *testing.T) {
	t.Parallel()
	r := newTestResolver()

	got := r.Resolve("course_IIC2233_2", nil)
	if got.Query.Kind != course.KindCodeAndSection {
		t.Fatalf("Kind = %v, want %v", got.Query.Kind, course.KindCodeAndSection)
	}
	if got.Query.Code != "IIC2233" || got.Query.Section != "2" {
		t.Errorf("got code=%q section=%q", got.Query.Code, got.Query.Section)
	}

	for i := 1; i < len(r.commands); i++ {
		if r.commands[i-1].priority > r.commands[i].priority {
			t.Fatalf("commands not sorted by priority at %d", i)
		}
	}
}

func TestResolve_Unrecognized(t *testing.T) {
	t.Parallel()
	r := newTestResolver()

	for _, name := range []string{
		"", "/", "settings", "courses", "course_", "course_IIC", "course_IIC2233_",
		"course_IIC2233_2_3", "course_ABCD1234", "classrooms", "startup", "query_course",
	} {
		got := r.Resolve(name, nil)
		if got.Recognized() {
			t.Errorf("Resolve(%q) = %v (%s), want no match", name, got.Action, got.Command)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text     string
		wantName string
		wantArgs []string
		wantOK   bool
	}{
		{"/course iic2233 2", "course", []string{"iic2233", "2"}, true},
		{"  /start@Bot  ", "start", []string{}, true},
		{"/course_IIC2233_2", "course_IIC2233_2", []string{}, true},
		{"IIC2233", "", nil, false},
		{"/", "", nil, false},
		{"", "", nil, false},
	}

	for _, tt := range tests {
		name, args, ok := Parse(tt.text)
		if ok != tt.wantOK || name != tt.wantName {
			t.Errorf("Parse(%q) = (%q, %v, %v), want (%q, %v, %v)", tt.text, name, args, ok, tt.wantName, tt.wantArgs, tt.wantOK)
			continue
		}
		if len(args) != len(tt.wantArgs) {
			t.Errorf("Parse(%q) args = %v, want %v", tt.text, args, tt.wantArgs)
			continue
		}
		for i := range args {
			if args[i] != tt.wantArgs[i] {
				t.Errorf("Parse(%q) args[%d] = %q, want %q", tt.text, i, args[i], tt.wantArgs[i])
			}
		}
	}
}

func TestAction_String(t *testing.T) {
	t.Parallel()
	if ActionCourseQuery.String() != "course_query" {
		t.Errorf("ActionCourseQuery.String() = %q", ActionCourseQuery.String())
	}
	if ActionNone.String() != "none" {
		t.Errorf("ActionNone.String() = %q", ActionNone.String())
	}
}
