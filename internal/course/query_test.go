package course

import (
	"errors"
	"testing"
	"time"

	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
)

func TestQuery_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		query   Query
		wantErr bool
	}{
		{"registration number", ByRegistrationNumber(testPeriod, "1007"), false},
		{"code", ByCode(testPeriod, "iic2233"), false},
		{"code and section", ByCodeAndSection(testPeriod, "IIC2233", "2"), false},
		{"name", ByName(testPeriod, "calculo"), false},
		{"non numeric nrc", ByRegistrationNumber(testPeriod, "10a7"), true},
		{"code without digits", ByCode(testPeriod, "IIC"), true},
		{"code with four letters", ByCode(testPeriod, "ABCD1"), true},
		{"non numeric section", ByCodeAndSection(testPeriod, "IIC2233", "A"), true},
		{"empty name", ByName(testPeriod, "   "), true},
		{"unknown kind", Query{Period: testPeriod}, true},
		{"bad period", ByCode(Period{Year: 2017, Term: 7}, "IIC2233"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domerrors.ErrInvalidInput) {
				t.Errorf("Validate() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestQuery_Constructors(t *testing.T) {
	t.Parallel()

	q := ByCodeAndSection(testPeriod, " iic2233 ", " 2 ")
	if q.Code != "IIC2233" || q.Section != "2" || q.Kind != KindCodeAndSection {
		t.Errorf("ByCodeAndSection = %+v", q)
	}

	n := ByName(testPeriod, "  taller   de  programacion ")
	if n.Name != "TALLER DE PROGRAMACION" {
		t.Errorf("ByName().Name = %q, want %q", n.Name, "TALLER DE PROGRAMACION")
	}

	if got, want := q.String(), "2017-2 code=IIC2233 section=2"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()
	tests := map[Kind]string{
		KindRegistrationNumber: "registration_number",
		KindCode:               "code",
		KindCodeAndSection:     "code_section",
		KindName:               "name",
		KindUnknown:            "unknown",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestPeriod(t *testing.T) {
	t.Parallel()

	if got := (Period{Year: 2017, Term: 2}).String(); got != "2017-2" {
		t.Errorf("String() = %q, want 2017-2", got)
	}

	p, err := ParsePeriod("2024-1")
	if err != nil {
		t.Fatalf("ParsePeriod() error = %v", err)
	}
	if p != (Period{Year: 2024, Term: 1}) {
		t.Errorf("ParsePeriod() = %+v", p)
	}

	for _, bad := range []string{"", "2024", "2024-x", "abcd-1", "2024-4", "0-1"} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Errorf("ParsePeriod(%q) error = nil, want error", bad)
		}
	}
}

func TestCurrentPeriod(t *testing.T) {
	t.Parallel()
	tests := []struct {
		date time.Time
		want Period
	}{
		{time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), Period{Year: 2026, Term: 1}},
		{time.Date(2026, time.June, 30, 23, 0, 0, 0, time.UTC), Period{Year: 2026, Term: 1}},
		{time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), Period{Year: 2026, Term: 2}},
		{time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), Period{Year: 2026, Term: 2}},
	}
	for _, tt := range tests {
		if got := CurrentPeriod(tt.date); got != tt.want {
			t.Errorf("CurrentPeriod(%s) = %v, want %v", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestRecord_CloneAndLabel(t *testing.T) {
	t.Parallel()
	r := Record{
		Code:     "IIC2233",
		Section:  "2",
		Schedule: []ScheduleEntry{{Type: "CLAS", When: "L-W:2", Where: "B12"}},
		Teachers: []string{"Ruz Cristian"},
	}

	c := r.Clone()
	c.Schedule[0].Where = "A5"
	c.Teachers[0] = "Other"

	if r.Schedule[0].Where != "B12" || r.Teachers[0] != "Ruz Cristian" {
		t.Error("Clone() shares slices with the original")
	}
	if r.Label() != "IIC2233-2" {
		t.Errorf("Label() = %q, want IIC2233-2", r.Label())
	}
}
