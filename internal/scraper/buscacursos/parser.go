package buscacursos

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
)

const resultRowSelector = "tr.resultadosRowPar, tr.resultadosRowImpar"

// field is a column of the result table.
type field int

const (
	fieldRegistrationNumber field = iota
	fieldCode
	fieldSection
	fieldName
	fieldTeachers
	fieldCredits
	fieldVacancyTotal
	fieldVacancyAvailable
	fieldSchedule
	fieldCount
)

// columns maps each field to its cell index (-1 when absent).
type columns [fieldCount]int

// defaultColumns is the historical layout, used when no header row is found.
var defaultColumns = columns{
	fieldRegistrationNumber: 0,
	fieldCode:               1,
	fieldSection:            4,
	fieldName:               7,
	fieldTeachers:           8,
	fieldCredits:            10,
	fieldVacancyTotal:       11,
	fieldVacancyAvailable:   12,
	fieldSchedule:           14,
}

// locateColumns reads the header row of the result table.
// The header is the first non-result row whose cells include "NRC".
func locateColumns(table *goquery.Selection) columns {
	cols := defaultColumns

	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if tr.Is(resultRowSelector) {
			return true
		}

		found := columns{}
		for i := range found {
			found[i] = -1
		}
		tr.ChildrenFiltered("td, th").Each(func(i int, cell *goquery.Selection) {
			if f, ok := headerField(cell.Text()); ok && found[f] < 0 {
				found[f] = i
			}
		})
		if found[fieldRegistrationNumber] < 0 {
			return true
		}

		cols = found
		return false
	})

	return cols
}

// headerField maps a header label to its field.
func headerField(label string) (field, bool) {
	key := foldLabel(label)
	switch {
	case key == "nrc":
		return fieldRegistrationNumber, true
	case key == "sigla":
		return fieldCode, true
	case strings.HasPrefix(key, "sec"):
		return fieldSection, true
	case key == "nombre":
		return fieldName, true
	case strings.HasPrefix(key, "profesor"):
		return fieldTeachers, true
	case strings.HasPrefix(key, "credito"):
		return fieldCredits, true
	case key == "vacantestotales":
		return fieldVacancyTotal, true
	case key == "vacantesdisponibles":
		return fieldVacancyAvailable, true
	case key == "horario":
		return fieldSchedule, true
	default:
		return 0, false
	}
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldLabel lower-cases, strips accents and removes whitespace.
// Labels split by <br> ("Vacantes<br>Totales") fold like spaced ones.
func foldLabel(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), ""))
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseRow converts the direct cells of a result row.
func parseRow(cells *goquery.Selection, cols columns) (course.Record, bool) {
	text := func(f field) string {
		i := cols[f]
		if i < 0 || i >= cells.Length() {
			return ""
		}
		return clean(cells.Eq(i).Text())
	}

	nrc := text(fieldRegistrationNumber)
	if nrc == "" {
		return course.Record{}, false
	}

	rec := course.Record{
		RegistrationNumber: nrc,
		Code:               strings.ToUpper(text(fieldCode)),
		Section:            text(fieldSection),
		Name:               text(fieldName),
		Credits:            atoi(text(fieldCredits)),
		Vacancy: course.Vacancy{
			Available: atoi(text(fieldVacancyAvailable)),
			Total:     atoi(text(fieldVacancyTotal)),
		},
		Teachers: splitTeachers(text(fieldTeachers)),
	}

	if i := cols[fieldSchedule]; i >= 0 && i < cells.Length() {
		rec.Schedule = parseSchedule(cells.Eq(i))
	}

	return rec, true
}

// parseSchedule reads the nested timetable: one row per (when, type, where).
func parseSchedule(cell *goquery.Selection) []course.ScheduleEntry {
	var entries []course.ScheduleEntry
	cell.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.ChildrenFiltered("td")
		if tds.Length() < 2 {
			return
		}
		entry := course.ScheduleEntry{
			When: clean(tds.Eq(0).Text()),
			Type: clean(tds.Eq(1).Text()),
		}
		if tds.Length() > 2 {
			entry.Where = clean(tds.Eq(2).Text())
		}
		if entry.When == "" && entry.Type == "" {
			return
		}
		entries = append(entries, entry)
	})
	return entries
}

func splitTeachers(s string) []string {
	var teachers []string
	for name := range strings.SplitSeq(s, ",") {
		if name = clean(name); name != "" {
			teachers = append(teachers, name)
		}
	}
	return teachers
}

// atoi parses the leading digits of s, returning 0 when there are none.
func atoi(s string) int {
	end := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if end == 0 {
		return 0
	}
	if end > 0 {
		s = s[:end]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
