package course

import (
	"fmt"
	"regexp"
	"strings"

	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
)

// Kind discriminates the variants of a Query.
type Kind uint8

// Query variants. Exactly one is active per query.
const (
	KindUnknown Kind = iota
	KindRegistrationNumber
	KindCode
	KindCodeAndSection
	KindName
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindRegistrationNumber:
		return "registration_number"
	case KindCode:
		return "code"
	case KindCodeAndSection:
		return "code_section"
	case KindName:
		return "name"
	default:
		return "unknown"
	}
}

var (
	codeRegex   = regexp.MustCompile(`^[A-Z]{1,3}\d+$`)
	digitsRegex = regexp.MustCompile(`^\d+$`)
)

// Query is a normalized course search intent.
// Only the fields of the active variant are set.
type Query struct {
	Kind    Kind   `json:"kind"`
	Period  Period `json:"period"`
	Number  string `json:"number,omitempty"`  // KindRegistrationNumber
	Code    string `json:"code,omitempty"`    // KindCode, KindCodeAndSection
	Section string `json:"section,omitempty"` // KindCodeAndSection
	Name    string `json:"name,omitempty"`    // KindName
}

// ByRegistrationNumber builds a query for a registration number (NRC).
func ByRegistrationNumber(p Period, number string) Query {
	return Query{Kind: KindRegistrationNumber, Period: p, Number: strings.TrimSpace(number)}
}

// ByCode builds a query for every section of a course code.
func ByCode(p Period, code string) Query {
	return Query{Kind: KindCode, Period: p, Code: normalize(code)}
}

// ByCodeAndSection builds a query for one section of a course code.
func ByCodeAndSection(p Period, code, section string) Query {
	return Query{Kind: KindCodeAndSection, Period: p, Code: normalize(code), Section: strings.TrimSpace(section)}
}

// ByName builds a free-text name query.
func ByName(p Period, name string) Query {
	return Query{Kind: KindName, Period: p, Name: normalize(name)}
}

// Validate checks the invariants of the active variant.
func (q Query) Validate() error {
	if err := q.Period.Validate(); err != nil {
		return err
	}

	switch q.Kind {
	case KindRegistrationNumber:
		if !digitsRegex.MatchString(q.Number) {
			return domerrors.NewValidationError("number", fmt.Sprintf("must be digits, got %q", q.Number))
		}
	case KindCode:
		if !codeRegex.MatchString(q.Code) {
			return domerrors.NewValidationError("code", fmt.Sprintf("must be 1-3 letters followed by digits, got %q", q.Code))
		}
	case KindCodeAndSection:
		if !codeRegex.MatchString(q.Code) {
			return domerrors.NewValidationError("code", fmt.Sprintf("must be 1-3 letters followed by digits, got %q", q.Code))
		}
		if !digitsRegex.MatchString(q.Section) {
			return domerrors.NewValidationError("section", fmt.Sprintf("must be digits, got %q", q.Section))
		}
	case KindName:
		if q.Name == "" {
			return domerrors.NewValidationError("name", "must not be empty")
		}
	default:
		return domerrors.NewValidationError("kind", "unknown query kind")
	}
	return nil
}

// String renders the query for logs.
func (q Query) String() string {
	switch q.Kind {
	case KindRegistrationNumber:
		return fmt.Sprintf("%s nrc=%s", q.Period, q.Number)
	case KindCode:
		return fmt.Sprintf("%s code=%s", q.Period, q.Code)
	case KindCodeAndSection:
		return fmt.Sprintf("%s code=%s section=%s", q.Period, q.Code, q.Section)
	case KindName:
		return fmt.Sprintf("%s name=%q", q.Period, q.Name)
	default:
		return q.Period.String() + " unknown"
	}
}

func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
