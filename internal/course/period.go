// Package course defines the course catalog domain: academic periods,
// normalized search queries, the records returned by the catalog, and the
// matcher that turns free text into a query.
package course

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
)

// Period identifies an academic term (e.g., 2017-2).
type Period struct {
	Year int `json:"year"`
	Term int `json:"term"`
}

// MaxTerm is the highest term number of an academic year (3 = summer term).
const MaxTerm = 3

// String returns the catalog term string "YYYY-N".
func (p Period) String() string {
	return fmt.Sprintf("%d-%d", p.Year, p.Term)
}

// Validate checks the year and term ranges.
func (p Period) Validate() error {
	if p.Year <= 0 {
		return domerrors.NewValidationError("year", fmt.Sprintf("must be positive, got %d", p.Year))
	}
	if p.Term < 1 || p.Term > MaxTerm {
		return domerrors.NewValidationError("term", fmt.Sprintf("must be between 1 and %d, got %d", MaxTerm, p.Term))
	}
	return nil
}

// ParsePeriod parses a "YYYY-N" term string.
func ParsePeriod(s string) (Period, error) {
	yearStr, termStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Period{}, domerrors.NewValidationError("period", fmt.Sprintf("expected YYYY-N, got %q", s))
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return Period{}, domerrors.NewValidationError("year", fmt.Sprintf("not a number: %q", yearStr))
	}
	term, err := strconv.Atoi(termStr)
	if err != nil {
		return Period{}, domerrors.NewValidationError("term", fmt.Sprintf("not a number: %q", termStr))
	}
	p := Period{Year: year, Term: term}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// CurrentPeriod returns the regular term in progress at t.
// January to June is the first term, July to December the second.
func CurrentPeriod(t time.Time) Period {
	if t.Month() <= time.June {
		return Period{Year: t.Year(), Term: 1}
	}
	return Period{Year: t.Year(), Term: 2}
}
