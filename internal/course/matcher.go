package course

import (
	"regexp"
	"slices"
	"strings"
)

// Matcher priorities (1=highest): CodeSection → Code → RegistrationNumber → Name.
// A bare code is a suffix of the code-section shape, so the longer shape must
// be tried first.
const (
	PriorityCodeSection        = 1 // IIC2233-2, IIC2233 2
	PriorityCode               = 2 // IIC2233
	PriorityRegistrationNumber = 3 // 10726
)

// MatchName* identify which matcher produced a query.
const (
	MatchNameCodeSection        = "code_section"
	MatchNameCode               = "code"
	MatchNameRegistrationNumber = "registration_number"
	MatchNameName               = "name"
)

var (
	// codeSectionRegex matches a course code followed by a section number,
	// separated by up to three hyphens or spaces.
	codeSectionRegex = regexp.MustCompile(`\b([A-Z]{1,3}\d+)[-\s]{1,3}(\d+)$`)

	// codeAtEndRegex matches a course code ending the answer.
	codeAtEndRegex = regexp.MustCompile(`\b([A-Z]{1,3}\d+)$`)

	// registrationNumberRegex matches a numbers-only answer.
	registrationNumberRegex = regexp.MustCompile(`^(\d+)$`)
)

// queryMatcher is one typed entry of the matcher table.
type queryMatcher struct {
	name     string
	pattern  *regexp.Regexp
	priority int
	build    func(p Period, groups []string) Query
}

// Matcher classifies free-text answers into course queries for a period.
// Answers are tried against a priority-ordered table; the first match wins
// and anything unmatched becomes a name query.
type Matcher struct {
	period   Period
	matchers []queryMatcher
}

// NewMatcher creates a matcher that stamps every query with period.
func NewMatcher(period Period) *Matcher {
	m := &Matcher{period: period}
	m.initializeMatchers()
	return m
}

func (m *Matcher) initializeMatchers() {
	m.matchers = []queryMatcher{
		{
			name:     MatchNameRegistrationNumber,
			pattern:  registrationNumberRegex,
			priority: PriorityRegistrationNumber,
			build: func(p Period, g []string) Query {
				return ByRegistrationNumber(p, g[1])
			},
		},
		{
			name:     MatchNameCode,
			pattern:  codeAtEndRegex,
			priority: PriorityCode,
			build: func(p Period, g []string) Query {
				return ByCode(p, g[1])
			},
		},
		{
			name:     MatchNameCodeSection,
			pattern:  codeSectionRegex,
			priority: PriorityCodeSection,
			build: func(p Period, g []string) Query {
				return ByCodeAndSection(p, g[1], g[2])
			},
		},
	}

	// Sort by priority (lower number = higher priority)
	slices.SortFunc(m.matchers, func(a, b queryMatcher) int {
		return a.priority - b.priority
	})
}

// Period returns the period stamped on every query.
func (m *Matcher) Period() Period {
	return m.period
}

// Match classifies answer. The answer is trimmed and upper-cased first.
func (m *Matcher) Match(answer string) Query {
	q, _ := m.MatchNamed(answer)
	return q
}

// MatchNamed classifies answer and also returns the name of the matcher that fired.
func (m *Matcher) MatchNamed(answer string) (Query, string) {
	text := strings.ToUpper(strings.TrimSpace(answer))

	for _, matcher := range m.matchers {
		if groups := matcher.pattern.FindStringSubmatch(text); groups != nil {
			return matcher.build(m.period, groups), matcher.name
		}
	}

	return ByName(m.period, text), MatchNameName
}
