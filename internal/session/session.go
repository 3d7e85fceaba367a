// Package session holds the per-conversation dialogue state, the store
// abstraction that persists it between turns, and the per-conversation lock
// that serializes turns of one conversation.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/paging"
)

// State is the dialogue state of a conversation.
type State string

// Dialogue states.
const (
	StateIdle           State = "idle"
	StateAwaitingAnswer State = "awaiting_answer" // A free-text course answer is expected
)

// Results are the paged records of the last query of a conversation.
type Results struct {
	Period course.Period     `json:"period"`
	Pages  [][]course.Record `json:"pages"`
	Paging paging.Paging     `json:"paging"`
}

// Session is the dialogue state of one conversation.
type Session struct {
	State   State    `json:"state"`
	Results *Results `json:"results,omitempty"`
}

// New returns an idle session without results.
func New() *Session {
	return &Session{State: StateIdle}
}

// Awaiting reports whether a free-text answer is expected.
func (s *Session) Awaiting() bool {
	return s.State == StateAwaitingAnswer
}

// Ask marks the session as waiting for a free-text answer.
func (s *Session) Ask() {
	s.State = StateAwaitingAnswer
}

// Reset clears the pending question. Stored results are kept.
func (s *Session) Reset() {
	s.State = StateIdle
}

// SetResults replaces the stored results with records split into pages of
// pageSize, positioned on the first page.
func (s *Session) SetResults(period course.Period, records []course.Record, pageSize int) {
	pages, p := paging.Paginate(records, pageSize)
	s.Results = &Results{
		Period: period,
		Pages:  pages,
		Paging: p,
	}
}

// HasResults reports whether a previous query stored results.
func (s *Session) HasResults() bool {
	return s.Results != nil
}

// GoTo moves the stored results to page index.
// It reports false, leaving the session unchanged, when there are no stored
// results or index is out of range.
func (s *Session) GoTo(index int) bool {
	if s.Results == nil {
		return false
	}
	next, ok := s.Results.Paging.GoTo(index)
	if !ok {
		return false
	}
	s.Results.Paging = next
	return true
}

// CurrentPage returns the records of the shown page, or nil without results.
func (s *Session) CurrentPage() []course.Record {
	if s.Results == nil {
		return nil
	}
	i := s.Results.Paging.Current
	if i < 0 || i >= len(s.Results.Pages) {
		return nil
	}
	return s.Results.Pages[i]
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := &Session{State: s.State}
	if s.Results != nil {
		r := &Results{
			Period: s.Results.Period,
			Paging: s.Results.Paging,
			Pages:  make([][]course.Record, len(s.Results.Pages)),
		}
		for i, page := range s.Results.Pages {
			r.Pages[i] = make([]course.Record, len(page))
			for j, rec := range page {
				r.Pages[i][j] = rec.Clone()
			}
		}
		c.Results = r
	}
	return c
}

// Marshal encodes a session for storage backends.
func Marshal(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a session written by Marshal.
// Unknown or empty states decode as idle.
func Unmarshal(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	if s.State != StateAwaitingAnswer {
		s.State = StateIdle
	}
	return &s, nil
}
