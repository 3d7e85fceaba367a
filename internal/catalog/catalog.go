// Package catalog executes course queries against a course catalog.
package catalog

import (
	"context"

	"github.com/garyellow/buscacursos-bot-go/internal/course"
)

// Params are the search parameters sent to the catalog.
// Term is always set; at most one of Code, RegistrationNumber and Name is.
type Params struct {
	Term               string
	Code               string
	RegistrationNumber string
	Name               string
}

// Catalog searches course sections.
type Catalog interface {
	Search(ctx context.Context, params Params) ([]course.Record, error)
}

// ParamsFor builds the catalog parameters of q.
// Sections are never sent upstream; they are filtered locally.
func ParamsFor(q course.Query) Params {
	p := Params{Term: q.Period.String()}
	switch q.Kind {
	case course.KindRegistrationNumber:
		p.RegistrationNumber = q.Number
	case course.KindCode, course.KindCodeAndSection:
		p.Code = q.Code
	case course.KindName:
		p.Name = q.Name
	}
	return p
}

// key identifies identical searches for request deduplication.
func (p Params) key() string {
	return p.Term + "\x00" + p.Code + "\x00" + p.RegistrationNumber + "\x00" + p.Name
}
