// Package buscacursos implements catalog.Catalog by scraping the public
// course search site of Pontificia Universidad Católica de Chile.
package buscacursos

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/garyellow/buscacursos-bot-go/internal/catalog"
	"github.com/garyellow/buscacursos-bot-go/internal/course"
	"github.com/garyellow/buscacursos-bot-go/internal/scraper"
)

// DefaultBaseURL is the public catalog site.
const DefaultBaseURL = "http://buscacursos.uc.cl"

// Query string parameters understood by the site.
const (
	paramTerm               = "cxml_semestre"
	paramCode               = "cxml_sigla"
	paramRegistrationNumber = "cxml_nrc"
	paramName               = "cxml_nombre"
)

// Scraper searches the catalog site.
type Scraper struct {
	client  *scraper.Client
	baseURL string
}

var _ catalog.Catalog = (*Scraper)(nil)

// New creates a catalog scraper. An empty baseURL uses DefaultBaseURL.
func New(client *scraper.Client, baseURL string) *Scraper {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SearchURL returns the result page URL for p. Unused parameters are sent empty.
func (s *Scraper) SearchURL(p catalog.Params) string {
	q := url.Values{}
	q.Set(paramTerm, p.Term)
	q.Set(paramCode, p.Code)
	q.Set(paramRegistrationNumber, p.RegistrationNumber)
	q.Set(paramName, p.Name)
	return s.baseURL + "/?" + q.Encode()
}

// Search implements catalog.Catalog.
func (s *Scraper) Search(ctx context.Context, p catalog.Params) ([]course.Record, error) {
	doc, err := s.client.GetDocument(ctx, s.SearchURL(p))
	if err != nil {
		return nil, err
	}

	records, err := Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("buscacursos: parse %s: %w", p.Term, err)
	}
	return records, nil
}

// Parse extracts the course sections of a result page.
// A page without result rows yields an empty, non-nil slice.
func Parse(doc *goquery.Document) ([]course.Record, error) {
	rows := doc.Find(resultRowSelector)
	records := make([]course.Record, 0, rows.Length())
	if rows.Length() == 0 {
		return records, nil
	}

	cols := locateColumns(rows.First().Closest("table"))

	rows.Each(func(_ int, tr *goquery.Selection) {
		if rec, ok := parseRow(tr.ChildrenFiltered("td"), cols); ok {
			records = append(records, rec)
		}
	})

	return records, nil
}
