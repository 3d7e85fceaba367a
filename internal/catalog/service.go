package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyellow/buscacursos-bot-go/internal/config"
	"github.com/garyellow/buscacursos-bot-go/internal/course"
	domerrors "github.com/garyellow/buscacursos-bot-go/internal/errors"
	"github.com/garyellow/buscacursos-bot-go/internal/logger"
	"github.com/garyellow/buscacursos-bot-go/internal/metrics"
	"github.com/garyellow/buscacursos-bot-go/internal/scraper"
)

// Service turns queries into catalog searches.
//
// Each search is attempted exactly once. Concurrent identical searches share
// one upstream call; every caller still receives its own copy of the records.
// The shared call is detached from the callers' cancellation and bounded by
// its own timeout, so one caller giving up never fails the others.
type Service struct {
	catalog Catalog
	metrics *metrics.Metrics // Optional
	logger  *logger.Logger
	group   singleflight.Group
	timeout time.Duration
}

// NewService creates a query service. m may be nil.
func NewService(c Catalog, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		catalog: c,
		metrics: m,
		logger:  log.WithModule("catalog"),
		timeout: config.CatalogRequest,
	}
}

// WithTimeout bounds each shared upstream search by d.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// search runs the shared upstream call for params, or returns ctx's error
// once the caller stops waiting. The call itself keeps running for the
// other callers.
func (s *Service) search(ctx context.Context, params Params) (res singleflight.Result, executed bool) {
	var ran atomic.Bool
	ch := s.group.DoChan(params.key(), func() (any, error) {
		ran.Store(true)
		searchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.catalog.Search(searchCtx, params)
	})

	select {
	case res = <-ch:
		return res, ran.Load()
	case <-ctx.Done():
		return singleflight.Result{Err: ctx.Err()}, false
	}
}

// Execute runs q against the catalog.
// Failures satisfy errors.Is(err, errors.ErrCatalogUnavailable). An empty
// result is not an error.
func (s *Service) Execute(ctx context.Context, q course.Query) ([]course.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := ParamsFor(q)
	kind := q.Kind.String()
	start := time.Now()

	res, executed := s.search(ctx, params)
	v, err, shared := res.Val, res.Err, res.Shared
	// shared is also true for the caller that ran the search.
	if shared && !executed && s.metrics != nil {
		s.metrics.RecordSingleflightDedup(kind)
	}

	duration := time.Since(start)
	if err != nil {
		status := "error"
		switch {
		case errors.Is(err, context.Canceled):
			status = "canceled"
		case scraper.IsTimeout(err):
			status = "timeout"
		}
		s.record(kind, status, duration, -1)
		s.logger.WithError(err).
			WithField("query", q.String()).
			WithField("duration_ms", duration.Milliseconds()).
			WarnContext(ctx, "Catalog search failed")
		return nil, domerrors.NewCatalogError(params.Term, err)
	}

	found, _ := v.([]course.Record)
	records := make([]course.Record, 0, len(found))
	for _, r := range found {
		if q.Kind == course.KindCodeAndSection && r.Section != q.Section {
			continue
		}
		records = append(records, r.Clone())
	}

	status := "success"
	if len(records) == 0 {
		status = "empty"
	}
	s.record(kind, status, duration, len(records))
	s.logger.WithField("query", q.String()).
		WithField("results", len(records)).
		WithField("shared", shared).
		DebugContext(ctx, "Catalog search completed")

	return records, nil
}

func (s *Service) record(kind, status string, duration time.Duration, count int) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordCatalogRequest(kind, status, duration.Seconds())
	if count >= 0 {
		s.metrics.RecordCatalogResults(count)
	}
}
