package insight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/verte-zerg/hearback/internal/align"
	"github.com/verte-zerg/hearback/internal/observe"
)

// Enricher derives an Insight for one event. It may be slow.
type Enricher interface {
	Enrich(ctx context.Context, req Request) (Insight, error)
}

// EnricherFunc adapts a function to Enricher.
type EnricherFunc func(ctx context.Context, req Request) (Insight, error)

func (f EnricherFunc) Enrich(ctx context.Context, req Request) (Insight, error) {
	return f(ctx, req)
}

// TemplateEnricher fills an Insight from the event alone.
type TemplateEnricher struct {
	Now func() time.Time
}

func (e TemplateEnricher) Enrich(_ context.Context, req Request) (Insight, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	ev := req.Event
	in := Insight{
		EventID:   ev.ID,
		Category:  req.Category,
		Label:     req.Category.Label(),
		Expected:  ev.Expected,
		Observed:  ev.Observed,
		Narrate:   req.Narrate,
		CreatedAt: now().UTC(),
	}
	if ev.Hint != nil {
		in.Phrase = ev.Hint.Text
	}
	in.Summary = summarize(ev, in)
	return in, nil
}

func summarize(ev align.Event, in Insight) string {
	switch ev.Kind {
	case align.EventMissing:
		if in.Phrase != "" {
			return fmt.Sprintf("missed %q in %q (%s)", ev.Expected, in.Phrase, in.Label)
		}
		return fmt.Sprintf("missed %q (%s)", ev.Expected, in.Label)
	case align.EventExtra:
		return fmt.Sprintf("added %q (%s)", ev.Observed, in.Label)
	default:
		if in.Narrate {
			return fmt.Sprintf("heard %q as %q (%s)", ev.Expected, ev.Observed, in.Label)
		}
		return fmt.Sprintf("wrote %q for %q (%s)", ev.Observed, ev.Expected, in.Label)
	}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = l
	}
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *observe.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service looks insights up in a cache and enriches misses at most once
// per key, even under concurrent lookups.
type Service struct {
	cache    Cache
	enricher Enricher
	group    singleflight.Group
	log      *slog.Logger
	metrics  *observe.Metrics
}

// NewService returns a Service. A nil enricher uses TemplateEnricher.
func NewService(cache Cache, enricher Enricher, opts ...ServiceOption) *Service {
	if enricher == nil {
		enricher = TemplateEnricher{}
	}
	s := &Service{
		cache:    cache,
		enricher: enricher,
		log:      observe.Discard(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Lookup returns the cached insight for req.Key, enriching it on a miss.
func (s *Service) Lookup(ctx context.Context, req Request) (Insight, error) {
	if in, ok := s.cached(ctx, req.Key); ok {
		return in, nil
	}

	digest := req.Key.Digest()
	ch := s.group.DoChan(digest, func() (any, error) {
		if in, ok := s.cached(ctx, req.Key); ok {
			return in, nil
		}
		// One caller giving up must not fail the others sharing the flight.
		in, err := s.enricher.Enrich(context.WithoutCancel(ctx), req)
		if err != nil {
			return Insight{}, fmt.Errorf("enrich %s: %w", req.Key.EventID, err)
		}
		if s.metrics != nil {
			s.metrics.InsightEnrichments.Add(ctx, 1)
		}
		if err := s.cache.Put(req.Key, in); err != nil {
			s.log.Warn("insight cache put failed", "event", req.Key.EventID, "err", err)
		}
		return in, nil
	})

	select {
	case <-ctx.Done():
		return Insight{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Insight{}, res.Err
		}
		return res.Val.(Insight), nil
	}
}

func (s *Service) cached(ctx context.Context, key Key) (Insight, bool) {
	in, ok, err := s.cache.Get(key)
	result := "miss"
	switch {
	case err != nil:
		result = "error"
		s.log.Warn("insight cache get failed", "event", key.EventID, "err", err)
	case ok:
		result = "hit"
	}
	if s.metrics != nil {
		s.metrics.RecordInsightLookup(ctx, result)
	}
	return in, ok && err == nil
}
