// Package session scores practice attempts and records them.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/insight"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/observe"
	"github.com/verte-zerg/hearback/internal/scorer"
	"github.com/verte-zerg/hearback/internal/stats"
	"github.com/verte-zerg/hearback/internal/store"
)

// Submission is one typed response to a reference phrase.
type Submission struct {
	Deck      string
	PhraseID  string
	Reference string
	Typed     string
	StartedAt time.Time
}

// Feedback is one presented event with its enrichment.
type Feedback struct {
	Event   scorer.ScoredEvent
	Narrate bool
	Insight insight.Insight
}

// Outcome is the result of a submission.
type Outcome struct {
	Attempt scorer.Attempt
	Record  model.AttemptRecord
	Top     []Feedback
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists attempts. Without a store nothing is saved.
func WithStore(st *store.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithInsights enriches presented events through svc.
func WithInsights(svc *insight.Service) Option {
	return func(s *Service) {
		s.insights = svc
	}
}

// WithMetrics sets the metrics sink. Default: observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithTopEvents sets how many events each outcome presents. Default: 3.
func WithTopEvents(n int) Option {
	return func(s *Service) {
		s.topEvents = n
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is safe for concurrent use when its store is.
type Service struct {
	scorer    *scorer.Scorer
	store     *store.Store
	insights  *insight.Service
	metrics   *observe.Metrics
	log       *slog.Logger
	topEvents int
	now       func() time.Time
}

// New returns a Service around sc.
func New(sc *scorer.Scorer, opts ...Option) *Service {
	s := &Service{
		scorer:    sc,
		log:       observe.Discard(),
		topEvents: 3,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Scorer returns the underlying scorer.
func (s *Service) Scorer() *scorer.Scorer {
	return s.scorer
}

// Submit scores a submission, persists it when a store is configured and
// enriches the top events.
func (s *Service) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	begin := time.Now()
	id := uuid.NewString()
	att, err := s.scorer.ScoreAttempt(id, sub.Reference, sub.Typed)
	if err != nil {
		return Outcome{}, err
	}
	elapsed := time.Since(begin)

	ended := s.now()
	started := sub.StartedAt
	if started.IsZero() {
		started = ended
	}
	st := att.Result.Stats
	rec := model.AttemptRecord{
		ID:            id,
		StartedAt:     started.UTC(),
		EndedAt:       ended.UTC(),
		Deck:          sub.Deck,
		PhraseID:      sub.PhraseID,
		Reference:     sub.Reference,
		Typed:         sub.Typed,
		RefWords:      st.RefWordCount,
		Correct:       st.Correct,
		Substitutions: st.Substitution,
		Deletions:     st.Deletion,
		Insertions:    st.Insertion,
		WER:           att.Result.WER,
		Accuracy:      att.AccuracyPercent,
		DurationMs:    ended.Sub(started).Milliseconds(),
	}

	s.metrics.RecordAttempt(ctx, sub.Deck, elapsed.Seconds(), att.AccuracyPercent)
	for _, c := range att.Categories {
		s.metrics.RecordCategory(ctx, string(c))
	}
	s.log.Debug("attempt scored",
		"id", id,
		"deck", sub.Deck,
		"accuracy", att.AccuracyPercent,
		"events", len(att.Events),
		"elapsed", elapsed,
	)

	if s.store != nil {
		if err := s.store.InsertAttempt(ctx, rec, eventRecords(att.Events), categoryCounts(att.Categories)); err != nil {
			return Outcome{}, fmt.Errorf("save attempt: %w", err)
		}
	}

	top := scorer.TopScoredEvents(att.Events, s.topEvents)
	out := Outcome{Attempt: att, Record: rec, Top: make([]Feedback, 0, len(top))}
	for _, ev := range top {
		fb := Feedback{Event: ev, Narrate: s.scorer.Narrate(ev.Event, ev.Category)}
		if s.insights != nil {
			req := insight.NewRequest(sub.Reference, sub.Typed, ev.Event, ev.Category, fb.Narrate)
			in, err := s.insights.Lookup(ctx, req)
			if err != nil {
				s.log.Warn("insight lookup failed", "event", ev.ID, "err", err)
			} else {
				fb.Insight = in
			}
		}
		out.Top = append(out.Top, fb)
	}
	return out, nil
}

// Rebuild aggregates the most recent window attempts of deck (all decks when
// empty) and stores the summary snapshot.
func (s *Service) Rebuild(ctx context.Context, deck string, window int) (diagnosis.Summary, error) {
	if s.store == nil {
		return diagnosis.Summary{}, fmt.Errorf("rebuild needs a store")
	}
	ids, err := s.store.RecentAttemptIDs(ctx, window, deck)
	if err != nil {
		return diagnosis.Summary{}, fmt.Errorf("load recent attempts: %w", err)
	}
	results, err := s.store.AttemptResults(ctx, ids)
	if err != nil {
		return diagnosis.Summary{}, fmt.Errorf("load attempt results: %w", err)
	}
	sum := s.scorer.Aggregate(results)
	snap := model.SummarySnapshot{CreatedAt: s.now().UTC(), Deck: deck, Window: window, Summary: sum}
	if _, err := s.store.SaveSummary(ctx, snap); err != nil {
		return diagnosis.Summary{}, fmt.Errorf("save summary: %w", err)
	}
	s.log.Debug("summary rebuilt", "deck", deck, "window", window, "attempts", sum.Attempts)
	return sum, nil
}

// Weakness returns 1 - score for the top weak categories of the recent
// window, suitable for weighting phrase selection.
func (s *Service) Weakness(ctx context.Context, deck string, window, top int) (map[feedback.Category]float64, error) {
	if s.store == nil || window <= 0 {
		return map[feedback.Category]float64{}, nil
	}
	ids, err := s.store.RecentAttemptIDs(ctx, window, deck)
	if err != nil {
		return nil, err
	}
	results, err := s.store.AttemptResults(ctx, ids)
	if err != nil {
		return nil, err
	}
	return stats.SelectWeakCategories(diagnosis.Aggregate(results), top), nil
}

func eventRecords(events []scorer.ScoredEvent) []model.EventRecord {
	out := make([]model.EventRecord, 0, len(events))
	for _, ev := range events {
		rec := model.EventRecord{
			EventID:    ev.ID,
			Kind:       string(ev.Kind),
			RefStart:   ev.RefStart,
			RefEnd:     ev.RefEnd,
			Expected:   ev.Expected,
			Observed:   ev.Observed,
			Category:   string(ev.Category),
			Rule:       ev.Rule,
			Confidence: ev.Confidence,
		}
		if ev.Hint != nil {
			rec.Phrase = ev.Hint.Text
		}
		out = append(out, rec)
	}
	return out
}

func categoryCounts(cats []feedback.Category) []model.CategoryCount {
	counts := map[feedback.Category]int{}
	for _, c := range cats {
		counts[c]++
	}
	out := make([]model.CategoryCount, 0, len(counts))
	for _, c := range feedback.All() {
		if n := counts[c]; n > 0 {
			out = append(out, model.CategoryCount{Category: string(c), Count: n})
		}
	}
	return out
}
