// Package scorer is the entry point to the scoring pipeline: alignment,
// categorization, event selection and aggregation.
package scorer

import (
	"fmt"

	"github.com/verte-zerg/hearback/internal/align"
	"github.com/verte-zerg/hearback/internal/classify"
	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/phrase"
)

// ScoredEvent is an alignment event with its category.
type ScoredEvent struct {
	align.Event
	Category feedback.Category
	Rule     string
}

// Attempt is the full outcome of scoring one typed response.
type Attempt struct {
	Result align.Result
	Events []ScoredEvent
	diagnosis.AttemptResult
}

// Option configures a Scorer.
type Option func(*options)

type options struct {
	threshold    *float64
	narration    float64
	registry     *phrase.Registry
	classifyOpts []classify.Option
}

// WithSubstitutionThreshold sets the similarity gate threshold.
func WithSubstitutionThreshold(v float64) Option {
	return func(o *options) {
		o.threshold = &v
	}
}

// WithNarrationThreshold sets the minimum confidence for narrating a
// substitution. Default: feedback.NarrationThreshold.
func WithNarrationThreshold(v float64) Option {
	return func(o *options) {
		o.narration = v
	}
}

// WithRegistry sets the phrase patterns used for hints.
func WithRegistry(r *phrase.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithClassifyOptions forwards options to the categorizer.
func WithClassifyOptions(opts ...classify.Option) Option {
	return func(o *options) {
		o.classifyOpts = append(o.classifyOpts, opts...)
	}
}

// Scorer is read-only after construction and safe for concurrent use.
type Scorer struct {
	aligner     *align.Aligner
	categorizer *classify.Categorizer
	narration   float64
}

// New returns a Scorer.
func New(opts ...Option) *Scorer {
	o := options{narration: feedback.NarrationThreshold}
	for _, fn := range opts {
		fn(&o)
	}
	var alignOpts []align.Option
	if o.threshold != nil {
		alignOpts = append(alignOpts, align.WithSubstitutionThreshold(*o.threshold))
	}
	if o.registry != nil {
		alignOpts = append(alignOpts, align.WithRegistry(o.registry))
	}
	return &Scorer{
		aligner:     align.New(alignOpts...),
		categorizer: classify.New(o.classifyOpts...),
		narration:   o.narration,
	}
}

// Align aligns typed text against the reference.
func (s *Scorer) Align(reference, hypothesis string) align.Result {
	return s.aligner.Align(reference, hypothesis)
}

// Categorize assigns a category to one event.
func (s *Scorer) Categorize(ev align.Event, refTokens, observedTokens []string) (classify.Result, error) {
	return s.categorizer.Categorize(ev, refTokens, observedTokens)
}

// Aggregate folds attempts into a summary.
func (s *Scorer) Aggregate(attempts []diagnosis.AttemptResult) diagnosis.Summary {
	return diagnosis.Aggregate(attempts)
}

// ScoreAttempt aligns, categorizes every event and builds the attempt
// result. The returned error only reports internal inconsistencies.
func (s *Scorer) ScoreAttempt(id, reference, typed string) (Attempt, error) {
	res := s.aligner.Align(reference, typed)
	ref, hyp := res.RefWords(), res.HypWords()

	events := make([]ScoredEvent, 0, len(res.Events))
	cats := make([]feedback.Category, 0, len(res.Events))
	for _, ev := range res.Events {
		c, err := s.categorizer.Categorize(ev, ref, hyp)
		if err != nil {
			return Attempt{}, fmt.Errorf("categorize %s: %w", ev.ID, err)
		}
		events = append(events, ScoredEvent{Event: ev, Category: c.Category, Rule: c.Rule})
		cats = append(cats, c.Category)
	}

	return Attempt{
		Result: res,
		Events: events,
		AttemptResult: diagnosis.AttemptResult{
			AttemptID:       id,
			AccuracyPercent: res.Accuracy * 100,
			Categories:      cats,
		},
	}, nil
}

// Narrate reports whether an event may be described as "you heard X as Y":
// only confident substitutions, and never spelling slips.
func (s *Scorer) Narrate(ev align.Event, cat feedback.Category) bool {
	return ev.Kind == align.EventSubstitution && ev.Confidence >= s.narration && cat.Auditory()
}

// ExtractTopEvents returns up to max events for presentation: phrase-hinted
// events first, then the rest, each group in reference order.
func ExtractTopEvents(res align.Result, max int) []align.Event {
	return topEvents(res.Events, max, func(ev align.Event) bool { return ev.Hint != nil })
}

// TopScoredEvents applies the ExtractTopEvents ordering to scored events.
func TopScoredEvents(events []ScoredEvent, max int) []ScoredEvent {
	return topEvents(events, max, func(ev ScoredEvent) bool { return ev.Hint != nil })
}

func topEvents[E any](events []E, max int, hinted func(E) bool) []E {
	if max <= 0 || len(events) == 0 {
		return nil
	}
	out := make([]E, 0, min(max, len(events)))
	for _, want := range []bool{true, false} {
		for _, ev := range events {
			if len(out) == max {
				return out
			}
			if hinted(ev) == want {
				out = append(out, ev)
			}
		}
	}
	return out
}
