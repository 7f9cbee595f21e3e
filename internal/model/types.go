// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/verte-zerg/hearback/internal/diagnosis"
)

// Config defines practice settings.
type Config struct {
	Deck       string
	DeckPath   string
	Phrases    int
	FlashMs    int
	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	WeakWindow int
	TopEvents  int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Deck        string
	Since       *time.Time
	Last        int
	CurveWindow int
	Categories  string
}

// AttemptRecord captures one scored attempt.
type AttemptRecord struct {
	ID            string
	StartedAt     time.Time
	EndedAt       time.Time
	Deck          string
	PhraseID      string
	Reference     string
	Typed         string
	RefWords      int
	Correct       int
	Substitutions int
	Deletions     int
	Insertions    int
	WER           float64
	Accuracy      float64
	DurationMs    int64
}

// EventRecord stores one categorized event of an attempt.
type EventRecord struct {
	EventID    string
	Kind       string
	RefStart   int
	RefEnd     int
	Expected   string
	Observed   string
	Phrase     string
	Category   string
	Rule       string
	Confidence float64
}

// CategoryCount is the raw, uncapped number of events of one category.
type CategoryCount struct {
	Category string
	Count    int
}

// AttemptAggregate summarizes an attempt for reporting.
type AttemptAggregate struct {
	AttemptID  string
	EndedAt    time.Time
	Accuracy   float64
	RefWords   int
	Errors     int
	DurationMs int64
}

// PhraseMiss counts how often a phrase was involved in an event.
type PhraseMiss struct {
	Phrase   string
	Category string
	Count    int
}

// SummarySnapshot is a stored diagnostic summary.
type SummarySnapshot struct {
	ID        int64
	CreatedAt time.Time
	Deck      string
	Window    int
	Summary   diagnosis.Summary
}
