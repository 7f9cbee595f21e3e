package stats

import (
	"context"
	"strings"

	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/store"
)

// TopPhraseLimit is the number of most-missed phrases a report carries.
const TopPhraseLimit = 15

// Report contains precomputed data for stats rendering.
type Report struct {
	Attempts         []model.AttemptAggregate
	WindowAttemptIDs []string
	Summary          diagnosis.Summary
	Totals           []model.CategoryCount
	PerAttempt       map[string][]model.CategoryCount
	TopPhrases       []model.PhraseMiss
}

// BuildReport loads and prepares data for stats rendering. The diagnostic
// summary and the missed phrases cover the curve window; totals and
// per-attempt counts cover every listed attempt.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	attempts, err := st.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}

	allIDs := attemptIDs(attempts)
	windowIDs := lastAttemptIDs(attempts, cfg.CurveWindow)
	results, err := st.AttemptResults(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}
	totals, err := st.CategoryTotals(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	perAttempt, err := st.ListCategoryCounts(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	phrases, err := st.TopMissedPhrases(ctx, windowIDs, TopPhraseLimit)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Attempts:         attempts,
		WindowAttemptIDs: windowIDs,
		Summary:          diagnosis.Aggregate(results),
		Totals:           totals,
		PerAttempt:       perAttempt,
		TopPhrases:       phrases,
	}, nil
}

func attemptIDs(attempts []model.AttemptAggregate) []string {
	ids := make([]string, len(attempts))
	for i, a := range attempts {
		ids[i] = a.AttemptID
	}
	return ids
}

func lastAttemptIDs(attempts []model.AttemptAggregate, window int) []string {
	if window <= 0 || len(attempts) <= window {
		return attemptIDs(attempts)
	}
	return attemptIDs(attempts[len(attempts)-window:])
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
