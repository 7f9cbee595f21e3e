// Package diagnosis folds categorized attempts into a per-category weakness
// profile.
package diagnosis

import (
	"cmp"
	"math"
	"slices"

	"github.com/verte-zerg/hearback/internal/feedback"
)

// MaxPerAttempt caps how many occurrences of one category a single attempt
// contributes.
const MaxPerAttempt = 3

// AttemptResult is one scored attempt.
type AttemptResult struct {
	AttemptID       string              `msgpack:"id"`
	AccuracyPercent float64             `msgpack:"accuracy"`
	Categories      []feedback.Category `msgpack:"categories"`
}

// Summary is the aggregate over a batch of attempts.
type Summary struct {
	Attempts           int                           `msgpack:"attempts"`
	AvgAccuracyPercent float64                       `msgpack:"avg_accuracy"`
	TotalErrors        int                           `msgpack:"total_errors"`
	Counts             map[feedback.Category]int     `msgpack:"counts"`
	CategoryScore      map[feedback.Category]float64 `msgpack:"scores"`
	WeaknessRank       []feedback.Category           `msgpack:"rank"`
}

// Score returns the score for cat, 1.0 when it is absent.
func (s Summary) Score(cat feedback.Category) float64 {
	if v, ok := s.CategoryScore[cat]; ok {
		return v
	}
	return 1
}

// Aggregate reduces attempts into a Summary. Each category counts at most
// MaxPerAttempt times per attempt; categories outside the closed set are
// ignored. A category's score is 1 - count/totalErrors, or 1.0 when there
// are no errors at all. WeaknessRank lists every category, lowest score
// first, ties in enumeration order.
func Aggregate(attempts []AttemptResult) Summary {
	all := feedback.All()
	counts := make(map[feedback.Category]int, len(all))
	for _, c := range all {
		counts[c] = 0
	}

	var accSum float64
	total := 0
	for _, a := range attempts {
		accSum += clampPercent(a.AccuracyPercent)

		per := make(map[feedback.Category]int, len(a.Categories))
		for _, c := range a.Categories {
			if !c.Valid() || per[c] >= MaxPerAttempt {
				continue
			}
			per[c]++
			counts[c]++
			total++
		}
	}

	scores := make(map[feedback.Category]float64, len(all))
	for _, c := range all {
		if total == 0 {
			scores[c] = 1
			continue
		}
		scores[c] = clamp01(1 - float64(counts[c])/float64(total))
	}

	rank := slices.Clone(all)
	slices.SortStableFunc(rank, func(a, b feedback.Category) int {
		return cmp.Compare(scores[a], scores[b])
	})

	avg := 0.0
	if len(attempts) > 0 {
		avg = accSum / float64(len(attempts))
	}
	return Summary{
		Attempts:           len(attempts),
		AvgAccuracyPercent: avg,
		TotalErrors:        total,
		Counts:             counts,
		CategoryScore:      scores,
		WeaknessRank:       rank,
	}
}

// WeakCategories returns the ranked categories that have any errors at all,
// weakest first, limited to top when top > 0.
func WeakCategories(s Summary, top int) []feedback.Category {
	var out []feedback.Category
	for _, c := range s.WeaknessRank {
		if s.Score(c) >= 1 {
			continue
		}
		out = append(out, c)
		if top > 0 && len(out) == top {
			break
		}
	}
	return out
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
