package stats

import (
	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
)

// SelectWeakCategories maps the top weak categories of a summary to their
// weakness, 1 - score. Categories without errors are never selected.
func SelectWeakCategories(sum diagnosis.Summary, top int) map[feedback.Category]float64 {
	weak := map[feedback.Category]float64{}
	for _, c := range diagnosis.WeakCategories(sum, top) {
		weak[c] = 1 - sum.Score(c)
	}
	return weak
}
