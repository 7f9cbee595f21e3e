package stats

import (
	"sort"

	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/model"
)

// TopCategoriesByFrequency returns the top N categories by raw count.
// Categories never seen are left out.
func TopCategoriesByFrequency(totals []model.CategoryCount, n int) []feedback.Category {
	if n <= 0 || len(totals) == 0 {
		return nil
	}
	sums := map[feedback.Category]int{}
	for _, t := range totals {
		c, ok := feedback.Parse(t.Category)
		if !ok || t.Count <= 0 {
			continue
		}
		sums[c] += t.Count
	}
	items := make([]feedback.Category, 0, len(sums))
	for c := range sums {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool {
		if sums[items[i]] == sums[items[j]] {
			return items[i].Order() < items[j].Order()
		}
		return sums[items[i]] > sums[items[j]]
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}

// ParseCategories reads a comma separated category list. Unknown names are
// returned separately so callers can report them.
func ParseCategories(input string) (cats []feedback.Category, unknown []string) {
	for _, part := range splitList(input) {
		c, ok := feedback.Parse(part)
		if !ok {
			unknown = append(unknown, part)
			continue
		}
		cats = append(cats, c)
	}
	return cats, unknown
}
