// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/model"
)

const sparkChars = " .:-=+*#%@"

// AttemptMetrics computes the word error rate and the dictation speed in
// reference words per minute for one attempt.
func AttemptMetrics(refWords, errors int, durationMs int64) (wer, wpm float64) {
	wer = float64(errors) / float64(max(refWords, 1))
	if durationMs <= 0 {
		return wer, 0
	}
	minutes := float64(durationMs) / 60000.0
	wpm = float64(refWords) / minutes
	return wer, wpm
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := seriesMinMaxSingle(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = min(max(idx, 0), len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// Overview holds the headline numbers for a list of attempts.
type Overview struct {
	Attempts     int
	AvgAccuracy  float64
	BestAccuracy float64
	AvgWER       float64
	AvgWPM       float64
	Words        int
}

// Summarize computes the headline numbers shown by RenderSummary.
func Summarize(attempts []model.AttemptAggregate) Overview {
	if len(attempts) == 0 {
		return Overview{}
	}
	var o Overview
	var totalAcc, totalWER, totalWPM float64
	for _, a := range attempts {
		wer, wpm := AttemptMetrics(a.RefWords, a.Errors, a.DurationMs)
		totalAcc += a.Accuracy
		totalWER += wer
		totalWPM += wpm
		o.BestAccuracy = max(o.BestAccuracy, a.Accuracy)
		o.Words += a.RefWords
	}
	count := float64(len(attempts))
	o.Attempts = len(attempts)
	o.AvgAccuracy = totalAcc / count
	o.AvgWER = totalWER / count
	o.AvgWPM = totalWPM / count
	return o
}

// RenderSummary prints a summary for attempts.
func RenderSummary(w io.Writer, attempts []model.AttemptAggregate) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	o := Summarize(attempts)
	lines := []string{
		"Summary",
		fmt.Sprintf("Attempts: %d", o.Attempts),
		fmt.Sprintf("Words: %d", o.Words),
		fmt.Sprintf("Avg Accuracy: %.2f%%", o.AvgAccuracy),
		fmt.Sprintf("Best Accuracy: %.2f%%", o.BestAccuracy),
		fmt.Sprintf("Avg WER: %.2f", o.AvgWER),
		fmt.Sprintf("Avg WPM: %.1f", o.AvgWPM),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints learning curves for accuracy and word error rate.
func RenderCurves(w io.Writer, attempts []model.AttemptAggregate, window int) error {
	return RenderCurvesWithSize(w, attempts, window, 0, 10, false)
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, attempts []model.AttemptAggregate, window, totalWidth, height int, useColor bool) error {
	if len(attempts) == 0 {
		return nil
	}
	accs := make([]float64, len(attempts))
	wers := make([]float64, len(attempts))
	for i, a := range attempts {
		wer, _ := AttemptMetrics(a.RefWords, a.Errors, a.DurationMs)
		accs[i] = a.Accuracy
		wers[i] = wer * 100
	}
	accs = MovingAverage(accs, window)
	wers = MovingAverage(wers, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Accuracy", Values: accs, Percent: true},
		{Name: "WER", Values: wers, Percent: true},
	}, width, height, useColor)
}

// CategoryRow is one line of the category table.
type CategoryRow struct {
	Category feedback.Category
	Score    float64
	Counted  int
	Raw      int
}

// CategoryRows lists every category in weakness order. Counted is the capped
// count used for scoring; Raw is the stored, uncapped total.
func CategoryRows(sum diagnosis.Summary, totals []model.CategoryCount) []CategoryRow {
	raw := map[feedback.Category]int{}
	for _, t := range totals {
		if c, ok := feedback.Parse(t.Category); ok {
			raw[c] += t.Count
		}
	}
	rank := sum.WeaknessRank
	if len(rank) == 0 {
		rank = feedback.All()
	}
	rows := make([]CategoryRow, 0, len(rank))
	for _, c := range rank {
		rows = append(rows, CategoryRow{
			Category: c,
			Score:    sum.Score(c),
			Counted:  sum.Counts[c],
			Raw:      raw[c],
		})
	}
	return rows
}

// RenderCategoryTable prints per-category scores in weakness order.
func RenderCategoryTable(w io.Writer, sum diagnosis.Summary, totals []model.CategoryCount) error {
	if sum.Attempts == 0 {
		_, err := fmt.Fprintln(w, "No category stats found.")
		return err
	}
	tbl := newTextTable(
		column{header: "Category"},
		column{header: "Score", right: true},
		column{header: "Counted", right: true},
		column{header: "Raw", right: true},
	)
	for _, r := range CategoryRows(sum, totals) {
		tbl.add(r.Category.Label(), fmt.Sprintf("%.2f", r.Score), strconv.Itoa(r.Counted), strconv.Itoa(r.Raw))
	}
	return tbl.write(w, "Per-Category (Windowed)")
}

// RenderPhraseTable prints the most missed phrases.
func RenderPhraseTable(w io.Writer, misses []model.PhraseMiss) error {
	if len(misses) == 0 {
		_, err := fmt.Fprintln(w, "No missed phrases found.")
		return err
	}
	tbl := newTextTable(column{header: "Phrase"}, column{header: "Category"}, column{header: "Count", right: true})
	for _, m := range misses {
		label := m.Category
		if c, ok := feedback.Parse(m.Category); ok {
			label = c.Label()
		}
		tbl.add(m.Phrase, label, strconv.Itoa(m.Count))
	}
	return tbl.write(w, "Most Missed (Windowed)")
}

// CategorySeries returns the capped per-attempt count of cat, one value per
// attempt in order.
func CategorySeries(attempts []model.AttemptAggregate, perAttempt map[string][]model.CategoryCount, cat feedback.Category) []float64 {
	out := make([]float64, len(attempts))
	for i, a := range attempts {
		for _, c := range perAttempt[a.AttemptID] {
			if c.Category == string(cat) {
				out[i] = float64(min(c.Count, diagnosis.MaxPerAttempt))
			}
		}
	}
	return out
}

// RenderCategoryCurves prints per-category learning curves.
func RenderCategoryCurves(w io.Writer, attempts []model.AttemptAggregate, perAttempt map[string][]model.CategoryCount, cats []feedback.Category, window int) error {
	return RenderCategoryCurvesWithSize(w, attempts, perAttempt, cats, window, 0, 10, false)
}

// RenderCategoryCurvesWithSize prints per-category curves sized to a given total width.
func RenderCategoryCurvesWithSize(w io.Writer, attempts []model.AttemptAggregate, perAttempt map[string][]model.CategoryCount, cats []feedback.Category, window, totalWidth, height int, useColor bool) error {
	if len(cats) == 0 || len(attempts) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Category Curves"); err != nil {
		return err
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, c := range cats {
		counts := CategorySeries(attempts, perAttempt, c)
		shares := make([]float64, len(attempts))
		for i, a := range attempts {
			if a.Errors > 0 {
				shares[i] = min(counts[i]/float64(a.Errors), 1) * 100
			}
		}
		if err := PlotSeriesWithColor(w, c.Label(), []Series{
			{Name: "Errors", Values: MovingAverage(counts, window)},
			{Name: "Share", Values: MovingAverage(shares, window), Percent: true},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}
