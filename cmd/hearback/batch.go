package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/session"
	"github.com/verte-zerg/hearback/internal/stats"
)

var (
	batchJobs int
	batchSave bool
)

// batchItem is one attempt of a batch file.
type batchItem struct {
	ID        string `yaml:"id"`
	Deck      string `yaml:"deck"`
	Reference string `yaml:"reference"`
	Typed     string `yaml:"typed"`
}

type batchFile struct {
	Attempts []batchItem `yaml:"attempts"`
}

type batchResult struct {
	Item    batchItem
	Outcome session.Outcome
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Score a YAML file of attempts and aggregate them",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatchCmd,
	}
	cmd.Flags().IntVar(&batchJobs, "jobs", runtime.NumCPU(), "attempts scored in parallel")
	cmd.Flags().BoolVar(&batchSave, "save", false, "store scored attempts in the database")
	return cmd
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	if err := validateThresholds(); err != nil {
		return err
	}
	if batchJobs <= 0 {
		return fmt.Errorf("--jobs must be > 0")
	}
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	items, err := loadBatch(args[0])
	if err != nil {
		return err
	}

	opts := []session.Option{session.WithLogger(log), session.WithTopEvents(0)}
	if batchSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		opts = append(opts, session.WithStore(st))
	}
	svc := session.New(newScorer(), opts...)

	results, err := scoreBatch(cmd.Context(), svc, items, batchJobs)
	if err != nil {
		return err
	}
	log.Debug("batch scored", "file", args[0], "attempts", len(results), "saved", batchSave)
	return writeBatch(cmd.OutOrStdout(), results)
}

func loadBatch(path string) ([]batchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() {
		// Best-effort close of a read-only file.
		_ = f.Close()
	}()
	return decodeBatch(f)
}

func decodeBatch(r io.Reader) ([]batchItem, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file batchFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("batch file is empty")
		}
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(file.Attempts) == 0 {
		return nil, fmt.Errorf("batch file has no attempts")
	}
	for i := range file.Attempts {
		if file.Attempts[i].ID == "" {
			file.Attempts[i].ID = fmt.Sprintf("#%d", i+1)
		}
	}
	return file.Attempts, nil
}

// scoreBatch submits items with at most jobs in flight. Results keep the
// order of items.
func scoreBatch(ctx context.Context, svc *session.Service, items []batchItem, jobs int) ([]batchResult, error) {
	results := make([]batchResult, len(items))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, item := range items {
		g.Go(func() error {
			out, err := svc.Submit(ctx, session.Submission{
				Deck:      item.Deck,
				PhraseID:  item.ID,
				Reference: item.Reference,
				Typed:     item.Typed,
			})
			if err != nil {
				return fmt.Errorf("attempt %s: %w", item.ID, err)
			}
			results[i] = batchResult{Item: item, Outcome: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeBatch(w io.Writer, results []batchResult) error {
	attempts := make([]diagnosis.AttemptResult, 0, len(results))
	raw := map[feedback.Category]int{}
	for _, r := range results {
		att := r.Outcome.Attempt
		attempts = append(attempts, att.AttemptResult)
		for _, c := range att.Categories {
			raw[c]++
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %s\n",
			headingColor.Sprint(r.Item.ID),
			accuracyColor(att.AccuracyPercent).Sprintf("%5.1f%%", att.AccuracyPercent),
			categoryList(att.Categories)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	sum := diagnosis.Aggregate(attempts)
	if err := stats.RenderCategoryTable(w, sum, categoryTotals(raw)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func categoryList(cats []feedback.Category) string {
	if len(cats) == 0 {
		return goodColor.Sprint("clean")
	}
	seen := map[feedback.Category]int{}
	var order []feedback.Category
	for _, c := range cats {
		if seen[c] == 0 {
			order = append(order, c)
		}
		seen[c]++
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].Order() < order[j].Order() })
	parts := make([]string, 0, len(order))
	for _, c := range order {
		part := labelColor.Sprint(c.Label())
		if n := seen[c]; n > 1 {
			part += fmt.Sprintf(" x%d", n)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func categoryTotals(raw map[feedback.Category]int) []model.CategoryCount {
	out := make([]model.CategoryCount, 0, len(raw))
	for _, c := range feedback.All() {
		if n := raw[c]; n > 0 {
			out = append(out, model.CategoryCount{Category: string(c), Count: n})
		}
	}
	return out
}

func accuracyColor(pct float64) *color.Color {
	switch {
	case pct >= 90:
		return goodColor
	case pct >= 60:
		return labelColor
	default:
		return wrongColor
	}
}
