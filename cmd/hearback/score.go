package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/hearback/internal/align"
	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/session"
	"github.com/verte-zerg/hearback/internal/stats"
)

const defaultReportWindow = 20

var (
	scoreRef  string
	scoreHyp  string
	scoreDeck string
	scoreTop  int

	reportDeck   string
	reportWindow int
	reportSave   bool
)

var (
	correctColor  = color.New(color.FgWhite)
	wrongColor    = color.New(color.FgRed)
	missingColor  = color.New(color.FgRed, color.Underline)
	extraColor    = color.New(color.FgMagenta)
	observedColor = color.New(color.FgHiBlack)
	labelColor    = color.New(color.FgYellow, color.Bold)
	headingColor  = color.New(color.Bold)
	goodColor     = color.New(color.FgGreen)
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one typed response against a reference",
		Args:  cobra.NoArgs,
		RunE:  runScoreCmd,
	}
	cmd.Flags().StringVar(&scoreRef, "ref", "", "reference phrase")
	cmd.Flags().StringVar(&scoreHyp, "hyp", "", "typed response")
	cmd.Flags().StringVar(&scoreDeck, "deck", "", "deck label for metrics")
	cmd.Flags().IntVar(&scoreTop, "top", defaultTopEvents, "feedback items to explain")
	_ = cmd.MarkFlagRequired("ref")
	return cmd
}

func runScoreCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	if err := validateThresholds(); err != nil {
		return err
	}
	if scoreTop < 0 {
		return fmt.Errorf("--top must be >= 0")
	}
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	svc := newService(log, session.WithTopEvents(scoreTop))
	out, err := svc.Submit(context.Background(), session.Submission{
		Deck:      scoreDeck,
		Reference: scoreRef,
		Typed:     scoreHyp,
	})
	if err != nil {
		return fmt.Errorf("failed to score: %w", err)
	}
	return writeScore(cmd.OutOrStdout(), out)
}

func writeScore(w io.Writer, out session.Outcome) error {
	res := out.Attempt.Result
	lines := []string{
		renderAlignment(res),
		"",
		fmt.Sprintf("%s %.1f%%  %s %.2f",
			headingColor.Sprint("Accuracy"), out.Attempt.AccuracyPercent,
			headingColor.Sprint("WER"), res.WER),
	}
	if len(out.Top) == 0 {
		if len(out.Attempt.Events) == 0 {
			lines = append(lines, goodColor.Sprint("No errors."))
		}
	} else {
		lines = append(lines, "")
		for _, fb := range out.Top {
			lines = append(lines, describeFeedback(fb))
		}
	}
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// renderAlignment prints the reference with each word marked by how the
// response treated it.
func renderAlignment(res align.Result) string {
	ref, hyp := res.RefWords(), res.HypWords()
	parts := make([]string, 0, len(res.Operations))
	for _, op := range res.Operations {
		switch op.Kind {
		case align.OpCorrect:
			parts = append(parts, correctColor.Sprint(ref[op.RefIdx]))
		case align.OpSubstitution:
			parts = append(parts, wrongColor.Sprint(ref[op.RefIdx])+observedColor.Sprintf("(%s)", hyp[op.HypIdx]))
		case align.OpDeletion:
			parts = append(parts, missingColor.Sprint(ref[op.RefIdx]))
		case align.OpInsertion:
			parts = append(parts, extraColor.Sprint("+"+hyp[op.HypIdx]))
		}
	}
	return strings.Join(parts, " ")
}

func describeFeedback(fb session.Feedback) string {
	ev := fb.Event
	text := fb.Insight.Summary
	if text == "" {
		switch {
		case ev.Expected != "" && ev.Observed != "":
			text = fmt.Sprintf("%q heard as %q", ev.Expected, ev.Observed)
		case ev.Expected != "":
			text = fmt.Sprintf("missed %q", ev.Expected)
		default:
			text = fmt.Sprintf("extra %q", ev.Observed)
		}
	}
	line := fmt.Sprintf("• %s  %s", labelColor.Sprint(ev.Category.Label()), text)
	if fb.Narrate {
		line += observedColor.Sprint("  (narrated)")
	}
	return line
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the weakness report for recent attempts",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportDeck, "deck", "", "deck filter")
	cmd.Flags().IntVar(&reportWindow, "window", defaultReportWindow, "number of recent attempts")
	cmd.Flags().BoolVar(&reportSave, "save", false, "store the summary snapshot")
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	if reportWindow <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	log, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	prev, err := st.LatestSummary(ctx, reportDeck)
	if err != nil {
		return fmt.Errorf("failed to load previous summary: %w", err)
	}
	ids, err := st.RecentAttemptIDs(ctx, reportWindow, reportDeck)
	if err != nil {
		return fmt.Errorf("failed to load attempts: %w", err)
	}

	var sum diagnosis.Summary
	if reportSave {
		svc := session.New(newScorer(), session.WithStore(st), session.WithLogger(log))
		if sum, err = svc.Rebuild(ctx, reportDeck, reportWindow); err != nil {
			return err
		}
	} else {
		results, err := st.AttemptResults(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to load attempt results: %w", err)
		}
		sum = diagnosis.Aggregate(results)
	}

	totals, err := st.CategoryTotals(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load category totals: %w", err)
	}
	misses, err := st.TopMissedPhrases(ctx, ids, stats.TopPhraseLimit)
	if err != nil {
		return fmt.Errorf("failed to load missed phrases: %w", err)
	}
	return writeReport(cmd.OutOrStdout(), sum, prev, totals, misses)
}

func writeReport(w io.Writer, sum diagnosis.Summary, prev *model.SummarySnapshot, totals []model.CategoryCount, misses []model.PhraseMiss) error {
	if sum.Attempts == 0 {
		if _, err := fmt.Fprintln(w, "No attempts found."); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	header := fmt.Sprintf("%s %d attempts, avg accuracy %.1f%%, %d counted errors",
		headingColor.Sprint("Report:"), sum.Attempts, sum.AvgAccuracyPercent, sum.TotalErrors)
	if prev != nil && prev.Summary.Attempts > 0 {
		delta := sum.AvgAccuracyPercent - prev.Summary.AvgAccuracyPercent
		c := goodColor
		if delta < 0 {
			c = wrongColor
		}
		header += fmt.Sprintf(" (%s since %s)", c.Sprintf("%+.1f", delta), prev.CreatedAt.Local().Format("2006-01-02"))
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	weak := diagnosis.WeakCategories(sum, 0)
	if len(weak) > 0 {
		if _, err := fmt.Fprintln(w, headingColor.Sprint("Weakest:")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		for i, c := range weak {
			if _, err := fmt.Fprintf(w, "  %d. %s  %.2f\n", i+1, labelColor.Sprint(c.Label()), sum.Score(c)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCategoryTable(w, sum, totals); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderPhraseTable(w, misses); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
