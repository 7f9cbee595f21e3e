package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/verte-zerg/hearback/internal/config"
	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/scorer"
	"github.com/verte-zerg/hearback/internal/session"
	"github.com/verte-zerg/hearback/internal/store"
)

func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func validConfig() model.Config {
	return model.Config{
		Deck:       "default",
		Phrases:    defaultPhrases,
		FlashMs:    defaultFlashMs,
		WeakTop:    defaultWeakTop,
		WeakFactor: defaultWeakFactor,
		WeakWindow: defaultWeakWindow,
		TopEvents:  defaultTopEvents,
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cases := map[string]func(*model.Config){
		"--deck":        func(c *model.Config) { c.Deck = " " },
		"--phrases":     func(c *model.Config) { c.Phrases = 0 },
		"--weak-top":    func(c *model.Config) { c.WeakTop = -1 },
		"--weak-factor": func(c *model.Config) { c.WeakFactor = -0.5 },
		"--weak-window": func(c *model.Config) { c.WeakWindow = -1 },
		"--top-events":  func(c *model.Config) { c.TopEvents = -2 },
	}
	for flag, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		err := validateConfig(cfg)
		if err == nil || !strings.Contains(err.Error(), flag) {
			t.Fatalf("expected %s error, got %v", flag, err)
		}
	}
}

func TestValidateThresholds(t *testing.T) {
	prevSub, prevNar := substitutionThreshold, narrationThreshold
	t.Cleanup(func() { substitutionThreshold, narrationThreshold = prevSub, prevNar })

	substitutionThreshold, narrationThreshold = 0.5, 0.55
	if err := validateThresholds(); err != nil {
		t.Fatalf("expected valid thresholds, got %v", err)
	}
	substitutionThreshold = 1.2
	if err := validateThresholds(); err == nil {
		t.Fatalf("expected substitution threshold error")
	}
	substitutionThreshold, narrationThreshold = 0.5, -0.1
	if err := validateThresholds(); err == nil {
		t.Fatalf("expected narration threshold error")
	}
}

func TestConfigTemplateDecodesWhenUncommented(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
		}
		lines = append(lines, line)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Practice.Deck == nil || *cfg.Practice.Deck != "default" {
		t.Fatalf("unexpected deck: %v", cfg.Practice.Deck)
	}
	if cfg.Practice.FlashMs == nil || *cfg.Practice.FlashMs != defaultFlashMs {
		t.Fatalf("unexpected flash-ms: %v", cfg.Practice.FlashMs)
	}
	if cfg.Scoring.NarrationThreshold == nil || *cfg.Scoring.NarrationThreshold != 0.55 {
		t.Fatalf("unexpected narration threshold: %v", cfg.Scoring.NarrationThreshold)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %v", cfg.Log.Level)
	}
}

func TestWriteConfigTemplateKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hearback", "config.toml")
	if err := writeConfigTemplate(path); err != nil {
		t.Fatalf("write template: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if !strings.HasPrefix(string(data), "# hearback configuration") {
		t.Fatalf("unexpected template: %q", data)
	}

	if err := os.WriteFile(path, []byte("[practice]\nphrases = 4\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := writeConfigTemplate(path); err != nil {
		t.Fatalf("write template again: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != "[practice]\nphrases = 4\n" {
		t.Fatalf("existing config was replaced: %q", data)
	}
}

func TestListDecks(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "travel.txt"), []byte("where is the station\n"), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	var buf bytes.Buffer
	if err := listDecks(&buf, dir); err != nil {
		t.Fatalf("list decks: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "default\t(built-in") {
		t.Fatalf("expected built-in deck first, got %q", out)
	}
	if !strings.Contains(out, "travel\t"+filepath.Join(dir, "travel.txt")) {
		t.Fatalf("expected travel deck, got %q", out)
	}

	if err := os.WriteFile(filepath.Join(dir, "default.txt"), []byte("hello there\n"), 0o644); err != nil {
		t.Fatalf("write deck: %v", err)
	}
	buf.Reset()
	if err := listDecks(&buf, dir); err != nil {
		t.Fatalf("list decks: %v", err)
	}
	if strings.Contains(buf.String(), "built-in") {
		t.Fatalf("overridden default deck should not be listed as built-in: %q", buf.String())
	}
}

func TestParseSince(t *testing.T) {
	got, err := parseSince("")
	if err != nil || got != nil {
		t.Fatalf("expected nil for empty value, got %v %v", got, err)
	}
	got, err = parseSince("2026-03-01")
	if err != nil {
		t.Fatalf("parse since: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected date %v", got)
	}
	if _, err := parseSince("03/01/2026"); err == nil {
		t.Fatalf("expected error for bad date")
	}
}

func TestDecodeBatch(t *testing.T) {
	items, err := decodeBatch(strings.NewReader(`
attempts:
  - id: first
    deck: default
    reference: i want to go home
    typed: i want go home
  - reference: put it on the table
    typed: put it on the table
`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[0].ID != "first" || items[1].ID != "#2" {
		t.Fatalf("unexpected items: %+v", items)
	}

	if _, err := decodeBatch(strings.NewReader("attempts:\n  - refrence: typo\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := decodeBatch(strings.NewReader("")); err == nil {
		t.Fatalf("expected empty file error")
	}
	if _, err := decodeBatch(strings.NewReader("attempts: []\n")); err == nil {
		t.Fatalf("expected no attempts error")
	}
}

func batchItems() []batchItem {
	return []batchItem{
		{ID: "a", Deck: "default", Reference: "i want to go home", Typed: "i want go home"},
		{ID: "b", Deck: "default", Reference: "put it on the table", Typed: "put it on the table"},
		{ID: "c", Deck: "default", Reference: "i want to go home", Typed: "i want go home"},
		{ID: "d", Deck: "default", Reference: "see you later", Typed: "see you"},
	}
}

func TestScoreBatchKeepsOrder(t *testing.T) {
	svc := session.New(scorer.New(), session.WithTopEvents(0))
	results, err := scoreBatch(context.Background(), svc, batchItems(), 2)
	if err != nil {
		t.Fatalf("score batch: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if results[i].Item.ID != want {
			t.Fatalf("result %d: expected %s, got %s", i, want, results[i].Item.ID)
		}
		if results[i].Outcome.Record.PhraseID != want {
			t.Fatalf("result %d: phrase id not carried: %q", i, results[i].Outcome.Record.PhraseID)
		}
	}
	if got := results[0].Outcome.Attempt.AccuracyPercent; got != 80 {
		t.Fatalf("expected 80%% accuracy, got %.1f", got)
	}
	if got := results[1].Outcome.Attempt.AccuracyPercent; got != 100 {
		t.Fatalf("expected 100%% accuracy, got %.1f", got)
	}
}

func TestScoreBatchSavesAttempts(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "hearback.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	}()

	svc := session.New(scorer.New(), session.WithStore(st), session.WithTopEvents(0))
	if _, err := scoreBatch(context.Background(), svc, batchItems(), 4); err != nil {
		t.Fatalf("score batch: %v", err)
	}
	attempts, err := st.ListAttempts(context.Background(), model.StatsConfig{Deck: "default"})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 4 {
		t.Fatalf("expected 4 stored attempts, got %d", len(attempts))
	}
}

func TestWriteBatch(t *testing.T) {
	disableColor(t)
	svc := session.New(scorer.New(), session.WithTopEvents(0))
	results, err := scoreBatch(context.Background(), svc, batchItems(), 1)
	if err != nil {
		t.Fatalf("score batch: %v", err)
	}
	var buf bytes.Buffer
	if err := writeBatch(&buf, results); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "a   80.0%  Linking") {
		t.Fatalf("expected first attempt line, got:\n%s", out)
	}
	if !strings.Contains(out, "b  100.0%  clean") {
		t.Fatalf("expected clean attempt line, got:\n%s", out)
	}
	if !strings.Contains(out, "Per-Category (Windowed)") {
		t.Fatalf("expected category table, got:\n%s", out)
	}
}

func TestCategoryList(t *testing.T) {
	disableColor(t)
	got := categoryList([]feedback.Category{feedback.Missed, feedback.Linking, feedback.Missed})
	if got != "Linking, Missed words x2" {
		t.Fatalf("unexpected list %q", got)
	}
	if got := categoryList(nil); got != "clean" {
		t.Fatalf("unexpected empty list %q", got)
	}
}

func TestWriteScore(t *testing.T) {
	disableColor(t)
	svc := session.New(scorer.New())
	out, err := svc.Submit(context.Background(), session.Submission{
		Reference: "i want to go home",
		Typed:     "i want go home",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var buf bytes.Buffer
	if err := writeScore(&buf, out); err != nil {
		t.Fatalf("write score: %v", err)
	}
	text := buf.String()
	for _, want := range []string{"i want to go home", "Accuracy 80.0%", "WER 0.20", "• Linking"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}

	out, err = svc.Submit(context.Background(), session.Submission{
		Reference: "see you later",
		Typed:     "see you later",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	buf.Reset()
	if err := writeScore(&buf, out); err != nil {
		t.Fatalf("write score: %v", err)
	}
	if !strings.Contains(buf.String(), "No errors.") {
		t.Fatalf("expected clean output, got:\n%s", buf.String())
	}
}

func TestWriteReport(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	if err := writeReport(&buf, diagnosis.Summary{}, nil, nil, nil); err != nil {
		t.Fatalf("write empty report: %v", err)
	}
	if buf.String() != "No attempts found.\n" {
		t.Fatalf("unexpected empty report %q", buf.String())
	}

	sum := diagnosis.Aggregate([]diagnosis.AttemptResult{
		{AttemptID: "a", AccuracyPercent: 80, Categories: []feedback.Category{feedback.Linking}},
		{AttemptID: "b", AccuracyPercent: 60, Categories: []feedback.Category{feedback.Linking, feedback.Missed}},
	})
	prev := &model.SummarySnapshot{
		CreatedAt: time.Date(2026, 1, 2, 12, 0, 0, 0, time.Local),
		Summary:   diagnosis.Summary{Attempts: 3, AvgAccuracyPercent: 65},
	}
	totals := []model.CategoryCount{{Category: "linking", Count: 2}, {Category: "missed", Count: 1}}
	misses := []model.PhraseMiss{{Phrase: "want to", Category: "linking", Count: 2}}

	buf.Reset()
	if err := writeReport(&buf, sum, prev, totals, misses); err != nil {
		t.Fatalf("write report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Report: 2 attempts, avg accuracy 70.0%, 3 counted errors (+5.0 since 2026-01-02)",
		"1. Linking",
		"2. Missed words",
		"Per-Category (Windowed)",
		"Most Missed (Windowed)",
		"want to",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"config": false, "decks": false, "score": false, "batch": false, "report": false, "stats": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing subcommand %s", name)
		}
	}
	for _, flag := range []string{"deck", "phrases", "flash-ms", "focus-weak", "top-events", "log-file"} {
		if root.Flags().Lookup(flag) == nil {
			t.Fatalf("missing flag --%s", flag)
		}
	}
	for _, flag := range []string{"db", "substitution-threshold", "narration-threshold", "log-level"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("missing persistent flag --%s", flag)
		}
	}
}
