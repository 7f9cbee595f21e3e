package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "hearback.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func seed(t *testing.T, st *store.Store) {
	t.Helper()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := model.AttemptRecord{
			ID:        id,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i)*time.Minute + 10*time.Second),
			Deck:      "default",
			Reference: "i want to go",
			Typed:     "i want go",
			RefWords:  4,
			Correct:   3,
			Deletions: 1,
			WER:       0.25,
			Accuracy:  75,
		}
		events := []model.EventRecord{{EventID: "missing:2-3:-1--1", Kind: "missing", RefStart: 2, RefEnd: 3, Expected: "to", Phrase: "want to", Category: "linking", Rule: "linking"}}
		cats := []model.CategoryCount{{Category: "linking", Count: 1}}
		if err := st.InsertAttempt(context.Background(), rec, events, cats); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelRendersTabs(t *testing.T) {
	st := openStore(t)
	seed(t, st)
	m := NewModel(st, model.StatsConfig{CurveWindow: 2})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	view := m.View()
	if !strings.Contains(view, "Overview") || !strings.Contains(view, "Avg Acc") {
		t.Fatalf("overview missing cards:\n%s", view)
	}
	if !strings.Contains(view, "Linking") {
		t.Fatalf("expected weakest category card:\n%s", view)
	}

	m.Update(key("l"))
	if m.activeTab != tabCategories {
		t.Fatalf("expected categories tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "Score") {
		t.Fatalf("categories tab missing table:\n%s", m.View())
	}

	m.Update(key("l"))
	m.Update(key("l"))
	if m.activeTab != tabPhrases {
		t.Fatalf("expected phrases tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "want to") {
		t.Fatalf("phrases tab missing phrase:\n%s", m.View())
	}

	m.Update(key("l"))
	if m.activeTab != tabOverview {
		t.Fatalf("expected wrap to overview, got %d", m.activeTab)
	}
}

func TestModelEmptyStore(t *testing.T) {
	m := NewModel(openStore(t), model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if !strings.Contains(m.View(), "No attempts found.") {
		t.Fatalf("expected empty message:\n%s", m.View())
	}
}

func TestCurveSelectionDefaultsToFrequent(t *testing.T) {
	st := openStore(t)
	seed(t, st)
	m := NewModel(st, model.StatsConfig{CurveWindow: 1})
	if len(m.curveSelection) != 1 || m.curveSelection[0] != feedback.Linking {
		t.Fatalf("unexpected default selection %v", m.curveSelection)
	}

	custom := NewModel(st, model.StatsConfig{CurveWindow: 1, Categories: "missed,elision"})
	if !custom.curveSelectionCustom || len(custom.curveSelection) != 2 {
		t.Fatalf("unexpected custom selection %v", custom.curveSelection)
	}
}

func TestApplyCategoryInput(t *testing.T) {
	st := openStore(t)
	seed(t, st)
	m := NewModel(st, model.StatsConfig{CurveWindow: 1})

	m.categoryInput.SetValue("elision, grammar")
	if err := m.applyCategoryInput(); err == nil {
		t.Fatalf("expected unknown category error")
	}

	m.categoryInput.SetValue("elision")
	if err := m.applyCategoryInput(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(m.curveSelection) != 1 || m.curveSelection[0] != feedback.Elision || m.cfg.Categories != "elision" {
		t.Fatalf("unexpected selection %v / %q", m.curveSelection, m.cfg.Categories)
	}

	m.categoryInput.SetValue("")
	if err := m.applyCategoryInput(); err != nil {
		t.Fatalf("apply empty: %v", err)
	}
	if m.curveSelectionCustom || m.curveSelection[0] != feedback.Linking {
		t.Fatalf("expected default selection restored, got %v", m.curveSelection)
	}
}

func TestParseFilter(t *testing.T) {
	cfg, err := parseFilter([]string{"travel", "2026-01-02", "10", "4"}, "linking")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Deck != "travel" || cfg.Last != 10 || cfg.CurveWindow != 4 || cfg.Categories != "linking" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Since == nil || cfg.Since.Day() != 2 {
		t.Fatalf("unexpected since %v", cfg.Since)
	}

	bad := [][]string{
		{"", "02/01/2026", "", ""},
		{"", "", "-1", ""},
		{"", "", "", "x"},
		{"", "", "", "0"},
	}
	for _, values := range bad {
		if _, err := parseFilter(values, ""); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
}

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct {
		in, next, prev int
	}{
		{1, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{10, 15, 5},
	}
	for _, tc := range cases {
		if got := nextCurveWindow(tc.in); got != tc.next {
			t.Fatalf("next(%d) = %d, want %d", tc.in, got, tc.next)
		}
		if got := prevCurveWindow(tc.in); got != tc.prev {
			t.Fatalf("prev(%d) = %d, want %d", tc.in, got, tc.prev)
		}
	}
}

func TestFitLinesAndTruncate(t *testing.T) {
	out := fitLines("ab\ncd\nef", 4, 2)
	if out != "ab  \ncd  " {
		t.Fatalf("unexpected fit %q", out)
	}
	if got := truncateLine("hello world", 8); got != "hello..." {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := truncateLine("hi", 8); got != "hi" {
		t.Fatalf("unexpected short truncate %q", got)
	}
}
