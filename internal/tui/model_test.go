package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/hearback/internal/deck"
	"github.com/verte-zerg/hearback/internal/generator"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/scorer"
	"github.com/verte-zerg/hearback/internal/session"
)

func newTestModel(t *testing.T, flashMs int) *Model {
	t.Helper()
	d := &deck.Deck{Name: "test", Phrases: []deck.Phrase{{ID: "line-1", Text: "i want to go home"}}}
	cfg := model.Config{Phrases: 2, FlashMs: flashMs}
	svc := session.New(scorer.New())
	return NewModel(cfg, svc, nil, generator.NewWithSeed(1), d, nil, nil)
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestFlashThenMask(t *testing.T) {
	m := newTestModel(t, 1500)
	if m.stage != stageFlash {
		t.Fatalf("expected flash stage, got %v", m.stage)
	}
	if m.Init() == nil {
		t.Fatalf("expected init command")
	}
	if !strings.Contains(m.View(), "want") {
		t.Fatalf("expected phrase to be visible while flashing:\n%s", m.View())
	}

	m.Update(hideMsg{seq: m.seq - 1})
	if m.stage != stageFlash {
		t.Fatalf("stale hide message should be ignored")
	}
	m.Update(hideMsg{seq: m.seq})
	if m.stage != stageTyping {
		t.Fatalf("expected typing stage after hide, got %v", m.stage)
	}
	if strings.Contains(m.View(), "want") {
		t.Fatalf("phrase should be masked:\n%s", m.View())
	}
}

func TestTypingHidesPhraseEarly(t *testing.T) {
	m := newTestModel(t, 1500)
	typeText(m, "i")
	if m.stage != stageTyping {
		t.Fatalf("expected typing to mask the phrase, got %v", m.stage)
	}
}

func TestSubmitAndAdvance(t *testing.T) {
	m := newTestModel(t, 1500)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.stage == stageResult {
		t.Fatalf("empty input should not be scored")
	}

	typeText(m, "i want go home")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.stage != stageResult {
		t.Fatalf("expected result stage, got %v", m.stage)
	}
	if m.outcome == nil || m.outcome.Attempt.AccuracyPercent >= 100 {
		t.Fatalf("expected an imperfect outcome, got %+v", m.outcome)
	}
	if len(m.outcome.Top) == 0 {
		t.Fatalf("expected top events")
	}
	view := m.View()
	if !strings.Contains(view, "Accuracy 80.0%") {
		t.Fatalf("expected accuracy in result view:\n%s", view)
	}
	if !strings.Contains(view, "Linking") {
		t.Fatalf("expected event category in result view:\n%s", view)
	}
	if !m.hasLast || m.allAttempts != 1 {
		t.Fatalf("expected footer stats to update")
	}

	typeText(m, "ignored")
	if m.input.Value() != "i want go home" {
		t.Fatalf("input should be frozen on the result screen, got %q", m.input.Value())
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected flash timer for next phrase")
	}
	if m.stage != stageFlash || m.round != 2 || m.input.Value() != "" {
		t.Fatalf("expected a fresh round, got stage=%v round=%d input=%q", m.stage, m.round, m.input.Value())
	}
}

func TestFlashDisabledKeepsPhraseVisible(t *testing.T) {
	m := newTestModel(t, 0)
	typeText(m, "i want")
	if m.stage != stageFlash {
		t.Fatalf("expected phrase to stay visible, got %v", m.stage)
	}
	if m.flashCmd() != nil {
		t.Fatalf("expected no flash timer")
	}
}

func TestHiddenFromStart(t *testing.T) {
	m := newTestModel(t, -1)
	if m.stage != stageTyping {
		t.Fatalf("expected typing stage, got %v", m.stage)
	}
}

func TestEscQuits(t *testing.T) {
	m := newTestModel(t, 1500)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestEmptyDeck(t *testing.T) {
	d := &deck.Deck{Name: "empty"}
	m := NewModel(model.Config{Phrases: 1}, session.New(scorer.New()), nil, generator.NewWithSeed(1), d, nil, nil)
	if got := m.View(); got != "Deck has no phrases." {
		t.Fatalf("unexpected view %q", got)
	}
}
