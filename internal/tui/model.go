// Package tui provides the Bubble Tea dictation interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/hearback/internal/deck"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/generator"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/observe"
	"github.com/verte-zerg/hearback/internal/session"
	statsPkg "github.com/verte-zerg/hearback/internal/stats"
	"github.com/verte-zerg/hearback/internal/store"
)

type stage int

const (
	stageFlash stage = iota
	stageTyping
	stageResult
)

// hideMsg masks the phrase of round seq.
type hideMsg struct {
	seq int
}

// Model implements the Bubble Tea dictation UI.
type Model struct {
	config   model.Config
	svc      *session.Service
	store    *store.Store
	gen      *generator.Generator
	deck     *deck.Deck
	weakness map[feedback.Category]float64
	log      *slog.Logger

	width  int
	height int

	queue     []deck.Phrase
	current   deck.Phrase
	target    []rune
	stage     stage
	seq       int
	round     int
	input     textinput.Model
	startedAt time.Time
	outcome   *session.Outcome
	errMsg    string

	lastAcc     float64
	hasLast     bool
	allAttempts int
	allAccSum   float64
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	missingStyle     = incorrectStyle.Underline(true)
	extraStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C86BFA"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	scoreStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	categoryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs a dictation TUI model. st may be nil, in which case
// the footer only covers the current run.
func NewModel(cfg model.Config, svc *session.Service, st *store.Store, gen *generator.Generator, d *deck.Deck, weakness map[feedback.Category]float64, log *slog.Logger) *Model {
	if log == nil {
		log = observe.Discard()
	}
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "type what you heard"
	input.CharLimit = 0
	m := &Model{
		config:   cfg,
		svc:      svc,
		store:    st,
		gen:      gen,
		deck:     d,
		weakness: weakness,
		log:      log,
		input:    input,
	}
	m.loadFooterStats()
	m.advance()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.flashCmd())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, m.contentWidth()-lipgloss.Width(m.input.Prompt)-1)
		return m, nil
	case hideMsg:
		if msg.seq == m.seq && m.stage == stageFlash {
			m.stage = stageTyping
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.stage == stageResult {
				m.advance()
				return m, m.flashCmd()
			}
			m.submit()
			return m, nil
		}
		if m.stage == stageResult {
			return m, nil
		}
		if m.stage == stageFlash && m.config.FlashMs > 0 {
			m.stage = stageTyping
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if len(m.target) == 0 {
		return "Deck has no phrases."
	}
	width := m.contentWidth()
	var blocks []string
	switch m.stage {
	case stageFlash:
		blocks = append(blocks, wrapStyledRunes(styleText(string(m.target), correctStyle), width))
		blocks = append(blocks, m.input.View())
	case stageTyping:
		masked := maskedRunes(m.target, typedWordIndex(m.input.Value()))
		blocks = append(blocks, wrapStyledRunes(masked, width))
		blocks = append(blocks, m.input.View())
	case stageResult:
		blocks = append(blocks, m.renderResult(width)...)
	}
	if m.errMsg != "" {
		blocks = append(blocks, errorStyle.Render(m.errMsg))
	}
	content := lipgloss.NewStyle().Width(width).Render(strings.Join(blocks, "\n\n"))
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return 0
	}
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) renderResult(width int) []string {
	if m.outcome == nil {
		return nil
	}
	att := m.outcome.Attempt
	blocks := []string{
		wrapStyledRunes(alignmentRunes(att.Result), width),
		scoreStyle.Render(fmt.Sprintf("Accuracy %.1f%%", att.AccuracyPercent)),
	}
	if len(m.outcome.Top) > 0 {
		lines := make([]string, 0, len(m.outcome.Top))
		for _, fb := range m.outcome.Top {
			lines = append(lines, describe(fb))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return blocks
}

func describe(fb session.Feedback) string {
	label := categoryStyle.Render(fb.Event.Category.Label())
	text := fb.Insight.Summary
	if text == "" {
		text = fb.Event.Expected
		if text == "" {
			text = "+" + fb.Event.Observed
		}
	}
	return fmt.Sprintf("• %s  %s", label, text)
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("%s #%d", m.deck.Name, m.round)}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f%%", m.lastAcc))
	}
	if m.allAttempts > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.1f%% · %d", m.allAccSum/float64(m.allAttempts), m.allAttempts))
	}
	if m.stage == stageResult {
		segments = append(segments, "enter: next  esc: quit")
	} else {
		segments = append(segments, "enter: check  esc: quit")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) loadFooterStats() {
	if m.store == nil {
		return
	}
	attempts, err := m.store.ListAttempts(context.Background(), model.StatsConfig{Deck: m.deck.Name})
	if err != nil {
		m.log.Warn("failed to load attempt stats", "err", err)
		return
	}
	if len(attempts) == 0 {
		return
	}
	o := statsPkg.Summarize(attempts)
	m.allAttempts = o.Attempts
	m.allAccSum = o.AvgAccuracy * float64(o.Attempts)
	m.lastAcc = attempts[len(attempts)-1].Accuracy
	m.hasLast = true
}

// advance moves to the next phrase, refilling the queue when it runs out.
func (m *Model) advance() {
	if len(m.queue) == 0 {
		m.queue = m.generatePhrases()
	}
	m.outcome = nil
	m.errMsg = ""
	m.input.Reset()
	m.input.Focus()
	m.seq++
	if len(m.queue) == 0 {
		m.target = nil
		return
	}
	m.current, m.queue = m.queue[0], m.queue[1:]
	m.target = []rune(m.current.Text)
	m.round++
	m.startedAt = time.Now()
	m.stage = stageFlash
	if m.config.FlashMs < 0 {
		m.stage = stageTyping
	}
}

func (m *Model) flashCmd() tea.Cmd {
	if m.stage != stageFlash || m.config.FlashMs <= 0 {
		return nil
	}
	seq := m.seq
	return tea.Tick(time.Duration(m.config.FlashMs)*time.Millisecond, func(time.Time) tea.Msg {
		return hideMsg{seq: seq}
	})
}

func (m *Model) generatePhrases() []deck.Phrase {
	count := max(m.config.Phrases, 1)
	phrases := deck.Filter(m.deck.Phrases, deck.Scorable)
	if m.config.FocusWeak && len(m.weakness) > 0 {
		return m.gen.GenerateWeighted(phrases, count, m.weakness, m.config.WeakFactor)
	}
	return m.gen.Generate(phrases, count)
}

func (m *Model) submit() {
	typed := m.input.Value()
	if strings.TrimSpace(typed) == "" || len(m.target) == 0 {
		return
	}
	out, err := m.svc.Submit(context.Background(), session.Submission{
		Deck:      m.deck.Name,
		PhraseID:  m.current.ID,
		Reference: m.current.Text,
		Typed:     typed,
		StartedAt: m.startedAt,
	})
	if err != nil {
		m.log.Error("failed to score attempt", "err", err)
		m.errMsg = "failed to score attempt: " + err.Error()
		return
	}
	m.outcome = &out
	m.stage = stageResult
	m.input.Blur()

	acc := out.Attempt.AccuracyPercent
	m.lastAcc = acc
	m.hasLast = true
	m.allAttempts++
	m.allAccSum += acc

	if m.config.FocusWeak {
		m.refreshWeakness()
	}
}

func (m *Model) refreshWeakness() {
	weak, err := m.svc.Weakness(context.Background(), m.deck.Name, m.config.WeakWindow, m.config.WeakTop)
	if err != nil {
		m.log.Warn("failed to load weak categories", "err", err)
		return
	}
	m.weakness = weak
}

// typedWordIndex returns the index of the word currently being typed.
func typedWordIndex(value string) int {
	words := strings.Fields(value)
	if len(words) == 0 {
		return 0
	}
	if strings.HasSuffix(value, " ") {
		return len(words)
	}
	return len(words) - 1
}
