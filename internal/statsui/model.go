// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/hearback/internal/diagnosis"
	"github.com/verte-zerg/hearback/internal/feedback"
	"github.com/verte-zerg/hearback/internal/model"
	"github.com/verte-zerg/hearback/internal/stats"
	"github.com/verte-zerg/hearback/internal/store"
)

const (
	tabOverview = iota
	tabCategories
	tabCurves
	tabPhrases
)

const (
	plotHeight        = 10
	defaultCurveCount = 3
)

var (
	accent  = lipgloss.Color("#C89A3A")
	subtle  = lipgloss.Color("#4A4A4A")
	bright  = lipgloss.Color("#F0F0F0")
	boxEdge = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true)

	inactiveNavStyle = boxEdge.
				Padding(0, 1).
				Foreground(lipgloss.Color("#B0B0B0")).
				BorderForeground(subtle)
	activeNavStyle = inactiveNavStyle.
			Foreground(bright).
			Bold(true).
			BorderForeground(accent)
	cardStyle       = boxEdge.Padding(0, 1).BorderForeground(subtle)
	modalStyle      = boxEdge.Padding(1, 2).BorderForeground(accent)
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(bright).Bold(true)
	weakValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A040")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats UI.
type Model struct {
	store *store.Store
	cfg   model.StatsConfig

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	tables    map[int]*tableTab

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string

	curveSelection       []feedback.Category
	curveSelectionCustom bool

	categoryInputMode  bool
	categoryInput      textinput.Model
	categoryInputError string
}

// tableTab is a tab rendered with a bubbles table.
type tableTab struct {
	table  table.Model
	layout tableLayout
	empty  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
	colCount int
}

// NewModel constructs a stats UI model.
func NewModel(st *store.Store, cfg model.StatsConfig) *Model {
	m := &Model{
		store: st,
		cfg:   cfg,
		tabs:  []string{"Overview", "Categories", "Category Curves", "Phrases"},
	}
	if cats, _ := stats.ParseCategories(cfg.Categories); len(cats) > 0 {
		m.curveSelection = cats
		m.curveSelectionCustom = true
	}
	m.initInputs()
	m.initCategoryInput()
	m.initTables()
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (msg.String() == "q" && !m.typing()) {
			return m, tea.Quit
		}
		m.focusActiveTable()
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.categoryInputMode {
			return m.updateCategoryInput(msg)
		}
		tab, isTable := m.tables[m.activeTab]
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "/":
			return m.startFilter()
		case "enter":
			if m.activeTab == tabCurves {
				return m.startCategoryInput()
			}
			return m, nil
		case "g", "home":
			if isTable {
				tab.table.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if isTable {
				tab.table.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if isTable {
				var cmd tea.Cmd
				tab.table, cmd = tab.table.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.categoryInputMode {
		return fitLines(m.renderCategoryModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) typing() bool {
	return m.filterMode || m.categoryInputMode
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Deck: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) initTables() {
	m.tables = map[int]*tableTab{
		tabCategories: {table: newTable(categoryColumns(), nil), empty: "No category stats found."},
		tabPhrases:    {table: newTable(phraseColumns(), nil), empty: "No missed phrases found."},
	}
}

func (m *Model) initCategoryInput() {
	m.categoryInput = newFilterInput("Categories: ")
	m.categoryInput.Placeholder = "linking,elision"
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	since, last := "", ""
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	values := []string{strings.TrimSpace(m.cfg.Deck), since, last, strconv.Itoa(m.cfg.CurveWindow)}
	for i, v := range values {
		m.filterInputs[i].SetValue(v)
	}
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	for _, tab := range m.tables {
		tab.setSize(m.width, vpHeight)
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
	promptWidth := lipgloss.Width(m.categoryInput.Prompt)
	m.categoryInput.Width = max(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	m.focusActiveTable()
}

func (m *Model) focusActiveTable() {
	for i, tab := range m.tables {
		if i == m.activeTab {
			tab.table.Focus()
		} else {
			tab.table.Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, len(m.tabs))
	for i, tab := range m.tabs {
		style := inactiveNavStyle
		if i == m.activeTab {
			style = activeNavStyle
		}
		parts[i] = style.Render(tab)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	return padLines(m.renderTabs()+"\n"+m.renderFilterSummary(), m.width)
}

func (m *Model) renderFilterSummary() string {
	deck, since, last := "any", "any", "all"
	if m.cfg.Deck != "" {
		deck = m.cfg.Deck
	}
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Deck %s · since %s · last %s attempts · curve window %d",
		deck, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	keys := []string{"←/→ tabs", "↑/↓ scroll"}
	if m.activeTab == tabCurves {
		keys = append(keys, "enter categories")
	}
	keys = append(keys, "-/= window", "/ filters", "q quit")
	return headerStyle.Render(strings.Join(keys, " • "))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab next field • enter apply • esc cancel • ctrl+c quit")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filters"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	content := m.viewports[m.activeTab].View()
	if tab, ok := m.tables[m.activeTab]; ok {
		switch {
		case len(m.report.Attempts) == 0:
			content = "No attempts found."
		case tab.layout.rowCount == 0:
			content = tab.empty
		default:
			content = tableMutedStyle.Render(tab.table.View())
		}
	}
	return fitLines(content, m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	if !m.curveSelectionCustom {
		m.curveSelection = stats.TopCategoriesByFrequency(report.Totals, defaultCurveCount)
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.tables[tabCategories].apply(categoryColumns(), categoryRows(report), width, bodyHeight)
	m.tables[tabPhrases].apply(phraseColumns(), phraseRows(report.TopPhrases), width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.cfg.CurveWindow, width))
	m.viewports[tabCurves].SetContent(renderCategoryCurves(m.report, m.curveSelection, m.cfg.CurveWindow, width))
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Attempts) == 0 {
		return "No attempts found."
	}
	summary := renderSummaryCards(report, width)
	curves := renderCurves(report, window, width)
	return strings.TrimRight(summary+"\n\n"+curves, "\n")
}

func renderSummaryCards(report stats.Report, width int) string {
	o := stats.Summarize(report.Attempts)
	weakest := "none"
	if weak := diagnosis.WeakCategories(report.Summary, 1); len(weak) > 0 {
		weakest = weak[0].Label()
	}
	cards := []string{
		metricCard("Attempts", fmt.Sprintf("%d", o.Attempts), cardValueStyle),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", o.AvgAccuracy), cardValueStyle),
		metricCard("Best Acc", fmt.Sprintf("%.1f%%", o.BestAccuracy), cardValueStyle),
		metricCard("Avg WER", fmt.Sprintf("%.2f", o.AvgWER), cardValueStyle),
		metricCard("Weakest", weakest, weakValueStyle),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string, valueStyle lipgloss.Style) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), valueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurves(report stats.Report, window, width int) string {
	var buf bytes.Buffer
	if err := stats.RenderCurvesWithSize(&buf, report.Attempts, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderCategoryCurves(report stats.Report, cats []feedback.Category, window, width int) string {
	if len(report.Attempts) == 0 {
		return "No attempts found."
	}
	if len(cats) == 0 {
		return "No categories selected. Press Enter to set categories."
	}
	labels := make([]string, len(cats))
	for i, c := range cats {
		labels[i] = c.Label()
	}
	header := headerStyle.Render(fmt.Sprintf("Categories: %s", strings.Join(labels, ", ")))
	var buf bytes.Buffer
	if err := stats.RenderCategoryCurvesWithSize(&buf, report.Attempts, report.PerAttempt, cats, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render category curves: %v", err)
	}
	return strings.TrimRight(header+"\n"+buf.String(), "\n")
}

func categoryColumns() []table.Column {
	return []table.Column{
		{Title: "Category", Width: 18},
		{Title: "Score", Width: 6},
		{Title: "Counted", Width: 8},
		{Title: "Raw", Width: 6},
	}
}

func categoryRows(report stats.Report) []table.Row {
	if report.Summary.Attempts == 0 {
		return nil
	}
	rows := make([]table.Row, 0, len(feedback.All()))
	for _, r := range stats.CategoryRows(report.Summary, report.Totals) {
		rows = append(rows, table.Row{
			r.Category.Label(),
			fmt.Sprintf("%.2f", r.Score),
			fmt.Sprintf("%d", r.Counted),
			fmt.Sprintf("%d", r.Raw),
		})
	}
	return rows
}

func phraseColumns() []table.Column {
	return []table.Column{
		{Title: "Phrase", Width: 28},
		{Title: "Category", Width: 18},
		{Title: "Count", Width: 6},
	}
}

func phraseRows(misses []model.PhraseMiss) []table.Row {
	rows := make([]table.Row, 0, len(misses))
	for _, miss := range misses {
		label := miss.Category
		if c, ok := feedback.Parse(miss.Category); ok {
			label = c.Label()
		}
		rows = append(rows, table.Row{
			runewidth.Truncate(miss.Phrase, 28, "..."),
			label,
			fmt.Sprintf("%d", miss.Count),
		})
	}
	return rows
}

func newTable(cols []table.Column, rows []table.Row) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(1),
	)
	t.SetStyles(tableStyles())
	return t
}

func (t *tableTab) apply(cols []table.Column, rows []table.Row, width, height int) {
	t.table.SetColumns(cols)
	t.table.SetRows(rows)
	t.layout.rowCount = len(rows)
	t.layout.colCount = len(cols)
	t.layout.width = 0
	t.setSize(width, height)
}

func (t *tableTab) setSize(width, height int) {
	viewportHeight := max(1, height-1)
	if t.layout.width == width && t.layout.height == viewportHeight {
		return
	}
	t.layout.width = width
	t.layout.height = viewportHeight
	t.table.SetWidth(width)
	t.table.SetHeight(viewportHeight)
	if adjusted := t.fitHeight(height); adjusted != viewportHeight {
		t.layout.height = adjusted
		t.table.SetHeight(adjusted)
	}
}

// fitHeight corrects the table height so its rendered view, header and
// border included, fills bodyHeight lines.
func (t *tableTab) fitHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := t.table.Height()
	for range 2 {
		viewHeight := lipgloss.Height(t.table.View())
		if viewHeight == target {
			return height
		}
		height = max(1, height+target-viewHeight)
		t.table.SetHeight(height)
	}
	return height
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) startCategoryInput() (tea.Model, tea.Cmd) {
	m.categoryInputMode = true
	m.categoryInputError = ""
	names := make([]string, len(m.curveSelection))
	for i, c := range m.curveSelection {
		names[i] = string(c)
	}
	m.categoryInput.SetValue(strings.Join(names, ","))
	return m, m.categoryInput.Focus()
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		cfg, err := parseFilter(m.filterValues(), m.cfg.Categories)
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.cfg = cfg
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) updateCategoryInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.categoryInputMode = false
		m.categoryInputError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyCategoryInput(); err != nil {
			m.categoryInputError = err.Error()
			return m, nil
		}
		m.categoryInputMode = false
		m.categoryInputError = ""
		m.renderTabContents()
		return m, nil
	}
	var cmd tea.Cmd
	m.categoryInput, cmd = m.categoryInput.Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	m.filterIndex = (idx + count) % count
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) filterValues() []string {
	values := make([]string, len(m.filterInputs))
	for i, input := range m.filterInputs {
		values[i] = strings.TrimSpace(input.Value())
	}
	return values
}

// parseFilter turns the deck, since, last and window fields into a config.
func parseFilter(values []string, categories string) (model.StatsConfig, error) {
	cfg := model.StatsConfig{Deck: values[0], Categories: categories}
	if values[1] != "" {
		parsed, err := time.ParseInLocation("2006-01-02", values[1], time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Since = &parsed
	}
	if values[2] != "" {
		parsed, err := strconv.Atoi(values[2])
		if err != nil || parsed < 0 {
			return model.StatsConfig{}, fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		cfg.Last = parsed
	}
	if values[3] != "" {
		parsed, err := strconv.Atoi(values[3])
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid curve window (use integer)")
		}
		if parsed < 1 {
			return model.StatsConfig{}, fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		cfg.CurveWindow = parsed
	}
	return cfg, nil
}

func (m *Model) applyCategoryInput() error {
	raw := strings.TrimSpace(m.categoryInput.Value())
	cats, unknown := stats.ParseCategories(raw)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown categories: %s", strings.Join(unknown, ", "))
	}
	if len(cats) == 0 {
		m.curveSelectionCustom = false
		m.curveSelection = stats.TopCategoriesByFrequency(m.report.Totals, defaultCurveCount)
		m.cfg.Categories = ""
		return nil
	}
	m.curveSelectionCustom = true
	m.curveSelection = cats
	m.cfg.Categories = raw
	return nil
}

func (m *Model) renderCategoryModal() string {
	names := make([]string, 0, len(feedback.All()))
	for _, c := range feedback.All() {
		names = append(names, string(c))
	}
	body := []string{
		cardValueStyle.Render("Select Categories"),
		m.categoryInput.View(),
		headerStyle.Render("Comma separated. Empty restores the most frequent."),
		headerStyle.Render(runewidth.Wrap(strings.Join(names, " "), modalInnerWidth(m.width))),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	if m.categoryInputError != "" {
		body = append(body, errorStyle.Render(m.categoryInputError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// Curve windows move on a grid of curveStep attempts, with 1 below it.
const curveStep = 5

func nextCurveWindow(n int) int {
	return max(curveStep, n-n%curveStep+curveStep)
}

func prevCurveWindow(n int) int {
	if n <= curveStep {
		return 1
	}
	if r := n % curveStep; r != 0 {
		return n - r
	}
	return n - curveStep
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func modalInnerWidth(width int) int {
	// 2 border + 4 padding
	return max(10, modalWidth(width)-6)
}

// padLines right-pads every line of s to width cells.
func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	return strings.Join(padEach(strings.Split(s, "\n"), width), "\n")
}

func padEach(lines []string, width int) []string {
	for i, line := range lines {
		if gap := width - lipgloss.Width(line); gap > 0 {
			lines[i] = line + strings.Repeat(" ", gap)
		}
	}
	return lines
}

// fitLines pads or cuts s to exactly height lines of width cells.
func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = padEach(lines[:min(len(lines), height)], width)
	for blank := strings.Repeat(" ", width); len(lines) < height; {
		lines = append(lines, blank)
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	tail := "..."
	if width <= len(tail) {
		tail = ""
	}
	return runewidth.Truncate(s, width, tail)
}
