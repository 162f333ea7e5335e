// Package tui implements the interactive rule browser.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/rulelens/internal/model"
	"github.com/ppiankov/rulelens/internal/pipeline"
)

// Source answers the browser's queries. *pipeline.Pipeline implements it.
type Source interface {
	PrimaryOptions() ([]string, error)
	Candidates(primary string) ([]string, error)
	View(ctx context.Context, sel model.Selection) (*model.RuleView, error)
	Reload(ctx context.Context) error
}

type pane int

const (
	panePrimary pane = iota
	paneAttributes
	paneRules
	paneCount
)

// SourceChangedMsg tells the browser the source file changed on disk
type SourceChangedMsg struct{}

type reloadedMsg struct {
	err error
}

// Options configures the browser
type Options struct {
	Title   string
	Changes <-chan struct{} // optional; each receive triggers a reload
}

// Model is the bubbletea model of the rule browser
type Model struct {
	ctx      context.Context
	src      Source
	renderer *pipeline.Renderer
	opts     Options
	keys     keyMap
	styles   styles
	help     help.Model
	viewport viewport.Model

	focus      pane
	primaries  []string
	primaryPos int
	primary    string

	candidates []string
	attrPos    int
	selected   map[string]bool

	view   *model.RuleView
	fatal  error
	status string

	width  int
	height int
}

// New creates a browser over src. Queries run against src synchronously;
// reloads run as commands.
func New(ctx context.Context, src Source, renderer *pipeline.Renderer, opts Options) Model {
	if opts.Title == "" {
		opts.Title = "rulelens"
	}
	m := Model{
		ctx:      ctx,
		src:      src,
		renderer: renderer,
		opts:     opts,
		keys:     defaultKeyMap(),
		styles:   defaultStyles(),
		help:     help.New(),
		viewport: viewport.New(80, 20),
		primary:  model.AllSelector,
		selected: make(map[string]bool),
	}
	m.refreshOptions()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	if m.opts.Changes == nil {
		return nil
	}
	ch := m.opts.Changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return SourceChangedMsg{}
	}
}

func (m Model) reload() tea.Cmd {
	src, ctx := m.src, m.ctx
	return func() tea.Msg {
		return reloadedMsg{err: src.Reload(ctx)}
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case SourceChangedMsg:
		m.status = "Source changed, reloading..."
		return m, tea.Batch(m.reload(), m.waitForChange())

	case reloadedMsg:
		if msg.err != nil {
			m.status = "Reload failed: " + msg.err.Error()
			if m.view == nil {
				m.fatal = msg.err
			}
			return m, nil
		}
		m.fatal = nil
		m.status = "Reloaded"
		m.refreshOptions()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Reload):
		m.status = "Reloading..."
		return m, m.reload()
	}

	if m.fatal != nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.setSize(m.width, m.height)
	case key.Matches(msg, m.keys.Next):
		m.focus = (m.focus + 1) % paneCount
	case key.Matches(msg, m.keys.Prev):
		m.focus = (m.focus + paneCount - 1) % paneCount
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.PageDown()
	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
	case key.Matches(msg, m.keys.Clear):
		if len(m.selected) > 0 {
			m.selected = make(map[string]bool)
			m.refreshView()
		}
	}
	return m, nil
}

func (m *Model) move(delta int) {
	switch m.focus {
	case panePrimary:
		m.primaryPos = clamp(m.primaryPos+delta, len(m.primaries))
	case paneAttributes:
		m.attrPos = clamp(m.attrPos+delta, len(m.candidates))
	case paneRules:
		if delta < 0 {
			m.viewport.ScrollUp(1)
		} else {
			m.viewport.ScrollDown(1)
		}
	}
}

func (m *Model) toggle() {
	switch m.focus {
	case panePrimary:
		if m.primaryPos >= len(m.primaries) || m.primaries[m.primaryPos] == m.primary {
			return
		}
		m.primary = m.primaries[m.primaryPos]
		m.refreshCandidates()
		m.refreshView()
	case paneAttributes:
		if m.attrPos >= len(m.candidates) {
			return
		}
		v := m.candidates[m.attrPos]
		if m.selected[v] {
			delete(m.selected, v)
		} else {
			m.selected[v] = true
		}
		m.refreshView()
	}
}

// refreshOptions re-reads every option list, keeping the current choices
// where they still exist.
func (m *Model) refreshOptions() {
	primaries, err := m.src.PrimaryOptions()
	if err != nil {
		m.fatal = err
		return
	}
	m.primaries = primaries

	found := false
	for i, p := range primaries {
		if p == m.primary {
			m.primaryPos = i
			found = true
			break
		}
	}
	if !found {
		m.primary = model.AllSelector
		m.primaryPos = 0
	}

	m.refreshCandidates()
	m.refreshView()
}

// refreshCandidates drops selected attributes the current primary no longer offers
func (m *Model) refreshCandidates() {
	candidates, err := m.src.Candidates(m.primary)
	if err != nil {
		m.fatal = err
		return
	}
	m.candidates = candidates

	available := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		available[c] = true
	}
	for v := range m.selected {
		if !available[v] {
			delete(m.selected, v)
		}
	}
	m.attrPos = clamp(m.attrPos, len(candidates))
}

func (m *Model) refreshView() {
	view, err := m.src.View(m.ctx, model.NewSelection(m.primary, m.Attributes()...))
	if err != nil {
		m.fatal = err
		return
	}
	m.view = view

	var b strings.Builder
	if err := m.renderer.RenderText(&b, view); err != nil {
		m.status = "Render failed: " + err.Error()
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoTop()
}

func (m *Model) setSize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	vw := width - sidebarWidth - 3
	if vw < 20 {
		vw = 20
	}
	vh := height - 2 - lipgloss.Height(m.help.View(m.keys))
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = vw
	m.viewport.Height = vh
}

// Primary returns the selected primary value
func (m Model) Primary() string {
	return m.primary
}

// Attributes returns the selected attributes in candidate order
func (m Model) Attributes() []string {
	attrs := make([]string, 0, len(m.selected))
	for _, c := range m.candidates {
		if m.selected[c] {
			attrs = append(attrs, c)
		}
	}
	return attrs
}

// RuleView returns the view currently displayed
func (m Model) RuleView() *model.RuleView {
	return m.view
}

// Err returns the error that stopped the browser, if any
func (m Model) Err() error {
	return m.fatal
}

// View implements tea.Model
func (m Model) View() string {
	if m.fatal != nil {
		return m.styles.fatal.Render(fmt.Sprintf("FATAL ERROR: %v", m.fatal)) + "\n" +
			m.styles.muted.Render("  r: retry   q: quit") + "\n"
	}

	listHeight := m.viewport.Height/2 - 1
	if listHeight < 3 {
		listHeight = 3
	}

	sidebar := lipgloss.JoinVertical(lipgloss.Left,
		m.paneHeader(panePrimary, "Event"),
		m.renderList(m.primaries, m.primaryPos, m.focus == panePrimary, listHeight, func(v string) bool { return v == m.primary }, "(•) ", "( ) "),
		"",
		m.paneHeader(paneAttributes, fmt.Sprintf("Attributes (%d selected)", len(m.selected))),
		m.renderList(m.candidates, m.attrPos, m.focus == paneAttributes, listHeight, func(v string) bool { return m.selected[v] }, "[x] ", "[ ] "),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.sidebar.Height(m.viewport.Height).Render(sidebar),
		" ",
		lipgloss.JoinVertical(lipgloss.Left, m.paneHeader(paneRules, "Rules"), m.viewport.View()),
	)

	status := m.status
	if m.view != nil {
		status = strings.TrimSpace(fmt.Sprintf("%d/%d rows, %d rule(s)  %s", m.view.MatchedRows, m.view.TotalRows, m.view.RuleCount, status))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.title.Render(m.opts.Title),
		body,
		m.styles.status.Render(status),
		m.help.View(m.keys),
	)
}

func (m Model) paneHeader(p pane, title string) string {
	if m.focus == p {
		return m.styles.activeTitle.Render(title)
	}
	return m.styles.paneTitle.Render(title)
}

func (m Model) renderList(items []string, pos int, focused bool, height int, isSelected func(string) bool, on, off string) string {
	if len(items) == 0 {
		return m.styles.muted.Render("  (none)")
	}

	start, end := window(len(items), pos, height)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		label := model.PrimaryLabel(items[i])

		marker := off
		style := m.styles.item
		if isSelected(items[i]) {
			marker = on
			style = m.styles.selected
		}

		prefix := "  "
		if focused && i == pos {
			prefix = m.styles.cursor.Render("> ")
		}
		lines = append(lines, prefix+style.Render(marker+label))
	}
	return strings.Join(lines, "\n")
}

// window returns the [start, end) range of n items to show around pos
func window(n, pos, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start := pos - height/2
	if start < 0 {
		start = 0
	}
	if start+height > n {
		start = n - height
	}
	return start, start + height
}

func clamp(v, n int) int {
	if n == 0 || v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
