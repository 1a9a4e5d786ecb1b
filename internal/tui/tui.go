// Package tui implements the interactive inspect dashboard.
//
// The dashboard loads an analyzer.Snapshot of one repository and shows it in
// five sections (overview, changes, commits, stashes and advice) that the user
// cycles through with tab. Loading runs as a Bubble Tea command behind a
// spinner, so refreshing with r never blocks the UI.
package tui

import (
	"context"
	"fmt"
	"strings"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/tui/components"
	"mcp-local-repo-analyzer/internal/tui/styles"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Loader returns a fresh snapshot of the inspected repository.
type Loader func(ctx context.Context) (analyzer.Snapshot, error)

type (
	snapshotMsg struct {
		snap analyzer.Snapshot
	}

	errMsg struct {
		err error
	}
)

type KeyMap struct {
	Next    key.Binding
	Prev    key.Binding
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next:    key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab/→", "next section")),
		Prev:    key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab/←", "previous")),
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Up, k.Down, k.Refresh, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// DashboardModel is the root model of the inspect command.
type DashboardModel struct {
	ctx    context.Context
	load   Loader
	logger *logging.AppLogger

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	layout   components.LayoutModel

	section section
	snap    *analyzer.Snapshot
	loading bool
	err     error
}

func NewDashboardModel(ctx context.Context, load Loader, logger *logging.AppLogger) DashboardModel {
	if logger == nil {
		logger = logging.GetDefault()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	keys := DefaultKeyMap()
	h := help.New()

	return DashboardModel{
		ctx:      ctx,
		load:     load,
		logger:   logger,
		keys:     keys,
		help:     h,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		layout: components.NewLayout(components.LayoutConfig{
			Title:    "Repository Analyzer",
			HelpText: h.View(keys),
		}),
		loading: true,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m DashboardModel) loadCmd() tea.Cmd {
	ctx, load := m.ctx, m.load
	return func() tea.Msg {
		snap, err := load(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return snapshotMsg{snap: snap}
	}
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.logger.LogMessage(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout, _ = m.layout.Update(msg)
		m.help.Width = msg.Width
		m.resize()
		m.refreshContent()
		return m, nil

	case snapshotMsg:
		m.loading = false
		m.err = nil
		m.snap = &msg.snap
		m.layout = m.layout.SetError(nil)
		m.refreshContent()
		m.viewport.GotoTop()
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		m.layout = m.layout.SetError(msg.err)
		m.resize()
		m.logger.Error("Failed to analyze repository", "error", msg.err)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.loadCmd())
		case key.Matches(msg, m.keys.Next):
			m.section = m.section.next()
			m.refreshContent()
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			m.section = m.section.prev()
			m.refreshContent()
			m.viewport.GotoTop()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *DashboardModel) refreshContent() {
	if m.snap == nil {
		return
	}
	st := m.snap.Status
	m.layout = m.layout.
		SetTitle(fmt.Sprintf("%s on %s", st.Repository.Name, st.BranchStatus.CurrentBranch)).
		SetSubtitle(m.snap.Summary)
	m.resize()
	m.viewport.SetContent(renderSection(m.section, *m.snap, m.viewport.Width))
}

// resize fits the viewport between the tabs and the layout frame, whose
// height depends on the wrapped title, subtitle and error.
func (m *DashboardModel) resize() {
	m.viewport.Width = m.layout.ContentWidth()
	// tabs, then a blank line
	m.viewport.Height = max(m.layout.ContentHeight()-lipgloss.Height(m.tabs())-1, 1)
}

func (m DashboardModel) tabs() string {
	rendered := make([]string, 0, sectionCount)
	for s := range sectionCount {
		style := styles.TabStyle
		if s == m.section {
			style = styles.ActiveTabStyle
		}
		rendered = append(rendered, style.Render(s.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m DashboardModel) View() string {
	if m.snap == nil {
		if m.err != nil {
			return m.layout.Render("")
		}
		return m.layout.Render(m.spinner.View() + " Analyzing repository...")
	}

	var b strings.Builder
	b.WriteString(m.tabs())
	if m.loading {
		b.WriteString("  " + m.spinner.View() + " refreshing")
	}
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	return m.layout.Render(b.String())
}

// Snapshot returns the snapshot on screen, if one has loaded.
func (m DashboardModel) Snapshot() (analyzer.Snapshot, bool) {
	if m.snap == nil {
		return analyzer.Snapshot{}, false
	}
	return *m.snap, true
}

// Run shows the dashboard until the user quits or ctx is canceled.
func Run(ctx context.Context, load Loader, logger *logging.AppLogger, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewDashboardModel(ctx, load, logger), opts...)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
