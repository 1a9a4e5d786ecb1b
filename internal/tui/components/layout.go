package components

import (
	"strings"

	"mcp-local-repo-analyzer/internal/tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type LayoutConfig struct {
	Title    string
	Subtitle string
	HelpText string
	MarginX  int
	MaxWidth int
}

// LayoutModel frames a view with a title, subtitle, error line and help,
// wrapping each to the terminal width.
type LayoutModel struct {
	config LayoutConfig
	width  int
	height int
	err    error
}

func NewLayout(config LayoutConfig) LayoutModel {
	if config.MarginX == 0 {
		config.MarginX = 1
	}
	if config.MaxWidth == 0 {
		config.MaxWidth = 120
	}
	return LayoutModel{config: config}
}

func (m LayoutModel) Update(msg tea.Msg) (LayoutModel, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m LayoutModel) SetTitle(title string) LayoutModel {
	m.config.Title = title
	return m
}

func (m LayoutModel) SetSubtitle(subtitle string) LayoutModel {
	m.config.Subtitle = subtitle
	return m
}

func (m LayoutModel) SetHelpText(helpText string) LayoutModel {
	m.config.HelpText = helpText
	return m
}

func (m LayoutModel) SetError(err error) LayoutModel {
	m.err = err
	return m
}

// Render frames content. Content is expected to be laid out already and is
// not rewrapped.
func (m LayoutModel) Render(content string) string {
	sections := []string{}
	width := m.ContentWidth()

	if m.config.Title != "" {
		sections = append(sections, styles.TitleStyle.Render(wrapText(m.config.Title, width)))
	}
	if m.config.Subtitle != "" {
		sections = append(sections, styles.SubtitleStyle.Render(wrapText(m.config.Subtitle, width)))
	}
	if content != "" {
		sections = append(sections, content)
	}
	if m.err != nil {
		sections = append(sections, styles.ErrorStyle.Render(wrapText("Error: "+m.err.Error(), width)))
	}
	if m.config.HelpText != "" {
		// help is padded on both sides
		sections = append(sections, styles.HelpStyle.Render(wrapText(m.config.HelpText, width-2)))
	}

	return addMargin(strings.Join(sections, "\n"), m.config.MarginX)
}

// wrapText word-wraps every line of text, keeping blank lines.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wordwrap.String(strings.TrimSpace(line), width)
	}
	return strings.Join(lines, "\n")
}

func addMargin(content string, margin int) string {
	pad := strings.Repeat(" ", margin)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}

// ContentWidth is the usable width, clamped to [40, MaxWidth].
func (m LayoutModel) ContentWidth() int {
	available := m.width - m.config.MarginX*2
	if available > m.config.MaxWidth {
		return m.config.MaxWidth
	}
	if available < 40 {
		return 40
	}
	return available
}

// ContentHeight is what is left for content once the title, subtitle, error
// and help are rendered at the current width. It changes whenever one of
// them does.
func (m LayoutModel) ContentHeight() int {
	frame := m.Render("")
	if strings.TrimSpace(frame) == "" {
		return max(m.height, 1)
	}
	return max(m.height-lipgloss.Height(frame), 1)
}
