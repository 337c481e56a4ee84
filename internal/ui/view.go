package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("7")).
			Padding(0, 1)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("11")).
			Padding(0, 1)
)

// markdownRenderer renders assistant markdown for the terminal.
type markdownRenderer interface {
	Render(string) (string, error)
}

type glamourRenderer struct {
	renderer *glamour.TermRenderer
}

func newGlamourRenderer() markdownRenderer {
	return newGlamourRendererWidth(76)
}

func newGlamourRendererWidth(width int) markdownRenderer {
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return plainRenderer{}
	}
	return &glamourRenderer{renderer: r}
}

func (g *glamourRenderer) Render(text string) (string, error) {
	return g.renderer.Render(text)
}

// plainRenderer is the fallback when glamour cannot initialize.
type plainRenderer struct{}

func (plainRenderer) Render(text string) (string, error) { return text, nil }

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.pending != nil {
		b.WriteString(m.renderApprovalPopup())
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m *Model) renderStatusBar() string {
	stats := m.engine.Stats()
	left := fmt.Sprintf("%s  %s", m.modes.Indicator(), m.config.Provider.Model)
	right := fmt.Sprintf("ctx ~%d  %d tok  %.0f tok/s  $%.4f",
		stats.ContextTokens, stats.TotalTokens(), stats.TokensPerSecond, stats.Price)
	if m.busy {
		left = m.spin.View() + " " + left
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return statusStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderApprovalPopup() string {
	preview := truncateForDisplay(m.pending.Preview, 400)
	body := fmt.Sprintf("Allow %s?\n%s\n\n[y]es  [n]o  [a]lways for this session", m.pending.ToolName, preview)
	return popupStyle.Render(body)
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	var b strings.Builder
	for _, e := range m.entries {
		switch e.kind {
		case entryUser:
			b.WriteString(userStyle.Render("> " + e.text))
			b.WriteString("\n")
		case entryAssistant:
			rendered, err := m.renderer.Render(e.text)
			if err != nil {
				rendered = e.text
			}
			b.WriteString(strings.TrimRight(rendered, "\n"))
			b.WriteString("\n")
		case entryTool:
			b.WriteString(toolStyle.Render(e.text))
			b.WriteString("\n")
		case entryInfo:
			b.WriteString(infoStyle.Render(e.text))
			b.WriteString("\n")
		case entryError:
			b.WriteString(errorStyle.Render(e.text))
			b.WriteString("\n")
		}
	}

	// Streaming text is shown raw until the turn completes.
	if m.assistantBuf != "" {
		b.WriteString(m.assistantBuf)
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}
