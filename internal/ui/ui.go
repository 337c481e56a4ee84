// Package ui is the terminal front end: a bubbletea program that feeds user
// requests to the engine, renders its event stream and surfaces approval
// prompts.
package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/WantedChef/chefchat/internal/agent"
	"github.com/WantedChef/chefchat/internal/approval"
	"github.com/WantedChef/chefchat/internal/config"
	"github.com/WantedChef/chefchat/internal/mode"
)

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryTool
	entryInfo
	entryError
)

type entry struct {
	kind entryKind
	text string
}

// Model is the bubbletea model.
type Model struct {
	engine *agent.Engine
	modes  *mode.Manager
	gate   *approval.Gate
	config *config.Config

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model
	renderer markdownRenderer

	events    chan agent.Event
	approvals chan approval.Request

	entries []entry

	// assistantBuf holds the in-flight turn's streamed text. It is a plain
	// string because bubbletea copies the model on every update.
	assistantBuf string
	pending      *approval.Request
	busy         bool
	cancelTurn   context.CancelFunc

	width  int
	height int
	ready  bool
}

// sweepInterval is how often expired approvals are denied.
const sweepInterval = 15 * time.Second

// New creates the UI model. The approvals channel must be the one the gate's
// notifier feeds.
func New(engine *agent.Engine, modes *mode.Manager, gate *approval.Gate, cfg *config.Config, approvals chan approval.Request) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, /help for commands..."
	ti.Focus()

	return Model{
		engine:    engine,
		modes:     modes,
		gate:      gate,
		config:    cfg,
		input:     ti,
		viewport:  viewport.New(80, 20),
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		renderer:  newGlamourRenderer(),
		events:    make(chan agent.Event, 256),
		approvals: approvals,
	}
}

// Run starts the program and blocks until exit.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type eventMsg struct{ event agent.Event }
type approvalMsg struct{ request approval.Request }
type turnDoneMsg struct{ err error }
type sweepMsg time.Time

func listenEvents(ch <-chan agent.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{event: <-ch}
	}
}

func listenApprovals(ch <-chan approval.Request) tea.Cmd {
	return func() tea.Msg {
		return approvalMsg{request: <-ch}
	}
}

func sweepTick() tea.Cmd {
	return tea.Tick(sweepInterval, func(t time.Time) tea.Msg {
		return sweepMsg(t)
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spin.Tick,
		listenEvents(m.events),
		listenApprovals(m.approvals),
		sweepTick(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 5
		m.renderer = newGlamourRendererWidth(msg.Width - 4)
		m.ready = true
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		m.applyEvent(msg.event)
		return m, listenEvents(m.events)

	case approvalMsg:
		req := msg.request
		m.pending = &req
		return m, listenApprovals(m.approvals)

	case sweepMsg:
		for range m.gate.SweepExpired(time.Now()) {
			if m.pending != nil {
				m.pending = nil
			}
		}
		return m, sweepTick()

	case turnDoneMsg:
		m.finishAssistantEntry()
		m.busy = false
		m.cancelTurn = nil
		if msg.err != nil {
			text := msg.err.Error()
			if hint := agent.RecoveryHint(msg.err); hint != "" {
				text += "\n" + hint
			}
			m.appendEntry(entryError, text)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending != nil {
		switch msg.String() {
		case "y":
			m.gate.Resolve(m.pending.ID, approval.DecisionYes, "")
			m.pending = nil
		case "n":
			m.gate.Resolve(m.pending.ID, approval.DecisionNo, "")
			m.pending = nil
		case "a":
			m.gate.Resolve(m.pending.ID, approval.DecisionAlways, "")
			m.pending = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		if m.busy && m.cancelTurn != nil {
			m.cancelTurn()
			return m, nil
		}
		return m, tea.Quit

	case "esc":
		if m.busy && m.cancelTurn != nil {
			m.cancelTurn()
		}
		return m, nil

	case "shift+tab":
		old, next := m.modes.Cycle()
		m.appendEntry(entryInfo, mode.TransitionMessage(old, next))
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.busy {
			return m, nil
		}
		m.input.SetValue("")
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		return m.startTurn(text)

	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startTurn(text string) (tea.Model, tea.Cmd) {
	m.appendEntry(entryUser, text)
	m.busy = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel

	engine := m.engine
	events := m.events
	return m, func() tea.Msg {
		return turnDoneMsg{err: engine.Act(ctx, text, events)}
	}
}

func (m Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(text)
	switch parts[0] {
	case "/help":
		m.appendEntry(entryInfo, helpText)

	case "/clear":
		m.engine.Clear()
		m.entries = nil
		m.assistantBuf = ""
		m.refreshViewport()
		m.appendEntry(entryInfo, "Conversation cleared.")

	case "/compact":
		m.busy = true
		ctx, cancel := context.WithCancel(context.Background())
		m.cancelTurn = cancel
		engine := m.engine
		events := m.events
		return m, func() tea.Msg {
			return turnDoneMsg{err: engine.CompactNow(ctx, events)}
		}

	case "/mode":
		if len(parts) < 2 {
			m.appendEntry(entryInfo, fmt.Sprintf("Current mode: %s\n%s", m.modes.Indicator(), m.modes.Description()))
			break
		}
		old := m.modes.Current()
		next, err := m.modes.SetFromName(parts[1])
		if err != nil {
			m.appendEntry(entryError, err.Error())
			break
		}
		m.appendEntry(entryInfo, mode.TransitionMessage(old, next))

	case "/stats":
		stats := m.engine.Stats()
		m.appendEntry(entryInfo, fmt.Sprintf(
			"Turns: %d  Tool calls: %d  Compactions: %d\nTokens: %d prompt + %d completion  Context: ~%d\nLast turn: %.1fs at %.0f tok/s\nSpend: $%.4f",
			stats.Turns, stats.ToolCalls, stats.Compactions,
			stats.PromptTokens, stats.CompletionTokens, stats.ContextTokens,
			stats.LastTurnSeconds, stats.TokensPerSecond, stats.Price))

	case "/quit":
		return m, tea.Quit

	default:
		m.appendEntry(entryError, fmt.Sprintf("Unknown command %s. Try /help.", parts[0]))
	}
	return m, nil
}

const helpText = `Commands:
  /help          Show this help
  /mode [name]   Show or switch mode (plan, normal, auto, yolo, architect)
  /clear         Clear the conversation
  /compact       Summarize the conversation to free context
  /stats         Show session counters
  /quit          Exit

Keys:
  shift+tab      Cycle modes
  esc            Cancel the running request
  y / n / a      Answer an approval prompt (yes / no / always)`

func (m *Model) applyEvent(ev agent.Event) {
	switch ev := ev.(type) {
	case agent.AssistantTextEvent:
		// Each event carries the whole turn so far; the last one wins.
		m.assistantBuf = ev.Text
		m.refreshViewport()

	case agent.ToolCallStartedEvent:
		m.finishAssistantEntry()
		m.appendEntry(entryTool, fmt.Sprintf("→ %s %s", ev.Name, compactArgs(ev.Args)))

	case agent.ToolResultEvent:
		text := ev.Content
		if ev.Skipped {
			text = "skipped: " + ev.Reason
		}
		kind := entryTool
		if ev.IsError {
			kind = entryError
		}
		m.appendEntry(kind, truncateForDisplay(text, 2000))

	case agent.CompactStartEvent:
		m.finishAssistantEntry()
		m.appendEntry(entryInfo, fmt.Sprintf("Compacting conversation (~%d tokens)...", ev.EstimatedTokens))

	case agent.CompactEndEvent:
		m.appendEntry(entryInfo, fmt.Sprintf("Compacted: ~%d → ~%d tokens.", ev.EstimatedTokensBefore, ev.EstimatedTokensAfter))

	case agent.InfoEvent:
		m.appendEntry(entryInfo, ev.Text)

	case agent.StoppedEvent:
		m.finishAssistantEntry()
		m.appendEntry(entryInfo, "Stopped: "+ev.Reason)
	}
}

func (m *Model) appendEntry(kind entryKind, text string) {
	m.entries = append(m.entries, entry{kind: kind, text: text})
	m.refreshViewport()
}

// finishAssistantEntry converts the streamed buffer into a rendered entry.
func (m *Model) finishAssistantEntry() {
	if m.assistantBuf == "" {
		return
	}
	m.appendEntry(entryAssistant, m.assistantBuf)
	m.assistantBuf = ""
}

func compactArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return truncateForDisplay(strings.Join(parts, " "), 120)
}

func truncateForDisplay(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
