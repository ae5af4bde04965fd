// ABOUTME: Bubbletea model for the recorder TUI
// ABOUTME: Defines recorder display state, key handling and rendering
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/recorder"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	recordingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	disabledStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Session
	state    recorder.State
	message  string
	device   string
	strategy string
	mimeType string
	started  time.Time

	// Stats
	received uint64
	encoded  uint64
	faults   uint64
	dropped  uint64
	pending  int
	bytes    int64

	// Last recording
	artifactName string
	artifactSize string
	savedPath    string

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	control *Control
	now     func() time.Time
}

// StatusMsg updates TUI state. Zero fields leave the current value alone.
type StatusMsg struct {
	State    *recorder.State
	Message  string
	Device   string
	Strategy string
	MIMEType string
	Started  time.Time

	Received uint64
	Encoded  uint64
	Faults   uint64
	Dropped  uint64
	Pending  int
	Bytes    int64

	Artifact  *artifact.Artifact
	SavedPath string
}

// StatsMsg builds a StatusMsg from a recorder stats snapshot
func StatsMsg(stats recorder.Stats, state recorder.State) StatusMsg {
	return StatusMsg{
		State:    &state,
		Strategy: stats.Strategy,
		MIMEType: stats.MIMEType,
		Started:  stats.StartedAt,
		Received: stats.BlocksReceived,
		Encoded:  stats.BlocksEncoded,
		Faults:   stats.BlockFaults,
		Dropped:  stats.BlocksDropped,
		Pending:  stats.Pending,
		Bytes:    stats.BytesEncoded,
	}
}

type tickMsg time.Time

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the clock that refreshes the elapsed time
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Resonate Recorder"))
	b.WriteString("\n")

	b.WriteString(m.renderState())
	b.WriteString(m.renderSession())
	b.WriteString(m.renderLast())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

// renderState renders the recorder state and latest status message
func (m Model) renderState() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("State:   "))
	if m.state == recorder.StateCapturing {
		b.WriteString(recordingStyle.Render("● REC " + m.elapsed().String()))
	} else {
		b.WriteString(valueStyle.Render(m.state.String()))
	}
	b.WriteString("\n")

	message := m.message
	if message == "" {
		message = "Press r to start recording"
	}
	b.WriteString(headerStyle.Render("Status:  "))
	b.WriteString(messageStyle.Render(message))
	b.WriteString("\n\n")

	return b.String()
}

// renderSession renders the active session's format and counters
func (m Model) renderSession() string {
	if m.strategy == "" {
		return ""
	}

	var b strings.Builder
	if m.device != "" {
		b.WriteString(headerStyle.Render("Device:  "))
		b.WriteString(valueStyle.Render(truncate(m.device, 48)))
		b.WriteString("\n")
	}
	b.WriteString(headerStyle.Render("Encoder: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%s)", m.strategy, m.mimeType)))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Blocks:  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("RX: %d  Encoded: %d  Faults: %d  Dropped: %d",
		m.received, m.encoded, m.faults, m.dropped)))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Size:    "))
	b.WriteString(valueStyle.Render(artifact.FormatSize(int(m.bytes))))
	b.WriteString("\n\n")

	return b.String()
}

// renderLast renders the most recent finished recording
func (m Model) renderLast() string {
	if m.artifactName == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Last:    "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%s)", m.artifactName, m.artifactSize)))
	b.WriteString("\n")
	if m.savedPath != "" {
		b.WriteString(headerStyle.Render("Saved:   "))
		b.WriteString(valueStyle.Render(m.savedPath))
		b.WriteString("\n")
	}
	return b.String()
}

// renderDebug renders queue internals
func (m Model) renderDebug() string {
	return disabledStyle.Render(fmt.Sprintf("DEBUG: pending=%d bytes=%d", m.pending, m.bytes)) + "\n"
}

// renderHelp renders keyboard shortcuts, greying out keys the current
// state does not accept
func (m Model) renderHelp() string {
	key := func(label string, enabled bool) string {
		if enabled {
			return valueStyle.Render(label)
		}
		return disabledStyle.Render(label)
	}

	return strings.Join([]string{
		key("r:Record", m.canStart()),
		key("s:Stop", m.canStop()),
		key("d:Debug", true),
		key("q:Quit", true),
	}, "  ") + "\n"
}

func (m Model) canStart() bool {
	return m.state == recorder.StateIdle
}

func (m Model) canStop() bool {
	return m.state == recorder.StateCapturing
}

func (m Model) elapsed() time.Duration {
	if m.started.IsZero() {
		return 0
	}
	return m.now().Sub(m.started).Round(time.Second)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.control.send(CommandQuit)
		return m, tea.Quit
	case "r":
		if m.canStart() {
			m.control.send(CommandStart)
		}
	case "s":
		if m.canStop() {
			m.control.send(CommandStop)
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != nil {
		if *msg.State == recorder.StateCapturing && m.state != recorder.StateCapturing {
			// A new session clears the previous one's counters
			m.received, m.encoded, m.faults, m.dropped, m.bytes = 0, 0, 0, 0, 0
		}
		m.state = *msg.State
	}
	if msg.Message != "" {
		m.message = msg.Message
	}
	if msg.Device != "" {
		m.device = msg.Device
	}
	if msg.Strategy != "" {
		m.strategy = msg.Strategy
		m.mimeType = msg.MIMEType
	}
	if !msg.Started.IsZero() {
		m.started = msg.Started
	}
	if msg.Received != 0 {
		m.received = msg.Received
		m.encoded = msg.Encoded
		m.faults = msg.Faults
		m.dropped = msg.Dropped
		m.pending = msg.Pending
		m.bytes = msg.Bytes
	}
	if msg.Artifact != nil {
		m.artifactName = msg.Artifact.Filename()
		m.artifactSize = msg.Artifact.HumanSize()
		m.savedPath = ""
	}
	if msg.SavedPath != "" {
		m.savedPath = msg.SavedPath
	}
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
