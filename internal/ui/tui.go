// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and carries key commands back to the recorder
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/recorder"
)

// Command is a user request from the TUI
type Command int

const (
	CommandStart Command = iota
	CommandStop
	CommandQuit
)

// String returns the command name
func (c Command) String() string {
	switch c {
	case CommandStart:
		return "start"
	case CommandStop:
		return "stop"
	case CommandQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Control carries commands from the TUI to the application
type Control struct {
	Commands chan Command
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
	}
}

// send never blocks the UI loop
func (c *Control) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(control *Control) Model {
	return Model{
		state:   recorder.StateIdle,
		control: control,
		now:     time.Now,
	}
}

// Run creates the TUI program; the caller runs it
func Run(control *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}

// StatusSink forwards recorder status messages to a running program
func StatusSink(p *tea.Program) recorder.StatusSink {
	return recorder.StatusFunc(func(message string) {
		if p != nil {
			p.Send(StatusMsg{Message: message})
		}
	})
}
