// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key commands gated by state, and rendering
package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/resonate-recorder/pkg/artifact"
	"github.com/Resonate-Protocol/resonate-recorder/pkg/recorder"
)

func stateMsg(s recorder.State) StatusMsg {
	return StatusMsg{State: &s}
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// pressKey runs a key through Update and returns the updated model
func pressKey(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func drain(c *Control) []Command {
	var cmds []Command
	for {
		select {
		case cmd := <-c.Commands:
			cmds = append(cmds, cmd)
		default:
			return cmds
		}
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(nil)

	if model.state != recorder.StateIdle {
		t.Errorf("expected idle initially, got %s", model.state)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
	if !model.canStart() || model.canStop() {
		t.Error("expected only start to be enabled initially")
	}
}

func TestKeysGatedByState(t *testing.T) {
	tests := []struct {
		name  string
		state recorder.State
		key   rune
		want  []Command
	}{
		{"start while idle", recorder.StateIdle, 'r', []Command{CommandStart}},
		{"start while capturing", recorder.StateCapturing, 'r', nil},
		{"start while requesting", recorder.StateRequestingAccess, 'r', nil},
		{"stop while capturing", recorder.StateCapturing, 's', []Command{CommandStop}},
		{"stop while idle", recorder.StateIdle, 's', nil},
		{"stop while stopping", recorder.StateStopping, 's', nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			control := NewControl()
			model := NewModel(control)
			model.applyStatus(stateMsg(tt.state))

			pressKey(t, model, key(tt.key))

			got := drain(control)
			if len(got) != len(tt.want) {
				t.Fatalf("commands = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("command %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestQuitKey(t *testing.T) {
	for _, msg := range []tea.KeyMsg{key('q'), {Type: tea.KeyCtrlC}} {
		control := NewControl()
		_, cmd := pressKey(t, NewModel(control), msg)

		if cmd == nil {
			t.Fatalf("%s: expected quit command", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", msg)
		}
		if got := drain(control); len(got) != 1 || got[0] != CommandQuit {
			t.Errorf("%s: commands = %v, want [quit]", msg, got)
		}
	}
}

func TestDebugToggle(t *testing.T) {
	model, _ := pressKey(t, NewModel(nil), key('d'))
	if !model.showDebug {
		t.Error("expected debug on after d")
	}
	if !strings.Contains(model.View(), "DEBUG") {
		t.Error("debug section not rendered")
	}
	model, _ = pressKey(t, model, key('d'))
	if model.showDebug {
		t.Error("expected debug off after second d")
	}
}

func TestStatusMsgMessage(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{Message: recorder.StatusRequesting})
	model.applyStatus(StatusMsg{Message: recorder.StatusRecording})

	if model.message != recorder.StatusRecording {
		t.Errorf("message = %q, want latest", model.message)
	}

	// Empty messages don't clear the last one
	model.applyStatus(StatusMsg{})
	if model.message != recorder.StatusRecording {
		t.Error("empty status cleared the message")
	}
}

func TestStatsMsg(t *testing.T) {
	model := NewModel(nil)
	started := time.Now().Add(-3 * time.Second)

	model.applyStatus(StatsMsg(recorder.Stats{
		Strategy:       "software",
		MIMEType:       "audio/ogg;codecs=opus",
		StartedAt:      started,
		BlocksReceived: 10,
		BlocksEncoded:  9,
		BlockFaults:    1,
		Pending:        2,
		BytesEncoded:   2048,
	}, recorder.StateCapturing))

	if model.state != recorder.StateCapturing {
		t.Errorf("state = %s", model.state)
	}
	if model.received != 10 || model.encoded != 9 || model.faults != 1 || model.pending != 2 {
		t.Errorf("counters = %d/%d/%d/%d", model.received, model.encoded, model.faults, model.pending)
	}
	if model.elapsed() < 3*time.Second {
		t.Errorf("elapsed = %s, want >= 3s", model.elapsed())
	}

	view := model.View()
	for _, want := range []string{"REC", "software", "RX: 10", "2.0 KB"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestNewSessionResetsCounters(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatsMsg(recorder.Stats{Strategy: "software", BlocksReceived: 50, BytesEncoded: 900}, recorder.StateCapturing))
	model.applyStatus(stateMsg(recorder.StateIdle))

	model.applyStatus(stateMsg(recorder.StateCapturing))
	if model.received != 0 || model.bytes != 0 {
		t.Errorf("counters carried into new session: received=%d bytes=%d", model.received, model.bytes)
	}
}

func TestStatusMsgArtifact(t *testing.T) {
	asm := artifact.NewAssembler("audio/ogg;codecs=opus")
	_ = asm.Append(make([]byte, 1536))
	art, err := asm.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	model := NewModel(nil)
	model.applyStatus(StatusMsg{Artifact: art})
	model.applyStatus(StatusMsg{SavedPath: "/tmp/" + art.Filename()})

	if model.artifactName != art.Filename() {
		t.Errorf("artifact name = %q", model.artifactName)
	}
	if model.artifactSize != "1.5 KB" {
		t.Errorf("artifact size = %q, want 1.5 KB", model.artifactSize)
	}

	view := model.View()
	if !strings.Contains(view, art.Filename()) || !strings.Contains(view, "Saved:") {
		t.Errorf("view missing last recording:\n%s", view)
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "a..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestCommandString(t *testing.T) {
	if CommandStart.String() != "start" || CommandStop.String() != "stop" || CommandQuit.String() != "quit" {
		t.Error("unexpected command names")
	}
}
