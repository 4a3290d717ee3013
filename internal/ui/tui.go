// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and feeds it monitor frames
package ui

import (
	"sync"

	"github.com/audioscape/audioscape/internal/monitor"
	tea "github.com/charmbracelet/bubbletea"
)

// TUI manages the status view
type TUI struct {
	name     string
	controls Controls
	program  *tea.Program
	quitChan chan struct{}
	mu       sync.Mutex
}

// New creates a status view for controls
func New(name string, controls Controls) *TUI {
	return &TUI{
		name:     name,
		controls: controls,
		quitChan: make(chan struct{}, 1),
	}
}

// Run shows the view until the user quits or Stop is called. Frames are
// forwarded to the view until the channel closes.
func (t *TUI) Run(frames <-chan monitor.Frame) error {
	program := tea.NewProgram(NewModel(t.name, t.controls, t.quitChan), tea.WithAltScreen())

	t.mu.Lock()
	t.program = program
	t.mu.Unlock()

	go func() {
		for frame := range frames {
			program.Send(FrameMsg(frame))
		}
	}()

	_, err := program.Run()
	return err
}

// Stop ends the program if it is running
func (t *TUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.program != nil {
		t.program.Quit()
	}
}

// QuitChan returns the channel that signals when the user wants to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
