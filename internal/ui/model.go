// ABOUTME: Bubbletea model for the installation status view
// ABOUTME: Shows play state, active sounds and speaker levels from monitor frames
package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/audioscape/audioscape/internal/monitor"
	"github.com/audioscape/audioscape/pkg/soundscape"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxSoundRows = 12
	levelWidth   = 20
)

// Controls is the part of the scheduler the view drives
type Controls interface {
	Play() (bool, error)
	Pause() (bool, error)
	IsPlaying() bool
}

// KeyMap defines the view's key bindings
type KeyMap struct {
	Toggle key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the standard bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "play/pause"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// help renders the bindings as one line
func (k KeyMap) help() string {
	var parts []string
	for _, b := range []key.Binding{k.Toggle, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// FrameMsg carries a monitor frame into the model
type FrameMsg monitor.Frame

type tickMsg time.Time

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

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	playingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	pausedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	name      string
	keys      KeyMap
	controls  Controls
	frame     monitor.Frame
	playing   bool
	lastErr   error
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}

	width  int
	height int
}

// NewModel creates the status model. controls may be nil.
func NewModel(name string, controls Controls, quitChan chan struct{}) Model {
	m := Model{
		name:      name,
		keys:      DefaultKeyMap(),
		controls:  controls,
		startTime: time.Now(),
		quitChan:  quitChan,
	}
	if controls != nil {
		m.playing = controls.IsPlaying()
	}
	return m
}

// Init starts the uptime ticker
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case FrameMsg:
		m.frame = monitor.Frame(msg)
		m.playing = m.frame.Snapshot.Playing
		if m.controls != nil {
			m.playing = m.controls.IsPlaying()
		}
	case tickMsg:
		return m, tickEvery()
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.quitChan != nil {
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.toggle()
	}

	return m, nil
}

// toggle flips play state through the controls
func (m *Model) toggle() {
	if m.controls == nil {
		return
	}

	var err error
	if m.controls.IsPlaying() {
		_, err = m.controls.Pause()
	} else {
		_, err = m.controls.Play()
	}
	m.lastErr = err
	m.playing = m.controls.IsPlaying()
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.name))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("State: "))
	if m.playing {
		b.WriteString(playingStyle.Render("playing"))
	} else {
		b.WriteString(pausedStyle.Render("paused"))
	}
	b.WriteString("\n")

	snap := m.frame.Snapshot
	b.WriteString(headerStyle.Render("Playback: "))
	b.WriteString(valueStyle.Render(snap.Playback.Round(100 * time.Millisecond).String()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Uptime: "))
	b.WriteString(valueStyle.Render(time.Since(m.startTime).Round(time.Second).String()))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Layout: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d speakers, %d sources, %d groups",
		snap.Speakers, snap.Sources, snap.Groups)))
	b.WriteString("\n\n")

	b.WriteString(m.renderSounds())
	b.WriteString("\n")
	b.WriteString(m.renderLevels())

	if m.lastErr != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("Error: " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.keys.help()))

	return b.String()
}

// renderSounds lists active sounds, oldest first
func (m Model) renderSounds() string {
	sounds := append([]soundscape.SoundState(nil), m.frame.Snapshot.Sounds...)
	sort.Slice(sounds, func(i, j int) bool { return sounds[i].ID < sounds[j].ID })

	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Active Sounds (%d)", len(sounds))))
	b.WriteString("\n")

	if len(sounds) == 0 {
		b.WriteString(valueStyle.Render("  No sounds playing"))
		b.WriteString("\n")
		return b.String()
	}

	for i, s := range sounds {
		if i == maxSoundRows {
			b.WriteString(valueStyle.Render(fmt.Sprintf("  ... %d more", len(sounds)-maxSoundRows)))
			b.WriteString("\n")
			break
		}
		level := m.frame.Levels.Sounds[s.ID]
		b.WriteString(fmt.Sprintf("  #%-5d %-16s", s.ID, truncate(s.Name, 16)))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" (%5.1f, %5.1f) vol %3.0f%% %s",
			s.Position.X, s.Position.Y, s.Volume*100, renderBar(level, 10))))
		b.WriteString("\n")
	}
	return b.String()
}

// renderLevels shows one meter per speaker
func (m Model) renderLevels() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Speaker Levels"))
	b.WriteString("\n")

	if len(m.frame.Levels.Speakers) == 0 {
		b.WriteString(valueStyle.Render("  No output"))
		b.WriteString("\n")
		return b.String()
	}

	for i, level := range m.frame.Levels.Speakers {
		b.WriteString(fmt.Sprintf("  %2d [%s] %s\n", i+1, renderBar(level, levelWidth), valueStyle.Render(dbfs(level))))
	}
	return b.String()
}

// renderBar draws value in [0, 1] as a meter of width cells
func renderBar(value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// dbfs formats a linear RMS level in decibels
func dbfs(level float64) string {
	if level <= 0 {
		return "  -inf dB"
	}
	return fmt.Sprintf("%6.1f dB", 20*math.Log10(level))
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
