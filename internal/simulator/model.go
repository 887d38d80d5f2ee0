package simulator

import (
	"image"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/render"
	"github.com/muurk/orion-kiosk/internal/ui"
)

// keyMap defines the simulator's key bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Tap       key.Binding
	LongPress key.Binding
	Toggle    key.Binding
	No        key.Binding
	Yes       key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Tap, k.LongPress, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left},
		{k.Tap, k.LongPress, k.Toggle},
		{k.No, k.Yes},
		{k.Help, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "swipe up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "swipe down")),
		Left:      key.NewBinding(key.WithKeys("left", "h", "esc"), key.WithHelp("←/h", "swipe left")),
		Tap:       key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "tap")),
		LongPress: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "long press")),
		Toggle:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tap theme toggle")),
		No:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "tap NO")),
		Yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "tap YES")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

var center = image.Pt(render.Width/2, render.Height/2)

// Model is the simulator's Bubble Tea model.
type Model struct {
	cell    *gesture.Cell
	keys    keyMap
	help    help.Model
	screen  render.Screen
	standby bool
	last    string
	width   int
}

// NewModel creates a model that stores gestures in cell.
func NewModel(cell *gesture.Cell) Model {
	return Model{cell: cell, keys: defaultKeyMap(), help: help.New()}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case frameMsg:
		m.screen = msg.screen

	case standbyMsg:
		m.standby = bool(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			m.press(gesture.Up, center)
		case key.Matches(msg, m.keys.Down):
			m.press(gesture.Down, center)
		case key.Matches(msg, m.keys.Left):
			m.press(gesture.Left, center)
		case key.Matches(msg, m.keys.Tap):
			m.press(gesture.Tap, center)
		case key.Matches(msg, m.keys.LongPress):
			m.press(gesture.LongPress, center)
		case key.Matches(msg, m.keys.Toggle):
			m.press(gesture.Tap, midpoint(render.ThemeToggle()))
		case key.Matches(msg, m.keys.No), key.Matches(msg, m.keys.Yes):
			m.pressButton(key.Matches(msg, m.keys.Yes))
		}
	}
	return m, nil
}

func (m *Model) press(code gesture.Code, p image.Point) {
	m.cell.StoreAt(code, p)
	m.last = code.String()
}

// pressButton taps the NO or YES box of the current confirmation
// screen. Off confirmation screens it taps where the boxes would be.
func (m *Model) pressButton(yes bool) {
	top := m.screen.Buttons
	if top == 0 {
		top = render.ShutdownButtonsY
	}
	no, y := render.ConfirmButtons(top)
	if yes {
		m.press(gesture.Tap, midpoint(y))
	} else {
		m.press(gesture.Tap, midpoint(no))
	}
}

func midpoint(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(ui.HeaderTitleStyle.Render("ORION KIOSK SIMULATOR"))
	b.WriteString("\n\n")
	b.WriteString(ui.RenderScreen(m.screen, m.standby))
	b.WriteString("\n")
	if m.last != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(ui.MutedColor).Render("  last gesture: " + m.last))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
