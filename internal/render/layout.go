package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/marquee"
	"github.com/muurk/orion-kiosk/internal/state"
)

// Menu entries, in cursor order.
var (
	MainItems   = []string{"Energy", "Device", "WiFi Setup", "Shutdown"}
	WiFiOptions = []string{"Pair Devices", "Change WiFi", "Saved Networks", "Remove WiFi"}
)

// Energy view identifiers accepted in the configuration.
const (
	ViewText = "text"
	ViewBar  = "bar"
	ViewLine = "line"
	View24h  = "24h"
	View7d   = "7d"
)

const savedNetworksVisible = 4

// Screen is a device-independent description of one frame.
type Screen struct {
	Theme state.Theme
	Title string
	Lines []Line
	// Centered marks full-screen messages.
	Centered bool
	// Arrows shows the paging arrows at the top and bottom edge.
	Arrows bool
	// Toggle shows the theme toggle glyph.
	Toggle bool
	// Buttons is the top edge of the NO/YES boxes, or 0 for none.
	Buttons int
	Chart   *Chart
	QR      string
	Footer  []string
}

// Line is one row of text.
type Line struct {
	Text     string
	Selected bool
}

// Chart is a per-phase bar or line chart.
type Chart struct {
	Kind   string
	Labels []string
	Values []float64
	Unit   string
}

// Layout composes Screens from state snapshots.
type Layout struct {
	// EnergyViews is the cycle order of the energy menu.
	EnergyViews []string
	// PortalURL is encoded on the QR screen.
	PortalURL string
	// CurrentSSID marks the connected network in the saved list. May be nil.
	CurrentSSID func() string
	// Now is the clock used for data age. Defaults to time.Now.
	Now func() time.Time
}

// NewLayout returns a layout with the given energy view cycle.
func NewLayout(views []string, portalURL string) *Layout {
	if len(views) == 0 {
		views = []string{ViewText, ViewBar, ViewLine}
	}
	return &Layout{EnergyViews: views, PortalURL: portalURL, Now: time.Now}
}

// EnergyView returns the view name selected by index.
func (l *Layout) EnergyView(index int) string {
	return l.EnergyViews[state.Wrap(index, 0, len(l.EnergyViews))]
}

// Message composes a full-screen message. Newlines separate rows.
func (l *Layout) Message(theme state.Theme, text string) Screen {
	s := Screen{Theme: theme, Centered: true}
	for _, row := range strings.Split(text, "\n") {
		s.Lines = append(s.Lines, Line{Text: row})
	}
	return s
}

// Compose builds the screen for the current menu of m.
func (l *Layout) Compose(m state.Model) Screen {
	switch m.Menu {
	case state.MenuMain:
		return l.mainMenu(m)
	case state.MenuWiFi:
		switch {
		case m.InQRMode:
			return l.qr(m)
		case m.InSavedNetworks:
			return l.savedNetworks(m)
		}
		return l.wifiMenu(m)
	case state.MenuEnergy:
		return l.energy(m)
	case state.MenuDevice:
		return l.device(m)
	case state.MenuConfirmShutdown:
		return Screen{Theme: m.Theme, Title: "Shutdown?", Buttons: ShutdownButtonsY}
	case state.MenuConfirmNetwork:
		return l.confirmNetwork(m)
	}
	return l.Message(m.Theme, "Unknown menu")
}

func (l *Layout) mainMenu(m state.Model) Screen {
	s := Screen{Theme: m.Theme, Toggle: true}
	for i, item := range MainItems {
		s.Lines = append(s.Lines, selectable(item, i == m.SelectedOption))
	}
	return s
}

func (l *Layout) wifiMenu(m state.Model) Screen {
	s := Screen{Theme: m.Theme}
	for i, item := range WiFiOptions {
		s.Lines = append(s.Lines, selectable(item, i == m.WiFiSelected))
	}
	return s
}

func (l *Layout) qr(m state.Model) Screen {
	return Screen{Theme: m.Theme, Title: "Scan to set up WiFi", QR: l.PortalURL, Footer: []string{l.PortalURL}}
}

func (l *Layout) savedNetworks(m state.Model) Screen {
	list := m.SavedNetworks
	if len(list) == 0 {
		return l.Message(m.Theme, "No saved\nnetworks found")
	}

	current := ""
	if l.CurrentSSID != nil {
		current = l.CurrentSSID()
	}

	sel := state.Wrap(m.SavedNetworksSelected, 0, len(list))
	start := max(0, sel-1)
	end := min(len(list), start+savedNetworksVisible)

	s := Screen{Theme: m.Theme, Title: "Saved Networks"}
	for i := start; i < end; i++ {
		name := list[i]
		suffix := ""
		if current != "" && name == current {
			suffix = " *"
		}

		if i == sel {
			offset := 0
			if m.ScrollTarget == name {
				offset = m.ScrollOffset
			}
			text := "> " + marquee.Window(name, offset, marquee.ListWidth) + suffix
			s.Lines = append(s.Lines, Line{Text: text, Selected: true})
			continue
		}
		s.Lines = append(s.Lines, Line{Text: "  " + marquee.Truncate(name, marquee.TruncateWidth) + suffix})
	}

	if len(list) > savedNetworksVisible {
		s.Footer = append(s.Footer, "^ v")
	}
	s.Footer = append(s.Footer, "Tap=Connect")
	return s
}

func (l *Layout) confirmNetwork(m state.Model) Screen {
	name := m.NetworkToConnect
	offset := 0
	if m.ScrollTarget == name {
		offset = m.ScrollOffset
	}
	return Screen{
		Theme: m.Theme,
		Title: "Connect to:",
		Lines: []Line{
			{Text: marquee.Window(name, offset, marquee.ConfirmWidth), Selected: true},
			{Text: "?"},
		},
		Buttons: NetworkButtonsY,
	}
}

func (l *Layout) energy(m state.Model) Screen {
	switch view := l.EnergyView(m.EnergyView); view {
	case ViewBar, ViewLine:
		phases := m.Energy.Phases
		if len(phases) == 0 {
			return l.Message(m.Theme, "No phase data")
		}
		c := &Chart{Kind: view}
		for i, p := range phases {
			c.Labels = append(c.Labels, fmt.Sprintf("P%d", i+1))
			if view == ViewBar {
				c.Values = append(c.Values, p.Power)
			} else {
				c.Values = append(c.Values, p.Current)
			}
		}
		title := "Phase Power"
		c.Unit = "W"
		if view == ViewLine {
			title = "Phase Current"
			c.Unit = "A"
		}
		return Screen{Theme: m.Theme, Title: title, Chart: c}

	case View24h:
		return l.trend(m, "Last 24h", m.Trend24h)
	case View7d:
		return l.trend(m, "Last 7 days", m.Trend7d)
	}

	if len(m.EnergyMetrics) == 0 {
		return l.Message(m.Theme, "No energy metrics to display")
	}
	line := m.EnergyMetrics[state.Wrap(m.CurrentPage, 0, len(m.EnergyMetrics))]
	return Screen{Theme: m.Theme, Lines: []Line{{Text: line}}, Arrows: true}
}

func (l *Layout) trend(m state.Model, title string, st *energy.Stats) Screen {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	age := "Updated " + energy.Age(m.Energy.Received, now())

	if st == nil {
		return Screen{Theme: m.Theme, Title: title, Lines: []Line{{Text: "Collecting data..."}}, Footer: []string{age}}
	}
	return Screen{
		Theme: m.Theme,
		Title: title,
		Lines: []Line{
			{Text: fmt.Sprintf("Avg: %.1f W", st.AvgPower)},
			{Text: fmt.Sprintf("Max: %.1f W", st.MaxPower)},
			{Text: fmt.Sprintf("Min: %.1f W", st.MinPower)},
			{Text: fmt.Sprintf("Energy: %.2f kWh", st.TotalEnergy)},
			{Text: fmt.Sprintf("Samples: %d", st.Points)},
		},
		Footer: []string{age},
	}
}

func (l *Layout) device(m state.Model) Screen {
	if len(m.DevicePages) == 0 {
		return l.Message(m.Theme, "Loading device\nmetrics...")
	}
	page := m.DevicePages[state.Wrap(m.CurrentPage, 0, len(m.DevicePages))]
	return Screen{Theme: m.Theme, Lines: []Line{{Text: page}}, Arrows: true}
}

func selectable(text string, selected bool) Line {
	if selected {
		return Line{Text: "> " + text, Selected: true}
	}
	return Line{Text: "  " + text}
}
