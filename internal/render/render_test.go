package render

import (
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/state"
)

func TestConfirmButtons(t *testing.T) {
	no, yes := ConfirmButtons(ShutdownButtonsY)

	if no != image.Rect(20, 120, 110, 170) {
		t.Errorf("no = %v", no)
	}
	if yes != image.Rect(130, 120, 220, 170) {
		t.Errorf("yes = %v", yes)
	}

	tests := []struct {
		p     image.Point
		inNo  bool
		inYes bool
	}{
		{image.Pt(20, 120), true, false},
		{image.Pt(110, 170), true, false},
		{image.Pt(120, 140), false, false},
		{image.Pt(130, 145), false, true},
		{image.Pt(220, 170), false, true},
		{image.Pt(221, 170), false, false},
	}
	for _, tt := range tests {
		if got := Hit(no, tt.p); got != tt.inNo {
			t.Errorf("Hit(no, %v) = %v", tt.p, got)
		}
		if got := Hit(yes, tt.p); got != tt.inYes {
			t.Errorf("Hit(yes, %v) = %v", tt.p, got)
		}
	}
}

func TestThemeToggle(t *testing.T) {
	r := ThemeToggle()
	if !Hit(r, image.Pt(120, 220)) {
		t.Error("centre of the toggle should hit")
	}
	if Hit(r, image.Pt(120, 200)) || Hit(r, image.Pt(20, 220)) {
		t.Error("points outside the toggle should miss")
	}
}

func TestComposeMainMenu(t *testing.T) {
	l := NewLayout(nil, "")
	s := l.Compose(state.Model{Menu: state.MenuMain, SelectedOption: 2})

	if len(s.Lines) != 4 {
		t.Fatalf("got %d lines", len(s.Lines))
	}
	if s.Lines[2].Text != "> WiFi Setup" || !s.Lines[2].Selected {
		t.Errorf("selected line = %+v", s.Lines[2])
	}
	if s.Lines[0].Text != "  Energy" {
		t.Errorf("unselected line = %+v", s.Lines[0])
	}
	if !s.Toggle {
		t.Error("main menu should show the theme toggle")
	}
}

func TestComposeSavedNetworksWindow(t *testing.T) {
	l := NewLayout(nil, "")
	l.CurrentSSID = func() string { return "Office" }

	m := state.Model{Menu: state.MenuWiFi}
	m.EnterSavedNetworks([]string{"Home", "Office", "Garage", "Cabin", "Boat", "ANetworkNameLongerThanEighteen"})
	m.SavedNetworksSelected = 2

	s := l.Compose(m)
	if s.Title != "Saved Networks" {
		t.Errorf("Title = %q", s.Title)
	}
	want := []string{"  Office *", "> Garage", "  Cabin", "  Boat"}
	if len(s.Lines) != len(want) {
		t.Fatalf("lines = %+v", s.Lines)
	}
	for i, w := range want {
		if s.Lines[i].Text != w {
			t.Errorf("line %d = %q, want %q", i, s.Lines[i].Text, w)
		}
	}
	if s.Footer[0] != "^ v" {
		t.Errorf("Footer = %q", s.Footer)
	}

	m.SavedNetworksSelected = 5
	m.ScrollTarget = "ANetworkNameLongerThanEighteen"
	m.ScrollOffset = 3
	s = l.Compose(m)
	last := s.Lines[len(s.Lines)-1]
	if last.Text != "> tworkNameLongerTha" || !last.Selected {
		t.Errorf("scrolled row = %+v", last)
	}
}

func TestComposeSavedNetworksEmpty(t *testing.T) {
	l := NewLayout(nil, "")
	m := state.Model{Menu: state.MenuWiFi, InSavedNetworks: true}

	s := l.Compose(m)
	if !s.Centered || s.Lines[0].Text != "No saved" {
		t.Errorf("Compose() = %+v", s)
	}
}

func TestComposeEnergyViews(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLayout([]string{ViewText, ViewBar, ViewLine, View24h}, "")
	l.Now = func() time.Time { return now }

	r, err := energy.Parse([]byte(`{"voltage":230,"totalPower":12,"phases":[{"power":5,"current":0.1},{"power":7,"current":0.2}]}`))
	if err != nil {
		t.Fatal(err)
	}
	r.Received = now.Add(-90 * time.Second)

	m := state.Model{Menu: state.MenuEnergy, Energy: r, EnergyMetrics: r.Lines(), CurrentPage: 1}

	s := l.Compose(m)
	if s.Lines[0].Text != "Total Power: 12.00 W" || !s.Arrows {
		t.Errorf("text view = %+v", s)
	}

	m.EnergyView = 1
	s = l.Compose(m)
	if s.Chart == nil || s.Chart.Kind != ViewBar || s.Chart.Values[1] != 7 {
		t.Errorf("bar view = %+v", s.Chart)
	}

	m.EnergyView = 2
	s = l.Compose(m)
	if s.Chart == nil || s.Chart.Kind != ViewLine || s.Chart.Values[0] != 0.1 || s.Chart.Unit != "A" {
		t.Errorf("line view = %+v", s.Chart)
	}

	m.EnergyView = 3
	s = l.Compose(m)
	if s.Lines[0].Text != "Collecting data..." || s.Footer[0] != "Updated 1min ago" {
		t.Errorf("24h view without stats = %+v", s)
	}

	m.Trend24h = &energy.Stats{AvgPower: 10, MaxPower: 20, MinPower: 5, TotalEnergy: 1.5, Points: 12}
	s = l.Compose(m)
	if s.Lines[0].Text != "Avg: 10.0 W" || s.Lines[4].Text != "Samples: 12" {
		t.Errorf("24h view = %+v", s.Lines)
	}

	m.EnergyView = 4 // wraps back to text
	if s = l.Compose(m); s.Chart != nil || !s.Arrows {
		t.Errorf("wrapped view = %+v", s)
	}
}

func TestComposeEmptyLists(t *testing.T) {
	l := NewLayout(nil, "")

	s := l.Compose(state.Model{Menu: state.MenuEnergy, CurrentPage: 3})
	if s.Lines[0].Text != "No energy metrics to display" {
		t.Errorf("energy = %+v", s.Lines)
	}

	s = l.Compose(state.Model{Menu: state.MenuDevice})
	if s.Lines[0].Text != "Loading device" {
		t.Errorf("device = %+v", s.Lines)
	}
}

func TestComposeConfirmScreens(t *testing.T) {
	l := NewLayout(nil, "")

	s := l.Compose(state.Model{Menu: state.MenuConfirmShutdown})
	if s.Buttons != ShutdownButtonsY || s.Title != "Shutdown?" {
		t.Errorf("shutdown = %+v", s)
	}

	s = l.Compose(state.Model{Menu: state.MenuConfirmNetwork, NetworkToConnect: "Home"})
	if s.Buttons != NetworkButtonsY || s.Lines[0].Text != "Home" {
		t.Errorf("network = %+v", s)
	}
}

func TestComposeQR(t *testing.T) {
	l := NewLayout(nil, "http://orion.local:3000")
	s := l.Compose(state.Model{Menu: state.MenuWiFi, InQRMode: true})
	if s.QR != "http://orion.local:3000" {
		t.Errorf("QR = %q", s.QR)
	}
}

func TestRasterizerDrawsQRCode(t *testing.T) {
	const url = "http://orion.local:3000"
	modules, err := QRModules(url)
	if err != nil {
		t.Fatalf("QRModules() error = %v", err)
	}
	p := PlaceQR(len(modules))
	if !p.Bounds().In(image.Rect(0, 0, Width, Height)) {
		t.Fatalf("QR bounds %v outside the display", p.Bounds())
	}
	if p.Scale < 2 {
		t.Errorf("Scale = %d, want at least 2 pixels per module", p.Scale)
	}

	for _, theme := range []state.Theme{state.ThemeDark, state.ThemeLight} {
		img := NewRasterizer().Draw(NewLayout(nil, url).Compose(state.Model{Menu: state.MenuWiFi, InQRMode: true, Theme: theme}))

		dark := 0
		for row, cols := range modules {
			for col, on := range cols {
				m := p.Module(col, row)
				c := img.RGBAAt(m.Min.X+p.Scale/2, m.Min.Y+p.Scale/2)
				isDark := c.R == 0 && c.G == 0 && c.B == 0
				isLight := c.R == 255 && c.G == 255 && c.B == 255
				if on && !isDark || !on && !isLight {
					t.Fatalf("%s: module (%d,%d) = %v, want dark=%t", theme, col, row, c, on)
				}
				if on {
					dark++
				}
			}
		}
		if dark == 0 {
			t.Errorf("%s: no dark modules drawn", theme)
		}
	}
}

func TestQRModulesFinderPattern(t *testing.T) {
	modules, err := QRModules("http://192.168.1.20:3000")
	if err != nil {
		t.Fatalf("QRModules() error = %v", err)
	}
	n := len(modules)
	if n < 21+8 {
		t.Fatalf("len = %d, want a version 1+ code with quiet zone", n)
	}

	// quiet zone of four modules, then the 7x7 finder in the top left corner
	const q = 4
	for i := 0; i < n; i++ {
		if modules[0][i] || modules[i][0] || modules[n-1][i] || modules[i][n-1] {
			t.Fatalf("quiet zone module lit at index %d", i)
		}
	}
	for i := 0; i < 7; i++ {
		if !modules[q][q+i] || !modules[q+6][q+i] || !modules[q+i][q] || !modules[q+i][q+6] {
			t.Fatalf("finder ring broken at %d", i)
		}
	}
	if modules[q+1][q+1] || !modules[q+3][q+3] {
		t.Error("finder centre pattern wrong")
	}
}

func TestRasterizerDrawsText(t *testing.T) {
	r := NewRasterizer()
	img := r.Draw(Screen{Theme: state.ThemeDark, Lines: []Line{{Text: "Hello"}}})

	if img.Bounds() != image.Rect(0, 0, Width, Height) {
		t.Fatalf("Bounds() = %v", img.Bounds())
	}

	lit := 0
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if c := img.RGBAAt(x, y); c.R > 0 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("no text pixels drawn")
	}
	if c := img.RGBAAt(0, 0); c.R != 0 || c.G != 0 || c.B != 0 {
		t.Errorf("dark background = %v", c)
	}

	light := r.Draw(Screen{Theme: state.ThemeLight})
	if c := light.RGBAAt(0, 0); c.R != 255 {
		t.Errorf("light background = %v", c)
	}
}

func TestRasterizerWrap(t *testing.T) {
	r := NewRasterizer()
	rows := r.wrap(strings.Repeat("word ", 20))
	if len(rows) < 2 {
		t.Errorf("wrap() = %q", rows)
	}
	for _, row := range rows {
		if len(row)*7 > wrapWidth {
			t.Errorf("row %q wider than %d px", row, wrapWidth)
		}
	}
}

type fakePanel struct {
	frames int
	asleep bool
	err    error
}

func (p *fakePanel) Show(image.Image) error { p.frames++; return p.err }
func (p *fakePanel) Sleep() error           { p.asleep = true; return nil }
func (p *fakePanel) Wake() error            { p.asleep = false; return nil }

func TestFrameRenderer(t *testing.T) {
	panel := &fakePanel{}
	fr := NewFrameRenderer(NewLayout(nil, ""), panel)

	if err := fr.Render(state.Model{Menu: state.MenuMain}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := fr.Message(state.ThemeLight, "Pairing..."); err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	if panel.frames != 2 || fr.LastFrame() == nil {
		t.Errorf("frames = %d", panel.frames)
	}

	_ = fr.Sleep()
	if !panel.asleep {
		t.Error("Sleep() should reach the panel")
	}
	_ = fr.Wake()
	if panel.asleep {
		t.Error("Wake() should reach the panel")
	}

	panel.err = errors.New("spi timeout")
	if err := fr.Render(state.Model{}); err == nil {
		t.Error("Render() should surface panel errors")
	}
}
