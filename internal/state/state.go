// Package state holds the kiosk's shared application state.
//
// A single Store is created at startup and handed to every component that
// reads or writes it: the navigation loop, telemetry ingest, the metrics
// refresher and the renderers. All access goes through the Store's lock.
// Composite fields are replaced rather than mutated in place, and
// Snapshot deep-copies them, so a reader never sees a half-written list.
package state

import (
	"sync"
	"time"

	"github.com/muurk/orion-kiosk/internal/energy"
	"github.com/muurk/orion-kiosk/internal/gesture"
	"github.com/muurk/orion-kiosk/internal/marquee"
)

// Model is the full application state.
type Model struct {
	Menu Menu `json:"menu"`

	SelectedOption        int `json:"selected_option"`
	WiFiSelected          int `json:"wifi_selected"`
	SavedNetworksSelected int `json:"saved_networks_selected"`
	CurrentPage           int `json:"current_page"`

	Standby         bool         `json:"standby"`
	LastActivity    time.Time    `json:"last_activity"`
	LastGesture     gesture.Code `json:"-"`
	LastGestureTime time.Time    `json:"-"`

	InSavedNetworks  bool     `json:"in_saved_networks"`
	InQRMode         bool     `json:"in_qr_mode"`
	NetworkToConnect string   `json:"network_to_connect,omitempty"`
	SavedNetworks    []string `json:"saved_networks"`

	ScrollOffset  int       `json:"scroll_offset"`
	LastScroll    time.Time `json:"-"`
	ScrollTarget  string    `json:"-"`
	LastAnimation time.Time `json:"-"`

	EnergyMetrics []string       `json:"energy_metrics"`
	Energy        energy.Reading `json:"energy"`
	EnergyView    int            `json:"energy_view"`
	Trend24h      *energy.Stats  `json:"trend_24h,omitempty"`
	Trend7d       *energy.Stats  `json:"trend_7d,omitempty"`

	DevicePages []string `json:"device_pages"`

	Theme Theme `json:"theme"`
}

// EnterSavedNetworks switches the WiFi menu into the saved-networks list.
func (m *Model) EnterSavedNetworks(list []string) {
	m.InQRMode = false
	m.InSavedNetworks = true
	m.SavedNetworks = append([]string(nil), list...)
	m.SavedNetworksSelected = 0
	m.resetScroll()
}

// ExitSavedNetworks leaves the saved-networks list and forgets it.
func (m *Model) ExitSavedNetworks() {
	m.InSavedNetworks = false
	m.SavedNetworks = nil
	m.SavedNetworksSelected = 0
	m.resetScroll()
}

// EnterQRMode switches the WiFi menu to the portal QR screen.
func (m *Model) EnterQRMode() {
	m.ExitSavedNetworks()
	m.InQRMode = true
}

// ClearSubModes leaves every WiFi sub-mode and drops any pending connection.
func (m *Model) ClearSubModes() {
	m.ExitSavedNetworks()
	m.InQRMode = false
	m.NetworkToConnect = ""
}

// GoHome resets navigation to the main menu.
func (m *Model) GoHome(now time.Time) {
	m.Menu = MenuMain
	m.SelectedOption = 0
	m.CurrentPage = 0
	m.ClearSubModes()
	m.LastGesture = gesture.None
	m.LastGestureTime = now
	m.LastActivity = now
}

// MarqueeTarget returns the name currently eligible for scrolling and the
// width of its field. ok is false when the active view does not animate.
func (m *Model) MarqueeTarget() (text string, width int, ok bool) {
	switch {
	case m.Menu == MenuWiFi && m.InSavedNetworks && len(m.SavedNetworks) > 0:
		i := Wrap(m.SavedNetworksSelected, 0, len(m.SavedNetworks))
		return m.SavedNetworks[i], marquee.ListWidth, true
	case m.Menu == MenuConfirmNetwork && m.NetworkToConnect != "":
		return m.NetworkToConnect, marquee.ConfirmWidth, true
	}
	return "", 0, false
}

func (m *Model) resetScroll() {
	m.ScrollOffset = 0
	m.ScrollTarget = ""
}

func (m Model) clone() Model {
	m.SavedNetworks = cloneStrings(m.SavedNetworks)
	m.EnergyMetrics = cloneStrings(m.EnergyMetrics)
	m.DevicePages = cloneStrings(m.DevicePages)
	m.Energy = m.Energy.Clone()
	m.Trend24h = copyStats(m.Trend24h)
	m.Trend7d = copyStats(m.Trend7d)
	return m
}

func copyStats(s *energy.Stats) *energy.Stats {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Store guards the Model.
type Store struct {
	mu sync.RWMutex
	m  Model
}

// New creates the store with start-up defaults.
func New(now time.Time, theme Theme) *Store {
	return &Store{m: Model{
		Menu:         MenuMain,
		LastActivity: now,
		Theme:        ParseTheme(string(theme)),
	}}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.clone()
}

// Update applies fn to the state under the write lock. fn must not block.
func (s *Store) Update(fn func(m *Model)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.m)
}

// Menu returns the current menu.
func (s *Store) Menu() Menu {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Menu
}

// Standby reports whether the display is in standby.
func (s *Store) Standby() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m.Standby
}

// SetEnergy replaces the latest reading and its display lines.
func (s *Store) SetEnergy(r energy.Reading) {
	lines := r.Lines()
	r = r.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Energy = r
	s.m.EnergyMetrics = lines
}

// SetTrends replaces the rolling statistics. Nil means no data.
func (s *Store) SetTrends(day, week *energy.Stats) {
	day, week = copyStats(day), copyStats(week)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Trend24h = day
	s.m.Trend7d = week
}

// SetDevicePages replaces the device health pages.
func (s *Store) SetDevicePages(pages []string) {
	pages = cloneStrings(pages)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.DevicePages = pages
}
