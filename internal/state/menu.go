package state

import "fmt"

// Menu identifies the screen the navigation loop is on.
type Menu int

const (
	MenuMain Menu = iota
	MenuWiFi
	MenuEnergy
	MenuDevice
	MenuConfirmShutdown
	MenuConfirmNetwork
)

var menuNames = [...]string{
	MenuMain:            "Main",
	MenuWiFi:            "WiFi",
	MenuEnergy:          "Energy",
	MenuDevice:          "Device",
	MenuConfirmShutdown: "ConfirmShutdown",
	MenuConfirmNetwork:  "ConfirmNetwork",
}

// Valid reports whether m is one of the defined menus.
func (m Menu) Valid() bool {
	return m >= MenuMain && m <= MenuConfirmNetwork
}

func (m Menu) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Menu(%d)", int(m))
	}
	return menuNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Menu) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Theme is the colour scheme of the display.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme returns the theme named s, defaulting to dark.
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeLight {
		return ThemeLight
	}
	return ThemeDark
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Wrap moves cursor i by delta over a list of n items, wrapping at both
// ends. An empty list always yields 0.
func Wrap(i, delta, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i+delta)%n + n) % n
}
