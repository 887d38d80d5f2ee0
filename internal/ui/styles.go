package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/muurk/orion-kiosk/internal/state"
)

// Terminal palette. AccentColor matches the selection colour of the dark
// LCD theme so reports and the simulator read as the same product.
var (
	AccentColor  = lipgloss.Color("#00B7C3")
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#E5484D")
	MutedColor   = lipgloss.Color("#6E6E6E")
	TextColor    = lipgloss.Color("#F2F2F2")
)

// Report widths are clamped to this range.
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// Report styles
var (
	// HeaderTitleStyle is for the report title (e.g., "Saved Networks")
	HeaderTitleStyle = fg(TextColor).Bold(true).PaddingLeft(2)

	// HeaderCommandStyle is for the command path (e.g., "orion-kiosk networks")
	HeaderCommandStyle    = fg(MutedColor).PaddingLeft(2)
	HeaderParamKeyStyle   = fg(MutedColor).PaddingLeft(2)
	HeaderParamValueStyle = fg(AccentColor)

	SuccessTitleStyle = fg(SuccessColor).Bold(true)
	ErrorTitleStyle   = fg(ErrorColor).Bold(true)
	ErrorMessageStyle = fg(ErrorColor)

	// ResultKeyStyle pads keys so values line up ("System load", "Uptime", ...)
	ResultKeyStyle   = fg(MutedColor).Width(18)
	ResultValueStyle = fg(TextColor)

	HintTitleStyle = fg(MutedColor).Bold(true)
	HintItemStyle  = fg(MutedColor)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	CurrentMarker = "●"
)

// DisplayStyle holds the styles of one kiosk theme in the terminal.
type DisplayStyle struct {
	Frame    lipgloss.Style
	Title    lipgloss.Style
	Text     lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	Button   lipgloss.Style
}

// DisplayStyles maps every kiosk theme to its terminal rendition.
var DisplayStyles = map[state.Theme]DisplayStyle{
	state.ThemeDark: {
		Frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(AccentColor).Background(lipgloss.Color("#000000")),
		Title:    lipgloss.NewStyle().Foreground(TextColor).Background(lipgloss.Color("#000000")).Bold(true),
		Text:     lipgloss.NewStyle().Foreground(TextColor).Background(lipgloss.Color("#000000")),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")).Background(lipgloss.Color("#000000")).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).Background(lipgloss.Color("#000000")),
		Button:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(TextColor).Foreground(TextColor).Padding(0, 2),
	},
	state.ThemeLight: {
		Frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(MutedColor).Background(lipgloss.Color("#FFFFFF")),
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FFFFFF")).Bold(true),
		Text:     lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FFFFFF")),
		Selected: lipgloss.NewStyle().Foreground(lipgloss.Color("#0000FF")).Background(lipgloss.Color("#FFFFFF")).Bold(true),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).Background(lipgloss.Color("#FFFFFF")),
		Button:   lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#000000")).Foreground(lipgloss.Color("#000000")).Padding(0, 2),
	},
}

// styleFor returns the styles of theme, falling back to dark.
func styleFor(theme state.Theme) DisplayStyle {
	if s, ok := DisplayStyles[theme]; ok {
		return s
	}
	return DisplayStyles[state.ThemeDark]
}

// GetTerminalWidth returns the width of stdout clamped to the report range.
// Non-terminals get MinTerminalWidth.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// HeaderBorderStyle frames a report header. width includes the border.
func HeaderBorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Width(width - 2)
}

func resultBox(c lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(c).
		Width(width-2).
		Padding(0, 2)
}

// SuccessBoxStyle frames a successful result.
func SuccessBoxStyle(width int) lipgloss.Style { return resultBox(SuccessColor, width) }

// ErrorBoxStyle frames a failed result.
func ErrorBoxStyle(width int) lipgloss.Style { return resultBox(ErrorColor, width) }

// RenderHorizontalDivider repeats char across width cells.
func RenderHorizontalDivider(width int, char string) string {
	return fg(AccentColor).Render(strings.Repeat(char, width))
}
