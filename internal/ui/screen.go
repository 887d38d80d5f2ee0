package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/orion-kiosk/internal/render"
)

// ScreenWidth is the inner width of the terminal display, in cells.
const ScreenWidth = 30

const barCells = 16

// RenderScreen draws s as the terminal stand-in for the LCD. A display in
// standby is drawn blank.
func RenderScreen(s render.Screen, standby bool) string {
	st := styleFor(s.Theme)
	line := func(style lipgloss.Style, text string) string {
		return style.Width(ScreenWidth).Align(lipgloss.Center).Render(text)
	}

	if standby {
		blank := make([]string, 12)
		for i := range blank {
			blank[i] = line(st.Muted, "")
		}
		blank[5] = line(st.Muted, "(standby)")
		return st.Frame.Render(strings.Join(blank, "\n"))
	}

	var rows []string
	if s.Arrows {
		rows = append(rows, line(st.Muted, "▲"))
	}
	if s.Title != "" {
		rows = append(rows, line(st.Title, s.Title), line(st.Text, ""))
	}
	for _, l := range s.Lines {
		style := st.Text
		if l.Selected {
			style = st.Selected
		}
		rows = append(rows, line(style, l.Text))
	}
	if s.Chart != nil {
		rows = append(rows, chartRows(s.Chart, st)...)
	}
	if s.QR != "" {
		rows = append(rows, line(st.Muted, "[QR]"), line(st.Text, s.QR))
	}
	if s.Buttons > 0 {
		no := st.Button.Render("NO")
		yes := st.Button.Render("YES")
		buttons := lipgloss.JoinHorizontal(lipgloss.Center, no, "  ", yes)
		rows = append(rows, line(st.Text, ""), lipgloss.PlaceHorizontal(ScreenWidth, lipgloss.Center, buttons))
	}
	for _, f := range s.Footer {
		rows = append(rows, line(st.Muted, f))
	}
	if s.Toggle {
		rows = append(rows, line(st.Muted, "◐"))
	}
	if s.Arrows {
		rows = append(rows, line(st.Muted, "▼"))
	}
	return st.Frame.Render(strings.Join(rows, "\n"))
}

func chartRows(c *render.Chart, st DisplayStyle) []string {
	peak := 0.0
	for _, v := range c.Values {
		peak = max(peak, v)
	}

	rows := make([]string, 0, len(c.Values))
	for i, v := range c.Values {
		n := 0
		if peak > 0 && v > 0 {
			n = max(int(v/peak*barCells+0.5), 1)
		}
		label := ""
		if i < len(c.Labels) {
			label = c.Labels[i]
		}
		bar := strings.Repeat("█", n) + strings.Repeat("·", barCells-n)
		rows = append(rows, st.Text.Width(ScreenWidth).Render(fmt.Sprintf("%-3s %s %.0f%s", label, bar, v, c.Unit)))
	}
	return rows
}
