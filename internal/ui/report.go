package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one key/value row of a report. Reports keep the order in
// which details are given.
type Detail struct {
	Key   string
	Value string
}

// Printer writes report components to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a report header box
func (p *Printer) PrintHeader(title, command string, params ...Detail) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Detail) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting hints
func (p *Printer) PrintError(title string, err error, hints ...string) {
	p.Println(RenderErrorBox(title, err, hints, p.width))
}

// PrintList prints items one per line, marking the one equal to current.
func (p *Printer) PrintList(items []string, current string) {
	for _, item := range items {
		marker := " "
		style := ResultValueStyle
		if item == current {
			marker = CurrentMarker
			style = SuccessTitleStyle
		}
		p.Println("  " + style.Render(marker+" "+item))
	}
}

// RenderHeader renders a report header box
func RenderHeader(title, command string, params []Detail, width int) string {
	width = max(width, MinTerminalWidth)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	)
	if len(params) == 0 {
		return HeaderBorderStyle(width).Render(top)
	}

	lines := make([]string, 0, len(params))
	for _, d := range params {
		lines = append(lines, HeaderParamKeyStyle.Render(d.Key+":")+" "+HeaderParamValueStyle.Render(d.Value))
	}
	divider := RenderHorizontalDivider(max(width-6, 10), "─")

	content := lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	return HeaderBorderStyle(width).Render(content)
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, details []Detail, width int) string {
	width = max(width, MinTerminalWidth)

	lines := []string{"", SuccessTitleStyle.Render(fmt.Sprintf("   %s  %s", SuccessMarker, title)), ""}
	for _, d := range details {
		lines = append(lines, ResultKeyStyle.Render("   "+d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	if len(details) > 0 {
		lines = append(lines, "")
	}
	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with hints
func RenderErrorBox(title string, err error, hints []string, width int) string {
	width = max(width, MinTerminalWidth)

	lines := []string{"", ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, title)), ""}
	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+err.Error()), "")
	}
	if len(hints) > 0 {
		lines = append(lines, HintTitleStyle.Render("   Troubleshooting:"))
		for _, h := range hints {
			lines = append(lines, HintItemStyle.Render("     • "+h))
		}
		lines = append(lines, "")
	}
	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}
