package render

import "image"

// Display dimensions in pixels.
const (
	Width  = 240
	Height = 240
)

// Touch targets shared by the layouts and the menu handlers.
const (
	toggleGlyphWidth = 24
	toggleTop        = 205
	toggleBottom     = 235

	buttonWidth   = 90
	buttonHeight  = 50
	buttonSpacing = 20

	// ShutdownButtonsY is the top edge of the shutdown confirmation boxes.
	ShutdownButtonsY = 120
	// NetworkButtonsY is the top edge of the network confirmation boxes.
	NetworkButtonsY = 130
)

// ThemeToggle returns the hit-box of the theme toggle on the main menu.
func ThemeToggle() image.Rectangle {
	x0 := (Width-toggleGlyphWidth)/2 - 10
	x1 := (Width+toggleGlyphWidth)/2 + 10
	return image.Rect(x0, toggleTop, x1, toggleBottom)
}

// ConfirmButtons returns the NO and YES boxes of a confirmation dialog
// whose boxes start at top.
func ConfirmButtons(top int) (no, yes image.Rectangle) {
	startX := (Width - (2*buttonWidth + buttonSpacing)) / 2
	no = image.Rect(startX, top, startX+buttonWidth, top+buttonHeight)
	yes = image.Rect(startX+buttonWidth+buttonSpacing, top, startX+2*buttonWidth+buttonSpacing, top+buttonHeight)
	return no, yes
}

// Hit reports whether p lies within r, edges included.
func Hit(r image.Rectangle, p image.Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}
