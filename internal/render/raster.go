package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/muurk/orion-kiosk/internal/state"
)

// Palette is the colour set of a theme.
type Palette struct {
	Background color.RGBA
	Text       color.RGBA
	Selected   color.RGBA
	Muted      color.RGBA
}

// Palettes maps every theme to its colours.
var Palettes = map[state.Theme]Palette{
	state.ThemeDark: {
		Background: color.RGBA{0, 0, 0, 255},
		Text:       color.RGBA{255, 255, 255, 255},
		Selected:   color.RGBA{0, 255, 255, 255},
		Muted:      color.RGBA{128, 128, 128, 255},
	},
	state.ThemeLight: {
		Background: color.RGBA{255, 255, 255, 255},
		Text:       color.RGBA{0, 0, 0, 255},
		Selected:   color.RGBA{0, 0, 255, 255},
		Muted:      color.RGBA{128, 128, 128, 255},
	},
}

const (
	lineHeight = 26
	wrapWidth  = 200
	titleY     = 40
)

// Rasterizer draws Screens with a fixed bitmap face.
type Rasterizer struct {
	face font.Face
}

// NewRasterizer returns a rasterizer using the 7x13 basic face.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{face: basicfont.Face7x13}
}

// Draw renders s into a new Width x Height image.
func (r *Rasterizer) Draw(s Screen) *image.RGBA {
	pal, ok := Palettes[s.Theme]
	if !ok {
		pal = Palettes[state.ThemeDark]
	}

	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(pal.Background), image.Point{}, draw.Src)

	if s.Title != "" {
		r.centered(img, s.Title, titleY, pal.Selected)
	}

	rows := r.rows(s.Lines)
	top := (Height - len(rows)*lineHeight) / 2
	if s.Buttons != 0 || s.Chart != nil || s.QR != "" {
		top = titleY + lineHeight
	}
	for i, row := range rows {
		col := pal.Text
		if row.Selected {
			col = pal.Selected
		}
		r.centered(img, row.Text, top+i*lineHeight, col)
	}

	if s.Arrows {
		r.centered(img, "^", 20, pal.Selected)
		r.centered(img, "v", Height-12, pal.Selected)
	}
	if s.Toggle {
		rect := ThemeToggle()
		r.centered(img, "(*)", rect.Min.Y+18, pal.Selected)
	}
	if s.Buttons != 0 {
		r.buttons(img, s.Buttons, pal)
	}
	if s.Chart != nil {
		r.chart(img, s.Chart, pal)
	}
	if s.QR != "" {
		r.qr(img, s.QR, pal)
	}
	for i, f := range s.Footer {
		r.centered(img, f, 200+i*16, pal.Muted)
	}

	return img
}

// rows wraps long lines to the usable width of the round display.
func (r *Rasterizer) rows(lines []Line) []Line {
	var out []Line
	for _, l := range lines {
		for _, text := range r.wrap(l.Text) {
			out = append(out, Line{Text: text, Selected: l.Selected})
		}
	}
	return out
}

func (r *Rasterizer) wrap(text string) []string {
	if font.MeasureString(r.face, text).Ceil() <= wrapWidth {
		return []string{text}
	}

	var out []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if font.MeasureString(r.face, candidate).Ceil() <= wrapWidth || current == "" {
			current = candidate
			continue
		}
		out = append(out, current)
		current = word
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}

func (r *Rasterizer) centered(img *image.RGBA, text string, baseline int, col color.Color) {
	w := font.MeasureString(r.face, text).Ceil()
	r.text(img, text, (Width-w)/2, baseline, col)
}

func (r *Rasterizer) text(img *image.RGBA, text string, x, baseline int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: r.face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

func (r *Rasterizer) buttons(img *image.RGBA, top int, pal Palette) {
	no, yes := ConfirmButtons(top)
	r.frame(img, no, pal.Text)
	r.frame(img, yes, pal.Selected)

	mid := top + buttonHeight/2 + 5
	r.text(img, "No", no.Min.X+(no.Dx()-font.MeasureString(r.face, "No").Ceil())/2, mid, pal.Text)
	r.text(img, "Yes", yes.Min.X+(yes.Dx()-font.MeasureString(r.face, "Yes").Ceil())/2, mid, pal.Selected)
}

// frame draws a two pixel outline.
func (r *Rasterizer) frame(img *image.RGBA, rect image.Rectangle, col color.Color) {
	src := image.NewUniform(col)
	const t = 2
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t),
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y),
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}

func (r *Rasterizer) chart(img *image.RGBA, c *Chart, pal Palette) {
	area := image.Rect(40, 70, 200, 180)
	n := len(c.Values)
	if n == 0 {
		return
	}

	peak := 0.0
	for _, v := range c.Values {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	slot := area.Dx() / n
	points := make([]image.Point, n)
	for i, v := range c.Values {
		h := int(float64(area.Dy()) * max(v, 0) / peak)
		x0 := area.Min.X + i*slot
		points[i] = image.Pt(x0+slot/2, area.Max.Y-h)

		if c.Kind == ViewBar {
			bar := image.Rect(x0+slot/4, area.Max.Y-h, x0+slot-slot/4, area.Max.Y)
			draw.Draw(img, bar, image.NewUniform(pal.Selected), image.Point{}, draw.Src)
		}
		label := c.Labels[i]
		r.text(img, label, x0+(slot-font.MeasureString(r.face, label).Ceil())/2, area.Max.Y+16, pal.Text)
	}

	if c.Kind == ViewLine {
		for i := 1; i < n; i++ {
			r.segment(img, points[i-1], points[i], pal.Selected)
		}
		for _, p := range points {
			draw.Draw(img, image.Rect(p.X-2, p.Y-2, p.X+3, p.Y+3), image.NewUniform(pal.Selected), image.Point{}, draw.Src)
		}
	}

	r.text(img, c.Unit, area.Min.X-24, area.Min.Y+8, pal.Muted)
}

// segment draws a one pixel line between a and b.
func (r *Rasterizer) segment(img *image.RGBA, a, b image.Point, col color.Color) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		img.Set(a.X, a.Y, col)
		return
	}
	for i := 0; i <= steps; i++ {
		img.Set(a.X+dx*i/steps, a.Y+dy*i/steps, col)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
