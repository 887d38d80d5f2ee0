package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	qrcode "github.com/skip2/go-qrcode"
)

// qrSide is the largest edge the code may take on the round display.
const qrSide = 132

// qrCenterY is where the code is centred vertically, between title and footer.
const qrCenterY = 122

// QRPlacement is where a code with n modules per side lands on screen.
type QRPlacement struct {
	Origin image.Point
	Scale  int
	N      int
}

// Bounds returns the screen rectangle the code covers.
func (p QRPlacement) Bounds() image.Rectangle {
	side := p.N * p.Scale
	return image.Rect(p.Origin.X, p.Origin.Y, p.Origin.X+side, p.Origin.Y+side)
}

// Module returns the screen rectangle of module (col, row).
func (p QRPlacement) Module(col, row int) image.Rectangle {
	x := p.Origin.X + col*p.Scale
	y := p.Origin.Y + row*p.Scale
	return image.Rect(x, y, x+p.Scale, y+p.Scale)
}

// QRModules encodes content and returns its modules including the quiet
// zone. true is a dark module.
func QRModules(content string) ([][]bool, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode QR code: %w", err)
	}
	return q.Bitmap(), nil
}

// PlaceQR returns the placement of an n x n code.
func PlaceQR(n int) QRPlacement {
	scale := max(qrSide/max(n, 1), 1)
	side := n * scale
	return QRPlacement{
		Origin: image.Pt((Width-side)/2, qrCenterY-side/2),
		Scale:  scale,
		N:      n,
	}
}

// qr draws content as dark modules on white so it scans under either theme.
func (r *Rasterizer) qr(img *image.RGBA, content string, pal Palette) {
	modules, err := QRModules(content)
	if err != nil {
		r.centered(img, "QR unavailable", qrCenterY, pal.Muted)
		return
	}

	p := PlaceQR(len(modules))
	draw.Draw(img, p.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	dark := image.NewUniform(color.Black)
	for row, cols := range modules {
		for col, on := range cols {
			if on {
				draw.Draw(img, p.Module(col, row), dark, image.Point{}, draw.Src)
			}
		}
	}
}
