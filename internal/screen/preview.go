// File: internal/screen/preview.go
package screen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var markerColor = color.RGBA{R: 0xE0, G: 0x20, B: 0x20, A: 0xFF}

// RenderPreview copies the screenshot and draws a crosshair, a circle, and a
// coordinate label at the resolved target so a human can judge the detection
// before anything is clicked.
func RenderPreview(screenshot image.Image, x, y int, label string) *image.RGBA {
	b := screenshot.Bounds()
	preview := image.NewRGBA(b)
	draw.Draw(preview, b, screenshot, b.Min, draw.Src)

	const arm = 20
	drawHLine(preview, x-arm, x+arm, y)
	drawVLine(preview, x, y-arm, y+arm)
	drawCircle(preview, x, y, 10)

	text := fmt.Sprintf("%s: (%d, %d)", label, x, y)
	d := font.Drawer{
		Dst:  preview,
		Src:  image.NewUniform(markerColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x+15, y-15),
	}
	d.DrawString(text)

	return preview
}

// WritePreview saves the annotated screenshot into dir, creating it if
// needed, and returns the full path. The file is written once per session.
func WritePreview(dir, name string, preview image.Image) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create preview file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, preview); err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return path, nil
}

// drawHLine paints a 3px thick horizontal segment, clipped to the image.
func drawHLine(img *image.RGBA, x0, x1, y int) {
	for x := x0; x <= x1; x++ {
		for dy := -1; dy <= 1; dy++ {
			setClipped(img, x, y+dy)
		}
	}
}

// drawVLine paints a 3px thick vertical segment, clipped to the image.
func drawVLine(img *image.RGBA, x, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		for dx := -1; dx <= 1; dx++ {
			setClipped(img, x+dx, y)
		}
	}
}

// drawCircle paints a circle outline using the midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, r int) {
	x, y, err := r, 0, 0
	for x >= y {
		for _, p := range [][2]int{
			{cx + x, cy + y}, {cx + y, cy + x},
			{cx - y, cy + x}, {cx - x, cy + y},
			{cx - x, cy - y}, {cx - y, cy - x},
			{cx + y, cy - x}, {cx + x, cy - y},
		} {
			setClipped(img, p[0], p[1])
		}
		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}

func setClipped(img *image.RGBA, x, y int) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, markerColor)
	}
}
