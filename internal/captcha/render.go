package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Image dimensions in pixels.
const (
	Width  = 200
	Height = 70
)

// glyphScale is how much each 7x13 bitmap glyph is enlarged.
const glyphScale = 3

// Render draws text as a noisy PNG.
func Render(text string) ([]byte, error) {
	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	bg := color.RGBA{R: 0xf2, G: 0xef, B: 0xe6, A: 0xff}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	speckle(canvas, Width*Height/10)

	face := basicfont.Face7x13
	glyphW := face.Advance * glyphScale
	glyphH := face.Height * glyphScale
	cell := Width / (len(text) + 1)

	for i, ch := range text {
		glyph := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))
		d := &font.Drawer{
			Dst:  glyph,
			Src:  image.NewUniform(randomColor(40, 130)),
			Face: face,
			Dot:  fixed.P(0, face.Ascent),
		}
		d.DrawString(string(ch))

		x := cell/2 + i*cell + rand.IntN(7) - 3
		y := (Height-glyphH)/2 + rand.IntN(11) - 5
		// Vary width and height a little so glyphs are not uniform.
		dst := image.Rect(x, y, x+glyphW+rand.IntN(6)-2, y+glyphH+rand.IntN(6)-2)
		draw.ApproxBiLinear.Scale(canvas, dst, glyph, glyph.Bounds(), draw.Over, nil)
	}

	for range 5 {
		line(canvas,
			rand.IntN(Width/4), rand.IntN(Height),
			Width-1-rand.IntN(Width/4), rand.IntN(Height),
			randomColor(60, 170))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func speckle(img *image.RGBA, n int) {
	b := img.Bounds()
	for range n {
		img.Set(b.Min.X+rand.IntN(b.Dx()), b.Min.Y+rand.IntN(b.Dy()), randomColor(90, 220))
	}
}

// line draws a two-pixel-thick straight line.
func line(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		img.Set(x0, y0, c)
		return
	}
	for s := 0; s <= steps; s++ {
		x := x0 + dx*s/steps
		y := y0 + dy*s/steps
		img.Set(x, y, c)
		img.Set(x, y+1, c)
	}
}

func randomColor(lo, hi int) color.RGBA {
	ch := func() uint8 { return uint8(lo + rand.IntN(hi-lo)) }
	return color.RGBA{R: ch(), G: ch(), B: ch(), A: 0xff}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
