package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// TricolorPalette is the ink set of black/white/red e-paper signage panels.
var TricolorPalette = color.Palette{
	color.White,
	color.Black,
	color.NRGBA{R: 0xFF, A: 0xFF},
}

const (
	inkWhite uint8 = iota
	inkBlack
	inkRed
)

// Tricolor reduces a PNG screenshot to TricolorPalette. Transparent pixels
// become white.
func Tricolor(src []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("capture: decode png: %w", err)
	}

	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(b)
		draw.Draw(nrgba, b, img, b.Min, draw.Src)
	}

	out := image.NewPaletted(b, TricolorPalette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetColorIndex(x, y, classifyPixel(nrgba.NRGBAAt(x, y)))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("capture: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// classifyPixel picks the ink for one pixel: dark pixels (luma < 64) are
// black, clearly red ones (R > 128 and R exceeding max(G, B) by 32) are red,
// everything else is white.
func classifyPixel(c color.NRGBA) uint8 {
	if c.A < 128 {
		return inkWhite
	}
	r, g, b := float64(c.R), float64(c.G), float64(c.B)

	y := 0.299*r + 0.587*g + 0.114*b
	if y < 64 {
		return inkBlack
	}
	if r > 128 && r-max(g, b) > 32 {
		return inkRed
	}
	return inkWhite
}
