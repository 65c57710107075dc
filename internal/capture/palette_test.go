package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestClassifyPixel(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
		want uint8
	}{
		{"black", color.NRGBA{A: 255}, inkBlack},
		{"dark grey", color.NRGBA{R: 50, G: 50, B: 50, A: 255}, inkBlack},
		{"red", color.NRGBA{R: 255, A: 255}, inkRed},
		{"orange is not red enough", color.NRGBA{R: 255, G: 230, A: 255}, inkWhite},
		{"white", color.NRGBA{R: 255, G: 255, B: 255, A: 255}, inkWhite},
		{"light grey", color.NRGBA{R: 200, G: 200, B: 200, A: 255}, inkWhite},
		{"transparent black", color.NRGBA{}, inkWhite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyPixel(tt.c); got != tt.want {
				t.Errorf("classifyPixel(%v) = %d, want %d", tt.c, got, tt.want)
			}
		})
	}
}

func TestTricolor(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 1))
	src.Set(0, 0, color.Black)
	src.Set(1, 0, color.RGBA{R: 240, G: 10, B: 10, A: 255})
	src.Set(2, 0, color.RGBA{R: 250, G: 250, B: 250, A: 255})

	var in bytes.Buffer
	if err := png.Encode(&in, src); err != nil {
		t.Fatal(err)
	}

	out, err := Tricolor(in.Bytes())
	if err != nil {
		t.Fatalf("Tricolor: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p, ok := img.(*image.Paletted)
	if !ok {
		t.Fatalf("output is %T, want *image.Paletted", img)
	}
	for x, want := range []uint8{inkBlack, inkRed, inkWhite} {
		if got := p.ColorIndexAt(x, 0); got != want {
			t.Errorf("pixel %d = %d, want %d", x, got, want)
		}
	}
}

func TestTricolorRejectsGarbage(t *testing.T) {
	if _, err := Tricolor([]byte("not a png")); err == nil {
		t.Fatal("expected decode error")
	}
}
