package matte

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

// KeyColor is the solid backdrop color a scene is keyed against.
type KeyColor struct {
	R, G, B uint8
}

var (
	KeyGreen   = KeyColor{R: 0, G: 255, B: 0}
	KeyMagenta = KeyColor{R: 255, G: 0, B: 255}
)

// Hex returns the color in "#rrggbb" form.
func (k KeyColor) Hex() string {
	c := colorful.Color{R: float64(k.R) / 255, G: float64(k.G) / 255, B: float64(k.B) / 255}
	return c.Hex()
}

const sampleGrid = 100

// SampleKey chooses the key color a scene should be shot against. Bright
// scenes get magenta so the backdrop stays distinguishable, dark scenes get
// green. Input that cannot be sampled falls back to green rather than
// failing; a slightly worse key still cuts.
func SampleKey(img *image.NRGBA) KeyColor {
	if img == nil {
		return KeyGreen
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return KeyGreen
	}

	// Luminance statistics run on a reduced grid, never the full raster
	src := img
	if w > sampleGrid || h > sampleGrid {
		src = image.NewNRGBA(image.Rect(0, 0, sampleGrid, sampleGrid))
		draw.ApproxBiLinear.Scale(src, src.Bounds(), img, b, draw.Src, nil)
		w, h = sampleGrid, sampleGrid
	}

	stride := src.Stride
	var sum uint64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*4
			sum += uint64(src.Pix[i]) + uint64(src.Pix[i+1]) + uint64(src.Pix[i+2])
		}
	}

	mean := float64(sum) / float64(3*w*h)
	if mean > 128 {
		return KeyMagenta
	}
	return KeyGreen
}
