package matte

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transparent(w, h int) *image.NRGBA {
	return filled(w, h, color.NRGBA{R: 0, G: 255, B: 0, A: 0})
}

func setAlpha(img *image.NRGBA, x, y int, a uint8) {
	img.Pix[img.PixOffset(x, y)+3] = a
}

func opaqueRect(img *image.NRGBA, x0, y0, x1, y1 int) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			setAlpha(img, x, y, 255)
		}
	}
}

// assertAlphaRect checks that alpha is 255 exactly inside the given rect and
// 0 everywhere else.
func assertAlphaRect(t *testing.T, img *image.NRGBA, x0, y0, x1, y1 int) {
	t.Helper()
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			want := uint8(0)
			if x >= x0 && x <= x1 && y >= y0 && y <= y1 {
				want = 255
			}
			require.Equalf(t, want, img.Pix[img.PixOffset(x, y)+3], "pixel (%d,%d)", x, y)
		}
	}
}

func TestDilateGrowsByOnePixel(t *testing.T) {
	img := transparent(10, 10)
	opaqueRect(img, 4, 4, 5, 5)

	out := Dilate(img)
	assertAlphaRect(t, out, 3, 3, 6, 6)
}

func TestErodeShrinksByOnePixel(t *testing.T) {
	img := transparent(10, 10)
	opaqueRect(img, 3, 3, 6, 6)

	out := Erode(img)
	assertAlphaRect(t, out, 4, 4, 5, 5)
}

func TestErodeKeepsImageEdge(t *testing.T) {
	// A fully opaque raster has no transparent neighbors anywhere, and the
	// missing neighbors outside the image never count as transparent.
	img := filled(6, 6, color.NRGBA{R: 9, G: 9, B: 9, A: 255})
	out := Erode(img)
	for i := 3; i < len(out.Pix); i += 4 {
		require.Equal(t, uint8(255), out.Pix[i])
	}

	// A column flush against the left edge keeps its edge pixels.
	img = transparent(6, 6)
	opaqueRect(img, 0, 0, 1, 5)
	out = Erode(img)
	assertAlphaRect(t, out, 0, 0, 0, 5)
}

func TestDilateNeverLowersErodeNeverRaises(t *testing.T) {
	img := transparent(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			setAlpha(img, x, y, uint8((x*31+y*17)%256))
		}
	}

	dilated := Dilate(img)
	eroded := Erode(img)
	for i := 3; i < len(img.Pix); i += 4 {
		assert.GreaterOrEqual(t, dilated.Pix[i], img.Pix[i])
		assert.LessOrEqual(t, eroded.Pix[i], img.Pix[i])
	}
}

func TestCloseMaskFillsPinhole(t *testing.T) {
	img := transparent(11, 11)
	opaqueRect(img, 3, 3, 7, 7)
	setAlpha(img, 5, 5, 0)

	out := CloseMask(img)
	assertAlphaRect(t, out, 3, 3, 7, 7)
}

func TestCloseMaskRestoresIsolatedPixel(t *testing.T) {
	img := transparent(11, 11)
	setAlpha(img, 5, 5, 255)

	out := CloseMask(img)
	assertAlphaRect(t, out, 5, 5, 5, 5)
}

func TestMorphologyLeavesRGBAndInputAlone(t *testing.T) {
	img := transparent(8, 8)
	opaqueRect(img, 2, 2, 5, 5)
	img.SetNRGBA(3, 3, color.NRGBA{R: 201, G: 77, B: 12, A: 255})
	before := make([]uint8, len(img.Pix))
	copy(before, img.Pix)

	for _, out := range []*image.NRGBA{Dilate(img), Erode(img), CloseMask(img)} {
		require.Equal(t, before, img.Pix)
		for i := 0; i < len(out.Pix); i += 4 {
			require.Equal(t, img.Pix[i:i+3], out.Pix[i:i+3])
		}
	}
}
