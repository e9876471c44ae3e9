package matte

import (
	"image"
	"math"
)

// ApplyKey tags every pixel of img with transparency measured against key.
// Pixels within tolerance of the key go fully transparent; pixels in the
// feather band just outside it get a proportional alpha, clamped so an
// already more transparent pixel is never made more opaque. RGB channels
// pass through untouched. img itself is not modified.
func ApplyKey(img *image.NRGBA, key KeyColor, tolerance float64) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := img.Stride

	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*4
			dr := float64(img.Pix[i]) - float64(key.R)
			dg := float64(img.Pix[i+1]) - float64(key.G)
			db := float64(img.Pix[i+2]) - float64(key.B)
			d := math.Sqrt(dr*dr + dg*dg + db*db)

			switch {
			case d < tolerance:
				out.Pix[i+3] = 0
			case d < tolerance*1.3:
				if a := featherAlpha(d, tolerance); a < out.Pix[i+3] {
					out.Pix[i+3] = a
				}
			}
		}
	}

	return out
}

// featherAlpha maps a color distance inside the feather band to an alpha,
// 0 at the tolerance edge rising to 255 at the outer edge of the band.
func featherAlpha(d, tolerance float64) uint8 {
	a := (d - tolerance) / (tolerance * 0.3) * 255
	if a < 0 {
		a = 0
	}
	if a > 255 {
		a = 255
	}
	return uint8(a)
}
