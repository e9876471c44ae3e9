package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// FitWithin downscales img so its longest edge does not exceed maxEdge,
// filtering in premultiplied alpha so feathered edges do not pick up dark
// halos. Aspect ratio is preserved. Images already within the bound, and
// any maxEdge <= 0, pass through unchanged.
func FitWithin(img *image.NRGBA, maxEdge int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return img
	}

	newW, newH := maxEdge, maxEdge
	if w >= h {
		newH = h * maxEdge / w
		if newH < 1 {
			newH = 1
		}
	} else {
		newW = w * maxEdge / h
		if newW < 1 {
			newW = 1
		}
	}

	// Premultiply alpha
	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	// Unpremultiply alpha
	result := image.NewNRGBA(dst.Bounds())
	for y := 0; y < newH; y++ {
		for x := 0; x < newW; x++ {
			si := dst.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				result.Pix[di] = clampByte(float64(dst.Pix[si]) * inv)
				result.Pix[di+1] = clampByte(float64(dst.Pix[si+1]) * inv)
				result.Pix[di+2] = clampByte(float64(dst.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = dst.Pix[si+3]
		}
	}

	return result
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
