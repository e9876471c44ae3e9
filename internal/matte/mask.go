package matte

import "image"

// AlphaPlane copies the alpha channel of img into a grayscale image, white
// where opaque. The cut silhouette lives entirely in this plane; RGB never
// participates.
func AlphaPlane(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := img.Stride

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = img.Pix[y*stride+x*4+3]
		}
	}
	return out
}
