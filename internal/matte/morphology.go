package matte

import "image"

// Dilate returns a copy of img with each alpha raised to the maximum over
// its 3x3 neighborhood. Opaque regions grow by one pixel; RGB is copied
// through unchanged.
func Dilate(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := img.Stride

	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}

	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := img.Pix[y*stride+x*4+3]
			for d := 0; d < 8; d++ {
				nx := x + dx[d]
				ny := y + dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if a := img.Pix[ny*stride+nx*4+3]; a > m {
					m = a
				}
			}
			out.Pix[y*stride+x*4+3] = m
		}
	}

	return out
}

// Erode returns a copy of img with any pixel that touches a fully
// transparent 3x3 neighbor made fully transparent itself. Neighbors outside
// the image do not exist for this test, so a region flush against the image
// edge keeps its edge row.
func Erode(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := img.Stride

	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}

	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[y*stride+x*4+3] == 0 {
				continue
			}
			for d := 0; d < 8; d++ {
				nx := x + dx[d]
				ny := y + dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				if img.Pix[ny*stride+nx*4+3] == 0 {
					out.Pix[y*stride+x*4+3] = 0
					break
				}
			}
		}
	}

	return out
}

// CloseMask runs the fixed cleanup sequence over the alpha channel: two
// dilation passes to seal pinholes and reconnect broken edges, then two
// erosion passes to bring the silhouette back to its original extent. Each
// pass reads the fully materialized result of the previous one.
func CloseMask(img *image.NRGBA) *image.NRGBA {
	out := Dilate(img)
	out = Dilate(out)
	out = Erode(out)
	out = Erode(out)
	return out
}
