package matte

import "image"

// FilterRegions returns a copy of img with every connected opaque region
// smaller than minSize pixels cleared to alpha 0. Any pixel with alpha > 0
// belongs to a region; connectivity is 4-way, so diagonal contact does not
// join regions. Only the alpha channel is written, cleared pixels keep
// their RGB.
func FilterRegions(img *image.NRGBA, minSize int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := img.Stride

	// Label connected regions, visiting each pixel once
	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}
	var regionSizes []int
	regionID := 0

	dx := [4]int{0, -1, 1, 0}
	dy := [4]int{-1, 0, 0, 1}

	queue := make([]int, 0, 1024)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if labels[idx] >= 0 || img.Pix[y*stride+x*4+3] == 0 {
				continue
			}

			// BFS from this pixel
			queue = queue[:0]
			queue = append(queue, idx)
			labels[idx] = regionID
			size := 0

			for len(queue) > 0 {
				curr := queue[0]
				queue = queue[1:]
				size++

				cy := curr / w
				cx := curr % w
				for d := 0; d < 4; d++ {
					nx := cx + dx[d]
					ny := cy + dy[d]
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					ni := ny*w + nx
					if labels[ni] < 0 && img.Pix[ny*stride+nx*4+3] > 0 {
						labels[ni] = regionID
						queue = append(queue, ni)
					}
				}
			}

			regionSizes = append(regionSizes, size)
			regionID++
		}
	}

	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)

	if regionID == 0 {
		return out
	}

	// Clear alpha across undersized regions
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if labels[idx] >= 0 && regionSizes[labels[idx]] < minSize {
				out.Pix[y*stride+x*4+3] = 0
			}
		}
	}

	return out
}
