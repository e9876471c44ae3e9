package matte

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mirrorH(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(b)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := img.PixOffset(x, y)
			di := out.PixOffset(w-1-x, y)
			copy(out.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return out
}

func opaqueCount(img *image.NRGBA) int {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 {
			n++
		}
	}
	return n
}

func TestFilterRegionsSizeThreshold(t *testing.T) {
	tests := []struct {
		name    string
		run     int
		minSize int
		keep    bool
	}{
		{"exactly the minimum survives", 5, 5, true},
		{"one below the minimum is cleared", 4, 5, false},
		{"single pixel cleared at minimum two", 1, 2, false},
		{"minimum one keeps everything", 1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := transparent(10, 10)
			for x := 0; x < tt.run; x++ {
				setAlpha(img, 2+x, 4, 255)
			}

			out := FilterRegions(img, tt.minSize)
			if tt.keep {
				assert.Equal(t, tt.run, opaqueCount(out))
			} else {
				assert.Equal(t, 0, opaqueCount(out))
			}
		})
	}
}

func TestFilterRegionsDiagonalPixelsAreSeparate(t *testing.T) {
	// 4-way connectivity: diagonal contact does not join regions, so each
	// pixel is its own size-1 region.
	img := transparent(6, 6)
	setAlpha(img, 2, 2, 255)
	setAlpha(img, 3, 3, 255)

	out := FilterRegions(img, 2)
	assert.Equal(t, 0, opaqueCount(out))
}

func TestFilterRegionsCountsFeatheredPixels(t *testing.T) {
	// Any alpha above zero makes a pixel part of a region, and surviving
	// regions keep their feathered values.
	img := transparent(10, 10)
	alphas := []uint8{255, 1, 255, 1, 255}
	for x, a := range alphas {
		setAlpha(img, 2+x, 4, a)
	}

	out := FilterRegions(img, 5)
	for x, a := range alphas {
		require.Equal(t, a, out.Pix[out.PixOffset(2+x, 4)+3])
	}

	out = FilterRegions(img, 6)
	assert.Equal(t, 0, opaqueCount(out))
}

func TestFilterRegionsScanOrderIndependent(t *testing.T) {
	img := transparent(12, 9)
	// Regions of size 3, 6, 1 and 5, deliberately asymmetric.
	for _, p := range [][2]int{
		{1, 1}, {1, 2}, {2, 1},
		{8, 2}, {9, 2}, {8, 3}, {9, 3}, {8, 4}, {9, 4},
		{5, 7},
		{2, 6}, {3, 6}, {4, 6}, {5, 6}, {6, 6},
	} {
		setAlpha(img, p[0], p[1], 255)
	}

	direct := FilterRegions(img, 4)
	mirrored := mirrorH(FilterRegions(mirrorH(img), 4))
	require.Equal(t, direct.Pix, mirrored.Pix)

	assert.Equal(t, 11, opaqueCount(direct))
}

func TestFilterRegionsKeepsRGBOfClearedPixels(t *testing.T) {
	img := transparent(5, 5)
	img.Pix[img.PixOffset(2, 2)] = 200
	img.Pix[img.PixOffset(2, 2)+1] = 100
	img.Pix[img.PixOffset(2, 2)+2] = 50
	setAlpha(img, 2, 2, 255)

	out := FilterRegions(img, 2)
	i := out.PixOffset(2, 2)
	assert.Equal(t, uint8(200), out.Pix[i])
	assert.Equal(t, uint8(100), out.Pix[i+1])
	assert.Equal(t, uint8(50), out.Pix[i+2])
	assert.Equal(t, uint8(0), out.Pix[i+3])
}

func TestFilterRegionsLeavesInputAlone(t *testing.T) {
	img := transparent(6, 6)
	setAlpha(img, 1, 1, 255)
	before := make([]uint8, len(img.Pix))
	copy(before, img.Pix)

	FilterRegions(img, 10)
	require.Equal(t, before, img.Pix)
}
