package imagegen

import (
	"context"
	"image"
	"image/color"

	"github.com/block/voice-pixels/internal/matte"
)

// Generator produces a scene for an instruction, rendered against the given
// key color so the matting pipeline can cut the subject out afterwards.
type Generator interface {
	Generate(ctx context.Context, instruction string, key matte.KeyColor) (image.Image, error)
}

// Flat is an offline stand-in for the real model: a solid key-color canvas
// with a centered block in the opposite color, the same shape the model is
// instructed to produce. It lets the rest of the engine run end to end
// without network access.
type Flat struct {
	// Size is the canvas edge in pixels. Zero means 512.
	Size int
}

func (f Flat) Generate(_ context.Context, _ string, key matte.KeyColor) (image.Image, error) {
	size := f.Size
	if size <= 0 {
		size = 512
	}

	bg := color.NRGBA{R: key.R, G: key.G, B: key.B, A: 255}
	fg := color.NRGBA{R: 255 - key.R, G: 255 - key.G, B: 255 - key.B, A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	q := size / 4
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := bg
			if x >= q && x < size-q && y >= q && y < size-q {
				c = fg
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}
