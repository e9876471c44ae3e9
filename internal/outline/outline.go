package outline

import (
	"bytes"
	"fmt"
	"image"

	"github.com/block/voice-pixels/internal/matte"

	"github.com/gotranspile/gotrace"
)

// FromCutout vectorizes the alpha silhouette of a cutout into an SVG
// document. A fully transparent cutout yields a valid document with no
// paths.
func FromCutout(img *image.NRGBA) ([]byte, error) {
	return FromMask(matte.AlphaPlane(img))
}

// FromMask traces a grayscale mask, treating bright pixels as solid.
func FromMask(mask *image.Gray) ([]byte, error) {
	bm := gotrace.BitmapFromGray(mask, nil)

	paths, err := gotrace.Trace(bm, nil)
	if err != nil {
		return nil, fmt.Errorf("outline: trace: %w", err)
	}

	var buf bytes.Buffer
	sz := mask.Bounds().Size()
	if err := gotrace.Render("svg", nil, &buf, paths, sz.X, sz.Y); err != nil {
		return nil, fmt.Errorf("outline: render svg: %w", err)
	}
	return buf.Bytes(), nil
}
