package codec

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"io"
	"os"

	_ "github.com/ftrvxmtrx/tga"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// ErrDecode marks input that could not be decoded as an image. Nothing
// downstream of the decoder runs when it is returned.
var ErrDecode = errors.New("codec: undecodable image")

// Decode reads one image in any registered format (PNG, JPEG, GIF, WebP,
// TGA) and returns it as a tightly packed NRGBA raster.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return ToNRGBA(img), nil
}

// Load decodes the image file at path.
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("codec: open %s: %w", path, err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("codec: decode %s: %w", path, err)
	}
	return img, nil
}

// ToNRGBA returns src as a tightly packed, zero-origin NRGBA image. The
// source is returned unchanged when it already is one.
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if n, ok := src.(*image.NRGBA); ok {
		if n.Rect.Min == (image.Point{}) && n.Stride == w*4 && len(n.Pix) == w*h*4 {
			return n
		}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// BoundEdge downscales img so its longest edge does not exceed maxEdge,
// preserving aspect ratio. Images already within the bound, and any
// maxEdge <= 0, pass through unchanged.
func BoundEdge(img *image.NRGBA, maxEdge int) *image.NRGBA {
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

	return ToNRGBA(resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3))
}
