package codec

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/HugoSmits86/nativewebp"
)

// Format selects the cutout encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPNG, FormatWebP:
		return Format(s), nil
	}
	return "", fmt.Errorf("codec: unknown format %q, want png or webp", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// Ext returns the file extension for the format, dot included.
func (f Format) Ext() string {
	if f == FormatWebP {
		return ".webp"
	}
	return ".png"
}

// Encode writes img to w in the given format. WebP output is lossless, so
// the alpha channel survives both formats bit for bit.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("codec: webp encode: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("codec: png encode: %w", err)
		}
	}
	return nil
}

// Save encodes img into a freshly created file at path.
func Save(path string, img image.Image, f Format) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("codec: create %s: %w", path, err)
	}
	if err := Encode(out, img, f); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("codec: close %s: %w", path, err)
	}
	return nil
}
