package main

import (
	"fmt"
	"math"
	"os"

	"github.com/block/voice-pixels/internal/codec"
	"github.com/block/voice-pixels/internal/matte"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: keypick <image> [image...]")
		os.Exit(1)
	}

	for _, path := range os.Args[1:] {
		img, err := codec.Load(path)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		b := img.Bounds()
		total := b.Dx() * b.Dy()

		var sum uint64
		for i := 0; i < len(img.Pix); i += 4 {
			sum += uint64(img.Pix[i]) + uint64(img.Pix[i+1]) + uint64(img.Pix[i+2])
		}
		mean := float64(sum) / float64(3*total)

		key := matte.SampleKey(img)
		scene := "dark scene"
		if key == matte.KeyMagenta {
			scene = "bright scene"
		}

		// Coverage within the default tolerance of the sampled key
		keyed := 0
		for i := 0; i < len(img.Pix); i += 4 {
			dr := float64(img.Pix[i]) - float64(key.R)
			dg := float64(img.Pix[i+1]) - float64(key.G)
			db := float64(img.Pix[i+2]) - float64(key.B)
			if math.Sqrt(dr*dr+dg*dg+db*db) < matte.DefaultTolerance {
				keyed++
			}
		}

		fmt.Printf("%s: %dx%d\n", path, b.Dx(), b.Dy())
		fmt.Printf("  Mean RGB: %.1f\n", mean)
		fmt.Printf("  Key: %s (%s)\n", key.Hex(), scene)
		fmt.Printf("  Within tolerance %.0f: %d/%d px (%.1f%%)\n",
			matte.DefaultTolerance, keyed, total, 100*float64(keyed)/float64(total))
	}
}
