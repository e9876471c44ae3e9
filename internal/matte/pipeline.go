package matte

import (
	"context"
	"errors"
	"fmt"
	"image"
)

const (
	DefaultTolerance     = 50.0
	DefaultMinRegionSize = 50
)

var (
	// ErrInvalidOptions reports a caller-supplied setting outside its valid
	// range. It is a configuration problem, not a data problem.
	ErrInvalidOptions = errors.New("matte: invalid options")

	// ErrDimensionMismatch reports a working buffer whose pixel data does
	// not agree with its declared dimensions.
	ErrDimensionMismatch = errors.New("matte: dimension mismatch")
)

// Options control a single matting run.
type Options struct {
	// Tolerance is the chroma distance below which a pixel is keyed out.
	// Must be > 0.
	Tolerance float64

	// MinRegionSize is the smallest connected opaque region, in pixels,
	// that survives filtering. Must be >= 1.
	MinRegionSize int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:     DefaultTolerance,
		MinRegionSize: DefaultMinRegionSize,
	}
}

func (o Options) validate() error {
	if o.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance %v, want > 0", ErrInvalidOptions, o.Tolerance)
	}
	if o.MinRegionSize < 1 {
		return fmt.Errorf("%w: min region size %d, want >= 1", ErrInvalidOptions, o.MinRegionSize)
	}
	return nil
}

// Pipeline turns images shot against a solid key backdrop into cutouts with
// a real alpha channel. A Pipeline holds no per-run state; one instance may
// serve concurrent calls, and every call works on its own buffers.
type Pipeline struct {
	opts Options
}

// NewPipeline validates opts and returns a ready pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts}, nil
}

// Options returns the settings the pipeline was built with.
func (p *Pipeline) Options() Options {
	return p.opts
}

// Cut samples the key color from img, then keys, closes and filters it.
// The sampled key is returned alongside the cutout.
func (p *Pipeline) Cut(ctx context.Context, img *image.NRGBA) (*image.NRGBA, KeyColor, error) {
	if err := checkDimensions(img); err != nil {
		return nil, KeyColor{}, err
	}
	key := SampleKey(img)
	out, err := p.CutWithKey(ctx, img, key)
	if err != nil {
		return nil, KeyColor{}, err
	}
	return out, key, nil
}

// CutWithKey runs the matting stages against a known key color: chroma
// keying, mask closing, then small-region filtering. Cancellation is
// honored between stages only; a stage that has started always finishes.
func (p *Pipeline) CutWithKey(ctx context.Context, img *image.NRGBA, key KeyColor) (*image.NRGBA, error) {
	if err := checkDimensions(img); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("matte: canceled before keying: %w", err)
	}

	out := ApplyKey(img, key, p.opts.Tolerance)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("matte: canceled after keying: %w", err)
	}

	out = CloseMask(out)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("matte: canceled after closing: %w", err)
	}

	return FilterRegions(out, p.opts.MinRegionSize), nil
}

func checkDimensions(img *image.NRGBA) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrDimensionMismatch)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: bounds %dx%d", ErrDimensionMismatch, w, h)
	}
	if want := w * h * 4; len(img.Pix) != want {
		return fmt.Errorf("%w: %dx%d image with %d pixel bytes, want %d", ErrDimensionMismatch, w, h, len(img.Pix), want)
	}
	return nil
}
