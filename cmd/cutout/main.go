package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/block/voice-pixels/internal/batch"
	"github.com/block/voice-pixels/internal/codec"
	"github.com/block/voice-pixels/internal/config"
	"github.com/block/voice-pixels/internal/imagegen"
	"github.com/block/voice-pixels/internal/matte"
	"github.com/block/voice-pixels/internal/outline"
	"github.com/block/voice-pixels/internal/postprocess"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	in := flag.String("in", "", "Input image or directory of images")
	out := flag.String("out", "cutouts", "Output file or directory")
	instruction := flag.String("instruction", "", "Generate the scene from an instruction instead of reading -in")
	genEndpoint := flag.String("gen", "", "Scene generator endpoint (default: built-in flat scene)")
	keyHex := flag.String("key", "", "Fixed key color like #00ff00 (default: sampled per scene)")
	tolerance := flag.Float64("tolerance", 0, "Chroma distance below which a pixel is keyed out (default: 50)")
	minRegion := flag.Int("min-region", 0, "Smallest opaque region kept, in pixels (default: 50)")
	maxEdge := flag.Int("max-edge", 0, "Bound the longest input edge before matting, -1 disables (default: 2048)")
	format := flag.String("format", "", "Output format: png or webp (default: png)")
	trim := flag.Bool("trim", false, "Trim transparent borders from each cutout")
	margin := flag.Int("margin", 0, "Transparent margin kept when trimming")
	fitEdge := flag.Int("fit", 0, "Bound the longest cutout edge after matting (default: off)")
	withOutline := flag.Bool("outline", false, "Also write a traced SVG outline next to the cutout")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	testN := flag.Int("test", 0, "Cut only first N images for testing")

	flag.Parse()

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		GenEndpoint: *genEndpoint,
		Tolerance:   *tolerance,
		MinRegion:   *minRegion,
		MaxEdge:     *maxEdge,
		Workers:     *workers,
		Format:      *format,
		Key:         *keyHex,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pipe, err := matte.NewPipeline(matte.Options{
		Tolerance:     cfg.Tolerance,
		MinRegionSize: cfg.MinRegionSize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var fixedKey *matte.KeyColor
	if key, ok := cfg.KeyOverride(); ok {
		fixedKey = &key
	}

	finish := finishOpts{trim: *trim, margin: *margin, fitEdge: *fitEdge}

	if *instruction != "" {
		cutGenerated(cfg, pipe, fixedKey, *instruction, *out, finish, *withOutline)
		return
	}

	if *in == "" {
		fmt.Fprintln(os.Stderr, "Error: -in or -instruction is required.")
		os.Exit(1)
	}

	info, err := os.Stat(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !info.IsDir() {
		cutFile(cfg, pipe, fixedKey, *in, *out, finish, *withOutline)
		return
	}

	// Directory batch
	inputs, err := batch.ListImages(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing %s: %v\n", *in, err)
		os.Exit(1)
	}

	// Limit for testing
	if *testN > 0 && *testN < len(inputs) {
		inputs = inputs[:*testN]
	}

	if len(inputs) == 0 {
		fmt.Println("No images to cut.")
		os.Exit(0)
	}

	// Print summary
	mode := ""
	if *testN > 0 {
		mode = fmt.Sprintf(" (TEST: first %d)", *testN)
	}

	fmt.Printf("Chroma key matting → %s cutouts%s\n", strings.ToUpper(string(cfg.OutputFormat())), mode)
	fmt.Printf("Images: %d, Workers: %d\n", len(inputs), cfg.Workers)
	fmt.Printf("Output: %s\n", *out)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	batchCfg := batch.Config{
		Pipeline:   pipe,
		Key:        fixedKey,
		OutputDir:  *out,
		Format:     cfg.OutputFormat(),
		MaxEdge:    cfg.MaxEdge,
		Trim:       *trim,
		TrimMargin: *margin,
		FitEdge:    *fitEdge,
		Workers:    cfg.Workers,
	}

	results, err := batch.Run(context.Background(), batchCfg, inputs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var failures []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed++
			failures = append(failures, r)
		}
	}

	fmt.Printf("Cut: %d/%d\n", success, len(inputs))

	if len(failures) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(failures) < limit {
			limit = len(failures)
		}
		for _, r := range failures[:limit] {
			fmt.Printf("  %s: %s\n", filepath.Base(r.Input), r.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(*out, "manifest.json")
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

type finishOpts struct {
	trim    bool
	margin  int
	fitEdge int
}

func cutFile(cfg config.Config, pipe *matte.Pipeline, fixedKey *matte.KeyColor, in, out string, finish finishOpts, withOutline bool) {
	img, err := codec.Load(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", in, err)
		os.Exit(1)
	}

	cut, key, err := cutScene(pipe, fixedKey, img, cfg.MaxEdge, finish)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cutting %s: %v\n", in, err)
		os.Exit(1)
	}

	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	path := outputPath(out, base, cfg.OutputFormat())
	if err := writeCutout(cut, path, cfg.OutputFormat(), withOutline); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Key: %s\n", key.Hex())
}

func cutGenerated(cfg config.Config, pipe *matte.Pipeline, fixedKey *matte.KeyColor, instruction, out string, finish finishOpts, withOutline bool) {
	var gen imagegen.Generator = imagegen.Flat{}
	if cfg.GenEndpoint != "" {
		gen = imagegen.NewClient(cfg.GenEndpoint, cfg.GenTimeout(), nil)
	}

	key := matte.KeyGreen
	if fixedKey != nil {
		key = *fixedKey
	}

	scene, err := gen.Generate(context.Background(), instruction, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating scene: %v\n", err)
		os.Exit(1)
	}

	cut, _, err := cutScene(pipe, &key, codec.ToNRGBA(scene), cfg.MaxEdge, finish)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error cutting scene: %v\n", err)
		os.Exit(1)
	}

	path := outputPath(out, "scene", cfg.OutputFormat())
	if err := writeCutout(cut, path, cfg.OutputFormat(), withOutline); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Key: %s\n", key.Hex())
}

func cutScene(pipe *matte.Pipeline, fixedKey *matte.KeyColor, img *image.NRGBA, maxEdge int, finish finishOpts) (*image.NRGBA, matte.KeyColor, error) {
	img = codec.BoundEdge(img, maxEdge)

	var (
		out *image.NRGBA
		key matte.KeyColor
		err error
	)
	if fixedKey != nil {
		key = *fixedKey
		out, err = pipe.CutWithKey(context.Background(), img, key)
	} else {
		out, key, err = pipe.Cut(context.Background(), img)
	}
	if err != nil {
		return nil, key, err
	}

	if finish.trim {
		out = postprocess.TrimToContent(out, finish.margin)
	}
	if finish.fitEdge > 0 {
		out = postprocess.FitWithin(out, finish.fitEdge)
	}
	return out, key, nil
}

func writeCutout(cut *image.NRGBA, path string, format codec.Format, withOutline bool) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := codec.Save(path, cut, format); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)

	if !withOutline {
		return nil
	}
	svg, err := outline.FromCutout(cut)
	if err != nil {
		return err
	}
	svgPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".svg"
	if err := os.WriteFile(svgPath, svg, 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", svgPath)
	return nil
}

// outputPath treats out as a file when it already names a supported
// image extension, and as a directory otherwise.
func outputPath(out, base string, format codec.Format) string {
	switch strings.ToLower(filepath.Ext(out)) {
	case ".png", ".webp":
		return out
	}
	return filepath.Join(out, base+format.Ext())
}
