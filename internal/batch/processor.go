package batch

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/block/voice-pixels/internal/codec"
	"github.com/block/voice-pixels/internal/matte"
	"github.com/block/voice-pixels/internal/postprocess"
)

// Config holds the shared resources for a batch run. Workers share the
// pipeline but never a buffer; each input is matted in its own invocation.
type Config struct {
	Pipeline   *matte.Pipeline
	Key        *matte.KeyColor // nil samples the key per image
	OutputDir  string
	Format     codec.Format
	MaxEdge    int
	Trim       bool
	TrimMargin int
	FitEdge    int // bound the longest output edge, 0 disables
	Workers    int
}

// Result holds the outcome of processing one input file.
type Result struct {
	Input   string
	Output  string
	Key     string
	Success bool
	Error   string
}

// Run mats every input file using a worker pool and returns one result per
// input, in input order.
func Run(ctx context.Context, cfg Config, inputs []string) ([]Result, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("batch: create output dir: %w", err)
	}

	total := len(inputs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Printf("  [%d/%d] %.1f cutouts/sec\n", p, total, rate)
				}
			}
		}
	}()

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	// Worker pool
	itemChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range itemChan {
				results[idx] = processOne(ctx, cfg, inputs[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range inputs {
		itemChan <- i
	}
	close(itemChan)

	wg.Wait()
	close(done)

	return results, nil
}

func processOne(ctx context.Context, cfg Config, path string) Result {
	img, err := codec.Load(path)
	if err != nil {
		return Result{Input: path, Error: err.Error()}
	}

	img = codec.BoundEdge(img, cfg.MaxEdge)

	var out *image.NRGBA
	var key matte.KeyColor
	if cfg.Key != nil {
		key = *cfg.Key
		out, err = cfg.Pipeline.CutWithKey(ctx, img, key)
	} else {
		out, key, err = cfg.Pipeline.Cut(ctx, img)
	}
	if err != nil {
		return Result{Input: path, Error: err.Error()}
	}

	if cfg.Trim {
		out = postprocess.TrimToContent(out, cfg.TrimMargin)
	}
	if cfg.FitEdge > 0 {
		out = postprocess.FitWithin(out, cfg.FitEdge)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath := filepath.Join(cfg.OutputDir, base+cfg.Format.Ext())
	if err := codec.Save(outPath, out, cfg.Format); err != nil {
		return Result{Input: path, Error: err.Error()}
	}

	return Result{
		Input:   path,
		Output:  outPath,
		Key:     key.Hex(),
		Success: true,
	}
}

// ListImages returns the image files directly under dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("batch: read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".tga":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}
