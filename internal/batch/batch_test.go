package batch

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/block/voice-pixels/internal/codec"
	"github.com/block/voice-pixels/internal/matte"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScene(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			c := color.NRGBA{G: 255, A: 255}
			if x >= 4 && x <= 5 && y >= 4 && y <= 5 {
				c = color.NRGBA{R: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	require.NoError(t, codec.Save(path, img, codec.FormatPNG))
}

func newPipeline(t *testing.T) *matte.Pipeline {
	t.Helper()
	p, err := matte.NewPipeline(matte.Options{Tolerance: 50, MinRegionSize: 1})
	require.NoError(t, err)
	return p
}

func TestRun(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	writeScene(t, filepath.Join(inDir, "a.png"))
	writeScene(t, filepath.Join(inDir, "b.png"))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "broken.png"), []byte("junk"), 0644))

	inputs, err := ListImages(inDir)
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	results, err := Run(context.Background(), Config{
		Pipeline:  newPipeline(t),
		OutputDir: outDir,
		Format:    codec.FormatPNG,
		Workers:   2,
	}, inputs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byInput := map[string]Result{}
	for _, r := range results {
		byInput[filepath.Base(r.Input)] = r
	}

	assert.False(t, byInput["broken.png"].Success)
	assert.NotEmpty(t, byInput["broken.png"].Error)

	for _, name := range []string{"a.png", "b.png"} {
		r := byInput[name]
		require.Truef(t, r.Success, "%s: %s", name, r.Error)
		assert.Equal(t, "#00ff00", r.Key)

		out, err := codec.Load(r.Output)
		require.NoError(t, err)
		assert.Equal(t, uint8(255), out.Pix[out.PixOffset(4, 4)+3])
		assert.Equal(t, uint8(0), out.Pix[out.PixOffset(0, 0)+3])
	}
}

func TestRunWithKeyOverrideAndTrim(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	writeScene(t, filepath.Join(inDir, "scene.png"))

	key := matte.KeyGreen
	results, err := Run(context.Background(), Config{
		Pipeline:  newPipeline(t),
		Key:       &key,
		OutputDir: outDir,
		Format:    codec.FormatWebP,
		Trim:      true,
		Workers:   1,
	}, []string{filepath.Join(inDir, "scene.png")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success, results[0].Error)

	out, err := codec.Load(results[0].Output)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Bounds().Dx(), "trimmed to the kept square")
	assert.Equal(t, 2, out.Bounds().Dy())
}

func TestRunFitBoundsOutput(t *testing.T) {
	inDir := t.TempDir()
	writeScene(t, filepath.Join(inDir, "scene.png"))

	results, err := Run(context.Background(), Config{
		Pipeline:  newPipeline(t),
		OutputDir: t.TempDir(),
		Format:    codec.FormatPNG,
		FitEdge:   5,
		Workers:   1,
	}, []string{filepath.Join(inDir, "scene.png")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success, results[0].Error)

	out, err := codec.Load(results[0].Output)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Bounds().Dx())
	assert.Equal(t, 5, out.Bounds().Dy())
}

func TestRunCanceled(t *testing.T) {
	inDir := t.TempDir()
	writeScene(t, filepath.Join(inDir, "scene.png"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Run(ctx, Config{
		Pipeline:  newPipeline(t),
		OutputDir: t.TempDir(),
		Format:    codec.FormatPNG,
		Workers:   1,
	}, []string{filepath.Join(inDir, "scene.png")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "canceled")
}

func TestListImagesFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, filepath.Join(dir, "keep.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	paths, err := ListImages(dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "keep.png", filepath.Base(paths[0]))
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	results := []Result{
		{Input: "in/a.png", Output: "out/a.png", Key: "#00ff00", Success: true},
		{Input: "in/bad.png", Error: "undecodable"},
	}
	require.NoError(t, WriteManifest(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []ManifestEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "a.png", entries[0].Image)
	assert.Equal(t, "#00ff00", entries[0].Key)
	assert.Empty(t, entries[1].Image)
	assert.Equal(t, "undecodable", entries[1].Error)
}
