package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/block/voice-pixels/internal/codec"
	"github.com/block/voice-pixels/internal/matte"

	"github.com/lucasb-eyer/go-colorful"
)

// Config holds the engine settings shared by the CLI tools and the server.
type Config struct {
	// Server
	Addr string `json:"addr"`

	// Generator
	GenEndpoint   string `json:"gen_endpoint"`
	GenTimeoutSec int    `json:"gen_timeout_seconds"`

	// Spool
	SpoolDir      string `json:"spool_dir"`
	SpoolTTLMin   int    `json:"spool_ttl_minutes"`
	SweepEveryMin int    `json:"sweep_every_minutes"`

	// Matting
	Tolerance     float64 `json:"tolerance"`
	MinRegionSize int     `json:"min_region_size"`
	Key           string  `json:"key"`

	// Rasters
	MaxEdge int    `json:"max_edge"`
	Workers int    `json:"workers"`
	Format  string `json:"format"`
}

// Load reads a JSON config file. Fields not set in the file keep their zero
// values until Resolve fills in defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Addr        string
	GenEndpoint string
	SpoolDir    string
	Tolerance   float64
	MinRegion   int
	MaxEdge     int
	Workers     int
	Format      string
	Key         string
}

// Resolve applies flag overrides, then fills any remaining empty fields
// with defaults. CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.Addr != "" {
		c.Addr = flags.Addr
	}
	if flags.GenEndpoint != "" {
		c.GenEndpoint = flags.GenEndpoint
	}
	if flags.SpoolDir != "" {
		c.SpoolDir = flags.SpoolDir
	}
	if flags.Tolerance > 0 {
		c.Tolerance = flags.Tolerance
	}
	if flags.MinRegion > 0 {
		c.MinRegionSize = flags.MinRegion
	}
	if flags.MaxEdge != 0 {
		c.MaxEdge = flags.MaxEdge
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Key != "" {
		c.Key = flags.Key
	}

	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.GenTimeoutSec <= 0 {
		c.GenTimeoutSec = 30
	}
	if c.SpoolDir == "" {
		c.SpoolDir = filepath.Join(os.TempDir(), "voice-pixels-spool")
	}
	if c.SpoolTTLMin <= 0 {
		c.SpoolTTLMin = 15
	}
	if c.SweepEveryMin <= 0 {
		c.SweepEveryMin = 5
	}
	if c.Tolerance == 0 {
		c.Tolerance = matte.DefaultTolerance
	}
	if c.MinRegionSize == 0 {
		c.MinRegionSize = matte.DefaultMinRegionSize
	}
	// MaxEdge -1 disables input bounding
	if c.MaxEdge == 0 {
		c.MaxEdge = 2048
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Format == "" {
		c.Format = string(codec.FormatPNG)
	}
}

// Validate reports the first setting a resolved config gets wrong. These
// are configuration errors, raised before any image is touched.
func (c Config) Validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("config: tolerance %v, want > 0", c.Tolerance)
	}
	if c.MinRegionSize < 1 {
		return fmt.Errorf("config: min region size %d, want >= 1", c.MinRegionSize)
	}
	if _, err := codec.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Key != "" {
		if _, err := colorful.Hex(c.Key); err != nil {
			return fmt.Errorf("config: key %q: %w", c.Key, err)
		}
	}
	return nil
}

// GenTimeout returns the generator call timeout.
func (c Config) GenTimeout() time.Duration {
	return time.Duration(c.GenTimeoutSec) * time.Second
}

// SpoolTTL returns how long spooled assets stay fetchable.
func (c Config) SpoolTTL() time.Duration {
	return time.Duration(c.SpoolTTLMin) * time.Minute
}

// SweepEvery returns the spool sweep interval.
func (c Config) SweepEvery() time.Duration {
	return time.Duration(c.SweepEveryMin) * time.Minute
}

// OutputFormat returns the validated output format.
func (c Config) OutputFormat() codec.Format {
	f, err := codec.ParseFormat(c.Format)
	if err != nil {
		return codec.FormatPNG
	}
	return f
}

// KeyOverride returns the fixed key color when one is configured. Without
// one the pipeline samples the key per scene.
func (c Config) KeyOverride() (matte.KeyColor, bool) {
	if c.Key == "" {
		return matte.KeyColor{}, false
	}
	col, err := colorful.Hex(c.Key)
	if err != nil {
		return matte.KeyColor{}, false
	}
	return matte.KeyColor{
		R: uint8(col.R*255 + 0.5),
		G: uint8(col.G*255 + 0.5),
		B: uint8(col.B*255 + 0.5),
	}, true
}
