package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/block/voice-pixels/internal/config"
	"github.com/block/voice-pixels/internal/imagegen"
	"github.com/block/voice-pixels/internal/server"
	"github.com/block/voice-pixels/internal/spool"

	"github.com/gin-gonic/gin"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	addr := flag.String("addr", "", "Listen address (default: :8080)")
	genEndpoint := flag.String("gen", "", "Scene generator endpoint (default: built-in flat scene)")
	spoolDir := flag.String("spool", "", "Directory for spooled cutouts (default: under the system temp dir)")
	keyHex := flag.String("key", "", "Fixed key color like #00ff00 (default: sampled per scene)")
	tolerance := flag.Float64("tolerance", 0, "Chroma distance below which a pixel is keyed out (default: 50)")
	minRegion := flag.Int("min-region", 0, "Smallest opaque region kept, in pixels (default: 50)")
	format := flag.String("format", "", "Spooled cutout format: png or webp (default: png)")

	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

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
		Addr:        *addr,
		GenEndpoint: *genEndpoint,
		SpoolDir:    *spoolDir,
		Tolerance:   *tolerance,
		MinRegion:   *minRegion,
		Format:      *format,
		Key:         *keyHex,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sp, err := spool.New(cfg.SpoolDir, cfg.SpoolTTL(), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening spool: %v\n", err)
		os.Exit(1)
	}
	if err := sp.StartSweeper(cfg.SweepEvery()); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting sweeper: %v\n", err)
		os.Exit(1)
	}
	defer sp.Stop()

	var gen imagegen.Generator = imagegen.Flat{}
	genName := "builtin flat"
	if cfg.GenEndpoint != "" {
		gen = imagegen.NewClient(cfg.GenEndpoint, cfg.GenTimeout(), log)
		genName = cfg.GenEndpoint
	}

	gin.SetMode(gin.ReleaseMode)

	srv, err := server.New(cfg, gen, sp, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log.Info("listening", "addr", cfg.Addr, "spool", cfg.SpoolDir, "generator", genName)
	if err := srv.Router().Run(cfg.Addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
