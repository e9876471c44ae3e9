package spool

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/block/voice-pixels/internal/codec"

	"github.com/robfig/cron/v3"
	"github.com/segmentio/ksuid"
)

// ErrNotFound reports an asset id with nothing staged behind it, either
// because it expired or because it never existed.
var ErrNotFound = errors.New("spool: asset not found")

// Spool stages finished cutouts on disk just long enough for the caller to
// fetch them. Assets are named by KSUID and unlinked after their TTL; the
// engine keeps no other state about them.
type Spool struct {
	dir string
	ttl time.Duration
	log *slog.Logger

	cron *cron.Cron
}

// New opens a spool rooted at dir, creating it if needed. A ttl <= 0 means
// assets never expire.
func New(dir string, ttl time.Duration, log *slog.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("spool: create dir %s: %w", dir, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Spool{dir: dir, ttl: ttl, log: log}, nil
}

// Put encodes img into the spool and returns the asset id to fetch it by.
func (s *Spool) Put(img image.Image, format codec.Format) (string, error) {
	id := ksuid.New().String()
	if err := codec.Save(filepath.Join(s.dir, id+format.Ext()), img, format); err != nil {
		return "", fmt.Errorf("spool: stage asset: %w", err)
	}
	return id, nil
}

// Open returns the staged asset and its content type. The id is validated
// before any path is formed, so ids cannot traverse out of the spool. The
// caller closes the file.
func (s *Spool) Open(id string) (*os.File, string, error) {
	if _, err := ksuid.Parse(id); err != nil {
		return nil, "", fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	for _, format := range []codec.Format{codec.FormatPNG, codec.FormatWebP} {
		f, err := os.Open(filepath.Join(s.dir, id+format.Ext()))
		if err == nil {
			return f, format.ContentType(), nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Sweep unlinks every asset older than the TTL and returns how many went.
func (s *Spool) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("spool sweep failed", "dir", s.dir, "error", err)
		return 0
	}

	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				s.log.Warn("spool remove failed", "asset", e.Name(), "error", err)
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.log.Info("spool swept", "removed", removed)
	}
	return removed
}

// StartSweeper begins sweeping expired assets every interval until Stop.
func (s *Spool) StartSweeper(every time.Duration) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), func() { s.Sweep() }); err != nil {
		return fmt.Errorf("spool: schedule sweeper: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the sweeper. Staged assets stay on disk.
func (s *Spool) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
