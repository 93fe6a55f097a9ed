package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Spool hands out pre-recorded question files dropped into a directory, one
// per call. Consumed files are renamed with a .processed suffix. A file that
// cannot be read or renamed is logged and never offered twice.
type Spool struct {
	dir       string
	interval  time.Duration
	processed map[string]bool
	mu        sync.Mutex
	logger    *slog.Logger
}

func NewSpool(dir string, logger *slog.Logger) *Spool {
	return &Spool{
		dir:       dir,
		interval:  500 * time.Millisecond,
		processed: make(map[string]bool),
		logger:    logger,
	}
}

func (f *Spool) Name() string {
	return "spool"
}

func (f *Spool) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating spool dir: %w", err)
	}
	return nil
}

// Next blocks until a new .wav file appears and returns it as an upload.
func (f *Spool) Next(ctx context.Context) (*Upload, error) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		upload, err := f.checkForNewFile()
		if err != nil {
			return nil, err
		}
		if upload != nil {
			return upload, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *Spool) checkForNewFile() (*Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}

		f.processed[path] = true

		data, err := os.ReadFile(path)
		if err != nil {
			f.logger.Warn("skipping unreadable spool file", "path", path, "error", err)
			continue
		}

		if err := os.Rename(path, path+".processed"); err != nil {
			f.logger.Warn("could not mark spool file processed", "path", path, "error", err)
		}

		return NewNamedUpload(entry.Name(), data), nil
	}

	return nil, nil
}
