// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch runs ingestion passes over the PDF directory whenever
// matching files appear in it.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/pkg/types"
)

const defaultDebounce = 2 * time.Second

// Ingester runs one ingestion pass over a directory.
type Ingester interface {
	Ingest(ctx context.Context, dir string) acquire.IngestResult
}

// Watcher triggers an ingestion pass after each quiet period following
// filesystem activity in Dir.
type Watcher struct {
	ingester Ingester
	dir      string
	exts     []string
	debounce time.Duration
	logger   zerolog.Logger
}

// New creates a Watcher for cfg.PDFDir. A non-positive debounce uses 2s.
func New(ing Ingester, cfg types.AcquisitionConfig, debounce time.Duration, logger zerolog.Logger) *Watcher {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		ingester: ing,
		dir:      cfg.PDFDir,
		exts:     exts,
		debounce: debounce,
		logger:   logger.With().Str("component", "watch").Str("dir", cfg.PDFDir).Logger(),
	}
}

// Run performs an initial pass, then one pass per debounced burst of
// create, write, or rename events on matching files. Passes run
// sequentially; onPass, if non-nil, receives each result. Run returns nil
// when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onPass func(acquire.IngestResult)) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", w.dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info().Dur("debounce", w.debounce).Msg("watching for PDFs")

	w.pass(ctx, onPass)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("watch stopped")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug().Str("file", filepath.Base(ev.Name)).Str("op", ev.Op.String()).Msg("file event")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		case <-fire:
			fire = nil
			w.pass(ctx, onPass)
		}
	}
}

func (w *Watcher) pass(ctx context.Context, onPass func(acquire.IngestResult)) {
	result := w.ingester.Ingest(ctx, w.dir)
	if onPass != nil {
		onPass(result)
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return slices.Contains(w.exts, filepath.Ext(ev.Name))
}
