// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire runs the human-in-the-loop PDF acquisition protocol.
//
// Papers awaiting a PDF are exported to an acquisition list with a
// suggested filename each. A person downloads the files into a directory;
// an ingestion pass then matches each file back to its paper by filename
// and advances the paper from awaiting_pdf to pdf_acquired.
package acquire

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/lifecycle"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/pkg/types"
)

// Store is the store access needed by ingestion. It never creates or
// deletes papers.
type Store interface {
	Lookup

	// SaveIfStatus writes p only if its stored status is still from and
	// reports whether it did.
	SaveIfStatus(ctx context.Context, p *types.Paper, from types.PaperStatus) (bool, error)
}

// Outcome is the fate of a single scanned file.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeError     Outcome = "error"
)

// FileResult records what happened to one file.
type FileResult struct {
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
	Match   *Match  `json:"match,omitempty"`

	// Applied is true when the paper was moved to pdf_acquired by this
	// pass. A matched file for a paper past awaiting_pdf is left alone.
	Applied bool `json:"applied"`

	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func errorResult(name, path string, m *Match, err error) FileResult {
	return FileResult{Name: name, Path: path, Outcome: OutcomeError, Match: m, Err: err, Error: err.Error()}
}

// IngestResult holds the outcome of an ingestion pass. Every scanned file
// is counted exactly once in Matched, Unmatched, or Errors.
type IngestResult struct {
	Dir            string       `json:"dir"`
	Matched        int          `json:"matched"`
	Unmatched      int          `json:"unmatched"`
	Errors         int          `json:"errors"`
	Applied        int          `json:"applied"`
	UnmatchedFiles []string     `json:"unmatched_files"`
	Results        []FileResult `json:"results"`
}

// Total returns the number of files scanned.
func (r IngestResult) Total() int {
	return r.Matched + r.Unmatched + r.Errors
}

// HasErrors reports whether any file failed.
func (r IngestResult) HasErrors() bool {
	return r.Errors > 0
}

func (r *IngestResult) add(fr FileResult) {
	switch fr.Outcome {
	case OutcomeMatched:
		r.Matched++
		if fr.Applied {
			r.Applied++
		}
	case OutcomeUnmatched:
		r.Unmatched++
		r.UnmatchedFiles = append(r.UnmatchedFiles, fr.Name)
	default:
		r.Errors++
	}
	r.Results = append(r.Results, fr)
}

// Ingester matches files in a directory to papers and records the
// acquisition. Passes on one Ingester never overlap.
type Ingester struct {
	mu      sync.Mutex
	store   Store
	matcher *Matcher
	exts    []string
	logger  zerolog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewIngester returns an Ingester over st. A nil metrics records to a
// private registry.
func NewIngester(st Store, cfg types.AcquisitionConfig, logger zerolog.Logger, metrics *observability.Metrics) *Ingester {
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{pdfExt}
	}
	return &Ingester{
		store:   st,
		matcher: NewMatcher(st),
		exts:    exts,
		logger:  observability.WithComponent(logger, "ingest"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Ingest scans dir, matches every accepted file, and moves matched papers
// that are awaiting a PDF to pdf_acquired. Failures are contained per
// file. A directory that cannot be read is logged and yields a zero
// result. If ctx is cancelled the files not yet processed are counted as
// errors.
func (i *Ingester) Ingest(ctx context.Context, dir string) IngestResult {
	i.mu.Lock()
	defer i.mu.Unlock()

	start := time.Now()
	result := IngestResult{Dir: dir, UnmatchedFiles: []string{}, Results: []FileResult{}}

	files, err := i.scan(dir)
	if err != nil {
		i.logger.Warn().Err(err).Str("dir", dir).Msg("cannot read pdf directory, nothing ingested")
		return result
	}

	for _, path := range files {
		name := filepath.Base(path)
		var fr FileResult
		if err := ctx.Err(); err != nil {
			fr = errorResult(name, path, nil, fmt.Errorf("ingestion cancelled: %w", err))
		} else {
			fr = i.ingestFile(ctx, name, path)
		}
		i.record(fr)
		result.add(fr)
	}

	i.metrics.IngestPasses.Inc()
	i.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	i.logger.Info().
		Str("dir", dir).
		Int("matched", result.Matched).
		Int("applied", result.Applied).
		Int("unmatched", result.Unmatched).
		Int("errors", result.Errors).
		Dur("elapsed", time.Since(start)).
		Msg("ingestion pass complete")
	return result
}

// Apply records path as the PDF of paper id. It returns true when the
// paper moved to pdf_acquired and false with a nil error when the paper
// is not awaiting a PDF. A missing paper yields an error wrapping
// store.ErrNotFound.
func (i *Ingester) Apply(ctx context.Context, id, path string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.apply(ctx, id, path)
}

func (i *Ingester) apply(ctx context.Context, id, path string) (bool, error) {
	p, err := i.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("loading paper %s: %w", id, err)
	}
	if p.Status != types.StatusAwaitingPDF {
		return false, nil
	}
	if err := lifecycle.AcquirePDF(p, path, i.now()); err != nil {
		return false, err
	}
	applied, err := i.store.SaveIfStatus(ctx, p, types.StatusAwaitingPDF)
	if err != nil {
		return false, fmt.Errorf("saving paper %s: %w", id, err)
	}
	if !applied {
		// Another writer moved the paper between Get and the update.
		return false, nil
	}
	i.metrics.StatusTransitions.Inc()
	return true, nil
}

func (i *Ingester) ingestFile(ctx context.Context, name, path string) (fr FileResult) {
	defer func() {
		if r := recover(); r != nil {
			fr = errorResult(name, path, fr.Match, fmt.Errorf("panic ingesting %s: %v", name, r))
		}
	}()

	m, ok, err := i.matcher.Match(ctx, Stem(name))
	if err != nil {
		return errorResult(name, path, nil, err)
	}
	if !ok {
		return FileResult{Name: name, Path: path, Outcome: OutcomeUnmatched}
	}

	fr = FileResult{Name: name, Path: path, Match: &m}
	applied, err := i.apply(ctx, m.PaperID, path)
	if err != nil {
		return errorResult(name, path, &m, err)
	}
	fr.Outcome = OutcomeMatched
	fr.Applied = applied
	return fr
}

// record logs and counts one file outcome.
func (i *Ingester) record(fr FileResult) {
	i.metrics.IngestFiles.WithLabelValues(string(fr.Outcome)).Inc()

	switch fr.Outcome {
	case OutcomeMatched:
		i.metrics.IngestMatches.WithLabelValues(string(fr.Match.Strategy)).Inc()
		log := observability.WithPaperContext(i.logger, fr.Match.PaperID, fr.Name)
		if fr.Applied {
			log.Info().Str("strategy", string(fr.Match.Strategy)).Str("path", fr.Path).Msg("pdf acquired")
		} else {
			log.Info().Str("strategy", string(fr.Match.Strategy)).Msg("matched paper is not awaiting a pdf, left unchanged")
		}
	case OutcomeUnmatched:
		i.logger.Warn().Str("file", fr.Name).Msg("no paper matches file")
	default:
		ev := i.logger.Error().Str("file", fr.Name).Err(fr.Err)
		if fr.Match != nil {
			ev = ev.Str("paper_id", fr.Match.PaperID)
		}
		ev.Msg("ingesting file failed")
	}
}

// scan returns the absolute paths of the regular files in dir whose
// extension is accepted, sorted by name. Subdirectories are not entered.
func (i *Ingester) scan(dir string) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !slices.Contains(i.exts, filepath.Ext(e.Name())) {
			continue
		}
		path := filepath.Join(abs, e.Name())
		if !isRegular(e, path) {
			continue
		}
		files = append(files, path)
	}
	return files, nil
}

// isRegular reports whether e is a regular file, following symlinks.
func isRegular(e fs.DirEntry, path string) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WriteReport prints one line per file followed by the pass summary and
// the files a person still has to rename or investigate.
func WriteReport(w io.Writer, r IngestResult) {
	for _, fr := range r.Results {
		switch fr.Outcome {
		case OutcomeMatched:
			note := ""
			if !fr.Applied {
				note = ", already past awaiting_pdf"
			}
			fmt.Fprintf(w, "matched:   %s -> %s (%s%s)\n", fr.Name, fr.Match.PaperID, fr.Match.Strategy, note)
		case OutcomeUnmatched:
			fmt.Fprintf(w, "unmatched: %s\n", fr.Name)
		default:
			fmt.Fprintf(w, "failed:    %s (%v)\n", fr.Name, fr.Err)
		}
	}

	fmt.Fprintf(w, "\nIngestion summary: %d matched, %d unmatched, %d errors (total: %d)\n",
		r.Matched, r.Unmatched, r.Errors, r.Total())

	if len(r.UnmatchedFiles) > 0 {
		fmt.Fprintf(w, "\nUnmatched files (rename to the suggested filename and re-run):\n")
		for _, name := range r.UnmatchedFiles {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}
