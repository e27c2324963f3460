// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/litreview/internal/httputil"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/pkg/types"
)

// pdfMagic is the leading bytes of every PDF file.
var pdfMagic = []byte("%PDF-")

// FetchResult holds the outcome of an open-access download run.
type FetchResult struct {
	Downloaded int      `json:"downloaded"`
	Skipped    int      `json:"skipped"`
	NoURL      int      `json:"no_url"`
	Failed     int      `json:"failed"`
	Paths      []string `json:"paths"`
}

// Total returns the number of awaiting papers considered.
func (r FetchResult) Total() int {
	return r.Downloaded + r.Skipped + r.NoURL + r.Failed
}

// HasFailures reports whether any download failed.
func (r FetchResult) HasFailures() bool {
	return r.Failed > 0
}

// Fetcher downloads open-access PDFs for papers awaiting one. It writes
// files under the suggested filename and never touches the store; the
// next ingestion pass records them.
type Fetcher struct {
	client  *http.Client
	cfg     types.AcquisitionConfig
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewFetcher returns a Fetcher. A nil client uses one with cfg.Timeout.
func NewFetcher(client *http.Client, cfg types.AcquisitionConfig, logger zerolog.Logger, metrics *observability.Metrics) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		logger:  observability.WithComponent(logger, "fetch"),
		metrics: metrics,
	}
}

// Fetch downloads a PDF into dir for every awaiting paper that has a
// pdf_url, or whose DOI resolves to an open-access PDF when
// cfg.ResolveOpenAccess is set. Existing files are skipped. It continues
// after individual failures and waits cfg.DownloadDelay between
// consecutive downloads.
func (f *Fetcher) Fetch(ctx context.Context, st Lister, dir string, w io.Writer) (FetchResult, error) {
	var result FetchResult
	papers, err := st.ListByStatus(ctx, types.StatusAwaitingPDF)
	if err != nil {
		return result, fmt.Errorf("listing papers awaiting pdf: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	ctx = f.logger.WithContext(ctx)

	limiter := downloadLimiter(f.cfg.DownloadDelay)
	for _, p := range papers {
		name := SuggestFilename(p)
		dest := filepath.Join(dir, name)

		if _, err := os.Stat(dest); err == nil {
			fmt.Fprintf(w, "skipped: %s (already exists)\n", name)
			f.count(&result, "skipped")
			continue
		}

		pdfURL := p.PDFURL
		if pdfURL == "" && p.HasDOI() && f.cfg.ResolveOpenAccess {
			resolved, err := f.resolveOpenAccessURL(ctx, p.DOI)
			if err != nil {
				f.logger.Warn().Err(err).Str("paper_id", p.ID).Msg("OpenAlex lookup failed")
			}
			pdfURL = resolved
		}
		if pdfURL == "" {
			fmt.Fprintf(w, "no url:  %s (no open-access url)\n", p.ID)
			f.logger.Debug().Str("paper_id", p.ID).Msg("no open-access url")
			f.count(&result, "no_url")
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", p.ID, err)
			f.count(&result, "failed")
			continue
		}

		fmt.Fprintf(w, "downloading: %s\n", name)
		if err := f.download(ctx, pdfURL, dest); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", p.ID, err)
			paperLogger := observability.WithPaperContext(f.logger, p.ID, name)
			paperLogger.Error().Err(err).Str("url", pdfURL).Msg("download failed")
			f.count(&result, "failed")
			continue
		}
		result.Paths = append(result.Paths, dest)
		f.count(&result, "downloaded")
	}

	fmt.Fprintf(w, "\nFetch summary: %d downloaded, %d skipped, %d without url, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.NoURL, result.Failed, result.Total())
	return result, nil
}

// downloadLimiter allows one download immediately, then one per delay.
func downloadLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func (f *Fetcher) count(r *FetchResult, outcome string) {
	switch outcome {
	case "downloaded":
		r.Downloaded++
	case "skipped":
		r.Skipped++
	case "no_url":
		r.NoURL++
	default:
		r.Failed++
	}
	f.metrics.FetchDownloads.WithLabelValues(outcome).Inc()
}

// download fetches url to destPath through a temporary file. The body
// must start with the PDF signature; landing pages served with 200 are
// rejected so they never reach ingestion.
func (f *Fetcher) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, f.client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body := bufio.NewReader(resp.Body)
	head, err := body.Peek(len(pdfMagic))
	if err != nil || !bytes.Equal(head, pdfMagic) {
		return fmt.Errorf("response from %s is not a PDF", url)
	}

	return writeAtomic(destPath, func(w io.Writer) error {
		if _, err := io.Copy(w, body); err != nil {
			return fmt.Errorf("writing download: %w", err)
		}
		return nil
	})
}
