// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/internal/observability"
	"github.com/pdiddy/litreview/internal/store"
	"github.com/pdiddy/litreview/pkg/types"
)

type fixture struct {
	ts     *httptest.Server
	store  *store.Store
	pdfDir string
}

func setup(t *testing.T) fixture {
	t.Helper()
	st, err := store.Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "review.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	for _, p := range []*types.Paper{
		{ID: "p1", Title: "Soil moisture sensing", DOI: "10.1234/j.example.2023.001", Year: 2023, Status: types.StatusAwaitingPDF, Sources: []types.PaperSource{types.SourceCrossRef}},
		{ID: "p2", Title: "Crop yield forecasting", Year: 2022, Status: types.StatusAwaitingPDF},
		{ID: "p3", Title: "Irrigation scheduling", Year: 2021, Status: types.StatusScreenedOut, ExclusionReason: types.ReasonIrrelevantTopic},
	} {
		require.NoError(t, st.Save(ctx, p))
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg, "litreview")
	ing := acquire.NewIngester(st, types.AcquisitionConfig{}, zerolog.Nop(), metrics)
	pdfDir := t.TempDir()

	srv := New(types.ServerConfig{Address: "127.0.0.1:0"}, st, ing, pdfDir, reg, zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return fixture{ts: ts, store: st, pdfDir: pdfDir}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, wantStatus, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func TestHealthz(t *testing.T) {
	f := setup(t)
	var body map[string]string
	getJSON(t, f.ts.URL+"/healthz", http.StatusOK, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestListPapers(t *testing.T) {
	f := setup(t)

	var all struct {
		Papers []types.Paper `json:"papers"`
		Count  int           `json:"count"`
	}
	getJSON(t, f.ts.URL+"/papers", http.StatusOK, &all)
	assert.Equal(t, 3, all.Count)

	var awaiting struct {
		Count int `json:"count"`
	}
	getJSON(t, f.ts.URL+"/papers?status=awaiting_pdf", http.StatusOK, &awaiting)
	assert.Equal(t, 2, awaiting.Count)

	getJSON(t, f.ts.URL+"/papers?status=lost", http.StatusBadRequest, nil)
}

func TestGetPaper(t *testing.T) {
	f := setup(t)
	var p types.Paper
	getJSON(t, f.ts.URL+"/papers/p1", http.StatusOK, &p)
	assert.Equal(t, "10.1234/j.example.2023.001", p.DOI)

	getJSON(t, f.ts.URL+"/papers/nope", http.StatusNotFound, nil)
}

func TestFlow(t *testing.T) {
	f := setup(t)
	var stats struct {
		Identification struct {
			TotalRecords int `json:"total_records"`
		} `json:"identification"`
		Screening struct {
			RecordsExcluded int `json:"records_excluded"`
		} `json:"screening"`
	}
	getJSON(t, f.ts.URL+"/flow", http.StatusOK, &stats)
	assert.Equal(t, 3, stats.Identification.TotalRecords)
	assert.Equal(t, 1, stats.Screening.RecordsExcluded)

	resp, err := http.Get(f.ts.URL + "/flow?format=markdown")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "# PRISMA 2020 Flow Diagram"))

	getJSON(t, f.ts.URL+"/flow?format=docx", http.StatusBadRequest, nil)
}

func TestAcquisitionListAndIngest(t *testing.T) {
	f := setup(t)

	var list struct {
		Papers []acquire.ExportRecord `json:"papers"`
		Count  int                    `json:"count"`
	}
	getJSON(t, f.ts.URL+"/acquisition/list", http.StatusOK, &list)
	require.Equal(t, 2, list.Count)

	for _, rec := range list.Papers {
		require.NoError(t, os.WriteFile(filepath.Join(f.pdfDir, rec.SuggestedFilename), []byte("%PDF-1.4"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.pdfDir, "random_name.pdf"), []byte("%PDF-1.4"), 0o644))

	resp, err := http.Post(f.ts.URL+"/acquisition/ingest", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Matched        int      `json:"matched"`
		Unmatched      int      `json:"unmatched"`
		Errors         int      `json:"errors"`
		UnmatchedFiles []string `json:"unmatched_files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 1, result.Unmatched)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, []string{"random_name.pdf"}, result.UnmatchedFiles)

	var stats map[string]int
	getJSON(t, f.ts.URL+"/acquisition/stats", http.StatusOK, &stats)
	assert.Equal(t, 0, stats["awaiting_pdf"])
	assert.Equal(t, 2, stats["pdf_acquired"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := setup(t)
	resp, err := http.Post(f.ts.URL+"/acquisition/ingest", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(f.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "litreview_ingest_passes_total 1")
}

func TestRun(t *testing.T) {
	f := setup(t)
	ing := acquire.NewIngester(f.store, types.AcquisitionConfig{}, zerolog.Nop(), nil)
	srv := New(types.ServerConfig{Address: "127.0.0.1:0"}, f.store, ing, f.pdfDir, prometheus.NewRegistry(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
