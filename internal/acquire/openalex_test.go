// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/pkg/types"
)

const sampleOpenAlexOA = `{
  "id": "https://openalex.org/W1234567890",
  "doi": "https://doi.org/10.1145/1234567.1234568",
  "best_oa_location": {
    "pdf_url": "https://example.com/oa-paper.pdf",
    "landing_page_url": "https://example.com/paper-landing",
    "is_oa": true
  }
}`

const sampleOpenAlexNoOA = `{
  "id": "https://openalex.org/W9999999999",
  "best_oa_location": null,
  "locations": []
}`

const sampleOpenAlexSecondaryLocation = `{
  "id": "https://openalex.org/W2222222222",
  "best_oa_location": {"pdf_url": "", "landing_page_url": "https://example.com/landing", "is_oa": true},
  "locations": [
    {"pdf_url": "https://paywall.example.com/x.pdf", "is_oa": false},
    {"pdf_url": "https://repo.example.org/x.pdf", "is_oa": true}
  ]
}`

func testFetcher(client *http.Client) *Fetcher {
	cfg := types.AcquisitionConfig{
		HTTPConfig:        types.HTTPConfig{Timeout: 10 * time.Second, UserAgent: "litreview-test/0.1"},
		ResolveOpenAccess: true,
		Mailto:            "review@example.org",
	}
	return NewFetcher(client, cfg, zerolog.Nop(), nil)
}

func TestResolveOpenAccessURL(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		statusCode int
		wantURL    string
		wantErr    bool
	}{
		{"best oa location", sampleOpenAlexOA, http.StatusOK, "https://example.com/oa-paper.pdf", false},
		{"no oa location", sampleOpenAlexNoOA, http.StatusOK, "", false},
		{"falls back to open locations", sampleOpenAlexSecondaryLocation, http.StatusOK, "https://repo.example.org/x.pdf", false},
		{"unknown work", `{"error": "not found"}`, http.StatusNotFound, "", false},
		{"server error", `oops`, http.StatusInternalServerError, "", true},
		{"malformed body", `{`, http.StatusOK, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotQuery string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
				w.WriteHeader(tt.statusCode)
				fmt.Fprint(w, tt.response)
			}))
			defer ts.Close()

			origBase := openAlexAPIBase
			openAlexAPIBase = ts.URL + "/works/"
			defer func() { openAlexAPIBase = origBase }()

			got, err := testFetcher(ts.Client()).resolveOpenAccessURL(context.Background(), "10.1145/1234567.1234568")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveOpenAccessURL: %v", err)
			}
			if got != tt.wantURL {
				t.Errorf("resolveOpenAccessURL() = %q, want %q", got, tt.wantURL)
			}
			if !strings.HasSuffix(gotPath, "10.1145/1234567.1234568") {
				t.Errorf("request path = %q, want the DOI URL appended", gotPath)
			}
			if !strings.Contains(gotQuery, "mailto=review%40example.org") {
				t.Errorf("query = %q, want mailto", gotQuery)
			}
		})
	}
}

func TestResolveOpenAccessURLNetworkError(t *testing.T) {
	origBase := openAlexAPIBase
	openAlexAPIBase = "http://127.0.0.1:1/"
	defer func() { openAlexAPIBase = origBase }()

	if _, err := testFetcher(http.DefaultClient).resolveOpenAccessURL(context.Background(), "10.1145/1234567"); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}
