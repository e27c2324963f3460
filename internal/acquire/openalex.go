// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/litreview/internal/httputil"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works/"

type openAlexWork struct {
	BestOALocation *openAlexLocation  `json:"best_oa_location"`
	Locations      []openAlexLocation `json:"locations"`
}

type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
	IsOA       bool   `json:"is_oa"`
}

// resolveOpenAccessURL asks OpenAlex for an open-access PDF of doi. It
// returns "" with a nil error when the work has no open-access PDF.
func (f *Fetcher) resolveOpenAccessURL(ctx context.Context, doi string) (string, error) {
	apiURL := openAlexAPIBase + DOIURL(doi)
	if f.cfg.Mailto != "" {
		apiURL += "?mailto=" + url.QueryEscape(f.cfg.Mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating OpenAlex request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var work openAlexWork
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return "", fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	if work.BestOALocation != nil && work.BestOALocation.PDFURL != "" {
		return work.BestOALocation.PDFURL, nil
	}
	for _, loc := range work.Locations {
		if loc.IsOA && loc.PDFURL != "" {
			return loc.PDFURL, nil
		}
	}
	return "", nil
}
