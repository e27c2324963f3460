// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

// doiBase resolves DOIs for the acquisition list. Declared as a var so
// tests can substitute an httptest server.
var doiBase = "https://doi.org/"

// pdfExt is the extension of suggested filenames.
const pdfExt = ".pdf"

// idPrefix marks filenames derived from a paper id rather than a DOI.
const idPrefix = "paper_"

var doiSlashes = strings.NewReplacer("/", "_", `\`, "_")

// NormalizeDOIForFilename replaces every "/" and "\" in doi with "_".
// Nothing else changes, so applying it twice gives the same result.
func NormalizeDOIForFilename(doi string) string {
	return doiSlashes.Replace(doi)
}

// SuggestFilename returns the canonical filename a downloaded PDF should
// be saved under: "<normalized doi>.pdf" when the paper has a DOI,
// "paper_<id>.pdf" otherwise. It does not modify p.
func SuggestFilename(p *types.Paper) string {
	if p.HasDOI() {
		return NormalizeDOIForFilename(p.DOI) + pdfExt
	}
	return idPrefix + p.ID + pdfExt
}

// DOIURL returns the resolver URL for doi, or "" when doi is empty.
func DOIURL(doi string) string {
	if doi == "" {
		return ""
	}
	return doiBase + doi
}

// Stem returns name without its final extension.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
