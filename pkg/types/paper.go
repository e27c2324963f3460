// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litreview pipeline.
// Paper is the record tracked through the PRISMA lifecycle; the stage
// configurations live in config.go.
package types

import (
	"strings"
	"time"
)

// PaperStatus is the PRISMA lifecycle state of a paper.
type PaperStatus string

const (
	// Identification and screening (abstract based).
	StatusDiscovered  PaperStatus = "discovered"
	StatusScreenedIn  PaperStatus = "screened_in"
	StatusScreenedOut PaperStatus = "screened_out"

	// Acquisition (human assisted).
	StatusAwaitingPDF PaperStatus = "awaiting_pdf"
	StatusPDFAcquired PaperStatus = "pdf_acquired"

	// Synthesis (full-text analysis).
	StatusTextExtracted PaperStatus = "text_extracted"
	StatusSynthesized   PaperStatus = "synthesized"

	// Quality control.
	StatusValidated PaperStatus = "validated"
	StatusRejected  PaperStatus = "rejected"
	StatusArchived  PaperStatus = "archived"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []PaperStatus{
	StatusDiscovered,
	StatusScreenedIn,
	StatusScreenedOut,
	StatusAwaitingPDF,
	StatusPDFAcquired,
	StatusTextExtracted,
	StatusSynthesized,
	StatusValidated,
	StatusRejected,
	StatusArchived,
}

// ExclusionReason records why a paper left the review.
type ExclusionReason string

const (
	// Abstract screening.
	ReasonIrrelevantTopic   ExclusionReason = "irrelevant_topic"
	ReasonWrongPopulation   ExclusionReason = "wrong_population"
	ReasonWrongIntervention ExclusionReason = "wrong_intervention"
	ReasonWrongStudyType    ExclusionReason = "wrong_study_type"
	ReasonNotPeerReviewed   ExclusionReason = "not_peer_reviewed"
	ReasonWrongLanguage     ExclusionReason = "wrong_language"
	ReasonDuplicate         ExclusionReason = "duplicate"

	// Full-text review.
	ReasonInsufficientData     ExclusionReason = "insufficient_data"
	ReasonPoorMethodology      ExclusionReason = "poor_methodology"
	ReasonCannotAccessFulltext ExclusionReason = "cannot_access_fulltext"
	ReasonRetracted            ExclusionReason = "retracted"

	ReasonOther ExclusionReason = "other"
)

// ExclusionReasons lists every known exclusion reason.
var ExclusionReasons = []ExclusionReason{
	ReasonIrrelevantTopic,
	ReasonWrongPopulation,
	ReasonWrongIntervention,
	ReasonWrongStudyType,
	ReasonNotPeerReviewed,
	ReasonWrongLanguage,
	ReasonDuplicate,
	ReasonInsufficientData,
	ReasonPoorMethodology,
	ReasonCannotAccessFulltext,
	ReasonRetracted,
	ReasonOther,
}

// PaperSource identifies where a paper was found.
type PaperSource string

const (
	SourceSemanticScholar PaperSource = "semantic_scholar"
	SourceCrossRef        PaperSource = "crossref"
	SourceArxiv           PaperSource = "arxiv"
	SourceDOI             PaperSource = "doi"
	SourceManual          PaperSource = "manual"
)

// Paper is a candidate study tracked through the review.
type Paper struct {
	// ID is assigned at discovery time (the DOI when present, else a
	// synthetic id) and never changes.
	ID string `json:"id" yaml:"id" validate:"required"`

	Title    string   `json:"title" yaml:"title" validate:"required,min=5"`
	Authors  []string `json:"authors" yaml:"authors"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// DOI is globally unique when present and stored in normalized form.
	DOI    string `json:"doi,omitempty" yaml:"doi,omitempty" validate:"omitempty,startswith=10."`
	URL    string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,http_url"`
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty" validate:"omitempty,http_url"`

	Year       int    `json:"year" yaml:"year" validate:"gte=1900,lte=2100"`
	Journal    string `json:"journal,omitempty" yaml:"journal,omitempty"`
	Conference string `json:"conference,omitempty" yaml:"conference,omitempty"`
	Volume     string `json:"volume,omitempty" yaml:"volume,omitempty"`
	Issue      string `json:"issue,omitempty" yaml:"issue,omitempty"`
	Pages      string `json:"pages,omitempty" yaml:"pages,omitempty"`

	Sources   []PaperSource     `json:"sources,omitempty" yaml:"sources,omitempty"`
	SourceIDs map[string]string `json:"source_ids,omitempty" yaml:"source_ids,omitempty"`

	Status       PaperStatus `json:"status" yaml:"status"`
	DiscoveredAt time.Time   `json:"discovered_at" yaml:"discovered_at"`
	LastUpdated  time.Time   `json:"last_updated" yaml:"last_updated"`

	// ExclusionReason and ExclusionNotes are set only for screened_out
	// and rejected papers.
	ExclusionReason ExclusionReason `json:"exclusion_reason,omitempty" yaml:"exclusion_reason,omitempty"`
	ExclusionNotes  string          `json:"exclusion_notes,omitempty" yaml:"exclusion_notes,omitempty"`

	CitationCount  int      `json:"citation_count" yaml:"citation_count" validate:"gte=0"`
	RelevanceScore *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	QualityScore   *float64 `json:"quality_score,omitempty" yaml:"quality_score,omitempty" validate:"omitempty,gte=0,lte=1"`

	// PDFPath is the absolute path of the acquired PDF. It is set once,
	// when the paper enters pdf_acquired.
	PDFPath string `json:"pdf_path,omitempty" yaml:"pdf_path,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// HasDOI reports whether the paper carries a DOI.
func (p *Paper) HasDOI() bool {
	return p.DOI != ""
}

var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// NormalizeDOI trims whitespace and strips resolver URL and "doi:" prefixes.
// Case is preserved; lookups compare DOIs exactly.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(doi[len(prefix):])
		}
	}
	return doi
}
