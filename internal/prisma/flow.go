// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prisma aggregates paper counts per PRISMA 2020 stage and
// renders them as flow reports. It only reads papers.
package prisma

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/pdiddy/litreview/pkg/types"
)

// Count is a labelled tally.
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Identification covers records found by searches.
type Identification struct {
	TotalRecords      int     `json:"total_records" yaml:"total_records"`
	RecordsBySource   []Count `json:"records_by_source" yaml:"records_by_source"`
	DuplicatesRemoved int     `json:"duplicates_removed" yaml:"duplicates_removed"`
}

// Screening covers title and abstract screening.
type Screening struct {
	RecordsScreened  int     `json:"records_screened" yaml:"records_screened"`
	RecordsExcluded  int     `json:"records_excluded" yaml:"records_excluded"`
	ExclusionReasons []Count `json:"exclusion_reasons" yaml:"exclusion_reasons"`
}

// Eligibility covers full-text retrieval and assessment.
type Eligibility struct {
	ReportsSought            int     `json:"reports_sought" yaml:"reports_sought"`
	ReportsNotRetrieved      int     `json:"reports_not_retrieved" yaml:"reports_not_retrieved"`
	ReportsAssessed          int     `json:"reports_assessed" yaml:"reports_assessed"`
	ReportsExcluded          int     `json:"reports_excluded" yaml:"reports_excluded"`
	FullTextExclusionReasons []Count `json:"fulltext_exclusion_reasons" yaml:"fulltext_exclusion_reasons"`
}

// Included covers studies in the final synthesis.
type Included struct {
	StudiesIncluded int `json:"studies_included" yaml:"studies_included"`
}

// FlowStats holds the counts for a PRISMA flow diagram.
type FlowStats struct {
	Identification Identification `json:"identification" yaml:"identification"`
	Screening      Screening      `json:"screening" yaml:"screening"`
	Eligibility    Eligibility    `json:"eligibility" yaml:"eligibility"`
	Included       Included       `json:"included" yaml:"included"`
}

var (
	screened = statusSet(
		types.StatusScreenedIn, types.StatusScreenedOut, types.StatusAwaitingPDF,
		types.StatusPDFAcquired, types.StatusTextExtracted, types.StatusSynthesized,
		types.StatusValidated, types.StatusArchived,
	)
	sought = statusSet(
		types.StatusAwaitingPDF, types.StatusPDFAcquired, types.StatusTextExtracted,
		types.StatusSynthesized, types.StatusValidated, types.StatusArchived,
	)
	assessed = statusSet(
		types.StatusPDFAcquired, types.StatusTextExtracted, types.StatusSynthesized,
		types.StatusValidated, types.StatusArchived, types.StatusRejected,
	)
	included = statusSet(types.StatusValidated, types.StatusArchived)
)

func statusSet(statuses ...types.PaperStatus) map[types.PaperStatus]bool {
	m := make(map[types.PaperStatus]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

// Lister is the store query the reporter needs.
type Lister interface {
	All(ctx context.Context) ([]*types.Paper, error)
}

// Load reads every paper from st and computes its flow statistics.
func Load(ctx context.Context, st Lister) (FlowStats, error) {
	papers, err := st.All(ctx)
	if err != nil {
		return FlowStats{}, fmt.Errorf("loading papers: %w", err)
	}
	return Compute(papers), nil
}

// Compute aggregates papers into flow statistics.
//
// Rejected papers count as assessed but not as sought. Papers excluded
// as duplicates are also reported under duplicates removed.
func Compute(papers []*types.Paper) FlowStats {
	var s FlowStats
	sources := map[string]int{}
	screenReasons := map[string]int{}
	fullTextReasons := map[string]int{}

	s.Identification.TotalRecords = len(papers)
	for _, p := range papers {
		for _, src := range p.Sources {
			sources[string(src)]++
		}
		if p.ExclusionReason == types.ReasonDuplicate {
			s.Identification.DuplicatesRemoved++
		}

		if screened[p.Status] {
			s.Screening.RecordsScreened++
		}
		if p.Status == types.StatusScreenedOut {
			s.Screening.RecordsExcluded++
			if p.ExclusionReason != "" {
				screenReasons[string(p.ExclusionReason)]++
			}
		}

		if sought[p.Status] {
			s.Eligibility.ReportsSought++
		}
		if p.Status == types.StatusAwaitingPDF {
			s.Eligibility.ReportsNotRetrieved++
		}
		if assessed[p.Status] {
			s.Eligibility.ReportsAssessed++
		}
		if p.Status == types.StatusRejected {
			s.Eligibility.ReportsExcluded++
			if p.ExclusionReason != "" {
				fullTextReasons[string(p.ExclusionReason)]++
			}
		}

		if included[p.Status] {
			s.Included.StudiesIncluded++
		}
	}

	s.Identification.RecordsBySource = byName(sources)
	s.Screening.ExclusionReasons = byCount(screenReasons)
	s.Eligibility.FullTextExclusionReasons = byCount(fullTextReasons)
	return s
}

// byName returns counts sorted by name.
func byName(m map[string]int) []Count {
	out := toCounts(m)
	slices.SortFunc(out, func(a, b Count) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// byCount returns counts sorted by descending count, then name.
func byCount(m map[string]int) []Count {
	out := toCounts(m)
	slices.SortFunc(out, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func toCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	return out
}

// AcquisitionSummary counts papers around the PDF acquisition stage.
type AcquisitionSummary struct {
	AwaitingPDF   int `json:"awaiting_pdf" yaml:"awaiting_pdf"`
	PDFAcquired   int `json:"pdf_acquired" yaml:"pdf_acquired"`
	TextExtracted int `json:"text_extracted" yaml:"text_extracted"`
}

// Counter is the store query behind AcquisitionStats.
type Counter interface {
	CountByStatus(ctx context.Context) (map[types.PaperStatus]int, error)
}

// AcquisitionStats returns the acquisition summary from per-status counts.
func AcquisitionStats(ctx context.Context, st Counter) (AcquisitionSummary, error) {
	counts, err := st.CountByStatus(ctx)
	if err != nil {
		return AcquisitionSummary{}, fmt.Errorf("counting papers: %w", err)
	}
	return AcquisitionSummary{
		AwaitingPDF:   counts[types.StatusAwaitingPDF],
		PDFAcquired:   counts[types.StatusPDFAcquired],
		TextExtracted: counts[types.StatusTextExtracted],
	}, nil
}
