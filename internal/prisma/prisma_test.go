// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prisma

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/pkg/types"
)

func paper(status types.PaperStatus, reason types.ExclusionReason, sources ...types.PaperSource) *types.Paper {
	return &types.Paper{Status: status, ExclusionReason: reason, Sources: sources}
}

func samplePapers() []*types.Paper {
	return []*types.Paper{
		paper(types.StatusDiscovered, "", types.SourceSemanticScholar),
		paper(types.StatusScreenedIn, "", types.SourceSemanticScholar),
		paper(types.StatusScreenedOut, types.ReasonIrrelevantTopic, types.SourceSemanticScholar),
		paper(types.StatusScreenedOut, types.ReasonIrrelevantTopic, types.SourceCrossRef),
		paper(types.StatusScreenedOut, types.ReasonDuplicate, types.SourceCrossRef),
		paper(types.StatusAwaitingPDF, "", types.SourceArxiv),
		paper(types.StatusPDFAcquired, "", types.SourceArxiv, types.SourceCrossRef),
		paper(types.StatusTextExtracted, ""),
		paper(types.StatusRejected, types.ReasonPoorMethodology),
		paper(types.StatusValidated, ""),
		paper(types.StatusArchived, ""),
	}
}

func TestCompute(t *testing.T) {
	s := Compute(samplePapers())

	assert.Equal(t, 11, s.Identification.TotalRecords)
	assert.Equal(t, []Count{
		{"arxiv", 2},
		{"crossref", 3},
		{"semantic_scholar", 3},
	}, s.Identification.RecordsBySource)
	assert.Equal(t, 1, s.Identification.DuplicatesRemoved)

	assert.Equal(t, 9, s.Screening.RecordsScreened)
	assert.Equal(t, 3, s.Screening.RecordsExcluded)
	assert.Equal(t, []Count{{"irrelevant_topic", 2}, {"duplicate", 1}}, s.Screening.ExclusionReasons)

	assert.Equal(t, 5, s.Eligibility.ReportsSought)
	assert.Equal(t, 1, s.Eligibility.ReportsNotRetrieved)
	assert.Equal(t, 5, s.Eligibility.ReportsAssessed)
	assert.Equal(t, 1, s.Eligibility.ReportsExcluded)
	assert.Equal(t, []Count{{"poor_methodology", 1}}, s.Eligibility.FullTextExclusionReasons)

	assert.Equal(t, 2, s.Included.StudiesIncluded)
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	assert.Zero(t, s.Identification.TotalRecords)
	assert.Empty(t, s.Screening.ExclusionReasons)
	assert.Zero(t, s.Included.StudiesIncluded)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Compute(samplePapers())))
	out := buf.String()

	assert.Contains(t, out, "PRISMA 2020 FLOW DIAGRAM")
	assert.Contains(t, out, "Records identified from databases: 11")
	assert.Contains(t, out, "  - Irrelevant Topic: 2")
	assert.Contains(t, out, "Reports not retrieved: 1")
	assert.Contains(t, out, "  - Poor Methodology: 1")
	assert.Contains(t, out, "Studies included in review: 2")
	assert.Less(t, strings.Index(out, "Irrelevant Topic"), strings.Index(out, "Duplicate: 1"))
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, Compute(samplePapers())))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# PRISMA 2020 Flow Diagram\n"))
	assert.Contains(t, out, "**Records excluded (3):**")
	assert.Contains(t, out, "- semantic_scholar: 3")
	assert.Contains(t, out, "**Studies included in review:** 2")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Compute(samplePapers())))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Stage", "Metric", "Count"}, rows[0])
	assert.Equal(t, []string{"Identification", "Total Records", "11"}, rows[1])
	assert.Contains(t, rows, []string{"Screening", "Excluded: irrelevant_topic", "2"})
	assert.Contains(t, rows, []string{"Eligibility", "Reports Assessed", "5"})
	assert.Equal(t, []string{"Included", "Studies Included", "2"}, rows[len(rows)-1])
}

func TestRenderYAML(t *testing.T) {
	want := Compute(samplePapers())
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, want, types.ReportYAML))

	var got FlowStats
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, want, got)
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, FlowStats{}, types.ReportFormat("pdf")))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".md", Extension(types.ReportMarkdown))
	assert.Equal(t, ".csv", Extension(types.ReportCSV))
	assert.Equal(t, ".yaml", Extension(types.ReportYAML))
	assert.Equal(t, ".txt", Extension(types.ReportText))
}

type fakeStore struct {
	papers []*types.Paper
	err    error
}

func (f fakeStore) All(context.Context) ([]*types.Paper, error) { return f.papers, f.err }

func (f fakeStore) CountByStatus(context.Context) (map[types.PaperStatus]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := map[types.PaperStatus]int{}
	for _, p := range f.papers {
		counts[p.Status]++
	}
	return counts, nil
}

func TestLoadAndAcquisitionStats(t *testing.T) {
	st := fakeStore{papers: samplePapers()}

	s, err := Load(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, 11, s.Identification.TotalRecords)

	sum, err := AcquisitionStats(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, AcquisitionSummary{AwaitingPDF: 1, PDFAcquired: 1, TextExtracted: 1}, sum)

	broken := fakeStore{err: errors.New("no database")}
	_, err = Load(context.Background(), broken)
	assert.Error(t, err)
	_, err = AcquisitionStats(context.Background(), broken)
	assert.Error(t, err)
}
