// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prisma

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pdiddy/litreview/pkg/types"
)

const rule = "================================================================================"

// reasonLabel turns "wrong_study_type" into "Wrong Study Type".
func reasonLabel(reason string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(reason, "_", " "))
}

// Extension returns the file extension for a report format.
func Extension(format types.ReportFormat) string {
	switch format {
	case types.ReportMarkdown:
		return ".md"
	case types.ReportCSV:
		return ".csv"
	case types.ReportYAML:
		return ".yaml"
	default:
		return ".txt"
	}
}

// Render writes s to w in the given format.
func Render(w io.Writer, s FlowStats, format types.ReportFormat) error {
	switch format {
	case types.ReportText, "":
		return WriteText(w, s)
	case types.ReportMarkdown:
		return WriteMarkdown(w, s)
	case types.ReportCSV:
		return WriteCSV(w, s)
	case types.ReportYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(s)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// WriteText writes the plain-text flow report.
func WriteText(w io.Writer, s FlowStats) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nPRISMA 2020 FLOW DIAGRAM\n%s\n\n", rule, rule)

	section(&b, "IDENTIFICATION")
	fmt.Fprintf(&b, "Records identified from databases: %d\n", s.Identification.TotalRecords)
	if len(s.Identification.RecordsBySource) > 0 {
		b.WriteString("\nRecords by source:\n")
		for _, c := range s.Identification.RecordsBySource {
			fmt.Fprintf(&b, "  - %s: %d\n", c.Name, c.Count)
		}
	}
	if s.Identification.DuplicatesRemoved > 0 {
		fmt.Fprintf(&b, "\nDuplicates removed: %d\n", s.Identification.DuplicatesRemoved)
	}
	b.WriteString("\n")

	section(&b, "SCREENING")
	fmt.Fprintf(&b, "Records screened: %d\n", s.Screening.RecordsScreened)
	fmt.Fprintf(&b, "Records excluded: %d\n", s.Screening.RecordsExcluded)
	textReasons(&b, "Exclusion reasons (abstract screening):", s.Screening.ExclusionReasons)
	b.WriteString("\n")

	section(&b, "ELIGIBILITY")
	fmt.Fprintf(&b, "Reports sought for retrieval: %d\n", s.Eligibility.ReportsSought)
	fmt.Fprintf(&b, "Reports not retrieved: %d\n", s.Eligibility.ReportsNotRetrieved)
	fmt.Fprintf(&b, "Reports assessed for eligibility: %d\n", s.Eligibility.ReportsAssessed)
	fmt.Fprintf(&b, "Reports excluded: %d\n", s.Eligibility.ReportsExcluded)
	textReasons(&b, "Exclusion reasons (full-text review):", s.Eligibility.FullTextExclusionReasons)
	b.WriteString("\n")

	section(&b, "INCLUDED")
	fmt.Fprintf(&b, "Studies included in review: %d\n\n%s\n", s.Included.StudiesIncluded, rule)

	_, err := io.WriteString(w, b.String())
	return err
}

func section(b *strings.Builder, name string) {
	fmt.Fprintf(b, "%s\n%s\n", name, strings.Repeat("-", 40))
}

func textReasons(b *strings.Builder, heading string, reasons []Count) {
	if len(reasons) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", heading)
	for _, c := range reasons {
		fmt.Fprintf(b, "  - %s: %d\n", reasonLabel(c.Name), c.Count)
	}
}

// WriteMarkdown writes the flow report as a Markdown document.
func WriteMarkdown(w io.Writer, s FlowStats) error {
	var b strings.Builder
	b.WriteString("# PRISMA 2020 Flow Diagram\n\n")

	b.WriteString("## Identification\n\n")
	fmt.Fprintf(&b, "**Records identified from databases:** %d\n\n", s.Identification.TotalRecords)
	if len(s.Identification.RecordsBySource) > 0 {
		b.WriteString("### Records by source\n\n")
		for _, c := range s.Identification.RecordsBySource {
			fmt.Fprintf(&b, "- %s: %d\n", c.Name, c.Count)
		}
		b.WriteString("\n")
	}
	if s.Identification.DuplicatesRemoved > 0 {
		fmt.Fprintf(&b, "**Duplicates removed:** %d\n\n", s.Identification.DuplicatesRemoved)
	}
	b.WriteString("↓\n\n")

	b.WriteString("## Screening\n\n")
	fmt.Fprintf(&b, "**Records screened:** %d\n\n", s.Screening.RecordsScreened)
	fmt.Fprintf(&b, "**Records excluded (%d):**\n", s.Screening.RecordsExcluded)
	mdReasons(&b, s.Screening.ExclusionReasons)
	b.WriteString("\n↓\n\n")

	b.WriteString("## Eligibility\n\n")
	fmt.Fprintf(&b, "**Reports sought for retrieval:** %d\n", s.Eligibility.ReportsSought)
	fmt.Fprintf(&b, "**Reports not retrieved:** %d\n\n", s.Eligibility.ReportsNotRetrieved)
	fmt.Fprintf(&b, "**Reports assessed for eligibility:** %d\n\n", s.Eligibility.ReportsAssessed)
	fmt.Fprintf(&b, "**Reports excluded (%d):**\n", s.Eligibility.ReportsExcluded)
	mdReasons(&b, s.Eligibility.FullTextExclusionReasons)
	b.WriteString("\n↓\n\n")

	b.WriteString("## Included\n\n")
	fmt.Fprintf(&b, "**Studies included in review:** %d\n", s.Included.StudiesIncluded)

	_, err := io.WriteString(w, b.String())
	return err
}

func mdReasons(b *strings.Builder, reasons []Count) {
	for _, c := range reasons {
		fmt.Fprintf(b, "- %s: %d\n", reasonLabel(c.Name), c.Count)
	}
}

// WriteCSV writes the flow statistics as Stage,Metric,Count rows.
func WriteCSV(w io.Writer, s FlowStats) error {
	rows := [][]string{
		{"Stage", "Metric", "Count"},
		row("Identification", "Total Records", s.Identification.TotalRecords),
	}
	for _, c := range s.Identification.RecordsBySource {
		rows = append(rows, row("Identification", "Records from "+c.Name, c.Count))
	}
	rows = append(rows,
		row("Identification", "Duplicates Removed", s.Identification.DuplicatesRemoved),
		row("Screening", "Records Screened", s.Screening.RecordsScreened),
		row("Screening", "Records Excluded", s.Screening.RecordsExcluded),
	)
	for _, c := range s.Screening.ExclusionReasons {
		rows = append(rows, row("Screening", "Excluded: "+c.Name, c.Count))
	}
	rows = append(rows,
		row("Eligibility", "Reports Sought", s.Eligibility.ReportsSought),
		row("Eligibility", "Reports Not Retrieved", s.Eligibility.ReportsNotRetrieved),
		row("Eligibility", "Reports Assessed", s.Eligibility.ReportsAssessed),
		row("Eligibility", "Reports Excluded", s.Eligibility.ReportsExcluded),
	)
	for _, c := range s.Eligibility.FullTextExclusionReasons {
		rows = append(rows, row("Eligibility", "Excluded: "+c.Name, c.Count))
	}
	rows = append(rows, row("Included", "Studies Included", s.Included.StudiesIncluded))

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func row(stage, metric string, n int) []string {
	return []string{stage, metric, strconv.Itoa(n)}
}
