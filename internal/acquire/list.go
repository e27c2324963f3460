// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/pkg/types"
)

// maxListedAuthors is how many authors an acquisition record carries.
const maxListedAuthors = 3

// ListColumns is the fixed column order of the acquisition list.
var ListColumns = []string{
	"paper_id",
	"title",
	"authors",
	"year",
	"journal",
	"doi",
	"doi_url",
	"publisher_url",
	"suggested_filename",
}

// Lister is the store query used to build the acquisition list.
type Lister interface {
	ListByStatus(ctx context.Context, status types.PaperStatus) ([]*types.Paper, error)
}

// ExportRecord is one row of the acquisition list.
type ExportRecord struct {
	PaperID           string `json:"paper_id" yaml:"paper_id"`
	Title             string `json:"title" yaml:"title"`
	Authors           string `json:"authors" yaml:"authors"`
	Year              int    `json:"year" yaml:"year"`
	Journal           string `json:"journal" yaml:"journal"`
	DOI               string `json:"doi" yaml:"doi"`
	DOIURL            string `json:"doi_url" yaml:"doi_url"`
	PublisherURL      string `json:"publisher_url" yaml:"publisher_url"`
	SuggestedFilename string `json:"suggested_filename" yaml:"suggested_filename"`
}

// row returns the record in ListColumns order.
func (r ExportRecord) row() []string {
	year := ""
	if r.Year != 0 {
		year = strconv.Itoa(r.Year)
	}
	return []string{
		r.PaperID,
		r.Title,
		r.Authors,
		year,
		r.Journal,
		r.DOI,
		r.DOIURL,
		r.PublisherURL,
		r.SuggestedFilename,
	}
}

// NewExportRecord builds the acquisition record for p.
func NewExportRecord(p *types.Paper) ExportRecord {
	authors := p.Authors
	if len(authors) > maxListedAuthors {
		authors = authors[:maxListedAuthors]
	}
	return ExportRecord{
		PaperID:           p.ID,
		Title:             p.Title,
		Authors:           strings.Join(authors, "; "),
		Year:              p.Year,
		Journal:           p.Journal,
		DOI:               p.DOI,
		DOIURL:            DOIURL(p.DOI),
		PublisherURL:      p.URL,
		SuggestedFilename: SuggestFilename(p),
	}
}

// BuildList returns one record per paper awaiting a PDF, in store order.
// It does not modify the store.
func BuildList(ctx context.Context, st Lister) ([]ExportRecord, error) {
	papers, err := st.ListByStatus(ctx, types.StatusAwaitingPDF)
	if err != nil {
		return nil, fmt.Errorf("listing papers awaiting pdf: %w", err)
	}
	records := make([]ExportRecord, len(papers))
	for i, p := range papers {
		records[i] = NewExportRecord(p)
	}
	return records, nil
}

// GenerateList writes the acquisition list to path in the given format
// and returns the number of records. When no paper awaits a PDF it
// returns 0 and writes nothing.
func GenerateList(ctx context.Context, st Lister, path string, format types.ListFormat) (int, error) {
	records, err := BuildList(ctx, st)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	err = writeAtomic(path, func(w io.Writer) error {
		return WriteList(w, records, format)
	})
	if err != nil {
		return 0, fmt.Errorf("writing acquisition list %s: %w", path, err)
	}
	return len(records), nil
}

// WriteList encodes records to w.
func WriteList(w io.Writer, records []ExportRecord, format types.ListFormat) error {
	switch format {
	case types.ListCSV, "":
		return writeCSV(w, records)
	case types.ListYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(records)
	case types.ListJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		return fmt.Errorf("unsupported list format %q", format)
	}
}

func writeCSV(w io.Writer, records []ExportRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ListColumns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeAtomic writes through a temp file in the destination directory and
// renames it into place on success.
func writeAtomic(destPath string, write func(io.Writer) error) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".litreview-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	writeErr := write(tmpFile)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return writeErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
