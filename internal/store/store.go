// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists Paper records in SQLite.
//
// Papers are keyed by id and by a secondary unique DOI. The store compares
// DOIs exactly; callers normalize with types.NormalizeDOI before saving.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/litreview/internal/lifecycle"
	"github.com/pdiddy/litreview/pkg/types"
)

var (
	// ErrNotFound is returned when no paper matches a lookup.
	ErrNotFound = errors.New("paper not found")

	// ErrDuplicateDOI is returned when saving a paper whose DOI belongs to
	// another paper.
	ErrDuplicateDOI = errors.New("doi already owned by another paper")
)

// timeLayout is fixed width so stored timestamps sort lexically in time
// order. Reads parse with time.RFC3339Nano, which accepts any fraction.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the paper database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at cfg.Path and creates the
// schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors TEXT NOT NULL DEFAULT '[]',
			abstract TEXT,
			doi TEXT UNIQUE,
			url TEXT,
			pdf_url TEXT,
			year INTEGER NOT NULL,
			journal TEXT,
			conference TEXT,
			volume TEXT,
			issue TEXT,
			pages TEXT,
			sources TEXT NOT NULL DEFAULT '[]',
			source_ids TEXT NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'discovered',
			discovered_at TEXT NOT NULL,
			last_updated TEXT NOT NULL,
			exclusion_reason TEXT,
			exclusion_notes TEXT,
			citation_count INTEGER DEFAULT 0,
			relevance_score REAL,
			quality_score REAL,
			pdf_path TEXT,
			metadata TEXT DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

const paperColumns = `id, title, authors, abstract, doi, url, pdf_url, year, journal,
	conference, volume, issue, pages, sources, source_ids, status, discovered_at,
	last_updated, exclusion_reason, exclusion_notes, citation_count,
	relevance_score, quality_score, pdf_path, metadata`

// Save inserts p or updates the existing record with the same id. The id
// and discovered_at of an existing record are never changed.
func (s *Store) Save(ctx context.Context, p *types.Paper) error {
	args, err := saveArgs(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO papers (`+paperColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET `+updateColumns,
		args...,
	)
	return saveError(p, err)
}

// SaveIfStatus updates the existing record of p only if its stored status
// is still from. It reports whether the row was written; false means the
// paper is missing or another writer moved it first. The check and the
// write are one statement, so concurrent processes cannot both succeed.
func (s *Store) SaveIfStatus(ctx context.Context, p *types.Paper, from types.PaperStatus) (bool, error) {
	args, err := saveArgs(p)
	if err != nil {
		return false, err
	}
	// args minus id (0) and discovered_at (16), then the WHERE values.
	set := append(append([]any{}, args[1:16]...), args[17:]...)
	res, err := s.db.ExecContext(ctx,
		`UPDATE papers SET
			title=?, authors=?, abstract=?, doi=?, url=?, pdf_url=?, year=?, journal=?,
			conference=?, volume=?, issue=?, pages=?, sources=?, source_ids=?, status=?,
			last_updated=?, exclusion_reason=?, exclusion_notes=?, citation_count=?,
			relevance_score=?, quality_score=?, pdf_path=?, metadata=?
		 WHERE id = ? AND status = ?`,
		append(set, p.ID, string(from))...,
	)
	if err := saveError(p, err); err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("saving paper %s: %w", p.ID, err)
	}
	return n == 1, nil
}

// updateColumns overwrites every mutable column from the conflicting row.
const updateColumns = `title=excluded.title, authors=excluded.authors, abstract=excluded.abstract,
			doi=excluded.doi, url=excluded.url, pdf_url=excluded.pdf_url, year=excluded.year,
			journal=excluded.journal, conference=excluded.conference, volume=excluded.volume,
			issue=excluded.issue, pages=excluded.pages, sources=excluded.sources,
			source_ids=excluded.source_ids, status=excluded.status,
			last_updated=excluded.last_updated, exclusion_reason=excluded.exclusion_reason,
			exclusion_notes=excluded.exclusion_notes, citation_count=excluded.citation_count,
			relevance_score=excluded.relevance_score, quality_score=excluded.quality_score,
			pdf_path=excluded.pdf_path, metadata=excluded.metadata`

// saveArgs validates p, fills missing timestamps, and returns the column
// values in paperColumns order.
func saveArgs(p *types.Paper) ([]any, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("saving paper: empty id")
	}
	if !lifecycle.Valid(p.Status) {
		return nil, fmt.Errorf("saving paper %s: %w: %q", p.ID, lifecycle.ErrUnknownStatus, p.Status)
	}

	now := time.Now().UTC()
	if p.DiscoveredAt.IsZero() {
		p.DiscoveredAt = now
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = now
	}

	authors, _ := json.Marshal(nonNilStrings(p.Authors))
	sources, _ := json.Marshal(nonNilSources(p.Sources))
	sourceIDs, _ := json.Marshal(nonNilMap(p.SourceIDs))
	metadata, _ := json.Marshal(nonNilMap(p.Metadata))

	return []any{
		p.ID, p.Title, string(authors), nullString(p.Abstract), nullString(p.DOI),
		nullString(p.URL), nullString(p.PDFURL), p.Year, nullString(p.Journal),
		nullString(p.Conference), nullString(p.Volume), nullString(p.Issue), nullString(p.Pages),
		string(sources), string(sourceIDs), string(p.Status),
		formatTime(p.DiscoveredAt), formatTime(p.LastUpdated),
		nullString(string(p.ExclusionReason)), nullString(p.ExclusionNotes), p.CitationCount,
		nullFloat(p.RelevanceScore), nullFloat(p.QualityScore), nullString(p.PDFPath),
		string(metadata),
	}, nil
}

func saveError(p *types.Paper, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) && strings.Contains(err.Error(), "papers.doi") {
		return fmt.Errorf("saving paper %s: %w: %s", p.ID, ErrDuplicateDOI, p.DOI)
	}
	return fmt.Errorf("saving paper %s: %w", p.ID, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Get returns the paper with the given id.
func (s *Store) Get(ctx context.Context, id string) (*types.Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading paper %s: %w", id, err)
	}
	return p, nil
}

// GetByDOI returns the paper owning doi. The match is exact and case-sensitive.
func (s *Store) GetByDOI(ctx context.Context, doi string) (*types.Paper, error) {
	if doi == "" {
		return nil, fmt.Errorf("%w: empty doi", ErrNotFound)
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE doi = ?`, doi)
	p, err := scanPaper(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: doi %s", ErrNotFound, doi)
	}
	if err != nil {
		return nil, fmt.Errorf("reading paper by doi %s: %w", doi, err)
	}
	return p, nil
}

// ListByStatus returns every paper in status, most recently updated first.
func (s *Store) ListByStatus(ctx context.Context, status types.PaperStatus) ([]*types.Paper, error) {
	return s.query(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE status = ? ORDER BY last_updated DESC, id`,
		string(status))
}

// All returns every paper, most recently updated first.
func (s *Store) All(ctx context.Context) ([]*types.Paper, error) {
	return s.query(ctx, `SELECT `+paperColumns+` FROM papers ORDER BY last_updated DESC, id`)
}

// CountByStatus returns the number of papers per status. Statuses with no
// papers are present with a zero count.
func (s *Store) CountByStatus(ctx context.Context) (map[types.PaperStatus]int, error) {
	counts := make(map[types.PaperStatus]int, len(types.AllStatuses))
	for _, st := range types.AllStatuses {
		counts[st] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, count(*) FROM papers GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[types.PaperStatus(status)] = n
	}
	return counts, rows.Err()
}

// Delete removes the paper with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting paper %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*types.Paper, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	var papers []*types.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(sc scanner) (*types.Paper, error) {
	var (
		p                                             types.Paper
		authors, sources, sourceIDs, status           string
		discoveredAt, lastUpdated                     string
		abstract, doi, url, pdfURL, journal           sql.NullString
		conference, volume, issue, pages              sql.NullString
		exclusionReason, exclusionNotes, pdfPath, md  sql.NullString
		citationCount                                 sql.NullInt64
		relevance, quality                            sql.NullFloat64
	)
	err := sc.Scan(
		&p.ID, &p.Title, &authors, &abstract, &doi, &url, &pdfURL, &p.Year, &journal,
		&conference, &volume, &issue, &pages, &sources, &sourceIDs, &status, &discoveredAt,
		&lastUpdated, &exclusionReason, &exclusionNotes, &citationCount,
		&relevance, &quality, &pdfPath, &md,
	)
	if err != nil {
		return nil, err
	}

	p.Abstract = abstract.String
	p.DOI = doi.String
	p.URL = url.String
	p.PDFURL = pdfURL.String
	p.Journal = journal.String
	p.Conference = conference.String
	p.Volume = volume.String
	p.Issue = issue.String
	p.Pages = pages.String
	p.Status = types.PaperStatus(status)
	p.ExclusionReason = types.ExclusionReason(exclusionReason.String)
	p.ExclusionNotes = exclusionNotes.String
	p.CitationCount = int(citationCount.Int64)
	p.PDFPath = pdfPath.String
	if relevance.Valid {
		v := relevance.Float64
		p.RelevanceScore = &v
	}
	if quality.Valid {
		v := quality.Float64
		p.QualityScore = &v
	}

	if err := json.Unmarshal([]byte(authors), &p.Authors); err != nil {
		return nil, fmt.Errorf("decoding authors of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(sources), &p.Sources); err != nil {
		return nil, fmt.Errorf("decoding sources of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(sourceIDs), &p.SourceIDs); err != nil {
		return nil, fmt.Errorf("decoding source ids of %s: %w", p.ID, err)
	}
	if md.Valid && md.String != "" {
		if err := json.Unmarshal([]byte(md.String), &p.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", p.ID, err)
		}
	}

	if p.DiscoveredAt, err = time.Parse(time.RFC3339Nano, discoveredAt); err != nil {
		return nil, fmt.Errorf("parsing discovered_at of %s: %w", p.ID, err)
	}
	if p.LastUpdated, err = time.Parse(time.RFC3339Nano, lastUpdated); err != nil {
		return nil, fmt.Errorf("parsing last_updated of %s: %w", p.ID, err)
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// nullString maps "" to NULL so that the UNIQUE doi column admits any
// number of DOI-less papers.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilSources(s []types.PaperSource) []types.PaperSource {
	if s == nil {
		return []types.PaperSource{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
