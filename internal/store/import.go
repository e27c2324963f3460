// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/internal/lifecycle"
	"github.com/pdiddy/litreview/pkg/types"
)

// importFile is the YAML document accepted by DecodePapers when papers are
// wrapped in a top-level "papers" key.
type importFile struct {
	Papers []*types.Paper `yaml:"papers"`
}

// DecodePapers reads papers from YAML, either a bare list or a document
// with a top-level "papers" list.
func DecodePapers(r io.Reader) ([]*types.Paper, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading papers: %w", err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing papers: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	doc := root.Content[0]
	switch doc.Kind {
	case yaml.SequenceNode:
		var list []*types.Paper
		if err := doc.Decode(&list); err != nil {
			return nil, fmt.Errorf("parsing papers: %w", err)
		}
		return list, nil
	case yaml.MappingNode:
		var f importFile
		if err := doc.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing papers: %w", err)
		}
		return f.Papers, nil
	default:
		return nil, fmt.Errorf("parsing papers: expected a list or a mapping with a papers key, line %d", doc.Line)
	}
}

var paperValidator = validator.New(validator.WithRequiredStructEnabled())

// Prepare fills defaults on a newly discovered paper and validates it.
// The DOI is normalized; an empty id takes the DOI, or a random UUID when
// there is no DOI; an empty status becomes discovered.
func Prepare(p *types.Paper, now time.Time) error {
	p.DOI = types.NormalizeDOI(p.DOI)
	if p.ID == "" {
		if p.DOI != "" {
			p.ID = p.DOI
		} else {
			p.ID = uuid.NewString()
		}
	}
	if p.Status == "" {
		p.Status = types.StatusDiscovered
	}
	if p.DiscoveredAt.IsZero() {
		p.DiscoveredAt = now
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = p.DiscoveredAt
	}
	if err := paperValidator.Struct(p); err != nil {
		return fmt.Errorf("paper %s: %w", p.ID, err)
	}
	return lifecycle.CheckInvariants(p)
}

// ImportSummary holds counts from an import run.
type ImportSummary struct {
	Added   int
	Skipped int
	Failed  int
}

// Total returns the number of papers processed.
func (s ImportSummary) Total() int {
	return s.Added + s.Skipped + s.Failed
}

// Import prepares and inserts papers, skipping ids already in the store.
// It continues past individual failures and reports progress to w.
func (s *Store) Import(ctx context.Context, papers []*types.Paper, now time.Time, w io.Writer) (ImportSummary, error) {
	var summary ImportSummary
	for i, p := range papers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if p == nil {
			fmt.Fprintf(w, "failed  entry %d: empty record\n", i+1)
			summary.Failed++
			continue
		}
		if err := Prepare(p, now); err != nil {
			fmt.Fprintf(w, "failed  entry %d: %v\n", i+1, err)
			summary.Failed++
			continue
		}

		_, err := s.Get(ctx, p.ID)
		switch {
		case err == nil:
			fmt.Fprintf(w, "skipped %s (already in store)\n", p.ID)
			summary.Skipped++
			continue
		case !errors.Is(err, ErrNotFound):
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			summary.Failed++
			continue
		}

		if err := s.Save(ctx, p); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", p.ID, err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "added   %s\n", p.ID)
		summary.Added++
	}

	fmt.Fprintf(w, "\nadded: %d, skipped: %d, failed: %d\n",
		summary.Added, summary.Skipped, summary.Failed)
	return summary, nil
}
