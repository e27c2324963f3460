// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/litreview/internal/store"
	"github.com/pdiddy/litreview/pkg/types"
)

// Strategy names the heuristic that resolved a file to a paper.
type Strategy string

const (
	StrategyDOI     Strategy = "DOI"
	StrategyID      Strategy = "ID"
	StrategyExactID Strategy = "exact_ID"
)

// Lookup is the read side of the paper store used by the Matcher.
type Lookup interface {
	Get(ctx context.Context, id string) (*types.Paper, error)
	GetByDOI(ctx context.Context, doi string) (*types.Paper, error)
}

// Match is a resolved file.
type Match struct {
	PaperID  string   `json:"paper_id"`
	Strategy Strategy `json:"strategy"`
}

// doiStemPattern matches stems that start with a DOI prefix such as
// "10.1234_j.example.2023".
var doiStemPattern = regexp.MustCompile(`^(10\.\d+[._].+)`)

// prefixedIDPattern matches "paper_<id>" and "paper-<id>" in any case.
var prefixedIDPattern = regexp.MustCompile(`(?i)^paper[_-](.+)`)

// Matcher resolves filename stems to paper ids. It only reads the store.
type Matcher struct {
	lookup Lookup
}

// NewMatcher returns a Matcher reading from lookup.
func NewMatcher(lookup Lookup) *Matcher {
	return &Matcher{lookup: lookup}
}

// Match applies the DOI, prefixed-id, and exact-id strategies in that
// order and returns the first hit. ok is false when no strategy matches.
// A non-nil error means the store failed, not that the stem is unknown.
//
// DOI reconstruction turns every "_" back into "/", so a DOI that
// genuinely contains "_" yields a candidate that does not exist. Lookups
// are exact, so that case falls through as a miss rather than a false
// positive.
func (m *Matcher) Match(ctx context.Context, stem string) (match Match, ok bool, err error) {
	if sm := doiStemPattern.FindStringSubmatch(stem); sm != nil {
		candidate := strings.ReplaceAll(sm[1], "_", "/")
		p, err := found(m.lookup.GetByDOI(ctx, candidate))
		if err != nil {
			return Match{}, false, fmt.Errorf("doi lookup %s: %w", candidate, err)
		}
		if p != nil {
			return Match{PaperID: p.ID, Strategy: StrategyDOI}, true, nil
		}
	}

	if sm := prefixedIDPattern.FindStringSubmatch(stem); sm != nil {
		p, err := found(m.lookup.Get(ctx, sm[1]))
		if err != nil {
			return Match{}, false, fmt.Errorf("id lookup %s: %w", sm[1], err)
		}
		if p != nil {
			return Match{PaperID: p.ID, Strategy: StrategyID}, true, nil
		}
	}

	p, err := found(m.lookup.Get(ctx, stem))
	if err != nil {
		return Match{}, false, fmt.Errorf("id lookup %s: %w", stem, err)
	}
	if p != nil {
		return Match{PaperID: p.ID, Strategy: StrategyExactID}, true, nil
	}
	return Match{}, false, nil
}

// found folds store.ErrNotFound into a nil paper.
func found(p *types.Paper, err error) (*types.Paper, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
