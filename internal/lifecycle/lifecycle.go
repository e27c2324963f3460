// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lifecycle defines the PRISMA status state machine for papers.
//
// The main line runs discovered → screened_in → awaiting_pdf → pdf_acquired
// → text_extracted → synthesized → validated → archived. screened_out and
// rejected are terminal side branches.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/litreview/pkg/types"
)

var (
	// ErrUnknownStatus is returned for a status string outside the enum.
	ErrUnknownStatus = errors.New("unknown paper status")

	// ErrInvalidTransition is returned when a move is not in the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingReason is returned when excluding a paper without a reason.
	ErrMissingReason = errors.New("exclusion reason required")
)

// rank orders the main line. Side branches share the rank of the stage
// they leave from, so Rank never reports them as progress.
var rank = map[types.PaperStatus]int{
	types.StatusDiscovered:    0,
	types.StatusScreenedIn:    1,
	types.StatusScreenedOut:   1,
	types.StatusAwaitingPDF:   2,
	types.StatusPDFAcquired:   3,
	types.StatusTextExtracted: 4,
	types.StatusSynthesized:   5,
	types.StatusValidated:     6,
	types.StatusRejected:      6,
	types.StatusArchived:      7,
}

var transitions = map[types.PaperStatus][]types.PaperStatus{
	types.StatusDiscovered:    {types.StatusScreenedIn, types.StatusScreenedOut},
	types.StatusScreenedIn:    {types.StatusAwaitingPDF, types.StatusScreenedOut},
	types.StatusAwaitingPDF:   {types.StatusPDFAcquired, types.StatusRejected},
	types.StatusPDFAcquired:   {types.StatusTextExtracted, types.StatusRejected},
	types.StatusTextExtracted: {types.StatusSynthesized, types.StatusRejected},
	types.StatusSynthesized:   {types.StatusValidated, types.StatusRejected},
	types.StatusValidated:     {types.StatusArchived},
}

// Parse converts a status string to a PaperStatus.
func Parse(s string) (types.PaperStatus, error) {
	st := types.PaperStatus(s)
	if _, ok := rank[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func Valid(s types.PaperStatus) bool {
	_, ok := rank[s]
	return ok
}

// Rank returns the position of s on the main line, or -1 for unknown statuses.
func Rank(s types.PaperStatus) int {
	r, ok := rank[s]
	if !ok {
		return -1
	}
	return r
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s types.PaperStatus) bool {
	switch s {
	case types.StatusArchived, types.StatusRejected, types.StatusScreenedOut:
		return true
	}
	return false
}

// IsExcluded reports whether s removes the paper from the review.
func IsExcluded(s types.PaperStatus) bool {
	return s == types.StatusScreenedOut || s == types.StatusRejected
}

// HoldsPDF reports whether a paper in status s must carry a pdf_path:
// main-line statuses at or past pdf_acquired.
func HoldsPDF(s types.PaperStatus) bool {
	if s == types.StatusRejected {
		return false
	}
	return Rank(s) >= Rank(types.StatusPDFAcquired)
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to types.PaperStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Next returns the legal successors of s.
func Next(s types.PaperStatus) []types.PaperStatus {
	return append([]types.PaperStatus(nil), transitions[s]...)
}

func checkMove(p *types.Paper, to types.PaperStatus) error {
	if !Valid(to) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s → %s for paper %s", ErrInvalidTransition, p.Status, to, p.ID)
	}
	return nil
}

// Advance moves p to a non-excluding status and refreshes LastUpdated.
// Moves into pdf_acquired go through AcquirePDF, exclusions through Exclude.
func Advance(p *types.Paper, to types.PaperStatus, now time.Time) error {
	if IsExcluded(to) {
		return fmt.Errorf("%w: use Exclude for %s", ErrInvalidTransition, to)
	}
	if to == types.StatusPDFAcquired {
		return fmt.Errorf("%w: use AcquirePDF for %s", ErrInvalidTransition, to)
	}
	if err := checkMove(p, to); err != nil {
		return err
	}
	p.Status = to
	p.LastUpdated = now
	return nil
}

// Exclude moves p to screened_out or rejected and records why.
func Exclude(p *types.Paper, to types.PaperStatus, reason types.ExclusionReason, notes string, now time.Time) error {
	if !IsExcluded(to) {
		return fmt.Errorf("%w: %s is not an exclusion status", ErrInvalidTransition, to)
	}
	if reason == "" {
		return ErrMissingReason
	}
	if err := checkMove(p, to); err != nil {
		return err
	}
	p.Status = to
	p.ExclusionReason = reason
	p.ExclusionNotes = notes
	p.LastUpdated = now
	return nil
}

// AcquirePDF performs awaiting_pdf → pdf_acquired, recording the absolute
// path of the matched file.
func AcquirePDF(p *types.Paper, pdfPath string, now time.Time) error {
	if pdfPath == "" {
		return fmt.Errorf("%w: empty pdf path for paper %s", ErrInvalidTransition, p.ID)
	}
	if err := checkMove(p, types.StatusPDFAcquired); err != nil {
		return err
	}
	p.Status = types.StatusPDFAcquired
	p.PDFPath = pdfPath
	p.LastUpdated = now
	return nil
}

// CheckInvariants reports the first record-level inconsistency in p.
func CheckInvariants(p *types.Paper) error {
	if !Valid(p.Status) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, p.Status)
	}
	if p.Status != types.StatusRejected {
		switch {
		case HoldsPDF(p.Status) && p.PDFPath == "":
			return fmt.Errorf("paper %s is %s without a pdf_path", p.ID, p.Status)
		case !HoldsPDF(p.Status) && p.PDFPath != "":
			return fmt.Errorf("paper %s is %s but has pdf_path %s", p.ID, p.Status, p.PDFPath)
		}
	}
	if !IsExcluded(p.Status) && (p.ExclusionReason != "" || p.ExclusionNotes != "") {
		return fmt.Errorf("paper %s is %s but carries exclusion fields", p.ID, p.Status)
	}
	return nil
}
