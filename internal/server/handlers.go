// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/internal/lifecycle"
	"github.com/pdiddy/litreview/internal/prisma"
	"github.com/pdiddy/litreview/internal/store"
	"github.com/pdiddy/litreview/pkg/types"
)

var reportContentTypes = map[types.ReportFormat]string{
	types.ReportText:     "text/plain; charset=utf-8",
	types.ReportMarkdown: "text/markdown; charset=utf-8",
	types.ReportCSV:      "text/csv; charset=utf-8",
	types.ReportYAML:     "application/yaml",
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.CountByStatus(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listPapers returns all papers, or those in ?status= when given.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	var (
		papers []*types.Paper
		err    error
	)
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, perr := lifecycle.Parse(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		papers, err = s.store.ListByStatus(r.Context(), status)
	} else {
		papers, err = s.store.All(r.Context())
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	if papers == nil {
		papers = []*types.Paper{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": papers, "count": len(papers)})
}

func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.Context(), chi.URLParam(r, "paperID"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// flowStats returns PRISMA flow statistics as JSON, or rendered in
// ?format= (text, markdown, csv, yaml).
func (s *Server) flowStats(w http.ResponseWriter, r *http.Request) {
	stats, err := prisma.Load(r.Context(), s.store)
	if err != nil {
		s.internalError(w, err)
		return
	}
	format := types.ReportFormat(r.URL.Query().Get("format"))
	if format == "" || format == "json" {
		writeJSON(w, http.StatusOK, stats)
		return
	}
	contentType, ok := reportContentTypes[format]
	if !ok {
		writeError(w, http.StatusBadRequest, "unsupported format "+string(format))
		return
	}
	w.Header().Set("Content-Type", contentType)
	if err := prisma.Render(w, stats, format); err != nil {
		s.logger.Error().Err(err).Msg("rendering flow report")
	}
}

func (s *Server) acquisitionList(w http.ResponseWriter, r *http.Request) {
	records, err := acquire.BuildList(r.Context(), s.store)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"papers": records, "count": len(records)})
}

func (s *Server) acquisitionStats(w http.ResponseWriter, r *http.Request) {
	summary, err := prisma.AcquisitionStats(r.Context(), s.store)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ingest runs one ingestion pass over the PDF directory. The pass runs to
// completion even if the client disconnects.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	result := s.ingester.Ingest(context.WithoutCancel(r.Context()), s.pdfDir)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
