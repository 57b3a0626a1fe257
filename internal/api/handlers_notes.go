package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/slidenotes/internal/export"
	"github.com/dgallion1/slidenotes/internal/slides"
)

// handleNotes serves cached notes for a processed document as JSON,
// Markdown or HTML.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	if !export.ValidFormat(format) {
		jsonError(w, fmt.Sprintf("unsupported format: %s", format), http.StatusBadRequest)
		return
	}

	if s.cache == nil {
		jsonError(w, "notes not found", http.StatusNotFound)
		return
	}
	notes, ok := s.cache.LoadKey(documentID)
	if !ok {
		jsonError(w, "notes not found", http.StatusNotFound)
		return
	}

	var body string
	switch format {
	case export.FormatJSON:
		w.Header().Set("Content-Type", export.ContentType(format))
		json.NewEncoder(w).Encode(slides.NewProcessResponse(documentID, notes))
		return
	case export.FormatMarkdown:
		body = export.Markdown(notes, s.cfg.Locale)
	case export.FormatHTML:
		rendered, err := export.HTML(notes, s.cfg.Locale)
		if err != nil {
			s.log.Error("render notes failed", "document_id", documentID, "error", err)
			jsonError(w, "failed to render notes", http.StatusInternalServerError)
			return
		}
		body = rendered
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", documentID+"."+format))
	w.Write([]byte(body))
}
