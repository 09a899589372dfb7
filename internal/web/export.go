package web

import (
	"bytes"
	"fmt"
	"net/http"

	"fmarket_nav/internal/export"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
)

func (s *Server) exportFrame(w http.ResponseWriter, r *http.Request) (export.Frame, bool) {
	summary := s.lastSummary()
	if summary == nil || len(summary.Records) == 0 {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]interface{}{"error": "no data to export"})
		return export.Frame{}, false
	}

	frame, err := export.FrameFor(r.URL.Query().Get("frame"), summary.Records)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]interface{}{"error": err.Error()})
		return export.Frame{}, false
	}
	return frame, true
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.exportFrame(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, frame); err != nil {
		log.Error().Err(err).Msg("Failed to render CSV export")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	writeDownload(w, "data.csv", "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.exportFrame(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, frame); err != nil {
		log.Error().Err(err).Msg("Failed to render XLSX export")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	writeDownload(w, "data.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func writeDownload(w http.ResponseWriter, name, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	_, _ = w.Write(body)
}
