package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"fmarket_nav/internal/export"

	"github.com/rs/zerolog/log"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexView struct {
	Busy        bool
	Status      string
	StatusClass string
	RowErrors   []string
	Frame       export.Frame
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := indexView{Busy: s.Busy()}

	if summary := s.lastSummary(); summary != nil {
		view.Status = summary.Status()
		switch {
		case summary.Err != nil:
			view.StatusClass = "error"
		case len(summary.Records) == 0:
			view.StatusClass = "warning"
		default:
			view.StatusClass = "success"
		}
		view.RowErrors = summary.RowErrorMessages()
		view.Frame = export.DisplayFrame(summary.Records)
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, view); err != nil {
		log.Error().Err(err).Msg("Failed to render index page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
