package web

import (
	"time"

	"fmarket_nav/internal/export"
	"fmarket_nav/internal/processing"
)

type summaryResponse struct {
	RunID      string     `json:"run_id,omitempty"`
	StartedAt  time.Time  `json:"started_at,omitempty"`
	FinishedAt time.Time  `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Records    int        `json:"records"`
	RowErrors  []string   `json:"row_errors,omitempty"`
	Updated    int        `json:"updated"`
	Appended   int        `json:"appended"`
	Rows       [][]string `json:"rows,omitempty"`
}

func newSummaryResponse(s *processing.Summary, err error) summaryResponse {
	if s == nil {
		resp := summaryResponse{Status: "Error"}
		if err != nil {
			resp.Error = err.Error()
			resp.Status = "Error: " + err.Error()
		}
		return resp
	}

	resp := summaryResponse{
		RunID:      s.RunID,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
		Status:     s.Status(),
		Records:    len(s.Records),
		Updated:    s.Result.Updated,
		Appended:   s.Result.Appended,
		Rows:       export.SheetFrame(s.Records).Rows,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if len(s.RowErrors) > 0 {
		resp.RowErrors = s.RowErrorMessages()
	}
	return resp
}
