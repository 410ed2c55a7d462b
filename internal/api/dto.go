package api

import (
	"github.com/starford/openkit/internal/history"
	"github.com/starford/openkit/internal/kernel"
)

// DoctorResponse is the result of a doctor run.
type DoctorResponse struct {
	Version int               `json:"version" example:"1" validate:"required"`
	Score   int               `json:"score" example:"85" validate:"required"`
	Status  string            `json:"status" example:"healthy" validate:"required"`
	Checks  map[string]string `json:"checks" validate:"required"`
	Broken  []string          `json:"broken" validate:"required"`
	RunID   int64             `json:"run_id,omitempty" example:"12"`
}

func newDoctorResponse(run *kernel.DoctorRun) DoctorResponse {
	resp := DoctorResponse{
		Version: run.Result.Report.Version,
		Score:   run.Result.Report.Score,
		Status:  run.Result.Report.Status,
		Checks:  run.Result.Report.Checks,
		Broken:  run.Result.BrokenLinks(),
	}
	if run.Run != nil {
		resp.RunID = run.Run.ID
	}
	return resp
}

// HistoryResponse wraps recorded doctor runs, newest first.
type HistoryResponse struct {
	Runs []history.Run `json:"runs" validate:"required"`
}

// DocsResponse wraps the documents under the docs root.
type DocsResponse struct {
	Docs []kernel.DocInfo `json:"docs" validate:"required"`
}
