package models

import "time"

type AnalysisStatus string

const (
	StatusDone   AnalysisStatus = "done"
	StatusFailed AnalysisStatus = "failed"
)

type AnalyzeResponse struct {
	RunID                 string           `json:"run_id"`
	Status                AnalysisStatus   `json:"status"`
	ResumeSummary         string           `json:"resume_summary,omitempty"`
	JobDescriptionSummary string           `json:"job_description_summary,omitempty"`
	Report                string           `json:"report,omitempty"`
	ReportCheck           *ReportCheckData `json:"report_check,omitempty"`
	Progress              []ProgressData   `json:"progress"`
	Error                 *ErrorData       `json:"error,omitempty"`
}

type ReportCheckData struct {
	Complete        bool     `json:"complete"`
	Found           []string `json:"found"`
	Missing         []string `json:"missing"`
	MatchPercentage *float64 `json:"match_percentage,omitempty"`
}

type ProgressData struct {
	State   string    `json:"state"`
	Message string    `json:"message"`
	Summary string    `json:"summary,omitempty"`
	Kind    string    `json:"kind,omitempty"`
	At      time.Time `json:"at"`
}

type ErrorData struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}
