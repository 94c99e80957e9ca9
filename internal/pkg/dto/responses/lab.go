package responses

import "labpulse-service/internal/pkg/lab_dto"

// BatchAccepted is returned synchronously on batch submission; processing
// continues asynchronously.
type BatchAccepted struct {
	BatchID    string `json:"batch_id"`
	TotalCount int    `json:"total_count"`
	Status     string `json:"status"`
}

// BatchProgress reports live counters for one batch.
type BatchProgress struct {
	BatchID        string   `json:"batch_id"`
	SourceSystem   string   `json:"source_system"`
	Status         string   `json:"status"`
	TotalCount     int      `json:"total_count"`
	ProcessedCount int      `json:"processed_count"`
	FailedCount    int      `json:"failed_count"`
	ErrorSummary   []string `json:"error_summary,omitempty"`
}

// AIAnalysisResponse is the collaborator-facing view of a session. A failed
// session surfaces as an explicit analysis-unavailable state, never a
// silent drop.
type AIAnalysisResponse struct {
	SessionID        string                     `json:"session_id"`
	ReportID         string                     `json:"report_id"`
	Status           string                     `json:"status"`
	Consensus        *lab_dto.ConsensusAnalysis `json:"consensus,omitempty"`
	TotalCost        float64                    `json:"total_cost"`
	ProcessingTimeMs int64                      `json:"processing_time_ms"`
	Unavailable      bool                       `json:"unavailable,omitempty"`
	UnavailableNote  string                     `json:"unavailable_note,omitempty"`
}

// DeadJob is one queue payload that exhausted its retry budget.
type DeadJob struct {
	ID          string `json:"id"`
	JobType     string `json:"job_type"`
	FailedCount int    `json:"failed_count"`
	Body        string `json:"body"`
}
