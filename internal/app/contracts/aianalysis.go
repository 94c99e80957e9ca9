package contracts

import (
	"context"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/dto/responses"
	"labpulse-service/internal/pkg/lab_dto"
)

type AnalysisSessionRepository interface {
	CreateSession(ctx context.Context, session *lab_dto.AIAnalysisSession) error
	FindSessionByID(ctx context.Context, sessionID string) (*lab_dto.AIAnalysisSession, error)
	FindSessionByReportID(ctx context.Context, reportID string) (*lab_dto.AIAnalysisSession, error)
	AttachPhaseOutput(ctx context.Context, sessionID, phase string, response *lab_dto.ModelResponse) error
	AttachConsensus(ctx context.Context, sessionID string, consensus *lab_dto.ConsensusAnalysis) error
	UpdateSessionStatus(ctx context.Context, sessionID, status, failureReason string) error
	FinalizeSession(ctx context.Context, session *lab_dto.AIAnalysisSession) error
}

// AnalysisUsecase runs the five-phase consensus pipeline for a report.
type AnalysisUsecase interface {
	RunAnalysis(ctx context.Context, job *requests.AnalyzeLabResultsJob) error
	TriggerAIAnalysis(ctx context.Context, reportID string) (*responses.AIAnalysisResponse, error)
	GetAnalysisByReport(ctx context.Context, reportID string) (*responses.AIAnalysisResponse, error)
}

// ModelClient invokes one opaque reasoning engine. Raw output goes through
// the response parser before storage; invocation failures are retried once
// per phase by the orchestrator.
type ModelClient interface {
	Invoke(ctx context.Context, request *requests.ModelInvocation) (*ModelResult, error)
}

type ModelResult struct {
	RawText          string
	Cost             float64
	ProcessingTimeMs int64
}
