package contracts

import (
	"context"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/lab_dto"
)

type LabReportRepository interface {
	CreateReport(ctx context.Context, report *lab_dto.LabReport) error
	FindReportByID(ctx context.Context, reportID string) (*lab_dto.LabReport, error)
	FindReportByExternalID(ctx context.Context, externalID string) (*lab_dto.LabReport, error)
	FindRecentReportsByPatient(ctx context.Context, patientID string, limit int) ([]lab_dto.LabReport, error)
	MarkAIAnalysisCompleted(ctx context.Context, reportID string) error
	CreateLabValue(ctx context.Context, value *lab_dto.LabValue) error
	FindLabValuesByReport(ctx context.Context, reportID string) ([]lab_dto.LabValue, error)
}

// LabReportUsecase is the lab result worker: parse one raw result, persist
// report and values, trigger alerting and AI analysis.
type LabReportUsecase interface {
	ProcessLabResult(ctx context.Context, batchID, labSystem string, raw *requests.RawLabResult) (string, error)
}
