package contracts

import (
	"context"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/dto/responses"
	"labpulse-service/internal/pkg/lab_dto"
)

type BatchRepository interface {
	CreateBatch(ctx context.Context, batch *lab_dto.LabBatch) error
	FindBatchByID(ctx context.Context, batchID string) (*lab_dto.LabBatch, error)
	UpdateBatch(ctx context.Context, batch *lab_dto.LabBatch) error
}

// BatchUsecase is the batch ingestion coordinator. SubmitBatch validates,
// fans out per-item jobs and returns immediately; OnItemResult is the
// progress callback invoked by lab result workers.
type BatchUsecase interface {
	SubmitBatch(ctx context.Context, request *requests.SubmitLabBatch) (*responses.BatchAccepted, error)
	GetBatchProgress(ctx context.Context, batchID string) (*responses.BatchProgress, error)
	OnItemResult(ctx context.Context, batchID, itemID string, succeeded bool, itemError string) error
}
