package batches

import (
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/dto/responses"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/lab_dto"
	"labpulse-service/internal/pkg/utils"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	batchLockExpiration = 10 * time.Second
	batchLockRetryDelay = 50 * time.Millisecond
	errorSummaryCap     = 50
)

type batchUsecase struct {
	BatchRepository contracts.BatchRepository
	LabQueueService contracts.LabQueueService
	LockerService   contracts.LockerService
	RealtimeHub     contracts.RealtimePublisher
	SnapshotStore   contracts.SnapshotStore
	Log             *zap.Logger
}

var (
	batchUsecaseInstance contracts.BatchUsecase
	onceBatchUsecase     sync.Once
)

func NewBatchUsecase(
	batchRepository contracts.BatchRepository,
	labQueueService contracts.LabQueueService,
	lockerService contracts.LockerService,
	realtimeHub contracts.RealtimePublisher,
	snapshotStore contracts.SnapshotStore,
	logger *zap.Logger,
) contracts.BatchUsecase {
	onceBatchUsecase.Do(func() {
		instance := &batchUsecase{
			BatchRepository: batchRepository,
			LabQueueService: labQueueService,
			LockerService:   lockerService,
			RealtimeHub:     realtimeHub,
			SnapshotStore:   snapshotStore,
			Log:             logger,
		}
		batchUsecaseInstance = instance
	})
	return batchUsecaseInstance
}

// SubmitBatch validates the submission, persists the batch record and fans
// the items out as one queue job each. It returns before any item is
// processed.
func (uc *batchUsecase) SubmitBatch(ctx context.Context, request *requests.SubmitLabBatch) (*responses.BatchAccepted, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("batchUsecase.SubmitBatch called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingLabSystemKey, request.LabSystem),
		zap.Int("item_count", len(request.Results)),
	)

	if len(request.Results) == 0 {
		return nil, exceptions.ErrInvalidBatch(nil)
	}

	batchID := request.BatchID
	if batchID == "" {
		batchID = utils.GenerateEntityID("batch")
	}

	now := time.Now().UTC()
	batch := &lab_dto.LabBatch{
		ID:           batchID,
		SourceSystem: request.LabSystem,
		SubmittedAt:  now,
		TotalCount:   len(request.Results),
		Status:       constvars.BatchStatusProcessing,
		UpdatedAt:    now,
	}
	if err := uc.BatchRepository.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	for i := range request.Results {
		job := requests.ProcessLabResultsJob{
			BatchID:   batchID,
			LabSystem: request.LabSystem,
			Results:   request.Results[i : i+1],
		}
		body, err := json.Marshal(job)
		if err != nil {
			return nil, exceptions.ErrCannotMarshalJSON(err)
		}
		message := contracts.JobMessage{
			ID:      utils.GenerateEntityID("job"),
			JobType: constvars.QueueProcessLabResults,
			Body:    body,
		}
		if err := uc.LabQueueService.Enqueue(ctx, constvars.QueueProcessLabResults, message); err != nil {
			return nil, err
		}
	}

	uc.publishProgress(ctx, batch)

	return &responses.BatchAccepted{
		BatchID:    batchID,
		TotalCount: batch.TotalCount,
		Status:     batch.Status,
	}, nil
}

func (uc *batchUsecase) GetBatchProgress(ctx context.Context, batchID string) (*responses.BatchProgress, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("batchUsecase.GetBatchProgress called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingBatchIDKey, batchID),
	)

	batch, err := uc.BatchRepository.FindBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, exceptions.ErrBatchNotFound(nil)
	}

	return buildProgress(batch), nil
}

// OnItemResult applies one worker outcome to the batch counters. The
// per-batch lock keeps concurrent workers from losing updates, the counted
// item ids keep redelivered jobs from counting the same item twice, and the
// terminal status is derived once processed plus failed reaches the total.
func (uc *batchUsecase) OnItemResult(ctx context.Context, batchID, itemID string, succeeded bool, itemError string) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("batchUsecase.OnItemResult called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingBatchIDKey, batchID),
		zap.String(constvars.LoggingItemIDKey, itemID),
		zap.Bool(constvars.LoggingSuccessKey, succeeded),
	)

	lockKey := fmt.Sprintf(constvars.LockKeyBatchFormat, batchID)
	lockValue, err := uc.acquireLock(ctx, lockKey)
	if err != nil {
		return err
	}
	defer func() {
		if unlockErr := uc.LockerService.Unlock(ctx, lockKey, lockValue); unlockErr != nil {
			uc.Log.Error("batchUsecase.OnItemResult error releasing lock",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingBatchIDKey, batchID),
				zap.Error(unlockErr),
			)
		}
	}()

	batch, err := uc.BatchRepository.FindBatchByID(ctx, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return exceptions.ErrBatchNotFound(nil)
	}
	if batch.Terminal() {
		return nil
	}

	// Queue delivery is at-least-once; a redelivered job must not inflate
	// the counters.
	if itemID != "" {
		for _, counted := range batch.CountedItems {
			if counted == itemID {
				uc.Log.Info("batchUsecase.OnItemResult duplicate delivery ignored",
					zap.String(constvars.LoggingBatchIDKey, batchID),
					zap.String(constvars.LoggingItemIDKey, itemID),
				)
				return nil
			}
		}
		batch.CountedItems = append(batch.CountedItems, itemID)
	}

	if succeeded {
		batch.ProcessedCount++
	} else {
		batch.FailedCount++
		if itemError != "" && len(batch.ErrorSummary) < errorSummaryCap {
			batch.ErrorSummary = append(batch.ErrorSummary, itemError)
		}
	}

	if batch.ProcessedCount+batch.FailedCount >= batch.TotalCount {
		if batch.FailedCount == 0 {
			batch.Status = constvars.BatchStatusCompleted
		} else if batch.ProcessedCount == 0 {
			batch.Status = constvars.BatchStatusFailed
		} else {
			batch.Status = constvars.BatchStatusPartial
		}
	}
	batch.UpdatedAt = time.Now().UTC()

	if err := uc.BatchRepository.UpdateBatch(ctx, batch); err != nil {
		return err
	}

	uc.publishProgress(ctx, batch)
	return nil
}

func (uc *batchUsecase) acquireLock(ctx context.Context, lockKey string) (string, error) {
	for {
		acquired, lockValue, err := uc.LockerService.TryLock(ctx, lockKey, batchLockExpiration)
		if err != nil {
			return "", err
		}
		if acquired {
			return lockValue, nil
		}
		select {
		case <-ctx.Done():
			return "", exceptions.ErrServerDeadlineExceeded(ctx.Err())
		case <-time.After(batchLockRetryDelay):
		}
	}
}

func (uc *batchUsecase) publishProgress(ctx context.Context, batch *lab_dto.LabBatch) {
	progress := buildProgress(batch)
	topic := fmt.Sprintf("%s:%s", constvars.TopicPrefixBatch, batch.ID)

	uc.RealtimeHub.Publish(topic, lab_dto.Event{
		Type:      constvars.EventBatchStatusUpdate,
		Data:      progress,
		Timestamp: time.Now().UTC(),
	})

	if err := uc.SnapshotStore.StoreSnapshot(ctx, topic, progress); err != nil {
		uc.Log.Error("batchUsecase.publishProgress error storing snapshot",
			zap.String(constvars.LoggingBatchIDKey, batch.ID),
			zap.Error(err),
		)
	}
}

func buildProgress(batch *lab_dto.LabBatch) *responses.BatchProgress {
	return &responses.BatchProgress{
		BatchID:        batch.ID,
		SourceSystem:   batch.SourceSystem,
		Status:         batch.Status,
		TotalCount:     batch.TotalCount,
		ProcessedCount: batch.ProcessedCount,
		FailedCount:    batch.FailedCount,
		ErrorSummary:   batch.ErrorSummary,
	}
}
