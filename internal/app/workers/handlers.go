package workers

import (
	"context"
	"fmt"

	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// NewLabResultPool builds the lab result worker pool. Each job carries one
// raw result; the batch coordinator is notified on success inline and on
// permanent failure through the dead-letter callback, so every item is
// eventually counted exactly once.
func NewLabResultPool(
	queueService contracts.LabQueueService,
	labReportUsecase contracts.LabReportUsecase,
	batchUsecase contracts.BatchUsecase,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		Name:         "lab-results",
		Queue:        constvars.QueueProcessLabResults,
		Concurrency:  constvars.LabResultWorkerConcurrency,
		MaxAttempts:  constvars.LabResultJobMaxAttempts,
		QueueService: queueService,
		Log:          logger,
		Handle: func(ctx context.Context, message contracts.JobMessage) error {
			var job requests.ProcessLabResultsJob
			if err := json.Unmarshal(message.Body, &job); err != nil {
				return exceptions.ErrCannotParseJSON(err)
			}

			for i := range job.Results {
				if _, err := labReportUsecase.ProcessLabResult(ctx, job.BatchID, job.LabSystem, &job.Results[i]); err != nil {
					return err
				}
			}

			return batchUsecase.OnItemResult(ctx, job.BatchID, itemExternalID(&job), true, "")
		},
		OnDeadLetter: func(ctx context.Context, message contracts.JobMessage) {
			var job requests.ProcessLabResultsJob
			if err := json.Unmarshal(message.Body, &job); err != nil {
				logger.Error("labResultPool.OnDeadLetter undecodable job body",
					zap.String(constvars.LoggingJobIDKey, message.ID),
					zap.Error(err),
				)
				return
			}
			reason := fmt.Sprintf("item failed after %d attempts", message.FailedCount)
			if err := batchUsecase.OnItemResult(ctx, job.BatchID, itemExternalID(&job), false, reason); err != nil {
				logger.Error("labResultPool.OnDeadLetter error recording item failure",
					zap.String(constvars.LoggingBatchIDKey, job.BatchID),
					zap.Error(err),
				)
			}
		},
	}
}

// itemExternalID identifies the single item a fanned-out job carries, so
// the batch coordinator can count each item once across redeliveries.
func itemExternalID(job *requests.ProcessLabResultsJob) string {
	if len(job.Results) == 0 {
		return ""
	}
	return job.Results[0].ExternalID
}

// NewAlertPool builds the critical value alerting pool.
func NewAlertPool(
	queueService contracts.LabQueueService,
	alertUsecase contracts.AlertUsecase,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		Name:         "critical-alerts",
		Queue:        constvars.QueueAlertCriticalValue,
		Concurrency:  constvars.AlertWorkerConcurrency,
		MaxAttempts:  constvars.AlertJobMaxAttempts,
		QueueService: queueService,
		Log:          logger,
		Handle: func(ctx context.Context, message contracts.JobMessage) error {
			var job requests.AlertCriticalValuesJob
			if err := json.Unmarshal(message.Body, &job); err != nil {
				return exceptions.ErrCannotParseJSON(err)
			}
			return alertUsecase.ProcessCriticalValues(ctx, &job)
		},
	}
}

// NewAnalysisPool builds the AI analysis pool. A job that exhausts its
// retries leaves its session explicitly failed so clients see the
// unavailable state instead of a session stuck mid-phase.
func NewAnalysisPool(
	queueService contracts.LabQueueService,
	analysisUsecase contracts.AnalysisUsecase,
	sessionRepository contracts.AnalysisSessionRepository,
	logger *zap.Logger,
) *Pool {
	return &Pool{
		Name:         "ai-analysis",
		Queue:        constvars.QueueAnalyzeLabResults,
		Concurrency:  constvars.AnalysisWorkerConcurrency,
		MaxAttempts:  constvars.AnalysisJobMaxAttempts,
		QueueService: queueService,
		Log:          logger,
		Handle: func(ctx context.Context, message contracts.JobMessage) error {
			var job requests.AnalyzeLabResultsJob
			if err := json.Unmarshal(message.Body, &job); err != nil {
				return exceptions.ErrCannotParseJSON(err)
			}
			return analysisUsecase.RunAnalysis(ctx, &job)
		},
		OnDeadLetter: func(ctx context.Context, message contracts.JobMessage) {
			var job requests.AnalyzeLabResultsJob
			if err := json.Unmarshal(message.Body, &job); err != nil {
				logger.Error("analysisPool.OnDeadLetter undecodable job body",
					zap.String(constvars.LoggingJobIDKey, message.ID),
					zap.Error(err),
				)
				return
			}
			session, err := sessionRepository.FindSessionByReportID(ctx, job.LabReportID)
			if err != nil || session == nil {
				return
			}
			switch session.Status {
			case constvars.SessionStatusCompleted, constvars.SessionStatusEvidenceRequired, constvars.SessionStatusFailed:
				return
			}
			reason := fmt.Sprintf("analysis job failed after %d attempts", message.FailedCount)
			if err := sessionRepository.UpdateSessionStatus(ctx, session.ID, constvars.SessionStatusFailed, reason); err != nil {
				logger.Error("analysisPool.OnDeadLetter error failing session",
					zap.String(constvars.LoggingSessionIDKey, session.ID),
					zap.Error(err),
				)
			}
		},
	}
}
