package labreports

import (
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/exceptions"
	"labpulse-service/internal/pkg/lab_dto"
	"labpulse-service/internal/pkg/utils"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type labReportUsecase struct {
	LabReportRepository contracts.LabReportRepository
	DirectoryClient     contracts.PatientDirectoryClient
	DashboardClient     contracts.DashboardClient
	LabQueueService     contracts.LabQueueService
	RealtimeHub         contracts.RealtimePublisher
	SnapshotStore       contracts.SnapshotStore
	Log                 *zap.Logger
}

var (
	labReportUsecaseInstance contracts.LabReportUsecase
	onceLabReportUsecase     sync.Once
)

func NewLabReportUsecase(
	labReportRepository contracts.LabReportRepository,
	directoryClient contracts.PatientDirectoryClient,
	dashboardClient contracts.DashboardClient,
	labQueueService contracts.LabQueueService,
	realtimeHub contracts.RealtimePublisher,
	snapshotStore contracts.SnapshotStore,
	logger *zap.Logger,
) contracts.LabReportUsecase {
	onceLabReportUsecase.Do(func() {
		instance := &labReportUsecase{
			LabReportRepository: labReportRepository,
			DirectoryClient:     directoryClient,
			DashboardClient:     dashboardClient,
			LabQueueService:     labQueueService,
			RealtimeHub:         realtimeHub,
			SnapshotStore:       snapshotStore,
			Log:                 logger,
		}
		labReportUsecaseInstance = instance
	})
	return labReportUsecaseInstance
}

// ProcessLabResult handles one raw result end to end: persist report and
// values, kick off alerting for critical values, always kick off AI
// analysis, refresh the dashboard and push the realtime update. Redelivered
// jobs are detected by the source system's external id and skipped.
func (uc *labReportUsecase) ProcessLabResult(ctx context.Context, batchID, labSystem string, raw *requests.RawLabResult) (string, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("labReportUsecase.ProcessLabResult called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingBatchIDKey, batchID),
		zap.String(constvars.LoggingLabSystemKey, labSystem),
	)

	if raw == nil || len(raw.Observations) == 0 {
		return "", exceptions.ErrItemProcessing(fmt.Errorf("result has no observations"), rawExternalID(raw))
	}

	existing, err := uc.LabReportRepository.FindReportByExternalID(ctx, raw.ExternalID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		uc.Log.Info("labReportUsecase.ProcessLabResult duplicate delivery skipped",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingReportIDKey, existing.ID),
		)
		return existing.ID, nil
	}

	patient, err := uc.DirectoryClient.ResolvePatientByExternalID(ctx, raw.PatientExternalID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	report := &lab_dto.LabReport{
		ID:          utils.GenerateEntityID("report"),
		PatientID:   patient.ID,
		ExternalID:  raw.ExternalID,
		BatchID:     batchID,
		SourceLab:   labSystem,
		CollectedAt: utils.ParseLabTimestamp(raw.CollectedAt),
		ReportedAt:  utils.ParseLabTimestamp(raw.ReportedAt),
		Status:      constvars.ReportStatusProcessed,
		CreatedAt:   now,
	}

	values := make([]lab_dto.LabValue, 0, len(raw.Observations))
	criticalValues := make([]lab_dto.LabValue, 0)
	for i := range raw.Observations {
		value := MapObservationToLabValue(report.ID, &raw.Observations[i], now)
		values = append(values, *value)
		if value.AbnormalFlag != constvars.AbnormalFlagNormal {
			report.AbnormalSummaries = append(report.AbnormalSummaries, BuildAbnormalSummary(value))
		}
		if value.Critical {
			criticalValues = append(criticalValues, *value)
		}
	}

	if err := uc.LabReportRepository.CreateReport(ctx, report); err != nil {
		return "", err
	}
	for i := range values {
		if err := uc.LabReportRepository.CreateLabValue(ctx, &values[i]); err != nil {
			return "", err
		}
	}

	if len(criticalValues) > 0 {
		if err := uc.enqueueAlertJob(ctx, report, criticalValues); err != nil {
			return "", err
		}
	}

	if err := uc.enqueueAnalysisJob(ctx, report, values); err != nil {
		return "", err
	}

	// Dashboard refresh is best effort; the report pipeline must not fail
	// because a downstream renderer is down.
	if err := uc.DashboardClient.UpdateMedicalDashboard(ctx, patient.ID, report.ID); err != nil {
		uc.Log.Error("labReportUsecase.ProcessLabResult error updating dashboard",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingReportIDKey, report.ID),
			zap.Error(err),
		)
	}

	uc.publishReportUpdate(ctx, report)

	uc.Log.Info("labReportUsecase.ProcessLabResult succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingReportIDKey, report.ID),
		zap.Int("critical_count", len(criticalValues)),
	)
	return report.ID, nil
}

func (uc *labReportUsecase) enqueueAlertJob(ctx context.Context, report *lab_dto.LabReport, criticalValues []lab_dto.LabValue) error {
	job := requests.AlertCriticalValuesJob{
		LabReportID:    report.ID,
		PatientID:      report.PatientID,
		CriticalValues: criticalValues,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}
	return uc.LabQueueService.Enqueue(ctx, constvars.QueueAlertCriticalValue, contracts.JobMessage{
		ID:      utils.GenerateEntityID("job"),
		JobType: constvars.QueueAlertCriticalValue,
		Body:    body,
	})
}

func (uc *labReportUsecase) enqueueAnalysisJob(ctx context.Context, report *lab_dto.LabReport, values []lab_dto.LabValue) error {
	history, err := uc.LabReportRepository.FindRecentReportsByPatient(ctx, report.PatientID, constvars.PatientHistoryDepth)
	if err != nil {
		return err
	}

	job := requests.AnalyzeLabResultsJob{
		LabReportID:    report.ID,
		PatientID:      report.PatientID,
		Observations:   values,
		PatientHistory: history,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}
	return uc.LabQueueService.Enqueue(ctx, constvars.QueueAnalyzeLabResults, contracts.JobMessage{
		ID:      utils.GenerateEntityID("job"),
		JobType: constvars.QueueAnalyzeLabResults,
		Body:    body,
	})
}

func (uc *labReportUsecase) publishReportUpdate(ctx context.Context, report *lab_dto.LabReport) {
	topic := fmt.Sprintf("%s:%s", constvars.TopicPrefixPatient, report.PatientID)
	event := lab_dto.Event{
		Type:      constvars.EventLabResultsUpdate,
		PatientID: report.PatientID,
		Data:      report,
		Timestamp: time.Now().UTC(),
	}
	uc.RealtimeHub.Publish(topic, event)

	if err := uc.SnapshotStore.StoreSnapshot(ctx, topic, report); err != nil {
		uc.Log.Error("labReportUsecase.publishReportUpdate error storing snapshot",
			zap.String(constvars.LoggingReportIDKey, report.ID),
			zap.Error(err),
		)
	}
}

func rawExternalID(raw *requests.RawLabResult) string {
	if raw == nil {
		return constvars.ResponseUnknown
	}
	return raw.ExternalID
}
