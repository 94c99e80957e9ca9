package alerts

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

	"go.uber.org/zap"
)

type alertUsecase struct {
	AlertRepository     contracts.AlertRepository
	DirectoryClient     contracts.PatientDirectoryClient
	NotificationService contracts.NotificationService
	RealtimeHub         contracts.RealtimePublisher
	SnapshotStore       contracts.SnapshotStore
	Log                 *zap.Logger
}

var (
	alertUsecaseInstance contracts.AlertUsecase
	onceAlertUsecase     sync.Once
)

func NewAlertUsecase(
	alertRepository contracts.AlertRepository,
	directoryClient contracts.PatientDirectoryClient,
	notificationService contracts.NotificationService,
	realtimeHub contracts.RealtimePublisher,
	snapshotStore contracts.SnapshotStore,
	logger *zap.Logger,
) contracts.AlertUsecase {
	onceAlertUsecase.Do(func() {
		instance := &alertUsecase{
			AlertRepository:     alertRepository,
			DirectoryClient:     directoryClient,
			NotificationService: notificationService,
			RealtimeHub:         realtimeHub,
			SnapshotStore:       snapshotStore,
			Log:                 logger,
		}
		alertUsecaseInstance = instance
	})
	return alertUsecaseInstance
}

// ProcessCriticalValues raises one alert per critical value and notifies the
// patient's physicians. Redelivered jobs find the existing alert by lab
// value id and skip it. Notification failures are logged but never fail the
// job; the alert record itself is the source of truth.
func (uc *alertUsecase) ProcessCriticalValues(ctx context.Context, job *requests.AlertCriticalValuesJob) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("alertUsecase.ProcessCriticalValues called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingReportIDKey, job.LabReportID),
		zap.Int("critical_count", len(job.CriticalValues)),
	)

	physicians, err := uc.DirectoryClient.GetPatientPhysicians(ctx, job.PatientID)
	if err != nil {
		return err
	}

	for i := range job.CriticalValues {
		value := &job.CriticalValues[i]

		existing, err := uc.AlertRepository.FindAlertByLabValueID(ctx, value.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			uc.Log.Info("alertUsecase.ProcessCriticalValues duplicate delivery skipped",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingAlertIDKey, existing.ID),
			)
			continue
		}

		alert := &lab_dto.CriticalValueAlert{
			ID:            utils.GenerateEntityID("alert"),
			ReportID:      job.LabReportID,
			PatientID:     job.PatientID,
			LabValueID:    value.ID,
			TestName:      value.TestName,
			Value:         value.Value,
			CriticalRange: value.ReferenceRange,
			Urgency:       constvars.UrgencyCritical,
			Status:        constvars.AlertStatusActive,
			CreatedAt:     time.Now().UTC(),
		}
		if err := uc.AlertRepository.CreateAlert(ctx, alert); err != nil {
			return err
		}

		uc.notifyPhysicians(ctx, alert, physicians)
		uc.notifyPatient(ctx, alert)
		uc.publishAlert(ctx, alert)
	}

	return nil
}

func (uc *alertUsecase) AcknowledgeAlert(ctx context.Context, alertID string, action *requests.AlertAction) (*lab_dto.CriticalValueAlert, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("alertUsecase.AcknowledgeAlert called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAlertIDKey, alertID),
	)

	alert, err := uc.AlertRepository.FindAlertByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, exceptions.ErrAlertNotFound(nil)
	}
	if alert.Status != constvars.AlertStatusActive {
		return nil, exceptions.ErrAlertTransition(fmt.Errorf("alert is %s", alert.Status))
	}

	now := time.Now().UTC()
	alert.Status = constvars.AlertStatusAcknowledged
	alert.AcknowledgedBy = action.ClinicianID
	alert.AcknowledgedAt = &now

	if err := uc.AlertRepository.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}

	uc.publishAlert(ctx, alert)
	return alert, nil
}

func (uc *alertUsecase) ResolveAlert(ctx context.Context, alertID string, action *requests.AlertAction) (*lab_dto.CriticalValueAlert, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("alertUsecase.ResolveAlert called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingAlertIDKey, alertID),
	)

	alert, err := uc.AlertRepository.FindAlertByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, exceptions.ErrAlertNotFound(nil)
	}
	if alert.Status != constvars.AlertStatusAcknowledged {
		return nil, exceptions.ErrAlertTransition(fmt.Errorf("alert is %s", alert.Status))
	}

	now := time.Now().UTC()
	alert.Status = constvars.AlertStatusResolved
	alert.ResolvedAt = &now
	if alert.AcknowledgedBy == "" {
		alert.AcknowledgedBy = action.ClinicianID
	}

	if err := uc.AlertRepository.UpdateAlert(ctx, alert); err != nil {
		return nil, err
	}

	uc.publishAlert(ctx, alert)
	return alert, nil
}

func (uc *alertUsecase) notifyPhysicians(ctx context.Context, alert *lab_dto.CriticalValueAlert, physicians []lab_dto.Physician) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	if len(physicians) == 0 {
		uc.Log.Warn("alertUsecase.notifyPhysicians no physicians on record",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingAlertIDKey, alert.ID),
			zap.String(constvars.LoggingPatientIDKey, alert.PatientID),
		)
		return
	}

	for _, physician := range physicians {
		notification := &requests.ClinicianNotification{
			ClinicianID: physician.ID,
			PatientID:   alert.PatientID,
			AlertID:     alert.ID,
			TestName:    alert.TestName,
			Value:       alert.Value,
			Urgency:     alert.Urgency,
			Message:     fmt.Sprintf("Critical value: %s %s requires immediate review", alert.TestName, alert.Value),
		}
		if err := uc.NotificationService.NotifyClinician(ctx, notification); err != nil {
			uc.Log.Error("alertUsecase.notifyPhysicians delivery failed",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingAlertIDKey, alert.ID),
				zap.Error(exceptions.ErrAlertDelivery(err)),
			)
		}
	}
}

func (uc *alertUsecase) notifyPatient(ctx context.Context, alert *lab_dto.CriticalValueAlert) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	notification := &requests.PatientNotification{
		PatientID: alert.PatientID,
		ReportID:  alert.ReportID,
		Message:   "A new lab result is available. Your care team has been notified and will contact you.",
	}
	if err := uc.NotificationService.NotifyPatient(ctx, notification); err != nil {
		uc.Log.Error("alertUsecase.notifyPatient delivery failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingAlertIDKey, alert.ID),
			zap.Error(exceptions.ErrAlertDelivery(err)),
		)
	}
}

func (uc *alertUsecase) publishAlert(ctx context.Context, alert *lab_dto.CriticalValueAlert) {
	topic := fmt.Sprintf("%s:%s", constvars.TopicPrefixPatient, alert.PatientID)
	event := lab_dto.Event{
		Type:      constvars.EventCriticalValueAlert,
		PatientID: alert.PatientID,
		Data:      alert,
		Timestamp: time.Now().UTC(),
		Urgency:   alert.Urgency,
	}
	uc.RealtimeHub.Publish(topic, event)

	if err := uc.SnapshotStore.StoreSnapshot(ctx, topic, alert); err != nil {
		uc.Log.Error("alertUsecase.publishAlert error storing snapshot",
			zap.String(constvars.LoggingAlertIDKey, alert.ID),
			zap.Error(err),
		)
	}
}
