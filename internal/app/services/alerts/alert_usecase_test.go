package alerts

import (
	"context"
	"testing"

	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/lab_dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) CreateAlert(ctx context.Context, alert *lab_dto.CriticalValueAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) FindAlertByID(ctx context.Context, alertID string) (*lab_dto.CriticalValueAlert, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lab_dto.CriticalValueAlert), args.Error(1)
}

func (m *MockAlertRepository) FindAlertByLabValueID(ctx context.Context, labValueID string) (*lab_dto.CriticalValueAlert, error) {
	args := m.Called(ctx, labValueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lab_dto.CriticalValueAlert), args.Error(1)
}

func (m *MockAlertRepository) UpdateAlert(ctx context.Context, alert *lab_dto.CriticalValueAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

type MockDirectoryClient struct {
	mock.Mock
}

func (m *MockDirectoryClient) ResolvePatientByExternalID(ctx context.Context, externalID string) (*lab_dto.Patient, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lab_dto.Patient), args.Error(1)
}

func (m *MockDirectoryClient) GetPatientPhysicians(ctx context.Context, patientID string) ([]lab_dto.Physician, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lab_dto.Physician), args.Error(1)
}

func (m *MockDirectoryClient) GetClinicianPatients(ctx context.Context, clinicianID string) ([]string, error) {
	args := m.Called(ctx, clinicianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDirectoryClient) VerifyPatientAccess(ctx context.Context, userID, patientID, role string) (bool, error) {
	args := m.Called(ctx, userID, patientID, role)
	return args.Bool(0), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) NotifyClinician(ctx context.Context, notification *requests.ClinicianNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationService) NotifyPatient(ctx context.Context, notification *requests.PatientNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

type MockRealtimePublisher struct {
	mock.Mock
}

func (m *MockRealtimePublisher) Publish(topic string, event lab_dto.Event) {
	m.Called(topic, event)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) StoreSnapshot(ctx context.Context, topic string, state interface{}) error {
	args := m.Called(ctx, topic, state)
	return args.Error(0)
}

func (m *MockSnapshotStore) LoadSnapshot(ctx context.Context, topic string) (string, error) {
	args := m.Called(ctx, topic)
	return args.String(0), args.Error(1)
}

func newTestAlertUsecase(
	repo *MockAlertRepository,
	directory *MockDirectoryClient,
	notifications *MockNotificationService,
	hub *MockRealtimePublisher,
	snapshots *MockSnapshotStore,
) *alertUsecase {
	return &alertUsecase{
		AlertRepository:     repo,
		DirectoryClient:     directory,
		NotificationService: notifications,
		RealtimeHub:         hub,
		SnapshotStore:       snapshots,
		Log:                 zap.NewNop(),
	}
}

func criticalJob() *requests.AlertCriticalValuesJob {
	return &requests.AlertCriticalValuesJob{
		LabReportID: "report_1",
		PatientID:   "pat_7",
		CriticalValues: []lab_dto.LabValue{
			{
				ID:             "value_1",
				ReportID:       "report_1",
				TestName:       "Potassium",
				Value:          "6.8",
				Unit:           "mmol/L",
				ReferenceRange: "3.5-5.0",
				AbnormalFlag:   constvars.AbnormalFlagCriticalHigh,
				Critical:       true,
			},
		},
	}
}

func TestProcessCriticalValues(t *testing.T) {
	t.Run("creates active alert and notifies physicians and patient", func(t *testing.T) {
		repo := new(MockAlertRepository)
		directory := new(MockDirectoryClient)
		notifications := new(MockNotificationService)
		hub := new(MockRealtimePublisher)
		snapshots := new(MockSnapshotStore)

		directory.On("GetPatientPhysicians", mock.Anything, "pat_7").
			Return([]lab_dto.Physician{{ID: "clin_1"}, {ID: "clin_2"}}, nil)
		repo.On("FindAlertByLabValueID", mock.Anything, "value_1").Return(nil, nil)

		var created *lab_dto.CriticalValueAlert
		repo.On("CreateAlert", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*lab_dto.CriticalValueAlert)
			}).Return(nil)
		notifications.On("NotifyClinician", mock.Anything, mock.Anything).Return(nil)
		notifications.On("NotifyPatient", mock.Anything, mock.Anything).Return(nil)
		hub.On("Publish", "patient:pat_7", mock.Anything).Return()
		snapshots.On("StoreSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		uc := newTestAlertUsecase(repo, directory, notifications, hub, snapshots)
		err := uc.ProcessCriticalValues(context.Background(), criticalJob())

		assert.NoError(t, err)
		assert.Equal(t, constvars.AlertStatusActive, created.Status)
		assert.Equal(t, constvars.UrgencyCritical, created.Urgency)
		assert.Equal(t, "value_1", created.LabValueID)
		notifications.AssertNumberOfCalls(t, "NotifyClinician", 2)
		notifications.AssertNumberOfCalls(t, "NotifyPatient", 1)
	})

	t.Run("redelivered job skips existing alert", func(t *testing.T) {
		repo := new(MockAlertRepository)
		directory := new(MockDirectoryClient)
		notifications := new(MockNotificationService)

		directory.On("GetPatientPhysicians", mock.Anything, "pat_7").Return([]lab_dto.Physician{{ID: "clin_1"}}, nil)
		repo.On("FindAlertByLabValueID", mock.Anything, "value_1").
			Return(&lab_dto.CriticalValueAlert{ID: "alert_existing", LabValueID: "value_1"}, nil)

		uc := newTestAlertUsecase(repo, directory, notifications, new(MockRealtimePublisher), new(MockSnapshotStore))
		err := uc.ProcessCriticalValues(context.Background(), criticalJob())

		assert.NoError(t, err)
		repo.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything)
		notifications.AssertNotCalled(t, "NotifyClinician", mock.Anything, mock.Anything)
	})

	t.Run("notification failure does not fail the job", func(t *testing.T) {
		repo := new(MockAlertRepository)
		directory := new(MockDirectoryClient)
		notifications := new(MockNotificationService)
		hub := new(MockRealtimePublisher)
		snapshots := new(MockSnapshotStore)

		directory.On("GetPatientPhysicians", mock.Anything, "pat_7").Return([]lab_dto.Physician{{ID: "clin_1"}}, nil)
		repo.On("FindAlertByLabValueID", mock.Anything, mock.Anything).Return(nil, nil)
		repo.On("CreateAlert", mock.Anything, mock.Anything).Return(nil)
		notifications.On("NotifyClinician", mock.Anything, mock.Anything).Return(assert.AnError)
		notifications.On("NotifyPatient", mock.Anything, mock.Anything).Return(assert.AnError)
		hub.On("Publish", mock.Anything, mock.Anything).Return()
		snapshots.On("StoreSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		uc := newTestAlertUsecase(repo, directory, notifications, hub, snapshots)
		err := uc.ProcessCriticalValues(context.Background(), criticalJob())

		assert.NoError(t, err)
	})
}

func TestAlertLifecycle(t *testing.T) {
	action := &requests.AlertAction{ClinicianID: "clin_1"}

	t.Run("acknowledge active alert", func(t *testing.T) {
		repo := new(MockAlertRepository)
		hub := new(MockRealtimePublisher)
		snapshots := new(MockSnapshotStore)
		alert := &lab_dto.CriticalValueAlert{ID: "alert_1", PatientID: "pat_7", Status: constvars.AlertStatusActive}
		repo.On("FindAlertByID", mock.Anything, "alert_1").Return(alert, nil)
		repo.On("UpdateAlert", mock.Anything, mock.Anything).Return(nil)
		hub.On("Publish", mock.Anything, mock.Anything).Return()
		snapshots.On("StoreSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		uc := newTestAlertUsecase(repo, new(MockDirectoryClient), new(MockNotificationService), hub, snapshots)
		result, err := uc.AcknowledgeAlert(context.Background(), "alert_1", action)

		assert.NoError(t, err)
		assert.Equal(t, constvars.AlertStatusAcknowledged, result.Status)
		assert.Equal(t, "clin_1", result.AcknowledgedBy)
		assert.NotNil(t, result.AcknowledgedAt)
	})

	t.Run("acknowledge is rejected unless alert is active", func(t *testing.T) {
		repo := new(MockAlertRepository)
		alert := &lab_dto.CriticalValueAlert{ID: "alert_1", Status: constvars.AlertStatusResolved}
		repo.On("FindAlertByID", mock.Anything, "alert_1").Return(alert, nil)

		uc := newTestAlertUsecase(repo, new(MockDirectoryClient), new(MockNotificationService), new(MockRealtimePublisher), new(MockSnapshotStore))
		_, err := uc.AcknowledgeAlert(context.Background(), "alert_1", action)

		assert.Error(t, err)
		repo.AssertNotCalled(t, "UpdateAlert", mock.Anything, mock.Anything)
	})

	t.Run("resolve acknowledged alert", func(t *testing.T) {
		repo := new(MockAlertRepository)
		hub := new(MockRealtimePublisher)
		snapshots := new(MockSnapshotStore)
		alert := &lab_dto.CriticalValueAlert{ID: "alert_1", PatientID: "pat_7", Status: constvars.AlertStatusAcknowledged, AcknowledgedBy: "clin_1"}
		repo.On("FindAlertByID", mock.Anything, "alert_1").Return(alert, nil)
		repo.On("UpdateAlert", mock.Anything, mock.Anything).Return(nil)
		hub.On("Publish", mock.Anything, mock.Anything).Return()
		snapshots.On("StoreSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		uc := newTestAlertUsecase(repo, new(MockDirectoryClient), new(MockNotificationService), hub, snapshots)
		result, err := uc.ResolveAlert(context.Background(), "alert_1", action)

		assert.NoError(t, err)
		assert.Equal(t, constvars.AlertStatusResolved, result.Status)
		assert.NotNil(t, result.ResolvedAt)
	})

	t.Run("resolve is rejected while alert is still active", func(t *testing.T) {
		repo := new(MockAlertRepository)
		alert := &lab_dto.CriticalValueAlert{ID: "alert_1", Status: constvars.AlertStatusActive}
		repo.On("FindAlertByID", mock.Anything, "alert_1").Return(alert, nil)

		uc := newTestAlertUsecase(repo, new(MockDirectoryClient), new(MockNotificationService), new(MockRealtimePublisher), new(MockSnapshotStore))
		_, err := uc.ResolveAlert(context.Background(), "alert_1", action)

		assert.Error(t, err)
	})

	t.Run("unknown alert returns not found", func(t *testing.T) {
		repo := new(MockAlertRepository)
		repo.On("FindAlertByID", mock.Anything, "alert_missing").Return(nil, nil)

		uc := newTestAlertUsecase(repo, new(MockDirectoryClient), new(MockNotificationService), new(MockRealtimePublisher), new(MockSnapshotStore))
		_, err := uc.AcknowledgeAlert(context.Background(), "alert_missing", action)

		assert.Error(t, err)
	})
}
