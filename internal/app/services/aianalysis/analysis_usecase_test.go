package aianalysis

import (
	"context"
	"testing"
	"time"

	"labpulse-service/internal/app/config"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/lab_dto"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *lab_dto.AIAnalysisSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) FindSessionByID(ctx context.Context, sessionID string) (*lab_dto.AIAnalysisSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lab_dto.AIAnalysisSession), args.Error(1)
}

func (m *MockSessionRepository) FindSessionByReportID(ctx context.Context, reportID string) (*lab_dto.AIAnalysisSession, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lab_dto.AIAnalysisSession), args.Error(1)
}

func (m *MockSessionRepository) AttachPhaseOutput(ctx context.Context, sessionID, phase string, response *lab_dto.ModelResponse) error {
	args := m.Called(ctx, sessionID, phase, response)
	return args.Error(0)
}

func (m *MockSessionRepository) AttachConsensus(ctx context.Context, sessionID string, consensus *lab_dto.ConsensusAnalysis) error {
	args := m.Called(ctx, sessionID, consensus)
	return args.Error(0)
}

func (m *MockSessionRepository) UpdateSessionStatus(ctx context.Context, sessionID, status, failureReason string) error {
	args := m.Called(ctx, sessionID, status, failureReason)
	return args.Error(0)
}

func (m *MockSessionRepository) FinalizeSession(ctx context.Context, session *lab_dto.AIAnalysisSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

type MockLabReportRepository struct {
	mock.Mock
}

func (m *MockLabReportRepository) CreateReport(ctx context.Context, report *lab_dto.LabReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockLabReportRepository) FindReportByID(ctx context.Context, reportID string) (*lab_dto.LabReport, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lab_dto.LabReport), args.Error(1)
}

func (m *MockLabReportRepository) FindReportByExternalID(ctx context.Context, externalID string) (*lab_dto.LabReport, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lab_dto.LabReport), args.Error(1)
}

func (m *MockLabReportRepository) FindRecentReportsByPatient(ctx context.Context, patientID string, limit int) ([]lab_dto.LabReport, error) {
	args := m.Called(ctx, patientID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lab_dto.LabReport), args.Error(1)
}

func (m *MockLabReportRepository) MarkAIAnalysisCompleted(ctx context.Context, reportID string) error {
	args := m.Called(ctx, reportID)
	return args.Error(0)
}

func (m *MockLabReportRepository) CreateLabValue(ctx context.Context, value *lab_dto.LabValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockLabReportRepository) FindLabValuesByReport(ctx context.Context, reportID string) ([]lab_dto.LabValue, error) {
	args := m.Called(ctx, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lab_dto.LabValue), args.Error(1)
}

type MockModelClient struct {
	mock.Mock
}

func (m *MockModelClient) Invoke(ctx context.Context, request *requests.ModelInvocation) (*contracts.ModelResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contracts.ModelResult), args.Error(1)
}

type MockLockerService struct {
	mock.Mock
}

func (m *MockLockerService) TryLock(ctx context.Context, key string, expiration time.Duration) (bool, string, error) {
	args := m.Called(ctx, key, expiration)
	return args.Bool(0), args.String(1), args.Error(2)
}

func (m *MockLockerService) Unlock(ctx context.Context, key, lockValue string) error {
	args := m.Called(ctx, key, lockValue)
	return args.Error(0)
}

type MockDiagnosticsArchive struct {
	mock.Mock
}

func (m *MockDiagnosticsArchive) ArchivePhaseOutput(ctx context.Context, sessionID, phase string, raw []byte) error {
	args := m.Called(ctx, sessionID, phase, raw)
	return args.Error(0)
}

func (m *MockDiagnosticsArchive) ArchiveFailedSession(ctx context.Context, sessionID string, payload []byte) error {
	args := m.Called(ctx, sessionID, payload)
	return args.Error(0)
}

type MockLabQueueService struct {
	mock.Mock
}

func (m *MockLabQueueService) Enqueue(ctx context.Context, queue string, message contracts.JobMessage) error {
	args := m.Called(ctx, queue, message)
	return args.Error(0)
}

func (m *MockLabQueueService) Reenqueue(ctx context.Context, queue string, message contracts.JobMessage) error {
	args := m.Called(ctx, queue, message)
	return args.Error(0)
}

func (m *MockLabQueueService) EnqueueToDeadQueue(ctx context.Context, message contracts.JobMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockLabQueueService) Consume(ctx context.Context, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	args := m.Called(ctx, queue, prefetch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan amqp.Delivery), args.Error(1)
}

func (m *MockLabQueueService) FetchDeadJobs(ctx context.Context, max int) ([]contracts.JobMessage, error) {
	args := m.Called(ctx, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]contracts.JobMessage), args.Error(1)
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

type analysisFixture struct {
	sessions *MockSessionRepository
	reports  *MockLabReportRepository
	models   *MockModelClient
	locker   *MockLockerService
	archive  *MockDiagnosticsArchive
	queue    *MockLabQueueService
	hub      *MockRealtimePublisher
	snaps    *MockSnapshotStore
	uc       *analysisUsecase
}

func newAnalysisFixture() *analysisFixture {
	f := &analysisFixture{
		sessions: new(MockSessionRepository),
		reports:  new(MockLabReportRepository),
		models:   new(MockModelClient),
		locker:   new(MockLockerService),
		archive:  new(MockDiagnosticsArchive),
		queue:    new(MockLabQueueService),
		hub:      new(MockRealtimePublisher),
		snaps:    new(MockSnapshotStore),
	}
	f.uc = &analysisUsecase{
		SessionRepository:   f.sessions,
		LabReportRepository: f.reports,
		ModelClient:         f.models,
		LockerService:       f.locker,
		DiagnosticsArchive:  f.archive,
		LabQueueService:     f.queue,
		RealtimeHub:         f.hub,
		SnapshotStore:       f.snaps,
		Models: config.Models{
			PrimaryName:  "clinical-alpha",
			ReviewName:   "clinical-beta",
			ResearchName: "evidence-gamma",
		},
		Log: zap.NewNop(),
	}
	return f
}

func (f *analysisFixture) allowLock() {
	f.locker.On("TryLock", mock.Anything, mock.Anything, mock.Anything).Return(true, "lock_val", nil)
	f.locker.On("Unlock", mock.Anything, mock.Anything, "lock_val").Return(nil)
}

func (f *analysisFixture) allowPersistence() {
	f.sessions.On("CreateSession", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("UpdateSessionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("AttachPhaseOutput", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("AttachConsensus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("FinalizeSession", mock.Anything, mock.Anything).Return(nil)
	f.archive.On("ArchivePhaseOutput", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.hub.On("Publish", mock.Anything, mock.Anything).Return()
	f.snaps.On("StoreSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (f *analysisFixture) modelReturns(phase, raw string) {
	f.models.On("Invoke", mock.Anything, mock.MatchedBy(func(inv *requests.ModelInvocation) bool {
		return inv.Phase == phase
	})).Return(&contracts.ModelResult{RawText: raw, Cost: 0.01, ProcessingTimeMs: 120}, nil)
}

func analysisJob() *requests.AnalyzeLabResultsJob {
	return &requests.AnalyzeLabResultsJob{
		LabReportID: "report_1",
		PatientID:   "pat_7",
		Observations: []lab_dto.LabValue{
			{TestName: "Potassium", Value: "6.8", AbnormalFlag: constvars.AbnormalFlagCriticalHigh, Critical: true},
		},
	}
}

const wellFormedOutput = `{"analysis":"Elevated potassium.","confidence":0.8,"urgency_level":"high","differential_diagnoses":[{"condition":"Hyperkalemia","probability":0.9}],"recommendations":["Repeat potassium"],"red_flags":[],"follow_up_questions":[]}`

const reviewWithGaps = `{"analysis":"Review complete.","confidence":0.75,"urgency_level":"high","research_gaps":[{"question":"Could hemolysis explain the value?"}],"differential_diagnoses":[{"condition":"Hyperkalemia","probability":0.8}],"recommendations":[],"red_flags":[],"follow_up_questions":[]}`

const reviewWithoutGaps = `{"analysis":"Review complete, no open questions.","confidence":0.75,"urgency_level":"high","differential_diagnoses":[{"condition":"Hyperkalemia","probability":0.8}],"recommendations":[],"red_flags":[],"follow_up_questions":[]}`

const researchOutput = `{"analysis":"Evidence reviewed.","confidence":0.7,"urgency_level":"medium","research_findings":[{"question":"Could hemolysis explain the value?","answer":"No.","citations":["doi:1"],"corroborates":["Hyperkalemia"]}]}`

func TestRunAnalysis(t *testing.T) {
	t.Run("full run with research gaps completes and flags the report", func(t *testing.T) {
		f := newAnalysisFixture()
		f.allowLock()
		f.allowPersistence()
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(nil, nil)
		f.modelReturns(constvars.PhasePrimaryAnalysis, wellFormedOutput)
		f.modelReturns(constvars.PhaseCriticalReview, reviewWithGaps)
		f.modelReturns(constvars.PhaseGapResearch, researchOutput)
		f.modelReturns(constvars.PhaseRevision, wellFormedOutput)
		f.modelReturns(constvars.PhaseGraphicsSynthesis, wellFormedOutput)
		f.reports.On("MarkAIAnalysisCompleted", mock.Anything, "report_1").Return(nil)

		err := f.uc.RunAnalysis(context.Background(), analysisJob())

		assert.NoError(t, err)
		f.models.AssertNumberOfCalls(t, "Invoke", 5)
		f.reports.AssertCalled(t, "MarkAIAnalysisCompleted", mock.Anything, "report_1")
		f.sessions.AssertCalled(t, "AttachConsensus", mock.Anything, mock.Anything, mock.Anything)
		f.sessions.AssertCalled(t, "UpdateSessionStatus", mock.Anything, mock.Anything, constvars.SessionStatusResearchInProgress, "")
		f.sessions.AssertNotCalled(t, "UpdateSessionStatus", mock.Anything, mock.Anything, constvars.PhaseGapResearch, mock.Anything)
	})

	t.Run("zero research gaps make phase three a no-op", func(t *testing.T) {
		f := newAnalysisFixture()
		f.allowLock()

		var researchOutputStored *lab_dto.ModelResponse
		f.sessions.On("AttachPhaseOutput", mock.Anything, mock.Anything, constvars.PhaseGapResearch, mock.Anything).
			Run(func(args mock.Arguments) {
				researchOutputStored = args.Get(3).(*lab_dto.ModelResponse)
			}).Return(nil)

		f.allowPersistence()
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(nil, nil)
		f.modelReturns(constvars.PhasePrimaryAnalysis, wellFormedOutput)
		f.modelReturns(constvars.PhaseCriticalReview, reviewWithoutGaps)
		f.modelReturns(constvars.PhaseRevision, wellFormedOutput)
		f.modelReturns(constvars.PhaseGraphicsSynthesis, wellFormedOutput)
		f.reports.On("MarkAIAnalysisCompleted", mock.Anything, "report_1").Return(nil)

		err := f.uc.RunAnalysis(context.Background(), analysisJob())

		assert.NoError(t, err)
		f.models.AssertNumberOfCalls(t, "Invoke", 4)
		assert.NotNil(t, researchOutputStored)
		assert.Empty(t, researchOutputStored.ResearchFindings)
		f.reports.AssertCalled(t, "MarkAIAnalysisCompleted", mock.Anything, "report_1")
	})

	t.Run("phase failing twice marks the session failed and leaves the report unflagged", func(t *testing.T) {
		f := newAnalysisFixture()
		f.allowLock()
		f.allowPersistence()
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(nil, nil)
		f.models.On("Invoke", mock.Anything, mock.Anything).Return(nil, assert.AnError)
		f.archive.On("ArchiveFailedSession", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := f.uc.RunAnalysis(context.Background(), analysisJob())

		assert.NoError(t, err)
		f.models.AssertNumberOfCalls(t, "Invoke", 2)
		f.sessions.AssertCalled(t, "UpdateSessionStatus", mock.Anything, mock.Anything, constvars.SessionStatusFailed, mock.Anything)
		f.archive.AssertCalled(t, "ArchiveFailedSession", mock.Anything, mock.Anything, mock.Anything)
		f.reports.AssertNotCalled(t, "MarkAIAnalysisCompleted", mock.Anything, mock.Anything)
	})

	t.Run("transient failure recovers on the phase retry", func(t *testing.T) {
		f := newAnalysisFixture()
		f.allowLock()
		f.allowPersistence()
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(nil, nil)
		f.models.On("Invoke", mock.Anything, mock.MatchedBy(func(inv *requests.ModelInvocation) bool {
			return inv.Phase == constvars.PhasePrimaryAnalysis
		})).Return(nil, assert.AnError).Once()
		f.modelReturns(constvars.PhasePrimaryAnalysis, wellFormedOutput)
		f.modelReturns(constvars.PhaseCriticalReview, reviewWithoutGaps)
		f.modelReturns(constvars.PhaseRevision, wellFormedOutput)
		f.modelReturns(constvars.PhaseGraphicsSynthesis, wellFormedOutput)
		f.reports.On("MarkAIAnalysisCompleted", mock.Anything, "report_1").Return(nil)

		err := f.uc.RunAnalysis(context.Background(), analysisJob())

		assert.NoError(t, err)
		f.reports.AssertCalled(t, "MarkAIAnalysisCompleted", mock.Anything, "report_1")
	})

	t.Run("resumes from the first empty phase slot", func(t *testing.T) {
		f := newAnalysisFixture()
		f.allowLock()
		f.allowPersistence()
		existing := &lab_dto.AIAnalysisSession{
			ID:        "session_1",
			ReportID:  "report_1",
			PatientID: "pat_7",
			Status:    constvars.PhaseCriticalReview,
			PrimaryAnalysis: &lab_dto.ModelResponse{
				Phase: constvars.PhasePrimaryAnalysis, Analysis: "done", Confidence: 0.8, UrgencyLevel: constvars.UrgencyHigh,
			},
			CriticalReview: &lab_dto.ModelResponse{
				Phase: constvars.PhaseCriticalReview, Analysis: "done", Confidence: 0.75, UrgencyLevel: constvars.UrgencyHigh,
				ResearchGaps: []lab_dto.ResearchGap{{Question: "Q1"}},
			},
		}
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(existing, nil)
		f.modelReturns(constvars.PhaseGapResearch, researchOutput)
		f.modelReturns(constvars.PhaseRevision, wellFormedOutput)
		f.modelReturns(constvars.PhaseGraphicsSynthesis, wellFormedOutput)
		f.reports.On("MarkAIAnalysisCompleted", mock.Anything, "report_1").Return(nil)

		err := f.uc.RunAnalysis(context.Background(), analysisJob())

		assert.NoError(t, err)
		f.models.AssertNumberOfCalls(t, "Invoke", 3)
		f.sessions.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("terminal session is left untouched on redelivery", func(t *testing.T) {
		f := newAnalysisFixture()
		f.allowLock()
		terminal := &lab_dto.AIAnalysisSession{ID: "session_1", ReportID: "report_1", Status: constvars.SessionStatusCompleted}
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(terminal, nil)

		err := f.uc.RunAnalysis(context.Background(), analysisJob())

		assert.NoError(t, err)
		f.models.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
	})

	t.Run("unanswered gaps end in evidence required without flagging the report", func(t *testing.T) {
		f := newAnalysisFixture()
		f.allowLock()

		var finalized *lab_dto.AIAnalysisSession
		f.sessions.On("FinalizeSession", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				finalized = args.Get(1).(*lab_dto.AIAnalysisSession)
			}).Return(nil)

		f.allowPersistence()
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(nil, nil)
		f.modelReturns(constvars.PhasePrimaryAnalysis, wellFormedOutput)
		f.modelReturns(constvars.PhaseCriticalReview, reviewWithGaps)
		f.modelReturns(constvars.PhaseGapResearch, "the evidence service returned free text")
		f.modelReturns(constvars.PhaseRevision, wellFormedOutput)
		f.modelReturns(constvars.PhaseGraphicsSynthesis, wellFormedOutput)

		err := f.uc.RunAnalysis(context.Background(), analysisJob())

		assert.NoError(t, err)
		assert.Equal(t, constvars.SessionStatusEvidenceRequired, finalized.Status)
		f.reports.AssertNotCalled(t, "MarkAIAnalysisCompleted", mock.Anything, mock.Anything)
	})
}

func TestGetAnalysisByReport(t *testing.T) {
	t.Run("failed session surfaces explicit unavailable state", func(t *testing.T) {
		f := newAnalysisFixture()
		failed := &lab_dto.AIAnalysisSession{
			ID:       "session_1",
			ReportID: "report_1",
			Status:   constvars.SessionStatusFailed,
			Consensus: &lab_dto.ConsensusAnalysis{
				OverallUrgency: constvars.UrgencyHigh,
			},
		}
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(failed, nil)

		result, err := f.uc.GetAnalysisByReport(context.Background(), "report_1")

		assert.NoError(t, err)
		assert.True(t, result.Unavailable)
		assert.Equal(t, constvars.ErrClientAnalysisUnavailable, result.UnavailableNote)
		assert.Nil(t, result.Consensus)
	})

	t.Run("unknown report returns not found", func(t *testing.T) {
		f := newAnalysisFixture()
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_missing").Return(nil, nil)

		_, err := f.uc.GetAnalysisByReport(context.Background(), "report_missing")

		assert.Error(t, err)
	})
}

func TestTriggerAIAnalysis(t *testing.T) {
	t.Run("existing session is returned without enqueueing", func(t *testing.T) {
		f := newAnalysisFixture()
		f.reports.On("FindReportByID", mock.Anything, "report_1").Return(&lab_dto.LabReport{ID: "report_1", PatientID: "pat_7"}, nil)
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").
			Return(&lab_dto.AIAnalysisSession{ID: "session_1", ReportID: "report_1", Status: constvars.SessionStatusCompleted}, nil)

		result, err := f.uc.TriggerAIAnalysis(context.Background(), "report_1")

		assert.NoError(t, err)
		assert.Equal(t, "session_1", result.SessionID)
		f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new trigger enqueues an analysis job", func(t *testing.T) {
		f := newAnalysisFixture()
		f.reports.On("FindReportByID", mock.Anything, "report_1").Return(&lab_dto.LabReport{ID: "report_1", PatientID: "pat_7"}, nil)
		f.sessions.On("FindSessionByReportID", mock.Anything, "report_1").Return(nil, nil)
		f.reports.On("FindLabValuesByReport", mock.Anything, "report_1").Return([]lab_dto.LabValue{}, nil)
		f.reports.On("FindRecentReportsByPatient", mock.Anything, "pat_7", constvars.PatientHistoryDepth).Return([]lab_dto.LabReport{}, nil)
		f.queue.On("Enqueue", mock.Anything, constvars.QueueAnalyzeLabResults, mock.Anything).Return(nil)

		result, err := f.uc.TriggerAIAnalysis(context.Background(), "report_1")

		assert.NoError(t, err)
		assert.Equal(t, constvars.SessionStatusQueued, result.Status)
		f.queue.AssertCalled(t, "Enqueue", mock.Anything, constvars.QueueAnalyzeLabResults, mock.Anything)
	})

	t.Run("unknown report is rejected", func(t *testing.T) {
		f := newAnalysisFixture()
		f.reports.On("FindReportByID", mock.Anything, "report_missing").Return(nil, nil)

		_, err := f.uc.TriggerAIAnalysis(context.Background(), "report_missing")

		assert.Error(t, err)
	})
}
