package aianalysis

import (
	"context"
	"fmt"
	"labpulse-service/internal/app/config"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/app/services/consensus"
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

// One session holds its lock through five sequential model calls, so the
// expiration has to outlive the slowest full run.
const sessionLockExpiration = 15 * time.Minute

type analysisUsecase struct {
	SessionRepository   contracts.AnalysisSessionRepository
	LabReportRepository contracts.LabReportRepository
	ModelClient         contracts.ModelClient
	LockerService       contracts.LockerService
	DiagnosticsArchive  contracts.DiagnosticsArchive
	LabQueueService     contracts.LabQueueService
	RealtimeHub         contracts.RealtimePublisher
	SnapshotStore       contracts.SnapshotStore
	Models              config.Models
	Log                 *zap.Logger
}

var (
	analysisUsecaseInstance contracts.AnalysisUsecase
	onceAnalysisUsecase     sync.Once
)

func NewAnalysisUsecase(
	sessionRepository contracts.AnalysisSessionRepository,
	labReportRepository contracts.LabReportRepository,
	modelClient contracts.ModelClient,
	lockerService contracts.LockerService,
	diagnosticsArchive contracts.DiagnosticsArchive,
	labQueueService contracts.LabQueueService,
	realtimeHub contracts.RealtimePublisher,
	snapshotStore contracts.SnapshotStore,
	models config.Models,
	logger *zap.Logger,
) contracts.AnalysisUsecase {
	onceAnalysisUsecase.Do(func() {
		instance := &analysisUsecase{
			SessionRepository:   sessionRepository,
			LabReportRepository: labReportRepository,
			ModelClient:         modelClient,
			LockerService:       lockerService,
			DiagnosticsArchive:  diagnosticsArchive,
			LabQueueService:     labQueueService,
			RealtimeHub:         realtimeHub,
			SnapshotStore:       snapshotStore,
			Models:              models,
			Log:                 logger,
		}
		analysisUsecaseInstance = instance
	})
	return analysisUsecaseInstance
}

type phaseSpec struct {
	phase       string
	model       string
	slot        func(*lab_dto.AIAnalysisSession) *lab_dto.ModelResponse
	setSlot     func(*lab_dto.AIAnalysisSession, *lab_dto.ModelResponse)
	buildPrompt func(*requests.AnalyzeLabResultsJob, *lab_dto.AIAnalysisSession) *requests.ModelInvocation
}

func (uc *analysisUsecase) phases() []phaseSpec {
	return []phaseSpec{
		{
			phase: constvars.PhasePrimaryAnalysis,
			model: uc.Models.PrimaryName,
			slot:  func(s *lab_dto.AIAnalysisSession) *lab_dto.ModelResponse { return s.PrimaryAnalysis },
			setSlot: func(s *lab_dto.AIAnalysisSession, r *lab_dto.ModelResponse) {
				s.PrimaryAnalysis = r
			},
			buildPrompt: uc.buildPrimaryPrompt,
		},
		{
			phase: constvars.PhaseCriticalReview,
			model: uc.Models.ReviewName,
			slot:  func(s *lab_dto.AIAnalysisSession) *lab_dto.ModelResponse { return s.CriticalReview },
			setSlot: func(s *lab_dto.AIAnalysisSession, r *lab_dto.ModelResponse) {
				s.CriticalReview = r
			},
			buildPrompt: uc.buildReviewPrompt,
		},
		{
			phase: constvars.PhaseGapResearch,
			model: uc.Models.ResearchName,
			slot:  func(s *lab_dto.AIAnalysisSession) *lab_dto.ModelResponse { return s.GapResearch },
			setSlot: func(s *lab_dto.AIAnalysisSession, r *lab_dto.ModelResponse) {
				s.GapResearch = r
			},
			buildPrompt: uc.buildResearchPrompt,
		},
		{
			phase: constvars.PhaseRevision,
			model: uc.Models.PrimaryName,
			slot:  func(s *lab_dto.AIAnalysisSession) *lab_dto.ModelResponse { return s.Revision },
			setSlot: func(s *lab_dto.AIAnalysisSession, r *lab_dto.ModelResponse) {
				s.Revision = r
			},
			buildPrompt: uc.buildRevisionPrompt,
		},
		{
			phase: constvars.PhaseGraphicsSynthesis,
			model: uc.Models.ReviewName,
			slot:  func(s *lab_dto.AIAnalysisSession) *lab_dto.ModelResponse { return s.GraphicsSynthesis },
			setSlot: func(s *lab_dto.AIAnalysisSession, r *lab_dto.ModelResponse) {
				s.GraphicsSynthesis = r
			},
			buildPrompt: uc.buildGraphicsPrompt,
		},
	}
}

// RunAnalysis drives one session through the five sequential phases. Phase
// outputs persist as they complete, so a redelivered or resumed job picks
// up at the first empty slot. A phase gets one retry; a second failure
// marks the session failed and keeps the partial outputs for diagnostics.
func (uc *analysisUsecase) RunAnalysis(ctx context.Context, job *requests.AnalyzeLabResultsJob) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("analysisUsecase.RunAnalysis called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingReportIDKey, job.LabReportID),
	)

	lockKey := fmt.Sprintf(constvars.LockKeySessionFormat, job.LabReportID)
	acquired, lockValue, err := uc.LockerService.TryLock(ctx, lockKey, sessionLockExpiration)
	if err != nil {
		return err
	}
	if !acquired {
		return exceptions.ErrServerProcess(fmt.Errorf("analysis already running for report %s", job.LabReportID))
	}
	defer func() {
		if unlockErr := uc.LockerService.Unlock(ctx, lockKey, lockValue); unlockErr != nil {
			uc.Log.Error("analysisUsecase.RunAnalysis error releasing lock",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Error(unlockErr),
			)
		}
	}()

	session, err := uc.SessionRepository.FindSessionByReportID(ctx, job.LabReportID)
	if err != nil {
		return err
	}
	if session != nil && sessionTerminal(session.Status) {
		uc.Log.Info("analysisUsecase.RunAnalysis session already terminal",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingSessionIDKey, session.ID),
			zap.String("status", session.Status),
		)
		return nil
	}
	if session == nil {
		session = &lab_dto.AIAnalysisSession{
			ID:        utils.GenerateEntityID("session"),
			ReportID:  job.LabReportID,
			PatientID: job.PatientID,
			Status:    constvars.PhasePrimaryAnalysis,
			StartedAt: time.Now().UTC(),
		}
		if err := uc.SessionRepository.CreateSession(ctx, session); err != nil {
			return err
		}
	}

	for _, spec := range uc.phases() {
		if spec.slot(session) != nil {
			continue
		}
		if err := uc.runPhase(ctx, job, session, spec); err != nil {
			return err
		}
		if session.Status == constvars.SessionStatusFailed {
			return nil
		}
	}

	return uc.completeSession(ctx, session)
}

func (uc *analysisUsecase) runPhase(ctx context.Context, job *requests.AnalyzeLabResultsJob, session *lab_dto.AIAnalysisSession, spec phaseSpec) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	// Gap research surfaces as its own status so subscribers can tell the
	// evidence lookup apart from the model phases.
	status := spec.phase
	if spec.phase == constvars.PhaseGapResearch {
		status = constvars.SessionStatusResearchInProgress
	}
	session.Status = status
	if err := uc.SessionRepository.UpdateSessionStatus(ctx, session.ID, status, ""); err != nil {
		return err
	}
	uc.publishProgress(ctx, session)

	var parsed *lab_dto.ModelResponse
	if spec.phase == constvars.PhaseGapResearch && !hasResearchGaps(session) {
		parsed = neutralResearchResponse(spec.model)
	} else {
		invocation := spec.buildPrompt(job, session)
		result, err := uc.invokeWithRetry(ctx, invocation)
		if err != nil {
			return uc.failSession(ctx, session, spec.phase, err)
		}

		parsed = consensus.ParseModelResponse(spec.model, spec.phase, result.RawText)
		parsed.Cost = result.Cost
		parsed.ProcessingTimeMs = result.ProcessingTimeMs

		if archiveErr := uc.DiagnosticsArchive.ArchivePhaseOutput(ctx, session.ID, spec.phase, []byte(result.RawText)); archiveErr != nil {
			uc.Log.Error("analysisUsecase.runPhase error archiving raw output",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingSessionIDKey, session.ID),
				zap.String(constvars.LoggingPhaseKey, spec.phase),
				zap.Error(archiveErr),
			)
		}
	}

	if err := uc.SessionRepository.AttachPhaseOutput(ctx, session.ID, spec.phase, parsed); err != nil {
		return err
	}
	spec.setSlot(session, parsed)

	uc.Log.Info("analysisUsecase.runPhase completed",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingSessionIDKey, session.ID),
		zap.String(constvars.LoggingPhaseKey, spec.phase),
		zap.Bool("fallback", parsed.Fallback),
	)
	return nil
}

func (uc *analysisUsecase) invokeWithRetry(ctx context.Context, invocation *requests.ModelInvocation) (*contracts.ModelResult, error) {
	result, err := uc.ModelClient.Invoke(ctx, invocation)
	if err == nil {
		return result, nil
	}

	uc.Log.Warn("analysisUsecase.invokeWithRetry first attempt failed",
		zap.String(constvars.LoggingPhaseKey, invocation.Phase),
		zap.Error(err),
	)

	result, err = uc.ModelClient.Invoke(ctx, invocation)
	if err != nil {
		return nil, exceptions.ErrPhaseInvocation(err, invocation.Phase)
	}
	return result, nil
}

// failSession is the absorbing failure path: partial phase outputs stay on
// the session for diagnostics but are never surfaced to clients.
func (uc *analysisUsecase) failSession(ctx context.Context, session *lab_dto.AIAnalysisSession, phase string, cause error) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Error("analysisUsecase.failSession phase exhausted retries",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingSessionIDKey, session.ID),
		zap.String(constvars.LoggingPhaseKey, phase),
		zap.Error(cause),
	)

	session.Status = constvars.SessionStatusFailed
	session.FailureReason = fmt.Sprintf("phase %s failed after retry: %v", phase, cause)
	if err := uc.SessionRepository.UpdateSessionStatus(ctx, session.ID, constvars.SessionStatusFailed, session.FailureReason); err != nil {
		return err
	}

	if payload, err := json.Marshal(session); err == nil {
		if archiveErr := uc.DiagnosticsArchive.ArchiveFailedSession(ctx, session.ID, payload); archiveErr != nil {
			uc.Log.Error("analysisUsecase.failSession error archiving session",
				zap.String(constvars.LoggingSessionIDKey, session.ID),
				zap.Error(archiveErr),
			)
		}
	}

	uc.publishProgress(ctx, session)
	return nil
}

func (uc *analysisUsecase) completeSession(ctx context.Context, session *lab_dto.AIAnalysisSession) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	merged := consensus.Aggregate(session)
	if err := uc.SessionRepository.AttachConsensus(ctx, session.ID, merged); err != nil {
		return err
	}
	session.Consensus = merged

	status := constvars.SessionStatusCompleted
	if hasResearchGaps(session) && session.GapResearch != nil && session.GapResearch.Fallback {
		// The research engine never produced usable answers for the flagged
		// gaps, so the session cannot claim a completed evidence trail.
		status = constvars.SessionStatusEvidenceRequired
	}

	now := time.Now().UTC()
	session.Status = status
	session.CompletedAt = &now
	session.TotalCost, session.ProcessingTimeMs = sumPhaseTotals(session)
	if err := uc.SessionRepository.FinalizeSession(ctx, session); err != nil {
		return err
	}

	if status == constvars.SessionStatusCompleted {
		if err := uc.LabReportRepository.MarkAIAnalysisCompleted(ctx, session.ReportID); err != nil {
			return err
		}
	}

	uc.publishProgress(ctx, session)

	uc.Log.Info("analysisUsecase.completeSession succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingSessionIDKey, session.ID),
		zap.String("status", status),
		zap.Float64("total_cost", session.TotalCost),
	)
	return nil
}

func (uc *analysisUsecase) TriggerAIAnalysis(ctx context.Context, reportID string) (*responses.AIAnalysisResponse, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("analysisUsecase.TriggerAIAnalysis called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingReportIDKey, reportID),
	)

	report, err := uc.LabReportRepository.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, exceptions.ErrReportNotFound(nil)
	}

	session, err := uc.SessionRepository.FindSessionByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return buildAnalysisResponse(session), nil
	}

	values, err := uc.LabReportRepository.FindLabValuesByReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	history, err := uc.LabReportRepository.FindRecentReportsByPatient(ctx, report.PatientID, constvars.PatientHistoryDepth)
	if err != nil {
		return nil, err
	}

	job := requests.AnalyzeLabResultsJob{
		LabReportID:    reportID,
		PatientID:      report.PatientID,
		Observations:   values,
		PatientHistory: history,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return nil, exceptions.ErrCannotMarshalJSON(err)
	}
	err = uc.LabQueueService.Enqueue(ctx, constvars.QueueAnalyzeLabResults, contracts.JobMessage{
		ID:      utils.GenerateEntityID("job"),
		JobType: constvars.QueueAnalyzeLabResults,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}

	return &responses.AIAnalysisResponse{
		ReportID: reportID,
		Status:   constvars.SessionStatusQueued,
	}, nil
}

func (uc *analysisUsecase) GetAnalysisByReport(ctx context.Context, reportID string) (*responses.AIAnalysisResponse, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("analysisUsecase.GetAnalysisByReport called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingReportIDKey, reportID),
	)

	session, err := uc.SessionRepository.FindSessionByReportID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, exceptions.ErrSessionNotFound(nil)
	}
	return buildAnalysisResponse(session), nil
}

func (uc *analysisUsecase) publishProgress(ctx context.Context, session *lab_dto.AIAnalysisSession) {
	topic := fmt.Sprintf("%s:%s", constvars.TopicPrefixPatient, session.PatientID)
	progress := buildAnalysisResponse(session)
	event := lab_dto.Event{
		Type:      constvars.EventAIAnalysisProgress,
		PatientID: session.PatientID,
		Data:      progress,
		Timestamp: time.Now().UTC(),
	}
	uc.RealtimeHub.Publish(topic, event)

	if err := uc.SnapshotStore.StoreSnapshot(ctx, topic, progress); err != nil {
		uc.Log.Error("analysisUsecase.publishProgress error storing snapshot",
			zap.String(constvars.LoggingSessionIDKey, session.ID),
			zap.Error(err),
		)
	}
}

func (uc *analysisUsecase) buildPrimaryPrompt(job *requests.AnalyzeLabResultsJob, _ *lab_dto.AIAnalysisSession) *requests.ModelInvocation {
	return &requests.ModelInvocation{
		Model:   uc.Models.PrimaryName,
		Phase:   constvars.PhasePrimaryAnalysis,
		Prompt:  "Provide a differential diagnosis with probabilities, a confidence score, an urgency level and recommendations for the lab results in context.",
		Context: marshalContext(map[string]interface{}{"observations": job.Observations, "patient_history": job.PatientHistory}),
	}
}

func (uc *analysisUsecase) buildReviewPrompt(_ *requests.AnalyzeLabResultsJob, session *lab_dto.AIAnalysisSession) *requests.ModelInvocation {
	return &requests.ModelInvocation{
		Model:   uc.Models.ReviewName,
		Phase:   constvars.PhaseCriticalReview,
		Prompt:  "Review the primary analysis in context. Identify inconsistencies and enumerate concrete, answerable research questions. Do not revise the diagnosis.",
		Context: marshalContext(map[string]interface{}{"primary_analysis": session.PrimaryAnalysis}),
	}
}

func (uc *analysisUsecase) buildResearchPrompt(_ *requests.AnalyzeLabResultsJob, session *lab_dto.AIAnalysisSession) *requests.ModelInvocation {
	return &requests.ModelInvocation{
		Model:   uc.Models.ResearchName,
		Phase:   constvars.PhaseGapResearch,
		Prompt:  "Answer each research question in context with citations. State which diagnosis conditions the evidence corroborates or contradicts.",
		Context: marshalContext(map[string]interface{}{"research_gaps": session.CriticalReview.ResearchGaps, "primary_analysis": session.PrimaryAnalysis}),
	}
}

func (uc *analysisUsecase) buildRevisionPrompt(_ *requests.AnalyzeLabResultsJob, session *lab_dto.AIAnalysisSession) *requests.ModelInvocation {
	return &requests.ModelInvocation{
		Model:   uc.Models.PrimaryName,
		Phase:   constvars.PhaseRevision,
		Prompt:  "Revise your original analysis in light of the research findings in context. You may add, remove or re-weight diagnoses and adjust confidence and recommendations.",
		Context: marshalContext(map[string]interface{}{"primary_analysis": session.PrimaryAnalysis, "research": session.GapResearch}),
	}
}

func (uc *analysisUsecase) buildGraphicsPrompt(_ *requests.AnalyzeLabResultsJob, session *lab_dto.AIAnalysisSession) *requests.ModelInvocation {
	return &requests.ModelInvocation{
		Model:   uc.Models.ReviewName,
		Phase:   constvars.PhaseGraphicsSynthesis,
		Prompt:  "Describe dashboard visualizations (chart type, data source, insight) strictly derived from the revised analysis in context. No new clinical claims.",
		Context: marshalContext(map[string]interface{}{"revision": session.Revision}),
	}
}

func marshalContext(payload map[string]interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

func hasResearchGaps(session *lab_dto.AIAnalysisSession) bool {
	return session.CriticalReview != nil && len(session.CriticalReview.ResearchGaps) > 0
}

// neutralResearchResponse is the no-op phase 3 result used when critical
// review raised no research questions.
func neutralResearchResponse(model string) *lab_dto.ModelResponse {
	return &lab_dto.ModelResponse{
		Model:             model,
		Phase:             constvars.PhaseGapResearch,
		Analysis:          "No research gaps identified; no evidence lookup performed.",
		Confidence:        1.0,
		UrgencyLevel:      constvars.UrgencyLow,
		Recommendations:   []string{},
		Diagnoses:         []lab_dto.DifferentialDiagnosis{},
		RedFlags:          []string{},
		FollowUpQuestions: []string{},
	}
}

func sessionTerminal(status string) bool {
	switch status {
	case constvars.SessionStatusCompleted, constvars.SessionStatusEvidenceRequired, constvars.SessionStatusFailed:
		return true
	}
	return false
}

func sumPhaseTotals(session *lab_dto.AIAnalysisSession) (cost float64, timeMs int64) {
	for _, response := range []*lab_dto.ModelResponse{
		session.PrimaryAnalysis,
		session.CriticalReview,
		session.GapResearch,
		session.Revision,
		session.GraphicsSynthesis,
	} {
		if response == nil {
			continue
		}
		cost += response.Cost
		timeMs += response.ProcessingTimeMs
	}
	return cost, timeMs
}

func buildAnalysisResponse(session *lab_dto.AIAnalysisSession) *responses.AIAnalysisResponse {
	response := &responses.AIAnalysisResponse{
		SessionID:        session.ID,
		ReportID:         session.ReportID,
		Status:           session.Status,
		TotalCost:        session.TotalCost,
		ProcessingTimeMs: session.ProcessingTimeMs,
	}
	if session.Status == constvars.SessionStatusFailed {
		response.Unavailable = true
		response.UnavailableNote = constvars.ErrClientAnalysisUnavailable
		return response
	}
	response.Consensus = session.Consensus
	return response
}
