package constvars

// Abnormal flags computed from the interpretation code reported by the
// source laboratory (H, L, HH, LL, AA).
const (
	AbnormalFlagNormal       = "NORMAL"
	AbnormalFlagHigh         = "HIGH"
	AbnormalFlagLow          = "LOW"
	AbnormalFlagCriticalHigh = "CRITICAL_HIGH"
	AbnormalFlagCriticalLow  = "CRITICAL_LOW"
)

const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusCompleted  = "completed"
	BatchStatusPartial    = "partial"
	BatchStatusFailed     = "failed"
)

const (
	ReportStatusProcessing = "processing"
	ReportStatusProcessed  = "processed"
)

const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

const (
	UrgencyLow      = "low"
	UrgencyMedium   = "medium"
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// Five-phase pipeline states plus terminal/side states.
const (
	PhasePrimaryAnalysis   = "primary_analysis"
	PhaseCriticalReview    = "critical_review"
	PhaseGapResearch       = "gap_research"
	PhaseRevision          = "revision"
	PhaseGraphicsSynthesis = "graphics_synthesis"

	SessionStatusQueued             = "queued"
	SessionStatusCompleted          = "completed"
	SessionStatusEvidenceRequired   = "evidence_required"
	SessionStatusResearchInProgress = "research_in_progress"
	SessionStatusFailed             = "failed"
)

const (
	EvidenceSupportStrong      = "strong"
	EvidenceSupportModerate    = "moderate"
	EvidenceSupportWeak        = "weak"
	EvidenceSupportConflicting = "conflicting"

	EvidenceQualityHigh         = "high"
	EvidenceQualityModerate     = "moderate"
	EvidenceQualityLow          = "low"
	EvidenceQualityInsufficient = "insufficient"
)

// Realtime event types pushed to subscribers.
const (
	EventLabResultsUpdate   = "lab-results-update"
	EventCriticalValueAlert = "critical-value-alert"
	EventAIAnalysisProgress = "ai-analysis-progress"
	EventBatchStatusUpdate  = "batch-status-update"
	EventSnapshot           = "snapshot"
)

// Subscription topic prefixes. Topics are "<prefix>:<id>".
const (
	TopicPrefixPatient   = "patient"
	TopicPrefixClinician = "clinician"
	TopicPrefixBatch     = "batch"
)

// PatientHistoryDepth is how many recent reports accompany an AI analysis
// job for temporal context.
const PatientHistoryDepth = 5
