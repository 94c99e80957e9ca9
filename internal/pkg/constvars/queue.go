package constvars

// Job queue names. One durable queue per job class plus a shared DLQ for
// jobs that exhausted their retry budget.
const (
	QueueProcessLabResults  = "process-lab-results"
	QueueAlertCriticalValue = "alert-critical-values"
	QueueAnalyzeLabResults  = "analyze-lab-results"
	QueueDeadJobs           = "lab_pipeline_dlq"

	QueueClinicianNotifications = "clinician_notifications"
	QueuePatientNotifications   = "patient_notifications"
)

// Worker pool sizing. AI analysis is the smallest pool on purpose: one
// session holds a worker through five sequential model calls.
const (
	LabResultWorkerConcurrency = 10
	AlertWorkerConcurrency     = 5
	AnalysisWorkerConcurrency  = 3
)

// Retry caps per job class. Past the cap a job lands in the DLQ.
const (
	LabResultJobMaxAttempts = 3
	AlertJobMaxAttempts     = 5
	AnalysisJobMaxAttempts  = 2
)

// RetryBackoffBaseSeconds is the first retry delay; it doubles per attempt.
const RetryBackoffBaseSeconds = 1

// Redis lock key formats. One writer per entity at a time.
const (
	LockKeyBatchFormat   = "lock:batch:%s"
	LockKeySessionFormat = "lock:session:%s"
	LockKeyAlertFormat   = "lock:alert:%s"
)
