package constvars

const (
	LoggingRequestIDKey  = "request_id"
	LoggingDataKey       = "data"
	LoggingBatchIDKey    = "batch_id"
	LoggingItemIDKey     = "item_id"
	LoggingReportIDKey   = "report_id"
	LoggingPatientIDKey  = "patient_id"
	LoggingSessionIDKey  = "session_id"
	LoggingAlertIDKey    = "alert_id"
	LoggingPhaseKey      = "phase"
	LoggingModelKey      = "model"
	LoggingTopicKey      = "topic"
	LoggingEventTypeKey  = "event_type"
	LoggingJobIDKey      = "job_id"
	LoggingJobTypeKey    = "job_type"
	LoggingAttemptKey    = "attempt"
	LoggingQueueNameKey  = "queue_name"
	LoggingLabSystemKey  = "lab_system"
	LoggingTestNameKey   = "test_name"
	LoggingMethodKey     = "method"
	LoggingEndpointKey   = "endpoint"
	LoggingRemoteAddrKey = "remote_addr"
	LoggingUserAgentKey  = "user_agent"
	LoggingQueryKey      = "query"
	LoggingStatusCodeKey = "status_code"
	LoggingDurationKey   = "duration"
	LoggingSuccessKey    = "success"
	LoggingRedisKey      = "redis_key"
	LoggingObjectNameKey = "object_name"

	LoggingLockExpirationTimeKey = "lock_expiration_time"
	LoggingLockValueKey          = "lock_value"
	LoggingLockStoredValueKey    = "lock_stored_value"
	LoggingLockExpectedValueKey  = "lock_expected_value"
)
