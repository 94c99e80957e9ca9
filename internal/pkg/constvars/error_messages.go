package constvars

// Client-facing messages.
const (
	ErrClientCannotProcessRequest          = "We cannot process your request, please try again"
	ErrClientSomethingWrongWithApplication = "Something went wrong with the application, please contact the administrator"
	ErrClientNotAuthorized                 = "You are not authorized to perform this action"
	ErrClientNotLoggedIn                   = "You are not logged in, please log in first"
	ErrClientServerLongRespond             = "Server takes too long to respond, please try again"
	ErrClientInvalidAPIKey                 = "Invalid API key for this laboratory system"
	ErrClientEmptyBatch                    = "The submitted batch contains no lab results"
	ErrClientBatchNotFound                 = "The requested batch could not be found"
	ErrClientReportNotFound                = "The requested lab report could not be found"
	ErrClientAlertNotFound                 = "The requested alert could not be found"
	ErrClientAlertAlreadyResolved          = "The alert has already been resolved"
	ErrClientAnalysisNotFound              = "No analysis exists for the requested report"
	ErrClientAnalysisUnavailable           = "Analysis unavailable, contact support"
)

// Developer-facing messages.
const (
	ErrDevValidationFailed   = "Request validation failed"
	ErrDevCannotParseJSON    = "Failed to parse JSON request body"
	ErrDevCannotMarshalJSON  = "Failed to marshal value to JSON"
	ErrDevCreateHTTPRequest  = "Failed to create HTTP request"
	ErrDevSendHTTPRequest    = "Failed to send HTTP request"
	ErrDevDecodeResponse     = "Failed to decode %s response body"
	ErrDevAuthTokenMissing   = "Authorization token is missing"
	ErrDevAuthTokenInvalid   = "Authorization token is invalid or expired"
	ErrDevAuthSigningMethod  = "Unexpected JWT signing method"
	ErrDevAPIKeyMismatch     = "API key does not match configured key for lab system"
	ErrDevServerProcess      = "Internal process failed"
	ErrDevServerDeadline     = "Server deadline exceeded while processing request"
	ErrDevEmptyBatch         = "Batch submission rejected: zero lab results"
	ErrDevBatchNotFound      = "LabBatch document not found"
	ErrDevReportNotFound     = "LabReport document not found"
	ErrDevAlertNotFound      = "CriticalValueAlert document not found"
	ErrDevSessionNotFound    = "AIAnalysisSession document not found"
	ErrDevItemProcessing     = "Lab result item failed processing"
	ErrDevAlertDelivery      = "Notification delivery failed for alert"
	ErrDevPhaseInvocation    = "Model invocation failed for phase %s"
	ErrDevAlertTransition    = "Invalid alert lifecycle transition"
	ErrDevPatientResolve     = "Failed to resolve or create patient by external identifier"
	ErrDevDirectoryLookup    = "Patient/physician directory lookup failed"
	ErrDevAccessDenied       = "Access verification failed for requested topic"
	ErrDevDashboardNotify    = "Dashboard update notification failed"
	ErrDevSubscriptionUpgrad = "Failed to upgrade connection to websocket"

	ErrDevDBFailedToFindDocument    = "Database failed to find document"
	ErrDevDBFailedToInsertDocument  = "Database failed to insert document"
	ErrDevDBFailedToUpdateDocument  = "Database failed to update document"
	ErrDevDBFailedToIterateDocument = "Database failed to iterate documents"

	ErrDevRedisGetNoData    = "Redis has no data for key %s"
	ErrDevRedisGetData      = "Redis failed to get data"
	ErrDevRedisSetData      = "Redis failed to set data"
	ErrDevRedisDeleteData   = "Redis failed to delete data"
	ErrDevRedisSetNX        = "Redis failed to set key with NX"
	ErrDevRedisUnlock       = "Redis failed to release lock"
	ErrDevRabbitMQPublish   = "RabbitMQ failed to publish message to queue %s"
	ErrDevRabbitMQConsume   = "RabbitMQ failed to start consuming queue %s"
	ErrDevMinioCreateObject = "Minio failed to store object in bucket %s"
)
