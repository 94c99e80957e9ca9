package constvars

const (
	ResponseUnknown = "unknown"

	SuccessBatchAccepted   = "Batch accepted for processing"
	SuccessBatchFetched    = "Batch progress fetched successfully"
	SuccessAlertAck        = "Alert acknowledged"
	SuccessAlertResolved   = "Alert resolved"
	SuccessAnalysisStarted = "AI analysis started"
	SuccessAnalysisFetched = "Analysis fetched successfully"
	SuccessDeadJobsFetched = "Dead jobs fetched successfully"
)
