package requests

import "labpulse-service/internal/pkg/lab_dto"

// ProcessLabResultsJob is the queue payload for one lab result item. The
// coordinator fans a submitted batch out to one job per item; Results keeps
// the wire shape of the process-lab-results payload.
type ProcessLabResultsJob struct {
	BatchID   string         `json:"batchId"`
	LabSystem string         `json:"labSystem"`
	Results   []RawLabResult `json:"results"`
}

// AlertCriticalValuesJob asks the alerting worker to raise alerts for the
// critical values of one report.
type AlertCriticalValuesJob struct {
	LabReportID    string             `json:"labReportId"`
	PatientID      string             `json:"patientId"`
	CriticalValues []lab_dto.LabValue `json:"criticalValues"`
}

// AnalyzeLabResultsJob starts (or resumes) a consensus session for one
// report, carrying the patient's recent reports for temporal context.
type AnalyzeLabResultsJob struct {
	LabReportID    string              `json:"labReportId"`
	PatientID      string              `json:"patientId"`
	Observations   []lab_dto.LabValue  `json:"observations"`
	PatientHistory []lab_dto.LabReport `json:"patientHistory"`
}
