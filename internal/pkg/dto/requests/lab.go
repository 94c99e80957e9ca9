package requests

// SubmitLabBatch is the process-lab-results payload accepted over HTTP from
// a laboratory system.
type SubmitLabBatch struct {
	BatchID   string         `json:"batch_id"`
	LabSystem string         `json:"lab_system" validate:"required"`
	Results   []RawLabResult `json:"results" validate:"required,min=1,dive"`
}

// RawLabResult is one lab report as emitted by the source system.
type RawLabResult struct {
	ExternalID        string           `json:"external_id" validate:"required"`
	PatientExternalID string           `json:"patient_external_id" validate:"required"`
	CollectedAt       string           `json:"collected_at"`
	ReportedAt        string           `json:"reported_at"`
	Observations      []RawObservation `json:"observations" validate:"required,min=1,dive"`
}

// RawObservation carries the source system's interpretation code (H, L, HH,
// LL, AA or empty).
type RawObservation struct {
	TestName       string `json:"test_name" validate:"required"`
	Value          string `json:"value" validate:"required"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"reference_range"`
	Interpretation string `json:"interpretation"`
}

// AlertAction is a clinician acknowledging or resolving an alert.
type AlertAction struct {
	ClinicianID string `json:"clinician_id" validate:"required"`
	Note        string `json:"note"`
}
