package lab_dto

// Patient is the directory view of a patient, keyed by the external
// identifier a laboratory system reports.
type Patient struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	FullName   string `json:"full_name"`
}

// Physician is one clinician associated with a patient.
type Physician struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Contact  string `json:"contact"`
}
