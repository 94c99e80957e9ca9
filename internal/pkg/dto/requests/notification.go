package requests

// ClinicianNotification pages a clinician about a critical value.
type ClinicianNotification struct {
	ClinicianID string `json:"clinician_id"`
	PatientID   string `json:"patient_id"`
	AlertID     string `json:"alert_id"`
	TestName    string `json:"test_name"`
	Value       string `json:"value"`
	Urgency     string `json:"urgency"`
	Message     string `json:"message"`
}

// PatientNotification is the deliberately less alarming patient-facing
// message.
type PatientNotification struct {
	PatientID string `json:"patient_id"`
	ReportID  string `json:"report_id"`
	Message   string `json:"message"`
}

// ModelInvocation is the outbound request to one reasoning engine.
type ModelInvocation struct {
	Model   string `json:"model"`
	Phase   string `json:"phase"`
	Prompt  string `json:"prompt"`
	Context string `json:"context,omitempty"`
}
