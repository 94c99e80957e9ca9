package lab_dto

import "time"

// LabReport is one clinical report for one patient. AIAnalysisCompleted is
// the only field mutated after creation; the orchestrator flips it when a
// session reaches terminal status completed.
type LabReport struct {
	ID                  string    `json:"id" bson:"_id"`
	PatientID           string    `json:"patient_id" bson:"patient_id"`
	ExternalID          string    `json:"external_id" bson:"external_id"`
	BatchID             string    `json:"batch_id" bson:"batch_id"`
	SourceLab           string    `json:"source_lab" bson:"source_lab"`
	CollectedAt         time.Time `json:"collected_at" bson:"collected_at"`
	ReportedAt          time.Time `json:"reported_at" bson:"reported_at"`
	Status              string    `json:"status" bson:"status"`
	AIAnalysisCompleted bool      `json:"ai_analysis_completed" bson:"ai_analysis_completed"`
	AbnormalSummaries   []string  `json:"abnormal_summaries,omitempty" bson:"abnormal_summaries,omitempty"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
}

// LabValue is one named observation within a report. Immutable after
// creation.
type LabValue struct {
	ID             string    `json:"id" bson:"_id"`
	ReportID       string    `json:"report_id" bson:"report_id"`
	TestName       string    `json:"test_name" bson:"test_name"`
	Value          string    `json:"value" bson:"value"`
	Unit           string    `json:"unit" bson:"unit"`
	ReferenceRange string    `json:"reference_range" bson:"reference_range"`
	AbnormalFlag   string    `json:"abnormal_flag" bson:"abnormal_flag"`
	Critical       bool      `json:"critical" bson:"critical"`
	Confidence     float64   `json:"confidence" bson:"confidence"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
