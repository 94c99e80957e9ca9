package lab_dto

import "time"

// CriticalValueAlert is derived from exactly one critical LabValue. Created
// as active; acknowledged/resolved only through explicit clinician action.
type CriticalValueAlert struct {
	ID             string     `json:"id" bson:"_id"`
	ReportID       string     `json:"report_id" bson:"report_id"`
	PatientID      string     `json:"patient_id" bson:"patient_id"`
	LabValueID     string     `json:"lab_value_id" bson:"lab_value_id"`
	TestName       string     `json:"test_name" bson:"test_name"`
	Value          string     `json:"value" bson:"value"`
	CriticalRange  string     `json:"critical_range" bson:"critical_range"`
	Urgency        string     `json:"urgency" bson:"urgency"`
	Status         string     `json:"status" bson:"status"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty" bson:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" bson:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}
