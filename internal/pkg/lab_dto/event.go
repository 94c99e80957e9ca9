package lab_dto

import "time"

// Event is the envelope pushed to realtime subscribers. Delivery is
// at-most-once per connected subscriber; reconnecting clients get a fresh
// snapshot, not missed events.
type Event struct {
	Type      string      `json:"type"`
	PatientID string      `json:"patientId"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	Urgency   string      `json:"urgency"`
}
