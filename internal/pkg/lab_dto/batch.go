package lab_dto

import "time"

// LabBatch tracks one submission of lab results from a source laboratory
// system. Counters are mutated only by the batch coordinator under a
// per-batch lock.
type LabBatch struct {
	ID             string    `json:"id" bson:"_id"`
	SourceSystem   string    `json:"source_system" bson:"source_system"`
	SubmittedAt    time.Time `json:"submitted_at" bson:"submitted_at"`
	TotalCount     int       `json:"total_count" bson:"total_count"`
	ProcessedCount int       `json:"processed_count" bson:"processed_count"`
	FailedCount    int       `json:"failed_count" bson:"failed_count"`
	Status         string    `json:"status" bson:"status"`
	ErrorSummary   []string  `json:"error_summary,omitempty" bson:"error_summary,omitempty"`
	CountedItems   []string  `json:"counted_items,omitempty" bson:"counted_items,omitempty"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// Terminal reports whether the batch reached a final state.
func (b *LabBatch) Terminal() bool {
	switch b.Status {
	case "completed", "partial", "failed":
		return true
	}
	return false
}
