package labreports

import (
	"fmt"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/dto/requests"
	"labpulse-service/internal/pkg/lab_dto"
	"labpulse-service/internal/pkg/utils"
	"time"
)

// MapAbnormalFlag converts the source system's interpretation code. Unknown
// codes are treated as normal rather than rejected; the value itself is
// still stored.
func MapAbnormalFlag(interpretation string) (flag string, critical bool) {
	switch interpretation {
	case "H":
		return constvars.AbnormalFlagHigh, false
	case "L":
		return constvars.AbnormalFlagLow, false
	case "HH", "AA":
		return constvars.AbnormalFlagCriticalHigh, true
	case "LL":
		return constvars.AbnormalFlagCriticalLow, true
	default:
		return constvars.AbnormalFlagNormal, false
	}
}

// MapObservationToLabValue builds the stored observation for one raw entry.
// Structured feed values carry full parsing confidence.
func MapObservationToLabValue(reportID string, observation *requests.RawObservation, now time.Time) *lab_dto.LabValue {
	flag, critical := MapAbnormalFlag(observation.Interpretation)
	return &lab_dto.LabValue{
		ID:             utils.GenerateEntityID("value"),
		ReportID:       reportID,
		TestName:       observation.TestName,
		Value:          observation.Value,
		Unit:           observation.Unit,
		ReferenceRange: observation.ReferenceRange,
		AbnormalFlag:   flag,
		Critical:       critical,
		Confidence:     1.0,
		CreatedAt:      now,
	}
}

// BuildAbnormalSummary is the human readable line kept on the report for
// each abnormal value.
func BuildAbnormalSummary(value *lab_dto.LabValue) string {
	if value.Unit == "" {
		return fmt.Sprintf("%s %s (%s)", value.TestName, value.Value, value.AbnormalFlag)
	}
	return fmt.Sprintf("%s %s %s (%s)", value.TestName, value.Value, value.Unit, value.AbnormalFlag)
}
