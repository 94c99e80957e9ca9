package consensus

import (
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/lab_dto"
	"strings"

	"github.com/goccy/go-json"
)

// ParseModelResponse normalizes raw model output into the typed envelope.
// Malformed output never fails a phase: the fallback stub keeps the raw text
// as the analysis, confidence 0.5, urgency medium and empty lists, and is
// marked so downstream consumers can discount it.
func ParseModelResponse(model, phase, raw string) *lab_dto.ModelResponse {
	response := new(lab_dto.ModelResponse)
	decoder := json.NewDecoder(strings.NewReader(raw))
	if err := decoder.Decode(response); err != nil {
		return fallbackResponse(model, phase, raw)
	}

	if response.Analysis == "" {
		return fallbackResponse(model, phase, raw)
	}
	if !validUrgency(response.UrgencyLevel) {
		return fallbackResponse(model, phase, raw)
	}

	response.Model = model
	response.Phase = phase
	response.Confidence = clampConfidence(response.Confidence)
	ensureLists(response)
	return response
}

func fallbackResponse(model, phase, raw string) *lab_dto.ModelResponse {
	return &lab_dto.ModelResponse{
		Model:             model,
		Phase:             phase,
		Analysis:          raw,
		Confidence:        0.5,
		UrgencyLevel:      constvars.UrgencyMedium,
		Recommendations:   []string{},
		Diagnoses:         []lab_dto.DifferentialDiagnosis{},
		RedFlags:          []string{},
		FollowUpQuestions: []string{},
		Fallback:          true,
	}
}

func validUrgency(urgency string) bool {
	switch urgency {
	case constvars.UrgencyLow, constvars.UrgencyMedium, constvars.UrgencyHigh, constvars.UrgencyCritical:
		return true
	}
	return false
}

func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func ensureLists(response *lab_dto.ModelResponse) {
	if response.Recommendations == nil {
		response.Recommendations = []string{}
	}
	if response.Diagnoses == nil {
		response.Diagnoses = []lab_dto.DifferentialDiagnosis{}
	}
	if response.RedFlags == nil {
		response.RedFlags = []string{}
	}
	if response.FollowUpQuestions == nil {
		response.FollowUpQuestions = []string{}
	}
}
