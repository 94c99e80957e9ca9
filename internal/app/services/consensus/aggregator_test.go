package consensus

import (
	"testing"

	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/lab_dto"

	"github.com/stretchr/testify/assert"
)

func response(phase, urgency string, confidence float64, conditions ...string) *lab_dto.ModelResponse {
	diagnoses := make([]lab_dto.DifferentialDiagnosis, 0, len(conditions))
	for _, condition := range conditions {
		diagnoses = append(diagnoses, lab_dto.DifferentialDiagnosis{Condition: condition, Probability: 0.5})
	}
	return &lab_dto.ModelResponse{
		Phase:        phase,
		Analysis:     "analysis",
		Confidence:   confidence,
		UrgencyLevel: urgency,
		Diagnoses:    diagnoses,
	}
}

func TestPairwiseAgreement(t *testing.T) {
	t.Run("identical responses score exactly one", func(t *testing.T) {
		a := response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.8, "Hyperkalemia", "AKI")
		b := response(constvars.PhaseCriticalReview, constvars.UrgencyHigh, 0.8, "Hyperkalemia", "AKI")

		assert.Equal(t, 1.0, PairwiseAgreement(a, b))
	})

	t.Run("total disagreement scores zero", func(t *testing.T) {
		a := response(constvars.PhaseRevision, constvars.UrgencyCritical, 0.9, "Hyperkalemia")
		b := response(constvars.PhaseCriticalReview, constvars.UrgencyLow, 0.3, "Anemia")

		assert.Equal(t, 0.0, PairwiseAgreement(a, b))
	})

	t.Run("case insensitive condition overlap", func(t *testing.T) {
		a := response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.8, "Hyperkalemia")
		b := response(constvars.PhaseCriticalReview, constvars.UrgencyHigh, 0.75, "HYPERKALEMIA")

		assert.Equal(t, 1.0, PairwiseAgreement(a, b))
	})

	t.Run("two empty diagnosis sets count as full overlap", func(t *testing.T) {
		a := response(constvars.PhaseRevision, constvars.UrgencyLow, 0.5)
		b := response(constvars.PhaseCriticalReview, constvars.UrgencyLow, 0.5)

		assert.Equal(t, 1.0, PairwiseAgreement(a, b))
	})
}

func TestAggregate(t *testing.T) {
	t.Run("majority severity rule resolves urgency upward and records the note", func(t *testing.T) {
		session := &lab_dto.AIAnalysisSession{
			Revision:       response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.8, "Hyperkalemia"),
			CriticalReview: response(constvars.PhaseCriticalReview, constvars.UrgencyMedium, 0.75, "Hyperkalemia"),
		}

		consensus := Aggregate(session)

		assert.Equal(t, constvars.UrgencyHigh, consensus.OverallUrgency)
		assert.Len(t, consensus.DisagreementNotes, 1)
		assert.Contains(t, consensus.DisagreementNotes[0], "urgency mismatch")
	})

	t.Run("confidence spread above threshold is noted", func(t *testing.T) {
		session := &lab_dto.AIAnalysisSession{
			Revision:       response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.95, "Hyperkalemia"),
			CriticalReview: response(constvars.PhaseCriticalReview, constvars.UrgencyHigh, 0.5, "Hyperkalemia"),
		}

		consensus := Aggregate(session)

		assert.Len(t, consensus.DisagreementNotes, 1)
		assert.Contains(t, consensus.DisagreementNotes[0], "confidence spread")
	})

	t.Run("merged diagnoses average probability across mentions", func(t *testing.T) {
		primary := response(constvars.PhasePrimaryAnalysis, constvars.UrgencyHigh, 0.8)
		primary.Diagnoses = []lab_dto.DifferentialDiagnosis{{Condition: "Hyperkalemia", Probability: 0.9}}
		revision := response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.8)
		revision.Diagnoses = []lab_dto.DifferentialDiagnosis{
			{Condition: "hyperkalemia", Probability: 0.7},
			{Condition: "Acute kidney injury", Probability: 0.4},
		}
		session := &lab_dto.AIAnalysisSession{PrimaryAnalysis: primary, Revision: revision}

		consensus := Aggregate(session)

		assert.Len(t, consensus.MergedDiagnoses, 2)
		assert.Equal(t, "Hyperkalemia", consensus.MergedDiagnoses[0].Condition)
		assert.InDelta(t, 0.8, consensus.MergedDiagnoses[0].Probability, 1e-9)
		assert.Equal(t, 2, consensus.MergedDiagnoses[0].MentionCount)
		assert.Equal(t, constvars.EvidenceSupportModerate, consensus.MergedDiagnoses[0].EvidenceSupport)
		assert.Equal(t, constvars.EvidenceSupportWeak, consensus.MergedDiagnoses[1].EvidenceSupport)
	})

	t.Run("research corroboration and contradiction drive evidence support", func(t *testing.T) {
		revision := response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.8, "Hyperkalemia", "Anemia")
		research := response(constvars.PhaseGapResearch, constvars.UrgencyMedium, 0.7)
		research.ResearchFindings = []lab_dto.ResearchFinding{
			{
				Question:     "Is the potassium elevation consistent with hemolysis?",
				Answer:       "No, hemolysis index is normal.",
				Citations:    []string{"doi:10.1000/lab.123"},
				Corroborates: []string{"Hyperkalemia"},
				Contradicts:  []string{"Anemia"},
			},
		}
		session := &lab_dto.AIAnalysisSession{Revision: revision, GapResearch: research}

		consensus := Aggregate(session)

		assert.Equal(t, constvars.EvidenceSupportStrong, consensus.MergedDiagnoses[0].EvidenceSupport)
		assert.Equal(t, constvars.EvidenceSupportConflicting, consensus.MergedDiagnoses[1].EvidenceSupport)
	})

	t.Run("evidence quality classifies on corroborated ratio", func(t *testing.T) {
		revision := response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.8, "A", "B", "C", "D", "E")
		research := response(constvars.PhaseGapResearch, constvars.UrgencyMedium, 0.7)
		research.ResearchFindings = []lab_dto.ResearchFinding{
			{Corroborates: []string{"A", "B", "C", "D"}},
		}
		session := &lab_dto.AIAnalysisSession{Revision: revision, GapResearch: research}

		consensus := Aggregate(session)

		assert.Equal(t, constvars.EvidenceQualityHigh, consensus.EvidenceQuality)
	})

	t.Run("no diagnoses means insufficient evidence", func(t *testing.T) {
		session := &lab_dto.AIAnalysisSession{
			Revision:       response(constvars.PhaseRevision, constvars.UrgencyLow, 0.5),
			CriticalReview: response(constvars.PhaseCriticalReview, constvars.UrgencyLow, 0.5),
		}

		consensus := Aggregate(session)

		assert.Equal(t, constvars.EvidenceQualityInsufficient, consensus.EvidenceQuality)
		assert.Equal(t, 1.0, consensus.OverallAgreement)
	})

	t.Run("recommendations and red flags deduplicate case insensitively", func(t *testing.T) {
		primary := response(constvars.PhasePrimaryAnalysis, constvars.UrgencyHigh, 0.8)
		primary.Recommendations = []string{"Repeat potassium stat", "Obtain ECG"}
		primary.RedFlags = []string{"K 6.8"}
		revision := response(constvars.PhaseRevision, constvars.UrgencyHigh, 0.8)
		revision.Recommendations = []string{"repeat potassium stat", "Hold ACE inhibitor"}
		revision.RedFlags = []string{"K 6.8"}
		session := &lab_dto.AIAnalysisSession{PrimaryAnalysis: primary, Revision: revision}

		consensus := Aggregate(session)

		assert.Equal(t, []string{"Repeat potassium stat", "Obtain ECG", "Hold ACE inhibitor"}, consensus.MergedRecommendations)
		assert.Equal(t, []string{"K 6.8"}, consensus.RedFlags)
	})
}
