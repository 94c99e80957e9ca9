package consensus

import (
	"fmt"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/lab_dto"
	"math"
	"strings"
)

const (
	confidenceAgreementBand = 0.2
	confidenceSpreadLimit   = 0.3
)

var urgencySeverity = map[string]int{
	constvars.UrgencyLow:      1,
	constvars.UrgencyMedium:   2,
	constvars.UrgencyHigh:     3,
	constvars.UrgencyCritical: 4,
}

// PairwiseAgreement scores two responses as the unweighted mean of three
// signals: urgency match, confidence within 0.2, and Jaccard overlap of
// their lowercased diagnosis-condition sets.
func PairwiseAgreement(a, b *lab_dto.ModelResponse) float64 {
	urgencyScore := 0.0
	if a.UrgencyLevel == b.UrgencyLevel {
		urgencyScore = 1.0
	}

	confidenceScore := 0.0
	if math.Abs(a.Confidence-b.Confidence) < confidenceAgreementBand {
		confidenceScore = 1.0
	}

	return (urgencyScore + confidenceScore + jaccard(conditionSet(a), conditionSet(b))) / 3.0
}

// Aggregate merges a completed session's phase outputs into the consensus
// view. Final responses are the revision and the critical review; they
// drive the overall scores, while the merged diagnosis list draws on every
// phase that reported diagnoses.
func Aggregate(session *lab_dto.AIAnalysisSession) *lab_dto.ConsensusAnalysis {
	all := presentResponses(session)
	final := finalResponses(session)

	consensus := &lab_dto.ConsensusAnalysis{
		PairwiseAgreements:    pairwiseAgreements(all),
		OverallAgreement:      overallAgreement(final),
		MergedRecommendations: mergedStrings(all, func(r *lab_dto.ModelResponse) []string { return r.Recommendations }),
		RedFlags:              mergedStrings(all, func(r *lab_dto.ModelResponse) []string { return r.RedFlags }),
		OverallConfidence:     meanConfidence(final),
		OverallUrgency:        resolveUrgency(final),
		DisagreementNotes:     disagreementNotes(final),
	}

	consensus.MergedDiagnoses = mergeDiagnoses(all, session.GapResearch)
	consensus.EvidenceQuality = classifyEvidence(consensus.MergedDiagnoses)
	return consensus
}

func presentResponses(session *lab_dto.AIAnalysisSession) []*lab_dto.ModelResponse {
	candidates := []*lab_dto.ModelResponse{
		session.PrimaryAnalysis,
		session.CriticalReview,
		session.GapResearch,
		session.Revision,
		session.GraphicsSynthesis,
	}
	responses := make([]*lab_dto.ModelResponse, 0, len(candidates))
	for _, r := range candidates {
		if r != nil {
			responses = append(responses, r)
		}
	}
	return responses
}

func finalResponses(session *lab_dto.AIAnalysisSession) []*lab_dto.ModelResponse {
	responses := make([]*lab_dto.ModelResponse, 0, 2)
	if session.Revision != nil {
		responses = append(responses, session.Revision)
	}
	if session.CriticalReview != nil {
		responses = append(responses, session.CriticalReview)
	}
	return responses
}

func pairwiseAgreements(responses []*lab_dto.ModelResponse) []lab_dto.PairwiseAgreement {
	agreements := make([]lab_dto.PairwiseAgreement, 0)
	for i := 0; i < len(responses); i++ {
		for j := i + 1; j < len(responses); j++ {
			agreements = append(agreements, lab_dto.PairwiseAgreement{
				PhaseA: responses[i].Phase,
				PhaseB: responses[j].Phase,
				Score:  PairwiseAgreement(responses[i], responses[j]),
			})
		}
	}
	return agreements
}

func overallAgreement(final []*lab_dto.ModelResponse) float64 {
	if len(final) < 2 {
		return 0
	}
	sum := 0.0
	pairs := 0
	for i := 0; i < len(final); i++ {
		for j := i + 1; j < len(final); j++ {
			sum += PairwiseAgreement(final[i], final[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func mergeDiagnoses(responses []*lab_dto.ModelResponse, research *lab_dto.ModelResponse) []lab_dto.MergedDiagnosis {
	type accumulator struct {
		condition   string
		sum         float64
		mentions    int
		firstSeenAt int
	}

	order := 0
	byCondition := make(map[string]*accumulator)
	for _, response := range responses {
		for _, diagnosis := range response.Diagnoses {
			key := strings.ToLower(diagnosis.Condition)
			acc, ok := byCondition[key]
			if !ok {
				acc = &accumulator{condition: diagnosis.Condition, firstSeenAt: order}
				byCondition[key] = acc
				order++
			}
			acc.sum += diagnosis.Probability
			acc.mentions++
		}
	}

	corroborated, contradicted := researchVerdicts(research)

	merged := make([]lab_dto.MergedDiagnosis, len(byCondition))
	for key, acc := range byCondition {
		support := constvars.EvidenceSupportWeak
		if acc.mentions >= 2 {
			support = constvars.EvidenceSupportModerate
		}
		if contradicted[key] {
			support = constvars.EvidenceSupportConflicting
		} else if corroborated[key] {
			support = constvars.EvidenceSupportStrong
		}

		merged[acc.firstSeenAt] = lab_dto.MergedDiagnosis{
			Condition:       acc.condition,
			Probability:     acc.sum / float64(acc.mentions),
			EvidenceSupport: support,
			MentionCount:    acc.mentions,
		}
	}
	return merged
}

func researchVerdicts(research *lab_dto.ModelResponse) (corroborated, contradicted map[string]bool) {
	corroborated = make(map[string]bool)
	contradicted = make(map[string]bool)
	if research == nil {
		return corroborated, contradicted
	}
	for _, finding := range research.ResearchFindings {
		for _, condition := range finding.Corroborates {
			corroborated[strings.ToLower(condition)] = true
		}
		for _, condition := range finding.Contradicts {
			contradicted[strings.ToLower(condition)] = true
		}
	}
	return corroborated, contradicted
}

func classifyEvidence(diagnoses []lab_dto.MergedDiagnosis) string {
	if len(diagnoses) == 0 {
		return constvars.EvidenceQualityInsufficient
	}
	corroborated := 0
	for _, diagnosis := range diagnoses {
		if diagnosis.EvidenceSupport == constvars.EvidenceSupportStrong {
			corroborated++
		}
	}
	ratio := float64(corroborated) / float64(len(diagnoses))
	switch {
	case ratio >= 0.8:
		return constvars.EvidenceQualityHigh
	case ratio >= 0.6:
		return constvars.EvidenceQualityModerate
	case ratio >= 0.4:
		return constvars.EvidenceQualityLow
	default:
		return constvars.EvidenceQualityInsufficient
	}
}

// resolveUrgency picks the most reported urgency; ties break toward the
// more severe level so consensus never understates risk.
func resolveUrgency(final []*lab_dto.ModelResponse) string {
	if len(final) == 0 {
		return constvars.UrgencyMedium
	}
	counts := make(map[string]int)
	for _, response := range final {
		counts[response.UrgencyLevel]++
	}
	best := ""
	for urgency, count := range counts {
		if best == "" || count > counts[best] ||
			(count == counts[best] && urgencySeverity[urgency] > urgencySeverity[best]) {
			best = urgency
		}
	}
	return best
}

func meanConfidence(final []*lab_dto.ModelResponse) float64 {
	if len(final) == 0 {
		return 0
	}
	sum := 0.0
	for _, response := range final {
		sum += response.Confidence
	}
	return sum / float64(len(final))
}

func disagreementNotes(final []*lab_dto.ModelResponse) []string {
	notes := make([]string, 0)
	for i := 0; i < len(final); i++ {
		for j := i + 1; j < len(final); j++ {
			a, b := final[i], final[j]
			if a.UrgencyLevel != b.UrgencyLevel {
				notes = append(notes, fmt.Sprintf("urgency mismatch: %s=%s, %s=%s",
					a.Phase, a.UrgencyLevel, b.Phase, b.UrgencyLevel))
			}
			if spread := math.Abs(a.Confidence - b.Confidence); spread > confidenceSpreadLimit {
				notes = append(notes, fmt.Sprintf("confidence spread %.2f between %s and %s",
					spread, a.Phase, b.Phase))
			}
		}
	}
	return notes
}

func mergedStrings(responses []*lab_dto.ModelResponse, pick func(*lab_dto.ModelResponse) []string) []string {
	seen := make(map[string]bool)
	merged := make([]string, 0)
	for _, response := range responses {
		for _, item := range pick(response) {
			key := strings.ToLower(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}
	return merged
}

func conditionSet(response *lab_dto.ModelResponse) map[string]bool {
	set := make(map[string]bool, len(response.Diagnoses))
	for _, diagnosis := range response.Diagnoses {
		set[strings.ToLower(diagnosis.Condition)] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for key := range a {
		if b[key] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
