package lab_dto

import "time"

// AIAnalysisSession is one run of the five-phase consensus pipeline for one
// lab report. Phase slots fill append-only as phases complete; a crashed
// process resumes from the first empty slot.
type AIAnalysisSession struct {
	ID        string `json:"id" bson:"_id"`
	ReportID  string `json:"report_id" bson:"report_id"`
	PatientID string `json:"patient_id" bson:"patient_id"`
	Status    string `json:"status" bson:"status"`

	PrimaryAnalysis   *ModelResponse `json:"primary_analysis,omitempty" bson:"primary_analysis,omitempty"`
	CriticalReview    *ModelResponse `json:"critical_review,omitempty" bson:"critical_review,omitempty"`
	GapResearch       *ModelResponse `json:"gap_research,omitempty" bson:"gap_research,omitempty"`
	Revision          *ModelResponse `json:"revision,omitempty" bson:"revision,omitempty"`
	GraphicsSynthesis *ModelResponse `json:"graphics_synthesis,omitempty" bson:"graphics_synthesis,omitempty"`

	Consensus *ConsensusAnalysis `json:"consensus,omitempty" bson:"consensus,omitempty"`

	TotalCost        float64    `json:"total_cost" bson:"total_cost"`
	ProcessingTimeMs int64      `json:"processing_time_ms" bson:"processing_time_ms"`
	FailureReason    string     `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	StartedAt        time.Time  `json:"started_at" bson:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// ModelResponse is one model's structured output, immutable once produced.
// Fallback marks a stub substituted for malformed model text.
type ModelResponse struct {
	Model             string                  `json:"model" bson:"model"`
	Phase             string                  `json:"phase" bson:"phase"`
	Analysis          string                  `json:"analysis" bson:"analysis"`
	Confidence        float64                 `json:"confidence" bson:"confidence"`
	Reasoning         string                  `json:"reasoning,omitempty" bson:"reasoning,omitempty"`
	Recommendations   []string                `json:"recommendations" bson:"recommendations"`
	UrgencyLevel      string                  `json:"urgency_level" bson:"urgency_level"`
	Diagnoses         []DifferentialDiagnosis `json:"differential_diagnoses" bson:"differential_diagnoses"`
	RedFlags          []string                `json:"red_flags" bson:"red_flags"`
	FollowUpQuestions []string                `json:"follow_up_questions" bson:"follow_up_questions"`
	ResearchGaps      []ResearchGap           `json:"research_gaps,omitempty" bson:"research_gaps,omitempty"`
	ResearchFindings  []ResearchFinding       `json:"research_findings,omitempty" bson:"research_findings,omitempty"`
	Visualizations    []VisualizationSpec     `json:"visualizations,omitempty" bson:"visualizations,omitempty"`
	Cost              float64                 `json:"cost" bson:"cost"`
	ProcessingTimeMs  int64                   `json:"processing_time_ms" bson:"processing_time_ms"`
	Fallback          bool                    `json:"fallback,omitempty" bson:"fallback,omitempty"`
}

type DifferentialDiagnosis struct {
	Condition   string  `json:"condition" bson:"condition"`
	Probability float64 `json:"probability" bson:"probability"`
	Reasoning   string  `json:"reasoning,omitempty" bson:"reasoning,omitempty"`
}

// ResearchGap is a concrete, answerable question raised during critical
// review.
type ResearchGap struct {
	Question string `json:"question" bson:"question"`
	Priority string `json:"priority,omitempty" bson:"priority,omitempty"`
}

// ResearchFinding answers one research gap with citations. Corroborates and
// Contradicts name diagnosis conditions the evidence speaks to.
type ResearchFinding struct {
	Question     string   `json:"question" bson:"question"`
	Answer       string   `json:"answer" bson:"answer"`
	Citations    []string `json:"citations" bson:"citations"`
	Corroborates []string `json:"corroborates,omitempty" bson:"corroborates,omitempty"`
	Contradicts  []string `json:"contradicts,omitempty" bson:"contradicts,omitempty"`
}

// VisualizationSpec describes one dashboard visualization derived strictly
// from the analysis.
type VisualizationSpec struct {
	ChartType  string `json:"chart_type" bson:"chart_type"`
	DataSource string `json:"data_source" bson:"data_source"`
	Insight    string `json:"insight" bson:"insight"`
}

// ConsensusAnalysis is the merged, agreement-scored output of a completed
// session.
type ConsensusAnalysis struct {
	PairwiseAgreements    []PairwiseAgreement `json:"pairwise_agreements" bson:"pairwise_agreements"`
	OverallAgreement      float64             `json:"overall_agreement" bson:"overall_agreement"`
	MergedDiagnoses       []MergedDiagnosis   `json:"merged_diagnoses" bson:"merged_diagnoses"`
	MergedRecommendations []string            `json:"merged_recommendations" bson:"merged_recommendations"`
	RedFlags              []string            `json:"red_flags" bson:"red_flags"`
	OverallConfidence     float64             `json:"overall_confidence" bson:"overall_confidence"`
	OverallUrgency        string              `json:"overall_urgency" bson:"overall_urgency"`
	EvidenceQuality       string              `json:"evidence_quality" bson:"evidence_quality"`
	DisagreementNotes     []string            `json:"disagreement_notes" bson:"disagreement_notes"`
}

type PairwiseAgreement struct {
	PhaseA string  `json:"phase_a" bson:"phase_a"`
	PhaseB string  `json:"phase_b" bson:"phase_b"`
	Score  float64 `json:"score" bson:"score"`
}

type MergedDiagnosis struct {
	Condition       string  `json:"condition" bson:"condition"`
	Probability     float64 `json:"probability" bson:"probability"`
	EvidenceSupport string  `json:"evidence_support" bson:"evidence_support"`
	MentionCount    int     `json:"mention_count" bson:"mention_count"`
}
