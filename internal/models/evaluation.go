package models

import "time"

// VendorStatus is the qualitative verdict attached to a specialist result or
// to the consensus evaluation.
type VendorStatus string

const (
	StatusRecommended VendorStatus = "recommended"
	StatusUnderReview VendorStatus = "under-review"
	StatusRiskFlagged VendorStatus = "risk-flagged"
)

// ExecStatus is the final execution state of one specialist, recorded in
// diagnostics. It never influences scoring.
type ExecStatus string

const (
	ExecSuccess ExecStatus = "success"
	ExecFailed  ExecStatus = "failed"
	ExecTimeout ExecStatus = "timeout"
)

// ScoreKey names a numeric dimension a specialist may report. Not every
// specialist emits every key; "overall" is the only one all of them emit.
type ScoreKey string

const (
	ScoreOverall       ScoreKey = "overall"
	ScoreFunctionalFit ScoreKey = "functional_fit"
	ScoreTechnicalFit  ScoreKey = "technical_fit"
	ScoreDeliveryRisk  ScoreKey = "delivery_risk"
	ScoreCompliance    ScoreKey = "compliance"
	ScoreIntegration   ScoreKey = "integration"
	ScoreSupport       ScoreKey = "support"
	ScoreScalability   ScoreKey = "scalability"
	ScoreDocumentation ScoreKey = "documentation"
)

// AllScoreKeys returns every named score dimension, "overall" first.
func AllScoreKeys() []ScoreKey {
	return []ScoreKey{
		ScoreOverall,
		ScoreFunctionalFit,
		ScoreTechnicalFit,
		ScoreDeliveryRisk,
		ScoreCompliance,
		ScoreIntegration,
		ScoreSupport,
		ScoreScalability,
		ScoreDocumentation,
	}
}

// EvaluationContext identifies one vendor evaluation request. It is
// constructed once per call and never mutated afterwards.
type EvaluationContext struct {
	ProjectID           string `json:"project_id"`
	VendorName          string `json:"vendor_name"`
	RequirementsSummary string `json:"requirements_summary"`
	TechnicalApproach   string `json:"technical_approach"`
}

// SpecialistResult is the atomic unit the aggregator consumes: one role's
// structured assessment, or its fallback when the specialist failed.
type SpecialistResult struct {
	Role       Role                 `json:"role"`
	Insights   []string             `json:"insights"`
	Scores     map[ScoreKey]float64 `json:"scores"`
	Rationale  string               `json:"rationale"`
	Status     VendorStatus         `json:"status"`
	Succeeded  bool                 `json:"succeeded"`
	DurationMs int64                `json:"duration_ms"`
	TokensUsed int                  `json:"tokens_used"`
	CostUSD    float64              `json:"cost_usd"`

	// FailureCategory is set only when Succeeded is false. It surfaces in
	// diagnostics, never in the consensus evaluation.
	FailureCategory FailureCategory `json:"failure_category,omitempty"`
}

// Overall returns the specialist's overall score, or 0 when absent.
func (r *SpecialistResult) Overall() float64 {
	return r.Scores[ScoreOverall]
}

// HasScore reports whether the specialist explicitly provided the key.
func (r *SpecialistResult) HasScore(key ScoreKey) bool {
	_, ok := r.Scores[key]
	return ok
}

// ScoreBreakdown records how one sub-score average was formed.
type ScoreBreakdown struct {
	Key          ScoreKey `json:"key"`
	Average      float64  `json:"average"`
	Contributors int      `json:"contributors"`
}

// VendorEvaluation is the consensus result for one vendor. Constructed once
// by the aggregator and immutable afterwards; persistence is the caller's
// concern.
type VendorEvaluation struct {
	VendorName   string               `json:"vendor_name"`
	OverallScore float64              `json:"overall_score"`
	SubScores    map[ScoreKey]float64 `json:"sub_scores"`
	Cost         string               `json:"cost"`
	Status       VendorStatus         `json:"status"`
	Rationale    string               `json:"rationale"`
	RoleInsights map[Role][]string    `json:"role_insights"`
	Breakdown    []ScoreBreakdown     `json:"breakdown"`
	Timestamp    time.Time            `json:"timestamp"`
}

// Diagnostic records how one specialist execution went. Observability only.
type Diagnostic struct {
	Role       Role       `json:"role"`
	Status     ExecStatus `json:"status"`
	DurationMs int64      `json:"duration_ms"`
	TokensUsed int        `json:"tokens_used"`
	CostUSD    float64    `json:"cost_usd"`
	Error      string     `json:"error,omitempty"`
}
