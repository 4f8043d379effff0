package models

import "time"

type QualityTier string

const (
	QualityHigh       QualityTier = "high_quality"
	QualityAcceptable QualityTier = "acceptable"
	QualityPoor       QualityTier = "poor"
)

// QualityAssessment is derived deterministically from a FittingCandidate.
type QualityAssessment struct {
	Quality    QualityTier `json:"quality"`
	Confidence float64     `json:"confidence"`
	Issues     []string    `json:"issues,omitempty"`
	IsUsable   bool        `json:"is_usable"`
}

// FittingCandidate is the outcome of one optimizer run.
// RSquared and RMSE are meaningful only when Converged is true.
type FittingCandidate struct {
	Index         int               `json:"index"`
	Seed          ParameterVector   `json:"seed"`
	Params        ParameterVector   `json:"params"`
	RSquared      float64           `json:"r_squared"`
	RMSE          float64           `json:"rmse"`
	Converged     bool              `json:"convergence_success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Iterations    int               `json:"iterations"`
	Elapsed       time.Duration     `json:"elapsed"`
	Quality       QualityAssessment `json:"quality"`
}

// Criterion names a selection rule.
type Criterion string

const (
	CriterionPrimary       Criterion = "primary"
	CriterionBestFit       Criterion = "best_fit"
	CriterionTheoretical   Criterion = "theoretical"
	CriterionStability     Criterion = "stability"
	CriterionMultiCriteria Criterion = "multi_criteria"
	CriterionPractical     Criterion = "practical"
	CriterionConservative  Criterion = "conservative"
)

// SelectionStats summarizes a candidate population.
type SelectionStats struct {
	Total       int     `json:"total"`
	Converged   int     `json:"converged"`
	Valid       int     `json:"valid"`
	Usable      int     `json:"usable"`
	MinRSquared float64 `json:"min_r_squared"`
	MaxRSquared float64 `json:"max_r_squared"`
	TcSpread    float64 `json:"tc_spread"`
	BetaSpread  float64 `json:"beta_spread"`
	OmegaSpread float64 `json:"omega_spread"`
}

// SelectionResult is the immutable outcome of one fitting request.
// Winners maps a criterion to an index into Candidates.
type SelectionResult struct {
	Strategy   Strategy           `json:"strategy"`
	Candidates []FittingCandidate `json:"candidates"`
	Winners    map[Criterion]int  `json:"winners"`
	Stats      SelectionStats     `json:"stats"`
	Cancelled  bool               `json:"cancelled"`
}

// Winner returns the candidate chosen under criterion c.
func (r *SelectionResult) Winner(c Criterion) (FittingCandidate, bool) {
	if r == nil {
		return FittingCandidate{}, false
	}
	idx, ok := r.Winners[c]
	if !ok || idx < 0 || idx >= len(r.Candidates) {
		return FittingCandidate{}, false
	}
	return r.Candidates[idx], true
}

// Selected returns the primary selection: highest r_squared among usable
// candidates. ok is false when no usable result exists, which is a normal
// outcome for data without a bubble.
func (r *SelectionResult) Selected() (FittingCandidate, bool) {
	return r.Winner(CriterionPrimary)
}

// Empty reports whether no candidate could be selected under any criterion.
func (r *SelectionResult) Empty() bool {
	return r == nil || len(r.Winners) == 0
}

// AssessmentInput is the context a quality verdict depends on besides the candidate.
type AssessmentInput struct {
	Samples       int
	Range         SearchRange
	MinConfidence float64
}
