// Package quality turns a fitting candidate into a usability verdict.
package quality

import (
	"fmt"
	"math"

	"BubbleScope/internal/domain/models"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/internal/services/lppl"
)

var _ domsvc.QualityEvaluator = (*Evaluator)(nil)

// Bonus is awarded when a value is at or below Limit.
type Bonus struct {
	Limit  float64 `yaml:"limit"`
	Points float64 `yaml:"points"`
}

// Thresholds holds every constant of the quality verdict.
type Thresholds struct {
	HighRSquared       float64 `yaml:"high_r_squared"`
	AcceptableRSquared float64 `yaml:"acceptable_r_squared"`
	// BoundaryTolerance is the share of a range width that counts as
	// sitting on its bound.
	BoundaryTolerance float64 `yaml:"boundary_tolerance"`

	TcBonus   []Bonus `yaml:"tc_bonus"`   // ascending limits on tc
	BetaBonus []Bonus `yaml:"beta_bonus"` // ascending limits on |beta - target|
	// OmegaBonus is given when omega lies in the optimal band.
	OmegaBonus float64 `yaml:"omega_bonus"`

	LongSamples   int     `yaml:"long_samples"`
	LongBonus     float64 `yaml:"long_bonus"`
	MediumSamples int     `yaml:"medium_samples"`
	MediumBonus   float64 `yaml:"medium_bonus"`
}

// DefaultThresholds returns the calibrated verdict constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighRSquared:       0.85,
		AcceptableRSquared: 0.60,
		BoundaryTolerance:  0.001,
		TcBonus: []Bonus{
			{Limit: 1.05, Points: 20},
			{Limit: 1.1, Points: 15},
			{Limit: 1.2, Points: 10},
			{Limit: 1.5, Points: 5},
		},
		BetaBonus: []Bonus{
			{Limit: 0.03, Points: 10},
			{Limit: 0.1, Points: 5},
		},
		OmegaBonus:    10,
		LongSamples:   365,
		LongBonus:     10,
		MediumSamples: 180,
		MediumBonus:   5,
	}
}

// Evaluator grades candidates. It is stateless and safe for concurrent use.
type Evaluator struct {
	th Thresholds
}

// NewEvaluator creates an Evaluator; zero thresholds fall back to defaults.
func NewEvaluator(th Thresholds) *Evaluator {
	if th.HighRSquared == 0 && th.AcceptableRSquared == 0 {
		th = DefaultThresholds()
	}
	return &Evaluator{th: th}
}

// Thresholds returns the active constants.
func (e *Evaluator) Thresholds() Thresholds { return e.th }

func (e *Evaluator) Evaluate(c models.FittingCandidate, in models.AssessmentInput) models.QualityAssessment {
	if reason := hardReject(c); reason != "" {
		return models.QualityAssessment{Quality: models.QualityPoor, Issues: []string{reason}}
	}

	p := c.Params
	conf := e.Confidence(c, in.Samples)

	var issues []string
	if !lppl.OptimalBeta(p.Beta) {
		issues = append(issues, fmt.Sprintf("beta %.3f outside optimal band %.2f±%.2f", p.Beta, lppl.Limits.BetaTarget, lppl.Limits.BetaTol))
	}
	if !lppl.OptimalOmega(p.Omega) {
		issues = append(issues, fmt.Sprintf("omega %.2f outside optimal band [%.0f, %.0f]", p.Omega, lppl.Limits.OmegaOptimal.Min, lppl.Limits.OmegaOptimal.Max))
	}
	if !lppl.OptimalTc(p.Tc) {
		issues = append(issues, fmt.Sprintf("tc %.3f outside optimal band [%.2f, %.2f]", p.Tc, lppl.Limits.TcOptimal.Min, lppl.Limits.TcOptimal.Max))
	}
	stuck := e.stuck(p, in.Range)
	issues = append(issues, stuck...)

	tier := models.QualityPoor
	switch {
	case c.RSquared > e.th.HighRSquared && len(stuck) == 0:
		tier = models.QualityHigh
	case c.RSquared > e.th.AcceptableRSquared:
		tier = models.QualityAcceptable
	}
	if c.RSquared <= e.th.AcceptableRSquared {
		issues = append(issues, fmt.Sprintf("low r_squared %.3f", c.RSquared))
	}

	return models.QualityAssessment{
		Quality:    tier,
		Confidence: conf,
		Issues:     issues,
		IsUsable:   tier != models.QualityPoor && conf > in.MinConfidence,
	}
}

// Confidence is r_squared plus theory and sample bonuses, in [0,1].
func (e *Evaluator) Confidence(c models.FittingCandidate, samples int) float64 {
	p := c.Params
	score := c.RSquared * 100
	score += firstBonus(e.th.TcBonus, p.Tc)
	score += firstBonus(e.th.BetaBonus, math.Abs(p.Beta-lppl.Limits.BetaTarget))
	if lppl.OptimalOmega(p.Omega) {
		score += e.th.OmegaBonus
	}
	switch {
	case samples >= e.th.LongSamples:
		score += e.th.LongBonus
	case samples >= e.th.MediumSamples:
		score += e.th.MediumBonus
	}
	return math.Max(0, math.Min(score, 100)) / 100
}

func firstBonus(table []Bonus, v float64) float64 {
	for _, b := range table {
		if v <= b.Limit {
			return b.Points
		}
	}
	return 0
}

func hardReject(c models.FittingCandidate) string {
	p := c.Params
	switch {
	case !c.Converged:
		if c.FailureReason != "" {
			return "not converged: " + c.FailureReason
		}
		return "not converged"
	case !lppl.ValidTc(p.Tc):
		return fmt.Sprintf("tc %.4f outside (1, 2]", p.Tc)
	case !lppl.ValidBeta(p.Beta):
		return fmt.Sprintf("beta %.4f outside hard range", p.Beta)
	case !lppl.ValidOmega(p.Omega):
		return fmt.Sprintf("omega %.4f outside hard range", p.Omega)
	case !lppl.ValidPhi(p.Phi):
		return fmt.Sprintf("phi %.4f outside hard range", p.Phi)
	case !lppl.ValidC(p.C):
		return fmt.Sprintf("C %.4f outside hard range", p.C)
	}
	return ""
}

// stuck lists the parameters sitting on a bound of the search range.
// A zero range disables the check.
func (e *Evaluator) stuck(p models.ParameterVector, r models.SearchRange) []string {
	var out []string
	check := func(name string, v float64, iv models.Interval) {
		w := iv.Width()
		if w <= 0 {
			return
		}
		tol := w * e.th.BoundaryTolerance
		if math.Abs(v-iv.Min) <= tol || math.Abs(v-iv.Max) <= tol {
			out = append(out, fmt.Sprintf("%s %.4f stuck at search bound", name, v))
		}
	}
	check("tc", p.Tc, r.Tc)
	check("beta", p.Beta, r.Beta)
	check("omega", p.Omega, r.Omega)
	return out
}
