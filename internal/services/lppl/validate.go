package lppl

import (
	"fmt"
	"math"

	"BubbleScope/internal/domain/models"
)

// Range is a closed interval.
type Range struct {
	Min float64
	Max float64
}

func (r Range) contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Theory holds the hard and theoretically optimal parameter ranges.
type Theory struct {
	Tc    Range // tc must be strictly greater than Tc.Min
	Beta  Range
	Omega Range
	Phi   Range
	C     Range

	TcOptimal    Range
	BetaTarget   float64
	BetaTol      float64
	OmegaOptimal Range
	OmegaTarget  float64
}

// Limits is the single source of truth for parameter bounds.
var Limits = Theory{
	Tc:    Range{1.0, 2.0},
	Beta:  Range{0.1, 0.7},
	Omega: Range{2.0, 20.0},
	Phi:   Range{-8 * math.Pi, 8 * math.Pi},
	C:     Range{-2.0, 2.0},

	TcOptimal:    Range{1.01, 1.5},
	BetaTarget:   0.33,
	BetaTol:      0.03,
	OmegaOptimal: Range{6.0, 8.0},
	OmegaTarget:  6.36,
}

// Compliance weights out of 100.
const (
	weightBeta  = 40.0
	weightOmega = 30.0
	weightTc    = 20.0
	weightPhi   = 10.0
)

func ValidTc(tc float64) bool {
	return tc > Limits.Tc.Min && tc <= Limits.Tc.Max
}

func ValidBeta(beta float64) bool { return Limits.Beta.contains(beta) }

func ValidOmega(omega float64) bool { return Limits.Omega.contains(omega) }

func ValidPhi(phi float64) bool { return Limits.Phi.contains(phi) }

func ValidC(c float64) bool { return Limits.C.contains(c) }

func OptimalTc(tc float64) bool { return Limits.TcOptimal.contains(tc) }

func OptimalBeta(beta float64) bool {
	return math.Abs(beta-Limits.BetaTarget) <= Limits.BetaTol
}

func OptimalOmega(omega float64) bool { return Limits.OmegaOptimal.contains(omega) }

// InBounds reports whether p satisfies every hard physical bound.
func InBounds(p models.ParameterVector) bool {
	for _, v := range []float64{p.Tc, p.Beta, p.Omega, p.Phi, p.A, p.B, p.C} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return ValidTc(p.Tc) && ValidBeta(p.Beta) && ValidOmega(p.Omega) && ValidPhi(p.Phi) && ValidC(p.C)
}

// Deviation is the combined relative distance of beta and omega from their
// theoretical targets.
func Deviation(beta, omega float64) float64 {
	return math.Abs(beta-Limits.BetaTarget)/Limits.BetaTarget +
		math.Abs(omega-Limits.OmegaTarget)/Limits.OmegaTarget
}

// ValidateParameters checks tc, beta, omega and phi against the valid and
// optimal ranges and scores theoretical compliance on a 0-100 scale.
func ValidateParameters(tc, beta, omega, phi float64) models.ParameterVerdict {
	v := models.ParameterVerdict{
		Tc:    models.ParameterCheck{Value: tc, Valid: ValidTc(tc), Optimal: OptimalTc(tc)},
		Beta:  models.ParameterCheck{Value: beta, Valid: ValidBeta(beta), Optimal: OptimalBeta(beta)},
		Omega: models.ParameterCheck{Value: omega, Valid: ValidOmega(omega), Optimal: OptimalOmega(omega)},
		Phi:   models.ParameterCheck{Value: phi, Valid: ValidPhi(phi), Optimal: ValidPhi(phi)},
	}
	v.AllValid = v.Tc.Valid && v.Beta.Valid && v.Omega.Valid && v.Phi.Valid

	switch {
	case v.Tc.Valid && v.Tc.Optimal:
		v.ComplianceScore += weightTc
	case v.Tc.Valid:
		v.ComplianceScore += weightTc * 0.75
	}
	switch {
	case v.Beta.Optimal:
		v.ComplianceScore += weightBeta
	case v.Beta.Valid:
		v.ComplianceScore += weightBeta / 2
	}
	switch {
	case v.Omega.Optimal:
		v.ComplianceScore += weightOmega
	case v.Omega.Valid:
		v.ComplianceScore += weightOmega / 2
	}
	if v.Phi.Valid {
		v.ComplianceScore += weightPhi
	}

	if !v.Tc.Valid {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("tc=%.3f is outside (%.0f, %.0f]; the critical time must fall after the observed window", tc, Limits.Tc.Min, Limits.Tc.Max))
	} else if !v.Tc.Optimal {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("tc=%.3f is far from the observed window; prefer [%.2f, %.2f]", tc, Limits.TcOptimal.Min, Limits.TcOptimal.Max))
	}
	if !v.Beta.Valid {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("beta=%.3f is outside [%.1f, %.1f]; review the fitting bounds", beta, Limits.Beta.Min, Limits.Beta.Max))
	} else if !v.Beta.Optimal {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("beta=%.3f deviates from the theoretical %.2f±%.2f", beta, Limits.BetaTarget, Limits.BetaTol))
	}
	if !v.Omega.Valid {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("omega=%.2f is outside [%.0f, %.0f]; log-periodic oscillation is implausible", omega, Limits.Omega.Min, Limits.Omega.Max))
	} else if !v.Omega.Optimal {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("omega=%.2f is outside the optimal band [%.0f, %.0f]", omega, Limits.OmegaOptimal.Min, Limits.OmegaOptimal.Max))
	}
	if !v.Phi.Valid {
		v.Recommendations = append(v.Recommendations,
			fmt.Sprintf("phi=%.2f is outside [-8π, 8π]", phi))
	}
	return v
}
