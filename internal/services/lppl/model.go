// Package lppl evaluates the Log-Periodic Power Law and checks parameters
// against the theoretical bounds. Everything here is pure.
package lppl

import (
	"math"

	"BubbleScope/internal/domain/models"
)

// PowerLaw returns A + B*(tc-t)^beta, or 0 when t is at or past tc.
func PowerLaw(t, tc, beta, a, b float64) float64 {
	dt := tc - t
	if dt <= 0 {
		return 0
	}
	return a + b*math.Pow(dt, beta)
}

// LogPeriodic returns the full LPPL value at t, or 0 when t is at or past tc.
func LogPeriodic(t float64, p models.ParameterVector) float64 {
	dt := p.Tc - t
	if dt <= 0 {
		return 0
	}
	pw := math.Pow(dt, p.Beta)
	return p.A + p.B*pw + p.C*pw*math.Cos(p.Omega*math.Log(dt)+p.Phi)
}

// PowerLawSeries evaluates PowerLaw over ts. Out-of-domain points are 0.
// ErrDegenerateModel is returned when no point lies before tc.
func PowerLawSeries(ts []float64, tc, beta, a, b float64) ([]float64, error) {
	if InDomain(ts, tc) == 0 {
		return nil, models.ErrDegenerateModel
	}
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = PowerLaw(t, tc, beta, a, b)
	}
	return out, nil
}

// LogPeriodicSeries evaluates LogPeriodic over ts with the same mask.
func LogPeriodicSeries(ts []float64, p models.ParameterVector) ([]float64, error) {
	if InDomain(ts, p.Tc) == 0 {
		return nil, models.ErrDegenerateModel
	}
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = LogPeriodic(t, p)
	}
	return out, nil
}

// InDomain counts the points strictly before tc.
func InDomain(ts []float64, tc float64) int {
	n := 0
	for _, t := range ts {
		if tc-t > 0 {
			n++
		}
	}
	return n
}
