package selection

import (
	"math"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/services/lppl"

	"gonum.org/v1/gonum/floats"
)

// Multi-criteria weights.
const (
	weightFit         = 0.4
	weightTheory      = 0.3
	weightPractical   = 0.2
	weightSimplicity  = 0.1
	comparableRSquare = 0.05
)

// better is the shared tie-break: higher r_squared, lower theoretical
// deviation, lower rmse, lower seed index.
func better(a, b models.FittingCandidate) bool {
	if a.RSquared != b.RSquared {
		return a.RSquared > b.RSquared
	}
	da, db := deviation(a), deviation(b)
	if da != db {
		return da < db
	}
	if a.RMSE != b.RMSE {
		return a.RMSE < b.RMSE
	}
	return a.Index < b.Index
}

func deviation(c models.FittingCandidate) float64 {
	return lppl.Deviation(c.Params.Beta, c.Params.Omega)
}

// pick returns the index of the candidate with the highest score, resolving
// equal scores with better. ok is false for an empty pool.
func pick(pool []models.FittingCandidate, score func(models.FittingCandidate) float64) (int, bool) {
	best := -1
	var bestScore float64
	for i, c := range pool {
		s := score(c)
		if best < 0 || s > bestScore || (s == bestScore && better(c, pool[best])) {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return 0, false
	}
	return pool[best].Index, true
}

func rank(cands []models.FittingCandidate, radius float64) *models.SelectionResult {
	res := &models.SelectionResult{
		Candidates: cands,
		Winners:    make(map[models.Criterion]int),
	}

	var valid, usable []models.FittingCandidate
	for _, c := range cands {
		if c.Converged {
			res.Stats.Converged++
		}
		if !eligible(c) {
			continue
		}
		valid = append(valid, c)
		if c.Quality.IsUsable {
			usable = append(usable, c)
		}
	}
	res.Stats.Total = len(cands)
	res.Stats.Valid = len(valid)
	res.Stats.Usable = len(usable)
	if len(valid) == 0 {
		return res
	}
	spread(&res.Stats, valid)

	rsq := func(c models.FittingCandidate) float64 { return c.RSquared }
	criteria := []struct {
		name models.Criterion
		pick func() (int, bool)
	}{
		{models.CriterionPrimary, func() (int, bool) { return pick(usable, rsq) }},
		{models.CriterionBestFit, func() (int, bool) { return pick(valid, rsq) }},
		{models.CriterionTheoretical, func() (int, bool) {
			return pick(valid, func(c models.FittingCandidate) float64 { return -deviation(c) })
		}},
		{models.CriterionStability, func() (int, bool) { return stability(valid, radius) }},
		{models.CriterionMultiCriteria, func() (int, bool) { return pick(valid, multiScore) }},
		{models.CriterionPractical, func() (int, bool) { return practical(valid) }},
		{models.CriterionConservative, func() (int, bool) { return conservative(valid) }},
	}
	for _, cr := range criteria {
		if idx, ok := cr.pick(); ok {
			res.Winners[cr.name] = idx
		}
	}
	return res
}

func spread(st *models.SelectionStats, valid []models.FittingCandidate) {
	n := len(valid)
	r2 := make([]float64, n)
	tc := make([]float64, n)
	beta := make([]float64, n)
	omega := make([]float64, n)
	for i, c := range valid {
		r2[i], tc[i], beta[i], omega[i] = c.RSquared, c.Params.Tc, c.Params.Beta, c.Params.Omega
	}
	st.MinRSquared = floats.Min(r2)
	st.MaxRSquared = floats.Max(r2)
	st.TcSpread = floats.Max(tc) - floats.Min(tc)
	st.BetaSpread = floats.Max(beta) - floats.Min(beta)
	st.OmegaSpread = floats.Max(omega) - floats.Min(omega)
}

// proximity is 1 at the target and falls linearly to 0 at twice the target.
func proximity(v, target float64) float64 {
	return 1 - math.Min(1, math.Abs(v-target)/target)
}

func practicality(tc float64) float64 {
	switch {
	case tc <= 1.2:
		return 1
	case tc <= 1.5:
		return 0.8
	case tc <= 2:
		return 0.4
	}
	return 0.1
}

func multiScore(c models.FittingCandidate) float64 {
	theory := (proximity(c.Params.Beta, lppl.Limits.BetaTarget) + proximity(c.Params.Omega, lppl.Limits.OmegaTarget)) / 2
	return weightFit*c.RSquared +
		weightTheory*theory +
		weightPractical*practicality(c.Params.Tc) +
		weightSimplicity/(1+c.RMSE)
}

// stability prefers the candidate with the most neighbours: other candidates
// within radius in range-normalized (tc, beta, omega) space whose r_squared
// is comparable.
func stability(valid []models.FittingCandidate, radius float64) (int, bool) {
	counts := make(map[int]int, len(valid))
	var pool []models.FittingCandidate
	for i, a := range valid {
		for j, b := range valid {
			if i == j || math.Abs(a.RSquared-b.RSquared) > comparableRSquare {
				continue
			}
			if distance(a.Params, b.Params) <= radius {
				counts[a.Index]++
			}
		}
		if counts[a.Index] > 0 {
			pool = append(pool, a)
		}
	}
	return pick(pool, func(c models.FittingCandidate) float64 { return float64(counts[c.Index]) })
}

func distance(a, b models.ParameterVector) float64 {
	l := lppl.Limits
	dtc := (a.Tc - b.Tc) / (l.Tc.Max - l.Tc.Min)
	dbeta := (a.Beta - b.Beta) / (l.Beta.Max - l.Beta.Min)
	domega := (a.Omega - b.Omega) / (l.Omega.Max - l.Omega.Min)
	return math.Sqrt(dtc*dtc + dbeta*dbeta + domega*domega)
}

// practical prefers a near critical time: best fit with tc <= 1.5, otherwise
// the smallest tc.
func practical(valid []models.FittingCandidate) (int, bool) {
	var near []models.FittingCandidate
	for _, c := range valid {
		if c.Params.Tc <= 1.5 {
			near = append(near, c)
		}
	}
	if len(near) > 0 {
		return pick(near, func(c models.FittingCandidate) float64 { return c.RSquared })
	}
	return pick(valid, func(c models.FittingCandidate) float64 { return -c.Params.Tc })
}

func conservative(valid []models.FittingCandidate) (int, bool) {
	var pool []models.FittingCandidate
	for _, c := range valid {
		p := c.Params
		if c.RSquared > 0.7 && p.Tc <= 2 && p.Beta >= 0.2 && p.Beta <= 0.6 && p.Omega >= 4 && p.Omega <= 10 {
			pool = append(pool, c)
		}
	}
	return pick(pool, func(c models.FittingCandidate) float64 {
		return c.RSquared*0.5 +
			(1-math.Abs(c.Params.Beta-lppl.Limits.BetaTarget)/lppl.Limits.BetaTarget)*0.3 +
			0.2/(1+c.RMSE)
	})
}
