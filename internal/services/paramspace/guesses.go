package paramspace

import (
	"math"
	"math/rand/v2"

	"BubbleScope/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fixed seed values for the parameters that are not sampled.
const (
	seedPhi = 0.0
	seedC   = 0.1
)

// Guesses produces n initial parameter vectors for plan using the strategy's
// sampling method. Random draws come from a PCG source seeded by seed so the
// batch is reproducible.
func Guesses(plan models.FitPlan, data *models.NormalizedSeries, n int, seed uint64) []models.ParameterVector {
	if n <= 0 {
		return nil
	}
	a, b := linearSeed(data)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var triples [][3]float64
	switch plan.Strategy.Sampling {
	case models.SamplingGrid:
		triples = grid(plan.Range, n)
	case models.SamplingHybrid:
		half := n / 2
		triples = append(grid(plan.Range, half), random(plan.Range, n-half, rng)...)
	default:
		triples = random(plan.Range, n, rng)
	}

	out := make([]models.ParameterVector, len(triples))
	for i, tr := range triples {
		out[i] = models.ParameterVector{Tc: tr[0], Beta: tr[1], Omega: tr[2], Phi: seedPhi, A: a, B: b, C: seedC}
	}
	return out
}

// linearSeed returns A = mean log price and B = average log-price slope per sample.
func linearSeed(data *models.NormalizedSeries) (float64, float64) {
	if data == nil || data.Len() == 0 {
		return 0, 0
	}
	lp := data.LogPrice
	a := stat.Mean(lp, nil)
	if len(lp) < 2 {
		return a, 0
	}
	return a, (lp[len(lp)-1] - lp[0]) / float64(len(lp)-1)
}

// grid spans tc x beta x omega with ceil(n^(1/3)) points per axis and keeps
// the first n lattice points.
func grid(r models.SearchRange, n int) [][3]float64 {
	if n <= 0 {
		return nil
	}
	per := int(math.Ceil(math.Cbrt(float64(n))))
	tcs := axis(r.Tc, per)
	betas := axis(r.Beta, per)
	omegas := axis(r.Omega, per)

	out := make([][3]float64, 0, n)
	for _, tc := range tcs {
		for _, beta := range betas {
			for _, omega := range omegas {
				if len(out) == n {
					return out
				}
				out = append(out, [3]float64{tc, beta, omega})
			}
		}
	}
	return out
}

func axis(iv models.Interval, per int) []float64 {
	if per <= 1 {
		return []float64{iv.Center}
	}
	return floats.Span(make([]float64, per), iv.Min, iv.Max)
}

func random(r models.SearchRange, n int, rng *rand.Rand) [][3]float64 {
	out := make([][3]float64, n)
	for i := range out {
		out[i] = [3]float64{
			uniform(rng, r.Tc),
			uniform(rng, r.Beta),
			uniform(rng, r.Omega),
		}
	}
	return out
}

func uniform(rng *rand.Rand, iv models.Interval) float64 {
	return iv.Min + rng.Float64()*iv.Width()
}
