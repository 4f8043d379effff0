package selection

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/services/lppl"
	"BubbleScope/internal/services/paramspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var truth = models.ParameterVector{Tc: 1.2, Beta: 0.33, Omega: 7, Phi: 1, A: 5, B: -0.5, C: 0.05}

func synthetic(t *testing.T, n int, p models.ParameterVector) *models.NormalizedSeries {
	t.Helper()
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) / float64(n-1)
	}
	y, err := lppl.LogPeriodicSeries(ts, p)
	require.NoError(t, err)
	start := time.Date(2019, 6, 3, 0, 0, 0, 0, time.UTC)
	return &models.NormalizedSeries{T: ts, LogPrice: y, Start: start, End: start.AddDate(0, 0, n-1)}
}

// stubFitter returns a canned candidate per seed, keyed by seed.Omega.
type stubFitter struct {
	byOmega map[float64]models.FittingCandidate
	calls   atomic.Int32
	onFit   func()
}

func (f *stubFitter) Fit(_ *models.NormalizedSeries, seed models.ParameterVector, _ models.Bounds, _ time.Time) models.FittingCandidate {
	f.calls.Add(1)
	if f.onFit != nil {
		f.onFit()
	}
	return f.byOmega[seed.Omega]
}

func converged(r2, rmse float64, p models.ParameterVector) models.FittingCandidate {
	return models.FittingCandidate{Params: p, RSquared: r2, RMSE: rmse, Converged: true}
}

func withParams(tc, beta, omega float64) models.ParameterVector {
	p := truth
	p.Tc, p.Beta, p.Omega = tc, beta, omega
	return p
}

func TestRunRecoversSyntheticBubble(t *testing.T) {
	data := synthetic(t, 200, truth)
	plan, err := paramspace.Plan("conservative", &models.MarketCharacteristics{Samples: 200, BubbleType: models.BubbleUnknown})
	require.NoError(t, err)
	seeds := paramspace.Guesses(plan, data, plan.Strategy.Trials, 1)

	res := New(WithWorkers(4)).Run(context.Background(), plan, data, seeds)

	require.False(t, res.Empty())
	best, ok := res.Selected()
	require.True(t, ok)
	assert.InEpsilon(t, truth.Tc, best.Params.Tc, 0.05)
	assert.InEpsilon(t, truth.Beta, best.Params.Beta, 0.05)
	assert.InEpsilon(t, truth.Omega, best.Params.Omega, 0.05)
	assert.Greater(t, best.RSquared, 0.99)
	assert.True(t, best.Quality.IsUsable)
	assert.Equal(t, models.StrategyConservative, res.Strategy)
	assert.Len(t, res.Candidates, len(seeds))
	for i, c := range res.Candidates {
		assert.Equal(t, i, c.Index)
	}
	assert.False(t, res.Cancelled)
}

func TestRunFlatSeriesIsEmpty(t *testing.T) {
	data := synthetic(t, 150, truth)
	for i := range data.LogPrice {
		data.LogPrice[i] = 4
	}
	plan, err := paramspace.Plan("conservative", nil)
	require.NoError(t, err)
	seeds := paramspace.Guesses(plan, data, 27, 1)

	res := New().Run(context.Background(), plan, data, seeds)

	_, ok := res.Selected()
	assert.False(t, ok)
	assert.True(t, res.Empty())
	assert.Zero(t, res.Stats.Converged)
	assert.Equal(t, 27, res.Stats.Total)
	for _, c := range res.Candidates {
		assert.Equal(t, models.FailZeroVariance, c.FailureReason)
		assert.Equal(t, models.QualityPoor, c.Quality.Quality)
	}
}

func TestRunNeverSelectsOutOfBoundsBeta(t *testing.T) {
	data := synthetic(t, 150, truth)
	plan, err := paramspace.Plan("conservative", nil)
	require.NoError(t, err)

	f := &stubFitter{byOmega: map[float64]models.FittingCandidate{
		1: converged(0.999, 0.001, withParams(1.1, 0.9, 7)),
		2: converged(0.90, 0.01, withParams(1.1, 0.34, 6.5)),
	}}
	seeds := []models.ParameterVector{{Omega: 1}, {Omega: 2}}

	res := New(WithFitter(f)).Run(context.Background(), plan, data, seeds)

	assert.Equal(t, 2, res.Stats.Converged)
	assert.Equal(t, 1, res.Stats.Valid)
	for c, idx := range res.Winners {
		assert.Equal(t, 1, idx, "criterion %s", c)
	}
	best, ok := res.Selected()
	require.True(t, ok)
	assert.Equal(t, 0.34, best.Params.Beta)
}

func TestRunDeterministicAcrossWorkers(t *testing.T) {
	data := synthetic(t, 150, truth)
	plan, err := paramspace.Plan("extensive", &models.MarketCharacteristics{Samples: 150})
	require.NoError(t, err)
	plan.Strategy.TimeBudget = 0
	seeds := paramspace.Guesses(plan, data, 24, 7)

	seq := New(WithWorkers(1), WithDefaultTimeout(time.Minute)).Run(context.Background(), plan, data, seeds)
	par := New(WithWorkers(8), WithDefaultTimeout(time.Minute)).Run(context.Background(), plan, data, seeds)

	assert.Equal(t, seq.Winners, par.Winners)
	assert.Equal(t, seq.Stats, par.Stats)
	require.Len(t, par.Candidates, len(seq.Candidates))
	for i := range seq.Candidates {
		assert.Equal(t, seq.Candidates[i].Params, par.Candidates[i].Params)
		assert.Equal(t, seq.Candidates[i].RSquared, par.Candidates[i].RSquared)
		assert.Equal(t, seq.Candidates[i].FailureReason, par.Candidates[i].FailureReason)
	}
}

func TestRunCancellationReturnsPartialResult(t *testing.T) {
	data := synthetic(t, 150, truth)
	plan, err := paramspace.Plan("conservative", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &stubFitter{
		byOmega: map[float64]models.FittingCandidate{0: converged(0.95, 0.01, withParams(1.1, 0.33, 7))},
		onFit:   cancel,
	}
	seeds := make([]models.ParameterVector, 10)

	res := New(WithFitter(f), WithWorkers(1)).Run(ctx, plan, data, seeds)

	assert.True(t, res.Cancelled)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.True(t, res.Candidates[0].Converged)
	for _, c := range res.Candidates[1:] {
		assert.Equal(t, models.FailNotStarted, c.FailureReason)
	}
	assert.Equal(t, 1, res.Stats.Converged)
	_, ok := res.Winner(models.CriterionBestFit)
	assert.True(t, ok)
}

func indexed(cs ...models.FittingCandidate) []models.FittingCandidate {
	for i := range cs {
		cs[i].Index = i
		cs[i].Quality.IsUsable = true
	}
	return cs
}

func TestRankCriteria(t *testing.T) {
	cands := indexed(
		converged(0.97, 0.02, withParams(1.8, 0.55, 12)),  // best fit, far tc
		converged(0.80, 0.03, withParams(1.15, 0.33, 6.4)), // closest to theory
		converged(0.90, 0.02, withParams(1.4, 0.45, 9)),
		converged(0.89, 0.02, withParams(1.41, 0.45, 9.1)),
	)

	res := rank(cands, 0.05)

	assert.Equal(t, 0, res.Winners[models.CriterionBestFit])
	assert.Equal(t, 0, res.Winners[models.CriterionPrimary])
	assert.Equal(t, 1, res.Winners[models.CriterionTheoretical])
	assert.Equal(t, 2, res.Winners[models.CriterionPractical])
	assert.Equal(t, 2, res.Winners[models.CriterionStability])
	assert.Equal(t, 1, res.Winners[models.CriterionConservative])
	assert.Equal(t, 1, res.Winners[models.CriterionMultiCriteria])

	assert.Equal(t, 4, res.Stats.Valid)
	assert.InDelta(t, 0.80, res.Stats.MinRSquared, 1e-12)
	assert.InDelta(t, 0.97, res.Stats.MaxRSquared, 1e-12)
	assert.InDelta(t, 0.65, res.Stats.TcSpread, 1e-12)
}

func TestRankPracticalFallsBackToSmallestTc(t *testing.T) {
	res := rank(indexed(
		converged(0.9, 0.01, withParams(1.9, 0.33, 7)),
		converged(0.8, 0.01, withParams(1.6, 0.33, 7)),
	), 0.05)
	assert.Equal(t, 1, res.Winners[models.CriterionPractical])
}

func TestTieBreak(t *testing.T) {
	a := converged(0.9, 0.02, withParams(1.1, 0.40, 7))
	b := converged(0.9, 0.02, withParams(1.1, 0.33, 7))
	assert.True(t, better(b, a))

	c := converged(0.9, 0.01, withParams(1.1, 0.33, 7))
	assert.True(t, better(c, b))

	d, e := c, c
	d.Index, e.Index = 3, 5
	assert.True(t, better(d, e))
	assert.False(t, better(e, d))
}

func TestProximity(t *testing.T) {
	assert.Equal(t, 1.0, proximity(0.33, 0.33))
	assert.Equal(t, 0.0, proximity(1.0, 0.33))
	assert.False(t, math.IsNaN(proximity(0, 0.33)))
}
