package optimizer

import (
	"math"
	"testing"
	"time"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/services/lppl"

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
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.NormalizedSeries{T: ts, LogPrice: y, Start: start, End: start.AddDate(0, 0, n-1)}
}

func wideBounds() models.Bounds {
	return models.Bounds{
		Lower: models.ParameterVector{Tc: 1.001, Beta: 0.1, Omega: 2, Phi: -8 * math.Pi, A: -1e3, B: -1e3, C: -2},
		Upper: models.ParameterVector{Tc: 2, Beta: 0.7, Omega: 20, Phi: 8 * math.Pi, A: 1e3, B: 1e3, C: 2},
	}
}

func dailySeries(n int, price func(i int) float64) models.PriceSeries {
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	s := models.PriceSeries{Symbol: "TEST"}
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, models.PricePoint{Time: start.AddDate(0, 0, i), Price: price(i)})
	}
	return s
}

func TestNormalize(t *testing.T) {
	s := dailySeries(150, func(i int) float64 { return 100 + float64(i) })
	ns, err := Normalize(s)
	require.NoError(t, err)
	assert.Equal(t, 150, ns.Len())
	assert.Equal(t, 0.0, ns.T[0])
	assert.Equal(t, 1.0, ns.T[149])
	assert.InDelta(t, math.Log(100), ns.LogPrice[0], 1e-12)
	assert.Equal(t, s.Points[0].Time, ns.Start)
	assert.Equal(t, s.Points[149].Time, ns.End)
	for i := 1; i < ns.Len(); i++ {
		assert.Greater(t, ns.T[i], ns.T[i-1])
	}
}

func TestNormalizeRejects(t *testing.T) {
	short := dailySeries(MinSamples-1, func(int) float64 { return 10 })
	_, err := Normalize(short)
	require.Error(t, err)
	assert.True(t, models.IsDataError(err))

	negative := dailySeries(120, func(i int) float64 {
		if i == 5 {
			return -1
		}
		return 10
	})
	_, err = Normalize(negative)
	var de *models.DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 5, de.Index)

	unordered := dailySeries(120, func(int) float64 { return 10 })
	unordered.Points[40].Time = unordered.Points[39].Time
	_, err = Normalize(unordered)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 40, de.Index)
	assert.Contains(t, err.Error(), "sample 40")
}

func TestFitRecoversNearSeed(t *testing.T) {
	data := synthetic(t, 200, truth)
	seed := models.ParameterVector{Tc: 1.17, Beta: 0.31, Omega: 6.8}

	c := New().Fit(data, seed, wideBounds(), time.Time{})

	require.True(t, c.Converged, c.FailureReason)
	assert.Empty(t, c.FailureReason)
	assert.InDelta(t, truth.Tc, c.Params.Tc, 0.01)
	assert.InDelta(t, truth.Beta, c.Params.Beta, 0.02)
	assert.InDelta(t, truth.Omega, c.Params.Omega, 0.2)
	assert.Greater(t, c.RSquared, 0.999)
	assert.Less(t, c.RMSE, 1e-3)
	assert.Equal(t, seed, c.Seed)
	assert.Positive(t, c.Iterations)
}

func TestFitFlatSeries(t *testing.T) {
	data := synthetic(t, 150, truth)
	for i := range data.LogPrice {
		data.LogPrice[i] = math.Log(42)
	}

	c := New().Fit(data, truth, wideBounds(), time.Time{})

	assert.False(t, c.Converged)
	assert.Equal(t, models.FailZeroVariance, c.FailureReason)
}

func TestFitTimeout(t *testing.T) {
	data := synthetic(t, 150, truth)

	c := New().Fit(data, truth, wideBounds(), time.Now().Add(-time.Second))

	assert.False(t, c.Converged)
	assert.Equal(t, models.FailTimeout, c.FailureReason)
	assert.Zero(t, c.Iterations)
}

func TestFitOutOfBoundsKeepsParams(t *testing.T) {
	data := synthetic(t, 200, truth)
	b := wideBounds()
	b.Upper.A = 1

	c := New().Fit(data, truth, b, time.Time{})

	assert.False(t, c.Converged)
	assert.Equal(t, models.FailOutOfBounds, c.FailureReason)
	assert.InDelta(t, truth.A, c.Params.A, 0.1)
}

func TestFitIterationCap(t *testing.T) {
	data := synthetic(t, 200, truth)
	seed := models.ParameterVector{Tc: 1.6, Beta: 0.55, Omega: 11}

	c := New(WithMaxIterations(1)).Fit(data, seed, wideBounds(), time.Time{})

	assert.False(t, c.Converged)
	assert.Equal(t, models.FailIterationCap, c.FailureReason)
	assert.Equal(t, 1, c.Iterations)
}

func TestFitClampsSeedIntoBounds(t *testing.T) {
	data := synthetic(t, 200, truth)
	seed := models.ParameterVector{Tc: 5, Beta: 0.9, Omega: 40}

	c := New().Fit(data, seed, wideBounds(), time.Time{})

	if c.Converged {
		assert.True(t, lppl.InBounds(c.Params))
	}
	assert.LessOrEqual(t, c.Params.Beta, 0.7)
}

func TestEvaluate(t *testing.T) {
	data := synthetic(t, 120, truth)

	r2, rmse, err := Evaluate(data, truth)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 1e-12)
	assert.InDelta(t, 0.0, rmse, 1e-12)

	off := truth
	off.A += 10
	r2, rmse, err = Evaluate(data, off)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2)
	assert.InDelta(t, 10.0, rmse, 1e-9)

	gone := truth
	gone.Tc = -1
	_, _, err = Evaluate(data, gone)
	assert.ErrorIs(t, err, models.ErrDegenerateModel)
}
